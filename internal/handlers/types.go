package handlers

import (
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
)

// CodeRequest addresses a link by its short code.
type CodeRequest struct {
	Code string `doc:"The short code" example:"abc123" maxLength:"50" path:"code"`
}

// RedirectResponse sends the visitor on to the final URL.
type RedirectResponse struct {
	Status   int
	Location string `doc:"Final destination" header:"Location"`
}

// PreviewBody summarizes a link before the visitor follows it.
type PreviewBody struct {
	ShortCode   string    `example:"abc123"                       json:"shortCode"`
	ShortURL    string    `example:"https://sho.rt/r/abc123"      json:"shortUrl"`
	LongURL     string    `example:"https://example.com/landing"  json:"longUrl"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
	Warning     string    `json:"warning"`
}

// PreviewResponse is returned by the preview endpoint.
type PreviewResponse struct {
	Body PreviewBody
}

// InfoResponse is the preview plus QR details.
type InfoResponse struct {
	Body struct {
		PreviewBody

		QREnabled bool   `json:"qrEnabled"`
		QRURL     string `doc:"Empty until the QR image has been rendered" json:"qrUrl"`
	}
}

// ImageResponse carries a rendered QR image.
type ImageResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// OwnerRequest carries the already-authenticated caller.
type OwnerRequest struct {
	OwnerID string `doc:"Authenticated owner id" header:"X-Owner-ID" maxLength:"64" minLength:"1" required:"true"`
}

// LinkRequest addresses one of the caller's links.
type LinkRequest struct {
	OwnerRequest

	ID string `doc:"Link id" path:"id"`
}

// UTMBody is the wire form of the UTM settings.
type UTMBody struct {
	Source   string `json:"source,omitempty"   maxLength:"100"`
	Medium   string `json:"medium,omitempty"   maxLength:"100"`
	Campaign string `json:"campaign,omitempty" maxLength:"100"`
	Term     string `json:"term,omitempty"     maxLength:"100"`
	Content  string `json:"content,omitempty"  maxLength:"100"`
}

func (u UTMBody) params() shortener.UTMParams {
	return shortener.UTMParams(u)
}

// CreateLinkRequest is the request body for creating a link.
type CreateLinkRequest struct {
	OwnerRequest

	Body struct {
		URL         string  `doc:"Destination URL; https:// is assumed when no scheme is given" example:"example.com/spring" json:"url"                   minLength:"1"`
		CustomAlias string  `doc:"Optional custom short code"                                   example:"spring-sale"        json:"customAlias,omitempty"`
		Title       string  `json:"title,omitempty"       maxLength:"200"`
		Description string  `json:"description,omitempty" maxLength:"1000"`
		UTMEnabled  bool    `json:"utmEnabled,omitempty"`
		UTM         UTMBody `json:"utm,omitempty"`
		QREnabled   bool    `json:"qrEnabled,omitempty"`
	}
}

// SetUTMRequest replaces a link's UTM settings.
type SetUTMRequest struct {
	LinkRequest

	Body struct {
		Enabled bool    `json:"enabled"`
		UTM     UTMBody `json:"utm"`
	}
}

// SetQRRequest toggles QR generation.
type SetQRRequest struct {
	LinkRequest

	Body struct {
		Enabled bool `json:"enabled"`
	}
}

// LinkBody is the owner's view of a link.
type LinkBody struct {
	ID             string    `json:"id"`
	ShortCode      string    `json:"shortCode"`
	ShortURL       string    `json:"shortUrl"`
	DestinationURL string    `json:"destinationUrl"`
	FinalURL       string    `json:"finalUrl"`
	CustomAlias    string    `json:"customAlias,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Active         bool      `json:"active"`
	Clicks         int64     `json:"clicks"`
	UTMEnabled     bool      `json:"utmEnabled"`
	UTM            UTMBody   `json:"utm"`
	QREnabled      bool      `json:"qrEnabled"`
	QRURL          string    `json:"qrUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// LinkResponse is returned by every operation that reads or changes a link.
type LinkResponse struct {
	Body LinkBody
}

// CreatedLinkResponse points Location at the new short URL.
type CreatedLinkResponse struct {
	Location string `header:"Location"`
	Body     LinkBody
}

// StatsRequest selects the histogram length.
type StatsRequest struct {
	LinkRequest

	Days int `default:"7" doc:"Days in the daily histogram" maximum:"366" minimum:"1" query:"days"`
}

// StatsResponse is the aggregated analytics of a link.
type StatsResponse struct {
	Body *analytics.Summary
}

// ExportResponse streams the click log as a spreadsheet.
type ExportResponse struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

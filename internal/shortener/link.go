package shortener

import (
	"fmt"
	"strings"
	"time"
)

// Code is the token that identifies a link in a short URL.
type Code string

// UTMParams holds the campaign parameters appended to a destination.
type UTMParams struct {
	Source   string `json:"source,omitempty"   validate:"max=100"`
	Medium   string `json:"medium,omitempty"   validate:"max=100"`
	Campaign string `json:"campaign,omitempty" validate:"max=100"`
	Term     string `json:"term,omitempty"     validate:"max=100"`
	Content  string `json:"content,omitempty"  validate:"max=100"`
}

// IsEmpty reports whether every field is blank.
func (u UTMParams) IsEmpty() bool {
	return u.Source == "" && u.Medium == "" && u.Campaign == "" && u.Term == "" && u.Content == ""
}

// Link maps a short code to its destination and carries its UTM and QR configuration.
type Link struct {
	ID             string
	OwnerID        string
	DestinationURL string
	FinalURL       string
	ShortCode      Code
	CustomAlias    string // empty when the code was generated
	Title          string
	Description    string
	Active         bool
	ClickCount     int64
	UTMEnabled     bool
	UTM            UTMParams
	QREnabled      bool
	QRAssetRef     string // empty until a QR asset has been rendered
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ShortURL returns the public URL that resolves to this link.
func (l *Link) ShortURL(baseURL string) string {
	return PublicURL(baseURL, l.ShortCode)
}

// PublicURL builds the redirect URL for code under baseURL.
func PublicURL(baseURL string, code Code) string {
	return fmt.Sprintf("%s/r/%s", strings.TrimSuffix(baseURL, "/"), code)
}

// RecomputeFinal derives FinalURL from DestinationURL and the UTM settings.
// It returns true when the stored value changed.
func RecomputeFinal(l *Link) bool {
	final := ComposeFinal(l.DestinationURL, l.UTM, l.UTMEnabled)
	if final == l.FinalURL {
		return false
	}

	l.FinalURL = final

	return true
}

package analytics

import "time"

// TopicVisits carries one VisitEvent per successful redirect.
const TopicVisits = "link.visited"

// DeviceType classifies the visiting device.
type DeviceType string

const (
	DeviceMobile  DeviceType = "Mobile"
	DeviceTablet  DeviceType = "Tablet"
	DeviceDesktop DeviceType = "Desktop"
)

// Unknown is the placeholder recorded when a dimension could not be determined.
const Unknown = "Unknown"

// RequestContext is the raw request data a click is derived from.
type RequestContext struct {
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
	Referrer  string `json:"referrer,omitempty"`
}

// VisitEvent is published by the redirect path for every resolved visit.
type VisitEvent struct {
	LinkID     string         `json:"linkId"`
	Code       string         `json:"code"`
	OccurredAt time.Time      `json:"occurredAt"`
	Request    RequestContext `json:"request"`
}

// ClickEvent is a single recorded visit. Append-only.
type ClickEvent struct {
	ID         string
	LinkID     string
	Timestamp  time.Time
	IPAddress  string
	UserAgent  string
	Country    string
	City       string
	DeviceType DeviceType
	Browser    string
	OS         string
	Referrer   string
	Extra      map[string]string
}

package shortener

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes a destination URL.
//   - Prefixes https:// when no http/https scheme is present
//   - Rejects any other explicit scheme
//   - Strips exactly one trailing slash
//   - Requires an absolute URL with a host name; a host with an empty port is rejected
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidURL
	}

	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
	case strings.Contains(s, "://"):
		return "", ErrInvalidURL
	default:
		s = "https://" + s
	}

	s = strings.TrimSuffix(s, "/")

	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Hostname() == "" || strings.HasSuffix(u.Host, ":") {
		return "", ErrInvalidURL
	}

	return s, nil
}

// ComposeFinal appends the non-empty UTM parameters to a normalized URL.
// Disabled or empty UTM settings leave the URL untouched. Existing utm_* values are
// overwritten, so composing twice yields the same string.
func ComposeFinal(normalized string, utm UTMParams, enabled bool) string {
	if !enabled || utm.IsEmpty() {
		return normalized
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}

	q := u.Query()

	for key, value := range map[string]string{
		"utm_source":   utm.Source,
		"utm_medium":   utm.Medium,
		"utm_campaign": utm.Campaign,
		"utm_term":     utm.Term,
		"utm_content":  utm.Content,
	} {
		if value != "" {
			q.Set(key, value)
		}
	}

	u.RawQuery = q.Encode()

	return u.String()
}

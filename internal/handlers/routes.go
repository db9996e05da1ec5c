package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/ratelimit"
)

// RegisterRoutes registers the public and owner endpoints with their rate limit scopes.
func RegisterRoutes(api huma.API, public *PublicHandler, links *LinkHandler) {
	redirectScope := map[string]any{
		ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeRedirect},
	}

	huma.Register(api, huma.Operation{
		OperationID: "follow-link",
		Method:      http.MethodGet,
		Path:        "/r/{code}",
		Summary:     "Follow a short link",
		Description: "Permanently redirects to the link's final URL. Unknown and deactivated codes both return 404.",
		Tags:        []string{"Public"},
		Metadata:    redirectScope,
	}, public.Redirect)

	huma.Register(api, huma.Operation{
		OperationID: "preview-link",
		Method:      http.MethodGet,
		Path:        "/r/{code}/preview",
		Summary:     "Preview a short link",
		Tags:        []string{"Public"},
	}, public.Preview)

	huma.Register(api, huma.Operation{
		OperationID: "link-info",
		Method:      http.MethodGet,
		Path:        "/r/{code}/info",
		Summary:     "Short link details including the QR image URL",
		Tags:        []string{"Public"},
	}, public.Info)

	huma.Register(api, huma.Operation{
		OperationID: "link-qr-image",
		Method:      http.MethodGet,
		Path:        "/r/{code}/qr.png",
		Summary:     "QR code image of a short link",
		Tags:        []string{"Public"},
		Metadata:    redirectScope,
	}, public.QRImage)

	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/links",
		Summary:       "Create a short link",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
	}, links.Create)

	huma.Register(api, huma.Operation{
		OperationID: "get-link",
		Method:      http.MethodGet,
		Path:        "/links/{id}",
		Summary:     "Get one of your links",
		Tags:        []string{"Links"},
	}, links.Get)

	huma.Register(api, huma.Operation{
		OperationID: "set-link-utm",
		Method:      http.MethodPut,
		Path:        "/links/{id}/utm",
		Summary:     "Replace UTM settings",
		Tags:        []string{"Links"},
	}, links.SetUTM)

	huma.Register(api, huma.Operation{
		OperationID: "set-link-qr",
		Method:      http.MethodPut,
		Path:        "/links/{id}/qr",
		Summary:     "Enable or disable the QR code",
		Tags:        []string{"Links"},
	}, links.SetQR)

	huma.Register(api, huma.Operation{
		OperationID: "activate-link",
		Method:      http.MethodPost,
		Path:        "/links/{id}/activate",
		Summary:     "Activate a link",
		Tags:        []string{"Links"},
	}, links.Activate)

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-link",
		Method:      http.MethodPost,
		Path:        "/links/{id}/deactivate",
		Summary:     "Deactivate a link",
		Tags:        []string{"Links"},
	}, links.Deactivate)

	huma.Register(api, huma.Operation{
		OperationID: "link-stats",
		Method:      http.MethodGet,
		Path:        "/links/{id}/stats",
		Summary:     "Click statistics",
		Tags:        []string{"Analytics"},
	}, links.Stats)

	huma.Register(api, huma.Operation{
		OperationID: "export-link-clicks",
		Method:      http.MethodGet,
		Path:        "/links/{id}/clicks.xlsx",
		Summary:     "Download the click log as a spreadsheet",
		Tags:        []string{"Analytics"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeWrite},
		},
	}, links.ExportClicks)
}

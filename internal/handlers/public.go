package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/qr"
	"github.com/serroba/shortlink/internal/redirect"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// AssetReader loads a stored QR image by reference.
type AssetReader interface {
	Asset(ctx context.Context, ref string) ([]byte, error)
}

// PublicHandler serves the unauthenticated short link endpoints.
type PublicHandler struct {
	resolver *redirect.Resolver
	links    redirect.LinkFinder
	assets   AssetReader
	baseURL  string
	logger   *zap.Logger
}

func NewPublicHandler(
	resolver *redirect.Resolver,
	links redirect.LinkFinder,
	assets AssetReader,
	baseURL string,
	logger *zap.Logger,
) *PublicHandler {
	return &PublicHandler{
		resolver: resolver,
		links:    links,
		assets:   assets,
		baseURL:  baseURL,
		logger:   logger,
	}
}

func (h *PublicHandler) Redirect(ctx context.Context, req *CodeRequest) (*RedirectResponse, error) {
	outcome, err := h.resolver.Resolve(ctx, shortener.Code(req.Code), RequestFromContext(ctx))
	if err != nil {
		h.logger.Error("failed to resolve short code", zap.String("code", req.Code), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to resolve short code")
	}

	if outcome.Status != redirect.Found {
		return nil, huma.Error404NotFound(shortener.ErrNotFound.Error())
	}

	return &RedirectResponse{
		Status:   http.StatusMovedPermanently,
		Location: outcome.FinalURL,
	}, nil
}

func (h *PublicHandler) Preview(ctx context.Context, req *CodeRequest) (*PreviewResponse, error) {
	link, err := h.activeLink(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	return &PreviewResponse{Body: h.preview(link)}, nil
}

func (h *PublicHandler) Info(ctx context.Context, req *CodeRequest) (*InfoResponse, error) {
	link, err := h.activeLink(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	resp := &InfoResponse{}
	resp.Body.PreviewBody = h.preview(link)
	resp.Body.QREnabled = link.QREnabled
	resp.Body.QRURL = qrURL(h.baseURL, link)

	return resp, nil
}

func (h *PublicHandler) QRImage(ctx context.Context, req *CodeRequest) (*ImageResponse, error) {
	link, err := h.activeLink(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	if !link.QREnabled || link.QRAssetRef == "" {
		return nil, huma.Error404NotFound("qr code not available")
	}

	png, err := h.assets.Asset(ctx, link.QRAssetRef)
	if err != nil {
		if errors.Is(err, qr.ErrAssetNotFound) {
			return nil, huma.Error404NotFound("qr code not available")
		}

		h.logger.Error("failed to load qr asset", zap.String("code", req.Code), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to load qr code")
	}

	return &ImageResponse{
		ContentType:  "image/png",
		CacheControl: "public, max-age=3600",
		Body:         png,
	}, nil
}

// activeLink returns the link for code, treating inactive links as missing.
func (h *PublicHandler) activeLink(ctx context.Context, code string) (*shortener.Link, error) {
	link, err := h.links.FindByCode(ctx, shortener.Code(code))
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound(shortener.ErrNotFound.Error())
		}

		h.logger.Error("failed to look up short code", zap.String("code", code), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to look up short code")
	}

	if !link.Active {
		return nil, huma.Error404NotFound(shortener.ErrNotFound.Error())
	}

	return link, nil
}

func (h *PublicHandler) preview(link *shortener.Link) PreviewBody {
	return PreviewBody{
		ShortCode:   string(link.ShortCode),
		ShortURL:    link.ShortURL(h.baseURL),
		LongURL:     link.FinalURL,
		Title:       link.Title,
		Description: link.Description,
		Clicks:      link.ClickCount,
		CreatedAt:   link.CreatedAt,
		Warning:     redirectWarning(link.FinalURL),
	}
}

func redirectWarning(target string) string {
	host := target
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		host = u.Host
	}

	return fmt.Sprintf("You are about to leave for %s. Only continue if you trust this site.", host)
}

// qrURL is the public image URL, or empty while no asset exists.
func qrURL(baseURL string, link *shortener.Link) string {
	if !link.QREnabled || link.QRAssetRef == "" {
		return ""
	}

	return link.ShortURL(baseURL) + "/qr.png"
}

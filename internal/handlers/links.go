package handlers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// StatsReader produces the statistics summary of a link.
type StatsReader interface {
	Summary(ctx context.Context, linkID string, days int) (*analytics.Summary, error)
}

// ClickLister reads the raw click log of a link.
type ClickLister interface {
	ListClicks(ctx context.Context, linkID string, since time.Time) ([]*analytics.ClickEvent, error)
}

// LinkHandler serves the owner's link management endpoints.
type LinkHandler struct {
	registry *shortener.Registry
	stats    StatsReader
	clicks   ClickLister
	baseURL  string
	logger   *zap.Logger
}

func NewLinkHandler(
	registry *shortener.Registry,
	stats StatsReader,
	clicks ClickLister,
	baseURL string,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		registry: registry,
		stats:    stats,
		clicks:   clicks,
		baseURL:  baseURL,
		logger:   logger,
	}
}

func (h *LinkHandler) Create(ctx context.Context, req *CreateLinkRequest) (*CreatedLinkResponse, error) {
	link, err := h.registry.Create(ctx, shortener.CreateInput{
		OwnerID:        req.OwnerID,
		DestinationURL: req.Body.URL,
		CustomAlias:    req.Body.CustomAlias,
		Title:          req.Body.Title,
		Description:    req.Body.Description,
		UTMEnabled:     req.Body.UTMEnabled,
		UTM:            req.Body.UTM.params(),
		QREnabled:      req.Body.QREnabled,
	})
	if err != nil {
		return nil, h.fail("create link", err)
	}

	resp := h.respond(link)

	return &CreatedLinkResponse{Location: resp.Body.ShortURL, Body: resp.Body}, nil
}

func (h *LinkHandler) Get(ctx context.Context, req *LinkRequest) (*LinkResponse, error) {
	link, err := h.registry.Get(ctx, req.OwnerID, req.ID)
	if err != nil {
		return nil, h.fail("get link", err)
	}

	return h.respond(link), nil
}

func (h *LinkHandler) SetUTM(ctx context.Context, req *SetUTMRequest) (*LinkResponse, error) {
	link, err := h.registry.SetUTM(ctx, req.OwnerID, req.ID, req.Body.Enabled, req.Body.UTM.params())
	if err != nil {
		return nil, h.fail("set utm", err)
	}

	return h.respond(link), nil
}

func (h *LinkHandler) SetQR(ctx context.Context, req *SetQRRequest) (*LinkResponse, error) {
	link, err := h.registry.SetQR(ctx, req.OwnerID, req.ID, req.Body.Enabled)
	if err != nil {
		return nil, h.fail("set qr", err)
	}

	return h.respond(link), nil
}

func (h *LinkHandler) Activate(ctx context.Context, req *LinkRequest) (*LinkResponse, error) {
	link, err := h.registry.Activate(ctx, req.OwnerID, req.ID)
	if err != nil {
		return nil, h.fail("activate link", err)
	}

	return h.respond(link), nil
}

func (h *LinkHandler) Deactivate(ctx context.Context, req *LinkRequest) (*LinkResponse, error) {
	link, err := h.registry.Deactivate(ctx, req.OwnerID, req.ID)
	if err != nil {
		return nil, h.fail("deactivate link", err)
	}

	return h.respond(link), nil
}

func (h *LinkHandler) Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	link, err := h.registry.Get(ctx, req.OwnerID, req.ID)
	if err != nil {
		return nil, h.fail("link stats", err)
	}

	summary, err := h.stats.Summary(ctx, link.ID, req.Days)
	if err != nil {
		return nil, h.fail("link stats", err)
	}

	return &StatsResponse{Body: summary}, nil
}

func (h *LinkHandler) ExportClicks(ctx context.Context, req *LinkRequest) (*ExportResponse, error) {
	link, err := h.registry.Get(ctx, req.OwnerID, req.ID)
	if err != nil {
		return nil, h.fail("export clicks", err)
	}

	events, err := h.clicks.ListClicks(ctx, link.ID, time.Time{})
	if err != nil {
		return nil, h.fail("export clicks", err)
	}

	var buf bytes.Buffer
	if err := analytics.ExportXLSX(&buf, events); err != nil {
		return nil, h.fail("export clicks", err)
	}

	return &ExportResponse{
		ContentType:        "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		ContentDisposition: fmt.Sprintf(`attachment; filename="clicks-%s.xlsx"`, link.ShortCode),
		Body:               buf.Bytes(),
	}, nil
}

func (h *LinkHandler) respond(link *shortener.Link) *LinkResponse {
	shortURL := link.ShortURL(h.baseURL)

	return &LinkResponse{
		Body: LinkBody{
			ID:             link.ID,
			ShortCode:      string(link.ShortCode),
			ShortURL:       shortURL,
			DestinationURL: link.DestinationURL,
			FinalURL:       link.FinalURL,
			CustomAlias:    link.CustomAlias,
			Title:          link.Title,
			Description:    link.Description,
			Active:         link.Active,
			Clicks:         link.ClickCount,
			UTMEnabled:     link.UTMEnabled,
			UTM:            UTMBody(link.UTM),
			QREnabled:      link.QREnabled,
			QRURL:          qrURL(h.baseURL, link),
			CreatedAt:      link.CreatedAt,
			UpdatedAt:      link.UpdatedAt,
		},
	}
}

// fail maps err to a status error and logs anything that ends up as a 500.
func (h *LinkHandler) fail(op string, err error) error {
	mapped := toHTTPError(err)
	if mapped.GetStatus() >= 500 {
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	}

	return mapped
}

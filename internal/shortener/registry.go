package shortener

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// maxSanitizeRounds bounds how many layers of entity encoding clean peels off.
const maxSanitizeRounds = 4

// maxCreateAttempts bounds redraws when a generated code loses a uniqueness race.
const maxCreateAttempts = 3

// QREnsurer renders (or re-renders) the QR asset for a link and returns its reference.
type QREnsurer interface {
	EnsureQR(ctx context.Context, link *Link) (string, error)
}

// CreateInput is the caller-supplied data for a new link.
type CreateInput struct {
	OwnerID        string
	DestinationURL string
	CustomAlias    string
	Title          string
	Description    string
	UTMEnabled     bool
	UTM            UTMParams
	QREnabled      bool
}

type linkConstraints struct {
	OwnerID     string    `validate:"required,max=64"`
	Destination string    `validate:"required,url,max=2048"`
	ShortCode   string    `validate:"required,min=3,max=50"`
	Title       string    `validate:"max=200"`
	Description string    `validate:"max=1000"`
	UTM         UTMParams
}

// Registry owns the link lifecycle: creation, UTM and QR configuration, activation.
type Registry struct {
	repo      Repository
	generator *Generator
	qr        QREnsurer
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistry creates a registry. qr may be nil, in which case QR generation is skipped.
func NewRegistry(repo Repository, generator *Generator, qr QREnsurer, logger *zap.Logger) *Registry {
	return &Registry{
		repo:      repo,
		generator: generator,
		qr:        qr,
		validate:  validator.New(),
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
		now:       time.Now,
	}
}

// Create runs normalize, generate, validate and persist in that order.
// Nothing is written unless every step succeeds.
func (r *Registry) Create(ctx context.Context, in CreateInput) (*Link, error) {
	destination, err := Normalize(in.DestinationURL)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		code, err := r.generator.Generate(ctx, in.CustomAlias)
		if err != nil {
			return nil, err
		}

		link := r.buildLink(in, destination, code)

		if err := r.checkConstraints(link); err != nil {
			return nil, err
		}

		err = r.repo.Create(ctx, link)
		if err == nil {
			r.logger.Info("link created",
				zap.String("id", link.ID),
				zap.String("code", string(link.ShortCode)),
				zap.String("owner", link.OwnerID),
			)

			if link.QREnabled {
				r.ensureQR(ctx, link)
			}

			return link, nil
		}

		if !errors.Is(err, ErrCodeConflict) {
			return nil, fmt.Errorf("persist link: %w", err)
		}

		if in.CustomAlias != "" {
			return nil, ErrAliasTaken
		}

		if attempt >= maxCreateAttempts {
			return nil, ErrGenerationExhausted
		}

		r.logger.Debug("generated code collided on insert, redrawing",
			zap.String("code", string(code)),
			zap.Int("attempt", attempt),
		)
	}
}

func (r *Registry) buildLink(in CreateInput, destination string, code Code) *Link {
	now := r.now().UTC()

	link := &Link{
		ID:             uuid.NewString(),
		OwnerID:        in.OwnerID,
		DestinationURL: destination,
		ShortCode:      code,
		CustomAlias:    in.CustomAlias,
		Title:          r.clean(in.Title),
		Description:    r.clean(in.Description),
		Active:         true,
		UTMEnabled:     in.UTMEnabled,
		UTM:            in.UTM,
		QREnabled:      in.QREnabled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	RecomputeFinal(link)

	return link
}

// clean strips markup from free text. Entities are decoded for storage, so the text is
// sanitized again after each decode until nothing changes; entity-encoded tags cannot
// come back to life as markup.
func (r *Registry) clean(s string) string {
	out := s

	for range maxSanitizeRounds {
		next := html.UnescapeString(r.sanitizer.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}

		out = next
	}

	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(out))
}

func (r *Registry) checkConstraints(link *Link) error {
	err := r.validate.Struct(linkConstraints{
		OwnerID:     link.OwnerID,
		Destination: link.DestinationURL,
		ShortCode:   string(link.ShortCode),
		Title:       link.Title,
		Description: link.Description,
		UTM:         link.UTM,
	})

	return translateValidation(err)
}

func translateValidation(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// Drop the root struct name: linkConstraints.UTM.Source -> UTM.Source.
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}

		fields[field] = fe.Tag()
	}

	return &ValidationError{Fields: fields}
}

// Get returns the link with id when it belongs to ownerID. Links owned by someone else are
// reported as ErrNotFound.
func (r *Registry) Get(ctx context.Context, ownerID, id string) (*Link, error) {
	link, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if link.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	return link, nil
}

// FindByCode looks a link up by its short code.
func (r *Registry) FindByCode(ctx context.Context, code Code) (*Link, error) {
	return r.repo.GetByCode(ctx, code)
}

// SetUTM updates the UTM settings and recomputes FinalURL. Nothing is written when the
// settings are unchanged.
func (r *Registry) SetUTM(ctx context.Context, ownerID, id string, enabled bool, utm UTMParams) (*Link, error) {
	if err := translateValidation(r.validate.Struct(utm)); err != nil {
		return nil, err
	}

	link, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if link.UTMEnabled == enabled && link.UTM == utm {
		return link, nil
	}

	link.UTMEnabled = enabled
	link.UTM = utm
	RecomputeFinal(link)

	if err := r.repo.UpdateUTM(ctx, link.ID, enabled, utm, link.FinalURL); err != nil {
		return nil, fmt.Errorf("update utm: %w", err)
	}

	link.UpdatedAt = r.now().UTC()

	return link, nil
}

// SetQR toggles QR generation. Enabling renders a fresh asset; disabling clears the
// stored reference. Nothing happens when the flag is unchanged.
func (r *Registry) SetQR(ctx context.Context, ownerID, id string, enabled bool) (*Link, error) {
	link, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if link.QREnabled == enabled {
		return link, nil
	}

	link.QREnabled = enabled
	if !enabled {
		link.QRAssetRef = ""
	}

	if err := r.repo.UpdateQR(ctx, link.ID, enabled, link.QRAssetRef); err != nil {
		return nil, fmt.Errorf("update qr: %w", err)
	}

	link.UpdatedAt = r.now().UTC()

	if enabled {
		r.ensureQR(ctx, link)
	}

	return link, nil
}

// RefreshQR re-renders the QR asset of a link that has QR enabled. Used by the retry sweep.
func (r *Registry) RefreshQR(ctx context.Context, link *Link) {
	if !link.QREnabled {
		return
	}

	r.ensureQR(ctx, link)
}

// Activate makes the link resolvable again.
func (r *Registry) Activate(ctx context.Context, ownerID, id string) (*Link, error) {
	return r.setActive(ctx, ownerID, id, true)
}

// Deactivate stops the link from resolving. Resolution then looks identical to a missing code.
func (r *Registry) Deactivate(ctx context.Context, ownerID, id string) (*Link, error) {
	return r.setActive(ctx, ownerID, id, false)
}

func (r *Registry) setActive(ctx context.Context, ownerID, id string, active bool) (*Link, error) {
	link, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if link.Active == active {
		return link, nil
	}

	if err := r.repo.SetActive(ctx, link.ID, active); err != nil {
		return nil, fmt.Errorf("set active: %w", err)
	}

	link.Active = active
	link.UpdatedAt = r.now().UTC()

	return link, nil
}

func (r *Registry) ensureQR(ctx context.Context, link *Link) {
	if r.qr == nil {
		return
	}

	ref, err := r.qr.EnsureQR(ctx, link)
	if err != nil {
		r.logger.Warn("qr generation failed, link kept without asset",
			zap.String("id", link.ID),
			zap.String("code", string(link.ShortCode)),
			zap.Error(err),
		)

		return
	}

	if err := r.repo.SetQRAsset(ctx, link.ID, ref); err != nil {
		r.logger.Warn("failed to store qr asset reference",
			zap.String("id", link.ID),
			zap.Error(err),
		)

		return
	}

	link.QRAssetRef = ref
}

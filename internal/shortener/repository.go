package shortener

import "context"

// Repository is the authoritative link store.
//
// Implementations must enforce short code uniqueness (and case-insensitive custom alias
// uniqueness) atomically and return ErrCodeConflict when a Create loses that race.
// IncrementClicks must be an atomic counter bump, never a read-modify-write.
type Repository interface {
	CodeChecker

	Create(ctx context.Context, link *Link) error
	GetByCode(ctx context.Context, code Code) (*Link, error)
	GetByID(ctx context.Context, id string) (*Link, error)

	UpdateUTM(ctx context.Context, id string, enabled bool, utm UTMParams, finalURL string) error
	UpdateQR(ctx context.Context, id string, enabled bool, assetRef string) error
	SetQRAsset(ctx context.Context, id, assetRef string) error
	SetActive(ctx context.Context, id string, active bool) error
	IncrementClicks(ctx context.Context, id string) error

	// ListMissingQR returns up to limit links that have QR enabled but no asset yet.
	ListMissingQR(ctx context.Context, limit int) ([]*Link, error)
}

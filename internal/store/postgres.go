package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
)

const pgUniqueViolation = "23505"

// PostgresSchema creates the links and click_events tables when missing.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS links (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL,
	destination_url TEXT NOT NULL,
	final_url       TEXT NOT NULL,
	short_code      TEXT NOT NULL UNIQUE,
	custom_alias    TEXT,
	title           TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	active          BOOLEAN NOT NULL DEFAULT TRUE,
	click_count     BIGINT NOT NULL DEFAULT 0 CHECK (click_count >= 0),
	utm_enabled     BOOLEAN NOT NULL DEFAULT FALSE,
	utm_source      TEXT NOT NULL DEFAULT '',
	utm_medium      TEXT NOT NULL DEFAULT '',
	utm_campaign    TEXT NOT NULL DEFAULT '',
	utm_term        TEXT NOT NULL DEFAULT '',
	utm_content     TEXT NOT NULL DEFAULT '',
	qr_enabled      BOOLEAN NOT NULL DEFAULT FALSE,
	qr_asset_ref    TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS links_custom_alias_lower_idx ON links (lower(custom_alias));
CREATE INDEX IF NOT EXISTS links_short_code_lower_idx ON links (lower(short_code));

CREATE TABLE IF NOT EXISTS click_events (
	id          TEXT PRIMARY KEY,
	link_id     TEXT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
	occurred_at TIMESTAMPTZ NOT NULL,
	ip_address  TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	country     TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	device_type TEXT NOT NULL DEFAULT 'Desktop',
	browser     TEXT NOT NULL DEFAULT '',
	os          TEXT NOT NULL DEFAULT '',
	referrer    TEXT NOT NULL DEFAULT '',
	extra       JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS click_events_link_time_idx ON click_events (link_id, occurred_at);
CREATE INDEX IF NOT EXISTS click_events_link_country_idx ON click_events (link_id, country);
CREATE INDEX IF NOT EXISTS click_events_link_device_idx ON click_events (link_id, device_type);
CREATE INDEX IF NOT EXISTS click_events_link_browser_idx ON click_events (link_id, browser);
`

const linkColumns = `id, owner_id, destination_url, final_url, short_code, COALESCE(custom_alias, ''),
	title, description, active, click_count, utm_enabled, utm_source, utm_medium, utm_campaign,
	utm_term, utm_content, qr_enabled, qr_asset_ref, created_at, updated_at`

// PostgresStore is a PostgreSQL implementation of shortener.Repository and analytics.Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies PostgresSchema.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}

	return nil
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) CodeTaken(ctx context.Context, code string, foldCase bool) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`
	if foldCase {
		query = `SELECT EXISTS (SELECT 1 FROM links WHERE lower(short_code) = lower($1))`
	}

	var taken bool
	if err := p.pool.QueryRow(ctx, query, code).Scan(&taken); err != nil {
		return false, err
	}

	return taken, nil
}

func (p *PostgresStore) Create(ctx context.Context, link *shortener.Link) error {
	query := `
		INSERT INTO links (id, owner_id, destination_url, final_url, short_code, custom_alias,
			title, description, active, click_count, utm_enabled, utm_source, utm_medium,
			utm_campaign, utm_term, utm_content, qr_enabled, qr_asset_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := p.pool.Exec(ctx, query,
		link.ID,
		link.OwnerID,
		link.DestinationURL,
		link.FinalURL,
		string(link.ShortCode),
		nullable(link.CustomAlias),
		link.Title,
		link.Description,
		link.Active,
		link.ClickCount,
		link.UTMEnabled,
		link.UTM.Source,
		link.UTM.Medium,
		link.UTM.Campaign,
		link.UTM.Term,
		link.UTM.Content,
		link.QREnabled,
		link.QRAssetRef,
		link.CreatedAt,
		link.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return shortener.ErrCodeConflict
		}

		return err
	}

	return nil
}

func (p *PostgresStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.Link, error) {
	return p.getOne(ctx, `SELECT `+linkColumns+` FROM links WHERE short_code = $1`, string(code))
}

func (p *PostgresStore) GetByID(ctx context.Context, id string) (*shortener.Link, error) {
	return p.getOne(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1`, id)
}

func (p *PostgresStore) getOne(ctx context.Context, query string, arg any) (*shortener.Link, error) {
	link, err := scanLink(p.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return link, nil
}

func (p *PostgresStore) UpdateUTM(
	ctx context.Context, id string, enabled bool, utm shortener.UTMParams, finalURL string,
) error {
	return p.exec(ctx, `
		UPDATE links SET utm_enabled = $2, utm_source = $3, utm_medium = $4, utm_campaign = $5,
			utm_term = $6, utm_content = $7, final_url = $8, updated_at = now()
		WHERE id = $1`,
		id, enabled, utm.Source, utm.Medium, utm.Campaign, utm.Term, utm.Content, finalURL,
	)
}

func (p *PostgresStore) UpdateQR(ctx context.Context, id string, enabled bool, assetRef string) error {
	return p.exec(ctx,
		`UPDATE links SET qr_enabled = $2, qr_asset_ref = $3, updated_at = now() WHERE id = $1`,
		id, enabled, assetRef,
	)
}

func (p *PostgresStore) SetQRAsset(ctx context.Context, id, assetRef string) error {
	return p.exec(ctx, `UPDATE links SET qr_asset_ref = $2, updated_at = now() WHERE id = $1`, id, assetRef)
}

func (p *PostgresStore) SetActive(ctx context.Context, id string, active bool) error {
	return p.exec(ctx, `UPDATE links SET active = $2, updated_at = now() WHERE id = $1`, id, active)
}

func (p *PostgresStore) IncrementClicks(ctx context.Context, id string) error {
	return p.exec(ctx, `UPDATE links SET click_count = click_count + 1 WHERE id = $1`, id)
}

func (p *PostgresStore) exec(ctx context.Context, query string, args ...any) error {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) ListMissingQR(ctx context.Context, limit int) ([]*shortener.Link, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE qr_enabled AND qr_asset_ref = ''
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*shortener.Link

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, rows.Err()
}

func (p *PostgresStore) AppendClick(ctx context.Context, event *analytics.ClickEvent) error {
	extra := event.Extra
	if extra == nil {
		extra = map[string]string{}
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO click_events (id, link_id, occurred_at, ip_address, user_agent, country, city,
			device_type, browser, os, referrer, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID,
		event.LinkID,
		event.Timestamp,
		event.IPAddress,
		event.UserAgent,
		event.Country,
		event.City,
		string(event.DeviceType),
		event.Browser,
		event.OS,
		event.Referrer,
		extra,
	)

	return err
}

func (p *PostgresStore) CountClicks(ctx context.Context, linkID string, since time.Time) (int64, error) {
	var count int64

	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM click_events WHERE link_id = $1 AND occurred_at >= $2`,
		linkID, since,
	).Scan(&count)

	return count, err
}

func (p *PostgresStore) ListClicks(ctx context.Context, linkID string, since time.Time) ([]*analytics.ClickEvent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, link_id, occurred_at, ip_address, user_agent, country, city, device_type,
			browser, os, referrer, extra
		FROM click_events
		WHERE link_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at, id`, linkID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*analytics.ClickEvent

	for rows.Next() {
		var (
			e      analytics.ClickEvent
			device string
		)

		if err := rows.Scan(
			&e.ID, &e.LinkID, &e.Timestamp, &e.IPAddress, &e.UserAgent, &e.Country, &e.City,
			&device, &e.Browser, &e.OS, &e.Referrer, &e.Extra,
		); err != nil {
			return nil, err
		}

		e.DeviceType = analytics.DeviceType(device)
		events = append(events, &e)
	}

	return events, rows.Err()
}

func (p *PostgresStore) GroupClicks(ctx context.Context, linkID string, dim analytics.Dimension) ([]analytics.Bucket, error) {
	column, err := dimensionColumn(dim)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS n
		FROM click_events
		WHERE link_id = $1 AND %[1]s <> '' AND lower(%[1]s) <> 'unknown'
		GROUP BY %[1]s
		ORDER BY n DESC, MIN(occurred_at), %[1]s`, column), linkID)
	if err != nil {
		return nil, err
	}

	buckets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.Bucket, error) {
		var b analytics.Bucket
		err := row.Scan(&b.Key, &b.Count)

		return b, err
	})
	if err != nil {
		return nil, err
	}

	return buckets, nil
}

func (p *PostgresStore) DailyClicks(ctx context.Context, linkID string, since time.Time) ([]analytics.DailyCount, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT to_char(occurred_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM click_events
		WHERE link_id = $1 AND occurred_at >= $2
		GROUP BY day
		ORDER BY day`, linkID, since)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.DailyCount, error) {
		var d analytics.DailyCount
		err := row.Scan(&d.Date, &d.Count)

		return d, err
	})
}

// dimensionColumn maps a breakdown dimension to its click_events column. Only these
// constants ever reach the query text.
func dimensionColumn(dim analytics.Dimension) (string, error) {
	switch dim {
	case analytics.DimensionCountry:
		return "country", nil
	case analytics.DimensionDevice:
		return "device_type", nil
	case analytics.DimensionBrowser:
		return "browser", nil
	default:
		return "", fmt.Errorf("unknown click dimension %q", dim)
	}
}

func scanLink(row pgx.Row) (*shortener.Link, error) {
	var (
		l    shortener.Link
		code string
	)

	err := row.Scan(
		&l.ID, &l.OwnerID, &l.DestinationURL, &l.FinalURL, &code, &l.CustomAlias,
		&l.Title, &l.Description, &l.Active, &l.ClickCount, &l.UTMEnabled,
		&l.UTM.Source, &l.UTM.Medium, &l.UTM.Campaign, &l.UTM.Term, &l.UTM.Content,
		&l.QREnabled, &l.QRAssetRef, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.ShortCode = shortener.Code(code)

	return &l, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

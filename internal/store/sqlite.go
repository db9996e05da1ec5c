package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // remote libsql/Turso driver
	_ "modernc.org/sqlite"                                // embedded driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS links (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL,
	destination_url TEXT NOT NULL,
	final_url       TEXT NOT NULL,
	short_code      TEXT NOT NULL UNIQUE,
	custom_alias    TEXT,
	title           TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	active          INTEGER NOT NULL DEFAULT 1,
	click_count     INTEGER NOT NULL DEFAULT 0 CHECK (click_count >= 0),
	utm_enabled     INTEGER NOT NULL DEFAULT 0,
	utm_source      TEXT NOT NULL DEFAULT '',
	utm_medium      TEXT NOT NULL DEFAULT '',
	utm_campaign    TEXT NOT NULL DEFAULT '',
	utm_term        TEXT NOT NULL DEFAULT '',
	utm_content     TEXT NOT NULL DEFAULT '',
	qr_enabled      INTEGER NOT NULL DEFAULT 0,
	qr_asset_ref    TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS links_custom_alias_lower_idx ON links (lower(custom_alias));

CREATE TABLE IF NOT EXISTS click_events (
	id          TEXT PRIMARY KEY,
	link_id     TEXT NOT NULL REFERENCES links(id) ON DELETE CASCADE,
	occurred_at INTEGER NOT NULL,
	ip_address  TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	country     TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	device_type TEXT NOT NULL DEFAULT 'Desktop',
	browser     TEXT NOT NULL DEFAULT '',
	os          TEXT NOT NULL DEFAULT '',
	referrer    TEXT NOT NULL DEFAULT '',
	extra       TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS click_events_link_time_idx ON click_events (link_id, occurred_at);
CREATE INDEX IF NOT EXISTS click_events_link_country_idx ON click_events (link_id, country);
CREATE INDEX IF NOT EXISTS click_events_link_device_idx ON click_events (link_id, device_type);
CREATE INDEX IF NOT EXISTS click_events_link_browser_idx ON click_events (link_id, browser);
`

const sqliteLinkColumns = `id, owner_id, destination_url, final_url, short_code, COALESCE(custom_alias, ''),
	title, description, active, click_count, utm_enabled, utm_source, utm_medium, utm_campaign,
	utm_term, utm_content, qr_enabled, qr_asset_ref, created_at, updated_at`

// SQLiteStore keeps links and clicks in SQLite, either an embedded file or a remote libsql database.
// Timestamps are stored as Unix nanoseconds so both drivers read them back identically.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dsn, picking the libsql driver for libsql:// and wss:// URLs, and
// applies the schema.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	driver := "sqlite"
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") {
		driver = "libsql"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// One writer avoids SQLITE_BUSY under concurrent increments.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	for _, stmt := range []string{"PRAGMA foreign_keys = ON", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Shutdown closes the database.
func (s *SQLiteStore) Shutdown() error {
	return s.db.Close()
}

func (s *SQLiteStore) CodeTaken(ctx context.Context, code string, foldCase bool) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = ?)`
	if foldCase {
		query = `SELECT EXISTS (SELECT 1 FROM links WHERE lower(short_code) = lower(?))`
	}

	var taken bool
	if err := s.db.QueryRowContext(ctx, query, code).Scan(&taken); err != nil {
		return false, err
	}

	return taken, nil
}

func (s *SQLiteStore) Create(ctx context.Context, link *shortener.Link) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (id, owner_id, destination_url, final_url, short_code, custom_alias,
			title, description, active, click_count, utm_enabled, utm_source, utm_medium,
			utm_campaign, utm_term, utm_content, qr_enabled, qr_asset_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
		link.CreatedAt.UnixNano(),
		link.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return shortener.ErrCodeConflict
		}

		return err
	}

	return nil
}

func (s *SQLiteStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.Link, error) {
	return s.getOne(ctx, `SELECT `+sqliteLinkColumns+` FROM links WHERE short_code = ?`, string(code))
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*shortener.Link, error) {
	return s.getOne(ctx, `SELECT `+sqliteLinkColumns+` FROM links WHERE id = ?`, id)
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, arg any) (*shortener.Link, error) {
	link, err := scanSQLiteLink(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return link, nil
}

func (s *SQLiteStore) UpdateUTM(
	ctx context.Context, id string, enabled bool, utm shortener.UTMParams, finalURL string,
) error {
	return s.exec(ctx, `
		UPDATE links SET utm_enabled = ?, utm_source = ?, utm_medium = ?, utm_campaign = ?,
			utm_term = ?, utm_content = ?, final_url = ?, updated_at = ?
		WHERE id = ?`,
		enabled, utm.Source, utm.Medium, utm.Campaign, utm.Term, utm.Content, finalURL,
		time.Now().UnixNano(), id,
	)
}

func (s *SQLiteStore) UpdateQR(ctx context.Context, id string, enabled bool, assetRef string) error {
	return s.exec(ctx, `UPDATE links SET qr_enabled = ?, qr_asset_ref = ?, updated_at = ? WHERE id = ?`,
		enabled, assetRef, time.Now().UnixNano(), id)
}

func (s *SQLiteStore) SetQRAsset(ctx context.Context, id, assetRef string) error {
	return s.exec(ctx, `UPDATE links SET qr_asset_ref = ?, updated_at = ? WHERE id = ?`,
		assetRef, time.Now().UnixNano(), id)
}

func (s *SQLiteStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.exec(ctx, `UPDATE links SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UnixNano(), id)
}

func (s *SQLiteStore) IncrementClicks(ctx context.Context, id string) error {
	return s.exec(ctx, `UPDATE links SET click_count = click_count + 1 WHERE id = ?`, id)
}

func (s *SQLiteStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) ListMissingQR(ctx context.Context, limit int) ([]*shortener.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteLinkColumns+` FROM links
		WHERE qr_enabled = 1 AND qr_asset_ref = ''
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*shortener.Link

	for rows.Next() {
		link, err := scanSQLiteLink(rows)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, rows.Err()
}

func (s *SQLiteStore) AppendClick(ctx context.Context, event *analytics.ClickEvent) error {
	extra := event.Extra
	if extra == nil {
		extra = map[string]string{}
	}

	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO click_events (id, link_id, occurred_at, ip_address, user_agent, country, city,
			device_type, browser, os, referrer, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.LinkID,
		event.Timestamp.UnixNano(),
		event.IPAddress,
		event.UserAgent,
		event.Country,
		event.City,
		string(event.DeviceType),
		event.Browser,
		event.OS,
		event.Referrer,
		string(extraJSON),
	)

	return err
}

func (s *SQLiteStore) CountClicks(ctx context.Context, linkID string, since time.Time) (int64, error) {
	var count int64

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM click_events WHERE link_id = ? AND occurred_at >= ?`,
		linkID, sinceNanos(since),
	).Scan(&count)

	return count, err
}

func (s *SQLiteStore) ListClicks(ctx context.Context, linkID string, since time.Time) ([]*analytics.ClickEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, link_id, occurred_at, ip_address, user_agent, country, city, device_type,
			browser, os, referrer, extra
		FROM click_events
		WHERE link_id = ? AND occurred_at >= ?
		ORDER BY occurred_at, id`, linkID, sinceNanos(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*analytics.ClickEvent

	for rows.Next() {
		var (
			e         analytics.ClickEvent
			occurred  int64
			device    string
			extraJSON string
		)

		if err := rows.Scan(
			&e.ID, &e.LinkID, &occurred, &e.IPAddress, &e.UserAgent, &e.Country, &e.City,
			&device, &e.Browser, &e.OS, &e.Referrer, &extraJSON,
		); err != nil {
			return nil, err
		}

		e.Timestamp = time.Unix(0, occurred).UTC()
		e.DeviceType = analytics.DeviceType(device)
		_ = json.Unmarshal([]byte(extraJSON), &e.Extra)

		events = append(events, &e)
	}

	return events, rows.Err()
}

func sinceNanos(since time.Time) int64 {
	if since.IsZero() {
		return 0
	}

	return since.UnixNano()
}

func scanSQLiteLink(row interface{ Scan(dest ...any) error }) (*shortener.Link, error) {
	var (
		l       shortener.Link
		code    string
		created int64
		updated int64
	)

	err := row.Scan(
		&l.ID, &l.OwnerID, &l.DestinationURL, &l.FinalURL, &code, &l.CustomAlias,
		&l.Title, &l.Description, &l.Active, &l.ClickCount, &l.UTMEnabled,
		&l.UTM.Source, &l.UTM.Medium, &l.UTM.Campaign, &l.UTM.Term, &l.UTM.Content,
		&l.QREnabled, &l.QRAssetRef, &created, &updated,
	)
	if err != nil {
		return nil, err
	}

	l.ShortCode = shortener.Code(code)
	l.CreatedAt = time.Unix(0, created).UTC()
	l.UpdatedAt = time.Unix(0, updated).UTC()

	return &l, nil
}

func (s *SQLiteStore) GroupClicks(ctx context.Context, linkID string, dim analytics.Dimension) ([]analytics.Bucket, error) {
	column, err := dimensionColumn(dim)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS n
		FROM click_events
		WHERE link_id = ? AND %[1]s <> '' AND lower(%[1]s) <> 'unknown'
		GROUP BY %[1]s
		ORDER BY n DESC, MIN(occurred_at), %[1]s`, column), linkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := make([]analytics.Bucket, 0)

	for rows.Next() {
		var b analytics.Bucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, err
		}

		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}

func (s *SQLiteStore) DailyClicks(ctx context.Context, linkID string, since time.Time) ([]analytics.DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', occurred_at / 1000000000, 'unixepoch') AS day, COUNT(*)
		FROM click_events
		WHERE link_id = ? AND occurred_at >= ?
		GROUP BY day
		ORDER BY day`, linkID, sinceNanos(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []analytics.DailyCount

	for rows.Next() {
		var d analytics.DailyCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, err
		}

		days = append(days, d)
	}

	return days, rows.Err()
}

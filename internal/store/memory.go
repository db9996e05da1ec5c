package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
)

// MemoryStore keeps links and click events in process memory.
// It implements both shortener.Repository and analytics.Store.
type MemoryStore struct {
	mu      sync.RWMutex
	links   map[string]*shortener.Link // id -> link
	codes   map[shortener.Code]string  // code -> id
	folded  map[string]string          // lower(code) -> id
	clicks  map[string][]*analytics.ClickEvent
	nowFunc func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:   make(map[string]*shortener.Link),
		codes:   make(map[shortener.Code]string),
		folded:  make(map[string]string),
		clicks:  make(map[string][]*analytics.ClickEvent),
		nowFunc: time.Now,
	}
}

func (m *MemoryStore) CodeTaken(_ context.Context, code string, foldCase bool) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if foldCase {
		_, ok := m.folded[strings.ToLower(code)]

		return ok, nil
	}

	_, ok := m.codes[shortener.Code(code)]

	return ok, nil
}

func (m *MemoryStore) Create(_ context.Context, link *shortener.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.codes[link.ShortCode]; ok {
		return shortener.ErrCodeConflict
	}

	// Custom aliases are unique regardless of case.
	folded := strings.ToLower(string(link.ShortCode))
	if _, ok := m.folded[folded]; ok && link.CustomAlias != "" {
		return shortener.ErrCodeConflict
	}

	stored := *link
	m.links[link.ID] = &stored
	m.codes[link.ShortCode] = link.ID
	m.folded[folded] = link.ID

	return nil
}

func (m *MemoryStore) GetByCode(_ context.Context, code shortener.Code) (*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.codes[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	link := *m.links[id]

	return &link, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.links[id]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	link := *stored

	return &link, nil
}

func (m *MemoryStore) UpdateUTM(_ context.Context, id string, enabled bool, utm shortener.UTMParams, finalURL string) error {
	return m.update(id, func(l *shortener.Link) {
		l.UTMEnabled = enabled
		l.UTM = utm
		l.FinalURL = finalURL
	})
}

func (m *MemoryStore) UpdateQR(_ context.Context, id string, enabled bool, assetRef string) error {
	return m.update(id, func(l *shortener.Link) {
		l.QREnabled = enabled
		l.QRAssetRef = assetRef
	})
}

func (m *MemoryStore) SetQRAsset(_ context.Context, id, assetRef string) error {
	return m.update(id, func(l *shortener.Link) {
		l.QRAssetRef = assetRef
	})
}

func (m *MemoryStore) SetActive(_ context.Context, id string, active bool) error {
	return m.update(id, func(l *shortener.Link) {
		l.Active = active
	})
}

func (m *MemoryStore) IncrementClicks(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[id]
	if !ok {
		return shortener.ErrNotFound
	}

	link.ClickCount++

	return nil
}

func (m *MemoryStore) ListMissingQR(_ context.Context, limit int) ([]*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*shortener.Link

	for _, stored := range m.links {
		if stored.QREnabled && stored.QRAssetRef == "" {
			link := *stored
			out = append(out, &link)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (m *MemoryStore) update(id string, apply func(*shortener.Link)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[id]
	if !ok {
		return shortener.ErrNotFound
	}

	apply(link)
	link.UpdatedAt = m.nowFunc().UTC()

	return nil
}

func (m *MemoryStore) AppendClick(_ context.Context, event *analytics.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[event.LinkID]; !ok {
		return shortener.ErrNotFound
	}

	stored := *event
	m.clicks[event.LinkID] = append(m.clicks[event.LinkID], &stored)

	return nil
}

func (m *MemoryStore) CountClicks(ctx context.Context, linkID string, since time.Time) (int64, error) {
	events, err := m.ListClicks(ctx, linkID, since)
	if err != nil {
		return 0, err
	}

	return int64(len(events)), nil
}

func (m *MemoryStore) ListClicks(_ context.Context, linkID string, since time.Time) ([]*analytics.ClickEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*analytics.ClickEvent

	for _, event := range m.clicks[linkID] {
		if event.Timestamp.Before(since) {
			continue
		}

		cp := *event
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	return out, nil
}

func (m *MemoryStore) GroupClicks(ctx context.Context, linkID string, dim analytics.Dimension) ([]analytics.Bucket, error) {
	events, err := m.ListClicks(ctx, linkID, time.Time{})
	if err != nil {
		return nil, err
	}

	return analytics.Breakdown(events, dim.Value), nil
}

func (m *MemoryStore) DailyClicks(ctx context.Context, linkID string, since time.Time) ([]analytics.DailyCount, error) {
	events, err := m.ListClicks(ctx, linkID, since)
	if err != nil {
		return nil, err
	}

	return analytics.DailyCounts(events), nil
}

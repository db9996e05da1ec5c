package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLink(id, code, alias string) *shortener.Link {
	now := time.Now().UTC()

	return &shortener.Link{
		ID:             id,
		OwnerID:        "owner-1",
		DestinationURL: "https://example.com",
		FinalURL:       "https://example.com",
		ShortCode:      shortener.Code(code),
		CustomAlias:    alias,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestMemoryStore_Create(t *testing.T) {
	t.Run("stores a copy of the link", func(t *testing.T) {
		s := store.NewMemoryStore()
		link := newLink("id-1", "abc123", "")

		require.NoError(t, s.Create(context.Background(), link))

		link.Title = "mutated after create"

		got, err := s.GetByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
		assert.Empty(t, got.Title)
	})

	t.Run("rejects a duplicate code", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.Create(context.Background(), newLink("id-1", "abc123", "")))

		err := s.Create(context.Background(), newLink("id-2", "abc123", ""))

		assert.ErrorIs(t, err, shortener.ErrCodeConflict)
	})

	t.Run("rejects an alias differing only in case", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.Create(context.Background(), newLink("id-1", "promo", "promo")))

		err := s.Create(context.Background(), newLink("id-2", "PROMO", "PROMO"))

		assert.ErrorIs(t, err, shortener.ErrCodeConflict)
	})

	t.Run("concurrent creates of one alias have a single winner", func(t *testing.T) {
		s := store.NewMemoryStore()

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)

		for i := range 20 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				link := newLink("id-"+string(rune('a'+i)), "launch", "launch")
				if err := s.Create(context.Background(), link); err == nil {
					mu.Lock()
					success++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, success)
	})
}

func TestMemoryStore_CodeTaken(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Create(context.Background(), newLink("id-1", "AbC123", "")))

	taken, err := s.CodeTaken(context.Background(), "AbC123", false)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.CodeTaken(context.Background(), "abc123", false)
	require.NoError(t, err)
	assert.False(t, taken, "exact lookup is case-sensitive")

	taken, err = s.CodeTaken(context.Background(), "abc123", true)
	require.NoError(t, err)
	assert.True(t, taken, "folded lookup ignores case")
}

func TestMemoryStore_Lookups(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Create(context.Background(), newLink("id-1", "abc123", "")))

	t.Run("get by id", func(t *testing.T) {
		got, err := s.GetByID(context.Background(), "id-1")

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("abc123"), got.ShortCode)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := s.GetByCode(context.Background(), "nope")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := s.GetByID(context.Background(), "nope")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestMemoryStore_Updates(t *testing.T) {
	ctx := context.Background()

	t.Run("utm update replaces final url", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.Create(ctx, newLink("id-1", "abc123", "")))

		utm := shortener.UTMParams{Source: "newsletter"}
		require.NoError(t, s.UpdateUTM(ctx, "id-1", true, utm, "https://example.com?utm_source=newsletter"))

		got, _ := s.GetByID(ctx, "id-1")
		assert.True(t, got.UTMEnabled)
		assert.Equal(t, utm, got.UTM)
		assert.Equal(t, "https://example.com?utm_source=newsletter", got.FinalURL)
	})

	t.Run("qr and active flags", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.Create(ctx, newLink("id-1", "abc123", "")))

		require.NoError(t, s.UpdateQR(ctx, "id-1", true, ""))
		require.NoError(t, s.SetQRAsset(ctx, "id-1", "qr/abc123.png"))
		require.NoError(t, s.SetActive(ctx, "id-1", false))

		got, _ := s.GetByID(ctx, "id-1")
		assert.True(t, got.QREnabled)
		assert.Equal(t, "qr/abc123.png", got.QRAssetRef)
		assert.False(t, got.Active)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		s := store.NewMemoryStore()

		assert.ErrorIs(t, s.SetActive(ctx, "nope", true), shortener.ErrNotFound)
		assert.ErrorIs(t, s.IncrementClicks(ctx, "nope"), shortener.ErrNotFound)
	})
}

func TestMemoryStore_IncrementClicks(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newLink("id-1", "abc123", "")))

	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = s.IncrementClicks(ctx, "id-1")
		}()
	}

	wg.Wait()

	got, err := s.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.ClickCount)
}

func TestMemoryStore_ListMissingQR(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	pending := newLink("id-1", "aaa111", "")
	pending.QREnabled = true
	done := newLink("id-2", "bbb222", "")
	done.QREnabled = true
	done.QRAssetRef = "qr/bbb222.png"
	off := newLink("id-3", "ccc333", "")

	for _, l := range []*shortener.Link{pending, done, off} {
		require.NoError(t, s.Create(ctx, l))
	}

	links, err := s.ListMissingQR(ctx, 10)

	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "id-1", links[0].ID)
}

func TestMemoryStore_Clicks(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	s := store.NewMemoryStore()
	require.NoError(t, s.Create(ctx, newLink("id-1", "abc123", "")))

	// Appended out of order on purpose.
	for i, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		require.NoError(t, s.AppendClick(ctx, &analytics.ClickEvent{
			ID:        string(rune('a' + i)),
			LinkID:    "id-1",
			Timestamp: base.Add(offset),
		}))
	}

	t.Run("lists in timestamp order", func(t *testing.T) {
		events, err := s.ListClicks(ctx, "id-1", time.Time{})

		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, base, events[0].Timestamp)
		assert.Equal(t, base.Add(2*time.Hour), events[2].Timestamp)
	})

	t.Run("counts from a lower bound", func(t *testing.T) {
		count, err := s.CountClicks(ctx, "id-1", base.Add(time.Hour))

		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("rejects clicks for unknown links", func(t *testing.T) {
		err := s.AppendClick(ctx, &analytics.ClickEvent{ID: "x", LinkID: "nope", Timestamp: base})

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestMemoryStore_ClickAggregates(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Create(context.Background(), newLink("id-1", "abc123", "")))

	assertClickAggregates(t, s, "id-1")
}

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// RedisCacheRepository decorates a Repository with a read-through cache for GetByCode,
// the redirect hot path. Every mutation drops the cached entry; click increments do not,
// so cached click counts may lag by up to the TTL.
type RedisCacheRepository struct {
	shortener.Repository

	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCacheRepository(
	repo shortener.Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		Repository: repo,
		client:     client,
		prefix:     "link:",
		ttl:        ttl,
		logger:     logger,
	}
}

// GetByCode checks the cache first and populates it on a miss.
func (r *RedisCacheRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.Link, error) {
	if link, ok := r.getFromCache(ctx, code); ok {
		return link, nil
	}

	link, err := r.Repository.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheLink(ctx, link)

	return link, nil
}

func (r *RedisCacheRepository) UpdateUTM(
	ctx context.Context, id string, enabled bool, utm shortener.UTMParams, finalURL string,
) error {
	return r.invalidateAfter(ctx, id, r.Repository.UpdateUTM(ctx, id, enabled, utm, finalURL))
}

func (r *RedisCacheRepository) UpdateQR(ctx context.Context, id string, enabled bool, assetRef string) error {
	return r.invalidateAfter(ctx, id, r.Repository.UpdateQR(ctx, id, enabled, assetRef))
}

func (r *RedisCacheRepository) SetQRAsset(ctx context.Context, id, assetRef string) error {
	return r.invalidateAfter(ctx, id, r.Repository.SetQRAsset(ctx, id, assetRef))
}

func (r *RedisCacheRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.invalidateAfter(ctx, id, r.Repository.SetActive(ctx, id, active))
}

func (r *RedisCacheRepository) invalidateAfter(ctx context.Context, id string, err error) error {
	if err != nil {
		return err
	}

	link, err := r.Repository.GetByID(ctx, id)
	if err != nil {
		return nil
	}

	if err := r.client.Del(ctx, r.prefix+string(link.ShortCode)).Err(); err != nil {
		r.logger.Warn("failed to invalidate cached link",
			zap.String("code", string(link.ShortCode)),
			zap.Error(err),
		)
	}

	return nil
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, code shortener.Code) (*shortener.Link, bool) {
	raw, err := r.client.Get(ctx, r.prefix+string(code)).Bytes()
	if err != nil {
		return nil, false
	}

	var link shortener.Link
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, false
	}

	return &link, true
}

func (r *RedisCacheRepository) cacheLink(ctx context.Context, link *shortener.Link) {
	payload, err := json.Marshal(link)
	if err != nil {
		return
	}

	if err := r.client.Set(ctx, r.prefix+string(link.ShortCode), payload, r.ttl).Err(); err != nil {
		r.logger.Debug("failed to cache link", zap.String("code", string(link.ShortCode)), zap.Error(err))
	}
}

var _ shortener.Repository = (*RedisCacheRepository)(nil)

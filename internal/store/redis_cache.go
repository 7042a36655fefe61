package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// RedisCacheRepository wraps a Repository with a Redis read-through cache for
// unexpired lookups, the redirect hot path. Every other call goes to the store.
type RedisCacheRepository struct {
	shortener.Repository

	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		Repository: store,
		client:     client,
		prefix:     "link:",
		ttl:        ttl,
		logger:     logger,
	}
}

// Insert stores a link in the underlying store and updates the cache.
func (r *RedisCacheRepository) Insert(ctx context.Context, link *shortener.Link) error {
	if err := r.Repository.Insert(ctx, link); err != nil {
		return err
	}

	r.cacheLink(ctx, link, time.Now())

	return nil
}

// FindUnexpired checks the cache first. Cached entries are re-checked against now,
// so a link never outlives its expiry through the cache.
func (r *RedisCacheRepository) FindUnexpired(
	ctx context.Context, token shortener.Token, now time.Time,
) (*shortener.Link, error) {
	if link, ok := r.getFromCache(ctx, token); ok {
		if link.ExpiredAt(now) {
			return nil, shortener.ErrNotFound
		}

		return link, nil
	}

	link, err := r.Repository.FindUnexpired(ctx, token, now)
	if err != nil {
		return nil, err
	}

	r.cacheLink(ctx, link, now)

	return link, nil
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, token shortener.Token) (*shortener.Link, bool) {
	result, err := r.client.HGetAll(ctx, r.key(token)).Result()
	if err != nil {
		r.logger.Warn("link cache read failed", zap.String("token", string(token)), zap.Error(err))

		return nil, false
	}

	if len(result) == 0 {
		return nil, false
	}

	link := &shortener.Link{
		Token:          shortener.Token(result["token"]),
		DestinationURL: result["destination_url"],
		Owner: shortener.Owner{
			Kind: result["owner_kind"],
			ID:   result["owner_id"],
		},
	}

	link.ID, _ = strconv.ParseInt(result["id"], 10, 64)
	link.UseCount, _ = strconv.ParseInt(result["use_count"], 10, 64)

	if nanos, err := strconv.ParseInt(result["created_at"], 10, 64); err == nil {
		link.CreatedAt = time.Unix(0, nanos)
	}

	if ts, ok := result["expires_at"]; ok && ts != "" {
		nanos, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return nil, false
		}

		expiresAt := time.Unix(0, nanos)
		link.ExpiresAt = &expiresAt
	}

	return link, true
}

// cacheLink writes the link with a TTL that never extends past its expiry.
func (r *RedisCacheRepository) cacheLink(ctx context.Context, link *shortener.Link, now time.Time) {
	ttl := r.ttl

	if link.ExpiresAt != nil {
		remaining := link.ExpiresAt.Sub(now)
		if remaining <= 0 {
			return
		}

		if ttl <= 0 || remaining < ttl {
			ttl = remaining
		}
	}

	fields := map[string]any{
		"id":              link.ID,
		"token":           string(link.Token),
		"destination_url": link.DestinationURL,
		"owner_kind":      link.Owner.Kind,
		"owner_id":        link.Owner.ID,
		"use_count":       link.UseCount,
		"created_at":      link.CreatedAt.UnixNano(),
		"expires_at":      "",
	}

	if link.ExpiresAt != nil {
		fields["expires_at"] = link.ExpiresAt.UnixNano()
	}

	key := r.key(link.Token)
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, fields)

	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("link cache write failed", zap.String("token", string(link.Token)), zap.Error(err))
	}
}

func (r *RedisCacheRepository) key(token shortener.Token) string {
	return r.prefix + string(token)
}

// Shutdown is a no-op for RedisCacheRepository (client managed externally).
func (r *RedisCacheRepository) Shutdown() error {
	return nil
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)

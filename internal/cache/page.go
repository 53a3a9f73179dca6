// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"probitcms/internal/metrics"
)

const (
	pageKeyPrefix  = "page:"
	DefaultPageTTL = 5 * time.Minute
	scanBatch      = 100
)

// PageCache stores rendered public HTML in Valkey. Every failure is logged
// and treated as a miss; the cache never fails a request.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a page cache. ttl <= 0 uses DefaultPageTTL.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Get returns the cached HTML for key.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := pc.client.Get(ctx, pageKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.PageCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.PageCache.WithLabelValues("error").Inc()
		slog.Warn("page cache get error", "key", key, "error", err)
		return nil, false
	}
	metrics.PageCache.WithLabelValues("hit").Inc()
	return val, true
}

// Set stores html under key.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	if err := pc.client.Set(ctx, pageKeyPrefix+key, html, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set error", "key", key, "error", err)
	}
}

// Invalidate removes one cached page.
func (pc *PageCache) Invalidate(ctx context.Context, key string) {
	if err := pc.client.Del(ctx, pageKeyPrefix+key).Err(); err != nil {
		slog.Warn("page cache invalidate error", "key", key, "error", err)
	}
}

// InvalidateAll drops every cached page. Listings, sidebars and comment
// counts span many pages, so any content change clears the lot.
func (pc *PageCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := pc.client.Scan(ctx, cursor, pageKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			slog.Warn("page cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("page cache bulk delete error", "error", err)
				return
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("page cache cleared", "deleted", deleted)
	}
}

// ListKey is the cache key of a blog listing page.
func ListKey(category, search string, page int) string {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("q", search)
	}
	q.Set("page", strconv.Itoa(page))
	return "blog?" + q.Encode()
}

// PostKey is the cache key of a post detail page.
func PostKey(slug string) string {
	return "blog/" + slug
}

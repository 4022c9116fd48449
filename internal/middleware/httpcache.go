package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	httpCacheKeyPrefix  = "moto-api-cache:"
	defaultHTTPCacheTTL = 15 * time.Second
	defaultCacheMaxBody = 1 << 20
	cacheHeader         = "x-moto-cache"
)

// HTTPCacheOptions tunes the shared-response cache. SkipPaths are matched as
// prefixes against the request path.
type HTTPCacheOptions struct {
	TTL          time.Duration
	SkipPaths    []string
	MaxBodyBytes int
}

// cachedResponse is the Redis payload. Body round-trips as base64 via the
// standard []byte JSON encoding.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// HTTPCache serves anonymous GET responses from Redis for a short TTL. The
// listing endpoints absorb most of the read traffic and their payloads are
// identical for every logged-out client, so a few seconds of caching is
// safe. Authenticated requests always pass through and are marked private.
func HTTPCache(rdb *redis.Client, opts HTTPCacheOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = defaultHTTPCacheTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultCacheMaxBody
	}

	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		if skipCachePath(c.Request.URL.Path, opts.SkipPaths) || hasCacheBuster(c) {
			c.Next()
			return
		}
		if IsAuthenticated(c) {
			c.Next()
			if c.Writer.Status() == http.StatusOK {
				c.Writer.Header().Set("Cache-Control", "private, no-store")
			}
			return
		}

		key := httpCacheKeyPrefix + c.Request.URL.RequestURI()
		if entry, ok := loadCached(c.Request.Context(), rdb, key); ok {
			c.Writer.Header().Set(cacheHeader, "hit")
			c.Data(entry.Status, entry.ContentType, entry.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer, limit: opts.MaxBodyBytes}
		c.Writer = rec
		c.Next()

		if !cacheable(c.Writer.Status(), c.Writer.Header()) {
			return
		}
		c.Writer.Header().Set(cacheHeader, "miss")
		if rec.overflow || len(rec.body) == 0 {
			return
		}

		raw, err := json.Marshal(cachedResponse{
			Status:      c.Writer.Status(),
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        rec.body,
		})
		if err != nil {
			return
		}
		_ = rdb.Set(c.Request.Context(), key, raw, opts.TTL).Err()
	}
}

// bodyRecorder tees the response body up to a size limit. Oversized bodies
// set overflow and are never cached.
type bodyRecorder struct {
	gin.ResponseWriter
	body     []byte
	limit    int
	overflow bool
}

func (w *bodyRecorder) Write(data []byte) (int, error) {
	w.record(data)
	return w.ResponseWriter.Write(data)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.record([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *bodyRecorder) record(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	if len(w.body)+len(data) > w.limit {
		w.overflow = true
		return
	}
	w.body = append(w.body, data...)
}

func loadCached(ctx context.Context, rdb *redis.Client, key string) (cachedResponse, bool) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return cachedResponse{}, false
	}
	var entry cachedResponse
	if err := json.Unmarshal(raw, &entry); err != nil || len(entry.Body) == 0 {
		return cachedResponse{}, false
	}
	if entry.Status <= 0 {
		entry.Status = http.StatusOK
	}
	if entry.ContentType == "" {
		entry.ContentType = "application/json; charset=utf-8"
	}
	return entry, true
}

func skipCachePath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// hasCacheBuster detects the timestamp params clients append to force a
// fresh read.
func hasCacheBuster(c *gin.Context) bool {
	query := c.Request.URL.Query()
	for _, key := range []string{"ts", "timestamp", "_t", "t"} {
		if query.Get(key) != "" {
			return true
		}
	}
	return false
}

func cacheable(status int, headers http.Header) bool {
	if status != http.StatusOK {
		return false
	}
	cc := strings.ToLower(headers.Get("Cache-Control"))
	return !strings.Contains(cc, "no-cache") &&
		!strings.Contains(cc, "no-store") &&
		!strings.Contains(cc, "private")
}

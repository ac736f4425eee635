// Package middleware provides the Redis-backed HTTP middleware: a
// response cache for read-only endpoints and a token-bucket rate
// limiter. Both degrade to pass-through when Redis is unavailable.
package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travel-seat-reservation/internal/config"
)

// cachedResponse is the JSON envelope stored in Redis per cache entry.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter tees the response body into a buffer, up to limit
// bytes, while forwarding to the client.  Oversized responses are
// forwarded but not cached.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	size     int
	limit    int
	overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.size += len(b)
	if cw.size > cw.limit {
		cw.overflow = true
	} else {
		cw.buf.Write(b)
	}
	return cw.ResponseWriter.Write(b)
}

// cacheKey derives a stable key from the route pattern and raw query.
// Hashing keeps keys short regardless of query length.
func cacheKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// ResponseCache caches successful responses of the configured methods
// in Redis for cfg.TTL.  Cached occupancy snapshots are advisory only:
// the commit-time conflict check always reads the store directly, so a
// stale cache can never cause a double booking.  With a nil client or
// caching disabled the middleware is a no-op.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg.Prefix, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(raw, &cached) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(cached.Status, cached.ContentType, cached.Body)
				}
			}

			cw := &captureWriter{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          cfg.MaxBodyBytes,
			}
			c.Response().Header().Set("X-Cache", "MISS")
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}

			// Only cache complete 2xx responses.
			if cw.overflow || cw.status < 200 || cw.status >= 300 {
				return nil
			}
			raw, err := json.Marshal(cachedResponse{
				Status:      cw.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        cw.buf.Bytes(),
			})
			if err == nil {
				rdb.Set(ctx, key, raw, ttlJitter(cfg.TTL))
			}
			return nil
		}
	}
}

// ttlJitter spreads expirations a little so a burst of identical
// requests does not refill the cache in lockstep.
func ttlJitter(base time.Duration) time.Duration {
	return base + time.Duration(time.Now().UnixNano()%int64(base/10+1))
}

package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avierra/space-reservation/internal/config"
)

// NewRedisCache caches successful responses for the configured methods in
// Redis. Requests carrying an Authorization header are never cached: the
// reservation endpoints scope their output to the caller, so a shared cache
// entry would leak one user's data to another. That leaves the public space
// catalogue, which is exactly the traffic worth caching.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[strings.ToUpper(req.Method)] || req.Header.Get("Authorization") != "" {
				return next(c)
			}

			key := cacheKey(cfg, c)
			if entry, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
				if status, hdr, body, ok := decodeEntry(entry); ok {
					return serveCached(c, status, hdr, body)
				}
			}

			rec := &responseRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			// Only 200s are worth replaying; errors and redirects stay live.
			if rec.status == http.StatusOK && !rec.overflowed {
				if entry, err := encodeEntry(rec.status, c.Response().Header(), rec.body.Bytes()); err == nil {
					_ = rdb.SetEx(context.Background(), key, entry, ttl).Err()
				}
			}
			return nil
		}
	}
}

func serveCached(c echo.Context, status int, hdr http.Header, body []byte) error {
	out := c.Response().Header()
	for k, vals := range hdr {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		for _, v := range vals {
			out.Add(k, v)
		}
	}
	out.Set("X-Cache", "HIT")
	c.Response().WriteHeader(status)
	_, err := c.Response().Write(body)
	return err
}

// responseRecorder tees the response body up to a size limit while writing
// through to the client. Oversized bodies mark the recorder overflowed and
// are not cached.
type responseRecorder struct {
	http.ResponseWriter
	status     int
	body       bytes.Buffer
	written    int64
	limit      int64
	overflowed bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.written += int64(len(b))
	if r.limit > 0 && r.written > r.limit {
		r.overflowed = true
	} else {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	req := c.Request()
	var tail string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		tail = c.Path()
	case "method_route":
		tail = req.Method + ":" + c.Path()
	case "method_route_query":
		tail = req.Method + ":" + c.Path() + "?" + req.URL.RawQuery
	default: // route_query
		tail = c.Path() + "?" + req.URL.RawQuery
	}
	sum := sha256.Sum256([]byte(tail))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:16])
}

// Cached entries pack [status u32][header-json length u32][header json][body].
func encodeEntry(status int, hdr http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodeEntry(entry []byte) (status int, hdr http.Header, body []byte, ok bool) {
	if len(entry) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(entry[0:4]))
	hlen := int(binary.BigEndian.Uint32(entry[4:8]))
	if hlen < 0 || 8+hlen > len(entry) {
		return 0, nil, nil, false
	}
	hdr = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(entry[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, entry[8+hlen:], true
}

package bcycle

import (
	"context"
	"net/http"
	"time"
)

// CachedResponse is a response as it is stored in a [Cache].
type CachedResponse struct {
	Code        int       `json:"code"`
	ContentType string    `json:"content_type,omitempty"`
	Payload     []byte    `json:"payload"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Cache stores responses for routes with server caching enabled.
type Cache interface {
	// Get returns the cached response for key, or nil if there is none.
	Get(ctx context.Context, key string) (*CachedResponse, error)
	// Set stores a response for at most ttl.
	Set(ctx context.Context, key string, res *CachedResponse, ttl time.Duration) error
	// Drop removes the response for key.
	Drop(ctx context.Context, key string) error
}

// CacheKey returns the key that responses for r are cached under.
func CacheKey(r *Request) string {
	return r.URL.RequestURI()
}

// Cached returns middleware that serves the route's handler from the route's cache. Only
// successful, non-streaming responses with a ttl are stored. Cache failures are logged and
// the handler is called as if the cache missed.
func Cached(rt *Route) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, r *Request) error {
			key := CacheKey(r)

			item, err := rt.Cache.Get(ctx, key)
			if err != nil {
				r.Log([]string{"bcycle", "cache", "get"}, err)
				r.engine.logs.LogCacheError(err)
			}

			if item != nil {
				if remaining := time.Until(item.ExpiresAt); remaining > 0 {
					r.Log([]string{"bcycle", "cache", "hit"}, key)

					res := r.Reply(item.Payload).SetCode(item.Code).SetTTL(remaining)
					if item.ContentType != "" {
						res.SetType(item.ContentType)
					}
					return nil
				}
			}

			r.Log([]string{"bcycle", "cache", "miss"}, key)
			if err := next.ServeCycle(ctx, r); err != nil {
				return err
			}

			res := r.Response()
			if res == nil || res.StatusCode() != http.StatusOK ||
				(res.Variety() != VarietyPlain && res.Variety() != VarietyJSON) {
				return nil
			}

			ttl := res.TTL()
			if ttl <= 0 {
				ttl = rt.Settings.Cache.ExpiresIn
			}

			if ttl <= 0 {
				return nil
			}

			res.SetTTL(ttl)
			if err := rt.Cache.Set(ctx, key, &CachedResponse{
				Code:        res.StatusCode(),
				ContentType: res.ContentType(),
				Payload:     res.Payload(),
				ExpiresAt:   time.Now().Add(ttl),
			}, ttl); err != nil {
				r.Log([]string{"bcycle", "cache", "set"}, err)
				r.engine.logs.LogCacheError(err)
			}

			return nil
		})
	}
}

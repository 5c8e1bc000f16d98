package engine

import (
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// renderCache keeps rendered SVG per view and state version. Any change to
// what a view shows purges it.
type renderCache struct {
	c *ttlcache.Cache[string, []byte]
}

func newRenderCache(ttl time.Duration) *renderCache {
	return &renderCache{c: ttlcache.New[string, []byte](ttlcache.WithTTL[string, []byte](ttl))}
}

func cacheKey(view string, version uint64) string {
	return fmt.Sprintf("%s@%d", view, version)
}

func (rc *renderCache) get(key string) ([]byte, bool) {
	item := rc.c.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (rc *renderCache) set(key string, b []byte) {
	rc.c.Set(key, b, ttlcache.DefaultTTL)
}

func (rc *renderCache) drop(key string) { rc.c.Delete(key) }

func (rc *renderCache) purge() { rc.c.DeleteAll() }

// start runs expiry until stop is called.
func (rc *renderCache) start() { go rc.c.Start() }

func (rc *renderCache) stop() { rc.c.Stop() }

package transport

import "time"

// WithNow overrides the clock of the cache.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

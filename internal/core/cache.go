package core

import (
	"github.com/patrickmn/go-cache"
)

// SummaryCache holds the last generated weekly summary per client for the
// lifetime of the process. Entries never expire.
type SummaryCache struct {
	cache *cache.Cache
}

func NewSummaryCache() *SummaryCache {
	return &SummaryCache{cache: cache.New(cache.NoExpiration, 0)}
}

func (c *SummaryCache) Set(client, summary string) {
	c.cache.Set(client, summary, cache.NoExpiration)
}

func (c *SummaryCache) Get(client string) (string, bool) {
	if x, found := c.cache.Get(client); found {
		return x.(string), true
	}
	return "", false
}

func (c *SummaryCache) All() map[string]string {
	items := c.cache.Items()
	out := make(map[string]string, len(items))
	for k, item := range items {
		out[k] = item.Object.(string)
	}
	return out
}

func (c *SummaryCache) Flush() {
	c.cache.Flush()
}

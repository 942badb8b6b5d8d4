package engine

import "sync"

// matcherCache memoizes compiled matcher sets by encoding and ranges.
type matcherCache struct {
	mu    sync.RWMutex
	limit int
	sets  map[string]*MatcherSet
}

func newMatcherCache(limit int) *matcherCache {
	return &matcherCache{limit: limit, sets: make(map[string]*MatcherSet)}
}

// appendCacheKey encodes enc and the bounds of set, four bytes per bound.
func appendCacheKey(dst []byte, set RangeSet, enc Encoding) []byte {
	dst = append(dst, byte(enc))
	for _, v := range set.r {
		dst = append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	return dst
}

func (c *matcherCache) get(key []byte) (*MatcherSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ms, ok := c.sets[unsafeBytesToString(key)]
	return ms, ok
}

// put stores ms and reports whether the cache had to be dropped to make room.
func (c *matcherCache) put(key []byte, ms *MatcherSet) (dropped bool) {
	if c.limit == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sets[unsafeBytesToString(key)]; ok {
		return false
	}
	if len(c.sets) >= c.limit {
		clear(c.sets)
		dropped = true
	}
	c.sets[string(key)] = ms
	return dropped
}

func (c *matcherCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sets)
}

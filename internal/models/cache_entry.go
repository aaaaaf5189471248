package models

import "time"

// CacheEntry is the backend record behind the cache layer. Validity is
// decided by the TTL supplied on read; TTL here only drives the sweeper.
type CacheEntry struct {
	Key      string        `json:"key" badgerhold:"key"`
	Value    []byte        `json:"value"`
	StoredAt time.Time     `json:"storedAt" badgerhold:"index"`
	TTL      time.Duration `json:"ttl"`
}

// Expired reports whether the entry is older than ttl at now
func (e *CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) > ttl
}

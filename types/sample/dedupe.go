package sample

import (
	"fmt"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/mitchellh/hashstructure/v2"
)

type dedupeKey struct {
	Kind     Kind
	UnixNano int64
	Fix      *RawFix
	Inertial *InertialSample
	Pedo     *PedometerSample
}

// NewDedupeLRUFunc returns a predicate that is false for a sample
// identical to one seen among the last size samples.
func NewDedupeLRUFunc(size int) func(Sample) bool {
	var dedupeCache = lru.New(size)
	return func(s Sample) bool {
		key := dedupeKey{Kind: s.Kind, UnixNano: s.Time().UnixNano()}
		// Time is carried by UnixNano; zero it in the copies so
		// location and monotonic readings do not affect the hash.
		switch s.Kind {
		case KindFix:
			c := *s.Fix
			c.Time = time.Time{}
			key.Fix = &c
		case KindInertial:
			c := *s.Inertial
			c.Time = time.Time{}
			key.Inertial = &c
		case KindPedometer:
			c := *s.Pedometer
			c.Time = time.Time{}
			key.Pedo = &c
		}
		hash, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
		if err != nil {
			return true
		}
		k := fmt.Sprintf("%d", hash)
		if _, ok := dedupeCache.Get(k); ok {
			return false
		}
		dedupeCache.Add(k, true)
		return true
	}
}

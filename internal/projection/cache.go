package projection

import (
	"cmp"
	"context"
	"encoding/json"
	"math"
	"slices"
	"sync"

	"github.com/AydinDzaki/NusaGo/internal/listing"

	log "github.com/sirupsen/logrus"
)

type Loader interface {
	FetchAll(ctx context.Context) ([]listing.Listing, error)
}

// Cache is a read-through, possibly stale projection of every listing.
// Changes arriving before the first load are dropped; the load reads
// server truth anyway.
type Cache struct {
	load Loader

	mu     sync.RWMutex
	byID   map[string]listing.Listing
	loaded bool
}

func New(load Loader) *Cache {
	return &Cache{load: load, byID: map[string]listing.Listing{}}
}

// Listings returns the projection ordered by name, loading it on first use.
func (c *Cache) Listings(ctx context.Context) ([]listing.Listing, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if !loaded {
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	out := make([]listing.Listing, 0, len(c.byID))
	for _, l := range c.byID {
		out = append(out, l)
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b listing.Listing) int {
		if n := cmp.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (c *Cache) Get(id string) (listing.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.byID[id]
	return l, ok
}

// Refresh replaces the projection with a fresh read of the store.
func (c *Cache) Refresh(ctx context.Context) error {
	all, err := c.load.FetchAll(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]listing.Listing, len(all))
	for _, l := range all {
		byID[l.ID] = l
	}

	c.mu.Lock()
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()
	log.WithField("listings", len(all)).Debug("projection refreshed")
	return nil
}

// Apply patches the projection with ch and returns a function undoing it.
// Like deltas are undone by the inverse of the delta actually applied, so
// interleaved changes to the same listing survive a rollback.
func (c *Cache) Apply(ch listing.Change) (rollback func()) {
	noop := func() {}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return noop
	}

	prev, existed := c.byID[ch.ID]

	switch ch.Op {
	case listing.OpUpsert:
		if ch.Listing == nil {
			return noop
		}
		l := *ch.Listing
		l.Provisional = false
		c.byID[ch.ID] = l
	case listing.OpDelete:
		if !existed {
			return noop
		}
		delete(c.byID, ch.ID)
	case listing.OpCounters:
		if !existed || ch.Counters == nil {
			return noop
		}
		l := prev
		l.Rating = ch.Counters.Rating
		l.ReviewCount = ch.Counters.ReviewCount
		l.LikeCount = ch.Counters.LikeCount
		l.Provisional = false
		c.byID[ch.ID] = l
	case listing.OpLike:
		if !existed || ch.LikeDelta == 0 {
			return noop
		}
		applied := c.addLikes(ch.ID, ch.LikeDelta)
		if applied == 0 {
			return noop
		}
		return func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.addLikes(ch.ID, -applied)
		}
	case listing.OpReview:
		if !existed || ch.Rating < 1 || ch.Rating > 5 {
			return noop
		}
		l := prev
		l.Rating = ProvisionalMean(prev.Rating, prev.ReviewCount, ch.Rating)
		l.ReviewCount = prev.ReviewCount + 1
		l.Provisional = true
		c.byID[ch.ID] = l
		return func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			cur, ok := c.byID[ch.ID]
			if !ok || !cur.Provisional {
				return
			}
			cur.Rating = prev.Rating
			cur.ReviewCount = prev.ReviewCount
			cur.Provisional = prev.Provisional
			c.byID[ch.ID] = cur
		}
	default:
		log.WithField("op", ch.Op).Warn("unknown listing change")
		return noop
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if existed {
			c.byID[ch.ID] = prev
		} else {
			delete(c.byID, ch.ID)
		}
	}
}

// addLikes shifts the like count by delta without going below zero and
// returns the change it made.
func (c *Cache) addLikes(id string, delta int) int {
	l, ok := c.byID[id]
	if !ok {
		return 0
	}
	before := l.LikeCount
	l.LikeCount = max(before+delta, 0)
	c.byID[id] = l
	return l.LikeCount - before
}

// Follow applies every change read from feed until ctx ends or feed closes.
func (c *Cache) Follow(ctx context.Context, feed <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-feed:
			if !ok {
				return
			}
			var ch listing.Change
			if err := json.Unmarshal(payload, &ch); err != nil {
				log.WithError(err).Warn("dropping malformed listing change")
				continue
			}
			c.Apply(ch)
		}
	}
}

// ProvisionalMean folds one more rating into a running mean, rounded to one
// decimal place.
func ProvisionalMean(avg float64, count, rating int) float64 {
	if count < 0 {
		count = 0
	}
	mean := (avg*float64(count) + float64(rating)) / float64(count+1)
	return math.Round(mean*10) / 10
}

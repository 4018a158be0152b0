package redisx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/metrics"
)

const generationKey = "listings:search:gen"

// SearchCache stores search results per normalized criteria. Entries are
// namespaced by a generation counter, so one INCR invalidates them all and
// stale entries simply expire.
type SearchCache struct {
	c   *Client
	ttl time.Duration
}

func NewSearchCache(c *Client, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SearchCache{c: c, ttl: ttl}
}

// CriteriaHash is the stable cache identity of c.
func CriteriaHash(c listing.Criteria) string {
	b, _ := json.Marshal(c.Normalized())
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (s *SearchCache) key(ctx context.Context, c listing.Criteria) (string, error) {
	gen, found, err := s.c.Get(ctx, generationKey)
	if err != nil {
		return "", err
	}
	if !found {
		gen = "0"
	}
	return "listings:search:" + gen + ":" + CriteriaHash(c), nil
}

// Get returns cached results; found is false on a miss.
func (s *SearchCache) Get(ctx context.Context, c listing.Criteria) ([]listing.Property, bool, error) {
	k, err := s.key(ctx, c)
	if err != nil {
		return nil, false, err
	}
	raw, found, err := s.c.Get(ctx, k)
	if err != nil {
		return nil, false, err
	}
	metrics.CacheLookup(found)
	if !found {
		return nil, false, nil
	}
	var recs []listing.Property
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, false, fmt.Errorf("decode cached search: %w", err)
	}
	return recs, true, nil
}

func (s *SearchCache) Put(ctx context.Context, c listing.Criteria, recs []listing.Property) error {
	k, err := s.key(ctx, c)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	return s.c.Set(ctx, k, string(raw), s.ttl)
}

// Invalidate bumps the generation and returns the new value.
func (s *SearchCache) Invalidate(ctx context.Context) (string, error) {
	n, err := s.c.Incr(ctx, generationKey)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

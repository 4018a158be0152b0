// Package search turns loose criteria into a deduplicated, optionally price
// ordered result set.
package search

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/logger"
	"github.com/yourorg/listing-api/internal/metrics"
	"github.com/yourorg/listing-api/internal/store"
)

// Querier streams listings matching a predicate.
type Querier interface {
	QueryByPredicate(ctx context.Context, p store.Predicate) iter.Seq2[listing.Property, error]
}

type Engine struct {
	q Querier
}

func New(q Querier) *Engine { return &Engine{q: q} }

// Predicate ANDs a case-insensitive substring term for every non-empty
// criterion. custom_id uses the same partial match, so a full id still hits.
func Predicate(c listing.Criteria) store.Predicate {
	c = c.Normalized()
	var p store.Predicate
	add := func(field, v string) {
		if v != "" {
			p = append(p, store.Term{Field: field, Value: v, Match: store.MatchContains})
		}
	}
	add(listing.FieldCity, c.City)
	add(listing.FieldState, c.State)
	add(listing.FieldType, c.Type)
	add(listing.FieldAddress, c.Address)
	add(listing.FieldCustomID, c.CustomID)
	return p
}

// Search runs the query and returns unique listings. The first record seen
// for a custom_id wins, so without a price sort the order is the store's.
func (e *Engine) Search(ctx context.Context, c listing.Criteria) ([]listing.Property, error) {
	start := time.Now()
	c = c.Normalized()

	seen := make(map[string]struct{})
	out := []listing.Property{}
	dupes := 0
	for rec, err := range e.q.QueryByPredicate(ctx, Predicate(c)) {
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		if _, ok := seen[rec.CustomID]; ok {
			dupes++
			continue
		}
		seen[rec.CustomID] = struct{}{}
		out = append(out, rec)
	}

	SortByPrice(out, c.SortByPrice)
	metrics.SearchResults(len(out))
	logger.FromContext(ctx).Debug("search done",
		"results", len(out), "duplicates_dropped", dupes, "sort", string(c.SortByPrice),
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// SortByPrice stably orders recs in place. SortNone leaves them untouched.
func SortByPrice(recs []listing.Property, order listing.SortOrder) {
	switch order {
	case listing.SortAsc:
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Price < recs[j].Price })
	case listing.SortDesc:
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Price > recs[j].Price })
	}
}

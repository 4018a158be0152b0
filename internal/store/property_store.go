package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/logger"
	"github.com/yourorg/listing-api/internal/metrics"
)

type Options struct {
	// EnforceUniqueKey rejects inserts whose custom_id already exists. Off by
	// default: listings sharing a custom_id may coexist.
	EnforceUniqueKey bool
	// Locker guards the check-then-insert when EnforceUniqueKey is set.
	// Defaults to an in-process KeyMutex.
	Locker Locker
}

// PropertyStore is listing CRUD keyed by custom_id.
type PropertyStore struct {
	docs DocumentStore
	opts Options
}

func NewPropertyStore(docs DocumentStore, opts Options) *PropertyStore {
	if opts.Locker == nil {
		opts.Locker = &KeyMutex{}
	}
	return &PropertyStore{docs: docs, opts: opts}
}

// Insert stores rec. It reports false with listing.ErrConflict when unique
// keys are enforced and custom_id is taken.
func (s *PropertyStore) Insert(ctx context.Context, rec listing.Property) (ok bool, err error) {
	defer func() { metrics.StoreOp("insert", ok, err) }()
	if rec.CustomID == "" {
		return false, listing.Invalid(listing.FieldCustomID, "required")
	}
	if s.opts.EnforceUniqueKey {
		unlock, err := s.opts.Locker.Lock(ctx, rec.CustomID)
		if err != nil {
			return false, fmt.Errorf("lock %s: %w", rec.CustomID, err)
		}
		defer unlock()
		_, found, err := s.docs.FindOne(ctx, ByCustomID(rec.CustomID))
		if err != nil {
			return false, fmt.Errorf("check %s: %w", rec.CustomID, err)
		}
		if found {
			return false, fmt.Errorf("custom_id %q: %w", rec.CustomID, listing.ErrConflict)
		}
	}
	id, err := s.docs.Insert(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", rec.CustomID, err)
	}
	logger.FromContext(ctx).Debug("listing inserted", "custom_id", rec.CustomID, "doc_id", id)
	return true, nil
}

// Get returns the first listing stored under customID.
func (s *PropertyStore) Get(ctx context.Context, customID string) (listing.Property, bool, error) {
	rec, found, err := s.docs.FindOne(ctx, ByCustomID(customID))
	metrics.StoreOp("get", found, err)
	if err != nil {
		return listing.Property{}, false, fmt.Errorf("find %s: %w", customID, err)
	}
	return rec, found, nil
}

// UpdateByCustomID applies ch to one listing. It reports false when ch is
// empty or nothing matched.
func (s *PropertyStore) UpdateByCustomID(ctx context.Context, customID string, ch listing.Changes) (ok bool, err error) {
	defer func() { metrics.StoreOp("update", ok, err) }()
	if len(ch) == 0 || customID == "" {
		return false, nil
	}
	if _, bad := ch[listing.FieldCustomID]; bad {
		return false, listing.Invalid(listing.FieldCustomID, "custom_id is immutable")
	}
	ok, err = s.docs.UpdateOne(ctx, ByCustomID(customID), ch)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", customID, err)
	}
	return ok, nil
}

// DeleteByCustomID removes every listing stored under customID.
func (s *PropertyStore) DeleteByCustomID(ctx context.Context, customID string) (ok bool, err error) {
	defer func() { metrics.StoreOp("delete", ok, err) }()
	if customID == "" {
		return false, nil
	}
	n, err := s.docs.DeleteMany(ctx, ByCustomID(customID))
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", customID, err)
	}
	if n > 1 {
		logger.FromContext(ctx).Info("deleted duplicate listings", "custom_id", customID, "count", n)
	}
	return n > 0, nil
}

// QueryByPredicate streams matching listings in backend order.
func (s *PropertyStore) QueryByPredicate(ctx context.Context, p Predicate) iter.Seq2[listing.Property, error] {
	return s.docs.Find(ctx, p)
}

func (s *PropertyStore) Ping(ctx context.Context) error {
	if s == nil || s.docs == nil {
		return errors.New("nil store")
	}
	return s.docs.Ping(ctx)
}

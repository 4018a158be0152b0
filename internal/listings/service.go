// Package listings is the application service: it runs submissions through
// validation, photo encoding and storage, and serves searches, exports and
// photo display.
package listings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yourorg/listing-api/internal/codec"
	"github.com/yourorg/listing-api/internal/events"
	"github.com/yourorg/listing-api/internal/export"
	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/logger"
	"github.com/yourorg/listing-api/internal/search"
	"github.com/yourorg/listing-api/internal/store"
	"github.com/yourorg/listing-api/internal/validate"
)

var (
	// ErrNoChanges is returned for an update that carries no fields.
	ErrNoChanges = errors.New("no fields to update")
	// ErrNoPhotos is returned when none of the supplied photos could be used.
	ErrNoPhotos = errors.New("no usable photos")
	// ErrImportDisabled is returned by ImportPhotos without a fetcher.
	ErrImportDisabled = errors.New("photo import is not configured")
)

// Cache holds search results between writes.
type Cache interface {
	Get(ctx context.Context, c listing.Criteria) ([]listing.Property, bool, error)
	Put(ctx context.Context, c listing.Criteria, recs []listing.Property) error
	Invalidate(ctx context.Context) (string, error)
}

// PhotoFetcher downloads a remote image.
type PhotoFetcher interface {
	Fetch(ctx context.Context, url string) (codec.Upload, error)
}

type Deps struct {
	Store     *store.PropertyStore
	Validator *validate.Validator
	Codec     *codec.Codec
	Search    *search.Engine
	// Optional.
	Cache  Cache
	Events events.Publisher
	Photos PhotoFetcher
}

type Service struct {
	d   Deps
	now func() time.Time
}

func New(d Deps) *Service {
	if d.Validator == nil {
		d.Validator = validate.New(validate.Options{})
	}
	if d.Codec == nil {
		d.Codec = codec.New()
	}
	if d.Search == nil {
		d.Search = search.New(d.Store)
	}
	return &Service{d: d, now: time.Now}
}

// PhotoFailure describes one photo that was skipped.
type PhotoFailure struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// Result is a written listing plus any photos that were left out.
type Result struct {
	Listing  listing.Property `json:"listing"`
	Failures []PhotoFailure   `json:"photo_errors,omitempty"`
}

// Failures flattens the joined *listing.AssetError values in err.
func Failures(err error) []PhotoFailure {
	if err == nil {
		return nil
	}
	var errs []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs = j.Unwrap()
	} else {
		errs = []error{err}
	}
	out := make([]PhotoFailure, 0, len(errs))
	for _, e := range errs {
		var ae *listing.AssetError
		if errors.As(e, &ae) {
			out = append(out, PhotoFailure{Index: ae.Index, Name: ae.Name, Reason: ae.Err.Error()})
			continue
		}
		out = append(out, PhotoFailure{Index: -1, Reason: e.Error()})
	}
	return out
}

func (s *Service) encode(ctx context.Context, uploads []codec.Upload) ([]listing.Asset, []PhotoFailure) {
	assets, err := s.d.Codec.EncodeAll(uploads)
	fails := Failures(err)
	for _, f := range fails {
		logger.FromContext(ctx).Warn("photo skipped", "index", f.Index, "name", f.Name, "reason", f.Reason)
	}
	return assets, fails
}

// Create validates in, encodes uploads in order and stores the listing.
// Photos that fail to encode are reported but do not block the insert.
func (s *Service) Create(ctx context.Context, in listing.Input, uploads []codec.Upload) (Result, error) {
	rec, err := s.d.Validator.Validate(in)
	if err != nil {
		return Result{}, err
	}
	assets, fails := s.encode(ctx, uploads)
	rec.Images = append(rec.Images, assets...)

	if _, err := s.d.Store.Insert(ctx, rec); err != nil {
		return Result{}, err
	}
	s.afterWrite(ctx, events.Created, rec.CustomID, nil)
	logger.FromContext(ctx).Info("listing created", "custom_id", rec.CustomID, "photos", len(rec.Images), "photo_errors", len(fails))
	return Result{Listing: rec, Failures: fails}, nil
}

func (s *Service) Get(ctx context.Context, customID string) (listing.Property, error) {
	rec, found, err := s.d.Store.Get(ctx, customID)
	if err != nil {
		return listing.Property{}, err
	}
	if !found {
		return listing.Property{}, fmt.Errorf("%q: %w", customID, listing.ErrNotFound)
	}
	return rec, nil
}

// Search serves from the cache when one is configured. Cache failures fall
// back to the store.
func (s *Service) Search(ctx context.Context, c listing.Criteria) ([]listing.Property, error) {
	c = c.Normalized()
	log := logger.FromContext(ctx)
	if s.d.Cache != nil {
		recs, hit, err := s.d.Cache.Get(ctx, c)
		if err != nil {
			log.Warn("search cache read failed", "err", err)
		} else if hit {
			return recs, nil
		}
	}
	recs, err := s.d.Search.Search(ctx, c)
	if err != nil {
		return nil, err
	}
	if s.d.Cache != nil {
		if err := s.d.Cache.Put(ctx, c, recs); err != nil {
			log.Warn("search cache write failed", "err", err)
		}
	}
	return recs, nil
}

// Export renders the search for c in format f.
func (s *Service) Export(ctx context.Context, c listing.Criteria, f export.Format) ([]byte, error) {
	recs, err := s.Search(ctx, c)
	if err != nil {
		return nil, err
	}
	return export.Render(f, recs)
}

// Update applies u to one listing and returns the stored result.
func (s *Service) Update(ctx context.Context, customID string, u listing.Update) (listing.Property, error) {
	ch, err := s.d.Validator.ValidateUpdate(u)
	if err != nil {
		return listing.Property{}, err
	}
	if len(ch) == 0 {
		return listing.Property{}, ErrNoChanges
	}
	if err := s.apply(ctx, customID, ch); err != nil {
		return listing.Property{}, err
	}
	return s.Get(ctx, customID)
}

func (s *Service) apply(ctx context.Context, customID string, ch listing.Changes) error {
	ok, err := s.d.Store.UpdateByCustomID(ctx, customID, ch)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%q: %w", customID, listing.ErrNotFound)
	}
	fields := make([]string, 0, len(ch))
	for k := range ch {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	s.afterWrite(ctx, events.Updated, customID, fields)
	return nil
}

// Delete removes every listing stored under customID.
func (s *Service) Delete(ctx context.Context, customID string) error {
	ok, err := s.d.Store.DeleteByCustomID(ctx, customID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%q: %w", customID, listing.ErrNotFound)
	}
	s.afterWrite(ctx, events.Deleted, customID, nil)
	return nil
}

// AttachPhotos encodes uploads and appends them to the listing's images.
func (s *Service) AttachPhotos(ctx context.Context, customID string, uploads []codec.Upload) (Result, error) {
	rec, err := s.Get(ctx, customID)
	if err != nil {
		return Result{}, err
	}
	assets, fails := s.encode(ctx, uploads)
	return s.attach(ctx, rec, assets, fails)
}

// ImportPhotos downloads each URL and attaches it like an upload.
func (s *Service) ImportPhotos(ctx context.Context, customID string, urls []string) (Result, error) {
	if s.d.Photos == nil {
		return Result{}, ErrImportDisabled
	}
	rec, err := s.Get(ctx, customID)
	if err != nil {
		return Result{}, err
	}
	var (
		assets []listing.Asset
		errs   []error
	)
	for i, u := range urls {
		up, err := s.d.Photos.Fetch(ctx, u)
		if err == nil {
			var a listing.Asset
			if a, err = s.d.Codec.Encode(up.Data, up.Name); err == nil {
				assets = append(assets, a)
				continue
			}
		}
		logger.FromContext(ctx).Warn("photo import skipped", "index", i, "url", u, "err", err)
		errs = append(errs, &listing.AssetError{Index: i, Name: u, Err: err})
	}
	return s.attach(ctx, rec, assets, Failures(errors.Join(errs...)))
}

func (s *Service) attach(ctx context.Context, rec listing.Property, assets []listing.Asset, fails []PhotoFailure) (Result, error) {
	if len(assets) == 0 {
		return Result{Listing: rec, Failures: fails}, ErrNoPhotos
	}
	images := append(append([]listing.Asset{}, rec.Images...), assets...)
	if err := s.apply(ctx, rec.CustomID, listing.Changes{listing.FieldImages: images}); err != nil {
		return Result{}, err
	}
	rec.Images = images
	return Result{Listing: rec, Failures: fails}, nil
}

// Photo decodes the index-th image of a listing for display.
func (s *Service) Photo(ctx context.Context, customID string, index int) (codec.Rendered, error) {
	rec, err := s.Get(ctx, customID)
	if err != nil {
		return codec.Rendered{}, err
	}
	if index < 0 || index >= len(rec.Images) {
		return codec.Rendered{}, fmt.Errorf("photo %d of %q: %w", index, customID, listing.ErrNotFound)
	}
	r, err := s.d.Codec.Decode(rec.Images[index])
	if err != nil {
		logger.FromContext(ctx).Warn("photo not renderable", "custom_id", customID, "index", index, "err", err)
		return codec.Rendered{}, err
	}
	return r, nil
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error { return s.d.Store.Ping(ctx) }

// afterWrite invalidates cached searches and announces the change. Neither
// failure is reported to the caller.
func (s *Service) afterWrite(ctx context.Context, kind events.Kind, customID string, fields []string) {
	log := logger.FromContext(ctx)
	if s.d.Cache != nil {
		if _, err := s.d.Cache.Invalidate(ctx); err != nil {
			log.Warn("search cache invalidation failed", "err", err)
		}
	}
	if s.d.Events != nil {
		evt := events.ListingChanged{Kind: kind, CustomID: customID, Fields: fields, At: s.now().UTC()}
		if err := s.d.Events.Publish(ctx, evt); err != nil {
			log.Warn("event publish failed", "kind", kind, "custom_id", customID, "err", err)
		}
	}
}

// Package importer loads listings in bulk from a JSON document.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourorg/listing-api/internal/codec"
	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/listings"
)

// Record is one listing to import. Photos are local file paths, resolved
// against Config.BaseDir when relative.
type Record struct {
	listing.Input
	Photos []string `json:"photos,omitempty"`
}

// ReadRecords decodes a JSON array of records.
func ReadRecords(r io.Reader) ([]Record, error) {
	var recs []Record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode import file: %w", err)
	}
	return recs, nil
}

type Creator interface {
	Create(ctx context.Context, in listing.Input, uploads []codec.Upload) (listings.Result, error)
}

type Config struct {
	BaseDir string
	// Workers above 1 insert concurrently, so store order no longer follows
	// file order.
	Workers       int
	RecordTimeout time.Duration
}

type Job struct {
	Service  Creator
	Logger   *slog.Logger
	Config   Config
	ReadFile func(string) ([]byte, error)
}

type Summary struct {
	Total       int `json:"total"`
	Created     int `json:"created"`
	Failed      int `json:"failed"`
	PhotoErrors int `json:"photo_errors"`
}

type task struct {
	index int
	rec   Record
}

type outcome struct {
	index  int
	photos int
	err    error
}

func (j *Job) validate() error {
	if j == nil || j.Service == nil {
		return errors.New("import job requires a service")
	}
	if j.Logger == nil {
		j.Logger = slog.Default()
	}
	if j.ReadFile == nil {
		j.ReadFile = os.ReadFile
	}
	if j.Config.Workers <= 0 {
		j.Config.Workers = 1
	}
	if j.Config.RecordTimeout <= 0 {
		j.Config.RecordTimeout = 30 * time.Second
	}
	return nil
}

// Run imports recs and returns per-record failures joined in record order.
// Photo problems are counted but do not fail a record.
func (j *Job) Run(ctx context.Context, recs []Record) (Summary, error) {
	if err := j.validate(); err != nil {
		return Summary{}, err
	}
	sum := Summary{Total: len(recs)}
	tasks := make(chan task)
	results := make(chan outcome, len(recs))

	var wg sync.WaitGroup
	for i := 0; i < j.Config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				results <- j.importOne(ctx, t)
			}
		}()
	}

feed:
	for i, r := range recs {
		select {
		case tasks <- task{index: i, rec: r}:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()
	close(results)

	errs := make([]error, len(recs))
	seen := 0
	for o := range results {
		seen++
		sum.PhotoErrors += o.photos
		if o.err != nil {
			sum.Failed++
			errs[o.index] = o.err
			continue
		}
		sum.Created++
	}
	if seen < len(recs) {
		sum.Failed += len(recs) - seen
		return sum, errors.Join(append(errs, ctx.Err())...)
	}
	return sum, errors.Join(errs...)
}

func (j *Job) importOne(ctx context.Context, t task) outcome {
	ctx, cancel := context.WithTimeout(ctx, j.Config.RecordTimeout)
	defer cancel()

	uploads := make([]codec.Upload, 0, len(t.rec.Photos))
	missing := 0
	for _, p := range t.rec.Photos {
		path := p
		if !filepath.IsAbs(path) && j.Config.BaseDir != "" {
			path = filepath.Join(j.Config.BaseDir, path)
		}
		data, err := j.ReadFile(path)
		if err != nil {
			j.Logger.Warn("import photo unreadable", "record", t.index, "path", path, "err", err)
			missing++
			continue
		}
		uploads = append(uploads, codec.Upload{Name: filepath.Base(path), Data: data})
	}

	res, err := j.Service.Create(ctx, t.rec.Input, uploads)
	if err != nil {
		j.Logger.Warn("import record failed", "record", t.index, "custom_id", t.rec.CustomID, "err", err)
		return outcome{index: t.index, photos: missing, err: fmt.Errorf("record %d (%s): %w", t.index, t.rec.CustomID, err)}
	}
	j.Logger.Debug("imported", "record", t.index, "custom_id", res.Listing.CustomID, "photos", len(res.Listing.Images))
	return outcome{index: t.index, photos: missing + len(res.Failures)}
}

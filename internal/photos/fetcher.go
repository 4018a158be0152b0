// Package photos downloads remote listing photos so they can be encoded like
// uploads.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/yourorg/listing-api/internal/codec"
)

// ErrFetch marks a failed remote download.
var ErrFetch = errors.New("photo fetch failed")

type Options struct {
	Timeout  time.Duration
	PerSec   float64
	MaxBytes int64
	Logger   *slog.Logger
}

type Fetcher struct {
	http     *retryablehttp.Client
	limiter  *rate.Limiter
	maxBytes int64
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PerSec <= 0 {
		opts.PerSec = 2
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 20 << 20
	}
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	}
	return &Fetcher{
		http:     rc,
		limiter:  rate.NewLimiter(rate.Limit(opts.PerSec), 1),
		maxBytes: opts.MaxBytes,
	}
}

// Fetch downloads rawURL. The returned upload is named so that codec sees a
// jpg or png extension whenever the server says what it sent.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (codec.Upload, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return codec.Upload{}, fmt.Errorf("%w: bad url %q", ErrFetch, rawURL)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return codec.Upload{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return codec.Upload{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("accept", "image/png, image/jpeg")

	resp, err := f.http.Do(req)
	if err != nil {
		return codec.Upload{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return codec.Upload{}, fmt.Errorf("%w: %s returned %d", ErrFetch, u.Host, resp.StatusCode)
	}
	data, err := ioReadAllLimit(resp.Body, f.maxBytes)
	if err != nil {
		return codec.Upload{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return codec.Upload{Name: uploadName(u, resp.Header.Get("Content-Type")), Data: data}, nil
}

func uploadName(u *url.URL, contentType string) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "photo"
	}
	if _, err := codec.Extension(name); err == nil {
		return name
	}
	mt, _, _ := mime.ParseMediaType(contentType)
	switch strings.ToLower(mt) {
	case "image/jpeg", "image/jpg":
		return strings.TrimSuffix(name, path.Ext(name)) + ".jpg"
	case "image/png":
		return strings.TrimSuffix(name, path.Ext(name)) + ".png"
	}
	return name
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}

package photos

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}

func TestFetch(t *testing.T) {
	body := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img/house":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(body)
		case "/big.png":
			_, _ = w.Write(make([]byte, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(Options{Timeout: 2 * time.Second, PerSec: 100, MaxBytes: 32})
	f.http.RetryMax = 0
	ctx := context.Background()

	if _, err := f.Fetch(ctx, srv.URL+"/img/house"); err == nil {
		t.Fatalf("expected size guard to trip for %d bytes", len(body))
	}

	f.maxBytes = 1 << 20
	up, err := f.Fetch(ctx, srv.URL+"/img/house")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if up.Name != "house.png" || !bytes.Equal(up.Data, body) {
		t.Fatalf("unexpected upload name=%q len=%d", up.Name, len(up.Data))
	}

	if _, err := f.Fetch(ctx, srv.URL+"/missing.jpg"); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if _, err := f.Fetch(ctx, "ftp://example.com/a.png"); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for scheme, got %v", err)
	}
}

func TestUploadName(t *testing.T) {
	cases := []struct{ path, ct, want string }{
		{"/a/photo.JPG", "", "photo.JPG"},
		{"/a/photo", "image/jpeg", "photo.jpg"},
		{"/a/photo.webp", "image/png; charset=binary", "photo.png"},
		{"/", "image/png", "photo.png"},
		{"/x.gif", "image/gif", "x.gif"},
	}
	for _, tc := range cases {
		got := uploadName(&url.URL{Path: tc.path}, tc.ct)
		if got != tc.want {
			t.Errorf("%s %s: got %q want %q", tc.path, tc.ct, got, tc.want)
		}
	}
}

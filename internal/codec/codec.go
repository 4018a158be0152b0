// Package codec converts uploaded photographs into self-contained data URI
// assets and back.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/metrics"
)

const (
	DefaultWidth       = 600
	DefaultHeight      = 400
	DefaultJPEGQuality = 75
)

// Codec resizes every encoded image to exactly Width x Height. Aspect ratio
// is not preserved; stored assets were produced with a stretch resize.
type Codec struct {
	Width       int
	Height      int
	JPEGQuality int
}

func New() *Codec {
	return &Codec{Width: DefaultWidth, Height: DefaultHeight, JPEGQuality: DefaultJPEGQuality}
}

// Upload is one raw uploaded file.
type Upload struct {
	Name string
	Data []byte
}

// Rendered is a decoded asset ready for display. URL is set instead of Image
// for external references, which are never fetched or decoded here.
type Rendered struct {
	URL         string
	Image       image.Image
	Format      string // format reported by the decoder
	ContentType string // MIME type suitable for an HTTP response
	Raw         []byte // decoded payload bytes
}

func (c *Codec) size() (int, int) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// Extension returns the lower-cased extension of filename when it is an
// accepted upload type.
func Extension(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "jpg", "png":
		return ext, nil
	default:
		return "", &listing.ValidationError{
			Field:  listing.FieldImages,
			Reason: fmt.Sprintf("extension %q not in [jpg png]", ext),
			Kind:   listing.ErrUnsupportedFormat,
		}
	}
}

// Encode resizes raw to the target size and returns it as
// data:image/<ext>;base64,<payload>. The header keeps "jpg" as uploaded.
func (c *Codec) Encode(raw []byte, filename string) (asset listing.Asset, err error) {
	start := time.Now()
	ext, err := Extension(filename)
	if err != nil {
		metrics.Codec("encode", "unsupported", start, err)
		return "", err
	}
	defer func() { metrics.Codec("encode", ext, start, err) }()

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", &listing.ValidationError{Field: listing.FieldImages, Reason: err.Error(), Kind: listing.ErrInvalidImageData}
	}

	w, h := c.size()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	switch ext {
	case "jpg":
		q := c.JPEGQuality
		if q <= 0 {
			q = DefaultJPEGQuality
		}
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q})
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", ext, err)
	}
	return listing.Asset("data:image/" + ext + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// EncodeAll encodes uploads in order. Failed uploads are skipped and reported
// as joined *listing.AssetError values; successful ones are always returned.
func (c *Codec) EncodeAll(uploads []Upload) ([]listing.Asset, error) {
	out := make([]listing.Asset, 0, len(uploads))
	var errs []error
	for i, u := range uploads {
		a, err := c.Encode(u.Data, u.Name)
		if err != nil {
			errs = append(errs, &listing.AssetError{Index: i, Name: u.Name, Err: err})
			continue
		}
		out = append(out, a)
	}
	return out, errors.Join(errs...)
}

// Decode turns an asset back into an image. External references pass through
// untouched.
func (c *Codec) Decode(a listing.Asset) (r Rendered, err error) {
	if a.IsReference() {
		return Rendered{URL: string(a)}, nil
	}
	start := time.Now()
	format := "unknown"
	defer func() { metrics.Codec("decode", format, start, err) }()

	header, payload, ok := strings.Cut(string(a), ",")
	if !ok || !a.IsDataURI() {
		return Rendered{}, fmt.Errorf("%w: not a data URI", listing.ErrCorruptAsset)
	}
	mime, ok := strings.CutSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !ok || !strings.HasPrefix(mime, "image/") {
		return Rendered{}, fmt.Errorf("%w: bad header %q", listing.ErrCorruptAsset, header)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: %v", listing.ErrCorruptAsset, err)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: %v", listing.ErrCorruptAsset, err)
	}
	return Rendered{Image: img, Format: format, ContentType: contentType(mime), Raw: raw}, nil
}

// DecodeAll decodes each asset independently; a corrupt asset leaves a zero
// Rendered at its index and an *listing.AssetError in the joined error.
func (c *Codec) DecodeAll(assets []listing.Asset) ([]Rendered, error) {
	out := make([]Rendered, len(assets))
	var errs []error
	for i, a := range assets {
		r, err := c.Decode(a)
		if err != nil {
			errs = append(errs, &listing.AssetError{Index: i, Err: err})
			continue
		}
		out[i] = r
	}
	return out, errors.Join(errs...)
}

func contentType(mime string) string {
	if mime == "image/jpg" {
		return "image/jpeg"
	}
	return mime
}

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/yourorg/listing-api/internal/codec"
	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/listings"
)

type ListingsDeps struct {
	Service *listings.Service
	// MaxUploadBytes caps request bodies, photos included.
	MaxUploadBytes int64
	// NewID assigns a custom_id when the caller leaves it empty.
	NewID func() string
}

func (d ListingsDeps) limit(w http.ResponseWriter, req *http.Request) {
	n := d.MaxUploadBytes
	if n <= 0 {
		n = 20 << 20
	}
	req.Body = http.MaxBytesReader(w, req.Body, n)
}

// Multipart form names.
const (
	formListing = "listing"
	formPhotos  = "photos"
)

func RegisterListings(r chi.Router, d ListingsDeps) {
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}

	// POST: JSON body, or multipart with a "listing" JSON part and "photos" files
	r.Post("/listings", func(w http.ResponseWriter, req *http.Request) {
		d.limit(w, req)
		raw, uploads, err := readSubmission(req)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		if err := checkSchema(listingSchema, raw); err != nil {
			respondErr(w, req, err)
			return
		}
		var in listing.Input
		if err := json.Unmarshal(raw, &in); err != nil {
			writeError(w, req, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		if strings.TrimSpace(in.CustomID) == "" {
			in.CustomID = d.NewID()
		}
		res, err := d.Service.Create(req.Context(), in, uploads)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		render.Status(req, http.StatusCreated)
		render.JSON(w, req, map[string]any{"ok": true, "listing": res.Listing, "photo_errors": res.Failures})
	})

	r.Get("/listings/{customID}", func(w http.ResponseWriter, req *http.Request) {
		rec, err := d.Service.Get(req.Context(), chi.URLParam(req, "customID"))
		if err != nil {
			respondErr(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "listing": rec})
	})

	r.Patch("/listings/{customID}", func(w http.ResponseWriter, req *http.Request) {
		d.limit(w, req)
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		if err := checkSchema(updateSchema, raw); err != nil {
			respondErr(w, req, err)
			return
		}
		var u listing.Update
		if err := json.Unmarshal(raw, &u); err != nil {
			writeError(w, req, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		rec, err := d.Service.Update(req.Context(), chi.URLParam(req, "customID"), u)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "listing": rec})
	})

	r.Delete("/listings/{customID}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "customID")
		if err := d.Service.Delete(req.Context(), id); err != nil {
			respondErr(w, req, err)
			return
		}
		render.JSON(w, req, map[string]any{"ok": true, "deleted": id})
	})
}

func isMultipart(req *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	return mt == "multipart/form-data"
}

// readSubmission returns the listing JSON and any uploaded photos.
func readSubmission(req *http.Request) ([]byte, []codec.Upload, error) {
	if !isMultipart(req) {
		raw, err := io.ReadAll(req.Body)
		return raw, nil, err
	}
	if err := req.ParseMultipartForm(8 << 20); err != nil {
		return nil, nil, multipartErr(err)
	}
	raw := []byte(req.FormValue(formListing))
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	uploads, err := readUploads(req.MultipartForm.File[formPhotos])
	return raw, uploads, err
}

func readUploads(files []*multipart.FileHeader) ([]codec.Upload, error) {
	out := make([]codec.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		out = append(out, codec.Upload{Name: fh.Filename, Data: data})
	}
	return out, nil
}

func multipartErr(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	if strings.Contains(err.Error(), "request body too large") {
		return &http.MaxBytesError{}
	}
	return &listing.ValidationError{Reason: "malformed multipart body: " + err.Error(), Kind: listing.ErrInvalidField}
}

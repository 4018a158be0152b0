package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listing-api/internal/listings"
)

type PhotosDeps struct {
	Service        *listings.Service
	MaxUploadBytes int64
}

type importRequest struct {
	URLs []string `json:"urls"`
}

func RegisterPhotos(r chi.Router, d PhotosDeps) {
	limit := ListingsDeps{MaxUploadBytes: d.MaxUploadBytes}.limit

	r.Post("/listings/{customID}/photos", func(w http.ResponseWriter, req *http.Request) {
		limit(w, req)
		if !isMultipart(req) {
			writeError(w, req, http.StatusBadRequest, "multipart_required", "send photos as multipart/form-data")
			return
		}
		if err := req.ParseMultipartForm(8 << 20); err != nil {
			respondErr(w, req, multipartErr(err))
			return
		}
		uploads, err := readUploads(req.MultipartForm.File[formPhotos])
		if err != nil {
			respondErr(w, req, err)
			return
		}
		res, err := d.Service.AttachPhotos(req.Context(), chi.URLParam(req, "customID"), uploads)
		writeAttach(w, req, res, err)
	})

	r.Post("/listings/{customID}/photos/import", func(w http.ResponseWriter, req *http.Request) {
		limit(w, req)
		var body importRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, req, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		if len(body.URLs) == 0 {
			writeError(w, req, http.StatusBadRequest, "urls_required", "")
			return
		}
		res, err := d.Service.ImportPhotos(req.Context(), chi.URLParam(req, "customID"), body.URLs)
		writeAttach(w, req, res, err)
	})

	r.Get("/listings/{customID}/photos/{index}", func(w http.ResponseWriter, req *http.Request) {
		idx, err := strconv.Atoi(chi.URLParam(req, "index"))
		if err != nil {
			writeError(w, req, http.StatusBadRequest, "invalid_index", err.Error())
			return
		}
		p, err := d.Service.Photo(req.Context(), chi.URLParam(req, "customID"), idx)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		if p.URL != "" {
			http.Redirect(w, req, p.URL, http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", p.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(p.Raw)))
		w.Header().Set("Cache-Control", "private, max-age=300")
		_, _ = w.Write(p.Raw)
	})
}

func writeAttach(w http.ResponseWriter, req *http.Request, res listings.Result, err error) {
	if err != nil {
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			respondErr(w, req, err)
			return
		}
		render.Status(req, status)
		render.JSON(w, req, map[string]any{"error": code, "detail": err.Error(), "photo_errors": res.Failures})
		return
	}
	render.JSON(w, req, map[string]any{"ok": true, "listing": res.Listing, "photo_errors": res.Failures})
}

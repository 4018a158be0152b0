package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listing-api/internal/export"
	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/listings"
)

type SearchDeps struct {
	Service *listings.Service
}

// criteriaFromQuery reads search terms from query parameters. "sort" is
// accepted as an alias of sort_by_price.
func criteriaFromQuery(q url.Values) listing.Criteria {
	sort := q.Get("sort_by_price")
	if sort == "" {
		sort = q.Get("sort")
	}
	return listing.Criteria{
		City:        q.Get("city"),
		State:       q.Get("state"),
		Type:        q.Get("type"),
		Address:     q.Get("address"),
		CustomID:    q.Get("custom_id"),
		SortByPrice: listing.ParseSortOrder(sort),
	}
}

func RegisterSearch(r chi.Router, d SearchDeps) {
	// POST: JSON body; an empty body searches everything
	r.Post("/listings/search", func(w http.ResponseWriter, req *http.Request) {
		var body listing.Criteria
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil && err != io.EOF {
			writeError(w, req, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		handleSearchRequest(w, req, d, body)
	})

	// GET: query params
	r.Get("/listings/search", func(w http.ResponseWriter, req *http.Request) {
		handleSearchRequest(w, req, d, criteriaFromQuery(req.URL.Query()))
	})

	r.Get("/listings/export", func(w http.ResponseWriter, req *http.Request) {
		f, err := export.ParseFormat(req.URL.Query().Get("format"))
		if err != nil {
			respondErr(w, req, err)
			return
		}
		out, err := d.Service.Export(req.Context(), criteriaFromQuery(req.URL.Query()), f)
		if err != nil {
			respondErr(w, req, err)
			return
		}
		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+f.Filename()+`"`)
		_, _ = w.Write(out)
	})
}

func handleSearchRequest(w http.ResponseWriter, req *http.Request, d SearchDeps, body listing.Criteria) {
	recs, err := d.Service.Search(req.Context(), body)
	if err != nil {
		respondErr(w, req, err)
		return
	}
	render.JSON(w, req, map[string]any{"ok": true, "count": len(recs), "results": recs})
}

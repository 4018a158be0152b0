package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/listings"
	"github.com/yourorg/listing-api/internal/store"
)

func newRouter(t *testing.T, maxBytes int64) http.Handler {
	t.Helper()
	svc := listings.New(listings.Deps{Store: store.NewPropertyStore(store.NewMemory(), store.Options{})})
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	RegisterHealth(r, HealthDeps{Ping: svc.Ping})
	RegisterSearch(r, SearchDeps{Service: svc})
	RegisterListings(r, ListingsDeps{Service: svc, MaxUploadBytes: maxBytes, NewID: func() string { return "generated-1" }})
	RegisterPhotos(r, PhotosDeps{Service: svc, MaxUploadBytes: maxBytes})
	return r
}

func do(t *testing.T, h http.Handler, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type listingResp struct {
	OK          bool                    `json:"ok"`
	Listing     listing.Property        `json:"listing"`
	PhotoErrors []listings.PhotoFailure `json:"photo_errors"`
	Error       string                  `json:"error"`
	Field       string                  `json:"field"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 12, 9))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func createJSON(t *testing.T, h http.Handler, body string) listingResp {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/listings", "application/json", []byte(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %s: %d %s", body, rec.Code, rec.Body.String())
	}
	return decode[listingResp](t, rec)
}

func TestCreateJSON(t *testing.T) {
	h := newRouter(t, 1<<20)
	got := createJSON(t, h, `{"custom_id":"A1","city":"Austin","state":"TX","zip_code":78701,"price":300000,"bathrooms":1.5,"type":"SALE","date_listed":"2024-02-03"}`)
	if got.Listing.State != "Texas" || got.Listing.ZipCode != 78701 || got.Listing.Type != "sale" || got.Listing.DateListed != "2024-02-03" {
		t.Fatalf("unexpected listing %+v", got.Listing)
	}

	gen := createJSON(t, h, `{"city":"Waco","state":"Texas","type":"rent","zip_code":"76701x"}`)
	if gen.Listing.CustomID != "generated-1" || gen.Listing.ZipCode != 0 {
		t.Fatalf("expected generated id and lenient zip, got %+v", gen.Listing)
	}

	rec := do(t, h, http.MethodGet, "/listings/A1", "", nil)
	if rec.Code != http.StatusOK || decode[listingResp](t, rec).Listing.City != "Austin" {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateRejects(t *testing.T) {
	h := newRouter(t, 1<<20)
	cases := map[string]string{
		"negative price": `{"custom_id":"x","state":"Texas","type":"sale","price":-5}`,
		"unknown member": `{"custom_id":"x","state":"Texas","type":"sale","garage":true}`,
		"bad state":      `{"custom_id":"x","state":"Narnia","type":"sale"}`,
		"bad type":       `{"custom_id":"x","state":"Texas","type":"lease"}`,
		"not json":       `{"custom_id":`,
	}
	for name, body := range cases {
		rec := do(t, h, http.MethodPost, "/listings", "application/json", []byte(body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d %s", name, rec.Code, rec.Body.String())
			continue
		}
		if e := decode[listingResp](t, rec).Error; e != "invalid_field" {
			t.Errorf("%s: unexpected error code %q", name, e)
		}
	}
}

func TestSchemaRejectionNamesField(t *testing.T) {
	h := newRouter(t, 1<<20)
	rec := do(t, h, http.MethodPost, "/listings", "application/json",
		[]byte(`{"custom_id":"x","state":"Texas","type":"sale","price":-1}`))
	if rec.Code != http.StatusBadRequest || decode[listingResp](t, rec).Field != "price" {
		t.Fatalf("expected price to be named: %d %s", rec.Code, rec.Body.String())
	}
	for ptr, want := range map[string]string{"/price": "price", "/images/0": "images", "": "", "/a~1b": "a/b"} {
		if got := topField(ptr); got != want {
			t.Errorf("topField(%q) = %q, want %q", ptr, got, want)
		}
	}
}

func TestCreateTooLarge(t *testing.T) {
	h := newRouter(t, 64)
	body := `{"custom_id":"x","state":"Texas","type":"sale","description":"` + strings.Repeat("a", 200) + `"}`
	rec := do(t, h, http.MethodPost, "/listings", "application/json", []byte(body))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d %s", rec.Code, rec.Body.String())
	}
}

func multipartBody(t *testing.T, listingJSON string, files map[string][]byte, order []string) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if listingJSON != "" {
		if err := mw.WriteField(formListing, listingJSON); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range order {
		fw, err := mw.CreateFormFile(formPhotos, name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(files[name])
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return mw.FormDataContentType(), buf.Bytes()
}

func TestCreateMultipartAndPhotos(t *testing.T) {
	h := newRouter(t, 4<<20)
	ct, body := multipartBody(t,
		`{"custom_id":"M1","state":"Ohio","type":"rent","images":["http://cdn.example.com/a.jpg","data:image/png;base64,!!!"]}`,
		map[string][]byte{"front.png": pngBytes(t), "anim.gif": []byte("GIF89a")},
		[]string{"front.png", "anim.gif"},
	)
	rec := do(t, h, http.MethodPost, "/listings", ct, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[listingResp](t, rec)
	if len(got.Listing.Images) != 3 || len(got.PhotoErrors) != 1 || got.PhotoErrors[0].Name != "anim.gif" {
		t.Fatalf("unexpected result %+v", got)
	}

	rec = do(t, h, http.MethodGet, "/listings/M1/photos/0", "", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "http://cdn.example.com/a.jpg" {
		t.Fatalf("reference: %d %v", rec.Code, rec.Header())
	}
	rec = do(t, h, http.MethodGet, "/listings/M1/photos/1", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("corrupt: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodGet, "/listings/M1/photos/2", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("decoded: %d %v", rec.Code, rec.Header())
	}
	cfg, err := png.DecodeConfig(rec.Body)
	if err != nil || cfg.Width != 600 || cfg.Height != 400 {
		t.Fatalf("decoded photo %+v err=%v", cfg, err)
	}
	if rec := do(t, h, http.MethodGet, "/listings/M1/photos/7", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("out of range: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/listings/M1/photos/x", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad index: %d", rec.Code)
	}

	ct, body = multipartBody(t, "", map[string][]byte{"side.png": pngBytes(t)}, []string{"side.png"})
	rec = do(t, h, http.MethodPost, "/listings/M1/photos", ct, body)
	if rec.Code != http.StatusOK || len(decode[listingResp](t, rec).Listing.Images) != 4 {
		t.Fatalf("attach: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/listings/M1/photos/import", "application/json", []byte(`{"urls":["http://example.com/a.png"]}`))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("import without fetcher: %d %s", rec.Code, rec.Body.String())
	}
}

type searchResp struct {
	Count   int                `json:"count"`
	Results []listing.Property `json:"results"`
}

func TestSearchAndExport(t *testing.T) {
	h := newRouter(t, 1<<20)
	createJSON(t, h, `{"custom_id":"S1","city":"Los Angeles","state":"California","type":"sale","price":300000,"images":["http://x/1.jpg"]}`)
	createJSON(t, h, `{"custom_id":"S2","city":"Los Gatos","state":"California","type":"sale","price":100000}`)
	createJSON(t, h, `{"custom_id":"S1","city":"Los Banos","state":"California","type":"sale","price":200000}`)
	createJSON(t, h, `{"custom_id":"S3","city":"Fresno","state":"California","type":"rent","price":50}`)

	rec := do(t, h, http.MethodGet, "/listings/search?city=LOS&sort=desc", "", nil)
	got := decode[searchResp](t, rec)
	if got.Count != 2 || got.Results[0].CustomID != "S1" || got.Results[0].City != "Los Angeles" || got.Results[1].CustomID != "S2" {
		t.Fatalf("unexpected search %+v", got)
	}

	rec = do(t, h, http.MethodPost, "/listings/search", "application/json", []byte(`{"sort_by_price":"asc"}`))
	got = decode[searchResp](t, rec)
	if got.Count != 3 || got.Results[0].Price != 50 || got.Results[2].Price != 300000 {
		t.Fatalf("unexpected post search %+v", got)
	}
	rec = do(t, h, http.MethodPost, "/listings/search", "application/json", nil)
	if decode[searchResp](t, rec).Count != 3 {
		t.Fatalf("empty body should match all: %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/listings/export?format=csv&city=los", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Disposition"), "search_results.csv") {
		t.Fatalf("export: %d %v", rec.Code, rec.Header())
	}
	if strings.Contains(rec.Body.String(), "images") || !strings.HasPrefix(rec.Body.String(), "_id,custom_id,") {
		t.Fatalf("unexpected csv:\n%s", rec.Body.String())
	}
	rec = do(t, h, http.MethodGet, "/listings/export?city=los", "", nil)
	if rec.Header().Get("Content-Type") != "application/json" || !strings.Contains(rec.Body.String(), `"images": [`) {
		t.Fatalf("json export: %v\n%s", rec.Header(), rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/listings/export?format=pdf", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad format: %d", rec.Code)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	h := newRouter(t, 1<<20)
	createJSON(t, h, `{"custom_id":"U1","city":"Austin","state":"Texas","type":"sale","price":500}`)

	rec := do(t, h, http.MethodPatch, "/listings/U1", "application/json", []byte(`{"price":0,"city":"Dallas","description":null}`))
	got := decode[listingResp](t, rec)
	if rec.Code != http.StatusOK || got.Listing.Price != 0 || got.Listing.City != "Dallas" {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}

	for body, want := range map[string]string{
		`{}`:                   "no_changes",
		`{"custom_id":"U2"}`:   "invalid_field",
		`{"state":"Atlantis"}`: "invalid_field",
	} {
		rec := do(t, h, http.MethodPatch, "/listings/U1", "application/json", []byte(body))
		if rec.Code != http.StatusBadRequest || decode[listingResp](t, rec).Error != want {
			t.Errorf("%s: %d %s", body, rec.Code, rec.Body.String())
		}
	}
	if rec := do(t, h, http.MethodPatch, "/listings/nope", "application/json", []byte(`{"price":1}`)); rec.Code != http.StatusNotFound {
		t.Fatalf("patch missing: %d", rec.Code)
	}

	if rec := do(t, h, http.MethodDelete, "/listings/U1", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/listings/U1", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/listings/search?custom_id=U1", "", nil)
	if decode[searchResp](t, rec).Count != 0 {
		t.Fatalf("deleted listing still searchable: %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h := newRouter(t, 0)
	if rec := do(t, h, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	r := chi.NewRouter()
	RegisterHealth(r, HealthDeps{Ping: func(context.Context) error { return errors.New("down") }})
	if rec := do(t, r, http.MethodGet, "/health", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing health: %d", rec.Code)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{listing.ErrConflict, http.StatusConflict},
		{listing.Invalid("price", "negative"), http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		if got, _ := classify(tc.err); got != tc.want {
			t.Errorf("%v: got %d want %d", tc.err, got, tc.want)
		}
	}
}

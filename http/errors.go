package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/listings"
	"github.com/yourorg/listing-api/internal/logger"
	"github.com/yourorg/listing-api/internal/photos"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, req *http.Request, status int, code, detail string) {
	render.Status(req, status)
	render.JSON(w, req, ErrorResponse{Error: code, Detail: detail})
}

// classify maps a service error onto a status and error code.
func classify(err error) (int, string) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, listing.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, listing.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, listing.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, listing.ErrInvalidImageData):
		return http.StatusBadRequest, "invalid_image_data"
	case errors.Is(err, listing.ErrInvalidField):
		return http.StatusBadRequest, "invalid_field"
	case errors.Is(err, listings.ErrNoChanges):
		return http.StatusBadRequest, "no_changes"
	case errors.Is(err, listings.ErrNoPhotos):
		return http.StatusBadRequest, "no_usable_photos"
	case errors.Is(err, listing.ErrCorruptAsset):
		return http.StatusUnprocessableEntity, "corrupt_asset"
	case errors.Is(err, photos.ErrFetch):
		return http.StatusBadGateway, "photo_fetch_failed"
	case errors.Is(err, listings.ErrImportDisabled):
		return http.StatusNotImplemented, "import_disabled"
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondErr(w http.ResponseWriter, req *http.Request, err error) {
	status, code := classify(err)
	body := ErrorResponse{Error: code, Detail: err.Error()}
	var ve *listing.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		logger.FromContext(req.Context()).Error("request failed", "err", err)
		if status == http.StatusInternalServerError {
			body.Detail = ""
		}
	}
	render.Status(req, status)
	render.JSON(w, req, body)
}

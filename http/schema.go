package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yourorg/listing-api/internal/listing"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	listingSchema = mustSchema("schemas/listing.json")
	updateSchema  = mustSchema("schemas/listing_update.json")
)

func mustSchema(path string) *jsonschema.Schema {
	f, err := schemaFS.Open(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	c := jsonschema.NewCompiler()
	if err := c.AddResource(path, f); err != nil {
		panic(fmt.Sprintf("schema %s: %v", path, err))
	}
	return c.MustCompile(path)
}

// checkSchema validates raw JSON before it is bound to a Go type, so unknown
// members and wrong types are rejected with a readable reason.
func checkSchema(s *jsonschema.Schema, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return &listing.ValidationError{Reason: "malformed JSON: " + err.Error(), Kind: listing.ErrInvalidField}
	}
	if err := s.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return &listing.ValidationError{Reason: err.Error(), Kind: listing.ErrInvalidField}
		}
		leaf := leafCause(ve)
		return &listing.ValidationError{Field: topField(leaf.InstanceLocation), Reason: leafMessage(leaf), Kind: listing.ErrInvalidField}
	}
	return nil
}

func leafCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// topField returns the top-level member named by a JSON pointer such as
// "/images/0", or "" for the document root.
func topField(ptr string) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(ptr, "/"), "/")
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(first)
}

func leafMessage(ve *jsonschema.ValidationError) string {
	if ve.InstanceLocation == "" {
		return ve.Message
	}
	return ve.InstanceLocation + ": " + ve.Message
}

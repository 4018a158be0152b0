package listing

import (
	"bytes"
	"encoding/json"
)

// Opt tags a value with whether the caller supplied it, so an explicit zero
// is distinguishable from an omitted field.
type Opt[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Opt[T] { return Opt[T]{Value: v, Set: true} }

// UnmarshalJSON marks the option as set unless the member is null.
func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Input is an unvalidated listing as submitted by a caller. ZipCode stays
// textual because non-numeric input is coerced rather than rejected.
type Input struct {
	CustomID      string      `json:"custom_id"`
	Address       string      `json:"address"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	ZipCode       LooseString `json:"zip_code"`
	Price         int         `json:"price"`
	Bedrooms      int         `json:"bedrooms"`
	Bathrooms     float64     `json:"bathrooms"`
	SquareFootage int         `json:"square_footage"`
	Type          string      `json:"type"`
	DateListed    string      `json:"date_listed"`
	Description   string      `json:"description"`
	Images        []Asset     `json:"images,omitempty"`
}

// Update is a partial change to a listing; only Set fields are applied.
type Update struct {
	Address       Opt[string]      `json:"address"`
	City          Opt[string]      `json:"city"`
	State         Opt[string]      `json:"state"`
	ZipCode       Opt[LooseString] `json:"zip_code"`
	Price         Opt[int]         `json:"price"`
	Bedrooms      Opt[int]         `json:"bedrooms"`
	Bathrooms     Opt[float64]     `json:"bathrooms"`
	SquareFootage Opt[int]         `json:"square_footage"`
	Type          Opt[string]      `json:"type"`
	DateListed    Opt[string]      `json:"date_listed"`
	Description   Opt[string]      `json:"description"`
	Images        Opt[[]Asset]     `json:"images"`
}

package listing

import (
	"fmt"
	"strings"
)

// Field names as stored in documents and exported in headers.
const (
	FieldID            = "_id"
	FieldCustomID      = "custom_id"
	FieldAddress       = "address"
	FieldCity          = "city"
	FieldState         = "state"
	FieldZipCode       = "zip_code"
	FieldPrice         = "price"
	FieldBedrooms      = "bedrooms"
	FieldBathrooms     = "bathrooms"
	FieldSquareFootage = "square_footage"
	FieldType          = "type"
	FieldDateListed    = "date_listed"
	FieldDescription   = "description"
	FieldImages        = "images"
)

// Listing types, stored lower-case.
const (
	TypeSale = "sale"
	TypeRent = "rent"
)

// DateLayout is the serialized form of date_listed.
const DateLayout = "2006-01-02"

// Property is one listing record. ID is assigned by the backing store and is
// never part of the stored payload.
type Property struct {
	ID            string  `json:"_id,omitempty" bson:"-"`
	CustomID      string  `json:"custom_id" bson:"custom_id"`
	Address       string  `json:"address" bson:"address"`
	City          string  `json:"city" bson:"city"`
	State         string  `json:"state" bson:"state"`
	ZipCode       int     `json:"zip_code" bson:"zip_code"`
	Price         int     `json:"price" bson:"price"`
	Bedrooms      int     `json:"bedrooms" bson:"bedrooms"`
	Bathrooms     float64 `json:"bathrooms" bson:"bathrooms"`
	SquareFootage int     `json:"square_footage" bson:"square_footage"`
	Type          string  `json:"type" bson:"type"`
	DateListed    string  `json:"date_listed" bson:"date_listed"`
	Description   string  `json:"description" bson:"description"`
	Images        []Asset `json:"images" bson:"images"`
}

// Asset is an encoded photograph: either a data URI produced by the image
// codec or an opaque http(s) reference.
type Asset string

// IsReference reports whether the asset points at an external URL.
func (a Asset) IsReference() bool { return strings.HasPrefix(string(a), "http") }

// IsDataURI reports whether the asset embeds its image data.
func (a Asset) IsDataURI() bool { return strings.HasPrefix(string(a), "data:image") }

// Clone returns a deep copy so callers cannot alias a store's internal state.
func (p Property) Clone() Property {
	out := p
	if p.Images != nil {
		out.Images = append([]Asset(nil), p.Images...)
	}
	return out
}

// Changes maps field names to already validated values. custom_id is never a
// legal key.
type Changes map[string]any

// Apply writes each change onto p.
func (p *Property) Apply(ch Changes) error {
	for field, v := range ch {
		var ok bool
		switch field {
		case FieldAddress:
			p.Address, ok = v.(string)
		case FieldCity:
			p.City, ok = v.(string)
		case FieldState:
			p.State, ok = v.(string)
		case FieldZipCode:
			p.ZipCode, ok = v.(int)
		case FieldPrice:
			p.Price, ok = v.(int)
		case FieldBedrooms:
			p.Bedrooms, ok = v.(int)
		case FieldBathrooms:
			p.Bathrooms, ok = v.(float64)
		case FieldSquareFootage:
			p.SquareFootage, ok = v.(int)
		case FieldType:
			p.Type, ok = v.(string)
		case FieldDateListed:
			p.DateListed, ok = v.(string)
		case FieldDescription:
			p.Description, ok = v.(string)
		case FieldImages:
			var imgs []Asset
			imgs, ok = v.([]Asset)
			p.Images = append([]Asset(nil), imgs...)
		case FieldCustomID:
			return &ValidationError{Field: field, Reason: "custom_id is immutable", Kind: ErrInvalidField}
		default:
			return &ValidationError{Field: field, Reason: "unknown field", Kind: ErrInvalidField}
		}
		if !ok {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("unexpected value type %T", v), Kind: ErrInvalidField}
		}
	}
	return nil
}

// Package validate normalizes caller-supplied listing fields before they are
// persisted.
package validate

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/listing-api/internal/canon"
	"github.com/yourorg/listing-api/internal/listing"
)

type Options struct {
	// DropZeroUpdates reproduces the legacy update form, where an empty
	// string or a zero number meant "not supplied" and was never written.
	DropZeroUpdates bool
	// Now supplies the default date_listed. Defaults to time.Now.
	Now func() time.Time
}

type Validator struct {
	opts Options
}

func New(opts Options) *Validator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Validator{opts: opts}
}

// Validate turns raw input into a storable record.
func (v *Validator) Validate(in listing.Input) (listing.Property, error) {
	var p listing.Property
	p.CustomID = strings.TrimSpace(in.CustomID)
	if p.CustomID == "" {
		return p, listing.Invalid(listing.FieldCustomID, "required")
	}
	p.Address = strings.TrimSpace(in.Address)
	p.City = strings.TrimSpace(in.City)
	p.Description = in.Description

	var err error
	if p.State, err = state(in.State); err != nil {
		return p, err
	}
	p.ZipCode = ZipCode(string(in.ZipCode))
	if p.Price, err = nonNegative(listing.FieldPrice, in.Price); err != nil {
		return p, err
	}
	if p.Bedrooms, err = nonNegative(listing.FieldBedrooms, in.Bedrooms); err != nil {
		return p, err
	}
	if p.Bathrooms, err = bathrooms(in.Bathrooms); err != nil {
		return p, err
	}
	if p.SquareFootage, err = nonNegative(listing.FieldSquareFootage, in.SquareFootage); err != nil {
		return p, err
	}
	if p.Type, err = listingType(in.Type); err != nil {
		return p, err
	}
	if strings.TrimSpace(in.DateListed) == "" {
		p.DateListed = v.opts.Now().Format(listing.DateLayout)
	} else if p.DateListed, err = date(in.DateListed); err != nil {
		return p, err
	}
	if p.Images, err = assets(in.Images); err != nil {
		return p, err
	}
	return p, nil
}

// ValidateUpdate converts the supplied fields of u into store changes. An
// empty result means there is nothing to apply.
func (v *Validator) ValidateUpdate(u listing.Update) (listing.Changes, error) {
	ch := listing.Changes{}
	drop := v.opts.DropZeroUpdates

	if u.Address.Set && !(drop && u.Address.Value == "") {
		ch[listing.FieldAddress] = strings.TrimSpace(u.Address.Value)
	}
	if u.City.Set && !(drop && u.City.Value == "") {
		ch[listing.FieldCity] = strings.TrimSpace(u.City.Value)
	}
	if u.State.Set && !(drop && u.State.Value == "") {
		s, err := state(u.State.Value)
		if err != nil {
			return nil, err
		}
		ch[listing.FieldState] = s
	}
	if u.ZipCode.Set {
		if z := ZipCode(string(u.ZipCode.Value)); !(drop && z == 0) {
			ch[listing.FieldZipCode] = z
		}
	}
	for _, f := range []struct {
		name string
		opt  listing.Opt[int]
	}{
		{listing.FieldPrice, u.Price},
		{listing.FieldBedrooms, u.Bedrooms},
		{listing.FieldSquareFootage, u.SquareFootage},
	} {
		if !f.opt.Set || (drop && f.opt.Value == 0) {
			continue
		}
		n, err := nonNegative(f.name, f.opt.Value)
		if err != nil {
			return nil, err
		}
		ch[f.name] = n
	}
	if u.Bathrooms.Set && !(drop && u.Bathrooms.Value == 0) {
		b, err := bathrooms(u.Bathrooms.Value)
		if err != nil {
			return nil, err
		}
		ch[listing.FieldBathrooms] = b
	}
	if u.Type.Set && !(drop && u.Type.Value == "") {
		t, err := listingType(u.Type.Value)
		if err != nil {
			return nil, err
		}
		ch[listing.FieldType] = t
	}
	if u.DateListed.Set && !(drop && u.DateListed.Value == "") {
		d, err := date(u.DateListed.Value)
		if err != nil {
			return nil, err
		}
		ch[listing.FieldDateListed] = d
	}
	if u.Description.Set && !(drop && u.Description.Value == "") {
		ch[listing.FieldDescription] = u.Description.Value
	}
	if u.Images.Set && !(drop && len(u.Images.Value) == 0) {
		imgs, err := assets(u.Images.Value)
		if err != nil {
			return nil, err
		}
		ch[listing.FieldImages] = imgs
	}
	return ch, nil
}

// ZipCode parses s when it is made only of decimal digits and returns 0
// otherwise, including on overflow.
func ZipCode(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func state(s string) (string, error) {
	name := canon.StateName(strings.TrimSpace(s))
	if !canon.IsState(name) {
		return "", listing.Invalid(listing.FieldState, "not a recognized state: "+strconv.Quote(s))
	}
	return name, nil
}

func listingType(s string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if t != listing.TypeSale && t != listing.TypeRent {
		return "", listing.Invalid(listing.FieldType, "must be sale or rent")
	}
	return t, nil
}

func nonNegative(field string, n int) (int, error) {
	if n < 0 {
		return 0, listing.Invalid(field, "must not be negative")
	}
	return n, nil
}

func bathrooms(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, listing.Invalid(listing.FieldBathrooms, "must be a finite number")
	}
	if f < 0 {
		return 0, listing.Invalid(listing.FieldBathrooms, "must not be negative")
	}
	return f, nil
}

// date accepts a calendar date or an RFC 3339 timestamp and keeps the date.
func date(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(listing.DateLayout, s); err == nil {
		return t.Format(listing.DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(listing.DateLayout), nil
	}
	return "", listing.Invalid(listing.FieldDateListed, "expected YYYY-MM-DD")
}

func assets(in []listing.Asset) ([]listing.Asset, error) {
	out := make([]listing.Asset, 0, len(in))
	for i, a := range in {
		if !a.IsReference() && !a.IsDataURI() {
			return nil, listing.Invalid(listing.FieldImages, "image "+strconv.Itoa(i)+" is neither a URL nor a data URI")
		}
		out = append(out, a)
	}
	return out, nil
}

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/yourorg/listing-api/internal/listing"
)

func fixedNow() time.Time { return time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC) }

func validInput() listing.Input {
	return listing.Input{
		CustomID:      "LA-001",
		Address:       " 12 Sunset Blvd ",
		City:          "Los Angeles",
		State:         "California",
		ZipCode:       "90026",
		Price:         850000,
		Bedrooms:      3,
		Bathrooms:     2.5,
		SquareFootage: 1800,
		Type:          "Sale",
		DateListed:    "2024-02-01",
		Description:   "Hillside bungalow",
	}
}

func TestValidateNormalizes(t *testing.T) {
	p, err := New(Options{Now: fixedNow}).Validate(validInput())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.Type != "sale" {
		t.Fatalf("type not lower-cased: %q", p.Type)
	}
	if p.Address != "12 Sunset Blvd" {
		t.Fatalf("address not trimmed: %q", p.Address)
	}
	if p.ZipCode != 90026 || p.DateListed != "2024-02-01" {
		t.Fatalf("unexpected zip/date: %d %s", p.ZipCode, p.DateListed)
	}
	if p.Images == nil {
		t.Fatal("images should be an empty slice, not nil")
	}
}

func TestZipCodeIsLenient(t *testing.T) {
	cases := map[string]int{
		"90026":  90026,
		"02134":  2134,
		"9002A":  0,
		"":       0,
		"-123":   0,
		"12 345": 0,
		"99999999999999999999999": 0,
	}
	for in, want := range cases {
		if got := ZipCode(in); got != want {
			t.Errorf("ZipCode(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*listing.Input)
		field string
	}{
		{"missing id", func(in *listing.Input) { in.CustomID = "  " }, listing.FieldCustomID},
		{"bad state", func(in *listing.Input) { in.State = "Ontario" }, listing.FieldState},
		{"lowercase state", func(in *listing.Input) { in.State = "california" }, listing.FieldState},
		{"bad type", func(in *listing.Input) { in.Type = "lease" }, listing.FieldType},
		{"negative price", func(in *listing.Input) { in.Price = -1 }, listing.FieldPrice},
		{"negative bedrooms", func(in *listing.Input) { in.Bedrooms = -2 }, listing.FieldBedrooms},
		{"negative bathrooms", func(in *listing.Input) { in.Bathrooms = -0.5 }, listing.FieldBathrooms},
		{"negative sqft", func(in *listing.Input) { in.SquareFootage = -10 }, listing.FieldSquareFootage},
		{"bad date", func(in *listing.Input) { in.DateListed = "03/09/2024" }, listing.FieldDateListed},
		{"bad image", func(in *listing.Input) { in.Images = []listing.Asset{"file:///etc/passwd"} }, listing.FieldImages},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mut(&in)
			_, err := New(Options{}).Validate(in)
			var ve *listing.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tc.field || !errors.Is(err, listing.ErrInvalidField) {
				t.Fatalf("expected invalid %s, got %v", tc.field, err)
			}
		})
	}
}

func TestValidateStateAbbreviationAndDefaults(t *testing.T) {
	in := validInput()
	in.State = "ny"
	in.DateListed = ""
	in.Images = []listing.Asset{"https://cdn.example.com/a.jpg"}
	p, err := New(Options{Now: fixedNow}).Validate(in)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.State != "New York" {
		t.Fatalf("expected New York, got %q", p.State)
	}
	if p.DateListed != "2024-03-09" {
		t.Fatalf("expected default date, got %q", p.DateListed)
	}
	if len(p.Images) != 1 {
		t.Fatalf("expected reference image kept, got %v", p.Images)
	}
}

func TestValidateUpdateKeepsExplicitZero(t *testing.T) {
	ch, err := New(Options{}).ValidateUpdate(listing.Update{
		Price:    listing.Some(0),
		Bedrooms: listing.Some(0),
		Type:     listing.Some("RENT"),
	})
	if err != nil {
		t.Fatalf("validate update: %v", err)
	}
	if len(ch) != 3 || ch[listing.FieldPrice] != 0 || ch[listing.FieldType] != "rent" {
		t.Fatalf("unexpected changes: %v", ch)
	}
}

func TestValidateUpdateLegacyDropsZero(t *testing.T) {
	ch, err := New(Options{DropZeroUpdates: true}).ValidateUpdate(listing.Update{
		Price:       listing.Some(0),
		Description: listing.Some(""),
		Bathrooms:   listing.Some(1.5),
	})
	if err != nil {
		t.Fatalf("validate update: %v", err)
	}
	if len(ch) != 1 || ch[listing.FieldBathrooms] != 1.5 {
		t.Fatalf("expected only bathrooms, got %v", ch)
	}
}

func TestValidateUpdateEmpty(t *testing.T) {
	ch, err := New(Options{}).ValidateUpdate(listing.Update{})
	if err != nil || len(ch) != 0 {
		t.Fatalf("expected empty changes, got %v %v", ch, err)
	}
}

func TestValidateUpdateRejects(t *testing.T) {
	v := New(Options{})
	if _, err := v.ValidateUpdate(listing.Update{Price: listing.Some(-5)}); !errors.Is(err, listing.ErrInvalidField) {
		t.Fatalf("negative price: %v", err)
	}
	if _, err := v.ValidateUpdate(listing.Update{State: listing.Some("Atlantis")}); !errors.Is(err, listing.ErrInvalidField) {
		t.Fatalf("bad state: %v", err)
	}
	if _, err := v.ValidateUpdate(listing.Update{DateListed: listing.Some("yesterday")}); !errors.Is(err, listing.ErrInvalidField) {
		t.Fatalf("bad date: %v", err)
	}
}

// Package store owns listing persistence. The rest of the service depends only
// on the DocumentStore operations, never on a particular database.
package store

import (
	"context"
	"iter"

	"github.com/yourorg/listing-api/internal/canon"
	"github.com/yourorg/listing-api/internal/listing"
)

// Match selects how a Term compares a field.
type Match int

const (
	// MatchContains is a case-insensitive substring test.
	MatchContains Match = iota
	// MatchEquals is an exact, case-sensitive comparison.
	MatchEquals
)

// Term tests one textual field.
type Term struct {
	Field string
	Value string
	Match Match
}

// Predicate is the conjunction of its terms. An empty predicate matches every
// document.
type Predicate []Term

// SearchableFields are the fields a Term may name.
var SearchableFields = []string{
	listing.FieldCustomID,
	listing.FieldAddress,
	listing.FieldCity,
	listing.FieldState,
	listing.FieldType,
}

// ByCustomID selects documents whose custom_id is exactly id.
func ByCustomID(id string) Predicate {
	return Predicate{{Field: listing.FieldCustomID, Value: id, Match: MatchEquals}}
}

// Matches evaluates p against rec in process.
func (p Predicate) Matches(rec listing.Property) bool {
	for _, t := range p {
		v := fieldText(rec, t.Field)
		switch t.Match {
		case MatchEquals:
			if v != t.Value {
				return false
			}
		default:
			if !canon.ContainsFold(v, t.Value) {
				return false
			}
		}
	}
	return true
}

func fieldText(rec listing.Property, field string) string {
	switch field {
	case listing.FieldCustomID:
		return rec.CustomID
	case listing.FieldAddress:
		return rec.Address
	case listing.FieldCity:
		return rec.City
	case listing.FieldState:
		return rec.State
	case listing.FieldType:
		return rec.Type
	}
	return ""
}

// DocumentStore is the keyed document store boundary. Implementations provide
// single-document atomicity only; iteration order is whatever the backend
// yields.
type DocumentStore interface {
	// Insert stores doc and returns the backend-assigned document id.
	Insert(ctx context.Context, doc listing.Property) (string, error)
	FindOne(ctx context.Context, p Predicate) (listing.Property, bool, error)
	Find(ctx context.Context, p Predicate) iter.Seq2[listing.Property, error]
	// UpdateOne applies ch to the first matching document.
	UpdateOne(ctx context.Context, p Predicate, ch listing.Changes) (bool, error)
	// DeleteMany removes every matching document and reports how many.
	DeleteMany(ctx context.Context, p Predicate) (int64, error)
	Ping(ctx context.Context) error
}

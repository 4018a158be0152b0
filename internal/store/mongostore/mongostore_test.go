package mongostore

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/store"
)

func TestFilterTranslation(t *testing.T) {
	f := Filter(store.Predicate{
		{Field: listing.FieldCity, Value: "St. Louis"},
		{Field: listing.FieldCustomID, Value: "A-1", Match: store.MatchEquals},
	})
	if len(f) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(f))
	}
	re, ok := f[0].Value.(primitive.Regex)
	if !ok || re.Pattern != `St\. Louis` || re.Options != "i" {
		t.Fatalf("unexpected regex %#v", f[0].Value)
	}
	if f[1].Key != listing.FieldCustomID || f[1].Value != "A-1" {
		t.Fatalf("unexpected equality term %#v", f[1])
	}
	if len(Filter(nil)) != 0 {
		t.Fatal("empty predicate should produce an empty filter")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	oid := primitive.NewObjectID()
	in := document{ID: oid, Property: listing.Property{CustomID: "X", City: "Austin", Bathrooms: 1.5}}
	raw, err := bson.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat bson.M
	if err := bson.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if flat["custom_id"] != "X" || flat["city"] != "Austin" {
		t.Fatalf("property fields not inlined: %v", flat)
	}
	var out document
	if err := bson.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p := out.property()
	if p.ID != oid.Hex() || p.Bathrooms != 1.5 || p.Images == nil {
		t.Fatalf("unexpected property %+v", p)
	}
}

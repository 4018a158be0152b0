package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/listing-api/internal/listing"
)

func TestCriteriaHashNormalizes(t *testing.T) {
	a := CriteriaHash(listing.Criteria{City: " Austin ", SortByPrice: "ascending"})
	b := CriteriaHash(listing.Criteria{City: "Austin", SortByPrice: listing.SortAsc})
	if a != b {
		t.Fatalf("equivalent criteria hashed differently: %s vs %s", a, b)
	}
	if a == CriteriaHash(listing.Criteria{City: "Austin"}) {
		t.Fatal("sort order must be part of the key")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}

func TestLockerUnreachable(t *testing.T) {
	// nothing listens on port 1
	c := New("127.0.0.1:1", "", 0)
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := NewLocker(c).Lock(ctx, "A1"); err == nil {
		t.Fatal("expected error without a server")
	}
}

func TestSearchCacheUnreachable(t *testing.T) {
	c := New("127.0.0.1:1", "", 0)
	defer c.Close()
	sc := NewSearchCache(c, 0)
	if sc.ttl != 2*time.Minute {
		t.Fatalf("default ttl not applied: %v", sc.ttl)
	}
	if _, _, err := sc.Get(context.Background(), listing.Criteria{}); err == nil {
		t.Fatal("expected error without a server")
	}
}

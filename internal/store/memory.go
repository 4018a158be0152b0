package store

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/yourorg/listing-api/internal/listing"
)

// Memory is an in-process DocumentStore that iterates in insertion order.
type Memory struct {
	mu   sync.RWMutex
	docs []listing.Property
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Insert(_ context.Context, doc listing.Property) (string, error) {
	doc = doc.Clone()
	doc.ID = uuid.NewString()
	m.mu.Lock()
	m.docs = append(m.docs, doc)
	m.mu.Unlock()
	return doc.ID, nil
}

func (m *Memory) FindOne(_ context.Context, p Predicate) (listing.Property, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.docs {
		if p.Matches(d) {
			return d.Clone(), true, nil
		}
	}
	return listing.Property{}, false, nil
}

// Find yields a snapshot taken when iteration starts.
func (m *Memory) Find(_ context.Context, p Predicate) iter.Seq2[listing.Property, error] {
	return func(yield func(listing.Property, error) bool) {
		m.mu.RLock()
		var hits []listing.Property
		for _, d := range m.docs {
			if p.Matches(d) {
				hits = append(hits, d.Clone())
			}
		}
		m.mu.RUnlock()
		for _, d := range hits {
			if !yield(d, nil) {
				return
			}
		}
	}
}

func (m *Memory) UpdateOne(_ context.Context, p Predicate, ch listing.Changes) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.docs {
		if !p.Matches(d) {
			continue
		}
		next := d.Clone()
		if err := next.Apply(ch); err != nil {
			return false, err
		}
		m.docs[i] = next
		return true, nil
	}
	return false, nil
}

func (m *Memory) DeleteMany(_ context.Context, p Predicate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.docs[:0]
	var n int64
	for _, d := range m.docs {
		if p.Matches(d) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	clear(m.docs[len(kept):])
	m.docs = kept
	return n, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

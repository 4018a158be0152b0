// Package mongostore keeps listings in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/store"
)

type Store struct {
	coll *mongo.Collection
}

// Connect dials uri and verifies the connection before returning.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func New(coll *mongo.Collection) *Store { return &Store{coll: coll} }

// EnsureIndexes creates the non-unique custom_id lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: listing.FieldCustomID, Value: 1}},
		Options: options.Index().SetName("idx_custom_id"),
	})
	return err
}

// document wraps a listing with its ObjectID.
type document struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	listing.Property `bson:",inline"`
}

func (d document) property() listing.Property {
	p := d.Property
	if !d.ID.IsZero() {
		p.ID = d.ID.Hex()
	}
	if p.Images == nil {
		p.Images = []listing.Asset{}
	}
	return p
}

// Filter translates a predicate into a query document. Substring terms become
// case-insensitive regular expressions over the quoted value.
func Filter(p store.Predicate) bson.D {
	f := bson.D{}
	for _, t := range p {
		switch t.Match {
		case store.MatchEquals:
			f = append(f, bson.E{Key: t.Field, Value: t.Value})
		default:
			f = append(f, bson.E{Key: t.Field, Value: primitive.Regex{Pattern: regexp.QuoteMeta(t.Value), Options: "i"}})
		}
	}
	return f
}

func (s *Store) Insert(ctx context.Context, doc listing.Property) (string, error) {
	res, err := s.coll.InsertOne(ctx, document{Property: doc})
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (s *Store) FindOne(ctx context.Context, p store.Predicate) (listing.Property, bool, error) {
	var d document
	err := s.coll.FindOne(ctx, Filter(p)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return listing.Property{}, false, nil
	}
	if err != nil {
		return listing.Property{}, false, err
	}
	return d.property(), true, nil
}

func (s *Store) Find(ctx context.Context, p store.Predicate) iter.Seq2[listing.Property, error] {
	return func(yield func(listing.Property, error) bool) {
		cur, err := s.coll.Find(ctx, Filter(p))
		if err != nil {
			yield(listing.Property{}, err)
			return
		}
		defer cur.Close(context.WithoutCancel(ctx))
		for cur.Next(ctx) {
			var d document
			if err := cur.Decode(&d); err != nil {
				yield(listing.Property{}, err)
				return
			}
			if !yield(d.property(), nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(listing.Property{}, err)
		}
	}
}

func (s *Store) UpdateOne(ctx context.Context, p store.Predicate, ch listing.Changes) (bool, error) {
	set := bson.M{}
	for k, v := range ch {
		set[k] = v
	}
	res, err := s.coll.UpdateOne(ctx, Filter(p), bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) DeleteMany(ctx context.Context, p store.Predicate) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, Filter(p))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

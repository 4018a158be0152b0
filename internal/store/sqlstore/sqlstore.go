// Package sqlstore keeps listings in a relational table: indexed text columns
// for matching plus the full record as a JSON document.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/yourorg/listing-api/internal/canon"
	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/store"
)

type Store struct {
	DB      *sql.DB
	dialect Dialect
}

func Open(d Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(d.MaxOpenConns)
	db.SetMaxIdleConns(d.MaxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db, dialect: d}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Migrate(ctx context.Context) error {
	for _, q := range s.dialect.Schema {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("%s migrate: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// columns maps searchable fields to their columns. Each has a <col>_fold
// twin holding canon.Fold of the value, which substring terms match against
// so case folding is the same Unicode folding used in process.
var columns = map[string]string{
	listing.FieldCustomID: "custom_id",
	listing.FieldAddress:  "address",
	listing.FieldCity:     "city",
	listing.FieldState:    "state",
	listing.FieldType:     "type",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// where renders p as a WHERE clause and its arguments.
func (s *Store) where(p store.Predicate) (string, []any, error) {
	if len(p) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(p))
	args := make([]any, 0, len(p))
	for _, t := range p {
		col, ok := columns[t.Field]
		if !ok {
			return "", nil, listing.Invalid(t.Field, "not searchable")
		}
		ph := s.dialect.arg(len(args) + 1)
		switch t.Match {
		case store.MatchEquals:
			conds = append(conds, col+" = "+ph)
			args = append(args, t.Value)
		default:
			conds = append(conds, col+"_fold LIKE "+ph+` ESCAPE '\'`)
			args = append(args, "%"+likeEscaper.Replace(canon.Fold(t.Value))+"%")
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (s *Store) Insert(ctx context.Context, doc listing.Property) (string, error) {
	doc.ID = ""
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	d := s.dialect
	q := fmt.Sprintf(`INSERT INTO properties (custom_id, address, city, state, type, price, doc,
			custom_id_fold, address_fold, city_fold, state_fold, type_fold)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s) RETURNING id`,
		d.arg(1), d.arg(2), d.arg(3), d.arg(4), d.arg(5), d.arg(6), d.arg(7),
		d.arg(8), d.arg(9), d.arg(10), d.arg(11), d.arg(12))
	var id int64
	err = s.DB.QueryRowContext(ctx, q,
		doc.CustomID, doc.Address, doc.City, doc.State, doc.Type, doc.Price, string(raw),
		canon.Fold(doc.CustomID), canon.Fold(doc.Address), canon.Fold(doc.City), canon.Fold(doc.State), canon.Fold(doc.Type),
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

type scanner interface{ Scan(dest ...any) error }

func scanProperty(r scanner) (listing.Property, error) {
	var (
		id  int64
		raw string
	)
	if err := r.Scan(&id, &raw); err != nil {
		return listing.Property{}, err
	}
	var p listing.Property
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return listing.Property{}, fmt.Errorf("decode row %d: %w", id, err)
	}
	p.ID = strconv.FormatInt(id, 10)
	if p.Images == nil {
		p.Images = []listing.Asset{}
	}
	return p, nil
}

// selectDoc casts doc to text so both engines scan it into a string.
func (s *Store) selectDoc() string {
	if s.dialect.Name == Postgres.Name {
		return "SELECT id, doc::text FROM properties"
	}
	return "SELECT id, doc FROM properties"
}

func (s *Store) FindOne(ctx context.Context, p store.Predicate) (listing.Property, bool, error) {
	w, args, err := s.where(p)
	if err != nil {
		return listing.Property{}, false, err
	}
	rec, err := scanProperty(s.DB.QueryRowContext(ctx, s.selectDoc()+w+" ORDER BY id LIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return listing.Property{}, false, nil
	}
	if err != nil {
		return listing.Property{}, false, err
	}
	return rec, true, nil
}

func (s *Store) Find(ctx context.Context, p store.Predicate) iter.Seq2[listing.Property, error] {
	return func(yield func(listing.Property, error) bool) {
		w, args, err := s.where(p)
		if err != nil {
			yield(listing.Property{}, err)
			return
		}
		rows, err := s.DB.QueryContext(ctx, s.selectDoc()+w+" ORDER BY id", args...)
		if err != nil {
			yield(listing.Property{}, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanProperty(rows)
			if err != nil {
				yield(listing.Property{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(listing.Property{}, err)
		}
	}
}

// UpdateOne rewrites the lowest-id matching row inside a transaction.
func (s *Store) UpdateOne(ctx context.Context, p store.Predicate, ch listing.Changes) (bool, error) {
	w, args, err := s.where(p)
	if err != nil {
		return false, err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanProperty(tx.QueryRowContext(ctx, s.selectDoc()+w+" ORDER BY id LIMIT 1"+s.dialect.ForUpdate, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rec.Apply(ch); err != nil {
		return false, err
	}
	id := rec.ID
	rec.ID = ""
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	d := s.dialect
	q := fmt.Sprintf(`UPDATE properties SET address = %s, city = %s, state = %s, type = %s, price = %s, doc = %s,
			address_fold = %s, city_fold = %s, state_fold = %s, type_fold = %s, updated_at = %s
		WHERE id = %s`, d.arg(1), d.arg(2), d.arg(3), d.arg(4), d.arg(5), d.arg(6),
		d.arg(7), d.arg(8), d.arg(9), d.arg(10), d.Now, d.arg(11))
	rowID, _ := strconv.ParseInt(id, 10, 64)
	if _, err := tx.ExecContext(ctx, q, rec.Address, rec.City, rec.State, rec.Type, rec.Price, string(raw),
		canon.Fold(rec.Address), canon.Fold(rec.City), canon.Fold(rec.State), canon.Fold(rec.Type), rowID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteMany(ctx context.Context, p store.Predicate) (int64, error) {
	w, args, err := s.where(p)
	if err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(ctx, "DELETE FROM properties"+w, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

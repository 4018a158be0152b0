package sqlstore

import "strconv"

// Dialect captures the SQL differences between supported engines.
type Dialect struct {
	Name   string
	Driver string
	// Schema runs in order on Migrate.
	Schema []string
	// ForUpdate is appended to the row lock query inside UpdateOne.
	ForUpdate string
	Now       string
	// MaxOpenConns caps the pool; sqlite serializes writers anyway.
	MaxOpenConns int
	placeholder  func(n int) string
}

func (d Dialect) arg(n int) string { return d.placeholder(n) }

var Postgres = Dialect{
	Name:   "postgres",
	Driver: "pgx",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id          BIGSERIAL PRIMARY KEY,
			custom_id   TEXT NOT NULL,
			address     TEXT NOT NULL DEFAULT '',
			city        TEXT NOT NULL DEFAULT '',
			state       TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			custom_id_fold TEXT NOT NULL DEFAULT '',
			address_fold   TEXT NOT NULL DEFAULT '',
			city_fold      TEXT NOT NULL DEFAULT '',
			state_fold     TEXT NOT NULL DEFAULT '',
			type_fold      TEXT NOT NULL DEFAULT '',
			price       BIGINT NOT NULL DEFAULT 0,
			doc         JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_custom_id ON properties(custom_id);`,
	},
	ForUpdate:    " FOR UPDATE",
	Now:          "now()",
	MaxOpenConns: 10,
	placeholder:  func(n int) string { return "$" + strconv.Itoa(n) },
}

var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			custom_id   TEXT NOT NULL,
			address     TEXT NOT NULL DEFAULT '',
			city        TEXT NOT NULL DEFAULT '',
			state       TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			custom_id_fold TEXT NOT NULL DEFAULT '',
			address_fold   TEXT NOT NULL DEFAULT '',
			city_fold      TEXT NOT NULL DEFAULT '',
			state_fold     TEXT NOT NULL DEFAULT '',
			type_fold      TEXT NOT NULL DEFAULT '',
			price       INTEGER NOT NULL DEFAULT 0,
			doc         TEXT NOT NULL,
			created_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_custom_id ON properties(custom_id);`,
	},
	Now:          "CURRENT_TIMESTAMP",
	MaxOpenConns: 1,
	placeholder:  func(int) string { return "?" },
}

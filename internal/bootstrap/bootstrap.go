// Package bootstrap wires configured backends for the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"

	"github.com/yourorg/listing-api/internal/codec"
	"github.com/yourorg/listing-api/internal/config"
	"github.com/yourorg/listing-api/internal/events"
	"github.com/yourorg/listing-api/internal/listings"
	"github.com/yourorg/listing-api/internal/logger"
	"github.com/yourorg/listing-api/internal/photos"
	"github.com/yourorg/listing-api/internal/redisx"
	"github.com/yourorg/listing-api/internal/store"
	"github.com/yourorg/listing-api/internal/store/mongostore"
	"github.com/yourorg/listing-api/internal/store/sqlstore"
	"github.com/yourorg/listing-api/internal/validate"
)

// Logger builds the process logger. The returned closer flushes Fluent.
func Logger(cfg config.LogConfig, tag string) (*slog.Logger, func() error) {
	lc := logger.Config{
		Writer:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Level),
		JSON:      cfg.Format == "json",
		FluentTag: tag,
	}
	closer := func() error { return nil }
	if cfg.FluentHost != "" {
		fl, err := fluent.New(fluent.Config{
			FluentHost: cfg.FluentHost,
			FluentPort: cfg.FluentPort,
			Async:      true,
			TagPrefix:  "listings",
		})
		if err != nil {
			slog.Warn("fluent unavailable, logging to stdout only", "host", cfg.FluentHost, "err", err)
		} else {
			lc.Fluent = fl
			closer = fl.Close
		}
	}
	return logger.New(lc), closer
}

// OpenStore connects the configured document store, checks it and prepares
// its schema or indexes.
func OpenStore(ctx context.Context, cfg *config.AppConfig) (store.DocumentStore, io.Closer, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		s := mongostore.New(client.Database(cfg.Mongo.DB).Collection(cfg.Mongo.Collection))
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return s, closerFunc(func() error { return client.Disconnect(context.Background()) }), nil

	case config.DriverPostgres, config.DriverSQLite:
		d, dsn := sqlstore.Postgres, cfg.PostgresDSN
		if cfg.StoreDriver == config.DriverSQLite {
			d, dsn = sqlstore.SQLite, cfg.SQLitePath
		}
		s, err := sqlstore.Open(d, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("%s ping: %w", d.Name, err)
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, s, nil
	}
	return store.NewMemory(), closerFunc(func() error { return nil }), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Runtime is the assembled service and everything that must be closed with it.
type Runtime struct {
	Service *listings.Service
	Store   *store.PropertyStore
	closers []io.Closer
	// Events is set when events stay in process.
	Events *events.InMemory
}

func (rt *Runtime) Close() error {
	var first error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build assembles the listing service from cfg. Redis and AMQP are optional;
// when Redis is unreachable the service runs without cache and uses
// in-process locking.
func Build(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*Runtime, error) {
	docs, closer, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{closers: []io.Closer{closer}}

	deps := listings.Deps{
		Validator: validate.New(validate.Options{}),
		Codec:     &codec.Codec{Width: cfg.Photos.Width, Height: cfg.Photos.Height, JPEGQuality: codec.DefaultJPEGQuality},
		Photos: photos.NewFetcher(photos.Options{
			Timeout:  cfg.Photos.FetchTimeout,
			PerSec:   cfg.Photos.FetchPerSec,
			MaxBytes: cfg.MaxUploadBytes,
			Logger:   log,
		}),
	}

	storeOpts := store.Options{EnforceUniqueKey: cfg.EnforceUniqueKey}
	if cfg.Redis.Addr != "" {
		rc := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, running without search cache", "addr", cfg.Redis.Addr, "err", err)
			_ = rc.Close()
		} else {
			rt.closers = append(rt.closers, rc)
			deps.Cache = redisx.NewSearchCache(rc, cfg.Redis.TTL)
			storeOpts.Locker = redisx.NewLocker(rc)
		}
	}

	if cfg.AMQP.URL != "" {
		pub, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pub)
		deps.Events = pub
	} else {
		rt.Events = events.NewInMemory(256)
		deps.Events = rt.Events
	}

	rt.Store = store.NewPropertyStore(docs, storeOpts)
	deps.Store = rt.Store
	rt.Service = listings.New(deps)
	return rt, nil
}

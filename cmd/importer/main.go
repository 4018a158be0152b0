package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yourorg/listing-api/internal/bootstrap"
	"github.com/yourorg/listing-api/internal/config"
	"github.com/yourorg/listing-api/internal/env"
	"github.com/yourorg/listing-api/internal/importer"
)

func main() {
	file := flag.String("file", env.Get("IMPORT_FILE", ""), "JSON array of listings to import")
	workers := flag.Int("workers", env.GetInt("IMPORT_WORKERS", 1), "concurrent inserts")
	timeout := flag.Duration("record-timeout", env.GetDuration("IMPORT_RECORD_TIMEOUT", 30*time.Second), "per record timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log, closeLog := bootstrap.Logger(cfg.Log, "importer")
	defer closeLog()
	slog.SetDefault(log)

	if *file == "" {
		log.Error("an import file is required (-file or IMPORT_FILE)")
		os.Exit(2)
	}
	f, err := os.Open(*file)
	if err != nil {
		log.Error("open import file", "err", err)
		os.Exit(1)
	}
	recs, err := importer.ReadRecords(f)
	f.Close()
	if err != nil {
		log.Error("read import file", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("startup", "err", err)
		os.Exit(1)
	}
	defer rt.Close()

	job := &importer.Job{
		Service: rt.Service,
		Logger:  log,
		Config: importer.Config{
			BaseDir:       filepath.Dir(*file),
			Workers:       *workers,
			RecordTimeout: *timeout,
		},
	}
	sum, err := job.Run(ctx, recs)
	out, _ := json.Marshal(sum)
	log.Info("import finished", "summary", string(out), "driver", cfg.StoreDriver)
	if err != nil {
		for _, e := range unwrapAll(err) {
			log.Warn("import failure", "err", e)
		}
		if errors.Is(err, context.Canceled) || sum.Created == 0 {
			os.Exit(1)
		}
	}
}

func unwrapAll(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

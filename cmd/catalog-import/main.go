// Command catalog-import loads gzip-compressed JSON-lines product files into
// the catalog. Files are decoded concurrently. Products that appear in more
// than one file are reported and the copy from the last file wins.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"

	"github.com/Parzival048/ecomreact/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		workers     int
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz product files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 8, "concurrent upserts")
	flag.BoolVar(&dryRun, "dry-run", false, "decode and merge without writing")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, workers, dryRun); err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir, databaseURL string, workers int, dryRun bool) error {
	paths, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob")
	}
	if len(paths) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}
	sort.Strings(paths)

	slog.Info("decoding files", slog.Int("files", len(paths)))
	files, err := readFiles(ctx, paths)
	if err != nil {
		return err
	}

	products, dups := merge(files)
	for _, d := range dups {
		slog.Warn("product in multiple files",
			slog.String("id", d.ID),
			slog.Any("files", d.Files),
		)
	}
	slog.Info("merged catalog",
		slog.Int("products", len(products)),
		slog.Int("duplicates", len(dups)),
	)
	if dryRun {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := upsertAll(ctx, postgres.NewProductRepository(pool), products, workers); err != nil {
		return err
	}
	slog.Info("import completed", slog.Int("products", len(products)))
	return nil
}

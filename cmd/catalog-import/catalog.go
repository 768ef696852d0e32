package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Parzival048/ecomreact/internal/domain/product"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	maxLineBytes  = 1 << 20
)

// catalogFile is one decoded input file.
type catalogFile struct {
	path     string
	products []product.Product
	ids      *bloom.BloomFilter
}

// Duplicate is a product id found in more than one file. The copy from the
// last file in argument order is imported.
type Duplicate struct {
	ID    string
	Files []string
}

// readFiles decodes every file concurrently.
func readFiles(ctx context.Context, paths []string) ([]catalogFile, error) {
	files := make([]catalogFile, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := readFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			files[i] = f
			slog.Info("file decoded",
				slog.String("path", path),
				slog.Int("products", len(f.products)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func readFile(ctx context.Context, path string) (catalogFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return catalogFile{}, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return catalogFile{}, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	products, err := decodeLines(ctx, gz)
	if err != nil {
		return catalogFile{}, err
	}

	ids := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for _, p := range products {
		ids.AddString(p.ID)
	}
	return catalogFile{path: path, products: products, ids: ids}, nil
}

// decodeLines parses one JSON product per line. Blank lines are skipped.
func decodeLines(ctx context.Context, r io.Reader) ([]product.Product, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		out  []product.Product
		line int
	)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		p, err := decodeProduct(jx.DecodeBytes(b))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		out = append(out, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return out, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "brand":
			p.Brand, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "countInStock":
			p.CountInStock, err = d.Int()
		case "price":
			if d.Next() == jx.String {
				var s string
				if s, err = d.Str(); err == nil {
					p.Price, err = decimal.NewFromString(s)
				}
				break
			}
			var n jx.Num
			if n, err = d.Num(); err == nil {
				p.Price, err = decimal.NewFromString(string(n))
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}

// merge flattens files into one product per id. A bloom hit against another
// file is confirmed against the exact set before it is reported.
func merge(files []catalogFile) ([]product.Product, []Duplicate) {
	var (
		order []string
		byID  = make(map[string]product.Product)
		seen  = make(map[string][]string)
	)
	for i, f := range files {
		for _, p := range f.products {
			maybeShared := false
			for j, other := range files {
				if j != i && other.ids.TestString(p.ID) {
					maybeShared = true
					break
				}
			}
			if _, ok := byID[p.ID]; !ok {
				order = append(order, p.ID)
			}
			byID[p.ID] = p
			if maybeShared {
				seen[p.ID] = appendUnique(seen[p.ID], f.path)
			}
		}
	}

	out := make([]product.Product, 0, len(order))
	var dups []Duplicate
	for _, id := range order {
		out = append(out, byID[id])
		if paths := seen[id]; len(paths) > 1 {
			dups = append(dups, Duplicate{ID: id, Files: paths})
		}
	}
	return out, dups
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// upsertAll writes products with bounded concurrency.
func upsertAll(ctx context.Context, repo product.Repository, products []product.Product, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range products {
		p := &products[i]
		g.Go(func() error {
			if err := repo.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			return nil
		})
	}
	return g.Wait()
}

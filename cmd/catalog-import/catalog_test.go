package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parzival048/ecomreact/internal/domain/product"
)

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDecodeLines(t *testing.T) {
	r := strings.NewReader(`{"id":"p1","name":"Mouse","price":"24.99","countInStock":3,"extra":{"a":[1,2]}}

{"id":"p2","name":"Pad","price":4.5,"brand":"Acme","category":"Desk","image":"pad.jpg","description":"Soft"}
`)
	got, err := decodeLines(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "24.99", got[0].Price.StringFixed(2))
	assert.Equal(t, 3, got[0].CountInStock)
	assert.Equal(t, "4.50", got[1].Price.StringFixed(2))
	assert.Equal(t, "Acme", got[1].Brand)
	assert.Equal(t, "pad.jpg", got[1].Image)
}

func TestDecodeLines_Errors(t *testing.T) {
	for name, input := range map[string]string{
		"Malformed":     `{"id":"p1",`,
		"BadPrice":      `{"id":"p1","name":"x","price":"abc"}`,
		"MissingName":   `{"id":"p1","price":"1"}`,
		"NegativeStock": `{"id":"p1","name":"x","price":"1","countInStock":-2}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeLines(context.Background(), strings.NewReader(input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestReadFilesAndMerge(t *testing.T) {
	dir := t.TempDir()
	a := writeGz(t, dir, "a.jsonl.gz",
		`{"id":"p1","name":"Mouse","price":"20"}`,
		`{"id":"p2","name":"Pad","price":"5"}`,
	)
	b := writeGz(t, dir, "b.jsonl.gz",
		`{"id":"p3","name":"Cable","price":"3"}`,
		`{"id":"p1","name":"Mouse v2","price":"22"}`,
	)

	files, err := readFiles(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, files[0].ids.TestString("p1"))

	products, dups := merge(files)
	require.Len(t, products, 3)
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{products[0].ID, products[1].ID, products[2].ID})
	assert.Equal(t, "Mouse v2", products[0].Name)

	require.Len(t, dups, 1)
	assert.Equal(t, "p1", dups[0].ID)
	assert.Equal(t, []string{a, b}, dups[0].Files)
}

func TestReadFiles_BadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.jsonl.gz")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"p1"}`), 0o600))

	_, err := readFiles(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plain.jsonl.gz")
}

type recordingRepo struct {
	product.Repository

	mu   sync.Mutex
	got  map[string]product.Product
	fail string
}

func (r *recordingRepo) Upsert(_ context.Context, p *product.Product) error {
	if p.ID == r.fail {
		return errors.New("boom")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got[p.ID] = *p
	return nil
}

func TestUpsertAll(t *testing.T) {
	products := []product.Product{{ID: "p1", Name: "a"}, {ID: "p2", Name: "b"}, {ID: "p3", Name: "c"}}

	t.Run("OK", func(t *testing.T) {
		repo := &recordingRepo{got: map[string]product.Product{}}
		require.NoError(t, upsertAll(context.Background(), repo, products, 2))
		assert.Len(t, repo.got, 3)
	})
	t.Run("Error", func(t *testing.T) {
		repo := &recordingRepo{got: map[string]product.Product{}, fail: "p2"}
		err := upsertAll(context.Background(), repo, products, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upsert product p2")
	})
}

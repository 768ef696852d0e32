package handler

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErr(t *testing.T) {
	require.NoError(t, fieldErr(nil, "qty"))

	err := fieldErr(errors.New("bad int"), "qty")
	require.Error(t, err)
	assert.Equal(t, "qty: bad int", err.Error())
}

func TestReadBody(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"refresh":true,"qty":2,"extra":[1]}`))
		got := map[string]bool{}
		err := readBody(r, func(d *jx.Decoder, key string) error {
			got[key] = true
			return fieldErr(d.Skip(), key)
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"refresh": true, "qty": true, "extra": true}, got)
	})
	t.Run("BadField", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"qty":"two"}`))
		err := readBody(r, func(d *jx.Decoder, key string) error {
			_, err := d.Int()
			return fieldErr(err, key)
		})
		require.ErrorIs(t, err, errBadRequest)
		assert.Contains(t, err.Error(), "qty")
	})
}

package dexapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolMidPrice(t *testing.T) {
	t.Run("scaled by decimals", func(t *testing.T) {
		p := Pool{
			Reserves: [2]string{"1000000000000", "500000000"},
			Assets: [2]Asset{
				{Symbol: "TON", Decimals: 9},
				{Symbol: "USDT", Decimals: 6},
			},
		}
		// 1000 TON vs 500 USDT.
		price, ok := p.MidPrice()
		require.True(t, ok)
		assert.InDelta(t, 0.5, price, 1e-9)
	})

	t.Run("equal decimals", func(t *testing.T) {
		p := Pool{
			Reserves: [2]string{"2000000000", "1000000000"},
			Assets:   [2]Asset{{Decimals: 9}, {Decimals: 9}},
		}
		price, ok := p.MidPrice()
		require.True(t, ok)
		assert.InDelta(t, 0.5, price, 1e-9)
	})

	t.Run("unparseable reserves", func(t *testing.T) {
		p := Pool{Reserves: [2]string{"abc", "1"}}
		_, ok := p.MidPrice()
		assert.False(t, ok)
	})

	t.Run("zero base", func(t *testing.T) {
		p := Pool{Reserves: [2]string{"0", "1000"}}
		_, ok := p.MidPrice()
		assert.False(t, ok)
	})

	t.Run("negative quote", func(t *testing.T) {
		p := Pool{Reserves: [2]string{"1000", "-1"}}
		_, ok := p.MidPrice()
		assert.False(t, ok)
	})
}

func TestGetPool(t *testing.T) {
	const addr = "EQA-X_yo3fzzbDbJ_0bzFWKqtRuZFIRa1sJsveZJ1YpViO3r"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/pools/"+addr, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"address": "` + addr + `",
			"reserves": ["1000000000000", "500000000000"],
			"assets": [{"symbol":"TON","decimals":9},{"symbol":"USDT","decimals":9}]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	pool, err := c.GetPool(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, addr, pool.Address)

	price, ok := pool.MidPrice()
	require.True(t, ok)
	assert.InDelta(t, 0.5, price, 1e-9)
}

func TestGetPoolErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := New(srv.URL).GetPool(context.Background(), "EQmissing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("bad body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer srv.Close()

		_, err := New(srv.URL).GetPool(context.Background(), "EQbad")
		assert.Error(t, err)
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := New(srv.URL).GetPool(context.Background(), "EQdown")
		assert.Error(t, err)
	})
}

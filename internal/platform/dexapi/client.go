// Package dexapi is the REST client for DEX indexer APIs that expose pool
// state. The default target is the DeDust v2 API; any indexer serving the
// same pool document shape works.
package dexapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the REST client for a pool-state indexer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client.
//
// baseURL is the API root, e.g. "https://api.dedust.io".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Asset describes one side of a pool.
type Asset struct {
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Pool is the indexer's view of a liquidity pool. Reserves are raw integer
// strings in each asset's native units.
type Pool struct {
	Address  string    `json:"address"`
	Reserves [2]string `json:"reserves"`
	Assets   [2]Asset  `json:"assets"`
}

// MidPrice returns the quote-per-base mid price implied by the reserves,
// scaled by each asset's decimals. It reports false when the reserves are
// missing, unparseable, or the base side is empty.
func (p Pool) MidPrice() (float64, bool) {
	base, err0 := strconv.ParseFloat(p.Reserves[0], 64)
	quote, err1 := strconv.ParseFloat(p.Reserves[1], 64)
	if err0 != nil || err1 != nil || base <= 0 || quote < 0 {
		return 0, false
	}

	scale := func(v float64, decimals int) float64 {
		for i := 0; i < decimals; i++ {
			v /= 10
		}
		return v
	}
	base = scale(base, p.Assets[0].Decimals)
	quote = scale(quote, p.Assets[1].Decimals)
	if base <= 0 {
		return 0, false
	}
	return quote / base, true
}

// GetPool fetches one pool by address.
func (c *Client) GetPool(ctx context.Context, address string) (Pool, error) {
	path := fmt.Sprintf("/v2/pools/%s", url.PathEscape(address))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return Pool{}, fmt.Errorf("dexapi: get pool %s: %w", address, err)
	}

	var pool Pool
	if err := json.Unmarshal(body, &pool); err != nil {
		return Pool{}, fmt.Errorf("dexapi: decode pool %s: %w", address, err)
	}
	return pool, nil
}

// doGet performs a GET request against the API root and returns the body.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

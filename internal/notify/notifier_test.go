package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonmev/tonmev/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSender captures deliveries and signals each one on a channel.
type recordingSender struct {
	mu       sync.Mutex
	titles   []string
	messages []string
	err      error
	sent     chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan struct{}, 16)}
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	s.mu.Lock()
	s.titles = append(s.titles, title)
	s.messages = append(s.messages, message)
	s.mu.Unlock()
	s.sent <- struct{}{}
	return s.err
}

func (s *recordingSender) Name() string { return "recording" }

var _ Sender = (*recordingSender)(nil)

func waitSent(t *testing.T, s *recordingSender) {
	t.Helper()
	select {
	case <-s.sent:
	case <-time.After(time.Second):
		t.Fatal("sender was not invoked")
	}
}

func arbitrageOpp(profit float64) domain.Opportunity {
	return domain.Opportunity{
		ID:             "o1",
		Strategy:       "arbitrage",
		Timestamp:      time.UnixMilli(1_700_000_000_000),
		ProfitEstimate: profit,
		Confidence:     0.6,
		Details: domain.ArbitrageDetails{
			Pair:         "TON/USDT",
			BuyDex:       "DeDust",
			SellDex:      "STON.fi",
			BuyPrice:     0.5,
			SellPrice:    0.51,
			PriceDiffPct: 2.0,
		},
	}
}

func TestAlerterDeliversAboveThreshold(t *testing.T) {
	sender := newRecordingSender()
	a := NewAlerter([]Sender{sender}, 0.5, testLogger())

	a.HandleOpportunities([]domain.Opportunity{arbitrageOpp(1.25)})
	waitSent(t, sender)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.titles, 1)
	assert.Contains(t, sender.titles[0], "arbitrage")
	assert.Contains(t, sender.titles[0], "1.2500 TON")
	assert.Contains(t, sender.messages[0], "buy DeDust @ 0.500000")
}

func TestAlerterSkipsBelowThreshold(t *testing.T) {
	sender := newRecordingSender()
	a := NewAlerter([]Sender{sender}, 0.5, testLogger())

	a.HandleOpportunities([]domain.Opportunity{arbitrageOpp(0.1)})

	select {
	case <-sender.sent:
		t.Fatal("below-threshold opportunity must not alert")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAlerterFanOutSurvivesFailingSender(t *testing.T) {
	failing := newRecordingSender()
	failing.err = errors.New("webhook 500")
	healthy := newRecordingSender()
	a := NewAlerter([]Sender{failing, healthy}, 0.5, testLogger())

	a.HandleOpportunities([]domain.Opportunity{arbitrageOpp(1.0)})
	waitSent(t, failing)
	waitSent(t, healthy)

	healthy.mu.Lock()
	defer healthy.mu.Unlock()
	assert.Len(t, healthy.titles, 1)
}

func TestFormatOpportunity(t *testing.T) {
	t.Run("arbitrage details", func(t *testing.T) {
		msg := formatOpportunity(arbitrageOpp(1.0))
		assert.Contains(t, msg, "strategy: arbitrage")
		assert.Contains(t, msg, "pair: TON/USDT")
		assert.Contains(t, msg, "sell STON.fi @ 0.510000")
		assert.Contains(t, msg, "diff 2.00%")
	})

	t.Run("sandwich details", func(t *testing.T) {
		opp := domain.Opportunity{
			Strategy:       "sandwich",
			Timestamp:      time.UnixMilli(1_700_000_000_000),
			ProfitEstimate: 0.8,
			Details: domain.SandwichDetails{
				Pair:           "TON/USDT",
				Dex:            "DeDust",
				TargetSwapSize: 50,
				PriceImpactPct: 2.1,
			},
		}
		msg := formatOpportunity(opp)
		assert.Contains(t, msg, "pair: TON/USDT on DeDust")
		assert.Contains(t, msg, "target size 50.00")
	})
}

func TestDiscordSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "title", "body"))
	assert.Equal(t, "**title**\nbody", got["content"])
}

func TestDiscordSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord")
	assert.Contains(t, err.Error(), "429")
}

// Package notify pushes opportunity alerts to operator channels. Senders are
// fire-and-forget HTTP clients; a failing channel never blocks detection or
// delivery to the remaining channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tonmev/tonmev/internal/domain"
)

// Sender is a single notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the sender in logs (e.g. "telegram").
	Name() string
}

// Alerter watches detected opportunities and notifies all senders about those
// whose profit estimate clears the alert threshold.
type Alerter struct {
	senders   []Sender
	minProfit float64
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAlerter creates an Alerter. minProfit is the smallest profit estimate,
// in TON, that triggers an alert.
func NewAlerter(senders []Sender, minProfit float64, logger *slog.Logger) *Alerter {
	return &Alerter{
		senders:   senders,
		minProfit: minProfit,
		timeout:   15 * time.Second,
		logger:    logger.With(slog.String("component", "notify")),
	}
}

// HandleOpportunities is wired as a subscriber on the strategy manager. It
// runs delivery in a goroutine so slow webhooks never stall the pipeline.
func (a *Alerter) HandleOpportunities(opps []domain.Opportunity) {
	for _, opp := range opps {
		if opp.ProfitEstimate < a.minProfit {
			continue
		}
		opp := opp
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			defer cancel()
			if err := a.notify(ctx, opp); err != nil {
				a.logger.Warn("alert delivery failed",
					slog.String("opportunity_id", opp.ID),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
}

func (a *Alerter) notify(ctx context.Context, opp domain.Opportunity) error {
	title := fmt.Sprintf("%s opportunity: %.4f TON", opp.Strategy, opp.ProfitEstimate)
	message := formatOpportunity(opp)

	var errs []string
	for _, s := range a.senders {
		if err := s.Send(ctx, title, message); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		a.logger.Debug("alert sent",
			slog.String("sender", s.Name()),
			slog.String("opportunity_id", opp.ID),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// formatOpportunity renders a human-readable alert body.
func formatOpportunity(opp domain.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "strategy: %s\n", opp.Strategy)
	fmt.Fprintf(&b, "profit estimate: %.6f TON\n", opp.ProfitEstimate)
	fmt.Fprintf(&b, "confidence: %.2f\n", opp.Confidence)
	fmt.Fprintf(&b, "detected: %s\n", opp.Timestamp.UTC().Format(time.RFC3339))

	switch d := opp.Details.(type) {
	case domain.ArbitrageDetails:
		fmt.Fprintf(&b, "pair: %s\nbuy %s @ %.6f, sell %s @ %.6f (diff %.2f%%)",
			d.Pair, d.BuyDex, d.BuyPrice, d.SellDex, d.SellPrice, d.PriceDiffPct)
	case domain.SandwichDetails:
		fmt.Fprintf(&b, "pair: %s on %s\ntarget size %.2f, impact %.2f%%",
			d.Pair, d.Dex, d.TargetSwapSize, d.PriceImpactPct)
	}
	return b.String()
}

// postJSON marshals payload and POSTs it, checking for a 2xx response. Both
// senders share it since Telegram and Discord speak plain JSON webhooks.
func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

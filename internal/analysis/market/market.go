// Package market implements an AnalysisProvider (internal/advisor) backed
// by live Yahoo Finance data, adapted from the teacher's
// internal/clients/yahoo.NativeClient. Where the teacher's client surfaced
// raw OHLCV history for a portfolio valuation pipeline, this one feeds that
// same history straight into the same indicator math internal/analysis/stub
// uses, producing a real Analysis Report instead of a fixture one.
package market

import (
	"context"
	"fmt"

	"github.com/aristath/arduino-trader/internal/analysis"
	"github.com/aristath/arduino-trader/internal/analysis/stub"
	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// Provider implements advisor.AnalysisProvider over go-yfinance daily
// closes, re-using stub.Builder for the indicator math (spec.md §6.1's
// Report shape is identical regardless of where the closes came from).
type Provider struct {
	builder *stub.Builder
	period  string
	log     zerolog.Logger
}

// NewProvider returns a Provider fetching period (a go-yfinance period
// string, e.g. "3mo") of daily closes per Acquire call.
func NewProvider(period string, log zerolog.Logger) *Provider {
	if period == "" {
		period = "3mo"
	}
	return &Provider{builder: stub.NewBuilder(), period: period, log: log.With().Str("component", "market_provider").Logger()}
}

// Acquire implements advisor.AnalysisProvider: fetches ticker's recent
// daily closes and builds a Report from them.
func (p *Provider) Acquire(ctx context.Context, ticker_ string) (*analysis.Report, error) {
	t, err := ticker.New(ticker_)
	if err != nil {
		return nil, fmt.Errorf("market: creating ticker %q: %w", ticker_, err)
	}
	defer t.Close()

	bars, err := t.History(models.HistoryParams{
		Period:     p.period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, fmt.Errorf("market: fetching history for %q: %w", ticker_, err)
	}

	closes := make([]float64, 0, len(bars))
	for _, bar := range bars {
		closes = append(closes, bar.Close)
	}

	report, err := p.builder.Build(stub.PriceSeries{Ticker: ticker_, Closes: closes})
	if err != nil {
		return nil, fmt.Errorf("market: building report for %q: %w", ticker_, err)
	}

	p.log.Debug().Str("ticker", ticker_).Int("bars", len(bars)).Msg("acquired analysis report")
	return report, nil
}

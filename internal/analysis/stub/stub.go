// Package stub is an illustrative external Analysis collaborator: it
// assembles an Analysis Report (spec.md §6.1) from a raw price series
// using github.com/markcheno/go-talib, the same indicator library the
// teacher's pkg/formulas wraps. It exists to demonstrate the Report's
// shape for demos and tests, not to specify real indicator computation —
// that stays out of the Rule Engine's scope (spec.md §1).
package stub

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/arduino-trader/internal/analysis"
	talib "github.com/markcheno/go-talib"
)

// PriceSeries is a minimal daily closing-price series, oldest first.
type PriceSeries struct {
	Ticker string
	Closes []float64
}

// Builder produces an illustrative Report from a PriceSeries.
type Builder struct{}

// NewBuilder returns a stub Builder.
func NewBuilder() *Builder { return &Builder{} }

// Build computes an illustrative Report from series.
func (b *Builder) Build(series PriceSeries) (*analysis.Report, error) {
	if len(series.Closes) < 15 {
		return nil, fmt.Errorf("stub: need at least 15 closes to compute RSI_14, got %d", len(series.Closes))
	}

	rsi := talib.Rsi(series.Closes, 14)
	lastRSI := rsi[len(rsi)-1]

	ema20 := talib.Ema(series.Closes, 20)
	direction := "sideways"
	if len(ema20) >= 2 {
		switch {
		case ema20[len(ema20)-1] > ema20[len(ema20)-2]:
			direction = "uptrend"
		case ema20[len(ema20)-1] < ema20[len(ema20)-2]:
			direction = "downtrend"
		}
	}

	fields := map[string]any{
		"technical_report.daily_report.key_indicators.rsi_14":                          lastRSI,
		"technical_report.daily_report.trend_report.midterm_report.ma_direction":       direction,
		"technical_report.daily_report.trend_report.overall_strength.value":            trendStrength(series.Closes),
		"technical_report.intraday_report.momentum_report.macd_crossover":              macdCrossover(series.Closes),
		"news_report.summary.num_positive_sentiment": 0,
		"news_report.summary.num_negative_sentiment": 0,
		"news_report.summary.num_high_impact":        0,
	}

	now := time.Now()
	return analysis.New(series.Ticker, now.UTC().Format(time.RFC3339), now.Unix(), fields), nil
}

// FixtureProvider implements advisor.AnalysisProvider over a fixed set of
// in-memory price series, letting demos/tests exercise the Advisor
// Orchestrator end-to-end without a real market data feed.
type FixtureProvider struct {
	builder *Builder
	series  map[string]PriceSeries
}

// NewFixtureProvider returns a FixtureProvider seeded with series.
func NewFixtureProvider(series map[string]PriceSeries) *FixtureProvider {
	return &FixtureProvider{builder: NewBuilder(), series: series}
}

// Acquire implements advisor.AnalysisProvider.
func (p *FixtureProvider) Acquire(_ context.Context, ticker string) (*analysis.Report, error) {
	series, ok := p.series[ticker]
	if !ok {
		return nil, fmt.Errorf("stub: no fixture price series for %q", ticker)
	}
	return p.builder.Build(series)
}

func trendStrength(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	first, last := closes[0], closes[len(closes)-1]
	if first == 0 {
		return 0
	}
	change := (last - first) / first
	if change < 0 {
		change = -change
	}
	if change > 1 {
		change = 1
	}
	return change
}

func macdCrossover(closes []float64) string {
	macd, signal, _ := talib.Macd(closes, 12, 26, 9)
	n := len(macd)
	if n < 2 || len(signal) < 2 {
		return "none"
	}
	prevDiff := macd[n-2] - signal[n-2]
	currDiff := macd[n-1] - signal[n-1]
	switch {
	case prevDiff <= 0 && currDiff > 0:
		return "bull"
	case prevDiff >= 0 && currDiff < 0:
		return "bear"
	default:
		return "none"
	}
}

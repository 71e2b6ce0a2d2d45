// Package analytics computes chart overlays and performance statistics for
// the dashboard views.
package analytics

import (
	"github.com/markcheno/go-talib"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

const (
	shortPeriod = 7
	longPeriod  = 30
)

// Indicators holds the latest moving-average overlays for a strain's price
// history. A value is nil when the history is too short for its period.
type Indicators struct {
	SMA7  *float64 `json:"sma_7,omitempty"`
	SMA30 *float64 `json:"sma_30,omitempty"`
	EMA7  *float64 `json:"ema_7,omitempty"`
	EMA30 *float64 `json:"ema_30,omitempty"`
}

// ComputeIndicators derives moving averages from a price history, oldest
// point first.
func ComputeIndicators(history []domain.PricePoint) Indicators {
	prices := closes(history)

	return Indicators{
		SMA7:  lastIndicator(prices, shortPeriod, talib.Sma),
		SMA30: lastIndicator(prices, longPeriod, talib.Sma),
		EMA7:  lastIndicator(prices, shortPeriod, talib.Ema),
		EMA30: lastIndicator(prices, longPeriod, talib.Ema),
	}
}

// closes extracts the price series from history points.
func closes(history []domain.PricePoint) []float64 {
	prices := make([]float64, len(history))
	for i, p := range history {
		prices[i] = p.Price
	}
	return prices
}

// lastIndicator runs a talib moving-average over the series and returns its
// final value, or nil when the series is shorter than the period.
func lastIndicator(prices []float64, period int, fn func([]float64, int) []float64) *float64 {
	if len(prices) < period {
		return nil
	}
	out := fn(prices, period)
	if len(out) == 0 {
		return nil
	}
	v := out[len(out)-1]
	return &v
}

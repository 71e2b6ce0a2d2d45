package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

func history(prices ...float64) []domain.PricePoint {
	points := make([]domain.PricePoint, len(prices))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		points[i] = domain.PricePoint{Price: p, Timestamp: base.Add(time.Duration(i) * time.Hour)}
	}
	return points
}

func TestComputeIndicatorsShortHistory(t *testing.T) {
	ind := ComputeIndicators(history(1, 2, 3))

	assert.Nil(t, ind.SMA7)
	assert.Nil(t, ind.SMA30)
	assert.Nil(t, ind.EMA7)
	assert.Nil(t, ind.EMA30)
}

func TestComputeIndicatorsSMA7(t *testing.T) {
	// Constant series: every moving average equals the constant.
	ind := ComputeIndicators(history(5, 5, 5, 5, 5, 5, 5, 5))

	require.NotNil(t, ind.SMA7)
	assert.InDelta(t, 5.0, *ind.SMA7, 1e-9)
	require.NotNil(t, ind.EMA7)
	assert.InDelta(t, 5.0, *ind.EMA7, 1e-9)
	assert.Nil(t, ind.SMA30)
}

func TestComputeIndicatorsSMA7Window(t *testing.T) {
	// Last 7 of 1..8 are 2..8, mean 5.
	ind := ComputeIndicators(history(1, 2, 3, 4, 5, 6, 7, 8))

	require.NotNil(t, ind.SMA7)
	assert.InDelta(t, 5.0, *ind.SMA7, 1e-9)
}

func TestDisperseReturns(t *testing.T) {
	d := DisperseReturns([]float64{10, -10, 10, -10})

	assert.Equal(t, 4, d.Count)
	assert.InDelta(t, 0.0, d.Mean, 1e-9)
	assert.Greater(t, d.StdDev, 0.0)
}

func TestDisperseReturnsEmpty(t *testing.T) {
	d := DisperseReturns(nil)

	assert.Zero(t, d.Count)
	assert.Zero(t, d.Mean)
	assert.Zero(t, d.StdDev)
}

func TestDisperseReturnsSingleSample(t *testing.T) {
	d := DisperseReturns([]float64{7.5})

	assert.Equal(t, 1, d.Count)
	assert.InDelta(t, 7.5, d.Mean, 1e-9)
	assert.Zero(t, d.StdDev)
}

func TestHistoryVolatilityFlatSeries(t *testing.T) {
	assert.InDelta(t, 0.0, HistoryVolatility(history(10, 10, 10, 10)), 1e-9)
}

func TestHistoryVolatilityMovingSeries(t *testing.T) {
	v := HistoryVolatility(history(100, 110, 99, 108))
	assert.Greater(t, v, 0.0)
}

func TestHistoryVolatilityTooShort(t *testing.T) {
	assert.Zero(t, HistoryVolatility(history(100, 110)))
}

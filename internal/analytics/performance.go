package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

// ReturnDispersion summarizes how spread out the P/L percentages across a set
// of holdings are. StdDev is NaN-free: it is zero for fewer than two samples.
type ReturnDispersion struct {
	Mean   float64 `json:"mean_pl_pct"`
	StdDev float64 `json:"stddev_pl_pct"`
	Count  int     `json:"count"`
}

// DisperseReturns computes mean and standard deviation over the given P/L
// percentages.
func DisperseReturns(plPcts []float64) ReturnDispersion {
	d := ReturnDispersion{Count: len(plPcts)}
	if len(plPcts) == 0 {
		return d
	}
	d.Mean = stat.Mean(plPcts, nil)
	if len(plPcts) > 1 {
		sd := stat.StdDev(plPcts, nil)
		if !math.IsNaN(sd) {
			d.StdDev = sd
		}
	}
	return d
}

// HistoryVolatility is the standard deviation of period-over-period returns
// of a price history, as a percentage. Returns zero for histories with fewer
// than three points or with non-positive prices.
func HistoryVolatility(history []domain.PricePoint) float64 {
	if len(history) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1].Price, history[i].Price
		if prev <= 0 || cur <= 0 {
			return 0
		}
		returns = append(returns, (cur-prev)/prev*100)
	}

	sd := stat.StdDev(returns, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

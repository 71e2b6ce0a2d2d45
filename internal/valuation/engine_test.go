package valuation

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/market"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func floatPtr(v float64) *float64 { return &v }

func strainWithChange(id int64, price string, chg *float64) domain.Strain {
	return domain.Strain{ID: id, Price: dec(price), Change24h: chg}
}

func registryWith(strains ...domain.Strain) *market.Registry {
	r := market.NewRegistry(zerolog.Nop())
	r.LoadSnapshot(strains)
	return r
}

func TestValueHolding(t *testing.T) {
	h := domain.Holding{StrainID: 7, Shares: dec("2"), AvgBuyPrice: dec("100")}
	s := strainWithChange(7, "110", nil)

	v := ValueHolding(h, s)

	assert.True(t, v.CurrentValue.Equal(dec("220")), "current_value: %s", v.CurrentValue)
	assert.True(t, v.ProfitLoss.Equal(dec("20")), "profit_loss: %s", v.ProfitLoss)
	require.NotNil(t, v.ProfitLossPct)
	assert.InDelta(t, 10.0, *v.ProfitLossPct, 1e-9)
}

func TestValueHoldingZeroCostBasisHasNoPct(t *testing.T) {
	h := domain.Holding{StrainID: 1, Shares: dec("5"), AvgBuyPrice: dec("0")}
	s := strainWithChange(1, "10", nil)

	v := ValueHolding(h, s)

	assert.True(t, v.CurrentValue.Equal(dec("50")))
	assert.Nil(t, v.ProfitLossPct)
}

func TestValuePortfolioConsistency(t *testing.T) {
	reg := registryWith(
		strainWithChange(1, "10", nil),
		strainWithChange(2, "3.5", nil),
	)
	holdings := []domain.Holding{
		{StrainID: 1, Shares: dec("4"), AvgBuyPrice: dec("8")},
		{StrainID: 2, Shares: dec("2.5"), AvgBuyPrice: dec("3")},
	}
	balance := dec("123.45")

	v := ValuePortfolio(balance, holdings, reg)

	// total_value == balance + sum(shares_i * price_i) exactly.
	expectedHoldings := dec("4").Mul(dec("10")).Add(dec("2.5").Mul(dec("3.5")))
	assert.True(t, v.HoldingsValue.Equal(expectedHoldings), "holdings_value: %s", v.HoldingsValue)
	assert.True(t, v.TotalValue.Equal(balance.Add(expectedHoldings)), "total_value: %s", v.TotalValue)
}

func TestValuePortfolioUnknownStrainContributesZero(t *testing.T) {
	reg := registryWith(strainWithChange(1, "10", nil))
	holdings := []domain.Holding{
		{StrainID: 1, Shares: dec("1"), AvgBuyPrice: dec("10")},
		{StrainID: 99, Shares: dec("7"), AvgBuyPrice: dec("2")},
	}

	v := ValuePortfolio(dec("0"), holdings, reg)

	assert.True(t, v.TotalValue.Equal(dec("10")))

	valued := ValueHoldings(holdings, reg)
	require.Len(t, valued, 2)
	assert.False(t, valued[1].PriceKnown)
}

func TestRankMoversDeterminism(t *testing.T) {
	strains := []domain.Strain{
		strainWithChange(2, "1", floatPtr(5)),
		strainWithChange(3, "1", floatPtr(-3)),
		strainWithChange(1, "1", floatPtr(5)),
	}

	gainers, losers := RankMovers(strains, 5)

	require.Len(t, gainers, 3)
	// Tie between 1 and 2 breaks by ascending id.
	assert.Equal(t, int64(1), gainers[0].ID)
	assert.Equal(t, int64(2), gainers[1].ID)
	assert.Equal(t, int64(3), gainers[2].ID)

	require.Len(t, losers, 3)
	assert.Equal(t, int64(3), losers[0].ID)
	assert.Equal(t, int64(1), losers[1].ID)
	assert.Equal(t, int64(2), losers[2].ID)
}

func TestRankMoversExcludesStrainsWithoutChange(t *testing.T) {
	strains := []domain.Strain{
		strainWithChange(1, "1", floatPtr(5)),
		strainWithChange(2, "1", nil),
	}

	gainers, losers := RankMovers(strains, 5)

	require.Len(t, gainers, 1)
	assert.Equal(t, int64(1), gainers[0].ID)
	require.Len(t, losers, 1)
}

func TestRankMoversTruncatesToN(t *testing.T) {
	strains := []domain.Strain{
		strainWithChange(1, "1", floatPtr(5)),
		strainWithChange(2, "1", floatPtr(4)),
		strainWithChange(3, "1", floatPtr(3)),
	}

	gainers, _ := RankMovers(strains, 2)

	require.Len(t, gainers, 2)
	assert.Equal(t, int64(1), gainers[0].ID)
	assert.Equal(t, int64(2), gainers[1].ID)
}

func TestBestAndWorstPerformer(t *testing.T) {
	reg := registryWith(
		strainWithChange(1, "20", nil), // bought at 10 -> +100%
		strainWithChange(2, "5", nil),  // bought at 10 -> -50%
		strainWithChange(3, "11", nil), // bought at 10 -> +10%
	)
	holdings := []domain.Holding{
		{StrainID: 1, Shares: dec("1"), AvgBuyPrice: dec("10")},
		{StrainID: 2, Shares: dec("1"), AvgBuyPrice: dec("10")},
		{StrainID: 3, Shares: dec("1"), AvgBuyPrice: dec("10")},
	}

	best, worst := BestAndWorstPerformer(holdings, reg)

	require.NotNil(t, best)
	require.NotNil(t, worst)
	assert.Equal(t, int64(1), best.StrainID)
	assert.Equal(t, int64(2), worst.StrainID)
}

func TestBestAndWorstPerformerEmptyLedger(t *testing.T) {
	reg := registryWith()

	best, worst := BestAndWorstPerformer(nil, reg)

	assert.Nil(t, best)
	assert.Nil(t, worst)
}

func TestEndToEndScenario(t *testing.T) {
	// Snapshot loads strain {id:7, price:100}; buy 2 shares; delta moves the
	// price to 110; valuation reports 220 / 20 / 10%.
	reg := registryWith(strainWithChange(7, "100", nil))

	holding := domain.Holding{StrainID: 7, Shares: dec("2"), AvgBuyPrice: dec("100")}

	require.True(t, reg.ApplyDelta(domain.Quote{StrainID: 7, Price: dec("110")}))

	s, ok := reg.Get(7)
	require.True(t, ok)
	v := ValueHolding(holding, s)
	assert.True(t, v.CurrentValue.Equal(dec("220")))
	assert.True(t, v.ProfitLoss.Equal(dec("20")))
	require.NotNil(t, v.ProfitLossPct)
	assert.InDelta(t, 10.0, *v.ProfitLossPct, 1e-9)

	total := ValuePortfolio(dec("800"), []domain.Holding{holding}, reg)
	assert.True(t, total.TotalValue.Equal(dec("1020")))
}

package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

func TestTransformStrain(t *testing.T) {
	change := 2.5
	dto := strainDTO{
		ID:            7,
		Name:          "Northern Lights",
		Slug:          "northern-lights",
		CurrentPrice:  14.25,
		FavoriteCount: 120,
		PharmacyCount: 8,
		Change24h:     &change,
	}

	strain, err := transformStrain(dto)
	require.NoError(t, err)

	assert.Equal(t, int64(7), strain.ID)
	assert.Equal(t, "Northern Lights", strain.Name)
	assert.True(t, strain.Price.Equal(decimal.NewFromFloat(14.25)))
	require.NotNil(t, strain.Change24h)
	assert.Equal(t, 2.5, *strain.Change24h)
}

func TestTransformStrainNegativePrice(t *testing.T) {
	_, err := transformStrain(strainDTO{ID: 1, CurrentPrice: -0.01})
	assert.Error(t, err)
}

func TestTransformStrainNilChange(t *testing.T) {
	strain, err := transformStrain(strainDTO{ID: 3, Name: "New Listing", CurrentPrice: 5})
	require.NoError(t, err)
	assert.Nil(t, strain.Change24h)
}

func TestTransformStrainsInvalidEntryFailsSnapshot(t *testing.T) {
	dtos := []strainDTO{
		{ID: 1, CurrentPrice: 10},
		{ID: 2, CurrentPrice: -5},
		{ID: 3, CurrentPrice: 20},
	}

	strains, err := transformStrains(dtos)
	assert.Error(t, err)
	assert.Nil(t, strains)
}

func TestTransformPortfolio(t *testing.T) {
	dto := portfolioDTO{
		WeedcoinsBalance: 950.50,
		HoldingsValue:    999999, // server derived fields are recomputed locally
		TotalValue:       999999,
		Holdings: []holdingDTO{
			{StrainID: 1, StrainName: "OG Kush", Shares: 10, AvgBuyPrice: 4.95},
		},
	}

	p, err := transformPortfolio(dto)
	require.NoError(t, err)

	assert.True(t, p.Balance.Equal(decimal.NewFromFloat(950.50)))
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, "OG Kush", p.Holdings[0].StrainName)
	assert.True(t, p.Holdings[0].Shares.Equal(decimal.NewFromInt(10)))
	assert.True(t, p.Holdings[0].AvgBuyPrice.Equal(decimal.NewFromFloat(4.95)))
}

func TestTransformPortfolioNegativeBalance(t *testing.T) {
	_, err := transformPortfolio(portfolioDTO{WeedcoinsBalance: -1})
	assert.Error(t, err)
}

func TestTransformTradeConfirmCarriesRequestIdentity(t *testing.T) {
	req := domain.TradeRequest{ClientRef: "ref-123", StrainID: 42, Shares: 3, Side: domain.SideBuy}
	dto := tradeConfirmDTO{TradeID: 900, Type: "buy", Shares: 3, Price: 11.10, TotalCost: 33.30, NewBalance: 66.70}

	trade, err := transformTradeConfirm(dto, req)
	require.NoError(t, err)

	assert.Equal(t, int64(900), trade.ID)
	assert.Equal(t, "ref-123", trade.ClientRef)
	assert.Equal(t, int64(42), trade.StrainID)
	assert.Equal(t, domain.SideBuy, trade.Side)
	assert.True(t, trade.TotalCost.Equal(decimal.NewFromFloat(33.30)))
}

func TestTransformTradeConfirmSellUsesProceeds(t *testing.T) {
	req := domain.TradeRequest{ClientRef: "ref-7", StrainID: 7, Shares: 2.5, Side: domain.SideSell}
	dto := tradeConfirmDTO{TradeID: 901, Type: "sell", Shares: 2.5, Price: 30, Proceeds: 75, NewBalance: 110}

	trade, err := transformTradeConfirm(dto, req)
	require.NoError(t, err)

	assert.Equal(t, domain.SideSell, trade.Side)
	assert.True(t, trade.TotalCost.Equal(decimal.NewFromInt(75)))
}

func TestTransformTradeConfirmUnknownSide(t *testing.T) {
	_, err := transformTradeConfirm(tradeConfirmDTO{TradeID: 1, Type: "short"}, domain.TradeRequest{})
	assert.Error(t, err)
}

func TestTransformQuote(t *testing.T) {
	pct := -1.2
	quote, err := transformQuote(wsFrame{Type: frameTypePriceUpdate, StrainID: 5, Price: 9.99, ChangePct: &pct})
	require.NoError(t, err)

	assert.Equal(t, int64(5), quote.StrainID)
	assert.True(t, quote.Price.Equal(decimal.NewFromFloat(9.99)))
	require.NotNil(t, quote.ChangePct)
	assert.Equal(t, -1.2, *quote.ChangePct)
}

func TestTransformQuoteNegativePrice(t *testing.T) {
	_, err := transformQuote(wsFrame{Type: frameTypePriceUpdate, StrainID: 5, Price: -1})
	assert.Error(t, err)
}

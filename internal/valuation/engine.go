// Package valuation computes derived financial views over a registry/ledger
// pair. Every function is deterministic and side-effect-free; recomputation on
// each call is acceptable at this scale.
package valuation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

// RegistryView is the read surface the engine needs from the instrument
// registry.
type RegistryView interface {
	Get(strainID int64) (domain.Strain, bool)
}

// HoldingValuation is the derived view of one holding at current prices.
// ProfitLossPct is nil when the cost basis is zero (undefined percentage).
type HoldingValuation struct {
	CurrentValue  decimal.Decimal
	ProfitLoss    decimal.Decimal
	ProfitLossPct *float64
}

// ValuedHolding pairs a holding with its valuation and display metadata.
// PriceKnown is false when the registry has no quote for the strain; such
// holdings contribute zero to portfolio totals until the next snapshot.
type ValuedHolding struct {
	domain.Holding
	StrainName   string
	CurrentPrice decimal.Decimal
	PriceKnown   bool
	HoldingValuation
}

// PortfolioValuation is the derived portfolio total. TotalValue is always
// balance + holdings value, computed fresh from its two terms - it is never
// cached independently of its components.
type PortfolioValuation struct {
	HoldingsValue decimal.Decimal
	TotalValue    decimal.Decimal
}

// ValueHolding values one holding against one strain quote.
// current_value = shares x price; profit_loss = current_value - cost basis;
// profit_loss_pct = profit_loss / cost basis x 100, undefined at zero cost.
func ValueHolding(h domain.Holding, s domain.Strain) HoldingValuation {
	currentValue := h.Shares.Mul(s.Price)
	cost := h.CostBasis()
	pl := currentValue.Sub(cost)

	var pct *float64
	if !cost.IsZero() {
		v, _ := pl.Div(cost).Mul(decimal.NewFromInt(100)).Float64()
		pct = &v
	}

	return HoldingValuation{
		CurrentValue:  currentValue,
		ProfitLoss:    pl,
		ProfitLossPct: pct,
	}
}

// ValueHoldings values every holding against the registry, in input order.
func ValueHoldings(holdings []domain.Holding, registry RegistryView) []ValuedHolding {
	result := make([]ValuedHolding, 0, len(holdings))
	for _, h := range holdings {
		vh := ValuedHolding{Holding: h, StrainName: h.StrainName}
		if s, ok := registry.Get(h.StrainID); ok {
			vh.PriceKnown = true
			vh.CurrentPrice = s.Price
			vh.HoldingValuation = ValueHolding(h, s)
			if vh.StrainName == "" {
				vh.StrainName = s.Name
			}
		}
		result = append(result, vh)
	}
	return result
}

// ValuePortfolio computes holdings value and total value for a balance and a
// set of holdings at current registry prices.
func ValuePortfolio(balance decimal.Decimal, holdings []domain.Holding, registry RegistryView) PortfolioValuation {
	holdingsValue := decimal.Zero
	for _, vh := range ValueHoldings(holdings, registry) {
		holdingsValue = holdingsValue.Add(vh.CurrentValue)
	}
	return PortfolioValuation{
		HoldingsValue: holdingsValue,
		TotalValue:    balance.Add(holdingsValue),
	}
}

// RankMovers returns the top n gainers (change% descending) and top n losers
// (change% ascending) among the given strains. Ties break by ascending strain
// id. Strains with no change% yet are excluded from both rankings.
func RankMovers(strains []domain.Strain, n int) (gainers, losers []domain.Strain) {
	movers := make([]domain.Strain, 0, len(strains))
	for _, s := range strains {
		if s.Change24h != nil {
			movers = append(movers, s)
		}
	}

	gainers = make([]domain.Strain, len(movers))
	copy(gainers, movers)
	sort.SliceStable(gainers, func(i, j int) bool {
		if *gainers[i].Change24h != *gainers[j].Change24h {
			return *gainers[i].Change24h > *gainers[j].Change24h
		}
		return gainers[i].ID < gainers[j].ID
	})

	losers = make([]domain.Strain, len(movers))
	copy(losers, movers)
	sort.SliceStable(losers, func(i, j int) bool {
		if *losers[i].Change24h != *losers[j].Change24h {
			return *losers[i].Change24h < *losers[j].Change24h
		}
		return losers[i].ID < losers[j].ID
	})

	if n >= 0 && len(gainers) > n {
		gainers = gainers[:n]
	}
	if n >= 0 && len(losers) > n {
		losers = losers[:n]
	}
	return gainers, losers
}

// BestAndWorstPerformer returns the holdings with the highest and lowest
// profit/loss percentage. Holdings with an undefined percentage (zero cost
// basis or unknown price) are excluded; both results are nil when no holding
// qualifies. Ties break by ascending strain id.
func BestAndWorstPerformer(holdings []domain.Holding, registry RegistryView) (best, worst *ValuedHolding) {
	ranked := make([]ValuedHolding, 0, len(holdings))
	for _, vh := range ValueHoldings(holdings, registry) {
		if vh.PriceKnown && vh.ProfitLossPct != nil {
			ranked = append(ranked, vh)
		}
	}
	if len(ranked) == 0 {
		return nil, nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if *ranked[i].ProfitLossPct != *ranked[j].ProfitLossPct {
			return *ranked[i].ProfitLossPct > *ranked[j].ProfitLossPct
		}
		return ranked[i].StrainID < ranked[j].StrainID
	})

	b, w := ranked[0], ranked[len(ranked)-1]
	return &b, &w
}

package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

// transformStrain converts a wire strain into the domain model.
// Negative prices are rejected here so they never reach the registry.
func transformStrain(dto strainDTO) (domain.Strain, error) {
	if dto.CurrentPrice < 0 {
		return domain.Strain{}, fmt.Errorf("strain %d has negative price %f", dto.ID, dto.CurrentPrice)
	}
	return domain.Strain{
		ID:            dto.ID,
		Name:          dto.Name,
		Slug:          dto.Slug,
		Price:         decimal.NewFromFloat(dto.CurrentPrice),
		Change24h:     dto.Change24h,
		FavoriteCount: dto.FavoriteCount,
		PharmacyCount: dto.PharmacyCount,
	}, nil
}

// transformStrains converts a snapshot listing. Invalid entries fail the whole
// snapshot: a partially applied authoritative listing is worse than a retry.
func transformStrains(dtos []strainDTO) ([]domain.Strain, error) {
	strains := make([]domain.Strain, 0, len(dtos))
	for _, dto := range dtos {
		s, err := transformStrain(dto)
		if err != nil {
			return nil, err
		}
		strains = append(strains, s)
	}
	return strains, nil
}

// transformStrainDetail converts the detail response.
func transformStrainDetail(dto strainDetailDTO) (*domain.StrainDetail, error) {
	base, err := transformStrain(dto.strainDTO)
	if err != nil {
		return nil, err
	}

	history := make([]domain.PricePoint, 0, len(dto.PriceHistory))
	for _, p := range dto.PriceHistory {
		history = append(history, domain.PricePoint{
			Price:     p.Price,
			Volume:    p.Volume,
			Timestamp: p.Timestamp,
		})
	}

	return &domain.StrainDetail{
		Strain:          base,
		BasePrice:       decimal.NewFromFloat(dto.BasePrice),
		PopularityScore: dto.PopularityScore,
		VolatilityScore: dto.VolatilityScore,
		PriceHistory:    history,
	}, nil
}

// transformPortfolio converts the portfolio fetch. The server's holdings_value
// and total_value fields are ignored: derived values are always recomputed
// locally from balance and holdings.
func transformPortfolio(dto portfolioDTO) (*domain.Portfolio, error) {
	if dto.WeedcoinsBalance < 0 {
		return nil, fmt.Errorf("portfolio has negative balance %f", dto.WeedcoinsBalance)
	}

	holdings := make([]domain.Holding, 0, len(dto.Holdings))
	for _, h := range dto.Holdings {
		if h.Shares < 0 || h.AvgBuyPrice < 0 {
			return nil, fmt.Errorf("holding for strain %d has negative shares or cost", h.StrainID)
		}
		holdings = append(holdings, domain.Holding{
			StrainID:    h.StrainID,
			StrainName:  h.StrainName,
			Shares:      decimal.NewFromFloat(h.Shares),
			AvgBuyPrice: decimal.NewFromFloat(h.AvgBuyPrice),
		})
	}

	return &domain.Portfolio{
		Balance:  decimal.NewFromFloat(dto.WeedcoinsBalance),
		Holdings: holdings,
	}, nil
}

// transformTradeConfirm converts a trade execution response. The confirmed
// values are authoritative; the client's advisory quote never replaces them.
func transformTradeConfirm(dto tradeConfirmDTO, req domain.TradeRequest) (*domain.Trade, error) {
	side := domain.TradeSide(dto.Type)
	if !side.Valid() {
		return nil, fmt.Errorf("confirmation has unknown trade side %q", dto.Type)
	}

	// Buy confirmations carry total_cost, sell confirmations carry proceeds.
	consideration := dto.TotalCost
	if side == domain.SideSell {
		consideration = dto.Proceeds
	}

	return &domain.Trade{
		ID:        dto.TradeID,
		ClientRef: req.ClientRef,
		StrainID:  req.StrainID,
		Side:      side,
		Shares:    decimal.NewFromFloat(dto.Shares),
		Price:     decimal.NewFromFloat(dto.Price),
		TotalCost: decimal.NewFromFloat(consideration),
	}, nil
}

// transformTradeHistory converts the history listing.
func transformTradeHistory(dtos []tradeHistoryDTO) ([]domain.Trade, error) {
	trades := make([]domain.Trade, 0, len(dtos))
	for _, dto := range dtos {
		side := domain.TradeSide(dto.Type)
		if !side.Valid() {
			return nil, fmt.Errorf("trade %d has unknown side %q", dto.ID, dto.Type)
		}
		trades = append(trades, domain.Trade{
			ID:        dto.ID,
			StrainID:  dto.StrainID,
			Side:      side,
			Shares:    decimal.NewFromFloat(dto.Shares),
			Price:     decimal.NewFromFloat(dto.Price),
			TotalCost: decimal.NewFromFloat(dto.TotalCost),
			Timestamp: dto.Timestamp,
		})
	}
	return trades, nil
}

// transformQuote converts a price_update frame.
func transformQuote(frame wsFrame) (domain.Quote, error) {
	if frame.Price < 0 {
		return domain.Quote{}, fmt.Errorf("price update for strain %d has negative price %f", frame.StrainID, frame.Price)
	}
	return domain.Quote{
		StrainID:  frame.StrainID,
		Price:     decimal.NewFromFloat(frame.Price),
		ChangePct: frame.ChangePct,
	}, nil
}

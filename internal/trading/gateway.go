// Package trading implements the trade execution gateway: local validation,
// submission to the exchange, and application of confirmed trades.
package trading

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/events"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/market"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/portfolio"
)

// Gateway validates trade intents against local state, submits them to the
// exchange and applies the confirmed result to the ledger. Executions are
// serialized: one trade settles fully before the next one is validated, so a
// second intent always sees the ledger the first one produced.
type Gateway struct {
	mu       sync.Mutex
	api      domain.ExchangeAPI
	registry *market.Registry
	ledger   *portfolio.Ledger
	bus      *events.Bus
	log      zerolog.Logger
}

// NewGateway creates a trade execution gateway.
func NewGateway(api domain.ExchangeAPI, registry *market.Registry, ledger *portfolio.Ledger, bus *events.Bus, log zerolog.Logger) *Gateway {
	return &Gateway{
		api:      api,
		registry: registry,
		ledger:   ledger,
		bus:      bus,
		log:      log.With().Str("component", "trade_gateway").Logger(),
	}
}

// Execute runs one trade end to end. Local validation rejects intents that
// cannot succeed; the exchange's confirmation is authoritative for price and
// cost. A MarketRejection from the exchange leaves local state untouched.
func (g *Gateway) Execute(ctx context.Context, strainID int64, shares decimal.Decimal, side domain.TradeSide) (*domain.Trade, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !side.Valid() {
		return nil, fmt.Errorf("unknown trade side %q", side)
	}
	if shares.Sign() <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	strain, ok := g.registry.Get(strainID)
	if !ok {
		return nil, fmt.Errorf("strain %d: %w", strainID, domain.ErrUnknownStrain)
	}

	if err := g.validateAgainstLedger(strain, shares, side); err != nil {
		return nil, err
	}

	req := domain.TradeRequest{
		ClientRef: uuid.New().String(),
		StrainID:  strainID,
		Shares:    sharesToFloat(shares),
		Side:      side,
	}

	g.log.Info().
		Str("client_ref", req.ClientRef).
		Int64("strain_id", strainID).
		Str("side", string(side)).
		Str("shares", shares.String()).
		Msg("Submitting trade")

	trade, err := g.api.SubmitTrade(ctx, req)
	if err != nil {
		g.log.Warn().Err(err).Str("client_ref", req.ClientRef).Msg("Trade submission failed")
		return nil, err
	}

	if err := g.ledger.ApplyTradeConfirmation(*trade); err != nil {
		// The exchange accepted a trade the ledger cannot absorb. Local state
		// is stale; the caller should trigger a portfolio refresh.
		g.log.Error().Err(err).Int64("trade_id", trade.ID).Msg("Confirmed trade conflicts with local ledger")
		return nil, fmt.Errorf("failed to apply confirmed trade %d: %w", trade.ID, err)
	}

	g.log.Info().
		Int64("trade_id", trade.ID).
		Str("total_cost", trade.TotalCost.String()).
		Msg("Trade executed")

	g.emitTradeExecuted(trade)
	return trade, nil
}

// validateAgainstLedger runs the pre-submission checks. The balance check uses
// the last known price as an advisory estimate; the exchange re-validates with
// the execution price.
func (g *Gateway) validateAgainstLedger(strain domain.Strain, shares decimal.Decimal, side domain.TradeSide) error {
	switch side {
	case domain.SideBuy:
		estimated := shares.Mul(strain.Price)
		if g.ledger.Balance().LessThan(estimated) {
			return domain.ErrInsufficientBalance
		}
	case domain.SideSell:
		holding, ok := g.ledger.HoldingFor(strain.ID)
		if !ok || holding.Shares.LessThan(shares) {
			return domain.ErrInsufficientShares
		}
	}
	return nil
}

func (g *Gateway) emitTradeExecuted(trade *domain.Trade) {
	shares, _ := trade.Shares.Float64()
	price, _ := trade.Price.Float64()
	totalCost, _ := trade.TotalCost.Float64()

	g.bus.Emit("trade_gateway", &events.TradeExecutedData{
		TradeID:   trade.ID,
		StrainID:  trade.StrainID,
		Side:      string(trade.Side),
		Shares:    shares,
		Price:     price,
		TotalCost: totalCost,
	})
}

func sharesToFloat(shares decimal.Decimal) float64 {
	f, _ := shares.Float64()
	return f
}

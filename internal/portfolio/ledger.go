// Package portfolio provides the in-memory position ledger: the user's
// holdings per strain plus the liquid WeedCoins balance.
package portfolio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

// Ledger tracks holdings and liquid balance. Writes happen only from the
// trade execution gateway (per confirmed trade) and from authoritative
// portfolio fetches; all mutations are serialized behind one mutex.
type Ledger struct {
	mu       sync.RWMutex
	balance  decimal.Decimal
	holdings map[int64]domain.Holding
	order    []int64
	version  uint64
	log      zerolog.Logger
}

// NewLedger creates an empty ledger.
func NewLedger(log zerolog.Logger) *Ledger {
	return &Ledger{
		holdings: make(map[int64]domain.Holding),
		log:      log.With().Str("component", "ledger").Logger(),
	}
}

// SetPortfolio replaces balance and holdings with an authoritative fetch.
func (l *Ledger) SetPortfolio(p domain.Portfolio) {
	holdings := make(map[int64]domain.Holding, len(p.Holdings))
	order := make([]int64, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		if _, dup := holdings[h.StrainID]; !dup {
			order = append(order, h.StrainID)
		}
		holdings[h.StrainID] = h
	}

	l.mu.Lock()
	l.balance = p.Balance
	l.holdings = holdings
	l.order = order
	l.version++
	l.mu.Unlock()

	l.log.Debug().Int("holding_count", len(holdings)).Str("balance", p.Balance.String()).Msg("Portfolio replaced")
}

// ApplyTradeConfirmation applies a confirmed trade to the ledger.
//
// Buy: shares increase, the average buy price becomes the weighted average
// (old_shares*old_avg + bought*price) / (old_shares+bought), and the balance
// decreases by the confirmed total consideration.
//
// Sell: shares decrease and the balance increases by the consideration; the
// average buy price is unchanged (realized P/L is not tracked separately from
// the balance movement). A holding whose shares reach zero is removed.
//
// The ledger double-checks the gateway's boundary validation: a sell
// exceeding held shares or a buy exceeding the balance leaves state unchanged
// and returns the matching taxonomy error.
func (l *Ledger) ApplyTradeConfirmation(trade domain.Trade) error {
	if !trade.Side.Valid() {
		return fmt.Errorf("unknown trade side %q", trade.Side)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch trade.Side {
	case domain.SideBuy:
		if l.balance.LessThan(trade.TotalCost) {
			return domain.ErrInsufficientBalance
		}
		holding, ok := l.holdings[trade.StrainID]
		if !ok {
			holding = domain.Holding{
				StrainID:    trade.StrainID,
				Shares:      decimal.Zero,
				AvgBuyPrice: decimal.Zero,
			}
			l.order = append(l.order, trade.StrainID)
		}
		newShares := holding.Shares.Add(trade.Shares)
		invested := holding.Shares.Mul(holding.AvgBuyPrice).Add(trade.Shares.Mul(trade.Price))
		holding.Shares = newShares
		holding.AvgBuyPrice = invested.Div(newShares)
		l.holdings[trade.StrainID] = holding
		l.balance = l.balance.Sub(trade.TotalCost)

	case domain.SideSell:
		holding, ok := l.holdings[trade.StrainID]
		if !ok || holding.Shares.LessThan(trade.Shares) {
			return domain.ErrInsufficientShares
		}
		holding.Shares = holding.Shares.Sub(trade.Shares)
		if holding.Shares.Sign() <= 0 {
			delete(l.holdings, trade.StrainID)
			l.removeFromOrder(trade.StrainID)
		} else {
			l.holdings[trade.StrainID] = holding
		}
		l.balance = l.balance.Add(trade.TotalCost)
	}

	l.version++
	l.log.Info().
		Int64("strain_id", trade.StrainID).
		Str("side", string(trade.Side)).
		Str("shares", trade.Shares.String()).
		Str("total", trade.TotalCost.String()).
		Str("balance", l.balance.String()).
		Msg("Trade confirmation applied")
	return nil
}

// Balance returns the liquid WeedCoins balance.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// Holdings returns all holdings in portfolio listing order.
func (l *Ledger) Holdings() []domain.Holding {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]domain.Holding, 0, len(l.holdings))
	for _, id := range l.order {
		if h, ok := l.holdings[id]; ok {
			result = append(result, h)
		}
	}
	return result
}

// HoldingFor returns the holding for one strain.
func (l *Ledger) HoldingFor(strainID int64) (domain.Holding, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.holdings[strainID]
	return h, ok
}

// Version returns a counter bumped on every accepted mutation.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// removeFromOrder drops an id from the listing order. Caller holds l.mu.
func (l *Ledger) removeFromOrder(strainID int64) {
	for i, id := range l.order {
		if id == strainID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

// Package domain provides core domain models and types for the exchange client.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strain is a tradeable instrument on the exchange with its latest known quote.
// Change24h is nil until the server has observed two prices 24h apart.
type Strain struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Price         decimal.Decimal `json:"current_price"`
	Change24h     *float64        `json:"change_24h,omitempty"`
	FavoriteCount int             `json:"favorite_count"`
	PharmacyCount int             `json:"pharmacy_count"`
}

// PricePoint is one observation in a strain's price history.
type PricePoint struct {
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// StrainDetail extends Strain with server-side scoring and price history.
type StrainDetail struct {
	Strain
	BasePrice       decimal.Decimal `json:"base_price"`
	PopularityScore float64         `json:"popularity_score"`
	VolatilityScore float64         `json:"volatility_score"`
	PriceHistory    []PricePoint    `json:"price_history"`
}

// Quote is an incremental price update for a single strain. It is consumed
// immediately into the registry and not retained.
type Quote struct {
	StrainID  int64
	Price     decimal.Decimal
	ChangePct *float64
}

// Holding is the user's position in one strain.
type Holding struct {
	StrainID    int64           `json:"strain_id"`
	StrainName  string          `json:"strain_name"`
	Shares      decimal.Decimal `json:"shares"`
	AvgBuyPrice decimal.Decimal `json:"avg_buy_price"`
}

// CostBasis returns shares x average buy price.
func (h Holding) CostBasis() decimal.Decimal {
	return h.Shares.Mul(h.AvgBuyPrice)
}

// Portfolio is the authoritative server-side view of a user's portfolio,
// as returned by a full portfolio fetch.
type Portfolio struct {
	Balance  decimal.Decimal `json:"weedcoins_balance"`
	Holdings []Holding       `json:"holdings"`
}

// TradeSide is the direction of a trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Valid reports whether the side is one of the two known directions.
func (s TradeSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Trade is the immutable record returned by the exchange after a buy or sell
// request is accepted. Price and TotalCost are whatever the exchange confirmed;
// the client never substitutes its locally cached quote.
type Trade struct {
	ID        int64           `json:"id"`
	ClientRef string          `json:"client_ref,omitempty"`
	StrainID  int64           `json:"strain_id"`
	Side      TradeSide       `json:"type"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Timestamp time.Time       `json:"timestamp"`
}

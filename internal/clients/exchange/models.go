// Package exchange provides the REST and websocket clients for the strain
// exchange server.
package exchange

import "time"

// strainDTO mirrors GET /trading/strains list entries.
type strainDTO struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	CurrentPrice  float64  `json:"current_price"`
	FavoriteCount int      `json:"favorite_count"`
	PharmacyCount int      `json:"pharmacy_count"`
	Change24h     *float64 `json:"change_24h"`
}

// pricePointDTO mirrors one price_history entry.
type pricePointDTO struct {
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// strainDetailDTO mirrors GET /trading/strains/{id}.
type strainDetailDTO struct {
	strainDTO
	BasePrice       float64         `json:"base_price"`
	PopularityScore float64         `json:"popularity_score"`
	VolatilityScore float64         `json:"volatility_score"`
	PriceHistory    []pricePointDTO `json:"price_history"`
}

// holdingDTO mirrors one portfolio holdings entry.
type holdingDTO struct {
	StrainID    int64   `json:"strain_id"`
	StrainName  string  `json:"strain_name"`
	Shares      float64 `json:"shares"`
	AvgBuyPrice float64 `json:"avg_buy_price"`
}

// portfolioDTO mirrors GET /portfolio/portfolio.
type portfolioDTO struct {
	WeedcoinsBalance float64      `json:"weedcoins_balance"`
	HoldingsValue    float64      `json:"holdings_value"`
	TotalValue       float64      `json:"total_value"`
	Holdings         []holdingDTO `json:"holdings"`
}

// tradeSubmitDTO is the POST /trading/trades/{buy|sell} body.
type tradeSubmitDTO struct {
	StrainID  int64   `json:"strain_id"`
	Shares    float64 `json:"shares"`
	ClientRef string  `json:"client_ref,omitempty"`
}

// tradeConfirmDTO mirrors the trade execution response.
type tradeConfirmDTO struct {
	TradeID    int64   `json:"trade_id"`
	Type       string  `json:"type"`
	Shares     float64 `json:"shares"`
	Price      float64 `json:"price"`
	TotalCost  float64 `json:"total_cost"` // buy confirmations only
	Proceeds   float64 `json:"proceeds"`   // sell confirmations only
	NewBalance float64 `json:"new_balance"`
}

// tradeHistoryDTO mirrors GET /trading/trades/history entries.
type tradeHistoryDTO struct {
	ID        int64     `json:"id"`
	StrainID  int64     `json:"strain_id"`
	Type      string    `json:"type"`
	Shares    float64   `json:"shares"`
	Price     float64   `json:"price"`
	TotalCost float64   `json:"total_cost"`
	Timestamp time.Time `json:"timestamp"`
}

// errorDTO mirrors the server's error body.
type errorDTO struct {
	Detail string `json:"detail"`
}

// wsFrame is one websocket message. Type selects which fields are set.
type wsFrame struct {
	Type      string                 `json:"type"`
	StrainID  int64                  `json:"strain_id"`
	Price     float64                `json:"price"`
	ChangePct *float64               `json:"change_pct"`
	Event     map[string]interface{} `json:"event"`
}

package domain

import "context"

// TokenProvider supplies the opaque bearer credential attached to every
// outbound exchange call. Session issuance and storage are external.
type TokenProvider interface {
	Token() (string, error)
}

// TradeRequest is a buy/sell intent submitted to the exchange.
type TradeRequest struct {
	ClientRef string
	StrainID  int64
	Shares    float64
	Side      TradeSide
}

// ExchangeAPI is the exchange's REST surface as consumed by the client engine.
// Implementations attach the session token and translate HTTP failures into
// the domain error taxonomy.
type ExchangeAPI interface {
	ListStrains(ctx context.Context, skip, limit int) ([]Strain, error)
	GetStrainDetail(ctx context.Context, strainID int64) (*StrainDetail, error)
	GetPortfolio(ctx context.Context) (*Portfolio, error)
	SubmitTrade(ctx context.Context, req TradeRequest) (*Trade, error)
	TradeHistory(ctx context.Context, skip, limit int) ([]Trade, error)
}

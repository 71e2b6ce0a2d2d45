// Package events provides the typed publish/subscribe bus that decouples the
// synchronization and trading components from their observers.
package events

// EventType identifies a kind of event on the bus
type EventType string

const (
	// PriceUpdated fires once per delta applied to the instrument registry
	PriceUpdated EventType = "price_update"
	// SnapshotLoaded fires after a full instrument snapshot replaces the registry
	SnapshotLoaded EventType = "snapshot_loaded"
	// PortfolioChanged fires after an authoritative portfolio fetch replaces the ledger
	PortfolioChanged EventType = "portfolio_changed"
	// TradeExecuted fires after a confirmed trade has been applied to the ledger
	TradeExecuted EventType = "trade_executed"
	// ConnectionStatusChanged fires on transport connect/disconnect transitions
	ConnectionStatusChanged EventType = "connection_status_changed"
	// MarketEvent carries server-side market events (logged, not applied)
	MarketEvent EventType = "market_event"
)

// AllEventTypes lists every known event type, for subscribe-all consumers.
var AllEventTypes = []EventType{
	PriceUpdated,
	SnapshotLoaded,
	PortfolioChanged,
	TradeExecuted,
	ConnectionStatusChanged,
	MarketEvent,
}

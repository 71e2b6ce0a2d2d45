package events

// EventData is the interface that all event payload types implement.
// This allows for type-safe payloads while keeping the bus generic.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PriceUpdatedData contains data for PriceUpdated events
type PriceUpdatedData struct {
	StrainID  int64    `json:"strain_id"`
	Price     float64  `json:"price"`
	ChangePct *float64 `json:"change_pct,omitempty"`
}

// EventType returns the event type for PriceUpdatedData
func (d *PriceUpdatedData) EventType() EventType {
	return PriceUpdated
}

// SnapshotLoadedData contains data for SnapshotLoaded events
type SnapshotLoadedData struct {
	StrainCount int  `json:"strain_count"`
	WarmStart   bool `json:"warm_start,omitempty"`
}

// EventType returns the event type for SnapshotLoadedData
func (d *SnapshotLoadedData) EventType() EventType {
	return SnapshotLoaded
}

// PortfolioChangedData contains data for PortfolioChanged events
type PortfolioChangedData struct {
	HoldingCount int     `json:"holding_count"`
	Balance      float64 `json:"balance"`
}

// EventType returns the event type for PortfolioChangedData
func (d *PortfolioChangedData) EventType() EventType {
	return PortfolioChanged
}

// TradeExecutedData contains data for TradeExecuted events
type TradeExecutedData struct {
	TradeID   int64   `json:"trade_id"`
	StrainID  int64   `json:"strain_id"`
	Side      string  `json:"side"`
	Shares    float64 `json:"shares"`
	Price     float64 `json:"price"`
	TotalCost float64 `json:"total_cost"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// ConnectionStatusData contains data for ConnectionStatusChanged events
type ConnectionStatusData struct {
	Connected bool   `json:"connected"`
	State     string `json:"state"`
}

// EventType returns the event type for ConnectionStatusData
func (d *ConnectionStatusData) EventType() EventType {
	return ConnectionStatusChanged
}

// MarketEventData contains data for MarketEvent events
type MarketEventData struct {
	Payload map[string]interface{} `json:"payload"`
}

// EventType returns the event type for MarketEventData
func (d *MarketEventData) EventType() EventType {
	return MarketEvent
}

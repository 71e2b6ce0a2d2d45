// Package syncer owns the synchronization lifecycle: it fetches authoritative
// snapshots over REST, gates streamed price deltas behind a baseline snapshot,
// and keeps the instrument registry and position ledger current.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/events"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/market"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/portfolio"
)

// snapshotPageSize is the page size used when walking the strain listing.
const snapshotPageSize = 100

// State describes the controller's connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Stream is the live price feed the controller drives. The concrete
// implementation is the exchange stream client.
type Stream interface {
	Start() error
	Stop() error
	IsConnected() bool
}

// SnapshotCache persists the last known instrument snapshot so restarts can
// present stale-but-present prices while the first fetch is in flight.
type SnapshotCache interface {
	Save(strains []domain.Strain) error
	Load() ([]domain.Strain, time.Time, error)
}

// Controller coordinates snapshot fetches and delta application. Deltas that
// arrive before an authoritative snapshot has loaded are dropped, and the gate
// closes again on every disconnect until the next snapshot lands.
type Controller struct {
	api      domain.ExchangeAPI
	registry *market.Registry
	ledger   *portfolio.Ledger
	bus      *events.Bus
	cache    SnapshotCache
	stream   Stream
	log      zerolog.Logger

	refreshInterval time.Duration
	scheduler       *cron.Cron

	mu            sync.Mutex
	state         State
	baselineReady bool
	refreshing    bool
	closed        bool
}

// Config collects the controller's collaborators.
type Config struct {
	API             domain.ExchangeAPI
	Registry        *market.Registry
	Ledger          *portfolio.Ledger
	Bus             *events.Bus
	Cache           SnapshotCache
	RefreshInterval time.Duration
	Log             zerolog.Logger
}

// NewController creates a synchronization controller in the disconnected state.
func NewController(cfg Config) *Controller {
	return &Controller{
		api:             cfg.API,
		registry:        cfg.Registry,
		ledger:          cfg.Ledger,
		bus:             cfg.Bus,
		cache:           cfg.Cache,
		refreshInterval: cfg.RefreshInterval,
		log:             cfg.Log.With().Str("component", "sync_controller").Logger(),
		state:           StateDisconnected,
	}
}

// SetStream wires the live price feed. Called once before Start; the stream
// client needs the controller as its handler so the two are built in order.
func (c *Controller) SetStream(stream Stream) {
	c.stream = stream
}

// Start loads the warm-start cache if present, performs the initial snapshot
// fetch, starts the live stream and schedules periodic refreshes.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		c.log.Debug().Str("state", string(state)).Msg("Start called while already active, ignoring")
		return nil
	}
	c.mu.Unlock()

	c.log.Info().Msg("Starting synchronization controller")

	c.setState(StateConnecting)

	// Warm start: a cached snapshot gives the registry content immediately,
	// but it is not a baseline. Deltas stay gated until the live fetch lands.
	c.loadWarmStart()

	if err := c.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Initial snapshot fetch failed, stream will retrigger it on connect")
	}

	if c.stream != nil {
		if err := c.stream.Start(); err != nil {
			c.log.Warn().Err(err).Msg("Stream start failed, reconnect loop is running")
		}
	}

	if c.refreshInterval > 0 {
		c.scheduler = cron.New()
		c.scheduler.Schedule(cron.Every(c.refreshInterval), cron.FuncJob(func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := c.Refresh(refreshCtx); err != nil {
				c.log.Warn().Err(err).Msg("Scheduled snapshot refresh failed")
			}
		}))
		c.scheduler.Start()
		c.log.Info().Dur("interval", c.refreshInterval).Msg("Scheduled periodic snapshot refresh")
	}

	return nil
}

// Close stops the scheduler and the stream and detaches from the feed. After
// Close returns no further updates reach the registry or the ledger.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.baselineReady = false
	c.mu.Unlock()

	c.log.Info().Msg("Closing synchronization controller")

	if c.scheduler != nil {
		c.scheduler.Stop()
	}

	var err error
	if c.stream != nil {
		err = c.stream.Stop()
	}

	c.setState(StateDisconnected)
	return err
}

// Refresh fetches the full strain listing and the portfolio and replaces local
// state with the authoritative result. Concurrent calls collapse into one.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.refreshing {
		c.mu.Unlock()
		c.log.Debug().Msg("Refresh already in flight, skipping")
		return nil
	}
	c.refreshing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.refreshing = false
		c.mu.Unlock()
	}()

	strains, err := c.fetchAllStrains(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch strain snapshot: %w", err)
	}

	c.registry.LoadSnapshot(strains)

	// The snapshot is authoritative. Open the delta gate.
	c.mu.Lock()
	c.baselineReady = true
	c.mu.Unlock()

	c.log.Info().Int("strain_count", len(strains)).Msg("Snapshot loaded, delta gate open")
	c.bus.Emit("sync_controller", &events.SnapshotLoadedData{StrainCount: len(strains)})

	if c.cache != nil {
		if err := c.cache.Save(strains); err != nil {
			c.log.Warn().Err(err).Msg("Failed to persist snapshot cache")
		}
	}

	if err := c.refreshPortfolio(ctx); err != nil {
		return err
	}

	return nil
}

// RefreshPortfolio re-fetches only the portfolio, replacing the ledger.
func (c *Controller) RefreshPortfolio(ctx context.Context) error {
	return c.refreshPortfolio(ctx)
}

func (c *Controller) refreshPortfolio(ctx context.Context) error {
	p, err := c.api.GetPortfolio(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch portfolio: %w", err)
	}

	c.ledger.SetPortfolio(*p)

	balance, _ := p.Balance.Float64()
	c.bus.Emit("sync_controller", &events.PortfolioChangedData{
		HoldingCount: len(p.Holdings),
		Balance:      balance,
	})
	return nil
}

// fetchAllStrains pages through the listing until a short page arrives.
func (c *Controller) fetchAllStrains(ctx context.Context) ([]domain.Strain, error) {
	var all []domain.Strain
	for skip := 0; ; skip += snapshotPageSize {
		page, err := c.api.ListStrains(ctx, skip, snapshotPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < snapshotPageSize {
			return all, nil
		}
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BaselineReady reports whether an authoritative snapshot has loaded since the
// last (re)connect.
func (c *Controller) BaselineReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baselineReady
}

// HandleQuote applies one streamed price delta. Quotes are dropped while the
// baseline gate is closed and when the strain is unknown to the registry.
func (c *Controller) HandleQuote(quote domain.Quote) {
	c.mu.Lock()
	ready := c.baselineReady && !c.closed
	c.mu.Unlock()

	if !ready {
		c.log.Debug().Int64("strain_id", quote.StrainID).Msg("Dropping delta, no baseline snapshot yet")
		return
	}

	if !c.registry.ApplyDelta(quote) {
		return
	}

	price, _ := quote.Price.Float64()
	c.bus.Emit("sync_controller", &events.PriceUpdatedData{
		StrainID:  quote.StrainID,
		Price:     price,
		ChangePct: quote.ChangePct,
	})
}

// HandleMarketEvent forwards server-side market events to observers.
func (c *Controller) HandleMarketEvent(event map[string]interface{}) {
	c.log.Info().Interface("event", event).Msg("Market event received")
	c.bus.Emit("sync_controller", &events.MarketEventData{Payload: event})
}

// HandleConnected marks the session live and triggers a snapshot fetch so the
// delta gate can reopen. The registry keeps its last known prices meanwhile.
func (c *Controller) HandleConnected() {
	c.setState(StateConnected)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			c.log.Error().Err(err).Msg("Post-connect snapshot fetch failed")
		}
	}()
}

// HandleDisconnected closes the delta gate. Registry contents survive; only
// the stream of deltas is considered suspect until the next snapshot.
func (c *Controller) HandleDisconnected(err error) {
	c.mu.Lock()
	c.baselineReady = false
	closed := c.closed
	c.mu.Unlock()

	if err != nil {
		c.log.Warn().Err(err).Msg("Stream disconnected")
	} else {
		c.log.Info().Msg("Stream disconnected")
	}

	if closed {
		c.setState(StateDisconnected)
	} else {
		c.setState(StateReconnecting)
	}
}

// loadWarmStart seeds the registry from the snapshot cache without opening the
// delta gate.
func (c *Controller) loadWarmStart() {
	if c.cache == nil {
		return
	}

	strains, savedAt, err := c.cache.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to load snapshot cache")
		return
	}
	if len(strains) == 0 {
		return
	}

	c.registry.LoadSnapshot(strains)
	c.log.Info().
		Int("strain_count", len(strains)).
		Time("saved_at", savedAt).
		Msg("Warm-started registry from snapshot cache")

	c.bus.Emit("sync_controller", &events.SnapshotLoadedData{
		StrainCount: len(strains),
		WarmStart:   true,
	})
}

func (c *Controller) setState(next State) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = next
	c.mu.Unlock()

	c.log.Info().Str("from", string(prev)).Str("to", string(next)).Msg("Connection state changed")
	c.bus.Emit("sync_controller", &events.ConnectionStatusData{
		Connected: next == StateConnected,
		State:     string(next),
	})
}

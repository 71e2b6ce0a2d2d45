package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/events"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/market"
	"github.com/justinhartfield/weed-stock-exchange-game/internal/portfolio"
)

type mockExchangeAPI struct {
	mock.Mock
}

func (m *mockExchangeAPI) ListStrains(ctx context.Context, skip, limit int) ([]domain.Strain, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Strain), args.Error(1)
}

func (m *mockExchangeAPI) GetStrainDetail(ctx context.Context, strainID int64) (*domain.StrainDetail, error) {
	args := m.Called(ctx, strainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StrainDetail), args.Error(1)
}

func (m *mockExchangeAPI) GetPortfolio(ctx context.Context) (*domain.Portfolio, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *mockExchangeAPI) SubmitTrade(ctx context.Context, req domain.TradeRequest) (*domain.Trade, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trade), args.Error(1)
}

func (m *mockExchangeAPI) TradeHistory(ctx context.Context, skip, limit int) ([]domain.Trade, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Trade), args.Error(1)
}

type memoryCache struct {
	strains []domain.Strain
	savedAt time.Time
}

func (c *memoryCache) Save(strains []domain.Strain) error {
	c.strains = strains
	c.savedAt = time.Now()
	return nil
}

func (c *memoryCache) Load() ([]domain.Strain, time.Time, error) {
	return c.strains, c.savedAt, nil
}

func testStrains() []domain.Strain {
	change := 1.5
	return []domain.Strain{
		{ID: 1, Name: "OG Kush", Price: decimal.NewFromInt(10), Change24h: &change},
		{ID: 2, Name: "Blue Dream", Price: decimal.NewFromInt(20)},
	}
}

func testPortfolio() *domain.Portfolio {
	return &domain.Portfolio{
		Balance: decimal.NewFromInt(1000),
		Holdings: []domain.Holding{
			{StrainID: 1, StrainName: "OG Kush", Shares: decimal.NewFromInt(5), AvgBuyPrice: decimal.NewFromInt(8)},
		},
	}
}

func newTestController(api domain.ExchangeAPI, cache SnapshotCache) (*Controller, *market.Registry, *portfolio.Ledger, *events.Bus) {
	log := zerolog.Nop()
	registry := market.NewRegistry(log)
	ledger := portfolio.NewLedger(log)
	bus := events.NewBus(log)

	ctrl := NewController(Config{
		API:      api,
		Registry: registry,
		Ledger:   ledger,
		Bus:      bus,
		Cache:    cache,
		Log:      log,
	})
	return ctrl, registry, ledger, bus
}

func TestDeltaBeforeBaselineIsDropped(t *testing.T) {
	api := new(mockExchangeAPI)
	ctrl, registry, _, bus := newTestController(api, nil)

	var emitted int
	bus.Subscribe(events.PriceUpdated, func(events.Event) { emitted++ })

	// Registry has content from somewhere, but no authoritative snapshot yet.
	registry.LoadSnapshot(testStrains())

	ctrl.HandleQuote(domain.Quote{StrainID: 1, Price: decimal.NewFromInt(99)})

	strain, ok := registry.Get(1)
	require.True(t, ok)
	assert.True(t, strain.Price.Equal(decimal.NewFromInt(10)), "gated delta must not change the registry")
	assert.Zero(t, emitted)
}

func TestDeltaAfterSnapshotIsApplied(t *testing.T) {
	api := new(mockExchangeAPI)
	api.On("ListStrains", mock.Anything, 0, snapshotPageSize).Return(testStrains(), nil)
	api.On("GetPortfolio", mock.Anything).Return(testPortfolio(), nil)

	ctrl, registry, ledger, bus := newTestController(api, nil)

	var emitted int
	bus.Subscribe(events.PriceUpdated, func(events.Event) { emitted++ })

	require.NoError(t, ctrl.Refresh(context.Background()))
	assert.True(t, ctrl.BaselineReady())
	assert.True(t, ledger.Balance().Equal(decimal.NewFromInt(1000)))

	ctrl.HandleQuote(domain.Quote{StrainID: 1, Price: decimal.NewFromInt(12)})

	strain, ok := registry.Get(1)
	require.True(t, ok)
	assert.True(t, strain.Price.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, 1, emitted)

	// Unknown ids still drop silently.
	ctrl.HandleQuote(domain.Quote{StrainID: 999, Price: decimal.NewFromInt(1)})
	assert.Equal(t, 1, emitted)
}

func TestDisconnectClosesDeltaGate(t *testing.T) {
	api := new(mockExchangeAPI)
	api.On("ListStrains", mock.Anything, 0, snapshotPageSize).Return(testStrains(), nil)
	api.On("GetPortfolio", mock.Anything).Return(testPortfolio(), nil)

	ctrl, registry, _, _ := newTestController(api, nil)
	require.NoError(t, ctrl.Refresh(context.Background()))

	ctrl.HandleDisconnected(errors.New("connection reset"))
	assert.False(t, ctrl.BaselineReady())
	assert.Equal(t, StateReconnecting, ctrl.State())

	// Registry keeps last known prices across the outage.
	strain, ok := registry.Get(2)
	require.True(t, ok)
	assert.True(t, strain.Price.Equal(decimal.NewFromInt(20)))

	// Deltas are gated again until the next snapshot.
	ctrl.HandleQuote(domain.Quote{StrainID: 2, Price: decimal.NewFromInt(50)})
	strain, _ = registry.Get(2)
	assert.True(t, strain.Price.Equal(decimal.NewFromInt(20)))

	// A fresh snapshot reopens the gate.
	require.NoError(t, ctrl.Refresh(context.Background()))
	ctrl.HandleQuote(domain.Quote{StrainID: 2, Price: decimal.NewFromInt(50)})
	strain, _ = registry.Get(2)
	assert.True(t, strain.Price.Equal(decimal.NewFromInt(50)))
}

func TestWarmStartDoesNotOpenDeltaGate(t *testing.T) {
	api := new(mockExchangeAPI)
	cache := &memoryCache{strains: testStrains(), savedAt: time.Now().Add(-time.Hour)}

	ctrl, registry, _, bus := newTestController(api, cache)

	var warmStart bool
	bus.Subscribe(events.SnapshotLoaded, func(e events.Event) {
		if data, ok := e.Data.(*events.SnapshotLoadedData); ok {
			warmStart = data.WarmStart
		}
	})

	ctrl.loadWarmStart()

	assert.Equal(t, 2, registry.Len())
	assert.False(t, ctrl.BaselineReady())
	assert.True(t, warmStart)
}

func TestRefreshPagesThroughListing(t *testing.T) {
	fullPage := make([]domain.Strain, snapshotPageSize)
	for i := range fullPage {
		fullPage[i] = domain.Strain{ID: int64(i + 1), Price: decimal.NewFromInt(1)}
	}
	secondPage := []domain.Strain{{ID: int64(snapshotPageSize + 1), Price: decimal.NewFromInt(2)}}

	api := new(mockExchangeAPI)
	api.On("ListStrains", mock.Anything, 0, snapshotPageSize).Return(fullPage, nil).Once()
	api.On("ListStrains", mock.Anything, snapshotPageSize, snapshotPageSize).Return(secondPage, nil).Once()
	api.On("GetPortfolio", mock.Anything).Return(testPortfolio(), nil)

	ctrl, registry, _, _ := newTestController(api, nil)
	require.NoError(t, ctrl.Refresh(context.Background()))

	assert.Equal(t, snapshotPageSize+1, registry.Len())
	api.AssertExpectations(t)
}

func TestRefreshFailureKeepsGateClosed(t *testing.T) {
	api := new(mockExchangeAPI)
	api.On("ListStrains", mock.Anything, 0, snapshotPageSize).Return(nil, errors.New("boom"))

	ctrl, _, _, _ := newTestController(api, nil)

	err := ctrl.Refresh(context.Background())
	assert.Error(t, err)
	assert.False(t, ctrl.BaselineReady())
}

func TestStartWhileActiveIsNoOp(t *testing.T) {
	api := new(mockExchangeAPI)
	api.On("ListStrains", mock.Anything, 0, snapshotPageSize).Return(testStrains(), nil).Once()
	api.On("GetPortfolio", mock.Anything).Return(testPortfolio(), nil).Once()

	ctrl, registry, _, _ := newTestController(api, nil)

	require.NoError(t, ctrl.Start(context.Background()))
	assert.Equal(t, StateConnecting, ctrl.State())
	assert.Equal(t, 2, registry.Len())

	// Starting an already-active controller must not open a second session
	// or trigger another fetch.
	require.NoError(t, ctrl.Start(context.Background()))
	assert.Equal(t, StateConnecting, ctrl.State())

	api.AssertExpectations(t)
	require.NoError(t, ctrl.Close())

	// A closed controller never restarts.
	require.NoError(t, ctrl.Start(context.Background()))
	assert.Equal(t, StateDisconnected, ctrl.State())
}

func TestCloseStopsUpdates(t *testing.T) {
	api := new(mockExchangeAPI)
	api.On("ListStrains", mock.Anything, 0, snapshotPageSize).Return(testStrains(), nil)
	api.On("GetPortfolio", mock.Anything).Return(testPortfolio(), nil)

	ctrl, registry, _, _ := newTestController(api, nil)
	require.NoError(t, ctrl.Refresh(context.Background()))
	require.NoError(t, ctrl.Close())

	assert.Equal(t, StateDisconnected, ctrl.State())

	ctrl.HandleQuote(domain.Quote{StrainID: 1, Price: decimal.NewFromInt(77)})
	strain, _ := registry.Get(1)
	assert.True(t, strain.Price.Equal(decimal.NewFromInt(10)))

	// Refresh after close is a no-op.
	require.NoError(t, ctrl.Refresh(context.Background()))
	assert.False(t, ctrl.BaselineReady())
}

package sim

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"shopsim/internal/game"
)

type handle struct {
	driver *Driver
	cancel context.CancelFunc
}

// Manager keeps at most one running driver per business id and ticks the
// shared stock market.
type Manager struct {
	deps Deps
	cfg  Config
	seed int64
	log  *slog.Logger

	mu      sync.Mutex
	drivers map[string]*handle
}

// NewManager creates the shared market when deps.Market is nil. A zero seed
// means time-based.
func NewManager(deps Deps, cfg Config, seed int64, volatility string) *Manager {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	deps = deps.withDefaults()
	if deps.Market == nil {
		deps.Market = game.NewStockMarket(game.NewRand(seed), volatility)
	}
	return &Manager{
		deps:    deps,
		cfg:     cfg.withDefaults(),
		seed:    seed,
		log:     deps.Logger,
		drivers: map[string]*handle{},
	}
}

func (m *Manager) Market() *game.StockMarket { return m.deps.Market }

func (m *Manager) Config() Config { return m.cfg }

// businessSeed gives every business its own reproducible stream.
func (m *Manager) businessSeed(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return m.seed ^ int64(h.Sum64())
}

// Start loads and runs a driver for businessID, or returns the one already
// running. ctx bounds only the load; the driver runs until Stop or Shutdown.
func (m *Manager) Start(ctx context.Context, businessID string) (*Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.drivers[businessID]; ok {
		return h.driver, nil
	}
	d, err := NewDriver(ctx, businessID, m.deps, m.cfg, m.businessSeed(businessID))
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	m.drivers[businessID] = &handle{driver: d, cancel: cancel}
	d.started.Store(true)
	go d.loop(runCtx)
	return d, nil
}

func (m *Manager) Driver(businessID string) (*Driver, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.drivers[businessID]
	if !ok {
		return nil, false
	}
	return h.driver, true
}

// Stop cancels a driver and waits for its final flush.
func (m *Manager) Stop(businessID string) bool {
	m.mu.Lock()
	h, ok := m.drivers[businessID]
	delete(m.drivers, businessID)
	m.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	<-h.driver.Done()
	return true
}

// StartAll starts a driver for every stored business. Businesses that fail to
// load are logged and skipped.
func (m *Manager) StartAll(ctx context.Context) (int, error) {
	ids, err := m.deps.Store.ListBusinessIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list businesses: %w", err)
	}
	started := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return started, ctx.Err()
		}
		if _, err := m.Start(ctx, id); err != nil {
			m.log.Error("driver start failed", "business_id", id, "err", err)
			continue
		}
		started++
	}
	return started, nil
}

func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drivers)
}

// RunMarket ticks the shared stock market every MarketTick until ctx is
// done.
func (m *Manager) RunMarket(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.MarketTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.deps.Market.Tick()
			m.log.Debug("market tick complete", "regime", m.deps.Market.Regime())
		}
	}
}

// Shutdown stops every driver concurrently and waits for all final flushes.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	handles := make([]*handle, 0, len(m.drivers))
	for id, h := range m.drivers {
		handles = append(handles, h)
		delete(m.drivers, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.cancel()
			<-h.driver.Done()
		}()
	}
	wg.Wait()
	m.log.Info("all drivers stopped", "count", len(handles))
}

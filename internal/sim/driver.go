package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"shopsim/internal/catalog"
	"shopsim/internal/game"

	"github.com/samber/lo"
)

var (
	ErrDriverStopped = errors.New("simulation driver is not running")
	ErrDriverRunning = errors.New("simulation driver already running")
)

// Deps are the collaborators a driver needs. Store and Registry are
// required; the rest fall back to harmless defaults.
type Deps struct {
	Store    game.Store
	Registry *catalog.Registry
	Market   *game.StockMarket
	Clock    Clock
	Logger   *slog.Logger
	Notifier Notifier
	Metrics  Recorder
	Spool    Spool
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = systemClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Notifier == nil {
		d.Notifier = LogNotifier{Log: d.Logger}
	}
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	return d
}

// Snapshot is the read-only view of a business published after every step
// and command.
type Snapshot struct {
	Business      game.BusinessState `json:"business"`
	Orders        []game.Order       `json:"orders"`
	Health        game.Health        `json:"health"`
	Valuation     game.Valuation     `json:"valuation"`
	PendingWrites int                `json:"pending_writes"`
	At            time.Time          `json:"at"`
}

type subtick struct {
	name  string
	every time.Duration
	run   func(now time.Time) error
}

type command struct {
	fn   func(now time.Time) error
	done chan error
}

// Driver simulates one business. All state below snap is owned by a single
// goroutine: the Run loop while it is running, otherwise the caller of Step
// and Flush.
type Driver struct {
	id   string
	deps Deps
	cfg  Config
	bt   catalog.BusinessType
	rng  game.Rand
	log  *slog.Logger

	state   *game.BusinessState
	orders  []game.Order
	buf     *DeltaBuffer
	ticks   []subtick
	next    []time.Time
	restock *game.MarketState
	spooled bool

	snap    atomic.Pointer[Snapshot]
	cmds    chan command
	started atomic.Bool
	done    chan struct{}
}

// NewDriver loads a business and its active orders and prepares the sub-tick
// schedule from the persisted timestamps. Anything a previous driver spooled
// is replayed on top.
func NewDriver(ctx context.Context, businessID string, deps Deps, cfg Config, seed int64) (*Driver, error) {
	deps = deps.withDefaults()
	cfg = cfg.withDefaults()

	b, err := deps.Store.LoadBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("load business %s: %w", businessID, err)
	}
	bt, ok := deps.Registry.BusinessType(b.TypeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", game.ErrUnknownBusinessType, b.TypeID)
	}
	orders, err := deps.Store.LoadActiveOrders(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("load active orders %s: %w", businessID, err)
	}

	d := &Driver{
		id:    b.ID,
		deps:  deps,
		cfg:   cfg,
		bt:    bt,
		rng:   game.NewRand(seed),
		log:   deps.Logger.With("business_id", b.ID),
		state: b,
		orders: lo.Filter(orders, func(o game.Order, _ int) bool {
			return o.Status.Active()
		}),
		buf:  NewDeltaBuffer(b.LastDeltaSeq),
		cmds: make(chan command),
		done: make(chan struct{}),
	}
	if err := d.restoreSpool(); err != nil {
		d.log.Warn("spool restore failed", "err", err)
	}
	d.syncActiveIDs()

	now := deps.Clock.Now()
	d.schedule(now)
	d.publish(now)
	return d, nil
}

func (d *Driver) ID() string { return d.id }

func (d *Driver) BusinessType() catalog.BusinessType { return d.bt }

// Snapshot returns the latest published view. It is safe to call from any
// goroutine.
func (d *Driver) Snapshot() *Snapshot { return d.snap.Load() }

func (d *Driver) schedule(now time.Time) {
	d.ticks = []subtick{
		{name: "restock", every: d.cfg.Restock, run: d.restockTick},
		{name: "recruitment", every: d.cfg.Recruitment, run: d.recruitmentTick},
		{name: "autowork", every: d.cfg.AutoWork, run: d.autoWorkTick},
		{name: "wages", every: d.cfg.Wages, run: d.wagesTick},
		{name: "economy", every: d.cfg.Economy, run: d.economyTick},
		{name: "daily_close", every: d.cfg.DailyClose, run: d.dailyCloseTick},
	}
	last := map[string]time.Time{
		"recruitment": d.state.LastRecruitmentAt,
		"wages":       d.state.LastPayrollAt,
		"economy":     d.state.LastTickAt,
		"daily_close": d.state.LastDailyCloseAt,
	}
	d.next = make([]time.Time, len(d.ticks))
	for i, t := range d.ticks {
		at, ok := last[t.name]
		if !ok || at.IsZero() {
			d.next[i] = now
			continue
		}
		d.next[i] = at.Add(t.every)
	}
}

// Step runs every sub-tick that is due at now, in fixed order. A failing
// sub-tick is logged and the rest still run. Nothing runs once ctx is done.
func (d *Driver) Step(ctx context.Context, now time.Time) {
	ran := false
	for i, t := range d.ticks {
		if ctx.Err() != nil {
			break
		}
		if now.Before(d.next[i]) {
			continue
		}
		d.runSubtick(t, now)
		ran = true
		next := d.next[i].Add(t.every)
		if !next.After(now) {
			next = now.Add(t.every)
		}
		d.next[i] = next
	}
	if ran {
		d.state.LastActiveAt = now
		d.buf.MarkDirty()
		d.publish(now)
	}
}

func (d *Driver) runSubtick(t subtick, now time.Time) {
	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return t.run(now)
	}()
	d.deps.Metrics.SubtickRan(t.name, time.Since(start), err)
	if err != nil {
		d.log.Error("subtick failed", "subtick", t.name, "err", err)
	}
}

// commit applies an additive change to the in-memory record and buffers the
// part of it that took effect after clamping, so the store lands on the same
// numbers.
func (d *Driver) commit(delta game.BusinessDelta) {
	b := d.state
	rep, sat := b.Reputation, b.CustomerSatisfaction
	before := make(map[string]int, len(delta.InventoryDeltas))
	for item := range delta.InventoryDeltas {
		before[item] = b.Inventory[item]
	}
	delta.Seq = 0
	delta.Set = nil
	game.ApplyDelta(b, delta)

	delta.ReputationDelta = b.Reputation - rep
	delta.CustomerSatisfactionDelta = b.CustomerSatisfaction - sat
	if len(before) > 0 {
		effective := map[string]int{}
		for item, was := range before {
			if n := b.Inventory[item] - was; n != 0 {
				effective[item] = n
			}
		}
		delta.InventoryDeltas = effective
	}
	d.buf.Add(delta)
}

// save records an order's new state. Terminal orders leave the active list.
func (d *Driver) save(o game.Order) {
	i := d.orderIndex(o.ID)
	switch {
	case o.Status.Terminal():
		if i >= 0 {
			d.orders = append(d.orders[:i], d.orders[i+1:]...)
		}
		d.deps.Metrics.OrderFinished(d.bt.ID, o.Status)
	case i >= 0:
		d.orders[i] = o
	default:
		d.orders = append(d.orders, o)
	}
	d.buf.UpdateOrder(o)
	d.syncActiveIDs()
}

func (d *Driver) orderIndex(id string) int {
	for i := range d.orders {
		if d.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Driver) syncActiveIDs() {
	d.state.ActiveOrderIDs = lo.Map(d.orders, func(o game.Order, _ int) string { return o.ID })
	d.buf.MarkDirty()
}

func (d *Driver) publish(now time.Time) {
	var quotes map[string]float64
	if d.deps.Market != nil {
		quotes = d.deps.Market.Quotes()
	}
	tools := game.OwnedTools(d.deps.Registry, d.state)
	d.snap.Store(&Snapshot{
		Business:      d.state.Clone(),
		Orders:        lo.Map(d.orders, func(o game.Order, _ int) game.Order { return o.Clone() }),
		Health:        game.AssessFinancialHealth(d.bt, d.state),
		Valuation:     game.ValueBusiness(d.bt, tools, d.state, quotes),
		PendingWrites: d.buf.Pending(),
		At:            now,
	})
}

func (d *Driver) restoreSpool() error {
	if d.deps.Spool == nil {
		return nil
	}
	batch, ok, err := d.deps.Spool.Load(d.id)
	if err != nil || !ok {
		return err
	}
	var kept []game.BusinessDelta
	for _, delta := range batch.Deltas {
		if game.ApplyDelta(d.state, delta) {
			kept = append(kept, delta)
		}
	}
	batch.Deltas = kept
	for _, o := range batch.NewOrders {
		if o.Status.Active() && d.orderIndex(o.ID) < 0 {
			d.orders = append(d.orders, o.Clone())
		}
	}
	for _, u := range batch.Updates {
		if i := d.orderIndex(u.OrderID); i >= 0 {
			d.orders[i].ApplyUpdate(u.Update)
		}
	}
	d.orders = lo.Filter(d.orders, func(o game.Order, _ int) bool { return o.Status.Active() })
	d.buf.Restore(batch)
	d.spooled = true
	d.log.Info("spool restored", "writes", batch.Size(), "seq", d.buf.Seq())
	return nil
}

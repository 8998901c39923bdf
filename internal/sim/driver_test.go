package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"shopsim/internal/catalog"
	"shopsim/internal/game"
	"shopsim/internal/store/memstore"
	"shopsim/internal/store/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	dawn = time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	noon = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func foodTruck(t *testing.T) catalog.BusinessType {
	t.Helper()
	bt, ok := catalog.Default().BusinessType("food_truck")
	require.True(t, ok)
	return bt
}

func newBusiness(t *testing.T, founded time.Time) game.BusinessState {
	t.Helper()
	return game.NewBusinessState(game.NewRand(7), foodTruck(t), game.CreateBusinessInput{OwnerID: "owner-1", Name: "Test Truck"}, founded)
}

func testDeps(store game.Store, clock Clock) Deps {
	return Deps{Store: store, Registry: catalog.Default(), Clock: clock, Logger: quietLogger()}
}

func slowConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseTick = time.Hour
	cfg.Flush = time.Hour
	return cfg
}

func lemonadeOrder(id string, created time.Time) game.Order {
	return game.Order{
		ID:              id,
		CustomerID:      "cust-" + id,
		CustomerType:    catalog.CustomerRegular,
		Items:           []game.LineItem{{ProductID: "lemonade", Name: "Lemonade", Quantity: 1, UnitPrice: 4, UnitCost: 0.8}},
		TotalAmount:     4,
		TotalCost:       0.8,
		Status:          game.StatusPending,
		Deadline:        created.Add(48 * time.Hour),
		ExpiresAt:       created.Add(48 * time.Hour),
		Terms:           game.PaymentTerms{Kind: game.PaymentImmediate},
		RequiredQuality: game.QualityBasic,
		CreatedAt:       created,
	}
}

func startMemDriver(t *testing.T, b game.BusinessState, clock Clock, seed int64) (*Driver, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	_, err := store.CreateBusiness(context.Background(), b)
	require.NoError(t, err)
	d, err := NewDriver(context.Background(), b.ID, testDeps(store, clock), DefaultConfig(), seed)
	require.NoError(t, err)
	return d, store
}

// simulate steps the driver every two seconds of virtual time.
func simulate(d *Driver, clock *ManualClock, span time.Duration) {
	ctx := context.Background()
	end := clock.Now().Add(span)
	for clock.Now().Before(end) {
		d.Step(ctx, clock.Advance(2*time.Second))
	}
}

func TestStoreMatchesDriverAfterFlush(t *testing.T) {
	clock := NewManualClock(noon)
	d, store := startMemDriver(t, newBusiness(t, noon), clock, 42)

	simulate(d, clock, 2*time.Hour)
	require.NoError(t, d.Flush(context.Background()))

	snap := d.Snapshot()
	stored, err := store.LoadBusiness(context.Background(), d.ID())
	require.NoError(t, err)
	require.NotZero(t, len(store.Orders(d.ID())), "two lunch hours should bring orders")

	require.InDelta(t, snap.Business.CashBalance, stored.CashBalance, 0.011)
	require.InDelta(t, snap.Business.TotalRevenue, stored.TotalRevenue, 0.011)
	require.InDelta(t, snap.Business.TotalExpenses, stored.TotalExpenses, 0.011)
	require.InDelta(t, snap.Business.Reputation, stored.Reputation, 1e-6)
	require.Equal(t, snap.Business.OrdersCompleted, stored.OrdersCompleted)
	require.Equal(t, snap.Business.OrdersFailed, stored.OrdersFailed)
	require.Equal(t, snap.Business.Inventory, stored.Inventory)
	require.Equal(t, snap.Business.ActiveOrderIDs, stored.ActiveOrderIDs)
	require.Equal(t, snap.Business.LastDeltaSeq, stored.LastDeltaSeq)
	require.Zero(t, snap.PendingWrites)

	active, err := store.LoadActiveOrders(context.Background(), d.ID())
	require.NoError(t, err)
	require.Len(t, active, len(snap.Orders))
}

func TestFlushRepublishesSnapshot(t *testing.T) {
	clock := NewManualClock(noon)
	d, store := startMemDriver(t, newBusiness(t, noon), clock, 42)

	simulate(d, clock, 2*time.Hour)
	before := d.Snapshot()
	require.NotZero(t, before.PendingWrites)

	require.NoError(t, d.Flush(context.Background()))
	after := d.Snapshot()
	require.Zero(t, after.PendingWrites)
	require.Greater(t, after.Business.LastDeltaSeq, before.Business.LastDeltaSeq)

	stored, err := store.LoadBusiness(context.Background(), d.ID())
	require.NoError(t, err)
	require.Equal(t, stored.LastDeltaSeq, after.Business.LastDeltaSeq)
}

func TestBackgroundFlushRepublishesSnapshot(t *testing.T) {
	b := newBusiness(t, dawn)
	store := memstore.New()
	_, err := store.CreateBusiness(context.Background(), b)
	require.NoError(t, err)

	cfg := slowConfig()
	cfg.Flush = 10 * time.Millisecond
	d, err := NewDriver(context.Background(), b.ID, testDeps(store, NewManualClock(dawn)), cfg, 5)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		<-d.Done()
	}()
	runDriver(ctx, d)

	_, err = d.BuyInventory(ctx, "patty", 5)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return d.Snapshot().PendingWrites == 0
	}, 2*time.Second, 5*time.Millisecond)

	stored, err := store.LoadBusiness(context.Background(), b.ID)
	require.NoError(t, err)
	require.Equal(t, stored.LastDeltaSeq, d.Snapshot().Business.LastDeltaSeq)
}

func TestSameSeedSameBusiness(t *testing.T) {
	clockA, clockB := NewManualClock(noon), NewManualClock(noon)
	a, _ := startMemDriver(t, newBusiness(t, noon), clockA, 99)
	b, _ := startMemDriver(t, newBusiness(t, noon), clockB, 99)

	simulate(a, clockA, time.Hour)
	simulate(b, clockB, time.Hour)

	sa, sb := a.Snapshot(), b.Snapshot()
	require.Equal(t, sa.Business.CashBalance, sb.Business.CashBalance)
	require.Equal(t, sa.Business.OrdersCompleted, sb.Business.OrdersCompleted)
	require.Equal(t, sa.Business.ActiveOrderIDs, sb.Business.ActiveOrderIDs)
	require.Equal(t, sa.Business.Customers, sb.Business.Customers)
}

func TestFailedFlushIsRetriedNextWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	b := newBusiness(t, dawn.Add(-2*time.Minute))
	order := lemonadeOrder("o-1", dawn.Add(-time.Minute))
	store.EXPECT().LoadBusiness(gomock.Any(), b.ID).Return(&b, nil)
	store.EXPECT().LoadActiveOrders(gomock.Any(), b.ID).Return([]game.Order{order}, nil)

	clock := NewManualClock(dawn)
	d, err := NewDriver(context.Background(), b.ID, testDeps(store, clock), DefaultConfig(), 1)
	require.NoError(t, err)
	d.Step(context.Background(), dawn)

	gomock.InOrder(
		store.EXPECT().UpdateOrderStatus(gomock.Any(), b.ID, "o-1", gomock.Any()).Return(errors.New("connection reset")),
		store.EXPECT().UpdateOrderStatus(gomock.Any(), b.ID, "o-1", gomock.Any()).Return(nil),
		store.EXPECT().ApplyBusinessDelta(gomock.Any(), b.ID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, delta game.BusinessDelta) error {
				require.EqualValues(t, 1, delta.Seq)
				require.NotNil(t, delta.Set)
				return nil
			},
		),
	)

	require.Error(t, d.Flush(context.Background()))
	require.NotZero(t, d.buf.Pending(), "a failed flush keeps its writes")

	require.NoError(t, d.Flush(context.Background()))
	require.Zero(t, d.buf.Pending())
	require.Zero(t, d.Snapshot().PendingWrites)

	// Nothing changed since, so nothing is written.
	require.NoError(t, d.Flush(context.Background()))
}

func TestCancelledStepRunsNothing(t *testing.T) {
	clock := NewManualClock(dawn)
	d, _ := startMemDriver(t, newBusiness(t, dawn.Add(-time.Hour)), clock, 1)
	before := d.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Step(ctx, dawn.Add(48*time.Hour))

	after := d.Snapshot()
	require.Equal(t, before.At, after.At)
	require.Empty(t, after.Business.RecruitmentPool)
	require.Equal(t, before.Business.LastActiveAt, after.Business.LastActiveAt)
}

func TestAutoWorkStaysWithinCapacity(t *testing.T) {
	b := newBusiness(t, dawn)
	store := memstore.New()
	_, err := store.CreateBusiness(context.Background(), b)
	require.NoError(t, err)
	var orders []game.Order
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		orders = append(orders, lemonadeOrder(id, dawn))
	}
	require.NoError(t, store.SaveNewOrders(context.Background(), b.ID, orders))

	clock := NewManualClock(dawn)
	d, err := NewDriver(context.Background(), b.ID, testDeps(store, clock), DefaultConfig(), 5)
	require.NoError(t, err)
	d.Step(context.Background(), dawn)

	counts := map[game.OrderStatus]int{}
	for _, o := range d.Snapshot().Orders {
		counts[o.Status]++
	}
	// One manager: four slots, and work power for a single pass of one order.
	require.Equal(t, 2, counts[game.StatusPending])
	require.Equal(t, 3, counts[game.StatusAccepted])
	require.Len(t, d.Snapshot().Orders, 5)

	snap := d.Snapshot().Business
	require.Equal(t, 1, snap.OrdersCompleted+snap.OrdersFailed)
}

func TestUnpaidWagesWearDownMorale(t *testing.T) {
	b := newBusiness(t, dawn.Add(-time.Minute))
	b.CashBalance = 0
	b.LastPayrollAt = dawn.Add(-3 * time.Hour)
	clock := NewManualClock(dawn)
	d, _ := startMemDriver(t, b, clock, 1)

	d.Step(context.Background(), dawn)
	e := d.Snapshot().Business.Employees[0]
	require.Equal(t, 12.5, e.UnpaidWages)
	require.Equal(t, 79.0, e.Stats.Morale)
	require.Zero(t, d.Snapshot().Business.CashBalance)
}

func TestDailyCloseWithoutCashLeavesBillsPending(t *testing.T) {
	b := newBusiness(t, dawn.Add(-time.Minute))
	b.CashBalance = 0
	b.LastDailyCloseAt = dawn.Add(-24 * time.Hour)
	clock := NewManualClock(dawn)
	d, _ := startMemDriver(t, b, clock, 1)

	d.Step(context.Background(), dawn)
	snap := d.Snapshot().Business
	require.Zero(t, snap.CashBalance)
	require.NotEmpty(t, snap.PendingExpenses)
	for _, e := range snap.PendingExpenses {
		require.Nil(t, e.PaidAt)
	}
	require.Equal(t, 53, snap.Inventory["patty"], "12% of 60 patties spoil overnight")
	require.Greater(t, snap.TotalExpenses, 0.0)
}

// runDriver marks the driver started before its loop is scheduled so commands
// issued right away are not refused.
func runDriver(ctx context.Context, d *Driver) {
	d.started.Store(true)
	go d.loop(ctx)
}

type memSpool struct {
	mu      sync.Mutex
	batches map[string]Batch
}

func newMemSpool() *memSpool { return &memSpool{batches: map[string]Batch{}} }

func (s *memSpool) Save(id string, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[id] = b
	return nil
}

func (s *memSpool) Load(id string) (Batch, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	return b, ok, nil
}

func (s *memSpool) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, id)
	return nil
}

func TestRunAppliesCommandsAndFlushesOnStop(t *testing.T) {
	b := newBusiness(t, dawn)
	b.RecruitmentPool = game.RefreshRecruitmentPool(game.NewRand(2), foodTruck(t), nil, dawn)
	store := memstore.New()
	_, err := store.CreateBusiness(context.Background(), b)
	require.NoError(t, err)

	deps := testDeps(store, NewManualClock(dawn))
	deps.Market = game.NewStockMarket(game.NewRand(1), "calm")
	d, err := NewDriver(context.Background(), b.ID, deps, slowConfig(), 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDriver(ctx, d)

	p, err := d.BuyInventory(ctx, "patty", 10)
	require.NoError(t, err)
	require.Equal(t, 19.0, p.Cost)

	hired, err := d.HireCandidate(ctx, b.RecruitmentPool[0].ID)
	require.NoError(t, err)

	_, err = d.TradeStock(ctx, "GROCER", game.SideBuy, 2)
	require.NoError(t, err)

	_, err = d.AcceptOrder(ctx, "missing", "")
	require.ErrorIs(t, err, game.ErrOrderNotFound)
	_, err = d.BuyInventory(ctx, "patty", 0)
	require.ErrorIs(t, err, game.ErrInvalidQuantity)

	snap := d.Snapshot()
	require.Equal(t, 70, snap.Business.Inventory["patty"])
	require.Len(t, snap.Business.Employees, 2)
	require.InDelta(t, b.CashBalance-19-hired.SalaryPerDay-84, snap.Business.CashBalance, 0.001)

	cancel()
	<-d.Done()

	stored, err := store.LoadBusiness(context.Background(), b.ID)
	require.NoError(t, err)
	require.InDelta(t, snap.Business.CashBalance, stored.CashBalance, 0.001)
	require.Equal(t, 70, stored.Inventory["patty"])
	require.Len(t, stored.Employees, 2)
	require.Len(t, stored.Holdings, 1)
	require.Len(t, stored.RecruitmentPool, len(b.RecruitmentPool)-1)

	_, err = d.BuyInventory(context.Background(), "patty", 1)
	require.ErrorIs(t, err, ErrDriverStopped)
	require.ErrorIs(t, d.Run(context.Background()), ErrDriverRunning)
}

func TestUnflushedWritesAreSpooledAndReplayed(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockStore(ctrl)
	spool := newMemSpool()

	b := newBusiness(t, dawn)
	loaded := b.Clone()
	failing.EXPECT().LoadBusiness(gomock.Any(), b.ID).Return(&loaded, nil)
	failing.EXPECT().LoadActiveOrders(gomock.Any(), b.ID).Return(nil, nil)
	failing.EXPECT().ApplyBusinessDelta(gomock.Any(), b.ID, gomock.Any()).Return(errors.New("timeout")).AnyTimes()

	deps := testDeps(failing, NewManualClock(dawn))
	deps.Spool = spool
	d, err := NewDriver(context.Background(), b.ID, deps, slowConfig(), 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDriver(ctx, d)
	_, err = d.BuyInventory(ctx, "patty", 10)
	require.NoError(t, err)
	cancel()
	<-d.Done()

	spooled, ok, err := spool.Load(b.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, spooled.Deltas)

	// A fresh driver on a healthy store picks the spooled writes up.
	store := memstore.New()
	_, err = store.CreateBusiness(context.Background(), b)
	require.NoError(t, err)
	deps = testDeps(store, NewManualClock(dawn))
	deps.Spool = spool
	next, err := NewDriver(context.Background(), b.ID, deps, slowConfig(), 3)
	require.NoError(t, err)
	require.Equal(t, 70, next.Snapshot().Business.Inventory["patty"])
	require.InDelta(t, b.CashBalance-19, next.Snapshot().Business.CashBalance, 0.001)

	require.NoError(t, next.Flush(context.Background()))
	stored, err := store.LoadBusiness(context.Background(), b.ID)
	require.NoError(t, err)
	require.Equal(t, 70, stored.Inventory["patty"])
	_, ok, _ = spool.Load(b.ID)
	require.False(t, ok, "spool is cleared once its writes land")
}

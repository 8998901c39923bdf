package game

import (
	"context"
	"time"
)

//go:generate mockgen -destination=../store/mocks/mock_store.go -package=mocks shopsim/internal/game Store

// Store is the persistence boundary of the simulation. Implementations must
// apply ApplyBusinessDelta atomically with respect to other deltas for the
// same business, and must treat SaveNewOrders as idempotent on order id.
type Store interface {
	LoadBusiness(ctx context.Context, businessID string) (*BusinessState, error)
	LoadBusinessByOwner(ctx context.Context, ownerID string) (*BusinessState, error)
	ListBusinessIDs(ctx context.Context) ([]string, error)
	LoadActiveOrders(ctx context.Context, businessID string) ([]Order, error)
	SaveNewOrders(ctx context.Context, businessID string, orders []Order) error
	UpdateOrderStatus(ctx context.Context, businessID, orderID string, update OrderUpdate) error
	ApplyBusinessDelta(ctx context.Context, businessID string, delta BusinessDelta) error
	SaveMarketState(ctx context.Context, businessID string, market MarketState) error
	CreateBusiness(ctx context.Context, state BusinessState) (string, error)
	DeleteBusiness(ctx context.Context, businessID string) error
}

// BusinessDelta is the aggregated effect of one or more ticks. Additive
// fields are summed into the stored record; Set, when present, replaces the
// fields only the simulation driver writes.
type BusinessDelta struct {
	Seq int64 `json:"seq"`

	CashDelta                 float64        `json:"cash_delta"`
	TotalRevenueDelta         float64        `json:"total_revenue_delta"`
	TotalExpensesDelta        float64        `json:"total_expenses_delta"`
	OrdersCompletedDelta      int            `json:"orders_completed_delta"`
	OrdersFailedDelta         int            `json:"orders_failed_delta"`
	ReputationDelta           float64        `json:"reputation_delta"`
	CustomerSatisfactionDelta float64        `json:"customer_satisfaction_delta"`
	InventoryDeltas           map[string]int `json:"inventory_deltas,omitempty"`
	NewReviews                []Review       `json:"new_reviews,omitempty"`

	Set *OwnedFields `json:"set,omitempty"`
}

func (d BusinessDelta) Empty() bool {
	return d.CashDelta == 0 &&
		d.TotalRevenueDelta == 0 &&
		d.TotalExpensesDelta == 0 &&
		d.OrdersCompletedDelta == 0 &&
		d.OrdersFailedDelta == 0 &&
		d.ReputationDelta == 0 &&
		d.CustomerSatisfactionDelta == 0 &&
		len(d.InventoryDeltas) == 0 &&
		len(d.NewReviews) == 0 &&
		d.Set == nil
}

// Merge folds a later delta into d. The later Set wins.
func (d *BusinessDelta) Merge(later BusinessDelta) {
	d.CashDelta += later.CashDelta
	d.TotalRevenueDelta += later.TotalRevenueDelta
	d.TotalExpensesDelta += later.TotalExpensesDelta
	d.OrdersCompletedDelta += later.OrdersCompletedDelta
	d.OrdersFailedDelta += later.OrdersFailedDelta
	d.ReputationDelta += later.ReputationDelta
	d.CustomerSatisfactionDelta += later.CustomerSatisfactionDelta
	for item, qty := range later.InventoryDeltas {
		if d.InventoryDeltas == nil {
			d.InventoryDeltas = map[string]int{}
		}
		d.InventoryDeltas[item] += qty
		if d.InventoryDeltas[item] == 0 {
			delete(d.InventoryDeltas, item)
		}
	}
	d.NewReviews = append(d.NewReviews, later.NewReviews...)
	if later.Set != nil {
		d.Set = later.Set
	}
}

// OwnedFields are the parts of BusinessState that only the running driver
// mutates. They travel as whole values rather than increments.
type OwnedFields struct {
	StaffCount        int                   `json:"staff_count"`
	Employees         []Employee            `json:"employees"`
	RecruitmentPool   []Candidate           `json:"recruitment_pool"`
	Market            MarketState           `json:"market"`
	Pricing           map[string]PriceCurve `json:"pricing"`
	Customers         []CustomerProfile     `json:"customers"`
	PendingExpenses   []Expense             `json:"pending_expenses"`
	Receivables       []Receivable          `json:"receivables"`
	Tools             []string              `json:"tools"`
	Holdings          []Holding             `json:"holdings"`
	ActiveOrderIDs    []string              `json:"active_order_ids"`
	LastRecruitmentAt time.Time             `json:"last_recruitment_at"`
	LastPayrollAt     time.Time             `json:"last_payroll_at"`
	LastTickAt        time.Time             `json:"last_tick_at"`
	LastDailyCloseAt  time.Time             `json:"last_daily_close_at"`
	LastActiveAt      time.Time             `json:"last_active_at"`
}

func CaptureOwned(b *BusinessState) *OwnedFields {
	c := b.Clone()
	return &OwnedFields{
		StaffCount:        c.StaffCount,
		Employees:         c.Employees,
		RecruitmentPool:   c.RecruitmentPool,
		Market:            c.Market,
		Pricing:           c.Pricing,
		Customers:         c.Customers,
		PendingExpenses:   c.PendingExpenses,
		Receivables:       c.Receivables,
		Tools:             c.Tools,
		Holdings:          c.Holdings,
		ActiveOrderIDs:    c.ActiveOrderIDs,
		LastRecruitmentAt: c.LastRecruitmentAt,
		LastPayrollAt:     c.LastPayrollAt,
		LastTickAt:        c.LastTickAt,
		LastDailyCloseAt:  c.LastDailyCloseAt,
		LastActiveAt:      c.LastActiveAt,
	}
}

func (f *OwnedFields) applyTo(b *BusinessState) {
	b.StaffCount = f.StaffCount
	b.Employees = f.Employees
	b.RecruitmentPool = f.RecruitmentPool
	b.Market = f.Market
	b.Pricing = f.Pricing
	b.Customers = f.Customers
	b.PendingExpenses = f.PendingExpenses
	b.Receivables = f.Receivables
	b.Tools = f.Tools
	b.Holdings = f.Holdings
	b.ActiveOrderIDs = f.ActiveOrderIDs
	b.LastRecruitmentAt = f.LastRecruitmentAt
	b.LastPayrollAt = f.LastPayrollAt
	b.LastTickAt = f.LastTickAt
	b.LastDailyCloseAt = f.LastDailyCloseAt
	b.LastActiveAt = f.LastActiveAt
}

// ApplyDelta is the shared merge rule every store uses. It reports false when
// the delta carries a sequence number the record has already absorbed.
func ApplyDelta(b *BusinessState, d BusinessDelta) bool {
	if d.Seq != 0 && d.Seq <= b.LastDeltaSeq {
		return false
	}
	b.CashBalance = roundCents(b.CashBalance + d.CashDelta)
	b.TotalRevenue = roundCents(b.TotalRevenue + d.TotalRevenueDelta)
	b.TotalExpenses = roundCents(b.TotalExpenses + d.TotalExpensesDelta)
	b.OrdersCompleted += d.OrdersCompletedDelta
	b.OrdersFailed += d.OrdersFailedDelta
	b.Reputation = clampScore(b.Reputation + d.ReputationDelta)
	b.CustomerSatisfaction = clampScore(b.CustomerSatisfaction + d.CustomerSatisfactionDelta)
	if len(d.InventoryDeltas) > 0 && b.Inventory == nil {
		b.Inventory = map[string]int{}
	}
	for item, qty := range d.InventoryDeltas {
		next := b.Inventory[item] + qty
		if next < 0 {
			next = 0
		}
		b.Inventory[item] = next
	}
	if len(d.NewReviews) > 0 {
		b.ReviewCount += len(d.NewReviews)
		b.Reviews = appendCapped(b.Reviews, d.NewReviews, MaxReviews)
	}
	if d.Set != nil {
		d.Set.applyTo(b)
	}
	if d.Seq > b.LastDeltaSeq {
		b.LastDeltaSeq = d.Seq
	}
	return true
}

// CanAdvance reports whether a stored order in status from may be overwritten
// with status to. Repeating the current status is allowed so retried writes
// stay harmless; nothing moves backwards and terminal states never change.
func CanAdvance(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	return statusRank(to) > statusRank(from)
}

func statusRank(s OrderStatus) int {
	switch s {
	case StatusPending:
		return 0
	case StatusAccepted:
		return 1
	case StatusInProgress:
		return 2
	default:
		return 3
	}
}

func appendCapped[T any](dst, src []T, limit int) []T {
	out := append(dst, src...)
	if len(out) > limit {
		out = append([]T(nil), out[len(out)-limit:]...)
	}
	return out
}

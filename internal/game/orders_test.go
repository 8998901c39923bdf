package game

import (
	"errors"
	"math"
	"testing"
	"time"

	"shopsim/internal/catalog"
)

var noon = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func foodTruck(t *testing.T) catalog.BusinessType {
	t.Helper()
	bt, ok := catalog.Default().BusinessType("food_truck")
	if !ok {
		t.Fatalf("food_truck missing from catalog")
	}
	return bt
}

func testOrder(status OrderStatus) Order {
	return Order{
		ID:              "order-1",
		CustomerType:    catalog.CustomerRegular,
		Items:           []LineItem{{ProductID: "burger", Quantity: 2, UnitPrice: 50, Tier: QualityStandard}},
		TotalAmount:     100,
		Status:          status,
		Deadline:        noon.Add(time.Hour),
		ExpiresAt:       noon.Add(10 * time.Minute),
		Terms:           PaymentTerms{Kind: PaymentImmediate},
		RequiredQuality: QualityStandard,
		CreatedAt:       noon,
	}
}

func TestLifecycleOnlyFollowsTheStatusGraph(t *testing.T) {
	bt := foodTruck(t)
	actions := map[string]func(Order) error{
		"accept": func(o Order) error { _, err := AcceptOrder(o, "e1", noon); return err },
		"start":  func(o Order) error { _, _, err := StartOrder(o, noon); return err },
		"complete": func(o Order) error {
			_, err := CompleteOrder(o, bt, 80, noon)
			return err
		},
		"fail":   func(o Order) error { _, err := FailOrder(o, FailDeadlineMissed, noon); return err },
		"reject": func(o Order) error { _, _, err := RejectOrder(o, noon); return err },
		"expire": func(o Order) error { _, err := ExpireOrder(o, noon); return err },
	}
	allowed := map[OrderStatus][]string{
		StatusPending:    {"accept", "reject", "expire"},
		StatusAccepted:   {"start", "complete", "fail"},
		StatusInProgress: {"complete", "fail"},
	}
	statuses := []OrderStatus{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled, StatusExpired}
	for _, from := range statuses {
		for name, act := range actions {
			want := false
			for _, a := range allowed[from] {
				if a == name {
					want = true
				}
			}
			err := act(testOrder(from))
			if want && err != nil {
				t.Fatalf("%s from %s: unexpected error %v", name, from, err)
			}
			if !want && !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s from %s: expected invalid transition, got %v", name, from, err)
			}
		}
	}
}

func TestCompleteFromAcceptedPassesThroughInProgress(t *testing.T) {
	c, err := CompleteOrder(testOrder(StatusAccepted), foodTruck(t), 70, noon)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if c.Order.Status != StatusCompleted || c.Order.StartedAt == nil || c.Order.CompletedAt == nil {
		t.Fatalf("unexpected order %+v", c.Order)
	}
	if c.InventoryUsed["patty"] != 2 {
		t.Fatalf("expected two patties used, got %v", c.InventoryUsed)
	}
}

func TestQualityPaymentIsMonotonicAndBounded(t *testing.T) {
	const total = 100.0
	for _, tier := range []QualityTier{QualityBasic, QualityStandard, QualityPremium, QualityLuxury} {
		prev := -1.0
		for q := 0.0; q <= 100; q += 0.5 {
			pay, tip := QualityPayment(total, q, tier)
			got := pay + tip
			if got < prev {
				t.Fatalf("tier=%s q=%v payment fell from %v to %v", tier, q, prev, got)
			}
			if got > total*1.15+1e-9 || pay < total*0.5 {
				t.Fatalf("tier=%s q=%v payment %v out of bounds", tier, q, got)
			}
			prev = got
		}
	}
}

func TestStandardOrderAtNinetyFiveTips(t *testing.T) {
	c, err := CompleteOrder(testOrder(StatusInProgress), foodTruck(t), 95, noon)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if c.Order.PaidAmount != 100 || c.Order.TipAmount != 15 {
		t.Fatalf("paid=%v tip=%v", c.Order.PaidAmount, c.Order.TipAmount)
	}
	if c.Collected != 115 {
		t.Fatalf("collected=%v", c.Collected)
	}
}

func TestTipIsWholeCents(t *testing.T) {
	cases := []struct{ total, tip float64 }{
		{100, 15},
		{33.33, 5},
		{7.5, 1.13},
		{19.99, 3},
	}
	for _, tc := range cases {
		pay, tip := QualityPayment(tc.total, 95, QualityStandard)
		if pay != tc.total || tip != tc.tip {
			t.Fatalf("total=%v: pay=%v tip=%v, want tip %v", tc.total, pay, tip, tc.tip)
		}
	}
}

func TestBelowThresholdPaysProRata(t *testing.T) {
	pay, tip := QualityPayment(100, 45, QualityPremium)
	if tip != 0 || pay != 60 {
		t.Fatalf("pay=%v tip=%v", pay, tip)
	}
	pay, _ = QualityPayment(100, 10, QualityLuxury)
	if pay != 50 {
		t.Fatalf("expected 50%% floor, got %v", pay)
	}
}

func TestNetDaysCompletionCreatesReceivable(t *testing.T) {
	o := testOrder(StatusInProgress)
	o.Terms = PaymentTerms{Kind: PaymentNetDays, NetDays: 7, CollectionRisk: 0.05}
	c, err := CompleteOrder(o, foodTruck(t), 70, noon)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if c.Collected != 0 || c.Receivable == nil {
		t.Fatalf("expected deferred payment, collected=%v", c.Collected)
	}
	if !c.Receivable.DueAt.Equal(noon.Add(7*24*time.Hour)) || c.Receivable.Amount != 100 {
		t.Fatalf("unexpected receivable %+v", c.Receivable)
	}
}

func TestMilestoneCollectsUpfrontThenRest(t *testing.T) {
	o := testOrder(StatusAccepted)
	o.TotalAmount = 800
	o.Terms = PaymentTerms{Kind: PaymentMilestone, UpfrontFraction: 0.5}
	started, upfront, err := StartOrder(o, noon)
	if err != nil || upfront != 400 {
		t.Fatalf("upfront=%v err=%v", upfront, err)
	}
	c, err := CompleteOrder(started, foodTruck(t), 70, noon)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if c.Collected != 400 || c.Order.PaidAmount != 800 {
		t.Fatalf("collected=%v paid=%v", c.Collected, c.Order.PaidAmount)
	}
}

func TestFailOrderRefundsAndScalesPenalty(t *testing.T) {
	o := testOrder(StatusInProgress)
	o.CustomerType = catalog.CustomerVIP
	o.PaidAmount = 40
	f, err := FailOrder(o, FailDeadlineMissed, noon)
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if f.Refund != 40 || f.Order.PaidAmount != 0 {
		t.Fatalf("refund=%v paid=%v", f.Refund, f.Order.PaidAmount)
	}
	if math.Abs(f.ReputationDelta-(-4.5)) > 1e-9 {
		t.Fatalf("penalty=%v", f.ReputationDelta)
	}

	o.CustomerType = catalog.CustomerBusiness
	f, _ = FailOrder(o, FailQuality, noon)
	if math.Abs(f.ReputationDelta-(-5.2)) > 1e-9 {
		t.Fatalf("business quality penalty=%v", f.ReputationDelta)
	}
}

func TestRejectPenaltyScalesByCustomerType(t *testing.T) {
	tests := []struct {
		ct   catalog.CustomerType
		want float64
	}{
		{catalog.CustomerWalkIn, -0.25},
		{catalog.CustomerRegular, -0.5},
		{catalog.CustomerVIP, -0.75},
	}
	for _, tc := range tests {
		o := testOrder(StatusPending)
		o.CustomerType = tc.ct
		out, delta, err := RejectOrder(o, noon)
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if out.Status != StatusCancelled || math.Abs(delta-tc.want) > 1e-9 {
			t.Fatalf("ct=%s status=%s delta=%v", tc.ct, out.Status, delta)
		}
	}
}

func TestExpiredAndOverdueFilters(t *testing.T) {
	pending := testOrder(StatusPending)
	accepted := testOrder(StatusAccepted)
	accepted.ID = "order-2"
	done := testOrder(StatusCompleted)
	done.ID = "order-3"
	orders := []Order{pending, accepted, done}

	if got := CheckExpiredOrders(orders, noon.Add(5*time.Minute)); len(got) != 0 {
		t.Fatalf("nothing should be expired yet, got %d", len(got))
	}
	if got := CheckExpiredOrders(orders, noon.Add(11*time.Minute)); len(got) != 1 || got[0].ID != pending.ID {
		t.Fatalf("expected the pending order to expire, got %+v", got)
	}
	if got := CheckOverdueOrders(orders, noon.Add(2*time.Hour)); len(got) != 1 || got[0].ID != accepted.ID {
		t.Fatalf("expected the accepted order overdue, got %+v", got)
	}
	if orders[0].Status != StatusPending {
		t.Fatalf("filters must not mutate")
	}
}

func TestGenerateOrdersForTickScenario(t *testing.T) {
	bt := foodTruck(t)
	if bt.Demand.BaseOrdersPerHour != 10 || bt.Demand.HourlyMultiplier[12] != 1.3 {
		t.Fatalf("fixture changed: base=%v mult=%v", bt.Demand.BaseOrdersPerHour, bt.Demand.HourlyMultiplier[12])
	}
	b := &BusinessState{ID: "b1", Reputation: 50, Inventory: map[string]int{"patty": 50, "tortilla": 50, "potato": 50, "lemon": 50}}
	want := 10 * 0.25 * 1.3 * ReputationMultiplier(bt.Demand, 50)
	if got := ExpectedOrders(bt.Demand, 50, 12, 15); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected=%v want=%v", got, want)
	}

	for seed := int64(1); seed <= 200; seed++ {
		for _, active := range []int{0, bt.Demand.MaxConcurrentOrders - 2, bt.Demand.MaxConcurrentOrders} {
			orders := GenerateOrdersForTick(NewRand(seed), bt, b, noon, active, 15, 0)
			limit := min(5, bt.Demand.MaxConcurrentOrders-active)
			if len(orders) > limit {
				t.Fatalf("seed=%d active=%d generated %d orders, limit %d", seed, active, len(orders), limit)
			}
			for _, o := range orders {
				if o.Status != StatusPending || len(o.Items) == 0 || o.TotalAmount <= 0 {
					t.Fatalf("bad order %+v", o)
				}
			}
		}
	}
}

func TestGenerateOrderIsReproducible(t *testing.T) {
	bt := foodTruck(t)
	b := &BusinessState{ID: "b1", Reputation: 70, Inventory: map[string]int{"patty": 10}}
	a := GenerateOrder(NewRand(7), bt, b, noon)
	c := GenerateOrder(NewRand(7), bt, b, noon)
	if a.ID != c.ID || a.TotalAmount != c.TotalAmount || a.CustomerType != c.CustomerType {
		t.Fatalf("same seed produced different orders")
	}
}

func TestCategoryDeadlinesAndTerms(t *testing.T) {
	reg := catalog.Default()
	tests := []struct {
		typeID string
		expiry time.Duration
		check  func(Order) bool
	}{
		{"minimart", 10 * time.Minute, func(o Order) bool { return o.Deadline.Equal(noon.Add(5*time.Minute)) && o.Terms.Kind == PaymentImmediate }},
		{"salon", 10 * time.Minute, func(o Order) bool { return o.Deadline.After(noon.Add(15*time.Minute)) && o.Terms.Kind == PaymentOnCompletion }},
		{"freelance_studio", 4 * time.Hour, func(o Order) bool {
			return o.Deadline.After(noon.Add(72*time.Hour)) && (o.Terms.Kind == PaymentNetDays || o.Terms.Kind == PaymentMilestone)
		}},
	}
	for _, tc := range tests {
		bt, _ := reg.BusinessType(tc.typeID)
		b := &BusinessState{ID: "b1", Reputation: 50, Inventory: map[string]int{}}
		o := GenerateOrder(NewRand(3), bt, b, noon)
		if !o.ExpiresAt.Equal(noon.Add(tc.expiry)) {
			t.Fatalf("%s expiry=%v", tc.typeID, o.ExpiresAt)
		}
		if !tc.check(o) {
			t.Fatalf("%s unexpected deadline/terms: %v %+v", tc.typeID, o.Deadline, o.Terms)
		}
	}
}

func TestCollectDuePayments(t *testing.T) {
	rs := []Receivable{
		{OrderID: "a", Amount: 100, DueAt: noon, CollectionRisk: 0},
		{OrderID: "b", Amount: 50, DueAt: noon, CollectionRisk: 1},
		{OrderID: "c", Amount: 70, DueAt: noon.Add(48 * time.Hour)},
	}
	got := CollectDuePayments(NewRand(1), rs, noon.Add(time.Hour))
	if got.Amount != 100 || len(got.Collected) != 1 || len(got.Defaulted) != 1 || len(got.Remaining) != 1 {
		t.Fatalf("unexpected collection %+v", got)
	}
	if got.Remaining[0].OrderID != "c" {
		t.Fatalf("wrong receivable kept: %+v", got.Remaining)
	}
}

func TestInventoryChecks(t *testing.T) {
	bt := foodTruck(t)
	o := testOrder(StatusAccepted)
	need := InventoryRequired(o, bt)
	if HasStock(map[string]int{"patty": 1}, need) {
		t.Fatalf("one patty should not cover two burgers")
	}
	if !HasStock(map[string]int{"patty": 2}, need) {
		t.Fatalf("two patties should cover two burgers")
	}
}

package game

import (
	"math"
	"time"

	"shopsim/internal/catalog"

	"github.com/samber/lo"
)

const (
	maxOrdersPerTick        = 5
	inStockWeight           = 5.0
	outOfStockWeight        = 1.0
	returningCustomerChance = 0.4
	tipRate                 = 0.15
	paymentFloor            = 0.5
	luxuryTipScore          = 90.0
)

var customerMoods = []string{"happy", "neutral", "impatient"}

// categoryRules holds the per-category order shape. New categories are added
// as table rows.
type categoryRules struct {
	deadline func(fulfil time.Duration) time.Duration
	expiry   time.Duration
	terms    func(total float64) PaymentTerms
}

var categoryTable = map[catalog.Category]categoryRules{
	catalog.CategoryService: {
		deadline: func(f time.Duration) time.Duration { return f + 15*time.Minute },
		expiry:   10 * time.Minute,
		terms:    func(float64) PaymentTerms { return PaymentTerms{Kind: PaymentOnCompletion} },
	},
	catalog.CategoryRetail: {
		deadline: func(time.Duration) time.Duration { return 5 * time.Minute },
		expiry:   10 * time.Minute,
		terms:    func(float64) PaymentTerms { return PaymentTerms{Kind: PaymentImmediate} },
	},
	catalog.CategoryFood: {
		deadline: func(f time.Duration) time.Duration { return f + 10*time.Minute },
		expiry:   10 * time.Minute,
		terms:    func(float64) PaymentTerms { return PaymentTerms{Kind: PaymentImmediate} },
	},
	catalog.CategoryDigital: {
		deadline: func(f time.Duration) time.Duration { return f + 72*time.Hour },
		expiry:   4 * time.Hour,
		terms:    digitalTerms,
	},
}

func digitalTerms(total float64) PaymentTerms {
	if total >= 500 {
		return PaymentTerms{Kind: PaymentMilestone, UpfrontFraction: 0.5}
	}
	return PaymentTerms{Kind: PaymentNetDays, NetDays: 7, CollectionRisk: 0.05}
}

func rulesFor(c catalog.Category) categoryRules {
	if r, ok := categoryTable[c]; ok {
		return r
	}
	return categoryTable[catalog.CategoryRetail]
}

// ReputationMultiplier interpolates between the archetype's floor and ceiling
// as reputation goes from 0 to 100.
func ReputationMultiplier(d catalog.DemandConfig, reputation float64) float64 {
	return d.ReputationFloor + (d.ReputationCeiling-d.ReputationFloor)*clampScore(reputation)/MaxReputation
}

func ExpectedOrders(d catalog.DemandConfig, reputation float64, hour int, tickMinutes float64) float64 {
	return d.BaseOrdersPerHour * (tickMinutes / 60) * d.HourlyMultiplier[((hour%24)+24)%24] * ReputationMultiplier(d, reputation)
}

// GenerateOrdersForTick draws one Bernoulli trial per unit of expected orders,
// never more than five and never past the concurrent-order ceiling.
func GenerateOrdersForTick(rng Rand, bt catalog.BusinessType, b *BusinessState, now time.Time, activeCount int, tickMinutes, demandBonus float64) []Order {
	room := bt.Demand.MaxConcurrentOrders - activeCount
	limit := min(maxOrdersPerTick, room)
	if limit <= 0 {
		return nil
	}
	expected := ExpectedOrders(bt.Demand, b.Reputation, now.Hour(), tickMinutes) * (1 + demandBonus)
	var out []Order
	for remaining := expected; remaining > 0 && len(out) < limit; remaining-- {
		if rng.Float64() < math.Min(remaining, 1) {
			out = append(out, GenerateOrder(rng, bt, b, now))
		}
	}
	return out
}

func GenerateOrder(rng Rand, bt catalog.BusinessType, b *BusinessState, now time.Time) Order {
	ctype := pickCustomerType(rng, bt.Demand.CustomerTypes)
	customerID, loyalty := pickCustomer(rng, b, ctype)
	tier := pickQualityTier(rng, ctype, b.Reputation)
	items := pickLineItems(rng, bt, b, tier, loyalty)

	var total, cost float64
	var fulfil time.Duration
	for _, it := range items {
		total += it.UnitPrice * float64(it.Quantity)
		cost += it.UnitCost * float64(it.Quantity)
		if p, ok := bt.Product(it.ProductID); ok {
			fulfil += time.Duration(p.BaseMinutes*it.Quantity) * time.Minute
		}
	}
	total = roundCents(total)
	rules := rulesFor(bt.Category)

	return Order{
		ID:              newID(rng),
		BusinessID:      b.ID,
		CustomerID:      customerID,
		CustomerType:    ctype,
		CustomerMood:    customerMoods[rng.Intn(len(customerMoods))],
		Items:           items,
		TotalAmount:     total,
		TotalCost:       roundCents(cost),
		Status:          StatusPending,
		Deadline:        now.Add(rules.deadline(fulfil)),
		ExpiresAt:       now.Add(rules.expiry),
		Terms:           rules.terms(total),
		RequiredQuality: tier,
		LoyaltyTier:     loyalty.Tier,
		CreatedAt:       now,
	}
}

func pickCustomerType(rng Rand, weights []catalog.CustomerWeight) catalog.CustomerType {
	ws := lo.Map(weights, func(w catalog.CustomerWeight, _ int) float64 { return w.Weight })
	i := weightedIndex(rng, ws)
	if i < 0 {
		return catalog.CustomerWalkIn
	}
	return weights[i].Type
}

// pickCustomer reuses a cached profile of the same type some of the time.
// Walk-ins are always strangers.
func pickCustomer(rng Rand, b *BusinessState, ct catalog.CustomerType) (string, LoyaltyTier) {
	if ct != catalog.CustomerWalkIn {
		known := lo.Filter(b.Customers, func(p CustomerProfile, _ int) bool { return p.Type == ct })
		if len(known) > 0 && rng.Float64() < returningCustomerChance {
			p := known[rng.Intn(len(known))]
			return p.ID, GetLoyaltyTier(p.LoyaltyScore)
		}
	}
	return newID(rng), GetLoyaltyTier(0)
}

// pickQualityTier skews upward for VIP and business customers and downward
// for walk-ins or a business with reputation under 30.
func pickQualityTier(rng Rand, ct catalog.CustomerType, reputation float64) QualityTier {
	roll := rng.Float64()
	switch ct {
	case catalog.CustomerVIP:
		roll += 0.25
	case catalog.CustomerBusiness:
		roll += 0.15
	case catalog.CustomerWalkIn:
		roll -= 0.20
	}
	if reputation < 30 {
		roll -= 0.15
	}
	switch {
	case roll < 0.35:
		return QualityBasic
	case roll < 0.75:
		return QualityStandard
	case roll < 0.95:
		return QualityPremium
	default:
		return QualityLuxury
	}
}

func pickLineItems(rng Rand, bt catalog.BusinessType, b *BusinessState, tier QualityTier, loyalty LoyaltyTier) []LineItem {
	count := int(math.Round(bt.Demand.AvgItemsPerOrder + jitter(rng, 1)))
	if count < 1 {
		count = 1
	}
	weights := make([]float64, len(bt.Products))
	for i, p := range bt.Products {
		weights[i] = outOfStockWeight
		if !p.UsesInventory() || b.Inventory[p.InventoryItemID] >= p.ConsumptionPerUnit {
			weights[i] = inStockWeight
		}
	}

	var items []LineItem
	index := map[string]int{}
	for n := 0; n < count; n++ {
		i := weightedIndex(rng, weights)
		if i < 0 {
			break
		}
		p := bt.Products[i]
		if at, ok := index[p.ID]; ok {
			items[at].Quantity++
			continue
		}
		index[p.ID] = len(items)
		items = append(items, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  1,
			UnitPrice: roundCents(LivePrice(b, p) * (1 + loyalty.MarginBonus)),
			UnitCost:  p.BaseCost,
			Tier:      tier,
		})
	}
	return items
}

func weightedIndex(rng Rand, weights []float64) int {
	total := lo.Sum(weights)
	if total <= 0 {
		return -1
	}
	roll := rng.Float64() * total
	for i, w := range weights {
		if roll < w {
			return i
		}
		roll -= w
	}
	return len(weights) - 1
}

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusAccepted, StatusCancelled, StatusExpired},
	StatusAccepted:   {StatusInProgress, StatusFailed},
	StatusInProgress: {StatusCompleted, StatusFailed},
}

func CanTransition(from, to OrderStatus) bool {
	return lo.Contains(transitions[from], to)
}

func transition(o *Order, to OrderStatus, action string) error {
	if !CanTransition(o.Status, to) {
		return &TransitionError{OrderID: o.ID, From: o.Status, Action: action}
	}
	o.Status = to
	return nil
}

func AcceptOrder(o Order, employeeID string, now time.Time) (Order, error) {
	o = o.Clone()
	if err := transition(&o, StatusAccepted, "accept"); err != nil {
		return o, err
	}
	o.AssignedTo = employeeID
	o.AcceptedAt = &now
	return o, nil
}

// StartOrder moves an accepted order into work. Milestone orders collect
// their upfront share here; the collected amount is returned.
func StartOrder(o Order, now time.Time) (Order, float64, error) {
	o = o.Clone()
	if err := transition(&o, StatusInProgress, "start"); err != nil {
		return o, 0, err
	}
	o.StartedAt = &now
	var collected float64
	if o.Terms.Kind == PaymentMilestone {
		collected = roundCents(o.TotalAmount * o.Terms.UpfrontFraction)
		o.PaidAmount = roundCents(o.PaidAmount + collected)
	}
	return o, collected, nil
}

type Completion struct {
	Order             Order
	Collected         float64
	Receivable        *Receivable
	InventoryUsed     map[string]int
	OnTime            bool
	ReputationDelta   float64
	SatisfactionDelta float64
}

// QualityPayment is the quality-gated share of total. At or above 90 the
// customer pays in full and tips 15%; at the tier threshold they pay in full;
// below it they pay pro rata, never less than half.
func QualityPayment(total, qualityScore float64, required QualityTier) (payment, tip float64) {
	threshold := required.Threshold()
	switch {
	case qualityScore >= luxuryTipScore:
		payment = total
		tip = roundCents(total * tipRate)
	case qualityScore >= threshold:
		payment = total
	default:
		payment = math.Max(roundCents(total*math.Max(paymentFloor, qualityScore/threshold)), total*paymentFloor)
	}
	return payment, tip
}

// CompleteOrder finishes an in-progress order, or an accepted one by passing
// it through in_progress first. Stock checks are the caller's job; the
// returned InventoryUsed is what to deduct.
func CompleteOrder(o Order, bt catalog.BusinessType, qualityScore float64, now time.Time) (Completion, error) {
	var c Completion
	o = o.Clone()
	if o.Status == StatusAccepted {
		started, collected, err := StartOrder(o, now)
		if err != nil {
			return c, err
		}
		o = started
		c.Collected = collected
	}
	if err := transition(&o, StatusCompleted, "complete"); err != nil {
		return c, err
	}
	o.CompletedAt = &now
	o.DeliveredQuality = qualityScore

	payment, tip := QualityPayment(o.TotalAmount, qualityScore, o.RequiredQuality)
	o.TipAmount = tip
	switch o.Terms.Kind {
	case PaymentNetDays:
		c.Receivable = &Receivable{
			OrderID:        o.ID,
			CustomerID:     o.CustomerID,
			Amount:         roundCents(payment + tip),
			DueAt:          now.Add(time.Duration(o.Terms.NetDays) * 24 * time.Hour),
			CollectionRisk: o.Terms.CollectionRisk,
		}
	case PaymentMilestone:
		rest := math.Max(0, roundCents(payment-o.PaidAmount))
		o.PaidAmount = roundCents(o.PaidAmount + rest)
		c.Collected = roundCents(c.Collected + rest + tip)
	default:
		o.PaidAmount = payment
		c.Collected = roundCents(payment + tip)
	}

	c.Order = o
	c.InventoryUsed = InventoryRequired(o, bt)
	c.OnTime = !now.After(o.Deadline)
	threshold := o.RequiredQuality.Threshold()
	switch {
	case qualityScore >= luxuryTipScore:
		c.ReputationDelta = 1
	case qualityScore >= threshold:
		c.ReputationDelta = 0.5
	default:
		c.ReputationDelta = -1
	}
	if !c.OnTime {
		c.ReputationDelta -= 1
	}
	c.SatisfactionDelta = clamp((qualityScore-60)/10, -4, 4)
	return c, nil
}

type Failure struct {
	Order             Order
	Refund            float64
	ReputationDelta   float64
	SatisfactionDelta float64
}

var failPenalties = map[FailReason]float64{
	FailDeadlineMissed: 3,
	FailOutOfStock:     2,
	FailQuality:        4,
	FailCancelled:      2,
}

func failScale(ct catalog.CustomerType) float64 {
	switch ct {
	case catalog.CustomerVIP:
		return 1.5
	case catalog.CustomerBusiness:
		return 1.3
	default:
		return 1.0
	}
}

func rejectScale(ct catalog.CustomerType) float64 {
	switch ct {
	case catalog.CustomerWalkIn:
		return 0.5
	case catalog.CustomerVIP:
		return 1.5
	case catalog.CustomerBusiness:
		return 1.3
	default:
		return 1.0
	}
}

// FailOrder fails accepted or in-progress work and refunds anything paid.
func FailOrder(o Order, reason FailReason, now time.Time) (Failure, error) {
	o = o.Clone()
	if err := transition(&o, StatusFailed, "fail"); err != nil {
		return Failure{Order: o}, err
	}
	f := Failure{
		Refund:            o.PaidAmount,
		ReputationDelta:   -failPenalties[reason] * failScale(o.CustomerType),
		SatisfactionDelta: -3,
	}
	o.PaidAmount = 0
	o.FailReason = reason
	o.FailedAt = &now
	f.Order = o
	return f, nil
}

// RejectOrder declines a pending order. The reputation cost is small and
// scales with how much the customer type matters.
func RejectOrder(o Order, now time.Time) (Order, float64, error) {
	o = o.Clone()
	if err := transition(&o, StatusCancelled, "reject"); err != nil {
		return o, 0, err
	}
	o.FailReason = FailCancelled
	o.FailedAt = &now
	return o, -0.5 * rejectScale(o.CustomerType), nil
}

func ExpireOrder(o Order, now time.Time) (Order, error) {
	o = o.Clone()
	if err := transition(&o, StatusExpired, "expire"); err != nil {
		return o, err
	}
	o.FailedAt = &now
	return o, nil
}

// CheckExpiredOrders returns pending orders past their expiry. It does not
// change them.
func CheckExpiredOrders(orders []Order, now time.Time) []Order {
	return lo.Filter(orders, func(o Order, _ int) bool {
		return o.Status == StatusPending && now.After(o.ExpiresAt)
	})
}

// CheckOverdueOrders returns accepted or in-progress orders past their
// deadline. It does not change them.
func CheckOverdueOrders(orders []Order, now time.Time) []Order {
	return lo.Filter(orders, func(o Order, _ int) bool {
		return (o.Status == StatusAccepted || o.Status == StatusInProgress) && now.After(o.Deadline)
	})
}

func InventoryRequired(o Order, bt catalog.BusinessType) map[string]int {
	need := map[string]int{}
	for _, it := range o.Items {
		p, ok := bt.Product(it.ProductID)
		if !ok || !p.UsesInventory() {
			continue
		}
		need[p.InventoryItemID] += p.ConsumptionPerUnit * it.Quantity
	}
	return need
}

func HasStock(inventory, need map[string]int) bool {
	for item, qty := range need {
		if inventory[item] < qty {
			return false
		}
	}
	return true
}

type Collection struct {
	Remaining []Receivable
	Collected []Receivable
	Defaulted []Receivable
	Amount    float64
}

// CollectDuePayments settles receivables whose net period has passed. Each
// one either pays in full or, with its collection-risk probability, not at
// all.
func CollectDuePayments(rng Rand, receivables []Receivable, now time.Time) Collection {
	var out Collection
	for _, r := range receivables {
		if now.Before(r.DueAt) {
			out.Remaining = append(out.Remaining, r)
			continue
		}
		if rng.Float64() < r.CollectionRisk {
			out.Defaulted = append(out.Defaulted, r)
			continue
		}
		out.Collected = append(out.Collected, r)
		out.Amount += r.Amount
	}
	out.Amount = roundCents(out.Amount)
	return out
}

func MaybeReview(rng Rand, o Order, completed bool, now time.Time) (Review, bool) {
	chance, rating := 0.5, 1
	if completed {
		chance = 0.3
		rating = reviewRating(o.DeliveredQuality)
	}
	if rng.Float64() >= chance {
		return Review{}, false
	}
	return Review{
		ID:         newID(rng),
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Rating:     rating,
		Comment:    reviewComment(rating),
		CreatedAt:  now,
	}, true
}

func reviewRating(q float64) int {
	switch {
	case q >= 90:
		return 5
	case q >= 75:
		return 4
	case q >= 60:
		return 3
	case q >= 40:
		return 2
	default:
		return 1
	}
}

func reviewComment(rating int) string {
	switch rating {
	case 5:
		return "Outstanding, will be back."
	case 4:
		return "Really good experience."
	case 3:
		return "Decent, nothing special."
	case 2:
		return "Below what I expected."
	default:
		return "Would not recommend."
	}
}

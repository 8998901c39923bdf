package sim

import (
	"math"
	"sort"
	"time"

	"shopsim/internal/game"

	"github.com/samber/lo"
)

// restockTick queues a supplier refill once it is due. The refill is applied
// only after the store accepts it.
func (d *Driver) restockTick(now time.Time) error {
	if d.restock != nil || !game.RestockDue(d.state.Market, now) {
		return nil
	}
	next := game.RestockMarket(d.bt, d.state.Market, now)
	d.restock = &next
	return nil
}

func (d *Driver) recruitmentTick(now time.Time) error {
	d.state.RecruitmentPool = game.RefreshRecruitmentPool(d.rng, d.bt, d.state.RecruitmentPool, now)
	d.state.LastRecruitmentAt = now
	return nil
}

func (d *Driver) bonuses() game.ToolBonuses {
	return game.Bonuses(game.OwnedTools(d.deps.Registry, d.state))
}

func (d *Driver) primarySkill(o game.Order) string {
	if len(o.Items) == 0 {
		return ""
	}
	p, _ := d.bt.Product(o.Items[0].ProductID)
	return p.PrimarySkill
}

func byDeadline(orders []game.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].Deadline.Before(orders[j].Deadline) })
}

// autoWorkTick lets a manager take on pending orders while slots are free,
// then pushes as many accepted orders to completion as work power allows.
func (d *Driver) autoWorkTick(now time.Time) error {
	emps := d.state.Employees
	if len(emps) == 0 {
		return nil
	}
	load := map[string]int{}
	var pending []game.Order
	active := 0
	for _, o := range d.orders {
		switch o.Status {
		case game.StatusPending:
			pending = append(pending, o)
		case game.StatusAccepted, game.StatusInProgress:
			active++
			load[o.AssignedTo]++
		}
	}
	byDeadline(pending)
	slots := game.AcceptSlots(emps, active, len(pending))
	for _, o := range pending[:slots] {
		w := game.PickWorker(emps, load, d.primarySkill(o))
		if w < 0 {
			break
		}
		accepted, err := game.AcceptOrder(o, emps[w].ID, now)
		if err != nil {
			return err
		}
		load[emps[w].ID]++
		d.save(accepted)
	}

	work := lo.Filter(d.orders, func(o game.Order, _ int) bool {
		return o.Status == game.StatusAccepted || o.Status == game.StatusInProgress
	})
	byDeadline(work)
	bonus := d.bonuses()
	power := int(math.Floor(float64(game.WorkPower(len(emps))) * (1 + bonus.Speed)))
	for _, o := range work[:min(power, len(work))] {
		if err := d.work(o, bonus, now); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) work(o game.Order, bonus game.ToolBonuses, now time.Time) error {
	need := game.InventoryRequired(o, d.bt)
	if !game.HasStock(d.state.Inventory, need) {
		return d.fail(o, game.FailOutOfStock, now)
	}
	wi, ok := d.state.Employee(o.AssignedTo)
	if !ok {
		wi = game.PickWorker(d.state.Employees, map[string]int{}, d.primarySkill(o))
		if wi < 0 {
			return nil
		}
	}
	worker := d.state.Employees[wi]
	quality, product := game.OrderQuality(d.rng, worker, d.bt, o, bonus.Quality)
	if quality < o.RequiredQuality.Threshold()-30 {
		return d.fail(o, game.FailQuality, now)
	}

	c, err := game.CompleteOrder(o, d.bt, quality, now)
	if err != nil {
		return err
	}
	delta := game.BusinessDelta{
		CashDelta:                 c.Collected,
		TotalRevenueDelta:         c.Collected,
		OrdersCompletedDelta:      1,
		ReputationDelta:           c.ReputationDelta,
		CustomerSatisfactionDelta: c.SatisfactionDelta,
	}
	if len(c.InventoryUsed) > 0 {
		delta.InventoryDeltas = map[string]int{}
		for item, qty := range c.InventoryUsed {
			delta.InventoryDeltas[item] = -qty
		}
	}
	if c.Receivable != nil {
		d.state.Receivables = append(d.state.Receivables, *c.Receivable)
	}

	worker, levels := game.AwardTaskExperience(worker, product)
	worker, specialized := game.AutoSpecialize(worker)
	worker.TasksCompleted++
	d.state.Employees[wi] = worker
	if levels > 0 || specialized {
		d.log.Info("employee progressed", "employee", worker.Name, "levels", levels, "specialization", worker.Specialization)
	}

	d.recordCustomer(c.Order, quality, c.OnTime, now)
	if r, ok := game.MaybeReview(d.rng, c.Order, true, now); ok {
		delta.NewReviews = []game.Review{r}
	}
	d.commit(delta)
	d.save(c.Order)
	return nil
}

// fail ends an accepted or in-progress order, refunding what it had paid.
func (d *Driver) fail(o game.Order, reason game.FailReason, now time.Time) error {
	f, err := game.FailOrder(o, reason, now)
	if err != nil {
		return err
	}
	delta := game.BusinessDelta{
		CashDelta:                 -f.Refund,
		TotalRevenueDelta:         -f.Refund,
		OrdersFailedDelta:         1,
		ReputationDelta:           f.ReputationDelta,
		CustomerSatisfactionDelta: f.SatisfactionDelta,
	}
	d.recordCustomer(f.Order, 0, false, now)
	if r, ok := game.MaybeReview(d.rng, f.Order, false, now); ok {
		delta.NewReviews = []game.Review{r}
	}
	d.commit(delta)
	d.save(f.Order)
	return nil
}

func (d *Driver) recordCustomer(o game.Order, quality float64, onTime bool, now time.Time) {
	p := game.NewCustomerProfile(o.CustomerID, o.CustomerType)
	if i, ok := d.state.Customer(o.CustomerID); ok {
		p = d.state.Customers[i]
	}
	p = game.RecordOrder(p, o, quality, onTime, now)
	d.state.Customers = game.UpsertCustomer(d.state.Customers, p)
}

// wagesTick accrues a wage slice for everyone, pays what cash covers and
// lets unpaid backlogs wear down morale.
func (d *Driver) wagesTick(now time.Time) error {
	emps := game.AccrueWages(d.state.Employees)
	emps, paid := game.PayWages(emps, d.state.CashBalance)
	d.state.Employees = game.ApplyWageMorale(emps)
	d.state.LastPayrollAt = now
	if paid > 0 {
		d.commit(game.BusinessDelta{CashDelta: -paid, TotalExpensesDelta: paid})
	}
	return nil
}

// economyTick expires and fails stale work, generates new orders and moves
// every price curve one step.
func (d *Driver) economyTick(now time.Time) error {
	for _, o := range game.CheckExpiredOrders(d.orders, now) {
		expired, err := game.ExpireOrder(o, now)
		if err != nil {
			return err
		}
		d.save(expired)
	}
	for _, o := range game.CheckOverdueOrders(d.orders, now) {
		if err := d.fail(o, game.FailDeadlineMissed, now); err != nil {
			return err
		}
	}

	tickMinutes := d.cfg.Economy.Minutes()
	orders := game.GenerateOrdersForTick(d.rng, d.bt, d.state, now, len(d.orders), tickMinutes, d.bonuses().Demand)
	units := map[string]int{}
	for _, o := range orders {
		for _, it := range o.Items {
			units[it.ProductID] += it.Quantity
		}
		d.orders = append(d.orders, o)
		d.buf.AddOrder(o)
	}
	if len(orders) > 0 {
		d.syncActiveIDs()
		d.deps.Metrics.OrdersGenerated(d.bt.ID, len(orders))
	}

	capacity := game.Capacity(d.state.Employees)
	pricing := make(map[string]game.PriceCurve, len(d.bt.Products))
	for _, p := range d.bt.Products {
		curve, ok := d.state.Pricing[p.ID]
		if !ok {
			curve = game.NewPriceCurve(p, game.ProductSupply(p, d.state.Inventory, capacity))
		}
		pricing[p.ID] = game.UpdateCurve(curve, units[p.ID], game.ProductSupply(p, d.state.Inventory, capacity))
	}
	d.state.Pricing = pricing
	d.state.LastTickAt = now
	return nil
}

// dailyCloseTick settles the day: bills and payroll in priority order,
// spoilage, loyalty decay, receivables and an optional restock.
func (d *Driver) dailyCloseTick(now time.Time) error {
	b := d.state

	bills := lo.Reject(b.PendingExpenses, func(e game.Expense, _ int) bool { return e.Payroll })
	bills = append(bills, game.GenerateDailyExpenses(d.rng, d.bt, b, now)...)
	if payroll, ok := game.PayrollExpense(d.rng, b.Employees, now); ok {
		bills = append(bills, payroll)
	}

	spoiled := game.CalculateSpoilage(d.bt, b.Inventory)
	if len(spoiled) > 0 {
		delta := game.BusinessDelta{InventoryDeltas: map[string]int{}}
		for _, s := range spoiled {
			delta.InventoryDeltas[s.ItemID] = -s.Units
			delta.TotalExpensesDelta += s.Loss
		}
		d.commit(delta)
	}

	paid := game.PayExpenses(bills, b.CashBalance, now)
	b.PendingExpenses = paid.Pending
	if paid.TotalPaid > 0 {
		d.commit(game.BusinessDelta{CashDelta: -paid.TotalPaid, TotalExpensesDelta: paid.TotalPaid})
	}
	if lo.ContainsBy(paid.Paid, func(e game.Expense) bool { return e.Payroll }) {
		emps := make([]game.Employee, len(b.Employees))
		for i, e := range b.Employees {
			e = e.Clone()
			e.UnpaidWages = 0
			emps[i] = e
		}
		b.Employees = emps
	}

	b.Customers = lo.Map(b.Customers, func(p game.CustomerProfile, _ int) game.CustomerProfile {
		return game.ApplyLoyaltyDecay(p, now)
	})

	col := game.CollectDuePayments(d.rng, b.Receivables, now)
	b.Receivables = col.Remaining
	if col.Amount > 0 {
		d.commit(game.BusinessDelta{CashDelta: col.Amount, TotalRevenueDelta: col.Amount})
	}
	for _, r := range col.Defaulted {
		d.log.Warn("receivable defaulted", "order_id", r.OrderID, "amount", r.Amount)
	}

	if d.cfg.AutoRestock {
		for _, p := range game.AutoRestockPlan(d.bt, b.Inventory, b.Market, b.CashBalance) {
			d.applyPurchase(p)
		}
	}

	b.LastDailyCloseAt = now
	h := game.AssessFinancialHealth(d.bt, b)
	d.log.Info("daily close",
		"paid", paid.TotalPaid,
		"pending_bills", len(paid.Pending),
		"collected", col.Amount,
		"cash", b.CashBalance,
		"health", h.Status,
		"score", h.Score,
		"runway_days", h.RunwayDays,
	)
	return nil
}

func (d *Driver) applyPurchase(p game.Purchase) {
	d.state.Market = p.Market
	d.commit(game.BusinessDelta{
		CashDelta:          -p.Cost,
		TotalExpensesDelta: p.Cost,
		InventoryDeltas:    map[string]int{p.ItemID: p.Quantity},
	})
}

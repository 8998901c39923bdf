package game

import (
	"fmt"
	"math"
	"sort"
	"time"

	"shopsim/internal/catalog"

	"github.com/samber/lo"
)

const (
	projectedMargin = 0.7
	maxRunwayDays   = 365
)

type taxBracket struct {
	upTo float64
	rate float64
}

var taxBrackets = []taxBracket{
	{upTo: 5_000, rate: 0},
	{upTo: 20_000, rate: 0.05},
	{upTo: 50_000, rate: 0.10},
	{upTo: math.Inf(1), rate: 0.15},
}

// CalculateProgressiveTax taxes each slice of the balance at its bracket rate
// and divides by 30 for the daily figure.
func CalculateProgressiveTax(balance float64) float64 {
	if balance <= 0 {
		return 0
	}
	var tax, floor float64
	for _, b := range taxBrackets {
		if balance <= floor {
			break
		}
		slice := math.Min(balance, b.upTo) - floor
		tax += slice * b.rate
		floor = b.upTo
	}
	return tax / 30
}

var expensePriority = map[ExpenseCategory]int{
	ExpenseRent:        0,
	ExpenseUtilities:   1,
	ExpenseStaff:       2,
	ExpenseLicense:     3,
	ExpenseSupplies:    4,
	ExpenseMaintenance: 5,
	ExpenseInventory:   6,
	ExpenseLoanPayment: 7,
	ExpenseTax:         8,
}

// GenerateDailyExpenses emits one expense per non-zero cost line of the
// archetype, the daily tax slice, and sometimes a maintenance bill.
func GenerateDailyExpenses(rng Rand, bt catalog.BusinessType, b *BusinessState, now time.Time) []Expense {
	c := bt.Costs
	headcount := float64(len(b.Employees))
	lines := []struct {
		cat    ExpenseCategory
		desc   string
		amount float64
	}{
		{ExpenseRent, "rent", c.RentPerDay},
		{ExpenseUtilities, "utilities", c.UtilitiesPerDay},
		{ExpenseLicense, "business license", c.LicensePerDay},
		{ExpenseSupplies, "fuel", c.FuelPerDay},
		{ExpenseStaff, "staff hours", c.StaffCostPerHour * float64(b.OperatingHours) * headcount},
		{ExpenseLicense, "software", c.SoftwarePerMonth / 30},
		{ExpenseTax, "progressive tax", CalculateProgressiveTax(b.CashBalance)},
	}
	var out []Expense
	for _, l := range lines {
		amount := roundCents(l.amount)
		if amount <= 0 {
			continue
		}
		out = append(out, Expense{
			ID:          newID(rng),
			Category:    l.cat,
			Description: l.desc,
			Amount:      amount,
			DueAt:       now,
			Recurring:   l.cat != ExpenseTax,
		})
	}
	if c.MaintenanceProbability > 0 && rng.Float64() < c.MaintenanceProbability {
		out = append(out, Expense{
			ID:          newID(rng),
			Category:    ExpenseMaintenance,
			Description: "equipment maintenance",
			Amount:      roundCents(c.MaintenanceCost * (1 + 0.2*headcount)),
			DueAt:       now,
		})
	}
	return out
}

// PayrollExpense bundles every employee's unpaid wages into one staff
// expense. It returns false when nothing is owed.
func PayrollExpense(rng Rand, employees []Employee, now time.Time) (Expense, bool) {
	owed := roundCents(lo.SumBy(employees, func(e Employee) float64 { return e.UnpaidWages }))
	if owed <= 0 {
		return Expense{}, false
	}
	return Expense{
		ID:          newID(rng),
		Category:    ExpenseStaff,
		Description: "payroll",
		Amount:      owed,
		DueAt:       now,
		Payroll:     true,
	}, true
}

type Spoilage struct {
	ItemID string  `json:"item_id"`
	Units  int     `json:"units"`
	Loss   float64 `json:"loss"`
}

func CalculateSpoilage(bt catalog.BusinessType, inventory map[string]int) []Spoilage {
	rate := bt.Costs.IngredientWastePercent
	if rate <= 0 {
		return nil
	}
	var out []Spoilage
	for _, item := range bt.Inventory {
		units := int(math.Floor(float64(inventory[item.ID]) * rate))
		if units <= 0 {
			continue
		}
		out = append(out, Spoilage{ItemID: item.ID, Units: units, Loss: roundCents(float64(units) * item.BaseCost)})
	}
	return out
}

// ApplySpoilage returns a copy of inventory with spoiled units removed.
func ApplySpoilage(inventory map[string]int, spoiled []Spoilage) map[string]int {
	out := cloneMap(inventory)
	if out == nil {
		out = map[string]int{}
	}
	for _, s := range spoiled {
		out[s.ItemID] = max(0, out[s.ItemID]-s.Units)
	}
	return out
}

type ExpensePayment struct {
	Paid      []Expense
	Pending   []Expense
	TotalPaid float64
	Cash      float64
}

// PayExpenses pays in fixed category priority while cash lasts. The first
// bill that cannot be covered stops payment; it and everything after it stay
// pending for the next cycle.
func PayExpenses(expenses []Expense, cash float64, now time.Time) ExpensePayment {
	ordered := append([]Expense(nil), expenses...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return expensePriority[ordered[i].Category] < expensePriority[ordered[j].Category]
	})
	out := ExpensePayment{Cash: cash}
	blocked := false
	for _, e := range ordered {
		if blocked || e.Amount > out.Cash {
			blocked = true
			out.Pending = append(out.Pending, e)
			continue
		}
		paidAt := now
		e.PaidAt = &paidAt
		out.Cash = roundCents(out.Cash - e.Amount)
		out.TotalPaid = roundCents(out.TotalPaid + e.Amount)
		out.Paid = append(out.Paid, e)
	}
	return out
}

// DailyFixedCosts is the predictable part of a day's outgoings: every cost
// line except tax and maintenance, plus salaries.
func DailyFixedCosts(bt catalog.BusinessType, b *BusinessState) float64 {
	c := bt.Costs
	headcount := float64(len(b.Employees))
	salaries := lo.SumBy(b.Employees, func(e Employee) float64 { return e.SalaryPerDay })
	return roundCents(c.RentPerDay + c.UtilitiesPerDay + c.LicensePerDay + c.FuelPerDay +
		c.StaffCostPerHour*float64(b.OperatingHours)*headcount + c.SoftwarePerMonth/30 + salaries)
}

func EstimatedDailyProfit(bt catalog.BusinessType, b *BusinessState) float64 {
	d := bt.Demand
	return roundCents(d.AvgOrderValue * d.BaseOrdersPerHour * float64(b.OperatingHours) * ReputationMultiplier(d, b.Reputation) * projectedMargin)
}

type ProjectionDay struct {
	Day     int     `json:"day"`
	Balance float64 `json:"balance"`
}

type Projection struct {
	Days             []ProjectionDay `json:"days"`
	DailyCost        float64         `json:"daily_cost"`
	DailyRevenue     float64         `json:"daily_revenue"`
	FirstNegativeDay int             `json:"first_negative_day,omitempty"`
	Warning          string          `json:"warning,omitempty"`
}

func ProjectCashFlow(bt catalog.BusinessType, b *BusinessState, daysAhead int) Projection {
	p := Projection{
		DailyCost:    DailyFixedCosts(bt, b),
		DailyRevenue: EstimatedDailyProfit(bt, b),
	}
	balance := b.CashBalance
	for day := 1; day <= daysAhead; day++ {
		balance = roundCents(balance + p.DailyRevenue - p.DailyCost)
		p.Days = append(p.Days, ProjectionDay{Day: day, Balance: balance})
		if balance < 0 && p.FirstNegativeDay == 0 {
			p.FirstNegativeDay = day
			p.Warning = fmt.Sprintf("cash projected negative on day %d", day)
		}
	}
	return p
}

type HealthStatus string

const (
	HealthCritical   HealthStatus = "critical"
	HealthStruggling HealthStatus = "struggling"
	HealthStable     HealthStatus = "stable"
	HealthThriving   HealthStatus = "thriving"
)

type Health struct {
	Score       float64      `json:"score"`
	Status      HealthStatus `json:"status"`
	RunwayDays  float64      `json:"runway_days"`
	SuccessRate float64      `json:"success_rate"`
}

func AssessFinancialHealth(bt catalog.BusinessType, b *BusinessState) Health {
	h := Health{Score: 50}
	cost := DailyFixedCosts(bt, b)
	h.RunwayDays = maxRunwayDays
	if cost > 0 {
		h.RunwayDays = math.Min(b.CashBalance/cost, maxRunwayDays)
	}
	switch {
	case h.RunwayDays < 1:
		h.Score -= 40
	case h.RunwayDays < 3:
		h.Score -= 25
	case h.RunwayDays < 7:
		h.Score -= 10
	case h.RunwayDays > 14:
		h.Score += 15
	}
	switch {
	case b.Reputation >= 80:
		h.Score += 15
	case b.Reputation >= 60:
		h.Score += 5
	case b.Reputation < 30:
		h.Score -= 15
	}
	finished := b.OrdersCompleted + b.OrdersFailed
	if finished > 0 {
		h.SuccessRate = float64(b.OrdersCompleted) / float64(finished)
	}
	if finished >= 5 {
		switch {
		case h.SuccessRate >= 0.9:
			h.Score += 10
		case h.SuccessRate < 0.6:
			h.Score -= 15
		}
	}
	h.Score = clampScore(h.Score)
	switch {
	case h.Score < 25:
		h.Status = HealthCritical
	case h.Score < 45:
		h.Status = HealthStruggling
	case h.Score < 70:
		h.Status = HealthStable
	default:
		h.Status = HealthThriving
	}
	return h
}

package game

import (
	"math"
	"sort"

	"shopsim/internal/catalog"

	"github.com/samber/lo"
)

const qualityJitter = 5.0

// Capacity is the total number of orders the staff can carry at once.
func Capacity(employees []Employee) int {
	return lo.SumBy(employees, func(e Employee) int { return e.Role.Slots() })
}

// WorkPower is how many orders the staff can push to completion per work
// pass.
func WorkPower(employees int) int {
	p := int(math.Floor(float64(employees) / 1.5))
	if p < 1 {
		return 1
	}
	return p
}

// AcceptSlots is how many pending orders a manager may take on right now:
// capacity minus work already in hand, and never more than is waiting.
func AcceptSlots(employees []Employee, active, pending int) int {
	if !lo.ContainsBy(employees, func(e Employee) bool { return e.Role == RoleManager }) {
		return 0
	}
	return max(0, min(Capacity(employees)-active, pending))
}

// QualityScore rolls the delivered quality for one employee working a product.
func QualityScore(rng Rand, e Employee, p catalog.ProductTemplate, toolBonus float64) float64 {
	mod := CalculatePerformanceModifier(e, p.PrimarySkill)
	skill := float64(max(0, e.Skills[p.PrimarySkill].Level-1)) * 3
	return clampScore(e.Stats.Quality*mod + skill + jitter(rng, qualityJitter) + toolBonus)
}

// OrderQuality averages QualityScore over the distinct products in an order.
func OrderQuality(rng Rand, e Employee, bt catalog.BusinessType, o Order, toolBonus float64) (float64, catalog.ProductTemplate) {
	var sum float64
	var n int
	var primary catalog.ProductTemplate
	for i, it := range o.Items {
		p, ok := bt.Product(it.ProductID)
		if !ok {
			continue
		}
		if i == 0 {
			primary = p
		}
		sum += QualityScore(rng, e, p, toolBonus)
		n++
	}
	if n == 0 {
		return 0, primary
	}
	return sum / float64(n), primary
}

// PickWorker returns the index of the employee with the fewest assigned
// orders who still has a free slot, preferring a specialization match for
// skill. It returns -1 when everyone is full.
func PickWorker(employees []Employee, load map[string]int, skill string) int {
	idx := make([]int, 0, len(employees))
	for i, e := range employees {
		if load[e.ID] < e.Role.Slots() {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return -1
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ea, eb := employees[idx[a]], employees[idx[b]]
		ma, mb := ea.Specialization == skill, eb.Specialization == skill
		if ma != mb {
			return ma
		}
		return load[ea.ID] < load[eb.ID]
	})
	return idx[0]
}

// AccrueWages adds an eighth of a day's salary to each employee's backlog.
func AccrueWages(employees []Employee) []Employee {
	out := make([]Employee, len(employees))
	for i, e := range employees {
		e = e.Clone()
		e.UnpaidWages = roundCents(e.UnpaidWages + e.SalaryPerDay/8)
		out[i] = e
	}
	return out
}

// PayWages settles backlogs in employee order while cash lasts and returns
// the amount paid.
func PayWages(employees []Employee, cash float64) ([]Employee, float64) {
	out := make([]Employee, len(employees))
	var paid float64
	for i, e := range employees {
		e = e.Clone()
		if e.UnpaidWages > 0 && e.UnpaidWages <= cash-paid {
			paid += e.UnpaidWages
			e.UnpaidWages = 0
		}
		out[i] = e
	}
	return out, roundCents(paid)
}

// ApplyWageMorale drops morale by 1 for anyone with unpaid wages and by 2 more
// once the backlog passes two days of salary.
func ApplyWageMorale(employees []Employee) []Employee {
	out := make([]Employee, len(employees))
	for i, e := range employees {
		e = e.Clone()
		if e.UnpaidWages > 0 {
			e.Stats.Morale--
			if e.UnpaidWages > 2*e.SalaryPerDay {
				e.Stats.Morale -= 2
			}
			e.Stats.Morale = clampScore(e.Stats.Morale)
		}
		out[i] = e
	}
	return out
}

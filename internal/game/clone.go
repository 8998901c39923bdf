package game

import "time"

// Clone returns a deep copy that shares no slices or maps with b.
func (b *BusinessState) Clone() BusinessState {
	out := *b
	out.Inventory = cloneMap(b.Inventory)
	out.Reviews = cloneSlice(b.Reviews, nil)
	out.Employees = cloneSlice(b.Employees, Employee.Clone)
	out.RecruitmentPool = cloneSlice(b.RecruitmentPool, func(c Candidate) Candidate {
		c.Skills = cloneMap(c.Skills)
		return c
	})
	out.Market = b.Market.Clone()
	if b.Pricing != nil {
		out.Pricing = make(map[string]PriceCurve, len(b.Pricing))
		for k, c := range b.Pricing {
			c.History = cloneSlice(c.History, nil)
			out.Pricing[k] = c
		}
	}
	out.Customers = cloneSlice(b.Customers, func(c CustomerProfile) CustomerProfile {
		c.OrderHistory = cloneSlice(c.OrderHistory, nil)
		return c
	})
	out.PendingExpenses = cloneSlice(b.PendingExpenses, func(e Expense) Expense {
		e.PaidAt = cloneTime(e.PaidAt)
		return e
	})
	out.Receivables = cloneSlice(b.Receivables, nil)
	out.Tools = cloneSlice(b.Tools, nil)
	out.Holdings = cloneSlice(b.Holdings, nil)
	out.ActiveOrderIDs = cloneSlice(b.ActiveOrderIDs, nil)
	return out
}

func (e Employee) Clone() Employee {
	e.Skills = cloneMap(e.Skills)
	return e
}

func (o Order) Clone() Order {
	o.Items = cloneSlice(o.Items, nil)
	o.AcceptedAt = cloneTime(o.AcceptedAt)
	o.StartedAt = cloneTime(o.StartedAt)
	o.CompletedAt = cloneTime(o.CompletedAt)
	o.FailedAt = cloneTime(o.FailedAt)
	return o
}

func cloneSlice[T any](in []T, deep func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		if deep != nil {
			v = deep(v)
		}
		out[i] = v
	}
	return out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

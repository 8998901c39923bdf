package sim

import (
	"context"
	"fmt"
	"time"

	"shopsim/internal/game"
)

// Commands run on the driver loop through Do, so they never race a sub-tick.
// Each returns the domain error unchanged for the caller to map.

func (d *Driver) activeOrder(orderID string) (game.Order, error) {
	i := d.orderIndex(orderID)
	if i < 0 {
		return game.Order{}, fmt.Errorf("%w: %s", game.ErrOrderNotFound, orderID)
	}
	return d.orders[i], nil
}

// AcceptOrder assigns a pending order to employeeID, or to the least loaded
// employee with a free slot when employeeID is empty.
func (d *Driver) AcceptOrder(ctx context.Context, orderID, employeeID string) (game.Order, error) {
	var out game.Order
	err := d.Do(ctx, func(now time.Time) error {
		o, err := d.activeOrder(orderID)
		if err != nil {
			return err
		}
		load := map[string]int{}
		for _, a := range d.orders {
			if a.Status == game.StatusAccepted || a.Status == game.StatusInProgress {
				load[a.AssignedTo]++
			}
		}
		emps := d.state.Employees
		var w int
		if employeeID == "" {
			w = game.PickWorker(emps, load, d.primarySkill(o))
			if w < 0 {
				return game.ErrStaffAtCapacity
			}
		} else {
			var ok bool
			if w, ok = d.state.Employee(employeeID); !ok {
				return fmt.Errorf("%w: %s", game.ErrEmployeeNotFound, employeeID)
			}
			if load[employeeID] >= emps[w].Role.Slots() {
				return fmt.Errorf("%w: %s", game.ErrStaffAtCapacity, emps[w].Name)
			}
		}
		accepted, err := game.AcceptOrder(o, emps[w].ID, now)
		if err != nil {
			return err
		}
		d.save(accepted)
		out = accepted
		return nil
	})
	return out, err
}

func (d *Driver) RejectOrder(ctx context.Context, orderID string) (game.Order, error) {
	var out game.Order
	err := d.Do(ctx, func(now time.Time) error {
		o, err := d.activeOrder(orderID)
		if err != nil {
			return err
		}
		rejected, rep, err := game.RejectOrder(o, now)
		if err != nil {
			return err
		}
		d.commit(game.BusinessDelta{ReputationDelta: rep})
		d.save(rejected)
		out = rejected
		return nil
	})
	return out, err
}

// CancelOrder abandons accepted or in-progress work as a failed order.
func (d *Driver) CancelOrder(ctx context.Context, orderID string) error {
	return d.Do(ctx, func(now time.Time) error {
		o, err := d.activeOrder(orderID)
		if err != nil {
			return err
		}
		return d.fail(o, game.FailCancelled, now)
	})
}

func (d *Driver) HireCandidate(ctx context.Context, candidateID string) (game.Employee, error) {
	var out game.Employee
	err := d.Do(ctx, func(now time.Time) error {
		hire, err := game.HireCandidate(d.state.RecruitmentPool, d.state.CashBalance, candidateID, now)
		if err != nil {
			return err
		}
		d.state.RecruitmentPool = hire.Pool
		d.state.Employees = append(d.state.Employees, hire.Employee)
		d.state.StaffCount = len(d.state.Employees)
		d.commit(game.BusinessDelta{CashDelta: -hire.SigningCost, TotalExpensesDelta: hire.SigningCost})
		d.log.Info("employee hired", "employee", hire.Employee.Name, "role", hire.Employee.Role, "salary", hire.Employee.SalaryPerDay)
		out = hire.Employee
		return nil
	})
	return out, err
}

func (d *Driver) AssignSpecialization(ctx context.Context, employeeID, skill string) (game.Employee, error) {
	var out game.Employee
	err := d.Do(ctx, func(time.Time) error {
		i, ok := d.state.Employee(employeeID)
		if !ok {
			return fmt.Errorf("%w: %s", game.ErrEmployeeNotFound, employeeID)
		}
		e, err := game.AssignSpecialization(d.state.Employees[i], skill)
		if err != nil {
			return err
		}
		d.state.Employees[i] = e
		out = e
		return nil
	})
	return out, err
}

func (d *Driver) BuyInventory(ctx context.Context, itemID string, qty int) (game.Purchase, error) {
	var out game.Purchase
	err := d.Do(ctx, func(time.Time) error {
		p, err := game.BuyInventory(d.bt, d.state.Market, d.state.CashBalance, itemID, qty)
		if err != nil {
			return err
		}
		d.applyPurchase(p)
		out = p
		return nil
	})
	return out, err
}

func (d *Driver) PurchaseTool(ctx context.Context, toolID string) error {
	return d.Do(ctx, func(time.Time) error {
		tool, ok := d.deps.Registry.Tool(toolID)
		if !ok {
			return fmt.Errorf("%w: %s", game.ErrUnknownTool, toolID)
		}
		price, err := game.PurchaseTool(d.bt, tool, d.state)
		if err != nil {
			return err
		}
		d.state.Tools = append(append([]string(nil), d.state.Tools...), tool.ID)
		d.commit(game.BusinessDelta{CashDelta: -price, TotalExpensesDelta: price})
		return nil
	})
}

// TradeStock buys or sells whole shares at the current quote.
func (d *Driver) TradeStock(ctx context.Context, symbol string, side game.TradeSide, shares int64) (game.Trade, error) {
	var out game.Trade
	err := d.Do(ctx, func(time.Time) error {
		if d.deps.Market == nil {
			return fmt.Errorf("%w: market closed", game.ErrStockNotFound)
		}
		price, err := d.deps.Market.Quote(symbol)
		if err != nil {
			return err
		}
		t, err := game.TradeStock(d.state.Holdings, d.state.CashBalance, symbol, side, shares, price)
		if err != nil {
			return err
		}
		d.state.Holdings = t.Holdings
		d.commit(game.BusinessDelta{CashDelta: t.CashDelta})
		out = t
		return nil
	})
	return out, err
}

package game

import (
	"fmt"
	"time"

	"shopsim/internal/catalog"
)

func InitialMarket(bt catalog.BusinessType, now time.Time) MarketState {
	m := MarketState{StockLevels: map[string]int{}, LastRestockAt: now}
	for _, it := range bt.Inventory {
		m.StockLevels[it.ID] = it.SupplierStock
	}
	m.NextRestockAt = now.Add(restockEvery(bt))
	return m
}

func restockEvery(bt catalog.BusinessType) time.Duration {
	if bt.RestockEvery > 0 {
		return bt.RestockEvery
	}
	return 24 * time.Hour
}

// RestockDue reports whether the supplier refill is due.
func RestockDue(m MarketState, now time.Time) bool {
	return !now.Before(m.NextRestockAt)
}

// RestockMarket refills supplier stock to the archetype's levels and moves
// the schedule forward.
func RestockMarket(bt catalog.BusinessType, m MarketState, now time.Time) MarketState {
	out := m.Clone()
	if out.StockLevels == nil {
		out.StockLevels = map[string]int{}
	}
	for _, it := range bt.Inventory {
		out.StockLevels[it.ID] = it.SupplierStock
	}
	out.LastRestockAt = now
	out.NextRestockAt = now.Add(restockEvery(bt))
	return out
}

type Purchase struct {
	ItemID   string      `json:"item_id"`
	Quantity int         `json:"quantity"`
	Cost     float64     `json:"cost"`
	Market   MarketState `json:"market"`
}

// BuyInventory buys qty of an item from the supplier at base cost. Nothing is
// changed unless the whole purchase is possible.
func BuyInventory(bt catalog.BusinessType, m MarketState, cash float64, itemID string, qty int) (Purchase, error) {
	if qty <= 0 {
		return Purchase{}, fmt.Errorf("%w: qty=%d", ErrInvalidQuantity, qty)
	}
	item, ok := bt.Item(itemID)
	if !ok {
		return Purchase{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	if m.StockLevels[itemID] < qty {
		return Purchase{}, fmt.Errorf("%w: supplier has %d %s", ErrInsufficientStock, m.StockLevels[itemID], item.Name)
	}
	cost := roundCents(item.BaseCost * float64(qty))
	if cost > cash {
		return Purchase{}, fmt.Errorf("%w: %d %s costs %.2f", ErrInsufficientFunds, qty, item.Name, cost)
	}
	next := m.Clone()
	next.StockLevels[itemID] -= qty
	return Purchase{ItemID: itemID, Quantity: qty, Cost: cost, Market: next}, nil
}

// AutoRestockPlan lists purchases that bring each item back to its restock
// target, limited by supplier stock and by cash in catalog order.
func AutoRestockPlan(bt catalog.BusinessType, inventory map[string]int, m MarketState, cash float64) []Purchase {
	var out []Purchase
	market := m
	for _, it := range bt.Inventory {
		want := it.RestockTarget - inventory[it.ID]
		if want <= 0 || it.BaseCost <= 0 {
			continue
		}
		want = min(want, market.StockLevels[it.ID], int(cash/it.BaseCost))
		if want <= 0 {
			continue
		}
		p, err := BuyInventory(bt, market, cash, it.ID, want)
		if err != nil {
			continue
		}
		cash -= p.Cost
		market = p.Market
		out = append(out, p)
	}
	return out
}

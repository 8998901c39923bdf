package game

import (
	"math"

	"shopsim/internal/catalog"
)

const toolResaleFactor = 0.6

type Valuation struct {
	Cash           float64 `json:"cash"`
	InventoryValue float64 `json:"inventory_value"`
	ToolsValue     float64 `json:"tools_value"`
	HoldingsValue  float64 `json:"holdings_value"`
	NetWorth       float64 `json:"net_worth"`
	Profit         float64 `json:"profit"`
	Multiplier     float64 `json:"multiplier"`
	Valuation      float64 `json:"valuation"`
}

// ValueBusiness adds stock at cost, tools at resale value and share holdings
// at the quoted price to cash, then capitalizes positive lifetime profit by
// the archetype multiplier scaled by reputation.
func ValueBusiness(bt catalog.BusinessType, tools []catalog.Tool, b *BusinessState, quotes map[string]float64) Valuation {
	v := Valuation{Cash: b.CashBalance}
	for _, item := range bt.Inventory {
		v.InventoryValue += float64(b.Inventory[item.ID]) * item.BaseCost
	}
	for _, t := range tools {
		if b.OwnsTool(t.ID) {
			v.ToolsValue += t.Price * toolResaleFactor
		}
	}
	for _, h := range b.Holdings {
		price, ok := quotes[h.Symbol]
		if !ok {
			price = h.AvgPrice
		}
		v.HoldingsValue += float64(h.Shares) * price
	}
	v.InventoryValue = roundCents(v.InventoryValue)
	v.ToolsValue = roundCents(v.ToolsValue)
	v.HoldingsValue = roundCents(v.HoldingsValue)
	v.NetWorth = roundCents(v.Cash + v.InventoryValue + v.ToolsValue + v.HoldingsValue)
	v.Profit = roundCents(math.Max(0, b.TotalRevenue-b.TotalExpenses))
	v.Multiplier = bt.ValuationMultiplier * (0.5 + clampScore(b.Reputation)/MaxReputation)
	v.Valuation = roundCents(v.NetWorth + v.Profit*v.Multiplier)
	return v
}

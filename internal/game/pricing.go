package game

import (
	"shopsim/internal/catalog"

	"github.com/samber/lo"
)

const (
	DefaultElasticity = 0.3
	demandDecay       = 0.8
	trendWindow       = 5
	trendThreshold    = 0.05
)

func NewPriceCurve(p catalog.ProductTemplate, supply float64) PriceCurve {
	return PriceCurve{
		ProductID:    p.ID,
		BasePrice:    p.BasePrice,
		CurrentPrice: p.BasePrice,
		Demand:       supply,
		Supply:       supply,
		Elasticity:   DefaultElasticity,
		History:      []float64{p.BasePrice},
		Trend:        TrendStable,
	}
}

// CalculatePrice applies the supply/demand multiplier to the base price.
// Empty supply prices at the 2x ceiling, absent demand at the 0.5x floor.
func CalculatePrice(c PriceCurve) float64 {
	floor, ceiling := c.BasePrice*0.5, c.BasePrice*2
	switch {
	case c.Supply <= 0:
		return roundCents(ceiling)
	case c.Demand <= 0:
		return roundCents(floor)
	}
	mult := 1 + (c.Demand/c.Supply-1)*c.Elasticity
	return roundCents(clamp(c.BasePrice*mult, floor, ceiling))
}

// CalculateTrend compares the mean of the latest five prices with the five
// before them.
func CalculateTrend(history []float64) Trend {
	if len(history) < trendWindow+1 {
		return TrendStable
	}
	recent := history[len(history)-trendWindow:]
	start := len(history) - 2*trendWindow
	if start < 0 {
		start = 0
	}
	prior := history[start : len(history)-trendWindow]
	before := lo.Mean(prior)
	if before <= 0 {
		return TrendStable
	}
	change := (lo.Mean(recent) - before) / before
	switch {
	case change > trendThreshold:
		return TrendRising
	case change < -trendThreshold:
		return TrendFalling
	default:
		return TrendStable
	}
}

// UpdateCurve runs one economy step: decay demand, add what was just ordered,
// take the new supply reading and reprice.
func UpdateCurve(c PriceCurve, unitsOrdered int, supply float64) PriceCurve {
	c.Demand = c.Demand*demandDecay + float64(unitsOrdered)
	c.Supply = supply
	c.CurrentPrice = CalculatePrice(c)
	c.History = appendCapped(append([]float64(nil), c.History...), []float64{c.CurrentPrice}, MaxPriceHistory)
	c.Trend = CalculateTrend(c.History)
	return c
}

// ProductSupply is the supply reading for a product: sellable units in stock,
// or for products without inventory twice the staff's concurrent capacity.
func ProductSupply(p catalog.ProductTemplate, inventory map[string]int, capacity int) float64 {
	if !p.UsesInventory() {
		return float64(capacity * 2)
	}
	return float64(inventory[p.InventoryItemID] / p.ConsumptionPerUnit)
}

// LivePrice is what an order is quoted for a product before loyalty markups.
func LivePrice(b *BusinessState, p catalog.ProductTemplate) float64 {
	if c, ok := b.Pricing[p.ID]; ok && c.CurrentPrice > 0 {
		return c.CurrentPrice
	}
	return p.BasePrice
}

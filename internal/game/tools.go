package game

import (
	"fmt"

	"shopsim/internal/catalog"
)

type ToolBonuses struct {
	Quality float64 `json:"quality"`
	Demand  float64 `json:"demand"`
	Speed   float64 `json:"speed"`
}

// OwnedTools resolves the business's tool ids against the registry, skipping
// ids the registry no longer knows.
func OwnedTools(reg *catalog.Registry, b *BusinessState) []catalog.Tool {
	var out []catalog.Tool
	for _, id := range b.Tools {
		if t, ok := reg.Tool(id); ok {
			out = append(out, t)
		}
	}
	return out
}

func Bonuses(tools []catalog.Tool) ToolBonuses {
	var b ToolBonuses
	for _, t := range tools {
		b.Quality += t.QualityBonus
		b.Demand += t.DemandBonus
		b.Speed += t.SpeedBonus
	}
	return b
}

// PurchaseTool validates a tool purchase and returns its price.
func PurchaseTool(bt catalog.BusinessType, tool catalog.Tool, b *BusinessState) (float64, error) {
	if !tool.Fits(bt.Category) {
		return 0, fmt.Errorf("%w: %s for a %s business", ErrToolIncompatible, tool.Name, bt.Category)
	}
	if b.OwnsTool(tool.ID) {
		return 0, fmt.Errorf("%w: %s", ErrToolOwned, tool.Name)
	}
	if tool.Price > b.CashBalance {
		return 0, fmt.Errorf("%w: %s costs %.2f", ErrInsufficientFunds, tool.Name, tool.Price)
	}
	return tool.Price, nil
}

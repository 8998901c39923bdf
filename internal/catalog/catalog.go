// Package catalog holds the immutable definitions of business archetypes and
// business-improvement tools. A Registry is built once at startup and passed to
// the engines and the scheduler; nothing in here changes after construction.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryService Category = "service"
	CategoryRetail  Category = "retail"
	CategoryFood    Category = "food"
	CategoryDigital Category = "digital"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryService, CategoryRetail, CategoryFood, CategoryDigital:
		return true
	default:
		return false
	}
}

type CustomerType string

const (
	CustomerWalkIn   CustomerType = "walk_in"
	CustomerRegular  CustomerType = "regular"
	CustomerBusiness CustomerType = "business"
	CustomerVIP      CustomerType = "vip"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type ProductTemplate struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Kind            string     `json:"kind"`
	BasePrice       float64    `json:"base_price"`
	BaseCost        float64    `json:"base_cost"`
	BaseMinutes     int        `json:"base_minutes"`
	QualityFactors  []string   `json:"quality_factors,omitempty"`
	PrimarySkill    string     `json:"primary_skill"`
	SecondarySkills []string   `json:"secondary_skills,omitempty"`
	Difficulty      Difficulty `json:"difficulty"`

	// Optional inventory linkage. Zero ConsumptionPerUnit means no stock is used.
	InventoryItemID    string `json:"inventory_item_id,omitempty"`
	ConsumptionPerUnit int    `json:"consumption_per_unit,omitempty"`
	SpoilsAfterDays    int    `json:"spoils_after_days,omitempty"`
}

func (p ProductTemplate) UsesInventory() bool {
	return p.InventoryItemID != "" && p.ConsumptionPerUnit > 0
}

type InventoryItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	BaseCost      float64 `json:"base_cost"`
	StartingStock int     `json:"starting_stock"`
	SupplierStock int     `json:"supplier_stock"`
	RestockTarget int     `json:"restock_target"`
	Perishable    bool    `json:"perishable"`
}

type OperatingCosts struct {
	RentPerDay       float64 `json:"rent_per_day"`
	UtilitiesPerDay  float64 `json:"utilities_per_day"`
	LicensePerDay    float64 `json:"license_per_day"`
	FuelPerDay       float64 `json:"fuel_per_day"`
	StaffCostPerHour float64 `json:"staff_cost_per_hour"`
	SoftwarePerMonth float64 `json:"software_per_month"`

	IngredientWastePercent float64 `json:"ingredient_waste_percent"`
	MaintenanceProbability float64 `json:"maintenance_probability"`
	MaintenanceCost        float64 `json:"maintenance_cost"`
}

type CustomerWeight struct {
	Type   CustomerType `json:"type"`
	Weight float64      `json:"weight"`
}

type DemandConfig struct {
	BaseOrdersPerHour   float64          `json:"base_orders_per_hour"`
	HourlyMultiplier    [24]float64      `json:"hourly_multiplier"`
	ReputationFloor     float64          `json:"reputation_floor"`
	ReputationCeiling   float64          `json:"reputation_ceiling"`
	AvgItemsPerOrder    float64          `json:"avg_items_per_order"`
	MaxConcurrentOrders int              `json:"max_concurrent_orders"`
	AvgOrderValue       float64          `json:"avg_order_value"`
	CustomerTypes       []CustomerWeight `json:"customer_types"`
}

type BusinessType struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Category            Category          `json:"category"`
	Products            []ProductTemplate `json:"products"`
	Inventory           []InventoryItem   `json:"inventory,omitempty"`
	Costs               OperatingCosts    `json:"costs"`
	Demand              DemandConfig      `json:"demand"`
	StartingCapital     float64           `json:"starting_capital"`
	OperatingHours      int               `json:"operating_hours"`
	RestockEvery        time.Duration     `json:"restock_every"`
	ValuationMultiplier float64           `json:"valuation_multiplier"`
}

func (b BusinessType) Product(id string) (ProductTemplate, bool) {
	for _, p := range b.Products {
		if p.ID == id {
			return p, true
		}
	}
	return ProductTemplate{}, false
}

func (b BusinessType) Item(id string) (InventoryItem, bool) {
	for _, it := range b.Inventory {
		if it.ID == id {
			return it, true
		}
	}
	return InventoryItem{}, false
}

type Tool struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Price        float64    `json:"price"`
	Categories   []Category `json:"categories"`
	QualityBonus float64    `json:"quality_bonus"`
	DemandBonus  float64    `json:"demand_bonus"`
	SpeedBonus   float64    `json:"speed_bonus"`
}

func (t Tool) Fits(c Category) bool {
	for _, tc := range t.Categories {
		if tc == c {
			return true
		}
	}
	return false
}

type Registry struct {
	types     map[string]BusinessType
	typeOrder []string
	tools     map[string]Tool
	toolOrder []string
}

var ErrInvalidCatalog = errors.New("invalid catalog")

func NewRegistry(types []BusinessType, tools []Tool) (*Registry, error) {
	r := &Registry{
		types: make(map[string]BusinessType, len(types)),
		tools: make(map[string]Tool, len(tools)),
	}
	for _, bt := range types {
		if err := validateBusinessType(bt); err != nil {
			return nil, err
		}
		if _, dup := r.types[bt.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate business type %s", ErrInvalidCatalog, bt.ID)
		}
		r.types[bt.ID] = bt
		r.typeOrder = append(r.typeOrder, bt.ID)
	}
	for _, t := range tools {
		if strings.TrimSpace(t.ID) == "" || t.Price <= 0 {
			return nil, fmt.Errorf("%w: tool %q needs an id and a positive price", ErrInvalidCatalog, t.ID)
		}
		if _, dup := r.tools[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %s", ErrInvalidCatalog, t.ID)
		}
		r.tools[t.ID] = t
		r.toolOrder = append(r.toolOrder, t.ID)
	}
	return r, nil
}

func validateBusinessType(bt BusinessType) error {
	if strings.TrimSpace(bt.ID) == "" {
		return fmt.Errorf("%w: business type without id", ErrInvalidCatalog)
	}
	if !bt.Category.Valid() {
		return fmt.Errorf("%w: %s has unknown category %q", ErrInvalidCatalog, bt.ID, bt.Category)
	}
	if len(bt.Products) == 0 {
		return fmt.Errorf("%w: %s has no products", ErrInvalidCatalog, bt.ID)
	}
	if bt.Demand.ReputationCeiling < bt.Demand.ReputationFloor {
		return fmt.Errorf("%w: %s reputation ceiling below floor", ErrInvalidCatalog, bt.ID)
	}
	if bt.Demand.MaxConcurrentOrders <= 0 {
		return fmt.Errorf("%w: %s needs max concurrent orders", ErrInvalidCatalog, bt.ID)
	}
	total := 0.0
	for _, cw := range bt.Demand.CustomerTypes {
		if cw.Weight < 0 {
			return fmt.Errorf("%w: %s negative customer weight", ErrInvalidCatalog, bt.ID)
		}
		total += cw.Weight
	}
	if total <= 0 {
		return fmt.Errorf("%w: %s customer weights sum to zero", ErrInvalidCatalog, bt.ID)
	}
	for _, p := range bt.Products {
		if p.BasePrice <= 0 || p.BaseMinutes <= 0 {
			return fmt.Errorf("%w: product %s/%s needs price and time", ErrInvalidCatalog, bt.ID, p.ID)
		}
		if p.InventoryItemID != "" {
			if _, ok := bt.Item(p.InventoryItemID); !ok {
				return fmt.Errorf("%w: product %s/%s links unknown item %s", ErrInvalidCatalog, bt.ID, p.ID, p.InventoryItemID)
			}
		}
	}
	return nil
}

func (r *Registry) BusinessType(id string) (BusinessType, bool) {
	bt, ok := r.types[strings.ToLower(strings.TrimSpace(id))]
	return bt, ok
}

func (r *Registry) BusinessTypes() []BusinessType {
	out := make([]BusinessType, 0, len(r.typeOrder))
	for _, id := range r.typeOrder {
		out = append(out, r.types[id])
	}
	return out
}

func (r *Registry) Tool(id string) (Tool, bool) {
	t, ok := r.tools[strings.ToLower(strings.TrimSpace(id))]
	return t, ok
}

func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.toolOrder))
	for _, id := range r.toolOrder {
		out = append(out, r.tools[id])
	}
	return out
}

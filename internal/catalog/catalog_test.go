package catalog

import (
	"errors"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	types := r.BusinessTypes()
	if len(types) != 4 {
		t.Fatalf("expected 4 business types, got %d", len(types))
	}
	seen := map[Category]bool{}
	for _, bt := range types {
		seen[bt.Category] = true
		if bt.StartingCapital <= 0 {
			t.Fatalf("%s needs starting capital", bt.ID)
		}
	}
	for _, c := range []Category{CategoryService, CategoryRetail, CategoryFood, CategoryDigital} {
		if !seen[c] {
			t.Fatalf("no archetype for category %s", c)
		}
	}
	if len(r.Tools()) == 0 {
		t.Fatalf("expected tools")
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := Default()
	if _, ok := r.BusinessType(" Food_Truck "); !ok {
		t.Fatalf("expected food_truck lookup to succeed")
	}
	if _, ok := r.Tool("POS_TERMINAL"); !ok {
		t.Fatalf("expected pos_terminal lookup to succeed")
	}
	if _, ok := r.BusinessType("spaceport"); ok {
		t.Fatalf("unexpected archetype")
	}
}

func TestNewRegistryRejectsBadData(t *testing.T) {
	good := foodTruck()

	dup := []BusinessType{good, good}
	if _, err := NewRegistry(dup, nil); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected duplicate to fail, got %v", err)
	}

	badLink := foodTruck()
	badLink.Products = append([]ProductTemplate(nil), badLink.Products...)
	badLink.Products[0].InventoryItemID = "unobtainium"
	if _, err := NewRegistry([]BusinessType{badLink}, nil); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected bad inventory link to fail, got %v", err)
	}

	noWeights := foodTruck()
	noWeights.Demand.CustomerTypes = nil
	if _, err := NewRegistry([]BusinessType{noWeights}, nil); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected missing weights to fail, got %v", err)
	}

	if _, err := NewRegistry(nil, []Tool{{ID: "free", Price: 0}}); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected zero-price tool to fail, got %v", err)
	}
}

func TestToolFits(t *testing.T) {
	r := Default()
	grill, _ := r.Tool("flat_top_grill")
	if !grill.Fits(CategoryFood) || grill.Fits(CategoryDigital) {
		t.Fatalf("grill category fit wrong")
	}
}

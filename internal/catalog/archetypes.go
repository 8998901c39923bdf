package catalog

import "time"

// Default returns the built-in registry. The static tables are validated once;
// a failure here is a programming error in this file.
func Default() *Registry {
	r, err := NewRegistry(defaultBusinessTypes(), defaultTools())
	if err != nil {
		panic(err)
	}
	return r
}

func defaultBusinessTypes() []BusinessType {
	return []BusinessType{salon(), minimart(), foodTruck(), freelanceStudio()}
}

func salon() BusinessType {
	return BusinessType{
		ID:       "salon",
		Name:     "Neighbourhood Salon",
		Category: CategoryService,
		Products: []ProductTemplate{
			{ID: "haircut", Name: "Haircut", Kind: "hair", BasePrice: 25, BaseCost: 3, BaseMinutes: 30, QualityFactors: []string{"precision", "styling"}, PrimarySkill: "cutting", SecondarySkills: []string{"styling"}, Difficulty: DifficultyEasy},
			{ID: "coloring", Name: "Hair Coloring", Kind: "hair", BasePrice: 65, BaseCost: 12, BaseMinutes: 75, QualityFactors: []string{"evenness"}, PrimarySkill: "coloring", SecondarySkills: []string{"styling"}, Difficulty: DifficultyHard, InventoryItemID: "hair_dye", ConsumptionPerUnit: 1},
			{ID: "blowout", Name: "Blowout", Kind: "hair", BasePrice: 30, BaseCost: 2, BaseMinutes: 35, QualityFactors: []string{"volume"}, PrimarySkill: "styling", SecondarySkills: []string{"cutting"}, Difficulty: DifficultyMedium},
			{ID: "manicure", Name: "Manicure", Kind: "nails", BasePrice: 20, BaseCost: 4, BaseMinutes: 25, QualityFactors: []string{"finish"}, PrimarySkill: "nails", Difficulty: DifficultyEasy, InventoryItemID: "polish", ConsumptionPerUnit: 1},
		},
		Inventory: []InventoryItem{
			{ID: "hair_dye", Name: "Hair Dye", BaseCost: 8, StartingStock: 12, SupplierStock: 40, RestockTarget: 15},
			{ID: "polish", Name: "Nail Polish", BaseCost: 3, StartingStock: 20, SupplierStock: 60, RestockTarget: 20},
		},
		Costs: OperatingCosts{
			RentPerDay:             80,
			UtilitiesPerDay:        18,
			LicensePerDay:          2,
			SoftwarePerMonth:       30,
			MaintenanceProbability: 0.05,
			MaintenanceCost:        60,
		},
		Demand: DemandConfig{
			BaseOrdersPerHour:   3,
			HourlyMultiplier:    [24]float64{0, 0, 0, 0, 0, 0, 0, 0, 0.4, 0.8, 1.0, 1.1, 1.2, 1.0, 0.9, 1.0, 1.2, 1.4, 1.3, 0.8, 0, 0, 0, 0},
			ReputationFloor:     0.5,
			ReputationCeiling:   1.5,
			AvgItemsPerOrder:    1.2,
			MaxConcurrentOrders: 6,
			AvgOrderValue:       35,
			CustomerTypes: []CustomerWeight{
				{Type: CustomerWalkIn, Weight: 0.35},
				{Type: CustomerRegular, Weight: 0.40},
				{Type: CustomerBusiness, Weight: 0.10},
				{Type: CustomerVIP, Weight: 0.15},
			},
		},
		StartingCapital:     5_000,
		OperatingHours:      10,
		RestockEvery:        6 * time.Hour,
		ValuationMultiplier: 2.0,
	}
}

func minimart() BusinessType {
	return BusinessType{
		ID:       "minimart",
		Name:     "Corner Minimart",
		Category: CategoryRetail,
		Products: []ProductTemplate{
			{ID: "snacks", Name: "Snacks", Kind: "grocery", BasePrice: 3.5, BaseCost: 1.4, BaseMinutes: 2, PrimarySkill: "cashier", SecondarySkills: []string{"stocking"}, Difficulty: DifficultyEasy, InventoryItemID: "snack_case", ConsumptionPerUnit: 1},
			{ID: "drinks", Name: "Cold Drinks", Kind: "grocery", BasePrice: 2.5, BaseCost: 0.9, BaseMinutes: 2, PrimarySkill: "cashier", SecondarySkills: []string{"stocking"}, Difficulty: DifficultyEasy, InventoryItemID: "drink_case", ConsumptionPerUnit: 1},
			{ID: "produce", Name: "Fresh Produce", Kind: "fresh", BasePrice: 6, BaseCost: 2.8, BaseMinutes: 3, PrimarySkill: "stocking", SecondarySkills: []string{"cashier"}, Difficulty: DifficultyMedium, InventoryItemID: "produce_crate", ConsumptionPerUnit: 1, SpoilsAfterDays: 4},
			{ID: "household", Name: "Household Goods", Kind: "general", BasePrice: 9, BaseCost: 4.5, BaseMinutes: 2, PrimarySkill: "cashier", Difficulty: DifficultyEasy, InventoryItemID: "household_box", ConsumptionPerUnit: 1},
		},
		Inventory: []InventoryItem{
			{ID: "snack_case", Name: "Snack Case", BaseCost: 1.4, StartingStock: 80, SupplierStock: 400, RestockTarget: 100},
			{ID: "drink_case", Name: "Drink Case", BaseCost: 0.9, StartingStock: 90, SupplierStock: 400, RestockTarget: 120},
			{ID: "produce_crate", Name: "Produce Crate", BaseCost: 2.8, StartingStock: 40, SupplierStock: 150, RestockTarget: 50, Perishable: true},
			{ID: "household_box", Name: "Household Box", BaseCost: 4.5, StartingStock: 30, SupplierStock: 120, RestockTarget: 40},
		},
		Costs: OperatingCosts{
			RentPerDay:             120,
			UtilitiesPerDay:        35,
			LicensePerDay:          4,
			StaffCostPerHour:       0.5,
			SoftwarePerMonth:       45,
			IngredientWastePercent: 0.02,
			MaintenanceProbability: 0.04,
			MaintenanceCost:        90,
		},
		Demand: DemandConfig{
			BaseOrdersPerHour:   8,
			HourlyMultiplier:    [24]float64{0, 0, 0, 0, 0, 0, 0.3, 0.8, 1.2, 1.0, 0.9, 1.0, 1.3, 1.1, 0.9, 1.0, 1.2, 1.5, 1.6, 1.3, 0.9, 0.5, 0, 0},
			ReputationFloor:     0.7,
			ReputationCeiling:   1.3,
			AvgItemsPerOrder:    2.5,
			MaxConcurrentOrders: 10,
			AvgOrderValue:       12,
			CustomerTypes: []CustomerWeight{
				{Type: CustomerWalkIn, Weight: 0.60},
				{Type: CustomerRegular, Weight: 0.30},
				{Type: CustomerBusiness, Weight: 0.05},
				{Type: CustomerVIP, Weight: 0.05},
			},
		},
		StartingCapital:     8_000,
		OperatingHours:      16,
		RestockEvery:        4 * time.Hour,
		ValuationMultiplier: 1.5,
	}
}

func foodTruck() BusinessType {
	return BusinessType{
		ID:       "food_truck",
		Name:     "Street Food Truck",
		Category: CategoryFood,
		Products: []ProductTemplate{
			{ID: "burger", Name: "Smash Burger", Kind: "main", BasePrice: 11, BaseCost: 3.8, BaseMinutes: 8, QualityFactors: []string{"temperature", "taste"}, PrimarySkill: "grill", SecondarySkills: []string{"prep"}, Difficulty: DifficultyMedium, InventoryItemID: "patty", ConsumptionPerUnit: 1, SpoilsAfterDays: 3},
			{ID: "tacos", Name: "Street Tacos", Kind: "main", BasePrice: 9, BaseCost: 2.9, BaseMinutes: 6, QualityFactors: []string{"taste"}, PrimarySkill: "prep", SecondarySkills: []string{"grill"}, Difficulty: DifficultyMedium, InventoryItemID: "tortilla", ConsumptionPerUnit: 3, SpoilsAfterDays: 5},
			{ID: "fries", Name: "Loaded Fries", Kind: "side", BasePrice: 5, BaseCost: 1.2, BaseMinutes: 5, QualityFactors: []string{"crispness"}, PrimarySkill: "fryer", Difficulty: DifficultyEasy, InventoryItemID: "potato", ConsumptionPerUnit: 2, SpoilsAfterDays: 10},
			{ID: "lemonade", Name: "Lemonade", Kind: "drink", BasePrice: 4, BaseCost: 0.8, BaseMinutes: 2, PrimarySkill: "prep", Difficulty: DifficultyEasy, InventoryItemID: "lemon", ConsumptionPerUnit: 1, SpoilsAfterDays: 7},
		},
		Inventory: []InventoryItem{
			{ID: "patty", Name: "Beef Patty", BaseCost: 1.9, StartingStock: 60, SupplierStock: 300, RestockTarget: 80, Perishable: true},
			{ID: "tortilla", Name: "Tortilla", BaseCost: 0.3, StartingStock: 150, SupplierStock: 900, RestockTarget: 200, Perishable: true},
			{ID: "potato", Name: "Potato", BaseCost: 0.25, StartingStock: 100, SupplierStock: 600, RestockTarget: 150, Perishable: true},
			{ID: "lemon", Name: "Lemon", BaseCost: 0.4, StartingStock: 50, SupplierStock: 300, RestockTarget: 70, Perishable: true},
		},
		Costs: OperatingCosts{
			RentPerDay:             25,
			UtilitiesPerDay:        10,
			LicensePerDay:          6,
			FuelPerDay:             28,
			StaffCostPerHour:       0.75,
			SoftwarePerMonth:       20,
			IngredientWastePercent: 0.12,
			MaintenanceProbability: 0.08,
			MaintenanceCost:        110,
		},
		Demand: DemandConfig{
			BaseOrdersPerHour:   10,
			HourlyMultiplier:    [24]float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0.6, 1.0, 1.3, 1.5, 1.0, 0.6, 0.5, 0.9, 1.3, 1.4, 1.0, 0.6, 0, 0},
			ReputationFloor:     0.6,
			ReputationCeiling:   1.4,
			AvgItemsPerOrder:    1.8,
			MaxConcurrentOrders: 8,
			AvgOrderValue:       16,
			CustomerTypes: []CustomerWeight{
				{Type: CustomerWalkIn, Weight: 0.55},
				{Type: CustomerRegular, Weight: 0.30},
				{Type: CustomerBusiness, Weight: 0.10},
				{Type: CustomerVIP, Weight: 0.05},
			},
		},
		StartingCapital:     6_000,
		OperatingHours:      10,
		RestockEvery:        3 * time.Hour,
		ValuationMultiplier: 1.8,
	}
}

func freelanceStudio() BusinessType {
	return BusinessType{
		ID:       "freelance_studio",
		Name:     "Freelance Design Studio",
		Category: CategoryDigital,
		Products: []ProductTemplate{
			{ID: "logo", Name: "Logo Design", Kind: "branding", BasePrice: 250, BaseCost: 20, BaseMinutes: 240, QualityFactors: []string{"originality"}, PrimarySkill: "design", SecondarySkills: []string{"communication"}, Difficulty: DifficultyMedium},
			{ID: "website", Name: "Website Build", Kind: "web", BasePrice: 1_200, BaseCost: 90, BaseMinutes: 1_440, QualityFactors: []string{"responsiveness", "polish"}, PrimarySkill: "development", SecondarySkills: []string{"design"}, Difficulty: DifficultyHard},
			{ID: "social_pack", Name: "Social Media Pack", Kind: "branding", BasePrice: 150, BaseCost: 10, BaseMinutes: 180, PrimarySkill: "design", SecondarySkills: []string{"copywriting"}, Difficulty: DifficultyEasy},
			{ID: "consultation", Name: "Strategy Consultation", Kind: "advisory", BasePrice: 90, BaseCost: 0, BaseMinutes: 60, PrimarySkill: "communication", Difficulty: DifficultyEasy},
		},
		Costs: OperatingCosts{
			RentPerDay:             15,
			UtilitiesPerDay:        5,
			LicensePerDay:          1,
			SoftwarePerMonth:       120,
			MaintenanceProbability: 0.02,
			MaintenanceCost:        150,
		},
		Demand: DemandConfig{
			BaseOrdersPerHour:   0.4,
			HourlyMultiplier:    [24]float64{0.2, 0.1, 0, 0, 0, 0, 0.2, 0.5, 0.9, 1.2, 1.3, 1.2, 1.0, 1.1, 1.3, 1.2, 1.0, 0.8, 0.6, 0.5, 0.5, 0.4, 0.3, 0.2},
			ReputationFloor:     0.4,
			ReputationCeiling:   1.8,
			AvgItemsPerOrder:    1.1,
			MaxConcurrentOrders: 4,
			AvgOrderValue:       320,
			CustomerTypes: []CustomerWeight{
				{Type: CustomerWalkIn, Weight: 0.15},
				{Type: CustomerRegular, Weight: 0.35},
				{Type: CustomerBusiness, Weight: 0.35},
				{Type: CustomerVIP, Weight: 0.15},
			},
		},
		StartingCapital:     3_000,
		OperatingHours:      8,
		RestockEvery:        24 * time.Hour,
		ValuationMultiplier: 3.0,
	}
}

func defaultTools() []Tool {
	return []Tool{
		{ID: "pos_terminal", Name: "POS Terminal", Description: "Faster checkout and fewer mistakes.", Price: 450, Categories: []Category{CategoryRetail, CategoryFood}, QualityBonus: 2, SpeedBonus: 0.10},
		{ID: "pro_shears", Name: "Professional Shears", Description: "Cleaner cuts, happier clients.", Price: 300, Categories: []Category{CategoryService}, QualityBonus: 5},
		{ID: "flat_top_grill", Name: "Flat-Top Grill", Description: "Even heat for consistent food.", Price: 1_100, Categories: []Category{CategoryFood}, QualityBonus: 6, SpeedBonus: 0.15},
		{ID: "loyalty_app", Name: "Loyalty App", Description: "Brings regulars back more often.", Price: 600, Categories: []Category{CategoryService, CategoryRetail, CategoryFood, CategoryDigital}, DemandBonus: 0.10},
		{ID: "design_suite", Name: "Design Suite License", Description: "Industry-grade tooling for deliverables.", Price: 900, Categories: []Category{CategoryDigital}, QualityBonus: 8, SpeedBonus: 0.05},
		{ID: "signage", Name: "Neon Signage", Description: "Street visibility draws walk-ins.", Price: 350, Categories: []Category{CategoryService, CategoryRetail, CategoryFood}, DemandBonus: 0.08},
	}
}

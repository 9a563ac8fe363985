package billing

// Category classifies a calculated invoice line item. Categories render in
// a fixed order on invoices regardless of insertion order.
type Category string

const (
	CategoryWaterUsage Category = "water_usage"
	CategoryWaterSqft  Category = "water_sqft"
	CategorySewer      Category = "sewer"
	CategoryDrainage   Category = "drainage"
	CategorySolidWaste Category = "solid_waste"
	CategoryAdjustment Category = "adjustment"
)

var categoryOrder = map[Category]int{
	CategoryWaterUsage: 0,
	CategoryWaterSqft:  1,
	CategorySewer:      2,
	CategoryDrainage:   3,
	CategorySolidWaste: 4,
	CategoryAdjustment: 5,
}

var categoryLabels = map[Category]string{
	CategoryWaterUsage: "Water (Usage)",
	CategoryWaterSqft:  "Water (Common Area)",
	CategorySewer:      "Sewer",
	CategoryDrainage:   "Drainage",
	CategorySolidWaste: "Solid Waste",
	CategoryAdjustment: "Adjustment",
}

// Order returns the category's display rank. Unknown categories sort last.
func (c Category) Order() int {
	if rank, ok := categoryOrder[c]; ok {
		return rank
	}
	return len(categoryOrder)
}

// Label returns the human-readable invoice label for the category.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

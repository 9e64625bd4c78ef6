package expense

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a single expense. Visible and mutable only by its owner.
type Record struct {
	ID          int64
	OwnerID     int64
	Category    string
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	Recurring   bool
}

// Budget is the configured spend amount for one category.
// Unique per (owner, category); setting it again replaces the prior value.
type Budget struct {
	OwnerID  int64
	Category string
	Amount   decimal.Decimal
}

// ThresholdAlert is the advisory spend ceiling for one category.
// Unique per (owner, category); upsert semantics like Budget.
type ThresholdAlert struct {
	OwnerID   int64
	Category  string
	Threshold decimal.Decimal
}

// NormalizeCategory trims and lowercases free-text category labels so that
// "Food", "food " and "FOOD" aggregate into the same bucket.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

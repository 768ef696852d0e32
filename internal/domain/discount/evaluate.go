package discount

import (
	"slices"
	"strings"
	"time"
)

// IsCurrentlyActive reports whether d is enabled and now falls inside its
// window. Both window ends are inclusive.
func IsCurrentlyActive(d Discount, now time.Time) bool {
	if !d.IsActive {
		return false
	}
	return !now.Before(d.StartDate) && !now.After(d.EndDate)
}

// AppliesTo reports whether d covers productID. Activity is not considered.
func AppliesTo(d Discount, productID string) bool {
	if d.ApplyToAllProducts {
		return true
	}
	return slices.Contains(d.ApplicableProducts, productID)
}

// Select returns the highest-percentage discount that is currently active
// and applies to productID. Equal percentages are ordered by id.
func Select(discounts []Discount, productID string, now time.Time) (Discount, bool) {
	var (
		best  Discount
		found bool
	)
	for _, d := range discounts {
		if !IsCurrentlyActive(d, now) || !AppliesTo(d, productID) {
			continue
		}
		if !found || outranks(d, best) {
			best, found = d, true
		}
	}
	return best, found
}

// Featured returns the top-ranked currently active discount regardless of
// product scope.
func Featured(discounts []Discount, now time.Time) (Discount, bool) {
	var (
		best  Discount
		found bool
	)
	for _, d := range discounts {
		if !IsCurrentlyActive(d, now) {
			continue
		}
		if !found || outranks(d, best) {
			best, found = d, true
		}
	}
	return best, found
}

// Active filters discounts down to the currently active ones and orders them
// by percentage descending, then id ascending. The input is not modified.
func Active(discounts []Discount, now time.Time) []Discount {
	out := make([]Discount, 0, len(discounts))
	for _, d := range discounts {
		if IsCurrentlyActive(d, now) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, compare)
	return out
}

func outranks(a, b Discount) bool {
	return compare(a, b) < 0
}

func compare(a, b Discount) int {
	if a.Percentage != b.Percentage {
		return b.Percentage - a.Percentage
	}
	return strings.Compare(a.ID, b.ID)
}

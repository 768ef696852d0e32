package discount

import (
	"strings"

	"github.com/go-faster/errors"
)

// Validate checks the invariants every stored discount must satisfy.
// An already-ended window is accepted.
func Validate(d Discount) error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.Wrap(ErrInvalidDiscount, "name is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return errors.Wrap(ErrInvalidDiscount, "description is required")
	}
	if d.Percentage < MinPercentage || d.Percentage > MaxPercentage {
		return errors.Wrapf(ErrInvalidDiscount, "percentage %d outside [%d, %d]",
			d.Percentage, MinPercentage, MaxPercentage)
	}
	if d.StartDate.After(d.EndDate) {
		return errors.Wrap(ErrInvalidDiscount, "start date is after end date")
	}
	return nil
}

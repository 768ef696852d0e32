// Package discount models time-windowed percentage promotions and decides
// which of them applies to a product at a given instant.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Percentage bounds accepted for a discount.
const (
	MinPercentage = 1
	MaxPercentage = 99
)

var (
	// ErrNotFound is returned when a discount id does not exist.
	ErrNotFound = errors.New("discount not found")
	// ErrInvalidDiscount is returned when a discount has an inverted window,
	// an out-of-range percentage or misses a required field.
	ErrInvalidDiscount = errors.New("invalid discount")
)

// Discount is a percentage promotion valid inside [StartDate, EndDate] while
// IsActive is set. It applies to every product when ApplyToAllProducts is
// true, otherwise only to the ids listed in ApplicableProducts.
type Discount struct {
	ID                 string
	Name               string
	Description        string
	Percentage         int
	StartDate          time.Time
	EndDate            time.Time
	IsActive           bool
	ApplyToAllProducts bool
	ApplicableProducts []string
	FeaturedImage      string
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Repository persists discounts.
type Repository interface {
	Create(ctx context.Context, d *Discount) error
	Update(ctx context.Context, d *Discount) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Discount, error)
	// List returns every discount, newest first.
	List(ctx context.Context) ([]Discount, error)
	// ListLive returns enabled discounts whose window has not ended at now.
	// Callers must still evaluate each row with IsCurrentlyActive.
	ListLive(ctx context.Context, now time.Time) ([]Discount, error)
}

// CacheEntry is the result of a cache read. Generation identifies the cache
// state the read observed and is passed back to Set on a miss.
type CacheEntry struct {
	Discounts  []Discount
	Generation int64
	Found      bool
}

// Cache stores the live discount set between repository reads. Set stores
// the set only while generation is still current, and Invalidate starts a new
// generation, so a set read before a mutation is never cached after it.
type Cache interface {
	Get(ctx context.Context) (CacheEntry, error)
	Set(ctx context.Context, generation int64, discounts []Discount) error
	Invalidate(ctx context.Context) error
}

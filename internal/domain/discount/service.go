package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Input holds the fields accepted when creating a discount. A nil StartDate
// defaults to the current time and a nil IsActive defaults to true.
type Input struct {
	Name               string
	Description        string
	Percentage         int
	StartDate          *time.Time
	EndDate            time.Time
	IsActive           *bool
	ApplyToAllProducts bool
	ApplicableProducts []string
	FeaturedImage      string
}

// Patch is a partial update. Nil fields keep their stored value.
type Patch struct {
	Name               *string
	Description        *string
	Percentage         *int
	StartDate          *time.Time
	EndDate            *time.Time
	IsActive           *bool
	ApplyToAllProducts *bool
	ApplicableProducts []string
	FeaturedImage      *string
}

func (p Patch) apply(d *Discount) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Percentage != nil {
		d.Percentage = *p.Percentage
	}
	if p.StartDate != nil {
		d.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		d.EndDate = *p.EndDate
	}
	if p.IsActive != nil {
		d.IsActive = *p.IsActive
	}
	if p.ApplyToAllProducts != nil {
		d.ApplyToAllProducts = *p.ApplyToAllProducts
	}
	if p.ApplicableProducts != nil {
		d.ApplicableProducts = p.ApplicableProducts
	}
	if p.FeaturedImage != nil {
		d.FeaturedImage = *p.FeaturedImage
	}
}

// Service administers discounts and answers which ones are running now.
type Service struct {
	repo  Repository
	cache Cache
	now   func() time.Time
}

// NewService creates a Service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// Create validates and stores a new discount.
func (s *Service) Create(ctx context.Context, in Input, createdBy string) (*Discount, error) {
	now := s.now()
	d := &Discount{
		ID:                 uuid.New().String(),
		Name:               in.Name,
		Description:        in.Description,
		Percentage:         in.Percentage,
		StartDate:          now,
		EndDate:            in.EndDate,
		IsActive:           true,
		ApplyToAllProducts: in.ApplyToAllProducts,
		ApplicableProducts: in.ApplicableProducts,
		FeaturedImage:      in.FeaturedImage,
		CreatedBy:          createdBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if in.StartDate != nil {
		d.StartDate = *in.StartDate
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	if err := Validate(*d); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, errors.Wrap(err, "create discount")
	}
	s.invalidate(ctx)
	return d, nil
}

// Update applies patch to the stored discount and re-validates the result.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Discount, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(d)
	if err := Validate(*d); err != nil {
		return nil, err
	}
	d.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, d); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update discount")
	}
	s.invalidate(ctx)
	return d, nil
}

// Delete permanently removes a discount.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete discount")
	}
	s.invalidate(ctx)
	return nil
}

// Get returns a single discount.
func (s *Service) Get(ctx context.Context, id string) (*Discount, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get discount")
	}
	return d, nil
}

// List returns all discounts, newest first.
func (s *Service) List(ctx context.Context) ([]Discount, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return list, nil
}

// Active returns the discounts running now, best first.
func (s *Service) Active(ctx context.Context) ([]Discount, error) {
	live, err := s.live(ctx)
	if err != nil {
		return nil, err
	}
	return Active(live, s.now()), nil
}

// Featured returns the best discount running now.
func (s *Service) Featured(ctx context.Context) (Discount, bool, error) {
	live, err := s.live(ctx)
	if err != nil {
		return Discount{}, false, err
	}
	d, ok := Featured(live, s.now())
	return d, ok, nil
}

// live returns the candidate set, read through the cache when one is set.
// A cache failure falls back to the repository.
func (s *Service) live(ctx context.Context) ([]Discount, error) {
	lg := zctx.From(ctx)
	var (
		fill       bool
		generation int64
	)
	if s.cache != nil {
		entry, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			lg.Warn("Discount cache read failed", zap.Error(err))
		case entry.Found:
			return entry.Discounts, nil
		default:
			fill, generation = true, entry.Generation
		}
	}

	list, err := s.repo.ListLive(ctx, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "list live discounts")
	}

	if fill {
		if err := s.cache.Set(ctx, generation, list); err != nil {
			lg.Warn("Discount cache write failed", zap.Error(err))
		}
	}
	return list, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		zctx.From(ctx).Warn("Discount cache invalidation failed", zap.Error(err))
	}
}

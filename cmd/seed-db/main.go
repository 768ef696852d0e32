package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Parzival048/ecomreact/internal/domain/auth"
	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/product"
	"github.com/Parzival048/ecomreact/internal/storage/postgres"
)

type productJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Brand        string          `json:"brand"`
	Category     string          `json:"category"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"countInStock"`
}

type seedKeys struct {
	admin    string
	customer string
	pepper   string
}

func main() {
	var (
		databaseURL  string
		productsFile string
		keys         seedKeys
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&keys.admin, "admin-key", "", "admin API key to seed (or SHOP_SEED_ADMIN_KEY env)")
	flag.StringVar(&keys.customer, "customer-key", "", "customer API key to seed (or SHOP_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&keys.pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if keys.admin == "" {
		keys.admin = os.Getenv("SHOP_SEED_ADMIN_KEY")
	}
	if keys.admin == "" {
		slog.Error("admin key is required: set --admin-key or SHOP_SEED_ADMIN_KEY")
		os.Exit(1)
	}
	if keys.customer == "" {
		keys.customer = os.Getenv("SHOP_SEED_CUSTOMER_KEY")
	}
	if keys.pepper == "" {
		keys.pepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, keys); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string, keys seedKeys) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedDiscounts(ctx, postgres.NewDiscountRepository(pool), time.Now().UTC()); err != nil {
		return errors.Wrap(err, "seed discounts")
	}

	if err := seedAPIKeys(ctx, postgres.NewAPIKeyRepository(pool), keys); err != nil {
		return errors.Wrap(err, "seed api keys")
	}

	return nil
}

func seedProducts(ctx context.Context, repo product.Repository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, pj := range products {
		p := product.Product{
			ID:           pj.ID,
			Name:         pj.Name,
			Description:  pj.Description,
			Brand:        pj.Brand,
			Category:     pj.Category,
			Image:        pj.Image,
			Price:        pj.Price,
			CountInStock: pj.CountInStock,
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := repo.Upsert(ctx, &p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

// seedDiscounts creates the demo discounts, or resets them when they already
// exist so repeated runs keep the windows current.
func seedDiscounts(ctx context.Context, repo discount.Repository, now time.Time) error {
	slog.Info("seeding demo discounts")

	discounts := []discount.Discount{
		{
			ID:                 "launch-week",
			Name:               "Launch Week",
			Description:        "10% off the whole store",
			Percentage:         10,
			StartDate:          now.Add(-24 * time.Hour),
			EndDate:            now.AddDate(0, 0, 7),
			IsActive:           true,
			ApplyToAllProducts: true,
			FeaturedImage:      "launch-week.jpg",
		},
		{
			ID:                 "apple-days",
			Name:               "Apple Days",
			Description:        "25% off selected Apple products",
			Percentage:         25,
			StartDate:          now.Add(-24 * time.Hour),
			EndDate:            now.AddDate(0, 1, 0),
			IsActive:           true,
			ApplicableProducts: []string{"airpods-wireless", "iphone-11-pro"},
			FeaturedImage:      "apple-days.jpg",
		},
	}

	for i := range discounts {
		d := &discounts[i]
		d.CreatedBy = "seed"
		d.CreatedAt = now
		d.UpdatedAt = now
		if err := discount.Validate(*d); err != nil {
			return err
		}

		_, err := repo.GetByID(ctx, d.ID)
		switch {
		case errors.Is(err, discount.ErrNotFound):
			err = repo.Create(ctx, d)
		case err == nil:
			err = repo.Update(ctx, d)
		}
		if err != nil {
			return errors.Wrapf(err, "save discount %s", d.ID)
		}

		slog.Info("seeded discount", slog.String("id", d.ID), slog.Int("percentage", d.Percentage))
	}

	return nil
}

func seedAPIKeys(ctx context.Context, repo *postgres.APIKeyRepository, keys seedKeys) error {
	slog.Info("seeding API keys")

	infos := []auth.APIKeyInfo{{
		ID:      "admin",
		KeyHash: auth.HashKey([]byte(keys.pepper), keys.admin),
		Name:    "Seeded admin key",
		OwnerID: "admin",
		Scopes:  []string{auth.ScopeAdmin},
	}}
	if keys.customer != "" {
		infos = append(infos, auth.APIKeyInfo{
			ID:      "customer",
			KeyHash: auth.HashKey([]byte(keys.pepper), keys.customer),
			Name:    "Seeded customer key",
			OwnerID: "demo-customer",
			Scopes:  []string{auth.ScopeOrders},
		})
	}

	for i := range infos {
		if err := repo.Upsert(ctx, &infos[i]); err != nil {
			return errors.Wrapf(err, "upsert API key %s", infos[i].ID)
		}

		slog.Info("upserted API key", slog.String("id", infos[i].ID), slog.String("name", infos[i].Name))
	}

	return nil
}

// Command seed-orders inserts a handful of demo orders for local development.
// Prices are fixed snapshots; the products service is not consulted.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/orders-ms/internal/domain/order"
	"github.com/xenking/orders-ms/internal/storage/postgres"
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	repo := postgres.NewOrderRepository(pool)
	now := time.Now().UTC()

	seeds := []order.Order{
		{
			Status:     order.StatusPending,
			TotalItems: 3,
			CreatedAt:  now.Add(-48 * time.Hour),
			Items: []order.Item{
				{ProductID: "prod-espresso", Price: decimal.RequireFromString("3.50"), Quantity: 2},
				{ProductID: "prod-croissant", Price: decimal.RequireFromString("2.75"), Quantity: 1},
			},
		},
		{
			Status:     order.StatusPaid,
			TotalItems: 1,
			CreatedAt:  now.Add(-24 * time.Hour),
			Items: []order.Item{
				{ProductID: "prod-grinder", Price: decimal.RequireFromString("129.00"), Quantity: 1},
			},
		},
		{
			Status:     order.StatusDelivered,
			TotalItems: 5,
			CreatedAt:  now.Add(-time.Hour),
			Items: []order.Item{
				{ProductID: "prod-beans-1kg", Price: decimal.RequireFromString("18.90"), Quantity: 5},
			},
		},
	}

	for i := range seeds {
		o := &seeds[i]
		o.ID = uuid.NewString()
		total := decimal.Zero
		for _, item := range o.Items {
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		o.TotalAmount = total

		if err := repo.CreateWithItems(ctx, o); err != nil {
			return err
		}
		slog.Info("seeded order", "id", o.ID, "status", string(o.Status), "total", o.TotalAmount.String())
	}

	slog.Info("done", "orders", len(seeds))
	return nil
}

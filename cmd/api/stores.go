package main

import (
	"context"
	"time"

	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/db"
	httpx "github.com/geocoder89/storefront/internal/http"
	"github.com/geocoder89/storefront/internal/http/handlers"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/geocoder89/storefront/internal/repo/memory"
	"github.com/geocoder89/storefront/internal/repo/mongodb"
	"github.com/geocoder89/storefront/internal/repo/postgres"
)

type stores struct {
	users    httpx.UsersStore
	products handlers.ProductsStore
	ping     handlers.PingFunc
	close    func()
}

// openStores connects the backend named by cfg.StoreDriver.
func openStores(cfg config.Config, prom *observability.Prom) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		client, database, err := db.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return stores{}, err
		}

		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return stores{}, err
		}

		users := mongodb.NewUsersRepo(database, prom)

		return stores{
			users:    users,
			products: mongodb.NewProductsRepo(database, users, prom),
			ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:    func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.StoreMemory:
		users := memory.NewUsersRepo()

		return stores{
			users:    users,
			products: memory.NewProductsRepo(users),
			close:    func() {},
		}, nil

	default:
		if cfg.DBAutoMigrate {
			if err := db.MigrateUp(cfg.DBURL); err != nil {
				return stores{}, err
			}
		}

		pool, err := db.NewPool(context.Background(), cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return stores{}, err
		}

		return stores{
			users:    postgres.NewUsersRepo(pool, prom),
			products: postgres.NewProductsRepo(pool, prom),
			ping:     pool.Ping,
			close:    pool.Close,
		}, nil
	}
}

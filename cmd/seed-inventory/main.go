package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/domain/auth"
	"github.com/xenking/order-pipeline/internal/stockfile"
	"github.com/xenking/order-pipeline/internal/storage/postgres"
	redisstore "github.com/xenking/order-pipeline/internal/storage/redis"
)

const writers = 8

type options struct {
	databaseURL  string
	backend      string
	redisAddr    string
	apiKey       string
	apiKeyPepper string
	apiKeyScopes string
	files        []string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.backend, "backend", "postgres", "inventory backend to seed: postgres or redis")
	flag.StringVar(&opts.redisAddr, "redis-addr", "localhost:6379", "Redis address for the redis backend")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key to register (or ORDERS_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERS_API_KEY_PEPPER env)")
	flag.StringVar(&opts.apiKeyScopes, "api-key-scopes", "*", "comma separated scopes for the API key")
	flag.Parse()
	opts.files = flag.Args()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("ORDERS_SEED_API_KEY")
	}
	if opts.apiKeyPepper == "" {
		opts.apiKeyPepper = os.Getenv("ORDERS_API_KEY_PEPPER")
	}
	if opts.databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if len(opts.files) == 0 && opts.apiKey == "" {
		lg.Fatal("nothing to seed: pass stock files (name,stock gzip CSV) or --api-key")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if len(opts.files) > 0 {
		var store stockfile.Store
		switch opts.backend {
		case "postgres":
			store = postgres.NewInventoryRepository(pool)
		case "redis":
			client := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
			defer func() { _ = client.Close() }()
			store = redisstore.NewInventory(client)
		default:
			return errors.Errorf("unknown backend %q", opts.backend)
		}
		if err := seedStock(ctx, lg, store, opts.files); err != nil {
			return errors.Wrap(err, "seed stock")
		}
	}

	if opts.apiKey != "" {
		info := auth.APIKeyInfo{
			ID:      "default",
			KeyHash: auth.HashKey([]byte(opts.apiKeyPepper), opts.apiKey),
			Name:    "Default key",
			Scopes:  strings.Split(opts.apiKeyScopes, ","),
		}
		if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, info); err != nil {
			return errors.Wrap(err, "upsert api key")
		}
		lg.Info("Upserted API key", zap.String("id", info.ID), zap.Strings("scopes", info.Scopes))
	}
	return nil
}

func seedStock(ctx context.Context, lg *zap.Logger, store stockfile.Store, files []string) error {
	lg.Info("Reading stock files", zap.Strings("files", files))

	res, err := stockfile.Load(ctx, files)
	if err != nil {
		return err
	}
	for _, d := range res.Duplicates {
		lg.Warn("Duplicate item, last listing wins",
			zap.String("item", d.Item),
			zap.Strings("files", d.Files),
			zap.Ints("lines", d.Lines),
		)
	}

	lg.Info("Writing stock", zap.Int("items", len(res.Stock)))
	if err := stockfile.Apply(ctx, store, res.Stock, writers); err != nil {
		return err
	}
	return nil
}

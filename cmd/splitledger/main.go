// Command splitledger opens an owner's ledger and prints the current
// per-friend balances and group totals. The core is a library; this binary
// is a thin convenience wrapper around it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mkale/splitledger/internal/ledger"
	"github.com/mkale/splitledger/internal/storage"
	"github.com/mkale/splitledger/internal/storage/memkv"
	"github.com/mkale/splitledger/internal/storage/rediskv"
	"github.com/mkale/splitledger/internal/storage/sqlitekv"
	"github.com/mkale/splitledger/pkg/logging"
)

// config holds the runtime configuration, loaded from the environment with
// an optional .env file.
type config struct {
	Store         string // memory | sqlite | redis
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Owner         string
}

func loadConfig() config {
	// Attempt to load .env, ignore error if it doesn't exist.
	_ = godotenv.Load()

	viper.SetDefault("STORE", "sqlite")
	viper.SetDefault("DB_PATH", "./data/ledger.db")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("OWNER", "me")
	viper.AutomaticEnv()

	return config{
		Store:         viper.GetString("STORE"),
		DBPath:        viper.GetString("DB_PATH"),
		RedisAddr:     viper.GetString("REDIS_ADDR"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),
		RedisDB:       viper.GetInt("REDIS_DB"),
		Owner:         viper.GetString("OWNER"),
	}
}

func openBackend(ctx context.Context, cfg config) (storage.KV, error) {
	switch cfg.Store {
	case "sqlite":
		return sqlitekv.New(cfg.DBPath)
	case "redis":
		return rediskv.New(ctx, rediskv.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "memory":
		return memkv.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

func main() {
	logging.Setup()
	cfg := loadConfig()
	ctx := context.Background()

	kv, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage backend", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	store := storage.NewLedgerStore(kv)
	defer store.Close()
	slog.Info("Storage initialized", "store", cfg.Store)

	led, err := ledger.Open(ctx, store, cfg.Owner)
	if err != nil {
		slog.Error("Failed to open ledger", "owner", cfg.Owner, "error", err)
		os.Exit(1)
	}

	summary := led.Summary()
	fmt.Printf("Ledger for %s\n", cfg.Owner)
	fmt.Printf("  owed to you: %s\n", summary.TotalOwedToSelf)
	fmt.Printf("  you owe:     %s\n", summary.TotalSelfOwes)
	fmt.Printf("  net:         %s\n", summary.Net)

	names := make([]string, 0, len(summary.PerFriend))
	for name := range summary.PerFriend {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("    %-20s %s\n", name, summary.PerFriend[name])
	}

	for _, g := range led.Groups() {
		fmt.Printf("Group %q: %d bills, total %s\n", g.Name, len(g.Bills), g.Total())
	}
}

package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rentloop/rentcore/internal/httpserver"
	"github.com/rentloop/rentcore/internal/store/gormstore"
	"github.com/rentloop/rentcore/pkg/rental"
)

const (
	flagDatabaseURL    = "database-url"
	flagListenAddr     = "listen-addr"
	flagJWTSecret      = "jwt-secret"
	flagCommissionBps  = "commission-bps"
	flagCurrency       = "currency"
	flagAllowedOrigins = "allowed-origins"

	configKeyDatabaseURL    = "database_url"
	configKeyListenAddr     = "listen_addr"
	configKeyJWTSecret      = "jwt_secret"
	configKeyCommissionBps  = "commission_bps"
	configKeyCurrency       = "currency"
	configKeyAllowedOrigins = "allowed_origins"

	defaultDatabaseURL   = "sqlite:///tmp/rentcore.db"
	defaultListenAddr    = ":8080"
	defaultCommissionBps = 1000
	defaultCurrency      = "USD"
)

type runtimeConfig struct {
	DatabaseURL    string
	ListenAddr     string
	JWTSecret      string
	CommissionBps  int64
	Currency       string
	AllowedOrigins []string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rentald: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "rentald",
		Short:         "Rental marketplace transaction server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL connection string or sqlite path")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagJWTSecret, "", "HS256 secret for actor tokens (required)")
	cmd.Flags().Int64(flagCommissionBps, defaultCommissionBps, "platform commission in basis points")
	cmd.Flags().String(flagCurrency, defaultCurrency, "currency code stamped on money records")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]struct {
		flag string
		env  string
	}{
		configKeyDatabaseURL:    {flag: flagDatabaseURL, env: "DATABASE_URL"},
		configKeyListenAddr:     {flag: flagListenAddr, env: "LISTEN_ADDR"},
		configKeyJWTSecret:      {flag: flagJWTSecret, env: "JWT_SECRET"},
		configKeyCommissionBps:  {flag: flagCommissionBps, env: "COMMISSION_BPS"},
		configKeyCurrency:       {flag: flagCurrency, env: "CURRENCY"},
		configKeyAllowedOrigins: {flag: flagAllowedOrigins, env: "ALLOWED_ORIGINS"},
	}
	for key, binding := range bindings {
		if err := viper.BindEnv(key, binding.env); err != nil {
			return err
		}
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(binding.flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = strings.TrimSpace(viper.GetString(configKeyDatabaseURL))
	cfg.ListenAddr = strings.TrimSpace(viper.GetString(configKeyListenAddr))
	cfg.JWTSecret = viper.GetString(configKeyJWTSecret)
	cfg.CommissionBps = viper.GetInt64(configKeyCommissionBps)
	cfg.Currency = strings.TrimSpace(viper.GetString(configKeyCurrency))
	cfg.AllowedOrigins = splitOrigins(viper.GetString(configKeyAllowedOrigins))

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database url is required")
	}
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen addr is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	return nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer cleanup()

	if err := prepareSchema(gormDB, driver); err != nil {
		return err
	}

	store := gormstore.New(gormDB)
	directory := gormstore.NewListingDirectory(gormDB)
	clock := func() int64 { return time.Now().UTC().Unix() }

	commissionRate, err := rental.NewCommissionRate(cfg.CommissionBps)
	if err != nil {
		return fmt.Errorf("commission rate: %w", err)
	}
	options := []rental.Option{
		rental.WithOperationLogger(httpserver.NewZapOperationLogger(logger)),
		rental.WithCurrency(cfg.Currency),
	}

	payments, err := rental.NewPaymentService(store, clock, options...)
	if err != nil {
		return fmt.Errorf("payment service init: %w", err)
	}
	bookings, err := rental.NewBookingService(store, directory, payments, clock, commissionRate, options...)
	if err != nil {
		return fmt.Errorf("booking service init: %w", err)
	}
	ledger, err := rental.NewLedgerService(store, clock, options...)
	if err != nil {
		return fmt.Errorf("ledger service init: %w", err)
	}
	payouts, err := rental.NewPayoutService(store, clock, options...)
	if err != nil {
		return fmt.Errorf("payout service init: %w", err)
	}

	return httpserver.Run(ctx, httpserver.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
	}, logger, httpserver.Services{
		Bookings: bookings,
		Payments: payments,
		Ledger:   ledger,
		Payouts:  payouts,
	})
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "rentcore.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

// Postgres deployments manage schema with migrations; sqlite gets the
// models pushed directly for local runs.
func prepareSchema(db *gorm.DB, driver string) error {
	if driver != "sqlite" {
		return nil
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

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

	"github.com/altlive/platform/internal/httpapi"
	"github.com/altlive/platform/internal/notify"
	"github.com/altlive/platform/internal/store/gormstore"
	"github.com/altlive/platform/pkg/alt"
	"github.com/altlive/platform/pkg/live"
	"github.com/glebarez/sqlite"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL      = "database-url"
	flagListenAddr       = "listen-addr"
	flagSigningKey       = "session-signing-key"
	flagSessionIssuer    = "session-issuer"
	flagAllowedOrigins   = "allowed-origins"
	flagMinWithdrawal    = "min-withdrawal-alt"
	flagRevenueShareBps  = "revenue-share-bps"
	flagNatsURL          = "nats-url"
	configKeyDatabase    = "database_url"
	configKeyListenAddr  = "listen_addr"
	configKeySigningKey  = "session_signing_key"
	configKeyIssuer      = "session_issuer"
	configKeyOrigins     = "allowed_origins"
	configKeyMinWithdraw = "min_withdrawal_alt"
	configKeyShareBps    = "revenue_share_bps"
	configKeyNatsURL     = "nats_url"
	defaultDatabaseURL   = "sqlite:///tmp/altlive.db"
	defaultListenAddr    = ":9090"
	defaultMinWithdrawal = 1000
)

type runtimeConfig struct {
	DatabaseURL      string
	ListenAddr       string
	SigningKey       string
	SessionIssuer    string
	AllowedOrigins   string
	MinWithdrawalALT int64
	RevenueShareBps  int64
	NatsURL          string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "platformd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "platformd",
		Short:         "ALT ledger and live session server",
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

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or sqlite connection string")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagSigningKey, "", "HMAC key for session tokens")
	cmd.Flags().String(flagSessionIssuer, "", "Expected session token issuer")
	cmd.Flags().String(flagAllowedOrigins, "", "Comma-separated CORS origins")
	cmd.Flags().Int64(flagMinWithdrawal, defaultMinWithdrawal, "Minimum withdrawal amount in ALT")
	cmd.Flags().Int64(flagRevenueShareBps, alt.RevenueShareScale, "Creator revenue share in basis points")
	cmd.Flags().String(flagNatsURL, "", "NATS server URL (empty disables broadcast)")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyDatabase:    "DATABASE_URL",
		configKeyListenAddr:  "LISTEN_ADDR",
		configKeySigningKey:  "SESSION_SIGNING_KEY",
		configKeyIssuer:      "SESSION_ISSUER",
		configKeyOrigins:     "ALLOWED_ORIGINS",
		configKeyMinWithdraw: "MIN_WITHDRAWAL_ALT",
		configKeyShareBps:    "REVENUE_SHARE_BPS",
		configKeyNatsURL:     "NATS_URL",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	flags := map[string]string{
		configKeyDatabase:    flagDatabaseURL,
		configKeyListenAddr:  flagListenAddr,
		configKeySigningKey:  flagSigningKey,
		configKeyIssuer:      flagSessionIssuer,
		configKeyOrigins:     flagAllowedOrigins,
		configKeyMinWithdraw: flagMinWithdrawal,
		configKeyShareBps:    flagRevenueShareBps,
		configKeyNatsURL:     flagNatsURL,
	}
	for key, flag := range flags {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabase)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.SigningKey = viper.GetString(configKeySigningKey)
	cfg.SessionIssuer = viper.GetString(configKeyIssuer)
	cfg.AllowedOrigins = viper.GetString(configKeyOrigins)
	cfg.MinWithdrawalALT = viper.GetInt64(configKeyMinWithdraw)
	cfg.RevenueShareBps = viper.GetInt64(configKeyShareBps)
	cfg.NatsURL = viper.GetString(configKeyNatsURL)

	if cfg.SigningKey == "" {
		return fmt.Errorf("session signing key is required")
	}
	return nil
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
	defer func() { _ = cleanup() }()

	if err := prepareSchema(gormDB, driver); err != nil {
		return err
	}

	clock := func() int64 { return time.Now().UTC().Unix() }

	var publisher notify.Publisher
	if cfg.NatsURL != "" {
		conn, connErr := nats.Connect(cfg.NatsURL, nats.Name("platformd"))
		if connErr != nil {
			return fmt.Errorf("nats connect: %w", connErr)
		}
		defer conn.Close()
		publisher = conn
	}

	notifier := notify.NewService(gormstore.NewNotifyStore(gormDB), publisher, logger, clock)

	ledgerService, err := alt.NewService(
		gormstore.NewAltStore(gormDB),
		notifier,
		clock,
		alt.Config{
			MinWithdrawalALT: cfg.MinWithdrawalALT,
			RevenueShareBps:  cfg.RevenueShareBps,
		},
		alt.WithOperationLogger(alt.NewZapOperationLogger(logger)),
	)
	if err != nil {
		return fmt.Errorf("ledger service init: %w", err)
	}

	sessionService, err := live.NewService(
		gormstore.NewLiveStore(gormDB),
		ledgerService,
		notifier,
		clock,
		live.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("session service init: %w", err)
	}

	server, err := httpapi.NewServer(httpapi.Config{
		ListenAddr:        cfg.ListenAddr,
		AllowedOrigins:    httpapi.ParseAllowedOrigins(cfg.AllowedOrigins),
		SessionSigningKey: cfg.SigningKey,
		SessionIssuer:     cfg.SessionIssuer,
	}, ledgerService, sessionService, logger)
	if err != nil {
		return fmt.Errorf("http server init: %w", err)
	}

	return server.Run(ctx)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	gormCfg := &gorm.Config{}
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormCfg)
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
			path = "altlive.db"
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

func prepareSchema(db *gorm.DB, driver string) error {
	if driver != "sqlite" {
		return nil
	}
	if err := db.AutoMigrate(gormstore.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

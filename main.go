package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"famportal/config"
	"famportal/database"
	"famportal/middleware"
	"famportal/notify"
	"famportal/routes"
	"famportal/services"
	"famportal/storage"
	"famportal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	// .env values never override variables that are already set
	config.LoadDotEnv()

	if err := run(os.Args); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:  "famportal",
		Usage: "family portal API server",
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "database connection string (mysql://, postgres:// or sqlite://)",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "text or json",
			Value:   "text",
			EnvVars: []string{"LOG_FORMAT"},
		},
	}
	app.Before = func(cctx *cli.Context) error {
		slog.SetDefault(newLogger(cctx.String("log-level"), cctx.String("log-format")))
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "run the HTTP API",
			Action: runServe,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "port",
					EnvVars: []string{"PORT"},
				},
				&cli.StringFlag{
					Name:  "backup-path",
					Usage: "mysqldump target written before development auto-migration",
				},
			},
		},
		{
			Name:   "migrate",
			Usage:  "migrate the schema and seed the settings row",
			Action: runMigrate,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "backup-path",
					Usage: "write a mysqldump here before migrating",
				},
			},
		},
		{
			Name:   "create-admin",
			Usage:  "create or promote an active admin account",
			Action: runCreateAdmin,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "static-id", Required: true},
				&cli.StringFlag{Name: "name", Required: true},
				&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
			},
		},
	}
	app.DefaultCommand = "serve"
	return app.Run(args)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// loadConfig reads the environment and applies the global flags on top.
func loadConfig(cctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := cctx.String("db-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := cctx.String("port"); v != "" {
		cfg.Port = v
	}
	return cfg, nil
}

func openDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL or DB_HOST/DB_USER/DB_NAME must be set")
	}
	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// backupDSN returns the mysql DSN for mysqldump, or "" for other stores.
func backupDSN(cfg *config.Config) string {
	if dsn, ok := strings.CutPrefix(cfg.DatabaseURL, "mysql://"); ok {
		return dsn
	}
	return ""
}

func runMigrate(cctx *cli.Context) error {
	logger := slog.Default()
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(cctx.Context, db, logger, backupDSN(cfg), cctx.String("backup-path")); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("migration completed")
	return nil
}

func runCreateAdmin(cctx *cli.Context) error {
	logger := slog.Default()
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	svc := services.New(services.Deps{DB: db, Logger: logger, Location: cfg.Timezone})
	u, err := svc.Members.EnsureAdmin(cctx.Context, cctx.String("static-id"), cctx.String("name"), cctx.String("password"))
	if err != nil {
		return err
	}
	logger.Info("admin ready", "id", u.ID, "static_id", u.StaticID)
	return nil
}

// newNotifier builds the sink fan-out from whatever channels are configured.
// The returned func releases sink connections after the dispatcher is closed.
func newNotifier(cfg *config.Config, logger *slog.Logger) (*notify.Dispatcher, func()) {
	release := func() {}
	var sinks notify.Multi
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Warn("telegram notifications disabled", "err", err)
		} else {
			sinks = append(sinks, tg)
		}
	}
	if cfg.AMQPURL != "" {
		amqpSink := notify.NewAMQPSink(cfg.AMQPURL, cfg.AMQPQueue)
		sinks = append(sinks, amqpSink)
		release = func() {
			if err := amqpSink.Close(); err != nil {
				logger.Warn("amqp close failed", "err", err)
			}
		}
	}
	var sink notify.Sink = notify.LogSink{Logger: logger}
	if len(sinks) > 0 {
		sink = sinks
	}
	return notify.NewDispatcher(sink, logger, notify.DispatcherOptions{}), release
}

func runServe(cctx *cli.Context) error {
	logger := slog.Default()
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}

	// Auto-migrate only in development to avoid accidental production schema changes
	if cfg.IsDevelopment() {
		logger.Info("running in development mode, performing auto-migration")
		if err := database.Migrate(cctx.Context, db, logger, backupDSN(cfg), cctx.String("backup-path")); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	} else if err := database.EnsureSettings(cctx.Context, db); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}

	// An untyped nil must be stored, not a nil *redis.Client.
	var rdb redis.UniversalClient
	if c := utils.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, logger); c != nil {
		rdb = c
		defer c.Close()
	}

	notifier, releaseSinks := newNotifier(cfg, logger)
	defer releaseSinks()

	var uploader storage.Uploader
	if cfg.StorageEnabled() {
		r2, err := storage.NewR2(cctx.Context, storage.Options{
			AccountID:     cfg.R2AccountID,
			AccessKeyID:   cfg.R2AccessKeyID,
			SecretKey:     cfg.R2SecretKey,
			Bucket:        cfg.R2Bucket,
			PublicBaseURL: cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to init object storage: %w", err)
		}
		uploader = r2
	} else {
		logger.Warn("object storage not configured, proof uploads disabled")
	}

	svc := services.New(services.Deps{
		DB:       db,
		Notifier: notifier,
		Logger:   logger,
		Redis:    rdb,
		Location: cfg.Timezone,
	})
	tokens := &utils.Tokens{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		DB:         db,
		Redis:      rdb,
	}

	router := routes.New(routes.Deps{
		Config:   cfg,
		Services: svc,
		Tokens:   tokens,
		Guard:    middleware.NewLoginGuard(rdb),
		Uploader: uploader,
	})

	// Logging -> Security headers -> Request ID -> Timeout -> Recovery -> router.
	// Metrics and body limits are applied inside the router.
	handler := middleware.RequestLog(logger)(
		middleware.SecurityHeaders(cfg.IsDevelopment(), !cfg.IsDevelopment())(
			middleware.RequestID(
				middleware.Timeout(cfg.RequestTimeout)(
					middleware.Recovery(logger)(router),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := notifier.Close(ctx); err != nil {
		logger.Warn("notification queue not drained", "err", err)
	}
	logger.Info("server exited")
	return nil
}

package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/footcare/footcare/internal/config"
	"github.com/footcare/footcare/internal/domain/account"
	"github.com/footcare/footcare/internal/domain/careteam"
	"github.com/footcare/footcare/internal/domain/education"
	"github.com/footcare/footcare/internal/domain/footanalysis"
	"github.com/footcare/footcare/internal/domain/sensor"
	"github.com/footcare/footcare/internal/domain/sharing"
	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/auth"
	"github.com/footcare/footcare/internal/platform/blobstore"
	"github.com/footcare/footcare/internal/platform/db"
	"github.com/footcare/footcare/internal/platform/logging"
	"github.com/footcare/footcare/internal/platform/middleware"
	"github.com/footcare/footcare/internal/platform/notification"
	"github.com/footcare/footcare/internal/platform/telemetry"
	"github.com/footcare/footcare/migrations"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "footcare-server",
		Short: "FootCare API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(accountCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FootCare API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	// migrate down
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				rolled, err := m.Down(ctx)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				if rolled == nil {
					fmt.Println("No migrations to roll back.")
					return nil
				}
				fmt.Printf("Rolled back %d %s.\n", rolled.Version, rolled.Name)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	m := db.NewMigrator(pool, migrations.FS)
	defer m.Close()
	return fn(ctx, m)
}

// accountCmd manages the privileged flag. It is the only way to create
// content editors.
func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	for _, c := range []struct {
		use, short string
		privileged bool
	}{
		{"promote", "Allow an account to edit educational content", true},
		{"demote", "Withdraw content editing rights from an account", false},
	} {
		privileged := c.privileged
		sub := &cobra.Command{
			Use:   c.use,
			Short: c.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				email, _ := cmd.Flags().GetString("email")
				role, _ := cmd.Flags().GetString("role")
				if email == "" {
					return fmt.Errorf("--email is required")
				}
				return setPrivileged(role, email, privileged)
			},
		}
		sub.Flags().String("email", "", "Account e-mail address")
		sub.Flags().String("role", account.RolePatient, "Account role (patient or clinician)")
		cmd.AddCommand(sub)
	}
	return cmd
}

func setPrivileged(role, email string, privileged bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	logger, _ := logging.New(logging.Options{Level: cfg.LogLevel, Console: true})
	svc := account.NewService(account.NewRepoPG(pool), nil, nil, nil, account.Options{}, logger)
	if err := svc.SetPrivileged(ctx, role, email, privileged); err != nil {
		return err
	}
	fmt.Printf("Updated %s %s: privileged=%t\n", role, email, privileged)
	return nil
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Logger
	logger, logCloser := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Console: cfg.IsDev(),
		File:    cfg.LogFile,
	})
	defer logCloser.Close()

	ctx := context.Background()

	// Tracing
	tp, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		ServiceName:    "footcare",
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		OTLPInsecure:   !cfg.IsProduction(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise tracing")
	}
	defer func() {
		if err := telemetry.ShutdownTracing(context.Background(), tp); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()
	metrics := telemetry.NewMetrics()

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Redis is optional: without it token revocation and ingest throttling
	// are process local.
	var (
		redisClient *goredis.Client
		revoked     auth.RevocationStore
		limiter     middleware.Limiter
	)
	if cfg.RedisURL != "" {
		redisClient, err = middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		revoked = auth.NewRedisRevocationStore(redisClient)
		limiter = middleware.NewRedisLimiter(redisClient, cfg.IngestRateLimit, cfg.IngestRateWindow)
		logger.Info().Msg("connected to redis")
	} else {
		memRevoked := auth.NewMemoryRevocationStore()
		defer memRevoked.Close()
		revoked = memRevoked
		limiter = middleware.NewMemoryLimiter(cfg.IngestRateLimit, cfg.IngestRateWindow)
	}

	// File storage
	files, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise file storage")
	}

	// Notifications
	sender, err := newEmailSender(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise mail sender")
	}
	notifier := notification.NewNotifier(sender, notification.NewTemplateEngine(), logger,
		notification.WithRetry(cfg.NotifyMaxAttempts, cfg.NotifyRetryBackoff))
	defer notifier.Wait()

	// Auth
	signingKey, generated, err := resolveSigningKey(cfg.JWTSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve signing key")
	}
	if generated {
		logger.Warn().Msg("JWT_SECRET not set; using a random key, tokens will not survive a restart")
	}
	tokens := auth.NewTokenService(signingKey, cfg.JWTIssuer, cfg.TokenTTL)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(telemetry.Tracing(tp))
	e.Use(metrics.Middleware())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.SecurityHeaders(cfg.MediaURLPrefix))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit("1M", fmt.Sprintf("%dK", cfg.UploadMaxBytes/1024+64)))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	e.Use(middleware.RateLimit(rateLimitCfg))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	if local, ok := files.(*blobstore.LocalStore); ok {
		e.Static(cfg.MediaURLPrefix, local.Dir())
	}

	// Services
	accountSvc := account.NewService(account.NewRepoPG(pool), hasher, tokens, files, account.Options{
		PhoneRegion:    cfg.PhoneRegion,
		UploadMaxBytes: cfg.UploadMaxBytes,
	}, logger)
	authn := auth.Authenticate(tokens, accountSvc, revoked)

	sensorSvc := sensor.NewService(sensor.NewRepoPG(pool), limiter, metrics, logger)

	classifier := footanalysis.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout,
		footanalysis.WithTracer(telemetry.Tracer()),
		footanalysis.WithObserver(metrics),
	)
	analysisSvc := footanalysis.NewService(footanalysis.NewRepoPG(pool), classifier, files, cfg.UploadMaxBytes, logger)

	sharingSvc := sharing.NewService(sharing.NewRepoPG(pool), accountSvc, notifier, logger)
	careteamSvc := careteam.NewService(careteam.NewRepoPG(pool), accountSvc, notifier, logger)
	educationSvc := education.NewService(education.NewRepoPG(pool), files, cfg.UploadMaxBytes, logger)

	// Routes
	users := e.Group("/users")
	clinicians := e.Group("/clinicians")

	account.NewHandler(accountSvc, revoked).RegisterRoutes(users, clinicians, authn)
	sharing.NewHandler(sharingSvc, sensorSvc).RegisterRoutes(users, authn)
	careteam.NewHandler(careteamSvc, sensorSvc, analysisSvc).RegisterRoutes(clinicians, authn)
	education.NewHandler(educationSvc).RegisterRoutes(e.Group("/educational-content"), authn)
	sensor.NewHandler(sensorSvc).RegisterRoutes(e.Group("/api/sensor-data"), authn)
	footanalysis.NewHandler(analysisSvc).RegisterRoutes(e.Group("/FootAnalysis"), authn)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.StorageBackend == "s3" {
		store, err := blobstore.NewS3Store(ctx, blobstore.S3Options{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := blobstore.NewLocalStore(cfg.MediaDir, cfg.MediaURLPrefix)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newEmailSender(cfg *config.Config) (notification.EmailSender, error) {
	if !cfg.SMTPEnabled() {
		return notification.NopSender{}, nil
	}
	sender, err := notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return sender, nil
}

// resolveSigningKey returns the HMAC key for access tokens, generating a
// random 32-byte key when secret is empty. The second return value is true
// when a random key was generated.
func resolveSigningKey(secret string) ([]byte, bool, error) {
	if secret != "" {
		return []byte(secret), false, nil
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(crypto_rand.Reader, key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random signing key: %w", err)
	}
	return key, true, nil
}

package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/config"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/domain/account"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/domain/consultation"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/domain/message"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/domain/questionnaire"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/auth"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/cache"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/db"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/mailer"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/middleware"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/reporting"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Dental clinic intake and consultation API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(backfillCmd())
	rootCmd.AddCommand(staffCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// connect loads config and opens the pool for the one-shot commands.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
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
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill-referrers",
		Short: "Split legacy referrer strings into the structured referrer columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := questionnaire.NewService(questionnaire.NewRepoPG(pool), newLogger(cfg.Env))
			report, err := svc.BackfillReferrers(ctx, dryRun)
			if err != nil {
				return err
			}
			mode := "updated"
			if dryRun {
				mode = "would update"
			}
			fmt.Printf("Scanned %d, %s %d, skipped %d.\n", report.Scanned, mode, report.Updated, report.Skipped)
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "Report what would change without writing")
	return cmd
}

func staffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account with any role",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			password := os.Getenv("STAFF_PASSWORD")
			if password == "" {
				return fmt.Errorf("STAFF_PASSWORD must be set")
			}

			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := account.NewService(account.NewRepoPG(pool), nil, nil, nil, nil,
				account.ResetConfig{}, newLogger(cfg.Env))
			a, err := svc.Create(ctx, account.NewAccount{Email: email, Password: password, DisplayName: name, Role: role})
			if err != nil {
				return err
			}
			fmt.Printf("Created %s (%s) with role %s.\n", a.Email, a.ID, a.Role)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Sign-in email")
	createCmd.Flags().String("name", "", "Display name")
	createCmd.Flags().String("role", auth.RoleStaff, "One of admin, doctor, consultant, staff")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("name")
	cmd.AddCommand(createCmd)
	return cmd
}

// resolveSigningKey returns the configured key, or a random one in
// development. The second return value is true when a key was generated.
func resolveSigningKey(cfg *config.Config) ([]byte, bool, error) {
	if key := cfg.SigningKey(); len(key) > 0 {
		return key, false, nil
	}
	if !cfg.IsDev() {
		return nil, false, fmt.Errorf("JWT_SIGNING_KEY is required")
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return key, true, nil
}

func newKV(cfg *config.Config, logger zerolog.Logger) (cache.KV, error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set; using in-process store, sign-outs and reset links do not survive restarts")
		return cache.NewMemoryKV(), nil
	}
	client, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return cache.NewRedisKV(client), nil
}

func newMailer(cfg *config.Config, logger zerolog.Logger) mailer.Mailer {
	if cfg.MailAPIURL == "" {
		logger.Warn().Msg("MAIL_API_URL not set; reset mails are logged instead of sent")
		return mailer.NewLogMailer(logger)
	}
	return mailer.NewHTTPMailer(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom)
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS, BurstSize: cfg.RateLimitBurst}
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	return rl
}

// deps are the collaborators the router is built from.
type deps struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
	db     db.Querier
	kv     cache.KV
	mail   mailer.Mailer
	issuer *auth.TokenIssuer
}

func newRouter(d deps) *echo.Echo {
	cfg, logger := d.cfg, d.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/wait"))

	revocations := auth.NewRevocationStore(d.kv)
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(d.issuer))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{Issuer: d.issuer, Revocations: revocations}))
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.pool != nil {
		e.GET("/health/db", db.HealthHandler(d.pool, db.Check{Name: "kv", Ping: d.kv.Ping}))
	}

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))

	accountSvc := account.NewService(account.NewRepoPG(d.db), d.issuer, revocations, d.kv, d.mail,
		account.ResetConfig{URLBase: cfg.ResetURLBase}, logger)
	account.NewHandler(accountSvc).RegisterRoutes(apiV1,
		middleware.RateLimit(middleware.CredentialRateLimitConfig()))

	questionnaireSvc := questionnaire.NewService(questionnaire.NewRepoPG(d.db), logger)
	questionnaire.NewHandler(questionnaireSvc).RegisterRoutes(apiV1)

	consultationSvc := consultation.NewService(consultation.NewRepoPG(d.db), questionnaireSvc, logger)
	consultation.NewHandler(consultationSvc).RegisterRoutes(apiV1)

	targets := reporting.Targets{Daily: cfg.StatsDailyTarget, Weekly: cfg.StatsWeeklyTarget, Monthly: cfg.StatsMonthlyTarget}
	statsSvc := reporting.NewService(consultationSvc, targets, d.kv, cfg.StatsCacheTTL, logger)
	reporting.NewHandler(statsSvc).RegisterRoutes(apiV1)

	messageSvc := message.NewService(message.NewRepoPG(d.db), cfg.MessagePollInterval, logger)
	message.NewHandler(messageSvc, cfg.MessageWaitTimeout).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	kv, err := newKV(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure key/value store")
	}
	key, generated, err := resolveSigningKey(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve signing key")
	}
	if generated {
		logger.Warn().Msg("JWT_SIGNING_KEY not set; using a random key, sessions end on restart")
	}

	e := newRouter(deps{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		db:     pool,
		kv:     kv,
		mail:   newMailer(cfg, logger),
		issuer: auth.NewTokenIssuer(key, cfg.JWTTTL),
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

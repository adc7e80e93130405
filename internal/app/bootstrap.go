// Package app assembles the HTTP runtime shared by the long-running server and the
// serverless entrypoint.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"portfolio-api/internal/auth"
	"portfolio-api/internal/config"
	"portfolio-api/internal/contact"
	"portfolio-api/internal/db"
	"portfolio-api/internal/maintenance"
	"portfolio-api/internal/media"
	"portfolio-api/internal/notify"
	"portfolio-api/internal/observability"
	"portfolio-api/internal/otp"
	"portfolio-api/internal/profile"
	"portfolio-api/internal/project"
	"portfolio-api/internal/skill"
)

const (
	redisOTPRetention = 24 * time.Hour
	mediaRootFolder   = "portfolio"
	startupTimeout    = 15 * time.Second
)

type Options struct {
	LoadDotEnv bool
}

type Runtime struct {
	Handler http.Handler
	Config  config.Config
	Logger  *observability.Logger
	Close   func() error
}

// Dependencies are the external collaborators the routes are built from. Nil Notifier
// disables admin elevation and contact alerts; nil Uploader keeps image links as given.
type Dependencies struct {
	Config   config.Config
	Logger   *observability.Logger
	DB       *sql.DB
	OTPStore otp.KVStore
	Notifier otp.Notifier
	Uploader media.ImageUploader
	Checks   map[string]func(context.Context) error
}

func Build(options Options) (*Runtime, error) {
	cfg, err := config.Load(config.Options{LoadDotEnv: options.LoadDotEnv})
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger()

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv, cfg.Release); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	closers := []func() error{database.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*Runtime, error) {
		_ = closeAll()
		return nil, err
	}

	if err := database.PingContext(ctx); err != nil {
		return fail(fmt.Errorf("ping database: %w", err))
	}

	if cfg.RunMigrations {
		if _, err := db.NewMigrator(logger).Run(ctx, database); err != nil {
			return fail(fmt.Errorf("run migrations: %w", err))
		}
	}

	deps := Dependencies{
		Config: cfg,
		Logger: logger,
		DB:     database,
		Checks: map[string]func(context.Context) error{"database": database.PingContext},
	}

	if cfg.RedisURL != "" {
		client, err := otp.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("ping redis: %w", err))
		}
		deps.OTPStore = otp.NewRedisStore(client, cfg.OTP.KeyPrefix)
		deps.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		logger.Info("otp_store_selected", map[string]any{"backend": "redis"})
	} else {
		deps.OTPStore = otp.NewMemoryStore()
		logger.Info("otp_store_selected", map[string]any{"backend": "memory"})
	}

	switch {
	case cfg.MailConfigured():
		deps.Notifier = notify.NewSMTPNotifier(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.SMTPUser, cfg.Mail.SMTPPassword, cfg.Mail.From)
	case cfg.IsDevelopment():
		deps.Notifier = notify.NewLogNotifier(logger)
		logger.Warn("mail_not_configured", map[string]any{"fallback": "log"})
	default:
		logger.Warn("mail_not_configured", map[string]any{"fallback": "disabled"})
	}

	if cfg.CloudinaryURL != "" {
		cloudinary, err := media.NewCloudinary(cfg.CloudinaryURL, mediaRootFolder)
		if err != nil {
			return fail(fmt.Errorf("init cloudinary: %w", err))
		}
		deps.Uploader = cloudinary
	}

	handler, authService := NewHandler(deps)

	if err := authService.BootstrapAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return fail(fmt.Errorf("bootstrap admin: %w", err))
	}

	return &Runtime{
		Handler: handler,
		Config:  cfg,
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			return closeAll()
		},
	}, nil
}

// NewHandler wires every route over deps and returns the wrapped handler together
// with the auth service, which the caller uses for admin bootstrap.
func NewHandler(deps Dependencies) (http.Handler, *auth.Service) {
	cfg := deps.Config
	logger := deps.Logger

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.ElevatedTTL)
	authService := auth.NewService(auth.NewRepository(deps.DB), auth.NewBcryptHasher(bcrypt.DefaultCost), tokens)
	if deps.Notifier != nil {
		retention := time.Duration(0)
		if _, shared := deps.OTPStore.(*otp.RedisStore); shared {
			retention = redisOTPRetention
		}
		authService.WithElevation(otp.NewService(deps.OTPStore, deps.Notifier, otp.Config{
			TTL:         cfg.OTP.TTL,
			MaxAttempts: cfg.OTP.MaxAttempts,
			Retention:   retention,
		}))
	}

	messages := contact.NewRepository(deps.DB)

	r := routes{
		auth:     auth.NewHandler(authService, auth.NewCookieOptions(cfg.IsDevelopment(), tokens.SessionTTL()), logger),
		guard:    auth.NewGuard(tokens, auth.ChainExtractor{auth.CookieExtractor{}, auth.BearerExtractor{}}),
		bearer:   auth.NewGuard(tokens, auth.BearerExtractor{}),
		projects: project.NewHandler(project.NewRepository(deps.DB), deps.Uploader, logger),
		skills:   skill.NewHandler(skill.NewRepository(deps.DB), logger),
		contact:  contact.NewHandler(messages, deps.Notifier, cfg.Mail.Inbox, logger),
		profile:  profile.NewHandler(profile.NewRepository(deps.DB), deps.Uploader, logger),
		media:    media.NewUploadHandler(deps.Uploader, logger),
		cleanup:  maintenance.NewCleanupHandler(messages, logger, cfg.CronSecret, cfg.MessageRetention, cfg.CleanupBatchSize),
		health:   healthHandler(deps.Checks),

		loginLimiter:   auth.NewRateLimiter(cfg.Auth.LoginRateLimitMax, cfg.Auth.LoginRateLimitWindow, "too many login attempts, try again later"),
		signupLimiter:  auth.NewRateLimiter(cfg.Auth.LoginRateLimitMax, cfg.Auth.LoginRateLimitWindow, "too many signup attempts, try again later"),
		contactLimiter: auth.NewRateLimiter(cfg.Auth.ContactRateLimitMax, cfg.Auth.ContactRateLimitWindow, "too many messages, try again later"),
	}

	handler := observability.RequestLoggingMiddleware(logger, observability.RecoverMiddleware(logger, r.mux()))
	return handler, authService
}

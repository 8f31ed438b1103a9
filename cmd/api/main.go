// @title EventHub API
// @version 1.0
// @description Event management backend: events, sessions, assistants, users and roles.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"eventhub/config"
	_ "eventhub/docs"
	"eventhub/internal/adapters/auth"
	"eventhub/internal/adapters/email"
	"eventhub/internal/adapters/lock"
	"eventhub/internal/adapters/search"
	deliveryhttp "eventhub/internal/delivery/http"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
	"eventhub/internal/repository/postgres"
	"eventhub/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, db, logger); err != nil {
		return err
	}

	eventRepo := postgres.NewEventRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	assistantRepo := postgres.NewAssistantRepository(db)
	userRepo := postgres.NewUserRepository(db)
	roleRepo := postgres.NewRoleRepository(db)

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	index, err := newIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:             cfg.Mailer.AWSRegion,
			AccessKeyID:        cfg.Mailer.AWSAccessKeyID,
			SecretAccessKey:    cfg.Mailer.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Mailer.InsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return err
	}
	emailService := services.NewEmailService(mailer, renderer, logger)

	userService := services.NewUserService(userRepo, roleRepo,
		auth.NewBcryptHasher(cfg.BcryptCost),
		auth.NewJWTIssuer(cfg.JWTSecret),
		emailService, logger,
		services.UserServiceConfig{
			AdminDomain:    cfg.AdminDomain,
			TokenExpiry:    cfg.JWTExpiry,
			ContextTimeout: cfg.ContextTimeout,
		})
	roleService := services.NewRoleService(roleRepo, cfg.ContextTimeout)
	eventService := services.NewEventService(eventRepo, sessionRepo, assistantRepo, userRepo, index, locker, logger, cfg.ContextTimeout)
	sessionService := services.NewSessionService(sessionRepo, eventRepo, assistantRepo, locker, logger, cfg.ContextTimeout)
	assistantService := services.NewAssistantService(assistantRepo, sessionRepo, userRepo, eventService, emailService, locker, logger, cfg.ContextTimeout)

	if err := seedAdmin(ctx, cfg, userRepo, userService, logger); err != nil {
		return err
	}

	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)
	prometheus.DefaultRegisterer.MustRegister(postgres.NewStatusCollector(db, cfg.ContextTimeout, logger))
	mux := deliveryhttp.NewRouter(deliveryhttp.RouterConfig{
		Users:          controllers.NewUserController(logger, userService),
		Roles:          controllers.NewRoleController(logger, roleService),
		Events:         controllers.NewEventController(logger, eventService),
		Sessions:       controllers.NewSessionController(logger, sessionService),
		Assistants:     controllers.NewAssistantController(logger, assistantService),
		Verifier:       auth.NewJWTVerifier(cfg.JWTSecret),
		ActiveUsers:    userService,
		LoginLimiter:   middleware.NewRateLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst),
		MetricsHandler: promhttp.Handler(),
		Logger:         logger,
	})
	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, metrics.Wrap(mux)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLocker uses redis when REDIS_ADDR is set, otherwise an in-process locker.
func newLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.ScheduleLocker, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, schedule locks only cover this process")
		return lock.NewLocalLocker(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return lock.NewRedisLocker(client, cfg.LockTTL, logger), func() { client.Close() }, nil
}

func newIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.EventIndex, error) {
	if len(cfg.ElasticHosts) == 0 {
		logger.Warn("ELASTIC_HOSTS not set, event search returns no results")
		return search.NewNoopIndex(), nil
	}
	index, err := search.NewElasticIndex(nil, cfg.ElasticHosts, cfg.ElasticIndex, logger)
	if err != nil {
		return nil, err
	}
	if err := search.EnsureIndex(ctx, index); err != nil {
		return nil, err
	}
	return index, nil
}

// seedAdmin creates the bootstrap administrator when configured and missing.
func seedAdmin(ctx context.Context, cfg *config.Config, users domain.UserRepository, svc domain.UserService, logger *slog.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	admin, err := svc.CreateUser(ctx, &domain.UserInput{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		RoleSlug: domain.AdminRoleSlug,
		Metadata: map[string]any{"full_name": "System Administrator", "job": "Administrator"},
	})
	if err != nil {
		return err
	}
	logger.Info("bootstrap administrator created", "user_id", admin.ID)
	return nil
}

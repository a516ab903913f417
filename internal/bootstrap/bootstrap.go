package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	appControllers "github.com/helphive/servicehours/internal/app/controllers"
	appMigrations "github.com/helphive/servicehours/internal/app/migrations"
	appRepos "github.com/helphive/servicehours/internal/app/repositories"
	"github.com/helphive/servicehours/internal/app/repositories/memstore"
	appRoutes "github.com/helphive/servicehours/internal/app/routes"
	appServices "github.com/helphive/servicehours/internal/app/services"
	"github.com/helphive/servicehours/internal/config"
	"github.com/helphive/servicehours/internal/db"
	appMiddleware "github.com/helphive/servicehours/internal/middleware"
	pkgAuth "github.com/helphive/servicehours/internal/pkg/auth"
	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/helphive/servicehours/internal/pkg/filestorage"
	"github.com/helphive/servicehours/internal/pkg/geo"
	"github.com/helphive/servicehours/internal/pkg/logger"
	"github.com/helphive/servicehours/internal/pkg/metrics"
	"github.com/helphive/servicehours/internal/pkg/telemetry"
	"github.com/helphive/servicehours/internal/pkg/websocket"
	"github.com/helphive/servicehours/internal/seed"
	"github.com/helphive/servicehours/internal/worker"
)

// DefaultConfigPath is used when CONFIG_PATH is not set.
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger

	Store       appRepos.Store
	Redis       *redis.Client
	Mailer      email.Mailer
	FileStorage *filestorage.LocalStorage
	Geo         *geo.Client
	Hub         *websocket.Hub
	Metrics     *metrics.Metrics
	Telemetry   *telemetry.Provider

	JWTService     *pkgAuth.JWTService
	AuthMiddleware *appMiddleware.AuthMiddleware
	RateLimiter    *appMiddleware.RateLimiter

	AuthService         *appServices.AuthService
	UserService         appServices.UserService
	CommunityService    appServices.CommunityService
	OpportunityService  appServices.OpportunityService
	HourService         appServices.HourService
	NotificationService appServices.NotificationService

	Controllers appRoutes.Controllers

	// closers run in reverse order on Close.
	closers []func(ctx context.Context) error
}

func (d *Dependencies) onClose(fn func(ctx context.Context) error) {
	d.closers = append(d.closers, fn)
}

// Close releases everything BuildDependencies and SetupStore opened.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(service string) (*config.Config, zerolog.Logger, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.ToLower(cfg.Logging.Format) == "text",
		Service: service,
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore opens the configured store, applies migrations and seeds default data.
func SetupStore(ctx context.Context, cfg *config.Config, deps *Dependencies) error {
	lgr := deps.Logger

	if cfg.Database.Driver == "memory" {
		lgr.Warn().Msg("Using the in-memory store; data is lost on restart")
		deps.Store = memstore.New()
	} else {
		lgr.Info().Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(ctx, cfg, lgr)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return err
		}
		deps.onClose(func(context.Context) error {
			database.Close()
			return nil
		})
		lgr.Info().Msg("Database connection successfully established.")

		var migrations fs.FS = appMigrations.Files
		if dir := cfg.Database.MigrationsDir; dir != "" {
			migrations = os.DirFS(dir)
		}

		lgr.Info().Msg("Running database migrations...")
		if err := appMigrations.NewMigrator(database.Pool, lgr).Migrate(ctx, migrations); err != nil {
			lgr.Error().Err(err).Msg("Database migration error")
			return fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		deps.Store = appRepos.NewPostgresStore(database.Pool, lgr)
	}

	teacher := seed.DefaultTeacher{Email: cfg.Seed.TeacherEmail, Password: cfg.Seed.TeacherPassword}
	if err := seed.CreateDefaultData(ctx, deps.Store, teacher, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}
	return nil
}

// SetupRedis connects to Redis when a URL is configured.
func SetupRedis(ctx context.Context, cfg *config.Config, deps *Dependencies) error {
	if cfg.Redis.URL == "" {
		deps.Logger.Info().Msg("Redis not configured; email is sent inline and geocoding is not cached")
		return nil
	}

	rdb, err := db.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	deps.Redis = rdb
	deps.onClose(func(context.Context) error { return rdb.Close() })
	return nil
}

// SetupMailer chooses the queue when Redis is available and starts the
// embedded worker if configured. Without Redis, mail is sent over SMTP directly.
func SetupMailer(cfg *config.Config, deps *Dependencies) error {
	smtp := email.NewSMTPMailer(SMTPConfig(cfg), deps.Logger.With().Str("component", "email").Logger())
	if cfg.Redis.URL == "" {
		deps.Mailer = smtp
		return nil
	}

	queue, err := worker.NewQueue(cfg.Redis.URL, worker.QueueOptions{
		MaxRetry: cfg.Worker.MaxRetry,
		Timeout:  config.Duration(cfg.Worker.TaskTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to create email queue: %w", err)
	}
	deps.Mailer = queue
	deps.onClose(func(context.Context) error { return queue.Close() })

	if cfg.Worker.Embedded {
		stop, err := worker.Start(WorkerOptions(cfg), smtp, deps.Logger.With().Str("component", "worker").Logger())
		if err != nil {
			return err
		}
		deps.onClose(func(context.Context) error {
			stop()
			return nil
		})
		deps.Logger.Info().Int("concurrency", cfg.Worker.Concurrency).Msg("Embedded email worker started")
	}
	return nil
}

// SMTPConfig maps the email section onto the SMTP mailer settings.
func SMTPConfig(cfg *config.Config) email.SMTPConfig {
	return email.SMTPConfig{
		Host:      cfg.Email.Host,
		Port:      cfg.Email.Port,
		Username:  cfg.Email.Username,
		Password:  cfg.Email.Password,
		FromName:  cfg.Email.FromName,
		FromEmail: cfg.Email.FromEmail,
		UseTLS:    cfg.Email.UseTLS,
	}
}

// WorkerOptions maps the worker section onto the asynq server settings.
func WorkerOptions(cfg *config.Config) worker.Options {
	return worker.Options{
		RedisURL:        cfg.Redis.URL,
		Concurrency:     cfg.Worker.Concurrency,
		ShutdownTimeout: config.Duration(cfg.Server.ShutdownTimeout),
	}
}

// SetupTelemetry installs the tracer provider. An endpoint given with an
// http:// scheme is exported without TLS.
func SetupTelemetry(ctx context.Context, cfg *config.Config, deps *Dependencies) error {
	endpoint := cfg.Telemetry.Endpoint
	insecure := strings.HasPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")

	provider, err := telemetry.New(ctx, telemetry.Config{
		Endpoint:    strings.TrimRight(endpoint, "/"),
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    insecure,
	}, deps.Logger)
	if err != nil {
		return err
	}
	deps.Telemetry = provider
	deps.onClose(provider.Shutdown)
	return nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: lgr}
	built := false
	defer func() {
		if !built {
			_ = deps.Close(context.Background())
		}
	}()

	if err := SetupTelemetry(ctx, cfg, deps); err != nil {
		return nil, fmt.Errorf("failed to setup telemetry: %w", err)
	}
	if err := SetupStore(ctx, cfg, deps); err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	if err := SetupRedis(ctx, cfg, deps); err != nil {
		return nil, fmt.Errorf("failed to setup redis: %w", err)
	}
	if err := SetupMailer(cfg, deps); err != nil {
		return nil, fmt.Errorf("failed to setup mailer: %w", err)
	}

	deps.Metrics = metrics.New()

	// Initialize File Storage
	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Storage.Path, cfg.Storage.PublicURL, filestorage.Options{
		MaxBytes:          int64(cfg.Storage.MaxPhotoMB) << 20,
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".webp"},
	})
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	var geoCache geo.Cache
	if deps.Redis != nil {
		geoCache = geo.NewRedisCache(deps.Redis)
	}
	deps.Geo = geo.NewClient(geo.Config{
		APIKey:   cfg.Maps.APIKey,
		BaseURL:  cfg.Maps.BaseURL,
		CacheTTL: config.Duration(cfg.Maps.CacheTTL),
	}, geoCache, lgr.With().Str("component", "geo").Logger())

	hubCtx, stopHub := context.WithCancel(context.Background())
	deps.Hub = websocket.NewHub(lgr.With().Str("component", "websocket").Logger())
	go deps.Hub.Run(hubCtx)
	deps.onClose(func(context.Context) error {
		stopHub()
		return nil
	})

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  config.Duration(cfg.JWT.AccessTokenExpiration),
		RefreshTokenExp: config.Duration(cfg.JWT.RefreshTokenExpiration),
		TokenIssuer:     cfg.JWT.Issuer,
	})
	googleEnabled := pkgAuth.SetupGoogle(pkgAuth.GoogleConfig{
		ClientID:      cfg.Google.ClientID,
		ClientSecret:  cfg.Google.ClientSecret,
		CallbackURL:   cfg.Google.CallbackURL,
		SessionSecret: cfg.Google.SessionSecret,
		Secure:        cfg.IsProduction(),
	})

	// Initialize services
	deps.AuthService = appServices.NewAuthService(deps.Store, deps.JWTService, lgr)
	deps.UserService = appServices.NewUserService(deps.Store, deps.FileStorage, lgr)
	deps.CommunityService = appServices.NewCommunityService(deps.Store, lgr)
	deps.OpportunityService = appServices.NewOpportunityService(deps.Store, deps.Geo, deps.Hub, deps.Mailer, deps.Metrics, lgr)
	deps.HourService = appServices.NewHourService(deps.Store, deps.Mailer, deps.Metrics, cfg.Server.BaseURL, lgr)
	deps.NotificationService = appServices.NewNotificationService(deps.Mailer, deps.Metrics, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.RateLimiter = appMiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	checks := map[string]appControllers.Pinger{"database": deps.Store}
	if deps.Redis != nil {
		rdb := deps.Redis
		checks["redis"] = appControllers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	deps.Controllers = appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(deps.AuthService, googleEnabled, lgr),
		User:         appControllers.NewUserController(deps.UserService, lgr),
		Community:    appControllers.NewCommunityController(deps.CommunityService, lgr),
		Opportunity:  appControllers.NewOpportunityController(deps.OpportunityService, lgr),
		HourRequest:  appControllers.NewHourRequestController(deps.HourService, lgr),
		Notification: appControllers.NewNotificationController(deps.NotificationService, lgr),
		Place:        appControllers.NewPlaceController(deps.Geo),
		Health:       appControllers.NewHealthController(checks),
		SeatsSocket:  websocket.NewHandler(deps.Hub, cfg.Server.AllowedOrigins, lgr).HandleConnection,
	}

	built = true
	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		appMiddleware.Recovery(lgr),
		appMiddleware.RequestLogger(lgr),
		appMiddleware.CORS(cfg.Server.AllowedOrigins),
		deps.Metrics.Middleware(),
	)
	if deps.Telemetry.Enabled() {
		router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.RateLimiter)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	setupStaticFileServing(router, cfg, lgr)
	return router
}

// setupStaticFileServing serves uploaded photos under the path of the public URL.
func setupStaticFileServing(router *gin.Engine, cfg *config.Config, lgr zerolog.Logger) {
	urlPath := "/uploads"
	if u, err := url.Parse(cfg.Storage.PublicURL); err == nil && u.Path != "" && u.Path != "/" {
		urlPath = strings.TrimRight(u.Path, "/")
	}

	router.Static(urlPath, cfg.Storage.Path)
	lgr.Info().Str("path", cfg.Storage.Path).Str("url", urlPath).Msg("Static file serving configured for uploads directory")
}

// ShutdownTimeout is the grace period for in-flight requests.
func ShutdownTimeout(cfg *config.Config) time.Duration {
	if d := config.Duration(cfg.Server.ShutdownTimeout); d > 0 {
		return d
	}
	return 10 * time.Second
}

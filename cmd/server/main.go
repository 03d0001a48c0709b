package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AnshRaj112/propertyhub-backend/internal/config"
	"github.com/AnshRaj112/propertyhub-backend/internal/database"
	"github.com/AnshRaj112/propertyhub-backend/internal/handlers"
	"github.com/AnshRaj112/propertyhub-backend/internal/middleware"
	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
	"github.com/AnshRaj112/propertyhub-backend/internal/routes"
	"github.com/AnshRaj112/propertyhub-backend/internal/services"
	"github.com/AnshRaj112/propertyhub-backend/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := log.New("production")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := log.With(log.New(cfg.Environment), log.Fields{
		"service":  "propertyhub-backend",
		"provider": cfg.Provider,
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var p provider.Provider
	switch cfg.Provider {
	case config.ProviderMemory:
		logger.Warn().Msg("using in-memory provider; accounts and listings are lost on restart")
		p = provider.NewMemoryProvider()
	default:
		p = provider.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.ProviderTimeout)
	}

	if cfg.PostgresURI != "" {
		db, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
		}
		defer db.Close()
		p = provider.Compose(p, database.NewPostgresTables(db))
		logger.Info().Msg("table operations served directly from PostgreSQL")
	}

	var tokenCache *services.TokenCache
	var authLimiter *middleware.RateLimiter
	if cfg.RedisURI != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable; auth rate limiting and token cache disabled")
		} else {
			defer rdb.Close()
			tokenCache = services.NewTokenCache(rdb, cfg.TokenCacheTTL)
			authLimiter = middleware.NewRateLimiter(rdb, cfg.AuthRateLimit, cfg.AuthRateWindow, logger)
			logger.Info().Msg("connected to Redis")
		}
	}

	var audit services.AuditLog = services.NopAuditLog{}
	if cfg.MongoURI != "" {
		client, mdb, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Warn().Err(err).Msg("MongoDB unavailable; auth audit trail disabled")
		} else {
			defer database.DisconnectMongo(client)
			cipher, err := cfg.AuditCipher()
			if err != nil {
				logger.Fatal().Err(err).Msg("invalid audit encryption key")
			}
			if cipher == nil {
				logger.Warn().Msg("AUDIT_ENCRYPTION_KEY not set; audit emails stored in plain text")
			}
			mongoAudit := services.NewMongoAuditLog(mdb, cipher, logger)
			if err := mongoAudit.EnsureIndexes(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to ensure audit indexes")
			}
			audit = mongoAudit
			logger.Info().Str("database", mdb.Name()).Msg("connected to MongoDB")
		}
	}

	var uploader services.ImageUploader
	if cfg.CloudinaryConfigured() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			logger.Warn().Err(err).Msg("image uploads will not be available")
		} else {
			uploader = cld
		}
	} else {
		logger.Warn().Msg("Cloudinary credentials not found; image uploads will not be available")
	}

	if cfg.RecaptchaSecret == "" {
		logger.Warn().Msg("RECAPTCHA_SECRET_KEY not set; reCAPTCHA verification will fail")
	}

	prod := cfg.IsProduction()
	authService := services.NewAuthService(p, tokenCache, audit, cfg.PasswordResetRedirect(), logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if prod {
		for _, mw := range middleware.ProductionSecurity(ctx) {
			r.Use(mw)
		}
	}

	routes.SetupRoutes(r, routes.Deps{
		Auth:          handlers.NewAuthHandler(authService, prod),
		Recaptcha:     handlers.NewRecaptchaHandler(services.NewRecaptchaVerifier(cfg.RecaptchaSecret, cfg.RecaptchaVerifyURL, cfg.RecaptchaTimeout), prod),
		Properties:    handlers.NewPropertyHandler(services.NewPropertyService(p), prod),
		Profile:       handlers.NewProfileHandler(services.NewProfileService(p), prod),
		Upload:        handlers.NewUploadHandler(uploader, prod),
		Authenticator: middleware.NewAuthenticator(p, tokenCache, cfg.SupabaseJWTSecret, logger),
		AuthLimiter:   authLimiter,
		Environment:   cfg.Environment,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("environment", cfg.Environment).
			Strs("origins", cfg.AllowedOrigins).
			Str("provider", cfg.Provider).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	grpchandler "github.com/ntcogk/auth-server/internal/api/grpc/handler"
	grpcrouter "github.com/ntcogk/auth-server/internal/api/grpc/router"
	grpcserver "github.com/ntcogk/auth-server/internal/api/grpc/server"
	httpctx "github.com/ntcogk/auth-server/internal/api/http/context"
	"github.com/ntcogk/auth-server/internal/api/http/handler"
	"github.com/ntcogk/auth-server/internal/api/http/middleware"
	"github.com/ntcogk/auth-server/internal/api/http/router"
	httpserver "github.com/ntcogk/auth-server/internal/api/http/server"
	"github.com/ntcogk/auth-server/internal/config"
	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/mail"
	"github.com/ntcogk/auth-server/internal/model"
	"github.com/ntcogk/auth-server/internal/observability"
	"github.com/ntcogk/auth-server/internal/ratelimit"
	"github.com/ntcogk/auth-server/internal/repository/memory"
	"github.com/ntcogk/auth-server/internal/repository/mongo"
	"github.com/ntcogk/auth-server/internal/repository/postgres"
	"github.com/ntcogk/auth-server/internal/server"
	"github.com/ntcogk/auth-server/internal/service"
	"github.com/ntcogk/auth-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

type userStore interface {
	model.UserStore
	model.Pinger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	users, closeStore := openUserStore(ctx, cfg, logger)
	defer closeStore()

	var social model.SocialUserCounter
	if cfg.Social.MongoURI != "" {
		repo, err := mongo.Connect(ctx, cfg.Social.MongoURI, cfg.Social.MongoDatabase, cfg.Social.MongoCollection, cfg.Social.Timeout)
		if err != nil {
			logger.Warn("social user store misconfigured, statistics will omit it", "error", err)
		} else {
			if err := repo.Ping(ctx); err != nil {
				logger.Warn("social user store not reachable yet, statistics will omit it until it is", "error", err)
			}
			social = repo
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = repo.Close(closeCtx)
			}()
		}
	}

	var redisClient redis.UniversalClient
	if cfg.RateLimit.Store == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	mailer, closeMailer := newMailer(cfg, logger)
	defer closeMailer()

	templates, err := mail.ParseTemplates()
	if err != nil {
		logger.Fatal("failed to parse mail templates", "error", err)
	}
	notifier := mail.NewNotifier(mailer, templates, mail.NotifierOptions{
		FrontendURL: cfg.Auth.FrontendURL,
		OTPTTL:      cfg.Auth.OTPTTL,
		ResetTTL:    cfg.Auth.ResetPasswordExpires,
	})

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.ExpiresIn, cfg.JWT.RefreshExpiresIn)
	tokenService := service.NewTokenService(tokenManager, users, logger)
	authService := service.NewAuth(users, service.NewBcryptHasher(cfg.Auth.BcryptCost), tokenService, notifier, logger, service.AuthOptions{
		Lockout: model.LockoutPolicy{
			Threshold: cfg.Auth.LockoutThreshold,
			Duration:  cfg.Auth.LockoutDuration,
		},
		OTPTTL:      cfg.Auth.OTPTTL,
		ResetTTL:    cfg.Auth.ResetPasswordExpires,
		AdminEmails: cfg.Auth.AdminEmails,
	})
	statsService := service.NewStats(users, social, logger)

	metrics := observability.NewMetrics()
	limiters := newLimiters(ctx, cfg, redisClient)

	type listener struct {
		server model.Server
		layer  model.SecurityLayer
	}

	httpServer := registerHTTPServer(cfg, logger, metrics, limiters, users, authService, tokenService, statsService)
	listeners := []listener{{
		server: httpServer,
		layer:  server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
	}}

	if cfg.GRPC.Enabled {
		health := grpchandler.NewHealth(users, logger)
		go health.Monitor(ctx, cfg.GRPC.HealthCheckInterval)
		listeners = append(listeners, listener{
			server: grpcserver.NewGRPCServer(grpcrouter.New(health, logger).Register(), fmt.Sprintf(":%s", cfg.GRPC.Port)),
			layer:  server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName),
		})
	}

	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(l.server, l.layer)
	}

	logAppVersion(os.Stdout)
	logger.Info("NTCOG Kenya Authentication API started", "environment", cfg.Env)

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, l := range listeners {
		if err := l.server.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", l.server.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion(w io.Writer) {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Fprintf(w, tmpl, buildVersion, buildDate, buildCommit)
}

func openUserStore(ctx context.Context, cfg *config.Config, logger *logger.Logger) (userStore, func()) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory user store, data is lost on restart")
		return memory.NewUserRepository(), func() {}
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}

	return postgresStore{UserRepository: postgres.NewUserRepository(db), conn: db}, func() { _ = db.Close() }
}

// postgresStore pairs the repository with the pool it pings.
type postgresStore struct {
	*postgres.UserRepository
	conn *postgres.Connection
}

func (s postgresStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func newMailer(cfg *config.Config, logger *logger.Logger) (model.Mailer, func()) {
	switch cfg.Mail.Driver {
	case "smtp":
		return mail.NewSMTPSender(smtpConfig(cfg)), func() {}
	case "queue":
		client := asynq.NewClient(redisOpts(cfg))
		return mail.NewQueueSender(client), func() { _ = client.Close() }
	default:
		return mail.NewLogSender(logger), func() {}
	}
}

func smtpConfig(cfg *config.Config) mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		User:     cfg.Mail.User,
		Password: cfg.Mail.Password,
		FromName: cfg.Mail.FromName,
	}
}

func redisOpts(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func newLimiters(ctx context.Context, cfg *config.Config, client redis.UniversalClient) router.Limiters {
	var store ratelimit.Store
	if cfg.RateLimit.Store == "redis" {
		store = ratelimit.NewRedisStore(client, "ntcogk:ratelimit:")
	} else {
		mem := ratelimit.NewMemoryStore()
		go mem.RunSweeper(ctx, cfg.RateLimit.SweepInterval)
		store = mem
	}

	rl := cfg.RateLimit
	return router.Limiters{
		API: ratelimit.New(ratelimit.Rule{
			Name:    "api",
			Max:     rl.APIMax,
			Window:  rl.APIWindow,
			Message: "Too many requests from this IP, please try again later.",
		}, store),
		Auth: ratelimit.New(ratelimit.Rule{
			Name:    "auth",
			Max:     rl.AuthMax,
			Window:  rl.AuthWindow,
			Message: "Too many authentication attempts, please try again later.",
		}, store),
		PasswordReset: ratelimit.New(ratelimit.Rule{
			Name:    "password-reset",
			Max:     rl.ResetMax,
			Window:  rl.ResetWindow,
			Message: "Too many password reset attempts, please try again later.",
		}, store),
	}
}

func registerHTTPServer(
	cfg *config.Config,
	logger *logger.Logger,
	metrics *observability.Metrics,
	limiters router.Limiters,
	users userStore,
	authService *service.Auth,
	tokenService *service.TokenService,
	statsService *service.Stats,
) *httpserver.HTTPServer {
	ctxMgr := httpctx.NewManager()
	decoder := handler.NewDecoder(cfg.HTTP.MaxBodyBytes)

	r := router.New(router.Handlers{
		Auth: handler.NewAuth(authService, tokenService, ctxMgr, decoder, logger, handler.AuthOptions{
			Development: cfg.IsDevelopment(),
			Events:      metrics,
		}),
		Account: handler.NewAccount(authService, ctxMgr, decoder, logger),
		Admin:   handler.NewAdmin(statsService, logger),
		Health:  handler.NewHealth(users, cfg.Env, logger),
	}, middleware.NewAuthenticate(tokenService, ctxMgr, logger), ctxMgr, limiters, metrics, router.Options{
		Production:     cfg.IsProduction(),
		RequestTimeout: cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.AllowedOrigins(),
		TrustProxy:     cfg.HTTP.TrustProxy,
	}, logger)

	return httpserver.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))
}

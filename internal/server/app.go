// Package server wires the solve server together: storage, identity cache,
// input archive, inference provider, the session controller and its HTTP and
// gRPC front ends. It also owns signal handling and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/logging"
	"github.com/dmitrijs2005/mathsolver/internal/server/auth"
	"github.com/dmitrijs2005/mathsolver/internal/server/cache"
	"github.com/dmitrijs2005/mathsolver/internal/server/config"
	"github.com/dmitrijs2005/mathsolver/internal/server/httpapi"
	"github.com/dmitrijs2005/mathsolver/internal/server/inputs"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/dmitrijs2005/mathsolver/internal/server/provider"
	"github.com/dmitrijs2005/mathsolver/internal/server/relay"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mathsolver/internal/server/services"
	"github.com/dmitrijs2005/mathsolver/internal/server/session"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/mathsolver/internal/server/grpc"
)

const (
	shutdownTimeout = 10 * time.Second
	probeInterval   = 10 * time.Second
	demoCredits     = 3
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	redis       *redis.Client
	userCache   cache.UserCache
	inputStore  inputs.Store
	provider    provider.Provider
	inMemory    bool
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	app := &App{config: c, logger: logger, userCache: cache.Nop{}, inputStore: inputs.DigestStore{}}

	if c.DatabaseDSN == "" {
		app.repomanager = repomanager.NewInMemoryRepositoryManager()
		app.inMemory = true
	} else {
		rm, err := repomanager.NewPostgresRepositoryManager(c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.repomanager = rm
	}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		rc, err := cache.NewRedisCache(cache.Config{Client: app.redis, TTL: c.UserCacheTTL})
		if err != nil {
			return nil, fmt.Errorf("cache init error: %w", err)
		}
		app.userCache = rc
	}

	if c.S3Bucket != "" {
		store, err := inputs.NewS3Store(context.Background(), inputs.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("input store init error: %w", err)
		}
		app.inputStore = store
	}

	app.provider = provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:  c.OpenAIAPIKey,
		BaseURL: c.OpenAIBaseURL,
		Model:   c.OpenAIModel,
	})

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// seedDemoUser gives a process-local store one account to solve with.
func (app *App) seedDemoUser(ctx context.Context) error {
	u, err := app.repomanager.Users().Create(ctx, &models.User{
		Email:       "demo@localhost",
		Name:        "Demo",
		Role:        common.RoleAdmin,
		Entitlement: models.Entitlement{Credits: demoCredits},
	})
	if err != nil {
		return err
	}
	app.logger.Warn(ctx, "no database configured, using in-memory store with a demo account",
		"user_id", u.ID, "credits", demoCredits)
	return nil
}

func (app *App) handler(ctx context.Context) http.Handler {
	c := app.config
	secret := []byte(c.SecretKey)

	verifier := auth.NewVerifier(secret)
	issuer := auth.NewIssuer(secret, c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)

	identity := services.NewIdentityService(app.repomanager, verifier, issuer, app.userCache, app.logger.With("module", "identity"))
	ledger := services.NewLedgerService(app.repomanager, app.logger.With("module", "ledger"))
	recorder := services.NewRecorderService(app.repomanager, app.inputStore, c.ResultRetention, app.logger.With("module", "recorder"))
	relayer := relay.New(app.provider, c.ProviderTimeout, app.logger.With("module", "relay"))

	controller := session.NewController(identity, ledger, relayer, recorder, session.Options{
		Prompt:        c.SolvePrompt,
		MaxImageBytes: int(c.MaxImageBytes),
	}, app.logger)

	// base64 inflates by 4/3; leave room for the JSON envelope.
	maxFrame := c.MaxImageBytes*4/3 + 4096
	if c.MaxImageBytes <= 0 {
		maxFrame = 0
	}

	return httpapi.NewHandler(ctx, controller, identity, ledger, verifier,
		httpapi.Options{MaxMessageBytes: maxFrame}, app.logger).Router()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	deps := []gs.Pinger{app.repomanager}
	if rc, ok := app.userCache.(*cache.RedisCache); ok {
		deps = append(deps, rc)
	}

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, probeInterval, deps...)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) close(ctx context.Context) {
	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "closing repositories", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "closing redis", "error", err)
		}
	}
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	defer app.close(ctx)

	if err := app.repomanager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	if app.inMemory {
		if err := app.seedDemoUser(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ensure *App implements AppProvider.
var _ AppProvider = (*App)(nil)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	limiter        *IPRateLimiter
	closers        []func() error
	cleanups       []func() error
	queueConsumers []func(context.Context) error
}

// backend groups the primary storage with the optional mirroring parts.
type backend struct {
	storage   BookStorage
	queue     Queuer
	consumers []func(context.Context) error
	closers   []func() error
}

// NewApp provides an instance of App.
func NewApp(configFile, envFile string) (*App, error) {
	config, err := LoadAndInitConfigs(configFile, envFile, GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	// ensure the logs folder exists and setup the logging module.
	err = os.MkdirAll(config.LogFolder, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewClock(config.IsProduction)
	logWriter := NewLogFileWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, clock)

	bk, err := setupBackend(logger, config)
	if err != nil {
		_ = flusher()
		_ = logWriter.Close()
		return nil, err
	}

	bookService := NewBookService(logger, config, clock, bk.storage, bk.queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		bookService,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(), NewMiddlewareMap(apiService.MiddlewaresStacks()))

	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	return &App{
		logger:         logger,
		config:         config,
		server:         srv,
		limiter:        apiService.limiter,
		closers:        bk.closers,
		cleanups:       []func() error{flusher, logWriter.Close},
		queueConsumers: bk.consumers,
	}, nil
}

// setupBackend connects to the configured storage driver. When redis is the
// primary store and mirroring is enabled, every change is also replayed into
// a local boltdb file through a single redis list.
func setupBackend(logger *zap.Logger, config *Config) (*backend, error) {
	bk := &backend{}
	switch config.Storage.Driver {
	case RedisDriver:
		redisClient, err := GetRedisClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis server: %w", err)
		}
		bk.storage = NewRedisBookStorage(logger, redisClient, config.Redis.MaxTxRetries)
		bk.closers = append(bk.closers, bk.storage.Close)

		if config.BoltDB.Mirror {
			boltDBClient, err := GetBoltDBClient(config)
			if err != nil {
				_ = bk.storage.Close()
				return nil, fmt.Errorf("failed to open boltdb mirror file: %w", err)
			}
			mirror := NewBoltBookStorage(logger, &config.BoltDB, boltDBClient)
			bk.closers = append(bk.closers, mirror.Close)
			bk.queue = NewRedisQueue(redisClient, config.Redis.QueueName)
			consumer := NewMirrorConsumer(logger, bk.queue, mirror)
			bk.consumers = append(bk.consumers, func(ctx context.Context) error {
				return consumer.Consume(ctx)
			})
		}

	case BoltDriver:
		boltDBClient, err := GetBoltDBClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb file: %w", err)
		}
		bk.storage = NewBoltBookStorage(logger, &config.BoltDB, boltDBClient)
		bk.closers = append(bk.closers, bk.storage.Close)

	case PostgresDriver:
		pool, err := GetPostgresPool(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres server: %w", err)
		}
		bk.storage = NewPostgresBookStorage(logger, pool, config.Postgres.TableName)
		bk.closers = append(bk.closers, bk.storage.Close)

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}
	return bk, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	if app.limiter != nil {
		g.Go(func() error {
			return app.limiter.Cleanup(gCtx, app.config.RateLimit.CleanupInterval)
		})
	}
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		if err := f(); err != nil {
			fmt.Fprintln(os.Stderr, "app cleanup failed:", err)
		}
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
			zap.String("app.storage", app.config.Storage.Driver),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}

		for _, closeFn := range app.closers {
			if cerr := closeFn(); cerr != nil {
				app.logger.Error("failed to close storage", zap.Error(cerr))
			}
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				return consume(gCtx)
			})
		}
		return nil
	}
}

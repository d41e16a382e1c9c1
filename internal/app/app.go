package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/greenbasket/internal/domain/auth"
	"github.com/xenking/greenbasket/internal/domain/cart"
	"github.com/xenking/greenbasket/internal/domain/faq"
	"github.com/xenking/greenbasket/internal/domain/order"
	"github.com/xenking/greenbasket/internal/domain/recipe"
	"github.com/xenking/greenbasket/internal/events"
	"github.com/xenking/greenbasket/internal/handler"
	"github.com/xenking/greenbasket/internal/storage/documents"
	"github.com/xenking/greenbasket/internal/storage/postgres"
	"github.com/xenking/greenbasket/pkg/docstore"
	"github.com/xenking/greenbasket/pkg/health"
	"github.com/xenking/greenbasket/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	a, err := newAPI(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.health.Start(ctx, 10*time.Second)
	a.health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           a.handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		a.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		a.health.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// api is the composed HTTP stack together with the resources it owns.
type api struct {
	handler http.Handler
	health  *health.Health
	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *api) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *api) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// newAPI wires storage, domain services, handlers and middleware. It is the
// single wiring point for the application.
func newAPI(ctx context.Context, lg *zap.Logger, tel httpmiddleware.TelemetryProvider, cfg *Config) (_ *api, rerr error) {
	a := &api{health: health.New()}
	defer func() {
		if rerr != nil {
			a.Close()
		}
	}()
	a.health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	store, closeStore, err := openStore(ctx, cfg.Storage, a.health)
	if err != nil {
		return nil, err
	}
	a.onClose(closeStore)

	shipping, err := cfg.Shipping()
	if err != nil {
		return nil, err
	}

	// Repositories.
	productRepo := documents.NewProductRepository(store)
	orderRepo := documents.NewOrderRepository(store)

	// Identity. Signing out drops the session's cart.
	blocklist, err := auth.LoadBlocklistFile(cfg.Auth.PasswordBlocklist)
	if err != nil {
		return nil, errors.Wrap(err, "load password blocklist")
	}
	if cfg.Auth.TokenPepper == "" {
		lg.Warn("Token pepper is empty, session tokens are hashed without a secret")
	}
	carts := cart.NewRegistry()
	authService := auth.NewService(auth.Config{
		TokenPepper:       []byte(cfg.Auth.TokenPepper),
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		Blocklist:         blocklist,
	}, documents.NewUserRepository(store), documents.NewSessionRepository(store))
	a.onClose(authService.OnAuthStateChanged(func(c auth.StateChange) {
		if c.User == nil {
			carts.Discard(c.SessionID)
		}
	}))

	// Order events are optional.
	var publisher order.Publisher
	if brokers := events.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		p, err := events.NewPublisher(brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, errors.Wrap(err, "create event publisher")
		}
		a.onClose(func() {
			if err := p.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		})
		publisher = p
		lg.Info("Publishing order events", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// Domain services.
	orderService, err := order.NewService(order.Config{Shipping: shipping}, carts, productRepo, orderRepo, publisher, order.Options{
		MeterProvider:  tel.MeterProvider(),
		TracerProvider: tel.TracerProvider(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}
	recipeService := recipe.NewService(documents.NewRecipeRepository(store))
	a.onClose(recipeService.Wait)

	// HTTP handlers.
	h := handler.New(handler.Config{
		Shipping:     shipping,
		Currency:     cart.Currency{Symbol: cfg.Store.CurrencySymbol},
		ImageBaseURL: cfg.ImageBaseURL,
	}, handler.Deps{
		Auth:     authService,
		Products: productRepo,
		Carts:    carts,
		Orders:   orderService,
		Recipes:  recipeService,
		FAQ:      faq.NewService(documents.NewFAQRepository(store)),
	})

	mux := http.NewServeMux()
	a.health.Register(mux)
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	a.handler = httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.HeaderRequestID},
			ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Skip:   isProbe,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("basket-api", routeFinder, tel),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
	return a, nil
}

// openStore creates the configured document store. The postgres driver
// applies migrations and registers a readiness check.
func openStore(ctx context.Context, cfg StorageConfig, healthSvc *health.Health) (docstore.Store, func(), error) {
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
		return postgres.NewStore(pool), pool.Close, nil
	case DriverMemory:
		zctx.From(ctx).Warn("Using in-memory storage, data is lost on restart")
		return docstore.NewMemory(), func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func isProbe(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}

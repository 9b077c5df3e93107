package sway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/swayhq/sway/internal/core/config"
	"github.com/swayhq/sway/internal/core/events"
	"github.com/swayhq/sway/internal/core/metrics"
	"github.com/swayhq/sway/internal/core/server"
	"github.com/swayhq/sway/internal/core/store"
	"github.com/swayhq/sway/internal/descriptor"
	"github.com/swayhq/sway/internal/routing"
	"github.com/swayhq/sway/internal/rules"
)

// ErrAppStarted is returned when routes, rules or middlewares are added after
// the handler has been built.
var ErrAppStarted = errors.New("app already started")

var requestContextType = reflect.TypeOf((*RequestContext)(nil))

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithPublisher sets the event publisher instead of one built from
// events.nats_url.
func WithPublisher(p events.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// App holds the route table, middlewares and custom rules of one service.
type App struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *rules.Registry
	builder   *routing.Builder
	appCtx    *AppContext
	publisher events.Publisher
	metrics   *metrics.Recorder
	cors      *server.CORS

	mu          sync.Mutex
	middlewares []Middleware
	compileTime time.Duration
	handler     http.Handler
	httpServer  *server.HTTPServer
}

// New creates an app. A nil cfg uses DefaultConfig.
func New(cfg *Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	a := &App{cfg: *cfg, appCtx: server.NewAppContext()}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	root, err := filepath.Abs(cfg.Routes.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid routes root %q: %w", cfg.Routes.Root, err)
	}

	if !cfg.CORS.Disabled {
		if a.cors, err = server.NewCORS(cfg.CORS); err != nil {
			return nil, fmt.Errorf("invalid cors configuration: %w", err)
		}
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}
	if a.publisher == nil {
		if a.publisher, err = events.New(cfg.Events.NATSURL); err != nil {
			return nil, fmt.Errorf("failed to connect event publisher: %w", err)
		}
	}

	catalog := descriptor.NewCatalog()
	a.registry = rules.NewRegistry()
	engine := rules.NewEngine(catalog, a.registry)
	a.builder = routing.NewBuilder(root, requestContextType, engine, descriptor.NewReflector(catalog), a.logger)
	return a, nil
}

// Route registers handler for the file that calls Route. Call it from the
// route file itself, typically in an init function or a registration helper
// declared in that file.
func (a *App) Route(handler any) error {
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("cannot determine route file")
	}
	return a.RouteFile(file, handler)
}

// RouteFile registers handler for the route file at path file.
func (a *App) RouteFile(file string, handler any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handler != nil {
		return ErrAppStarted
	}

	start := time.Now()
	route, err := a.builder.Add(file, handler)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	a.compileTime += elapsed
	a.metrics.RouteCompiled(elapsed)

	if aware, ok := handler.(AppContextAware); ok {
		aware.SetAppContext(a.appCtx)
	}
	a.logger.Info("route registered",
		"route", route.Pattern,
		"methods", len(route.Methods),
		"file", file,
	)
	return nil
}

// Use appends middlewares. They run in order before routing.
func (a *App) Use(mw ...Middleware) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handler != nil {
		return ErrAppStarted
	}
	a.middlewares = append(a.middlewares, mw...)
	return nil
}

// RegisterRule binds a predicate to Custom<"name"> annotations.
// Rules can be registered until the app starts serving.
func (a *App) RegisterRule(name string, fn Predicate) error {
	return a.registry.Register(name, fn)
}

// AppContext returns the context shared by every request.
func (a *App) AppContext() *AppContext {
	return a.appCtx
}

// RouterMap lists the registered routes and their methods, one per line.
func (a *App) RouterMap() string {
	return a.builder.Table().String()
}

// Snapshot returns the compiled rules of every route method.
func (a *App) Snapshot() []RouteRules {
	return a.builder.Table().Rules()
}

// StoreSnapshot saves the compiled route table. An unchanged table is not
// stored twice; created reports whether a new snapshot was written.
func (a *App) StoreSnapshot(ctx context.Context, snapshots *store.Snapshots, label string) (*store.Snapshot, bool, error) {
	compiled := a.Snapshot()
	snap, created, err := snapshots.Save(store.KindRoutes, label, len(compiled), compiled)
	if err != nil {
		return nil, false, err
	}
	if created {
		event := events.SnapshotStored{ID: snap.ID, Checksum: snap.Checksum}
		if err := a.publisher.Publish(ctx, events.TopicSnapshotStored, event); err != nil {
			a.logger.Warn("failed to publish event", "topic", events.TopicSnapshotStored, "error", err)
		}
	}
	return snap, created, nil
}

// Metrics returns the Prometheus recorder, or nil when metrics are disabled.
func (a *App) Metrics() *metrics.Recorder {
	return a.metrics
}

// Handler builds the app's http.Handler. The first call freezes the route
// table, middlewares and custom rule registry.
func (a *App) Handler() http.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handler != nil {
		return a.handler
	}

	a.registry.Freeze()
	table := a.builder.Table()
	methods := 0
	for _, r := range table.Routes() {
		methods += len(r.Methods)
	}
	event := events.RouteTableCompiled{Routes: table.Len(), Methods: methods, Duration: a.compileTime}
	if err := a.publisher.Publish(context.Background(), events.TopicRouteTableCompiled, event); err != nil {
		a.logger.Warn("failed to publish event", "topic", events.TopicRouteTableCompiled, "error", err)
	}
	a.logger.Info("route table compiled", "routes", event.Routes, "methods", methods, "duration", a.compileTime)

	metricsPath := ""
	if a.metrics != nil {
		metricsPath = a.cfg.Metrics.Path
	}
	a.handler = server.NewDispatcher(server.Options{
		Table:       table,
		Engine:      a.builder.Engine(),
		CORS:        a.cors,
		Middlewares: a.middlewares,
		App:         a.appCtx,
		Publisher:   a.publisher,
		Metrics:     a.metrics,
		MetricsPath: metricsPath,
		Logger:      a.logger,
		MaxBody:     a.cfg.HTTP.MaxBodyBytes,
		Timeout:     a.cfg.HTTP.RequestTimeout,
	})
	return a.handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv, err := server.NewHTTPServer(a.cfg.HTTP, a.Handler(), a.logger)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}
	a.mu.Lock()
	a.httpServer = srv
	a.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	}
}

// Addr returns the HTTP address once Run has bound it.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpServer == nil {
		return ""
	}
	return a.httpServer.Addr()
}

// Shutdown stops the HTTP server and closes the event publisher.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.mu.Unlock()

	var errs []error
	if srv != nil {
		errs = append(errs, srv.Shutdown(ctx))
	}
	errs = append(errs, a.publisher.Close())
	return errors.Join(errs...)
}

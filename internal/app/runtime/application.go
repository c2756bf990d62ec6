package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	app "github.com/R3E-Network/layout_service/internal/app"
	"github.com/R3E-Network/layout_service/internal/app/httpapi"
	"github.com/R3E-Network/layout_service/internal/config"
	"github.com/R3E-Network/layout_service/internal/middleware"
	"github.com/R3E-Network/layout_service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg  *config.Config
	log  *logger.Logger
	app  *app.Application
	http *httpService
}

// NewApplication loads configuration from the environment and builds the
// application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})
	return NewApplicationWithConfig(cfg, log)
}

// NewApplicationWithConfig builds the application from an explicit config.
func NewApplicationWithConfig(cfg *config.Config, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.NewDefault("layoutd")
	}

	core, err := app.New(app.Stores{}, log)
	if err != nil {
		return nil, fmt.Errorf("build application: %w", err)
	}

	sink, err := httpapi.NewFileAuditSink(cfg.Audit.File)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	opts := []httpapi.Option{httpapi.WithLogger(log)}
	if sink != nil {
		opts = append(opts, httpapi.WithAudit(cfg.Audit.Size, sink))
		if err := core.Attach(sink); err != nil {
			return nil, fmt.Errorf("register audit sink: %w", err)
		}
	} else {
		opts = append(opts, httpapi.WithAudit(cfg.Audit.Size, nil))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	var handler http.Handler = httpapi.NewHandler(core, opts...)
	handler = limiter.Handler(handler)
	handler = middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins).Handler(handler)
	handler = middleware.NewTracingMiddleware(log).Handler(handler)

	srv := newHTTPService(cfg.Server.Addr(), handler, log)
	stopCleanup := make(chan struct{})
	limiter.StartCleanup(time.Minute, stopCleanup)
	srv.onShutdown(func() { close(stopCleanup) })
	if err := core.Attach(srv); err != nil {
		return nil, fmt.Errorf("register http server: %w", err)
	}

	return &Application{cfg: cfg, log: log, app: core, http: srv}, nil
}

// Run starts all services and blocks until ctx is cancelled or the HTTP
// server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return nil
	case err := <-a.http.Errors():
		return err
	}
}

// Addr returns the address the HTTP server is bound to once running.
func (a *Application) Addr() string {
	return a.http.Addr()
}

// Shutdown gracefully stops the HTTP server and the other services.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := a.app.Stop(shutdownCtx)
	if closeErr := a.log.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

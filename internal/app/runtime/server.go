package runtime

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/R3E-Network/layout_service/pkg/logger"
)

// httpService runs an http.Server as a lifecycle-managed service.
type httpService struct {
	addr    string
	handler http.Handler
	log     *logger.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	errCh    chan error
	onStop   []func()
}

func newHTTPService(addr string, handler http.Handler, log *logger.Logger) *httpService {
	return &httpService{addr: addr, handler: handler, log: log, errCh: make(chan error, 1)}
}

func (s *httpService) Name() string { return "http" }

// Start binds the listener synchronously so address errors surface here,
// then serves in the background.
func (s *httpService) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		s.log.Infof("HTTP server listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
	}()
	return nil
}

func (s *httpService) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	hooks := s.onStop
	s.server = nil
	s.onStop = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr is the bound address, valid after Start.
func (s *httpService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *httpService) Errors() <-chan error { return s.errCh }

func (s *httpService) onShutdown(fn func()) {
	s.mu.Lock()
	s.onStop = append(s.onStop, fn)
	s.mu.Unlock()
}

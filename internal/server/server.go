// Package server exposes a loaded contract over HTTP. Every request that is
// not a system endpoint goes through the contract pipeline: resolve,
// validate, handle, serialize, send.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/moamenhredeen/oasgate/internal/config"
	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/dispatch"
	"github.com/moamenhredeen/oasgate/internal/exchange"
	"github.com/moamenhredeen/oasgate/internal/registry"
	"github.com/moamenhredeen/oasgate/internal/schema"
	"github.com/moamenhredeen/oasgate/internal/serializer"
)

// Server wires the contract, the dispatcher, the handler registry and the
// serializer behind an http.Server.
type Server struct {
	cfg        *config.Config
	contract   *contract.Contract
	dispatcher *dispatch.Dispatcher
	registry   *registry.Registry
	serializer *serializer.Serializer
	validator  *schema.Validator
	logger     zerolog.Logger
	observer   exchange.Observer

	handler http.Handler
	ready   atomic.Bool

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// Option configures a Server
type Option func(*Server)

// WithObserver is called on every request phase transition
func WithObserver(o exchange.Observer) Option {
	return func(s *Server) {
		s.observer = o
	}
}

// New builds a server. The registry is sealed; when the configuration
// requires every operation to be handled, missing handlers fail here.
func New(cfg *config.Config, c *contract.Contract, reg *registry.Registry, logger zerolog.Logger, opts ...Option) (*Server, error) {
	if cfg.Dispatch.RequireAllHandlers {
		if err := reg.Verify(); err != nil {
			return nil, err
		}
	}
	reg.Seal()

	var validatorOpts []schema.Option
	if cfg.Dispatch.StrictBodies {
		validatorOpts = append(validatorOpts, schema.DisallowUnknownFields())
	}
	v := schema.NewValidator(validatorOpts...)

	s := &Server{
		cfg:        cfg,
		contract:   c,
		dispatcher: dispatch.New(c, dispatch.WithValidator(v)),
		registry:   reg,
		serializer: serializer.New(v),
		validator:  v,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.buildHandler()
	return s, nil
}

func (s *Server) buildHandler() http.Handler {
	router := mux.NewRouter()
	router.SkipClean(true)
	router.UseEncodedPath()

	s.registerSystemRoutes(router.PathPrefix(s.cfg.Server.SystemPrefix).Subrouter())
	router.PathPrefix("/").HandlerFunc(s.serveOperation)

	var h http.Handler = router
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, accessLog)
	h = withRequestLogger(s.logger, h)
	h = withRequestID(h)

	if cors := s.cfg.Server.CORS; cors.Enabled {
		h = handlers.CORS(
			handlers.AllowedOrigins(cors.AllowedOrigins),
			handlers.AllowedMethods(cors.AllowedMethods),
			handlers.AllowedHeaders(cors.AllowedHeaders),
			handlers.ExposedHeaders([]string{RequestIDHeader}),
		)(h)
	}
	if s.cfg.Server.Compress {
		h = handlers.CompressHandler(h)
	}
	return h
}

// Handler returns the complete HTTP handler, middleware included
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listening address once Start has been called
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start listens on the configured address and serves until ctx is done or
// the server fails. Cancelling ctx shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	served := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(served)
		s.ready.Store(true)
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Str("contract", s.contract.Title).
			Int("operations", len(s.contract.Operations())).
			Msg("server started")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-served:
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	s.logger.Info().Msg("server stopped")
	return nil
}

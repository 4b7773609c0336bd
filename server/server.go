package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/chazu/stackviz/pkg/backend"
	"github.com/chazu/stackviz/pkg/graph"
	"github.com/chazu/stackviz/vm"
)

var log = commonlog.GetLogger("stackviz.server")

// Server serves the connect services and the HTTP graph API on one
// listener, and gRPC health checks on another.
type Server struct {
	pool   *EvalPool
	cache  *ImageCache
	mux    *http.ServeMux
	http   *http.Server
	grpc   *grpc.Server
	health *health.Server

	stopSweeper func()
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	workers  int
	defaults graph.Defaults
	cacheTTL time.Duration
}

// WithWorkers sets how many programs may be evaluated at once.
func WithWorkers(n int) ServerOption {
	return func(c *serverConfig) { c.workers = n }
}

// WithGraphDefaults sets the graph size, step and span used when a request
// leaves them out.
func WithGraphDefaults(d graph.Defaults) ServerOption {
	return func(c *serverConfig) { c.defaults = d }
}

// WithCacheTTL sets how long rendered images stay downloadable after their
// last fetch.
func WithCacheTTL(ttl time.Duration) ServerOption {
	return func(c *serverConfig) { c.cacheTTL = ttl }
}

// New creates a Server evaluating with in and querying b.
func New(in *vm.Interpreter, b backend.Backend, opts ...ServerOption) *Server {
	cfg := &serverConfig{
		workers:  4,
		defaults: graph.Defaults{Width: 700, Height: 300, Step: time.Minute, Span: 3 * time.Hour},
		cacheTTL: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		pool:  NewEvalPool(in, cfg.workers),
		cache: NewImageCache(),
		mux:   http.NewServeMux(),
	}
	s.http = &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	s.grpc, s.health = newHealthServer()

	evalSvc := NewEvalService(s.pool)
	graphSvc := NewGraphService(s.pool, b, s.cache, cfg.defaults)

	handle := func(procedure string, h http.Handler) { s.mux.Handle(procedure, h) }
	handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, evalSvc.Evaluate, handlerOptions()...))
	handle(ListWordsProcedure, connect.NewUnaryHandler(ListWordsProcedure, evalSvc.ListWords, handlerOptions()...))
	handle(CheckExamplesProcedure, connect.NewUnaryHandler(CheckExamplesProcedure, evalSvc.CheckExamples, handlerOptions()...))
	handle(RenderProcedure, connect.NewUnaryHandler(RenderProcedure, graphSvc.Render, handlerOptions()...))

	s.mux.HandleFunc("GET /api/v1/graph", graphSvc.ServeGraph)
	s.mux.HandleFunc("GET /api/v1/images/{id}", graphSvc.ServeImage)

	s.stopSweeper = s.cache.StartSweeper(cfg.cacheTTL/2+time.Second, cfg.cacheTTL)
	return s
}

// Handler returns the HTTP handler for the connect services and graph API.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves HTTP on addr until Stop is called.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Noticef("listening on %s", lis.Addr())
	log.Infof("  connect: http://%s%s", lis.Addr(), EvaluateProcedure)
	log.Infof("  graph:   http://%s/api/v1/graph?q=...", lis.Addr())
	err = s.http.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeGRPC serves gRPC health checks on lis until Stop is called.
func (s *Server) ServeGRPC(lis net.Listener) error {
	log.Noticef("gRPC health listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop marks the server NOT_SERVING and shuts everything down.
func (s *Server) Stop() {
	s.health.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		log.Warningf("http shutdown: %v", err)
	}
	s.grpc.GracefulStop()
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.pool.Stop()
}

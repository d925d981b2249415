// Package httpserver exposes the aggregated cluster over a k8s-compatible
// REST API, the HTML dashboard and the SSE event feed, plus a dedicated
// Prometheus metrics server.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkube/mkube-console/internal/cluster"
	"github.com/mkube/mkube-console/internal/infra/shutdown"
	"github.com/mkube/mkube-console/internal/registry"
	"github.com/mkube/mkube-console/internal/stream"
	"github.com/mkube/mkube-console/internal/ui"
)

// Server is the console HTTP server.
type Server struct {
	logger      *slog.Logger
	appState    appstater
	aggregator  *cluster.Aggregator
	streamer    *stream.Streamer
	registry    *registry.Client
	renderer    *ui.Renderer
	clusterName string
	addr        string
	server      *http.Server
	ready       chan struct{}
	inShutdown  atomic.Bool
}

// New creates the console server; addr is the bind address (":9090").
func New(
	logger *slog.Logger,
	appState appstater,
	aggregator *cluster.Aggregator,
	streamer *stream.Streamer,
	registryClient *registry.Client,
	renderer *ui.Renderer,
	clusterName string,
	addr string,
) *Server {
	return &Server{
		logger:      logger,
		appState:    appState,
		aggregator:  aggregator,
		streamer:    streamer,
		registry:    registryClient,
		renderer:    renderer,
		clusterName: clusterName,
		addr:        addr,
		ready:       make(chan struct{}),
	}
}

var _ shutdown.Shutdowner = (*Server)(nil)

// Name returns the name of the server component.
func (s *Server) Name() string {
	return "http-server"
}

// Start binds the listener and serves in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "http server is shutting down, skipping start")

		return nil
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	lc := &net.ListenConfig{
		KeepAliveConfig: net.KeepAliveConfig{
			Enable: true,
		},
	}

	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", s.addr, err)
	}

	s.logger.InfoContext(ctx, "console listening", "addr", listener.Addr().String())

	go func() {
		close(s.ready)

		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorContext(ctx, "http server error", "reason", err)
		}
	}()

	return nil
}

// Ready returns a channel closed once the server accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.ErrorContext(ctx, "http server is already shutting down, skipping shutdown")

		return nil
	}

	defer func() {
		s.logger.InfoContext(ctx, "http server shut down")
	}()

	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// API discovery
	router.Get("/api", s.handleAPIVersions)
	router.Get("/api/v1", s.handleAPIResources)

	// Pods
	router.Get("/api/v1/pods", s.handleListAllPods)
	router.Route("/api/v1/namespaces/{namespace}/pods", func(r chi.Router) {
		r.Get("/", s.handleListNamespacedPods)
		r.Post("/", s.handleCreatePod)
		r.Get("/{name}", s.handleGetPod)
		r.Delete("/{name}", s.handleDeletePod)
		r.Get("/{name}/log", s.handlePodLog)
	})

	// Nodes
	router.Get("/api/v1/nodes", s.handleListNodes)
	router.Get("/api/v1/nodes/{name}", s.handleGetNode)

	// Process health
	router.Get("/healthz", s.handleHealthz)
	router.Get("/readyz", s.handleReadyz)
	router.Get("/-/status", s.handleStatus)

	// Dashboard
	router.Get("/ui/", s.handleDashboard)
	router.Get("/ui/pods", s.handleUIPods)
	router.Get("/ui/pods/{namespace}/{name}", s.handleUIPodDetail)
	router.Get("/ui/nodes", s.handleUINodes)
	router.Get("/ui/nodes/{name}", s.handleUINodeDetail)
	router.Get("/ui/namespaces", s.handleUINamespaces)
	router.Get("/ui/namespaces/{name}", s.handleUINamespaceDetail)
	router.Get("/ui/registry", s.handleUIRegistry)

	// SSE events
	router.Get("/ui/events/pods", s.handlePodEvents)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusFound)
	})

	return router
}

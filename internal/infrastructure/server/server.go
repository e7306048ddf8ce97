package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"

	"github.com/eslsoft/storyquest/internal/adapter/actor"
	"github.com/eslsoft/storyquest/internal/adapter/connectrpc"
	"github.com/eslsoft/storyquest/internal/adapter/events"
	adaptergrpc "github.com/eslsoft/storyquest/internal/adapter/grpc"
	"github.com/eslsoft/storyquest/internal/adapter/mapping"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
)

// Server represents the application server
type Server struct {
	config     *config.Config
	grpcServer *grpc.Server
	httpServer *http.Server
	logger     *logrus.Logger
}

// NewServer assembles the connect services, the progress gateway, the task
// event websocket and the metrics endpoint behind one HTTP listener, plus a
// gRPC listener carrying health and reflection.
func NewServer(
	cfg *config.Config,
	logger *logrus.Logger,
	tasks *connectrpc.TaskServiceServer,
	challenges *connectrpc.ChallengeServiceServer,
	progress *adaptergrpc.ProgressRoutes,
	taskEvents *events.WebSocketHandler,
	resolver *actor.Resolver,
) (*Server, error) {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(InterceptorLogger(logger), logging.WithLogOnEvents(logging.FinishCall)),
		),
	)
	adaptergrpc.RegisterHealth(grpcServer)

	opts := append(connectrpc.CodecOptions(),
		connect.WithInterceptors(Logger(logger), connectrpc.ErrorInterceptor()),
	)

	app := http.NewServeMux()
	app.Handle(tasks.Handler(opts...))
	app.Handle(challenges.Handler(opts...))

	gateway, err := progress.NewServeMux()
	if err != nil {
		return nil, fmt.Errorf("build progress gateway: %w", err)
	}
	app.Handle("/v1/", gateway)
	app.Handle("GET /v1/tasks/{task_id}/events", taskEvents)

	root := http.NewServeMux()
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", resolver.Middleware(app))

	handler := withCORS(cfg.Server.CORSOrigins, root)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		config:     cfg,
		grpcServer: grpcServer,
		httpServer: httpServer,
		logger:     logger,
	}, nil
}

func withCORS(origins []string, h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   append(connectcors.AllowedMethods(), http.MethodOptions),
		AllowedHeaders:   append(connectcors.AllowedHeaders(), "Authorization"),
		ExposedHeaders:   append(connectcors.ExposedHeaders(), mapping.ErrorReasonHeader),
		AllowCredentials: true,
		MaxAge:           7200,
	}).Handler(h)
}

// Handler exposes the HTTP handler chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// StartGRPC starts the gRPC server
func (s *Server) StartGRPC() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.logger.Infof("gRPC server starting on %s", addr)

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}
	return nil
}

// StartHTTP starts the HTTP server
func (s *Server) StartHTTP() error {
	s.logger.Infof("HTTP server starting on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Errorf("Failed to shutdown HTTP server: %v", err)
	}
	s.grpcServer.GracefulStop()

	s.logger.Info("Server shutdown complete")
	return nil
}

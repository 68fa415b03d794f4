// Package server exposes the characters of a game over WebSocket, with HTTP
// and gRPC health checks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/becomeliminal/mindcraft-go/game"
	"github.com/becomeliminal/mindcraft-go/logging"
	"github.com/becomeliminal/mindcraft-go/npc"
)

var logger = logging.New("server")

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Server serves one game.
type Server struct {
	game     *game.Game
	opts     npc.ReactOptions
	upgrader websocket.Upgrader

	grpc   *grpc.Server
	health *health.Server
}

// New creates a server answering with opts.
func New(g *game.Game, opts npc.ReactOptions) *Server {
	s := &Server{
		game: g,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return s
}

// Handler returns the HTTP routes: /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// GRPC returns the gRPC server carrying the health service.
func (s *Server) GRPC() *grpc.Server {
	return s.grpc
}

// Health returns the gRPC health service so callers can flip its status.
func (s *Server) Health() *health.Server {
	return s.health
}

// ListenAndServe serves HTTP on httpAddr and gRPC on grpcAddr until ctx is
// cancelled or one of them fails. An empty grpcAddr disables gRPC.
func (s *Server) ListenAndServe(ctx context.Context, httpAddr, grpcAddr string) error {
	var lis net.Listener
	if grpcAddr != "" {
		var err error
		if lis, err = net.Listen("tcp", grpcAddr); err != nil {
			return err
		}
	}
	httpSrv := &http.Server{Addr: httpAddr, Handler: s.Handler()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if lis != nil {
		g.Go(func() error {
			logger.Info("grpc listening", "addr", lis.Addr().String())
			return s.grpc.Serve(lis)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.grpc.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type healthReport struct {
	Status     string   `json:"status"`
	World      string   `json:"world"`
	Characters []string `json:"characters"`
	Error      string   `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := healthReport{
		Status:     "ok",
		World:      s.game.World().Name(),
		Characters: s.game.NPCs(),
	}
	status := http.StatusOK
	if err := s.game.World().Check(); err != nil {
		report.Status = "unavailable"
		report.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(report)
}

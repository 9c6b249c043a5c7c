// Package room assembles the car room service: the player websocket gateway,
// the car pipeline behind it, health and metrics endpoints, and the optional
// map directory registration.
package room

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/gameon-rooms/carroom/internal/pkg/metrics"
	"github.com/gameon-rooms/carroom/internal/room/car"
	"github.com/gameon-rooms/carroom/internal/room/gateway"
	"github.com/gameon-rooms/carroom/internal/room/registry"
	"github.com/gameon-rooms/carroom/pkg/log"
	"github.com/gameon-rooms/carroom/pkg/options"
)

type RoomServer struct {
	httpOptions *options.HttpOptions
	fixtures    *gateway.Fixtures
	pipeline    *car.Pipeline
	gateway     *gateway.Gateway
	registrar   *registry.Registrar
}

// Run serves the room until ctx is cancelled. Registration, when configured,
// happens once in the background and never blocks or fails the room.
func (s *RoomServer) Run(ctx context.Context) error {
	defer s.pipeline.Close()

	if s.registrar != nil {
		go func() {
			if err := s.registrar.Register(ctx, s.fixtures); err != nil {
				log.Warn("Room registration failed, this room has NOT been registered", "error", err)
			}
		}()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.runHTTPServer(ctx)
	})

	err := g.Wait()
	log.Info("Room server stopped")
	return err
}

func (s *RoomServer) runHTTPServer(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/room", s.gateway.HandleWebSocket)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	server := s.newHTTPServer(router)

	log.Info("Room listening", "address", s.httpOptions.Addr, "room", s.fixtures.Name)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start room server: %w", err)
	}
	return nil
}

// newHTTPServer builds the server from the configured options. The player
// socket is unaffected by the timeouts: the websocket upgrade hijacks the
// connection, so they only bound the plain HTTP endpoints.
func (s *RoomServer) newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         s.httpOptions.Addr,
		Handler:      handler,
		ReadTimeout:  s.httpOptions.ReadTimeout,
		WriteTimeout: s.httpOptions.WriteTimeout,
	}
}

func (s *RoomServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz reports ready regardless of car connectivity: the room is
// playable without the car, it just cannot drive anywhere.
func (s *RoomServer) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if s.pipeline.Connected() {
		_, _ = w.Write([]byte("ok, car connected"))
		return
	}
	_, _ = w.Write([]byte("ok, car not connected"))
}

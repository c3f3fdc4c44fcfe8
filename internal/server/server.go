// Package server implements the HTTP API.
//
// It translates requests into registry and dispatcher calls and renders
// their outcomes as JSON. The broadcast and listing endpoints sit behind
// a bearer-token check.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"subcast/internal/dispatch"
	"subcast/internal/storage"
)

// Registry is the read side of the subscription registry used by handlers.
type Registry interface {
	Subscribers(ctx context.Context, channel string) ([]int64, error)
	AllSubscribers(ctx context.Context) ([]int64, error)
	Subscriptions(ctx context.Context) ([]storage.Subscription, error)
}

// Dispatcher fans a message out to a recipient set.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipients []int64, text string) dispatch.Report
}

type Config struct {
	Addr         string
	AuthToken    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	cfg        Config
	srv        *http.Server
	registry   Registry
	dispatcher Dispatcher
	log        zerolog.Logger
}

func New(cfg Config, registry Registry, dispatcher Dispatcher, log zerolog.Logger) *Server {
	s := &Server{cfg: cfg, registry: registry, dispatcher: dispatcher, log: log}

	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/send-message", s.handleSendMessage).Methods(http.MethodPost)

	priv := r.PathPrefix("/").Subrouter()
	priv.Use(s.requireAuth)
	priv.HandleFunc("/broadcast", s.handleBroadcast).Methods(http.MethodPost)
	priv.HandleFunc("/subscriptions", s.handleSubscriptions).Methods(http.MethodGet)

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	// Writes can outlast reads: a broadcast response waits for the fan-out.
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Minute
	}
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Handler exposes the routing tree (used by tests).
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server error")
		}
	}()
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

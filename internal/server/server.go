package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/martyndavies/hubapi-example-langchain/internal/agent"
	"github.com/martyndavies/hubapi-example-langchain/internal/config"
	"github.com/martyndavies/hubapi-example-langchain/internal/handler"
)

// Deps are the components the HTTP surface serves.
type Deps struct {
	Catalog   agent.Catalog
	Runner    handler.Runner
	ModelName string
	// Closers run on shutdown, in order.
	Closers []func() error
}

type Server struct {
	cfg  *config.Config
	deps Deps
	http *http.Server
}

func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}

	// WriteTimeout covers a full conversation.
	writeTimeout := cfg.AgentTimeout + 10*time.Second
	if writeTimeout < 60*time.Second {
		writeTimeout = 60 * time.Second
	}
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.setupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)
		s.close()
		return err
	case err := <-errCh:
		s.close()
		return err
	}
}

func (s *Server) close() {
	for _, c := range s.deps.Closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("error closing dependency")
		}
	}
}

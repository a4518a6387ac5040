// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/prometheus/common/expfmt"

	"github.com/logscrape/logscrape/logger"
)

// DefaultListenAddr is where the scrape endpoint binds unless overridden.
const DefaultListenAddr = ":5000"

// Server is the HTTP scrape surface: /metrics and /ping.
type Server struct {
	*logger.Logger

	addr    string
	exposer *Exposer
}

func NewServer(addr string, exposer *Exposer) *Server {
	if addr == "" {
		addr = DefaultListenAddr
	}
	return &Server{
		Logger:  logger.New().With(slog.String("component", "web")),
		addr:    addr,
		exposer: exposer,
	}
}

// Run serves until ctx is cancelled. A failure to bind is returned; errors
// inside a single request stay inside that request.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", gziphandler.GzipHandler(http.HandlerFunc(s.handleMetrics)))
	mux.HandleFunc("/ping", s.handlePing)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		case <-done:
		}
	}()

	s.Infof("listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if err := s.exposer.ExposeTo(w); err != nil {
		s.Warningf("writing exposition: %v", err)
	}
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
}

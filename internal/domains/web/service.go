package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = time.Second * 5

type IReportService interface {
	Render() string
}

// Service serves the agent's operational surface: Prometheus metrics, a
// liveness probe and a plain-text status report.
type Service struct {
	server *http.Server
}

func NewService(addr string, registry *prometheus.Registry, reportService IReportService) *Service {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(reportService.Render()))
	})

	return &Service{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: time.Second * 10,
		},
	}
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving HTTP until Stop is called.
func (s *Service) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Start: http server listening")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("Start: %w", err)
	}

	return nil
}

func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("Stop: %w", err)
	}

	return nil
}

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/pkg/datalink"
	"github.com/izot/lon-core/pkg/network"
)

// Server is the HTTP endpoint `lonctl run` exposes when metrics are
// enabled: /metrics (Prometheus exposition) and /healthz (liveness).
type Server struct {
	httpServer *http.Server
}

// NewServer builds a Server bound to the given port, scraping nwStats
// and dlStats on every /metrics request.
func NewServer(port int, nwStats *network.Statistics, dlStats *datalink.Statistics) *Server {
	reg := Register(nwStats, dlStats)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		},
	}
}

// Start runs the HTTP server in a background goroutine. Bind errors
// other than a clean shutdown are logged, not returned, matching the
// fire-and-forget lifecycle `lonctl run` drives it with.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics: server exited", logger.Err(err))
		}
	}()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

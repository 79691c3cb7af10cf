// SPDX-License-Identifier: MIT

package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthResponse is the body served at /healthz.
type healthResponse struct {
	Status string `json:"status"`
}

// NewServer builds the demonstration binary's loopback HTTP surface: chi's
// Recoverer/RequestID middleware plus /healthz and /metrics, mirroring the
// teacher's chi.NewRouter() construction style (internal/control/middleware/stack.go)
// scoped down to the two routes SPEC_FULL.md names — no CORS/CSRF/rate-limit
// stack, since this binary only ever serves loopback traffic.
func NewServer() *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthResponse{Status: "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve runs srv on addr until ctx is cancelled, then shuts it down
// gracefully. Intended to be run in its own goroutine by cmd/sboxsyncd.
func Serve(ctx context.Context, srv *http.Server, addr string) error {
	srv.Addr = addr

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

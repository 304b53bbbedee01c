// Package api serves batch runs over HTTP: start a run, poll it, and follow its task
// transitions over a websocket.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shehryarbajwa/browsermatrix/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes. Starting runs is rate limited per user;
// reads are not.
func (h *Handler) SetupRoutes(rateLimiter *ratelimit.Limiter, requestsPerHour int, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/v1").Subrouter()

	limited := api.PathPrefix("").Subrouter()
	limited.Use(RateLimitMiddleware(rateLimiter, requestsPerHour))
	limited.HandleFunc("/runs", h.CreateRun).Methods(http.MethodPost)

	api.HandleFunc("/runs", h.ListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", h.GetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/events", h.StreamEvents).Methods(http.MethodGet)
	api.HandleFunc("/providers", h.ListProviders).Methods(http.MethodGet)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.Use(corsMiddleware)

	return r
}

package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует служебные маршруты воркера.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		path    string
		handler http.Handler
	}{
		{"GET /healthz", "/healthz", http.HandlerFunc(h.Healthz)},
		{"GET /readyz", "/readyz", http.HandlerFunc(h.Readyz)},
		{"GET /metrics", "/metrics", promhttp.Handler()},
		{"GET /api/v1/action-types", "/api/v1/action-types", http.HandlerFunc(h.ListActionTypes)},
	}

	for _, rt := range routes {
		mux.Handle(rt.pattern, Chain(Recovery(h.logger), Observe(h.logger, rt.path))(rt.handler))
	}
}

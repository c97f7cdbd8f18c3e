package handlers

import (
	"net/http"

	"adminhub/internal/pkg/metrics"
)

type MetricsHandler struct {
	exporter http.Handler
}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{exporter: metrics.Handler()}
}

func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.exporter.ServeHTTP(w, r)
}

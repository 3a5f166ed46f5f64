/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Status is the JSON document served on /status.
type Status struct {
	Identity     string `json:"identity"`
	ATDigest     string `json:"at_digest,omitempty"`
	Peers        int    `json:"peers"`
	Certificates int    `json:"cached_certificates"`
}

type StatusFunc func() Status

type handler struct {
	mux    *http.ServeMux
	status StatusFunc
	logger *zap.SugaredLogger
}

func newHandler(status StatusFunc, registry *prometheus.Registry, logger *zap.SugaredLogger) *handler {
	h := &handler{
		mux:    http.NewServeMux(),
		status: status,
		logger: logger,
	}
	h.mux.HandleFunc("GET /status", h.serveStatus)
	if registry != nil {
		h.mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *handler) serveStatus(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(h.status())
	if err != nil {
		h.logger.Errorf("failed encoding status: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Warnf("failed writing response: %v", err)
	}
}

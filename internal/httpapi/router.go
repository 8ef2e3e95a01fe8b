// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Router builds the HTTP route table for the authentication API.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", h.handleWelcome).Methods(http.MethodGet)
	r.HandleFunc("/users", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/sessions", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/sessions", h.handleLogout).Methods(http.MethodDelete)
	r.HandleFunc("/profile", h.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/reset_password", h.handleResetToken).Methods(http.MethodPost)
	r.HandleFunc("/reset_password", h.handleUpdatePassword).Methods(http.MethodPut)

	r.Use(h.countRequests)

	return r
}

// countRequests records per-route request counts by status class.
func (h *Handler) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		class := strconv.Itoa(rec.status / 100 * 100)
		h.metrics.HTTPRequestsTotal.WithLabelValues(route, class).Inc()
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

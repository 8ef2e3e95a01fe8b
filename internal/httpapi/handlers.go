// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package httpapi maps HTTP verbs and paths onto auth.Service calls and
// translates results to status codes. All status-code policy lives here;
// the auth core knows nothing about HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// SessionCookie is the name of the opaque session-token cookie.
const SessionCookie = "session_id"

// Handler serves the authentication HTTP API.
type Handler struct {
	svc     *auth.Service
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewHandler creates a Handler. metrics may be nil when the observability
// server is disabled.
func NewHandler(svc *auth.Service, metrics *observability.Metrics, logger *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, metrics: metrics, logger: logger}, nil
}

// handleWelcome returns the service greeting.
func (h *Handler) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bienvenue"})
}

// handleRegister maps POST /users onto Register.
// 400 for missing fields or an already-registered email.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	_, err := h.svc.Register(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email already registered"})
			return
		}
		h.serverError(w, "register failed", err)
		return
	}

	if h.metrics != nil {
		h.metrics.RegistrationsTotal.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "user created"})
}

// handleLogin maps POST /sessions onto ValidLogin + CreateSession.
// 401 for bad credentials; sets the session cookie on success.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	valid, err := h.svc.ValidLogin(r.Context(), email, password)
	if err != nil {
		h.serverError(w, "login failed", err)
		return
	}
	if !valid {
		if h.metrics != nil {
			h.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		}
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := h.svc.CreateSession(r.Context(), email)
	if err != nil {
		h.serverError(w, "session create failed", err)
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "logged in"})
}

// handleLogout maps DELETE /sessions onto UserFromSession + DestroySession.
// 403 for an invalid or absent session; redirects to / on success.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, err := h.userFromCookie(r)
	if err != nil {
		h.serverError(w, "session lookup failed", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := h.svc.DestroySession(r.Context(), user.ID); err != nil {
		h.serverError(w, "logout failed", err)
		return
	}

	if h.metrics != nil {
		h.metrics.SessionsDestroyed.Inc()
	}
	// Expire the cookie along with the stored token.
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleProfile maps GET /profile onto UserFromSession.
// 403 for an invalid or absent session.
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userFromCookie(r)
	if err != nil {
		h.serverError(w, "session lookup failed", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": user.Email})
}

// handleResetToken maps POST /reset_password onto ResetPasswordToken.
// 403 for an unknown email - deliberately not 404, so the response class
// does not confirm address existence any differently than other failures.
func (h *Handler) handleResetToken(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	token, err := h.svc.ResetPasswordToken(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		h.serverError(w, "reset token failed", err)
		return
	}

	if h.metrics != nil {
		h.metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "reset_token": token})
}

// handleUpdatePassword maps PUT /reset_password onto UpdatePassword.
// 403 for an invalid reset token.
func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	resetToken := r.PostFormValue("reset_token")
	newPassword := r.PostFormValue("new_password")
	if email == "" || resetToken == "" || newPassword == "" {
		writeError(w, http.StatusBadRequest, "email, reset_token and new_password required")
		return
	}

	if err := h.svc.UpdatePassword(r.Context(), resetToken, newPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		h.serverError(w, "password update failed", err)
		return
	}

	if h.metrics != nil {
		h.metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "Password updated"})
}

// userFromCookie resolves the session cookie to a user. A missing cookie or
// unknown token yields (nil, nil); only store failures are errors.
func (h *Handler) userFromCookie(r *http.Request) (*auth.User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, nil
	}
	return h.svc.UserFromSession(r.Context(), cookie.Value)
}

// serverError logs the failure and answers with a generic 500. Internal
// details never reach the client.
func (h *Handler) serverError(w http.ResponseWriter, msg string, err error) {
	errutil.LogError(h.logger, msg, err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // response write error is unrecoverable here
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

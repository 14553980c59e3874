// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leemgs/semantos/internal/auth"
	"github.com/leemgs/semantos/internal/authz"
	"github.com/leemgs/semantos/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authn         *auth.Middleware
	authz         *authz.Middleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, authn *auth.Middleware, authzMW *authz.Middleware) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: chiMW,
		authn:         authn,
		authz:         authzMW,
	}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)
	r.Use(APISecurityHeaders())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.With(router.chiMiddleware.RateLimitHealth()).Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.authn.Authenticate)

		r.With(router.authz.Authorize(authz.ObjectRollout, authz.ActionRead)).Get("/status", h.Status)
		r.With(router.authz.Authorize(authz.ObjectAudit, authz.ActionRead)).Get("/audit", h.Audit)
		r.With(router.authz.Authorize(authz.ObjectCatalog, authz.ActionRead)).Get("/catalog", h.Catalog)
		r.With(router.authz.Authorize(authz.ObjectCatalog, authz.ActionRead)).Post("/validate", h.Validate)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitMutation())
			r.Use(router.authz.Authorize(authz.ObjectRollout, authz.ActionWrite))

			r.Post("/apply", h.Apply)
			r.Post("/advance", h.Advance)
			r.Post("/rollout/advance", h.Advance)
			r.Post("/rollback", h.Rollback)
		})

		r.With(
			router.chiMiddleware.RateLimitMutation(),
			router.authz.Authorize(authz.ObjectRecommendations, authz.ActionWrite),
		).Post("/recommendations/{id}/reject", h.Reject)
	})

	return r
}

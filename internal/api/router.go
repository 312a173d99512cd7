/**
 * @description
 * This file sets up the HTTP router for the account-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AccountRoutes creates and returns a new router for the account service.
func AccountRoutes(h *AccountHandlers, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for request IDs, logging, panic recovery, and timeouts.
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require the internal API key.
	r.Group(func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(internalAPIKey))

		// Account lifecycle endpoints
		r.Post("/accounts", h.CreateAccountHandler)
		r.Get("/accounts", h.ListAccountsHandler)
		r.Get("/accounts/{accountID}", h.GetAccountHandler)
		r.Get("/accounts/{accountID}/events", h.ListAccountEventsHandler)
		r.Post("/accounts/{accountID}/enabled", h.SetEnabledHandler)
		r.Post("/accounts/{accountID}/enabled/toggle", h.ToggleEnabledHandler)
		r.Put("/accounts/{accountID}/note", h.SetNoteHandler)
		r.Put("/accounts/{accountID}/balance", h.SetBalanceHandler)
		r.Post("/accounts/{accountID}/balance/adjust", h.AdjustBalanceHandler)
		r.Put("/accounts/{accountID}/phase", h.ChangePhaseHandler)
		r.Post("/accounts/{accountID}/close", h.CloseAccountHandler)
		r.Post("/accounts/{accountID}/reopen", h.ReopenAccountHandler)
		r.Post("/accounts/{accountID}/review", h.SetInReviewHandler)

		// Reference data endpoints
		r.Get("/plans", h.ListPlansHandler)
		r.Get("/plans/{planID}", h.GetPlanHandler)
		r.Get("/users", h.ListUsersHandler)
	})

	return r
}

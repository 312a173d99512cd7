/**
 * @description
 * This file contains the HTTP handlers for the account-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http, strconv: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/veilon/account-service/internal/app"
	"github.com/veilon/account-service/internal/domain"
	"github.com/veilon/account-service/internal/store"
)

// AccountHandlers holds the application service that handlers will use.
type AccountHandlers struct {
	service *app.Service
}

// NewAccountHandlers creates a new instance of AccountHandlers.
func NewAccountHandlers(service *app.Service) *AccountHandlers {
	return &AccountHandlers{service: service}
}

// actorRequest carries optional actor attribution on command bodies.
// Missing attribution defaults to the system actor in the app layer.
type actorRequest struct {
	ActorType string `json:"actor_type,omitempty"`
	ActorID   *int64 `json:"actor_id,omitempty"`
}

func (a actorRequest) actor() domain.Actor {
	return domain.Actor{Type: a.ActorType, ID: a.ActorID}
}

type createAccountRequest struct {
	UserID    int64 `json:"user_id"`
	PlanID    int64 `json:"plan_id"`
	IsEnabled *bool `json:"is_enabled,omitempty"`
	actorRequest
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
	actorRequest
}

type setNoteRequest struct {
	Note        string `json:"note"`
	AdminUserID int64  `json:"admin_user_id"`
}

type setBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
	actorRequest
}

type adjustBalanceRequest struct {
	Delta decimal.Decimal `json:"delta"`
	actorRequest
}

type changePhaseRequest struct {
	Phase int `json:"phase"`
	actorRequest
}

type closeAccountRequest struct {
	Reason *string `json:"reason,omitempty"`
	actorRequest
}

type setInReviewRequest struct {
	InReview   bool    `json:"in_review"`
	Resolution *string `json:"resolution,omitempty"`
	Reason     *string `json:"reason,omitempty"`
	actorRequest
}

func (h *AccountHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *AccountHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// handleServiceError maps domain failures onto HTTP statuses.
func (h *AccountHandlers) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrPlanNotFound):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("level=error component=api msg=\"command failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *AccountHandlers) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "accountID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}

func (h *AccountHandlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// CreateAccountHandler opens a new account seeded from a plan.
func (h *AccountHandlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	isEnabled := true
	if req.IsEnabled != nil {
		isEnabled = *req.IsEnabled
	}
	params := domain.CreateAccountParams{
		UserID:    req.UserID,
		PlanID:    req.PlanID,
		IsEnabled: isEnabled,
	}
	account, err := h.service.CreateAccount(r.Context(), params, req.actor())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

// ListAccountsHandler lists accounts, optionally filtered by user, plan,
// derived status, and creation timeframe.
func (h *AccountHandlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	var filter domain.AccountFilter

	query := r.URL.Query()
	if raw := query.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid user_id filter")
			return
		}
		filter.UserID = &id
	}
	if raw := query.Get("plan_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid plan_id filter")
			return
		}
		filter.PlanID = &id
	}
	if raw := query.Get("status"); raw != "" {
		status := domain.Status(raw)
		if status != domain.StatusClosed && status != domain.StatusInReview &&
			status != domain.StatusDisabled && status != domain.StatusFunded && !status.IsPhase() {
			h.writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = &status
	}
	filter.Timeframe = domain.ParseTimeframe(query.Get("timeframe"))

	accounts, err := h.service.ListAccounts(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if accounts == nil {
		accounts = []domain.AccountView{}
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// GetAccountHandler returns one account with its derived status.
func (h *AccountHandlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// ListAccountEventsHandler returns the immutable ledger for one account.
func (h *AccountHandlers) ListAccountEventsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	events, err := h.service.ListAccountEvents(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if events == nil {
		events = []domain.AccountEvent{}
	}
	h.writeJSON(w, http.StatusOK, events)
}

// SetEnabledHandler sets the account's is_enabled flag.
func (h *AccountHandlers) SetEnabledHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.SetEnabled(r.Context(), id, req.Enabled, req.actor())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// ToggleEnabledHandler flips the account's is_enabled flag.
func (h *AccountHandlers) ToggleEnabledHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	account, err := h.service.ToggleEnabled(r.Context(), id, req.actor())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// SetNoteHandler replaces the account's notes with admin attribution.
func (h *AccountHandlers) SetNoteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req setNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.SetNote(r.Context(), id, req.Note, req.AdminUserID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// SetBalanceHandler hard-sets the account balance.
func (h *AccountHandlers) SetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req setBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.SetBalance(r.Context(), id, req.Balance, req.actor())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// AdjustBalanceHandler applies a signed delta to the balance.
func (h *AccountHandlers) AdjustBalanceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.AdjustBalance(r.Context(), id, req.Delta, req.actor())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// ChangePhaseHandler replaces the account's evaluation phase.
func (h *AccountHandlers) ChangePhaseHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req changePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.ChangePhase(r.Context(), id, req.Phase, req.actor())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// CloseAccountHandler marks the account closed.
func (h *AccountHandlers) CloseAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req closeAccountRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	account, err := h.service.CloseAccount(r.Context(), id, req.Reason, req.actor())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// ReopenAccountHandler clears the account's closed timestamp.
func (h *AccountHandlers) ReopenAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	account, err := h.service.ReopenAccount(r.Context(), id, req.actor())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// SetInReviewHandler sets or resolves the account's review flag.
func (h *AccountHandlers) SetInReviewHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req setInReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.SetInReview(r.Context(), id, req.InReview, req.Resolution, req.Reason, req.actor())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// GetPlanHandler returns one plan by id.
func (h *AccountHandlers) GetPlanHandler(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "planID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid plan id")
		return
	}
	plan, err := h.service.GetPlan(r.Context(), id)
	if err != nil {
		// A plan requested by id is the resource itself, not a reference on a
		// command body, so absence maps to 404 rather than 422.
		if errors.Is(err, store.ErrPlanNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// ListPlansHandler returns the plan reference table.
func (h *AccountHandlers) ListPlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	h.writeJSON(w, http.StatusOK, plans)
}

// ListUsersHandler returns the user reference table.
func (h *AccountHandlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	h.writeJSON(w, http.StatusOK, users)
}

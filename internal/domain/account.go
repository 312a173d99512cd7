/**
 * @description
 * This file defines the core domain models for the account-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Balances are `decimal.Decimal` values so that arithmetic on monetary amounts
 *   never goes through binary floating point.
 * - `AccountEvent` rows are append-only; they are never updated or deleted after
 *   insertion, and `OccurredAt` is always assigned by the database.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types recorded in the account_events ledger. One event is written for
// every successful account mutation, in the same transaction as the mutation.
const (
	EventAccountCreated   = "account.created"
	EventEnabledToggled   = "account.is_enabled.toggled"
	EventNoteSet          = "account.note.set"
	EventBalanceSet       = "account.balance.set"
	EventBalanceAdjusted  = "account.balance.adjusted"
	EventPhaseChanged     = "account.phase.changed"
	EventAccountClosed    = "account.closed"
	EventAccountReopened  = "account.reopened"
	EventReviewUpdated    = "account.review.updated"
)

// Actor types recorded on ledger events.
const (
	ActorSystem = "system"
	ActorAdmin  = "admin"
)

// Review resolutions carried on account.review.updated events. A rejected
// resolution is additionally stored in the event's event_status column.
const (
	ResolutionApproved = "approved"
	ResolutionRejected = "rejected"
)

// Account represents a trading account. This struct maps directly to the
// `accounts` table in the database.
//
// The account's display status is never stored; it is derived from the field
// tuple (ClosedAt, InReview, IsEnabled, IsFunded/FundedAt, Phase) on every read
// via DeriveStatus.
type Account struct {
	ID                   int64           `json:"id"`
	UserID               int64           `json:"user_id"`
	PlanID               int64           `json:"plan_id"`
	Balance              decimal.Decimal `json:"balance"`
	Phase                *int            `json:"phase,omitempty"`
	IsEnabled            bool            `json:"is_enabled"`
	InReview             bool            `json:"in_review"`
	IsFunded             bool            `json:"is_funded"`
	FundedAt             *time.Time      `json:"funded_at,omitempty"`
	ClosedAt             *time.Time      `json:"closed_at,omitempty"`
	Notes                string          `json:"notes"`
	NotesUpdatedAt       *time.Time      `json:"notes_updated_at,omitempty"`
	NotesUpdatedByUserID *int64          `json:"notes_updated_by_user_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// Plan is a read-only reference entity supplying an account's starting balance.
// Accounts reference plans but never mutate them.
type Plan struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	AccountSize decimal.Decimal `json:"account_size"`
}

// User is a read-only reference entity; accounts belong to exactly one user.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Actor identifies who performed a mutation: a system process or an admin user.
type Actor struct {
	Type string `json:"type"`
	ID   *int64 `json:"id,omitempty"`
}

// SystemActor is the default actor for mutations not attributed to an admin.
func SystemActor() Actor {
	return Actor{Type: ActorSystem}
}

// AdminActor attributes a mutation to a specific admin user.
func AdminActor(userID int64) Actor {
	return Actor{Type: ActorAdmin, ID: &userID}
}

// AccountEvent is one immutable audit record in the account ledger.
// The payload is a schema-free document whose shape is defined per event type;
// it is treated as forward-compatible and additive-only.
type AccountEvent struct {
	ID          int64          `json:"id"`
	AccountID   int64          `json:"account_id"`
	EventType   string         `json:"event_type"`
	EventStatus *string        `json:"event_status,omitempty"`
	ActorType   string         `json:"actor_type"`
	ActorID     *int64         `json:"actor_id,omitempty"`
	Payload     map[string]any `json:"payload"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// AccountFilter narrows account listings. Nil fields match everything.
// Status filters on the derived label and is therefore applied after
// resolution, not in SQL.
type AccountFilter struct {
	UserID    *int64
	PlanID    *int64
	Status    *Status
	Timeframe Timeframe
}

// CreateAccountParams carries the inputs for the create command. Balance and
// phase are seeded from the referenced plan, not from the caller.
type CreateAccountParams struct {
	UserID    int64 `json:"user_id"`
	PlanID    int64 `json:"plan_id"`
	IsEnabled bool  `json:"is_enabled"`
}

// AccountView is an Account together with its derived status, returned by
// read-side queries.
type AccountView struct {
	Account
	Status Status `json:"status"`
}

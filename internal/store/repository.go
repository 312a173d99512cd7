/**
 * @description
 * This file defines the interface for the data access layer (repository).
 * Defining an interface allows for dependency injection and easy mocking in
 * tests, promoting a loosely coupled architecture.
 *
 * @notes
 * - Every mutating method runs the account mutation and its ledger insert in a
 *   single database transaction and returns both the updated account and the
 *   ledger record written for it. A failed ledger insert rolls the mutation
 *   back; the accounts table and the account_events table never diverge.
 * - Absence is reported through sentinel errors, never through empty results,
 *   so callers can always distinguish "no such row" from infrastructure
 *   failure.
 */

package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/veilon/account-service/internal/domain"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrPlanNotFound      = errors.New("plan not found")
	ErrInvalidTransition = errors.New("action not allowed from current account status")
)

// Repository defines the contract for account lifecycle persistence.
type Repository interface {
	// Commands. Each mutates one account, appends exactly one ledger event in
	// the same transaction, and returns the updated row plus the event.
	CreateAccount(ctx context.Context, params domain.CreateAccountParams, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error)
	SetEnabled(ctx context.Context, accountID int64, enabled bool, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error)
	ToggleEnabled(ctx context.Context, accountID int64, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error)
	SetNote(ctx context.Context, accountID int64, note string, adminUserID int64) (*domain.Account, *domain.AccountEvent, error)
	SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error)
	AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error)
	ChangePhase(ctx context.Context, accountID int64, phase int, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error)
	CloseAccount(ctx context.Context, accountID int64, reason *string, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error)
	ReopenAccount(ctx context.Context, accountID int64, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error)
	SetInReview(ctx context.Context, accountID int64, inReview bool, resolution, reason *string, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error)

	// Queries.
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error)
	ListAccountEvents(ctx context.Context, accountID int64) ([]domain.AccountEvent, error)
	GetPlan(ctx context.Context, planID int64) (*domain.Plan, error)
	ListPlans(ctx context.Context) ([]domain.Plan, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

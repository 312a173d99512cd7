/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL needed to mutate accounts and append
 * their ledger events, plus the read-side queries consumed by dashboards.
 *
 * @dependencies
 * - context, encoding/json, errors, fmt: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 *
 * @notes
 * - Every command follows the same shape: lock the target row with
 *   SELECT ... FOR UPDATE, check the transition guard against the derived
 *   status, apply one UPDATE ... RETURNING, insert the ledger event, commit.
 *   Any failure on that path rolls the whole transaction back.
 * - Balance arithmetic (`balance = COALESCE(balance, 0) + delta`) is computed
 *   server-side so concurrent adjustments rely on the database's row locking
 *   rather than read-modify-write in the application.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/veilon/account-service/internal/domain"
)

const accountColumns = `id, user_id, plan_id, balance, phase, is_enabled, in_review, is_funded,
	funded_at, closed_at, notes, notes_updated_at, notes_updated_by_user_id, created_at`

// DB is the subset of pgxpool.Pool behavior the repository depends on.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.UserID, &a.PlanID, &a.Balance, &a.Phase, &a.IsEnabled, &a.InReview,
		&a.IsFunded, &a.FundedAt, &a.ClosedAt, &a.Notes, &a.NotesUpdatedAt,
		&a.NotesUpdatedByUserID, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// insertEvent appends one row to the account_events ledger inside tx.
// occurred_at is assigned by the database for monotonic audit ordering.
func insertEvent(ctx context.Context, tx pgx.Tx, accountID int64, eventType string, eventStatus *string, actor domain.Actor, payload map[string]any) (*domain.AccountEvent, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event payload: %w", err)
	}

	event := domain.AccountEvent{
		AccountID:   accountID,
		EventType:   eventType,
		EventStatus: eventStatus,
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		Payload:     payload,
	}
	query := `
		INSERT INTO account_events (account_id, event_type, event_status, actor_type, actor_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING id, occurred_at
	`
	err = tx.QueryRow(ctx, query,
		accountID, eventType, eventStatus, actor.Type, actor.ID, string(payloadJSON),
	).Scan(&event.ID, &event.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to write account event: %w", err)
	}
	return &event, nil
}

// mutation describes one lifecycle command: the guard that gates it, the
// single mutating statement, and the ledger event recorded for it.
type mutation struct {
	action      domain.Action
	actionFor   func(current *domain.Account) domain.Action // overrides action when set
	skipGuard   func(current *domain.Account) bool
	update      string // must take the account id as $1 and RETURNING accountColumns
	args        []any  // bound after the account id
	eventType   string
	eventStatus *string
	actor       domain.Actor
	payload     func(updated *domain.Account) map[string]any
}

// mutateAccount executes one command transactionally: lock, guard, mutate,
// log, commit.
func (r *PostgresRepository) mutateAccount(ctx context.Context, accountID int64, m mutation) (*domain.Account, *domain.AccountEvent, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanAccount(tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound)
		}
		return nil, nil, fmt.Errorf("failed to load account %d: %w", accountID, err)
	}

	if m.skipGuard == nil || !m.skipGuard(current) {
		action := m.action
		if m.actionFor != nil {
			action = m.actionFor(current)
		}
		status := domain.DeriveStatus(*current)
		if !domain.StatusAllows(status, action) {
			return nil, nil, fmt.Errorf("%w: status %q does not permit %q", ErrInvalidTransition, status, action)
		}
	}

	args := append([]any{accountID}, m.args...)
	updated, err := scanAccount(tx.QueryRow(ctx, m.update, args...))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update account %d: %w", accountID, err)
	}

	event, err := insertEvent(ctx, tx, accountID, m.eventType, m.eventStatus, m.actor, m.payload(updated))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit account mutation: %w", err)
	}
	return updated, event, nil
}

// CreateAccount inserts a new account seeded from the referenced plan's
// starting balance at phase 1, and logs the account.created event atomically.
func (r *PostgresRepository) CreateAccount(ctx context.Context, params domain.CreateAccountParams, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO accounts (user_id, plan_id, is_enabled, balance, phase)
		SELECT $1, p.id, $2, p.account_size, 1
		FROM plans p
		WHERE p.id = $3
		RETURNING ` + accountColumns
	account, err := scanAccount(tx.QueryRow(ctx, query, params.UserID, params.IsEnabled, params.PlanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("plan %d: %w", params.PlanID, ErrPlanNotFound)
		}
		return nil, nil, fmt.Errorf("failed to create account: %w", err)
	}

	initialPhase := 1
	if account.Phase != nil {
		initialPhase = *account.Phase
	}
	event, err := insertEvent(ctx, tx, account.ID, domain.EventAccountCreated, nil, actor, map[string]any{
		"user_id":         params.UserID,
		"plan_id":         params.PlanID,
		"is_enabled":      params.IsEnabled,
		"initial_balance": account.Balance.String(),
		"initial_phase":   initialPhase,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit account creation: %w", err)
	}
	return account, event, nil
}

// SetEnabled sets the is_enabled flag. Setting the flag to its current value
// is an idempotent success; flipping it is gated by the transition table.
func (r *PostgresRepository) SetEnabled(ctx context.Context, accountID int64, enabled bool, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error) {
	action := domain.ActionDisable
	if enabled {
		action = domain.ActionEnable
	}
	return r.mutateAccount(ctx, accountID, mutation{
		action:    action,
		skipGuard: func(current *domain.Account) bool { return current.IsEnabled == enabled },
		update: `UPDATE accounts SET is_enabled = $2 WHERE id = $1
			RETURNING ` + accountColumns,
		args:      []any{enabled},
		eventType: domain.EventEnabledToggled,
		actor:     actor,
		payload: func(updated *domain.Account) map[string]any {
			return map[string]any{"is_enabled": updated.IsEnabled}
		},
	})
}

// ToggleEnabled flips the is_enabled flag atomically in SQL.
func (r *PostgresRepository) ToggleEnabled(ctx context.Context, accountID int64, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error) {
	return r.mutateAccount(ctx, accountID, mutation{
		actionFor: func(current *domain.Account) domain.Action {
			if current.IsEnabled {
				return domain.ActionDisable
			}
			return domain.ActionEnable
		},
		update: `UPDATE accounts SET is_enabled = NOT COALESCE(is_enabled, FALSE) WHERE id = $1
			RETURNING ` + accountColumns,
		eventType: domain.EventEnabledToggled,
		actor:     actor,
		payload: func(updated *domain.Account) map[string]any {
			return map[string]any{"is_enabled": updated.IsEnabled}
		},
	})
}

// SetNote replaces the account's notes and stamps the editing admin.
func (r *PostgresRepository) SetNote(ctx context.Context, accountID int64, note string, adminUserID int64) (*domain.Account, *domain.AccountEvent, error) {
	actor := domain.AdminActor(adminUserID)
	return r.mutateAccount(ctx, accountID, mutation{
		action: domain.ActionSetNote,
		update: `UPDATE accounts
			SET notes = $2, notes_updated_at = NOW(), notes_updated_by_user_id = $3
			WHERE id = $1
			RETURNING ` + accountColumns,
		args:      []any{note, adminUserID},
		eventType: domain.EventNoteSet,
		actor:     actor,
		payload: func(*domain.Account) map[string]any {
			return map[string]any{"note": note}
		},
	})
}

// SetBalance hard-sets the balance.
func (r *PostgresRepository) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error) {
	return r.mutateAccount(ctx, accountID, mutation{
		action: domain.ActionSetBalance,
		update: `UPDATE accounts SET balance = $2::numeric WHERE id = $1
			RETURNING ` + accountColumns,
		args:      []any{balance},
		eventType: domain.EventBalanceSet,
		actor:     actor,
		payload: func(updated *domain.Account) map[string]any {
			return map[string]any{"new_balance": updated.Balance.String()}
		},
	})
}

// AdjustBalance applies a signed delta to the balance; a NULL stored balance
// counts as zero. The addition happens server-side under the row lock.
func (r *PostgresRepository) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error) {
	return r.mutateAccount(ctx, accountID, mutation{
		action: domain.ActionAdjustBalance,
		update: `UPDATE accounts SET balance = COALESCE(balance, 0) + $2::numeric WHERE id = $1
			RETURNING ` + accountColumns,
		args:      []any{delta},
		eventType: domain.EventBalanceAdjusted,
		actor:     actor,
		payload: func(updated *domain.Account) map[string]any {
			return map[string]any{
				"delta":       delta.String(),
				"new_balance": updated.Balance.String(),
			}
		},
	})
}

// ChangePhase replaces the evaluation phase.
func (r *PostgresRepository) ChangePhase(ctx context.Context, accountID int64, phase int, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error) {
	return r.mutateAccount(ctx, accountID, mutation{
		action: domain.ActionChangePhase,
		update: `UPDATE accounts SET phase = $2 WHERE id = $1
			RETURNING ` + accountColumns,
		args:      []any{phase},
		eventType: domain.EventPhaseChanged,
		actor:     actor,
		payload: func(*domain.Account) map[string]any {
			return map[string]any{"new_phase": phase}
		},
	})
}

// CloseAccount stamps closed_at. Closing is a logical end-state, reversible
// via ReopenAccount; rows are never deleted.
func (r *PostgresRepository) CloseAccount(ctx context.Context, accountID int64, reason *string, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error) {
	return r.mutateAccount(ctx, accountID, mutation{
		action: domain.ActionClose,
		update: `UPDATE accounts SET closed_at = NOW() WHERE id = $1
			RETURNING ` + accountColumns,
		eventType: domain.EventAccountClosed,
		actor:     actor,
		payload: func(*domain.Account) map[string]any {
			return map[string]any{"close_reason": reason}
		},
	})
}

// ReopenAccount clears closed_at. Reopening an already-open account is an
// idempotent success and still logs an event.
func (r *PostgresRepository) ReopenAccount(ctx context.Context, accountID int64, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error) {
	return r.mutateAccount(ctx, accountID, mutation{
		action: domain.ActionReopen,
		update: `UPDATE accounts SET closed_at = NULL WHERE id = $1
			RETURNING ` + accountColumns,
		eventType: domain.EventAccountReopened,
		actor:     actor,
		payload: func(*domain.Account) map[string]any {
			return map[string]any{}
		},
	})
}

// SetInReview sets or clears the in_review flag. Clearing it records the
// resolution; a rejected resolution is also stored in event_status.
func (r *PostgresRepository) SetInReview(ctx context.Context, accountID int64, inReview bool, resolution, reason *string, actor domain.Actor) (*domain.Account, *domain.AccountEvent, error) {
	action := domain.ActionResolveReview
	if inReview {
		action = domain.ActionStartReview
	}
	var eventStatus *string
	if resolution != nil && *resolution == domain.ResolutionRejected {
		eventStatus = resolution
	}
	return r.mutateAccount(ctx, accountID, mutation{
		action:    action,
		skipGuard: func(current *domain.Account) bool { return current.InReview == inReview },
		update: `UPDATE accounts SET in_review = $2 WHERE id = $1
			RETURNING ` + accountColumns,
		args:        []any{inReview},
		eventType:   domain.EventReviewUpdated,
		eventStatus: eventStatus,
		actor:       actor,
		payload: func(*domain.Account) map[string]any {
			return map[string]any{
				"in_review":  inReview,
				"resolution": resolution,
				"reason":     reason,
			}
		},
	})
}

// GetAccount retrieves a single account by id.
func (r *PostgresRepository) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to load account %d: %w", accountID, err)
	}
	return account, nil
}

// ListAccounts retrieves accounts matching the user/plan/creation-time
// filters. Status filtering happens after derivation in the app layer.
func (r *PostgresRepository) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	start, end := filter.Timeframe.Window(time.Now())
	var startArg, endArg *time.Time
	if !start.IsZero() {
		startArg = &start
	}
	if !end.IsZero() {
		endArg = &end
	}

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE ($1::bigint IS NULL OR user_id = $1)
		  AND ($2::bigint IS NULL OR plan_id = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at < $4)
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, filter.UserID, filter.PlanID, startArg, endArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read account rows: %w", err)
	}
	return accounts, nil
}

// ListAccountEvents retrieves the ledger for one account, newest first.
func (r *PostgresRepository) ListAccountEvents(ctx context.Context, accountID int64) ([]domain.AccountEvent, error) {
	query := `
		SELECT id, account_id, event_type, event_status, actor_type, actor_id, payload, occurred_at
		FROM account_events
		WHERE account_id = $1
		ORDER BY occurred_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account events: %w", err)
	}
	defer rows.Close()

	var events []domain.AccountEvent
	for rows.Next() {
		var e domain.AccountEvent
		if err := rows.Scan(&e.ID, &e.AccountID, &e.EventType, &e.EventStatus,
			&e.ActorType, &e.ActorID, &e.Payload, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan account event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read account event rows: %w", err)
	}
	return events, nil
}

// GetPlan retrieves a single plan by id.
func (r *PostgresRepository) GetPlan(ctx context.Context, planID int64) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.db.QueryRow(ctx,
		`SELECT id, name, account_size FROM plans WHERE id = $1`, planID,
	).Scan(&plan.ID, &plan.Name, &plan.AccountSize)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("plan %d: %w", planID, ErrPlanNotFound)
		}
		return nil, fmt.Errorf("failed to load plan %d: %w", planID, err)
	}
	return &plan, nil
}

// ListPlans retrieves all plans ordered by name.
func (r *PostgresRepository) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, account_size FROM plans ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		var plan domain.Plan
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.AccountSize); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plan rows: %w", err)
	}
	return plans, nil
}

// ListUsers retrieves all users ordered by email.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, email FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}
	return users, nil
}

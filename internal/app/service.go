/**
 * @description
 * This file contains the core business logic for the account-service. The
 * `Service` struct orchestrates the account lifecycle commands, coordinating
 * between the database repository and the message broker.
 *
 * Key features:
 * - Implements the lifecycle commands: create, enable/disable, note, balance
 *   set/adjust, phase change, close/reopen, review start/resolution.
 * - Validates command inputs before touching storage; the core does not trust
 *   the presentation layer's validation.
 * - The repository performs each mutation and its ledger insert atomically;
 *   this layer publishes the committed ledger record to RabbitMQ afterwards as
 *   a best-effort notification.
 *
 * @dependencies
 * - context, errors, fmt, log: Standard Go libraries.
 * - github.com/shopspring/decimal: Monetary amounts.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/veilon/account-service/internal/domain"
	"github.com/veilon/account-service/internal/store"
	"github.com/veilon/account-service/pkg/rabbitmq"
)

// ErrValidation marks command inputs rejected before any mutation happened.
var ErrValidation = errors.New("validation failed")

// Service provides the core business logic for the account lifecycle.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	eventExchange string
}

// NewService creates a new account service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher, eventExchange string) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
		eventExchange: eventExchange,
	}
}

// view wraps an account with its freshly derived status.
func view(account *domain.Account) *domain.AccountView {
	return &domain.AccountView{Account: *account, Status: domain.DeriveStatus(*account)}
}

// publishEvent pushes a committed ledger record to the broker. Failures are
// logged and swallowed: the ledger row already exists and is authoritative.
func (s *Service) publishEvent(ctx context.Context, event *domain.AccountEvent) {
	if s.eventProducer == nil || event == nil {
		return
	}
	message := rabbitmq.AccountEventMessage{
		MessageID:   uuid.New(),
		AccountID:   event.AccountID,
		EventType:   event.EventType,
		EventStatus: event.EventStatus,
		ActorType:   event.ActorType,
		ActorID:     event.ActorID,
		Payload:     event.Payload,
		OccurredAt:  event.OccurredAt,
	}
	if err := s.eventProducer.Publish(ctx, s.eventExchange, event.EventType, message); err != nil {
		log.Printf("level=warn component=app msg=\"account event publish failed\" account_id=%d event_type=%s err=%v",
			event.AccountID, event.EventType, err)
	}
}

// normalizeActor fills in the system actor when the caller did not attribute
// the mutation.
func normalizeActor(actor domain.Actor) (domain.Actor, error) {
	if actor.Type == "" {
		return domain.SystemActor(), nil
	}
	if actor.Type != domain.ActorSystem && actor.Type != domain.ActorAdmin {
		return domain.Actor{}, fmt.Errorf("%w: unknown actor type %q", ErrValidation, actor.Type)
	}
	return actor, nil
}

// CreateAccount opens a new account for a user, seeded from the plan's
// starting balance at phase 1.
func (s *Service) CreateAccount(ctx context.Context, params domain.CreateAccountParams, actor domain.Actor) (*domain.AccountView, error) {
	if params.UserID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ErrValidation)
	}
	if params.PlanID <= 0 {
		return nil, fmt.Errorf("%w: plan id must be positive", ErrValidation)
	}
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}

	account, event, err := s.repo.CreateAccount(ctx, params, actor)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// SetEnabled sets the account's is_enabled flag to an explicit value.
func (s *Service) SetEnabled(ctx context.Context, accountID int64, enabled bool, actor domain.Actor) (*domain.AccountView, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	account, event, err := s.repo.SetEnabled(ctx, accountID, enabled, actor)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// ToggleEnabled flips the account's is_enabled flag.
func (s *Service) ToggleEnabled(ctx context.Context, accountID int64, actor domain.Actor) (*domain.AccountView, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	account, event, err := s.repo.ToggleEnabled(ctx, accountID, actor)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// SetNote replaces the account's notes, attributed to the editing admin.
func (s *Service) SetNote(ctx context.Context, accountID int64, note string, adminUserID int64) (*domain.AccountView, error) {
	if adminUserID <= 0 {
		return nil, fmt.Errorf("%w: note edits require an admin user id", ErrValidation)
	}
	account, event, err := s.repo.SetNote(ctx, accountID, note, adminUserID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// SetBalance hard-sets the account balance. Negative balances are rejected
// here rather than trusted to the caller.
func (s *Service) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal, actor domain.Actor) (*domain.AccountView, error) {
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: balance must not be negative", ErrValidation)
	}
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	account, event, err := s.repo.SetBalance(ctx, accountID, balance, actor)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// AdjustBalance applies a signed delta to the balance: positive for deposits,
// negative for withdrawals.
func (s *Service) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal, actor domain.Actor) (*domain.AccountView, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	account, event, err := s.repo.AdjustBalance(ctx, accountID, delta, actor)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// ChangePhase replaces the account's evaluation phase.
func (s *Service) ChangePhase(ctx context.Context, accountID int64, phase int, actor domain.Actor) (*domain.AccountView, error) {
	if phase < 1 {
		return nil, fmt.Errorf("%w: phase must be at least 1", ErrValidation)
	}
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	account, event, err := s.repo.ChangePhase(ctx, accountID, phase, actor)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// ResetPhase moves the account back to phase 1.
func (s *Service) ResetPhase(ctx context.Context, accountID int64, actor domain.Actor) (*domain.AccountView, error) {
	return s.ChangePhase(ctx, accountID, 1, actor)
}

// CloseAccount marks the account closed. The row is never deleted; the close
// is reversible via ReopenAccount.
func (s *Service) CloseAccount(ctx context.Context, accountID int64, reason *string, actor domain.Actor) (*domain.AccountView, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	account, event, err := s.repo.CloseAccount(ctx, accountID, reason, actor)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// ReopenAccount clears the account's closed timestamp. Reopening an open
// account succeeds and still logs an event.
func (s *Service) ReopenAccount(ctx context.Context, accountID int64, actor domain.Actor) (*domain.AccountView, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	account, event, err := s.repo.ReopenAccount(ctx, accountID, actor)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// SetInReview sets or clears the review flag. Clearing it carries a
// resolution, which must be either approved or rejected when provided.
func (s *Service) SetInReview(ctx context.Context, accountID int64, inReview bool, resolution, reason *string, actor domain.Actor) (*domain.AccountView, error) {
	if resolution != nil && *resolution != domain.ResolutionApproved && *resolution != domain.ResolutionRejected {
		return nil, fmt.Errorf("%w: unknown review resolution %q", ErrValidation, *resolution)
	}
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	account, event, err := s.repo.SetInReview(ctx, accountID, inReview, resolution, reason, actor)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return view(account), nil
}

// ApproveReview resolves a review in the account's favor.
func (s *Service) ApproveReview(ctx context.Context, accountID int64, reason *string, actor domain.Actor) (*domain.AccountView, error) {
	resolution := domain.ResolutionApproved
	return s.SetInReview(ctx, accountID, false, &resolution, reason, actor)
}

// RejectReview resolves a review against the account.
func (s *Service) RejectReview(ctx context.Context, accountID int64, reason *string, actor domain.Actor) (*domain.AccountView, error) {
	resolution := domain.ResolutionRejected
	return s.SetInReview(ctx, accountID, false, &resolution, reason, actor)
}

// GetAccount returns one account with its derived status.
func (s *Service) GetAccount(ctx context.Context, accountID int64) (*domain.AccountView, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return view(account), nil
}

// ListAccounts returns accounts matching the filter, each with its derived
// status. The status filter applies to the derived label, so it is evaluated
// here after resolution rather than in SQL.
func (s *Service) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.AccountView, error) {
	accounts, err := s.repo.ListAccounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := domain.DeriveStatuses(accounts)
	if filter.Status == nil {
		return views, nil
	}
	filtered := make([]domain.AccountView, 0, len(views))
	for _, v := range views {
		if v.Status == *filter.Status {
			filtered = append(filtered, v)
		}
	}
	return filtered, nil
}

// ListAccountEvents returns the immutable ledger for one account, newest first.
func (s *Service) ListAccountEvents(ctx context.Context, accountID int64) ([]domain.AccountEvent, error) {
	return s.repo.ListAccountEvents(ctx, accountID)
}

// GetPlan returns one plan from the reference table.
func (s *Service) GetPlan(ctx context.Context, planID int64) (*domain.Plan, error) {
	return s.repo.GetPlan(ctx, planID)
}

// ListPlans returns the plan reference table.
func (s *Service) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return s.repo.ListPlans(ctx)
}

// ListUsers returns the user reference table.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

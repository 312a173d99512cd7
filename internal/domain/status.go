/**
 * @description
 * This file contains the canonical account status resolver and the
 * allowed-actions-by-status table that gates lifecycle commands.
 *
 * @notes
 * - Status is a derived projection over an account's stored fields. It is
 *   recomputed on every read and never persisted, so the stored flags and the
 *   displayed state cannot drift apart.
 * - The action table is authoritative: the lifecycle service refuses commands
 *   that the account's current status does not allow.
 */

package domain

import (
	"fmt"
	"strings"
)

// Status is the canonical display label for an account.
type Status string

const (
	StatusClosed   Status = "Closed"
	StatusInReview Status = "In Review"
	StatusDisabled Status = "Disabled"
	StatusFunded   Status = "Funded"
)

// PhaseStatus builds the fallback status label for an evaluation phase.
func PhaseStatus(phase int) Status {
	return Status(fmt.Sprintf("Phase %d", phase))
}

// IsPhase reports whether s is a "Phase N" label.
func (s Status) IsPhase() bool {
	return strings.HasPrefix(string(s), "Phase ")
}

// DeriveStatus resolves an account's status from its stored fields.
// Precedence, first match wins: Closed > In Review > Disabled > Funded > Phase.
// A nil phase falls back to phase 1.
//
// An account counts as Funded when either the is_funded flag is set or a
// funded_at timestamp exists; the two fields may diverge and the OR is
// intentional.
func DeriveStatus(a Account) Status {
	if a.ClosedAt != nil {
		return StatusClosed
	}
	if a.InReview {
		return StatusInReview
	}
	if !a.IsEnabled {
		return StatusDisabled
	}
	if a.IsFunded || a.FundedAt != nil {
		return StatusFunded
	}
	phase := 1
	if a.Phase != nil {
		phase = *a.Phase
	}
	return PhaseStatus(phase)
}

// DeriveStatuses maps DeriveStatus over a slice of accounts.
func DeriveStatuses(accounts []Account) []AccountView {
	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, AccountView{Account: a, Status: DeriveStatus(a)})
	}
	return views
}

// Action names a lifecycle command for authorization purposes.
type Action string

const (
	ActionClose         Action = "close"
	ActionReopen        Action = "reopen"
	ActionDisable       Action = "disable"
	ActionEnable        Action = "enable"
	ActionChangePhase   Action = "change_phase"
	ActionSetBalance    Action = "set_balance"
	ActionAdjustBalance Action = "adjust_balance"
	ActionStartReview   Action = "start_review"
	ActionResolveReview Action = "resolve_review"
	ActionSetNote       Action = "set_note"
)

// AllowedActions returns the set of commands permitted from a given status.
//
// Reopen is permitted from every status so that reopening an already-open
// account stays an idempotent success. SetNote is an audit annotation, not a
// lifecycle transition, and is likewise always permitted.
func AllowedActions(s Status) []Action {
	switch s {
	case StatusClosed:
		return []Action{ActionReopen, ActionSetNote}
	case StatusInReview:
		return []Action{ActionResolveReview, ActionClose, ActionReopen, ActionSetNote}
	case StatusDisabled:
		return []Action{
			ActionEnable, ActionClose, ActionReopen, ActionChangePhase,
			ActionSetBalance, ActionAdjustBalance, ActionStartReview, ActionSetNote,
		}
	default: // Funded and Phase N
		return []Action{
			ActionDisable, ActionClose, ActionReopen, ActionChangePhase,
			ActionSetBalance, ActionAdjustBalance, ActionStartReview, ActionSetNote,
		}
	}
}

// StatusAllows reports whether the given command may run from status s.
func StatusAllows(s Status, a Action) bool {
	for _, allowed := range AllowedActions(s) {
		if allowed == a {
			return true
		}
	}
	return false
}

package domain

import (
	"testing"
	"time"
)

func TestDeriveStatusPrecedence(t *testing.T) {
	now := time.Now()
	phase2 := 2

	tests := []struct {
		name    string
		account Account
		want    Status
	}{
		{
			name:    "closed overrides everything",
			account: Account{ClosedAt: &now, InReview: true, IsEnabled: false, IsFunded: true, Phase: &phase2},
			want:    StatusClosed,
		},
		{
			name:    "in review overrides disabled and funded",
			account: Account{InReview: true, IsEnabled: false, IsFunded: true},
			want:    StatusInReview,
		},
		{
			name:    "disabled overrides funded",
			account: Account{IsEnabled: false, IsFunded: true},
			want:    StatusDisabled,
		},
		{
			name:    "funded via flag",
			account: Account{IsEnabled: true, IsFunded: true},
			want:    StatusFunded,
		},
		{
			name:    "funded via timestamp only",
			account: Account{IsEnabled: true, FundedAt: &now},
			want:    StatusFunded,
		},
		{
			name:    "phase fallback uses stored phase",
			account: Account{IsEnabled: true, Phase: &phase2},
			want:    PhaseStatus(2),
		},
		{
			name:    "nil phase falls back to phase 1",
			account: Account{IsEnabled: true},
			want:    PhaseStatus(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.account)
			if got != tt.want {
				t.Fatalf("expected status %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDeriveStatusesKeepsOrder(t *testing.T) {
	now := time.Now()
	accounts := []Account{
		{ID: 1, IsEnabled: true},
		{ID: 2, ClosedAt: &now},
	}

	views := DeriveStatuses(accounts)
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].ID != 1 || views[0].Status != PhaseStatus(1) {
		t.Fatalf("unexpected first view: id=%d status=%q", views[0].ID, views[0].Status)
	}
	if views[1].ID != 2 || views[1].Status != StatusClosed {
		t.Fatalf("unexpected second view: id=%d status=%q", views[1].ID, views[1].Status)
	}
}

func TestStatusIsPhase(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{PhaseStatus(1), true},
		{PhaseStatus(3), true},
		{StatusClosed, false},
		{StatusInReview, false},
		{StatusDisabled, false},
		{StatusFunded, false},
	}

	for _, tt := range tests {
		if got := tt.status.IsPhase(); got != tt.want {
			t.Errorf("IsPhase(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAllowedActionsByStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     Status
		allowed    []Action
		disallowed []Action
	}{
		{
			name:       "closed only allows reopen and notes",
			status:     StatusClosed,
			allowed:    []Action{ActionReopen, ActionSetNote},
			disallowed: []Action{ActionClose, ActionSetBalance, ActionAdjustBalance, ActionChangePhase, ActionDisable, ActionStartReview},
		},
		{
			name:       "in review allows resolution and close",
			status:     StatusInReview,
			allowed:    []Action{ActionResolveReview, ActionClose},
			disallowed: []Action{ActionSetBalance, ActionAdjustBalance, ActionStartReview, ActionDisable},
		},
		{
			name:       "disabled allows enable but not disable",
			status:     StatusDisabled,
			allowed:    []Action{ActionEnable, ActionClose, ActionChangePhase, ActionSetBalance, ActionAdjustBalance},
			disallowed: []Action{ActionDisable, ActionResolveReview},
		},
		{
			name:       "funded allows balance and phase commands",
			status:     StatusFunded,
			allowed:    []Action{ActionDisable, ActionClose, ActionChangePhase, ActionSetBalance, ActionAdjustBalance, ActionStartReview},
			disallowed: []Action{ActionEnable, ActionResolveReview},
		},
		{
			name:       "phase status behaves like funded",
			status:     PhaseStatus(1),
			allowed:    []Action{ActionDisable, ActionClose, ActionChangePhase, ActionSetBalance, ActionAdjustBalance, ActionStartReview},
			disallowed: []Action{ActionEnable, ActionResolveReview},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, action := range tt.allowed {
				if !StatusAllows(tt.status, action) {
					t.Fatalf("expected %q to allow %q", tt.status, action)
				}
			}
			for _, action := range tt.disallowed {
				if StatusAllows(tt.status, action) {
					t.Fatalf("expected %q to disallow %q", tt.status, action)
				}
			}
		})
	}
}

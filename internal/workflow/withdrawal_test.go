package workflow

import (
	"errors"
	"testing"
)

func TestWithdrawalTransitions(t *testing.T) {
	cases := []struct {
		from, to WithdrawalStatus
		ok       bool
	}{
		{WithdrawalRequested, WithdrawalPreparing, true},
		{WithdrawalRequested, WithdrawalDenied, true},
		{WithdrawalPreparing, WithdrawalDelivered, true},
		{WithdrawalDelivered, WithdrawalConfirmed, true},
		// denial is only possible before staff starts preparing
		{WithdrawalPreparing, WithdrawalDenied, false},
		{WithdrawalDelivered, WithdrawalDenied, false},
		// no skipping the physical handoff
		{WithdrawalRequested, WithdrawalDelivered, false},
		{WithdrawalRequested, WithdrawalConfirmed, false},
		{WithdrawalPreparing, WithdrawalConfirmed, false},
		// terminal states stay terminal
		{WithdrawalConfirmed, WithdrawalRequested, false},
		{WithdrawalDenied, WithdrawalPreparing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestWithdrawalTerminalStates(t *testing.T) {
	for _, s := range []WithdrawalStatus{WithdrawalConfirmed, WithdrawalDenied} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []WithdrawalStatus{WithdrawalRequested, WithdrawalPreparing, WithdrawalDelivered} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestValidateWithdrawalRequest_ExceedsBalance(t *testing.T) {
	err := ValidateWithdrawalRequest(1000, 500)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error when request exceeds bank chips, got %v", err)
	}
}

func TestValidateWithdrawalRequest_Bounds(t *testing.T) {
	if err := ValidateWithdrawalRequest(0, 500); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	if err := ValidateWithdrawalRequest(-10, 500); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
	if err := ValidateWithdrawalRequest(500, 500); err != nil {
		t.Fatalf("withdrawing the full balance should be allowed, got %v", err)
	}
}

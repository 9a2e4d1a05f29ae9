package workflow

import (
	"errors"
	"testing"
)

func TestCanInitiateSettlement_RequiresSeat(t *testing.T) {
	if err := CanInitiateSettlement(false, false); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unseated patron, got %v", err)
	}
}

func TestCanInitiateSettlement_RejectsSecondPending(t *testing.T) {
	if err := CanInitiateSettlement(true, true); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for existing pending settlement, got %v", err)
	}
	if err := CanInitiateSettlement(true, false); err != nil {
		t.Fatalf("expected seated patron without pending settlement to pass, got %v", err)
	}
}

func TestSettlementResolution_BalanceEffect(t *testing.T) {
	if !SettlementConfirmed.CreditsBalance() {
		t.Fatalf("patron confirmation must credit the declared total")
	}
	if !SettlementForced.CreditsBalance() {
		t.Fatalf("force-complete must have the same ledger effect as confirmation")
	}
	if SettlementCancelled.CreditsBalance() {
		t.Fatalf("cancellation must not change any balance")
	}
}

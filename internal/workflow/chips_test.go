package workflow

import (
	"errors"
	"testing"
)

func TestValidateDeclaredTotal_AcceptsMatchingSum(t *testing.T) {
	counts := DenominationCounts{100: 3, 25: 2}
	if got := counts.Total(); got != 350 {
		t.Fatalf("expected denomination total 350, got %d", got)
	}
	if err := ValidateDeclaredTotal(350, counts); err != nil {
		t.Fatalf("expected matching total to pass, got %v", err)
	}
}

func TestValidateDeclaredTotal_RejectsMismatch(t *testing.T) {
	err := ValidateDeclaredTotal(400, DenominationCounts{100: 3, 25: 2})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for mismatched sum, got %v", err)
	}
}

func TestValidateDeclaredTotal_RejectsBadDenominations(t *testing.T) {
	cases := []struct {
		name     string
		declared int64
		counts   DenominationCounts
	}{
		{"empty counts", 0, DenominationCounts{}},
		{"zero value chip", 10, DenominationCounts{0: 10}},
		{"negative value chip", -500, DenominationCounts{-100: 5}},
		{"negative count", -100, DenominationCounts{100: -1}},
	}
	for _, tc := range cases {
		if err := ValidateDeclaredTotal(tc.declared, tc.counts); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestApplyDebit_RejectsOverdraw(t *testing.T) {
	balance, err := ApplyDebit(500, 1000)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for overdraw, got %v", err)
	}
	if balance != 500 {
		t.Fatalf("failed debit must not change the balance, got %d", balance)
	}
}

func TestApplyCreditDebit_RejectNonPositiveAmounts(t *testing.T) {
	if _, err := ApplyCredit(100, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero credit, got %v", err)
	}
	if _, err := ApplyCredit(100, -5); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for negative credit, got %v", err)
	}
	if _, err := ApplyDebit(100, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero debit, got %v", err)
	}
}

// Replaying a sequence of credits and debits must conserve value: the
// final balance equals the initial balance plus applied credits minus
// applied debits, and never dips negative along the way.
func TestChipConservationUnderReplay(t *testing.T) {
	type event struct {
		credit bool
		amount int64
	}
	events := []event{
		{true, 500},   // chip purchase
		{false, 200},  // withdrawal delivered
		{true, 350},   // settlement confirmed
		{false, 1000}, // overdraw, must be rejected
		{false, 650},  // withdrawal delivered
		{true, 25},    // settlement confirmed
	}

	balance := int64(0)
	var credits, debits int64
	for i, ev := range events {
		var (
			next int64
			err  error
		)
		if ev.credit {
			next, err = ApplyCredit(balance, ev.amount)
		} else {
			next, err = ApplyDebit(balance, ev.amount)
		}
		if err != nil {
			if next != balance {
				t.Fatalf("event %d: rejected operation changed balance from %d to %d", i, balance, next)
			}
			continue
		}
		if next < 0 {
			t.Fatalf("event %d: balance went negative: %d", i, next)
		}
		balance = next
		if ev.credit {
			credits += ev.amount
		} else {
			debits += ev.amount
		}
	}
	if want := credits - debits; balance != want {
		t.Fatalf("conservation broken: balance %d, credits-debits %d", balance, want)
	}
	if balance != 25 {
		t.Fatalf("expected final balance 25, got %d", balance)
	}
}

package queue

import (
	"encoding/json"
	"strings"
	"testing"
)

func envelopeFor(t *testing.T, kind string, payload interface{}) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return Envelope{Kind: kind, Payload: raw}
}

func TestFormatLineSettlement(t *testing.T) {
	env := envelopeFor(t, KindSettlementFinalized, SettlementFinalizedEvent{
		UserID:        42,
		PokerName:     "ace",
		DeclaredTotal: 350,
		Resolution:    "SETTLED",
		StaffID:       7,
		FinalizedAt:   "2026-01-02T03:04:05Z",
	})
	line, err := formatLine(env)
	if err != nil {
		t.Fatalf("formatLine: %v", err)
	}
	for _, want := range []string{"user_id=42", `poker_name="ace"`, "total=350", "resolution=SETTLED", "staff_id=7"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("line is not newline-terminated: %q", line)
	}
}

func TestFormatLineEachKind(t *testing.T) {
	cases := []Envelope{
		envelopeFor(t, KindChipOrderPlaced, ChipOrderPlacedEvent{OrderID: 1, UserID: 2, TotalPrice: 1000, ChipsCredit: 500}),
		envelopeFor(t, KindWithdrawalDelivered, WithdrawalDeliveredEvent{WithdrawalID: 3, UserID: 2, Amount: 200, StaffID: 9}),
		envelopeFor(t, KindWaitlistCalled, WaitlistCalledEvent{EntryID: 5, UserID: 2, GameTemplateID: 1}),
	}
	for _, env := range cases {
		line, err := formatLine(env)
		if err != nil {
			t.Fatalf("formatLine(%s): %v", env.Kind, err)
		}
		if line == "" {
			t.Fatalf("formatLine(%s) returned empty line", env.Kind)
		}
	}
}

func TestFormatLineUnknownKind(t *testing.T) {
	env := Envelope{Kind: "bogus.kind", Payload: json.RawMessage(`{}`)}
	if _, err := formatLine(env); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestFormatLineBadPayload(t *testing.T) {
	env := Envelope{Kind: KindChipOrderPlaced, Payload: json.RawMessage(`"not an object"`)}
	if _, err := formatLine(env); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

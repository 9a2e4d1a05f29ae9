package workflow

import (
	"testing"
	"time"
)

func TestWaitlistTransitions(t *testing.T) {
	cases := []struct {
		from, to WaitlistStatus
		ok       bool
	}{
		{WaitlistWaiting, WaitlistCalled, true},
		{WaitlistCalled, WaitlistConfirmed, true},
		{WaitlistConfirmed, WaitlistSeated, true},
		// a seat can open up before the call; seating directly is fine
		{WaitlistWaiting, WaitlistSeated, true},
		{WaitlistCalled, WaitlistSeated, true},
		// every open state can be closed either way
		{WaitlistWaiting, WaitlistCancelledByUser, true},
		{WaitlistCalled, WaitlistCancelledByAdmin, true},
		{WaitlistConfirmed, WaitlistNoShow, true},
		// no going backwards
		{WaitlistCalled, WaitlistWaiting, false},
		{WaitlistConfirmed, WaitlistCalled, false},
		// terminal states stay terminal
		{WaitlistSeated, WaitlistWaiting, false},
		{WaitlistCancelledByUser, WaitlistWaiting, false},
		{WaitlistNoShow, WaitlistCalled, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestWaitlistOpenStates(t *testing.T) {
	open := []WaitlistStatus{WaitlistWaiting, WaitlistCalled, WaitlistConfirmed}
	closed := []WaitlistStatus{WaitlistSeated, WaitlistCancelledByUser, WaitlistCancelledByAdmin, WaitlistNoShow}
	for _, s := range open {
		if !s.Open() {
			t.Fatalf("%s should count as an open queue slot", s)
		}
	}
	for _, s := range closed {
		if s.Open() {
			t.Fatalf("%s should not count as an open queue slot", s)
		}
	}
}

func TestRanks_FollowRequestOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	entries := []QueueSnapshot{
		{ID: 1, Status: WaitlistWaiting, RequestedAt: base},
		{ID: 2, Status: WaitlistWaiting, RequestedAt: base.Add(5 * time.Minute)},
		{ID: 3, Status: WaitlistCalled, RequestedAt: base.Add(2 * time.Minute)},
		{ID: 4, Status: WaitlistWaiting, RequestedAt: base.Add(10 * time.Minute)},
	}
	ranks := Ranks(entries)
	if ranks[1] != 1 || ranks[2] != 2 || ranks[4] != 3 {
		t.Fatalf("unexpected ranks: %v", ranks)
	}
	if _, ok := ranks[3]; ok {
		t.Fatalf("called entry must not have a queue rank, got %v", ranks)
	}
}

func TestRanks_RecomputeWithoutMutation(t *testing.T) {
	base := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	entries := []QueueSnapshot{
		{ID: 1, Status: WaitlistWaiting, RequestedAt: base},
		{ID: 2, Status: WaitlistWaiting, RequestedAt: base.Add(time.Minute)},
		{ID: 3, Status: WaitlistWaiting, RequestedAt: base.Add(2 * time.Minute)},
	}
	if ranks := Ranks(entries); ranks[3] != 3 {
		t.Fatalf("expected entry 3 at rank 3, got %v", ranks)
	}

	// the head of the queue gets seated; remaining ranks shift on the
	// next read without any write to the remaining entries
	entries[0].Status = WaitlistSeated
	ranks := Ranks(entries)
	if ranks[2] != 1 || ranks[3] != 2 {
		t.Fatalf("expected ranks to shift after head seated, got %v", ranks)
	}

	// a new entry joins behind; existing ranks are unchanged
	entries = append(entries, QueueSnapshot{ID: 4, Status: WaitlistWaiting, RequestedAt: base.Add(3 * time.Minute)})
	ranks = Ranks(entries)
	if ranks[2] != 1 || ranks[3] != 2 || ranks[4] != 3 {
		t.Fatalf("expected stable ranks with new tail, got %v", ranks)
	}
}

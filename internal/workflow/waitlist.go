package workflow

import "time"

// WaitlistStatus is the state of a waiting list entry.
type WaitlistStatus string

const (
	WaitlistWaiting          WaitlistStatus = "WAITING"
	WaitlistCalled           WaitlistStatus = "CALLED"
	WaitlistConfirmed        WaitlistStatus = "CONFIRMED"
	WaitlistSeated           WaitlistStatus = "SEATED"
	WaitlistCancelledByUser  WaitlistStatus = "CANCELLED_BY_USER"
	WaitlistCancelledByAdmin WaitlistStatus = "CANCELLED_BY_ADMIN"
	WaitlistNoShow           WaitlistStatus = "NO_SHOW"
)

// waitlistTransitions is the complete transition table. Every open
// state can be cancelled by either side or marked NO_SHOW; SEATED is
// normally reached through a seat assignment.
var waitlistTransitions = map[WaitlistStatus][]WaitlistStatus{
	WaitlistWaiting:   {WaitlistCalled, WaitlistSeated, WaitlistCancelledByUser, WaitlistCancelledByAdmin, WaitlistNoShow},
	WaitlistCalled:    {WaitlistConfirmed, WaitlistSeated, WaitlistCancelledByUser, WaitlistCancelledByAdmin, WaitlistNoShow},
	WaitlistConfirmed: {WaitlistSeated, WaitlistCancelledByUser, WaitlistCancelledByAdmin, WaitlistNoShow},
}

// CanTransition reports whether moving from s to next is legal.
func (s WaitlistStatus) CanTransition(next WaitlistStatus) bool {
	for _, allowed := range waitlistTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Open reports whether the entry still occupies a queue slot. A patron
// may hold at most one open entry per game template.
func (s WaitlistStatus) Open() bool {
	switch s {
	case WaitlistWaiting, WaitlistCalled, WaitlistConfirmed:
		return true
	}
	return false
}

// QueueSnapshot is the minimal view of an entry needed to project queue
// positions.
type QueueSnapshot struct {
	ID          uint64
	Status      WaitlistStatus
	RequestedAt time.Time
}

// Ranks projects the queue position of every WAITING entry in a single
// game template's queue: rank = 1 + count of WAITING entries with an
// earlier requested-at. The position is recomputed on every read and
// never persisted, so it cannot drift from insertion order. Non-WAITING
// entries have no rank and are absent from the result.
func Ranks(entries []QueueSnapshot) map[uint64]int {
	ranks := make(map[uint64]int)
	for _, e := range entries {
		if e.Status != WaitlistWaiting {
			continue
		}
		rank := 1
		for _, other := range entries {
			if other.ID == e.ID || other.Status != WaitlistWaiting {
				continue
			}
			if other.RequestedAt.Before(e.RequestedAt) {
				rank++
			}
		}
		ranks[e.ID] = rank
	}
	return ranks
}

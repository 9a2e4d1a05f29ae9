package workflow

// Settlement is a two-phase reconciliation: staff initiates a count
// against an occupied seat, then either the patron confirms it, staff
// force-completes it (disputes), or staff cancels it. Confirmation and
// force-completion credit the declared total and clear the seat;
// cancellation changes no balance.

// SettlementResolution is how a pending settlement ends.
type SettlementResolution string

const (
	// SettlementConfirmed is the patron accepting the staff count.
	SettlementConfirmed SettlementResolution = "SETTLED"
	// SettlementForced is staff bypassing patron confirmation.
	SettlementForced SettlementResolution = "FORCE_SETTLED"
	// SettlementCancelled is staff abandoning the count; no balance change.
	SettlementCancelled SettlementResolution = "CANCELLED"
)

// CreditsBalance reports whether resolving this way credits the
// declared total to the patron's bank chips.
func (r SettlementResolution) CreditsBalance() bool {
	return r == SettlementConfirmed || r == SettlementForced
}

// CanInitiateSettlement gates staff starting a chip count. The patron
// must be seated and must not already have a pending settlement; the
// at-most-one-open rule is additionally enforced by the store's unique
// constraint so two concurrent initiations cannot both succeed.
func CanInitiateSettlement(seated, hasPending bool) error {
	if !seated {
		return Validationf("patron is not seated at a table")
	}
	if hasPending {
		return Conflictf("a chip settlement is already pending for this patron")
	}
	return nil
}

package workflow

// WithdrawalStatus is the state of a chip withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalRequested WithdrawalStatus = "REQUESTED"
	WithdrawalPreparing WithdrawalStatus = "APPROVED_PREPARING"
	WithdrawalDelivered WithdrawalStatus = "DELIVERED_AWAITING_CONFIRMATION"
	WithdrawalConfirmed WithdrawalStatus = "CONFIRMED"
	WithdrawalDenied    WithdrawalStatus = "DENIED"
)

// withdrawalTransitions is the complete transition table. Anything not
// listed here is an illegal transition. Denial is only possible from
// REQUESTED: once staff is preparing chips the request can no longer be
// silently dropped, and once delivered the debit has already happened.
var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalRequested: {WithdrawalPreparing, WithdrawalDenied},
	WithdrawalPreparing: {WithdrawalDelivered},
	WithdrawalDelivered: {WithdrawalConfirmed},
}

// CanTransition reports whether moving from s to next is legal.
func (s WithdrawalStatus) CanTransition(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s WithdrawalStatus) Terminal() bool {
	return len(withdrawalTransitions[s]) == 0
}

// ValidateWithdrawalRequest checks a patron's requested amount against
// their bank chips at request time. Approval re-validates against the
// then-current balance, since it may have dropped in between.
func ValidateWithdrawalRequest(amount, bankChips int64) error {
	if amount <= 0 {
		return Validationf("withdrawal amount %d is not positive", amount)
	}
	if amount > bankChips {
		return Validationf("withdrawal amount %d exceeds bank chips %d", amount, bankChips)
	}
	return nil
}

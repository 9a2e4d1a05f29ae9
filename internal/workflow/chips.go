package workflow

// DenominationCounts maps a chip face value to how many chips of that
// value were counted in a physical stack.
type DenominationCounts map[int64]int64

// Total returns the monetary value of the counted stack
// (Σ value × count).
func (d DenominationCounts) Total() int64 {
	var sum int64
	for value, count := range d {
		sum += value * count
	}
	return sum
}

// ValidateDeclaredTotal checks a staff-entered settlement summary
// against the denomination breakdown. Initiation must hard-fail on a
// mismatch so a typo in either field cannot silently credit the wrong
// amount.
func ValidateDeclaredTotal(declared int64, counts DenominationCounts) error {
	if declared < 0 {
		return Validationf("declared total %d is negative", declared)
	}
	if len(counts) == 0 {
		return Validationf("denomination counts are required")
	}
	for value, count := range counts {
		if value <= 0 {
			return Validationf("denomination value %d is not positive", value)
		}
		if count < 0 {
			return Validationf("count %d for denomination %d is negative", count, value)
		}
	}
	if sum := counts.Total(); sum != declared {
		return Validationf("denomination sum %d does not match declared total %d", sum, declared)
	}
	return nil
}

// ApplyCredit returns the balance after crediting amount. The amount
// must be positive; balances never change by zero or negative credits.
func ApplyCredit(balance, amount int64) (int64, error) {
	if amount <= 0 {
		return balance, Validationf("credit amount %d is not positive", amount)
	}
	return balance + amount, nil
}

// ApplyDebit returns the balance after debiting amount. It rejects
// non-positive amounts and debits that would drive the balance
// negative. Callers use this to pre-validate; the store re-checks the
// same guard inside the committing transaction.
func ApplyDebit(balance, amount int64) (int64, error) {
	if amount <= 0 {
		return balance, Validationf("debit amount %d is not positive", amount)
	}
	if amount > balance {
		return balance, Conflictf("debit %d exceeds balance %d", amount, balance)
	}
	return balance - amount, nil
}

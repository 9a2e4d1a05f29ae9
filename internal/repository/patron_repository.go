package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/harunaoki/cardroom-backend/internal/model"
	"github.com/harunaoki/cardroom-backend/internal/utils"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// PatronRepo provides data access to the users table. It owns every
// write to the conserved-value fields (bank_chips, chips_in_play,
// bill): those go through the guarded *Tx methods below, which validate
// inside the committing statement so concurrent writers cannot
// interleave a lost update. Display fields (poker name, check-in flag)
// use plain last-writer-wins updates.
type PatronRepo struct {
	db *sql.DB
}

// NewPatronRepo returns a PatronRepo bound to the given database.
func NewPatronRepo(db *sql.DB) *PatronRepo { return &PatronRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *PatronRepo) DB() *sql.DB { return r.db }

const patronColumns = `id, poker_name, email, password_hash, role, approved, is_checked_in,
	bank_chips, chips_in_play, bill, current_table_id, current_seat_number, created_at, updated_at`

func scanPatron(row interface{ Scan(...interface{}) error }) (*model.Patron, error) {
	var (
		p       model.Patron
		tableID sql.NullInt64
		seatNum sql.NullInt64
	)
	err := row.Scan(
		&p.ID, &p.PokerName, &p.Email, &p.PasswordHash, &p.Role, &p.Approved, &p.IsCheckedIn,
		&p.BankChips, &p.ChipsInPlay, &p.Bill, &tableID, &seatNum, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tableID.Valid {
		tid := uint64(tableID.Int64)
		p.CurrentTableID = &tid
	}
	if seatNum.Valid {
		sn := uint32(seatNum.Int64)
		p.CurrentSeatNumber = &sn
	}
	return &p, nil
}

// Create inserts a new patron and returns its ID. The password is
// bcrypt-hashed with the provided cost. Duplicate emails map to
// ErrEmailExists.
func (r *PatronRepo) Create(ctx context.Context, pokerName, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (poker_name, email, password_hash, role) VALUES (?,?,?,?)",
		pokerName, email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a patron by normalized email.
func (r *PatronRepo) GetByEmail(ctx context.Context, email string) (*model.Patron, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	const q = `SELECT ` + patronColumns + ` FROM users WHERE email = ? LIMIT 1`
	p, err := scanPatron(r.db.QueryRowContext(ctx, q, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatronNotFound
	}
	return p, err
}

// GetByID fetches a patron by id.
func (r *PatronRepo) GetByID(ctx context.Context, id uint64) (*model.Patron, error) {
	const q = `SELECT ` + patronColumns + ` FROM users WHERE id = ? LIMIT 1`
	p, err := scanPatron(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatronNotFound
	}
	return p, err
}

// GetForUpdateTx loads a patron row with a row lock inside tx. Every
// money-bearing transition starts here: re-read current state, validate
// invariants against it, then commit indivisibly.
func (r *PatronRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Patron, error) {
	const q = `SELECT ` + patronColumns + ` FROM users WHERE id = ? FOR UPDATE`
	p, err := scanPatron(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatronNotFound
	}
	return p, err
}

// CreditPurchaseTx applies a chip purchase: bank_chips += chips and
// bill += price in a single statement, so the credit is never visible
// without its bill entry.
func (r *PatronRepo) CreditPurchaseTx(ctx context.Context, tx *sql.Tx, userID uint64, chips, price int64) error {
	if chips <= 0 || price < 0 {
		return workflow.Validationf("invalid purchase amounts: chips %d, price %d", chips, price)
	}
	const q = `UPDATE users SET bank_chips = bank_chips + ?, bill = bill + ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, chips, price, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPatronNotFound
	}
	return nil
}

// AddBillTx increments the patron's bill, used when a drink-only order
// is delivered.
func (r *PatronRepo) AddBillTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) error {
	if amount < 0 {
		return workflow.Validationf("bill increment %d is negative", amount)
	}
	const q = `UPDATE users SET bill = bill + ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, amount, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPatronNotFound
	}
	return nil
}

// DebitBankChipsTx removes chips from the bank balance. The WHERE
// clause re-checks the balance at commit time; a concurrent debit that
// drained the balance makes this affect zero rows, which is surfaced
// as a conflict rather than a negative balance.
func (r *PatronRepo) DebitBankChipsTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) error {
	if amount <= 0 {
		return workflow.Validationf("debit amount %d is not positive", amount)
	}
	const q = `UPDATE users SET bank_chips = bank_chips - ? WHERE id = ? AND bank_chips >= ?`
	res, err := tx.ExecContext(ctx, q, amount, userID, amount)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workflow.Conflictf("bank chips below %d at commit time", amount)
	}
	return nil
}

// CreditBankChipsTx adds chips to the bank balance.
func (r *PatronRepo) CreditBankChipsTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) error {
	if amount <= 0 {
		return workflow.Validationf("credit amount %d is not positive", amount)
	}
	const q = `UPDATE users SET bank_chips = bank_chips + ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, amount, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPatronNotFound
	}
	return nil
}

// MoveBankToPlayTx moves chips from the bank to the table stack in one
// guarded statement (staff rebuy to an occupied seat).
func (r *PatronRepo) MoveBankToPlayTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) error {
	if amount <= 0 {
		return workflow.Validationf("amount %d is not positive", amount)
	}
	const q = `UPDATE users SET bank_chips = bank_chips - ?, chips_in_play = chips_in_play + ?
	           WHERE id = ? AND bank_chips >= ?`
	res, err := tx.ExecContext(ctx, q, amount, amount, userID, amount)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workflow.Conflictf("bank chips below %d at commit time", amount)
	}
	return nil
}

// SettleChipsTx applies a finalized settlement: the declared total is
// credited to the bank, the in-play stack is zeroed, and the seat
// reference is cleared, all in one statement.
func (r *PatronRepo) SettleChipsTx(ctx context.Context, tx *sql.Tx, userID uint64, declaredTotal int64) error {
	if declaredTotal < 0 {
		return workflow.Validationf("declared total %d is negative", declaredTotal)
	}
	const q = `UPDATE users
	           SET bank_chips = bank_chips + ?, chips_in_play = 0,
	               current_table_id = NULL, current_seat_number = NULL
	           WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, declaredTotal, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPatronNotFound
	}
	return nil
}

// SetSeatTx records the patron's seat reference. The WHERE guard
// rejects the write when the patron already sits elsewhere, keeping the
// one-seat-per-patron invariant even under concurrent assignments.
func (r *PatronRepo) SetSeatTx(ctx context.Context, tx *sql.Tx, userID, tableID uint64, seatNumber uint32) error {
	const q = `UPDATE users SET current_table_id = ?, current_seat_number = ?
	           WHERE id = ? AND (current_table_id IS NULL
	                 OR (current_table_id = ? AND current_seat_number = ?))`
	res, err := tx.ExecContext(ctx, q, tableID, seatNumber, userID, tableID, seatNumber)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// zero rows: either the patron is gone or already seated elsewhere;
		// re-assigning the same seat affects zero rows too, which is fine
		// only when the reference already matches
		var cnt int
		check := `SELECT COUNT(*) FROM users WHERE id = ? AND current_table_id = ? AND current_seat_number = ?`
		if err := tx.QueryRowContext(ctx, check, userID, tableID, seatNumber).Scan(&cnt); err != nil {
			return err
		}
		if cnt == 0 {
			return workflow.Conflictf("patron already occupies another seat")
		}
	}
	return nil
}

// ClearSeatTx removes the patron's seat reference.
func (r *PatronRepo) ClearSeatTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	const q = `UPDATE users SET current_table_id = NULL, current_seat_number = NULL WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, userID)
	return err
}

// SetApproved toggles the staff-approval flag. Plain write: not part of
// the conserved-value set.
func (r *PatronRepo) SetApproved(ctx context.Context, userID uint64, approved bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET approved = ? WHERE id = ?`, approved, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPatronNotFound
	}
	return nil
}

// SetCheckedIn toggles the venue check-in flag. Plain write.
func (r *PatronRepo) SetCheckedIn(ctx context.Context, userID uint64, checkedIn bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_checked_in = ? WHERE id = ?`, checkedIn, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPatronNotFound
	}
	return nil
}

// PromoteToStaffByEmail grants the STAFF role to the account with the
// given email. Backing store for the staff-claim escalation endpoint.
func (r *PatronRepo) PromoteToStaffByEmail(ctx context.Context, email string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var id uint64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ? LIMIT 1`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPatronNotFound
	}
	if err != nil {
		return 0, err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE users SET role = 'STAFF' WHERE id = ?`, id)
	return id, err
}

// ListCheckedIn returns patrons currently in the venue, staff overview
// ordered by poker name.
func (r *PatronRepo) ListCheckedIn(ctx context.Context) ([]model.Patron, error) {
	const q = `SELECT ` + patronColumns + ` FROM users WHERE is_checked_in = 1 ORDER BY poker_name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Patron
	for rows.Next() {
		p, err := scanPatron(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package repository

import (
	"context"
	"database/sql"

	"github.com/harunaoki/cardroom-backend/internal/model"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// WithdrawalRepo provides data access to withdrawal requests. Status
// moves always carry a from-status guard in the WHERE clause, so a
// transition raced by another device affects zero rows and surfaces as
// a conflict instead of silently overwriting.
type WithdrawalRepo struct {
	db *sql.DB
}

// NewWithdrawalRepo returns a WithdrawalRepo bound to the given database.
func NewWithdrawalRepo(db *sql.DB) *WithdrawalRepo { return &WithdrawalRepo{db: db} }

const withdrawalColumns = `id, user_id, requested_chips_amount, status, requested_at,
	admin_processed_at, customer_confirmed_at, processed_by`

func scanWithdrawal(row interface{ Scan(...interface{}) error }) (*model.WithdrawalRequest, error) {
	var (
		w           model.WithdrawalRequest
		processedAt sql.NullTime
		confirmedAt sql.NullTime
		processedBy sql.NullInt64
	)
	err := row.Scan(&w.ID, &w.UserID, &w.RequestedChipsAmount, &w.Status, &w.RequestedAt,
		&processedAt, &confirmedAt, &processedBy)
	if err != nil {
		return nil, err
	}
	if processedAt.Valid {
		t := processedAt.Time
		w.AdminProcessedAt = &t
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		w.CustomerConfirmedAt = &t
	}
	if processedBy.Valid {
		id := uint64(processedBy.Int64)
		w.ProcessedBy = &id
	}
	return &w, nil
}

// Create inserts a request in REQUESTED state and populates its ID.
// Amount validation against the current balance happens in the handler
// before this call.
func (r *WithdrawalRepo) Create(ctx context.Context, userID uint64, amount int64) (*model.WithdrawalRequest, error) {
	const q = `INSERT INTO withdrawal_requests (user_id, requested_chips_amount) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, userID, amount)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	const sel = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = ?`
	return scanWithdrawal(r.db.QueryRowContext(ctx, sel, id))
}

// GetByID fetches a request by id; sql.ErrNoRows when absent.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uint64) (*model.WithdrawalRequest, error) {
	const q = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = ?`
	return scanWithdrawal(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDForUpdateTx locks a request row inside tx.
func (r *WithdrawalRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.WithdrawalRequest, error) {
	const q = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = ? FOR UPDATE`
	return scanWithdrawal(tx.QueryRowContext(ctx, q, id))
}

// TransitionTx moves a request from one status to another inside tx,
// stamping the staff processor when provided. The from-status guard
// makes the write conflict-safe.
func (r *WithdrawalRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to workflow.WithdrawalStatus, processedBy *uint64) error {
	var (
		res sql.Result
		err error
	)
	switch to {
	case workflow.WithdrawalConfirmed:
		const q = `UPDATE withdrawal_requests SET status = ?, customer_confirmed_at = UTC_TIMESTAMP()
		           WHERE id = ? AND status = ?`
		res, err = tx.ExecContext(ctx, q, string(to), id, string(from))
	default:
		const q = `UPDATE withdrawal_requests SET status = ?, admin_processed_at = UTC_TIMESTAMP(), processed_by = ?
		           WHERE id = ? AND status = ?`
		res, err = tx.ExecContext(ctx, q, string(to), processedBy, id, string(from))
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workflow.Conflictf("withdrawal %d is no longer %s", id, from)
	}
	return nil
}

// ListByUser returns a patron's requests, newest first.
func (r *WithdrawalRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WithdrawalRequest, error) {
	const q = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
	           WHERE user_id = ? ORDER BY requested_at DESC`
	return r.list(ctx, q, userID)
}

// ListOpen returns non-terminal requests oldest first so staff can spot
// deliveries that have been awaiting confirmation for a long time.
func (r *WithdrawalRepo) ListOpen(ctx context.Context) ([]model.WithdrawalRequest, error) {
	const q = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
	           WHERE status IN ('REQUESTED','APPROVED_PREPARING','DELIVERED_AWAITING_CONFIRMATION')
	           ORDER BY requested_at ASC`
	return r.list(ctx, q)
}

func (r *WithdrawalRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.WithdrawalRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

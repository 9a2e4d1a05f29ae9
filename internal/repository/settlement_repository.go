package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/harunaoki/cardroom-backend/internal/model"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// SettlementRepo provides data access to pending chip settlements. The
// chip_settlements table carries UNIQUE(user_id), so the at-most-one-
// open-settlement invariant is enforced by the store itself: when two
// staff devices initiate a count for the same patron concurrently,
// exactly one insert succeeds and the other surfaces as a conflict.
type SettlementRepo struct {
	db *sql.DB
}

// NewSettlementRepo returns a SettlementRepo bound to the given database.
func NewSettlementRepo(db *sql.DB) *SettlementRepo { return &SettlementRepo{db: db} }

// denominations are persisted as a JSON object keyed by face value.
func encodeDenominations(counts workflow.DenominationCounts) ([]byte, error) {
	m := make(map[string]int64, len(counts))
	for value, count := range counts {
		m[strconv.FormatInt(value, 10)] = count
	}
	return json.Marshal(m)
}

func decodeDenominations(raw []byte) (map[int64]int64, error) {
	var m map[string]int64
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(m))
	for k, v := range m {
		value, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, err
		}
		out[value] = v
	}
	return out, nil
}

// CreateTx inserts a pending settlement within tx. A duplicate-key
// failure means another settlement is already pending for the patron
// and is returned as a workflow conflict.
func (r *SettlementRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.ChipSettlement) error {
	raw, err := encodeDenominations(s.Denominations)
	if err != nil {
		return err
	}
	const q = `INSERT INTO chip_settlements (user_id, table_id, seat_number, declared_total, denominations, initiated_by)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.UserID, s.TableID, s.SeatNumber, s.DeclaredTotal, raw, s.InitiatedBy)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return workflow.Conflictf("a chip settlement is already pending for this patron")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (r *SettlementRepo) scanOne(row interface{ Scan(...interface{}) error }) (*model.ChipSettlement, error) {
	var (
		s   model.ChipSettlement
		raw []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &s.TableID, &s.SeatNumber, &s.DeclaredTotal, &raw, &s.InitiatedBy, &s.InitiatedAt)
	if err != nil {
		return nil, err
	}
	if s.Denominations, err = decodeDenominations(raw); err != nil {
		return nil, err
	}
	return &s, nil
}

const settlementColumns = `id, user_id, table_id, seat_number, declared_total, denominations, initiated_by, initiated_at`

// GetByUser returns the pending settlement for a patron, or
// sql.ErrNoRows when none is pending.
func (r *SettlementRepo) GetByUser(ctx context.Context, userID uint64) (*model.ChipSettlement, error) {
	const q = `SELECT ` + settlementColumns + ` FROM chip_settlements WHERE user_id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, userID))
}

// GetByUserForUpdateTx locks the pending settlement row inside tx.
// Confirmation, force-completion and cancellation all start here so the
// second of two racing finalizers finds no row and fails cleanly.
func (r *SettlementRepo) GetByUserForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.ChipSettlement, error) {
	const q = `SELECT ` + settlementColumns + ` FROM chip_settlements WHERE user_id = ? FOR UPDATE`
	return r.scanOne(tx.QueryRowContext(ctx, q, userID))
}

// DeleteByUserTx removes the pending settlement within tx.
func (r *SettlementRepo) DeleteByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM chip_settlements WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListOpen returns all pending settlements, oldest first, so staff can
// see counts that have been sitting unconfirmed. Pending settlements
// never expire on their own.
func (r *SettlementRepo) ListOpen(ctx context.Context) ([]model.ChipSettlement, error) {
	const q = `SELECT ` + settlementColumns + ` FROM chip_settlements ORDER BY initiated_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ChipSettlement
	for rows.Next() {
		s, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// HasPending reports whether a settlement is already open for the
// patron without loading it.
func (r *SettlementRepo) HasPending(ctx context.Context, userID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM chip_settlements WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

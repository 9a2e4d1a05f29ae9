package repository

import (
	"context"
	"database/sql"

	"github.com/harunaoki/cardroom-backend/internal/model"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// WaitlistRepo provides data access to waiting list entries. Queue
// position is never stored: readers project it from requested_at order
// over the WAITING set, so it cannot drift from insertion order.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistColumns = `id, user_id, game_template_id, status, requested_at, notes_for_staff`

func scanEntry(row interface{ Scan(...interface{}) error }) (*model.WaitingListEntry, error) {
	var e model.WaitingListEntry
	err := row.Scan(&e.ID, &e.UserID, &e.GameTemplateID, &e.Status, &e.RequestedAt, &e.NotesForStaff)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// JoinTx inserts a WAITING entry within tx after verifying the patron
// holds no open entry for the same game template. The existence check
// locks matching rows so two concurrent joins cannot both pass it.
// Open entries in other templates do not block the join.
func (r *WaitlistRepo) JoinTx(ctx context.Context, tx *sql.Tx, userID, gameTemplateID uint64, notes string) (*model.WaitingListEntry, error) {
	const check = `SELECT id FROM waiting_list_entries
	               WHERE user_id = ? AND game_template_id = ?
	                 AND status IN ('WAITING','CALLED','CONFIRMED')
	               FOR UPDATE`
	var existing uint64
	err := tx.QueryRowContext(ctx, check, userID, gameTemplateID).Scan(&existing)
	if err == nil {
		return nil, workflow.Conflictf("already on the waiting list for this game")
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	const ins = `INSERT INTO waiting_list_entries (user_id, game_template_id, notes_for_staff) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, userID, gameTemplateID, notes)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	const sel = `SELECT ` + waitlistColumns + ` FROM waiting_list_entries WHERE id = ?`
	return scanEntry(tx.QueryRowContext(ctx, sel, id))
}

// GetByID fetches an entry by id; sql.ErrNoRows when absent.
func (r *WaitlistRepo) GetByID(ctx context.Context, id uint64) (*model.WaitingListEntry, error) {
	const q = `SELECT ` + waitlistColumns + ` FROM waiting_list_entries WHERE id = ?`
	return scanEntry(r.db.QueryRowContext(ctx, q, id))
}

// TransitionTx moves an entry between statuses inside tx with a
// from-status guard.
func (r *WaitlistRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to workflow.WaitlistStatus) error {
	const q = `UPDATE waiting_list_entries SET status = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, string(to), id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workflow.Conflictf("waiting list entry %d is no longer %s", id, from)
	}
	return nil
}

// MarkSeatedTx closes the patron's open entry for a game template when
// a seat assignment seats them. No-op when no open entry exists.
func (r *WaitlistRepo) MarkSeatedTx(ctx context.Context, tx *sql.Tx, userID, gameTemplateID uint64) error {
	const q = `UPDATE waiting_list_entries SET status = 'SEATED'
	           WHERE user_id = ? AND game_template_id = ?
	             AND status IN ('WAITING','CALLED','CONFIRMED')`
	_, err := tx.ExecContext(ctx, q, userID, gameTemplateID)
	return err
}

// ListOpenByTemplate returns a template's open entries in request
// order; handlers project queue ranks from this set at read time.
func (r *WaitlistRepo) ListOpenByTemplate(ctx context.Context, gameTemplateID uint64) ([]model.WaitingListEntry, error) {
	const q = `SELECT ` + waitlistColumns + ` FROM waiting_list_entries
	           WHERE game_template_id = ? AND status IN ('WAITING','CALLED','CONFIRMED')
	           ORDER BY requested_at ASC, id ASC`
	return r.list(ctx, q, gameTemplateID)
}

// ListOpenByUser returns a patron's open entries across all templates.
func (r *WaitlistRepo) ListOpenByUser(ctx context.Context, userID uint64) ([]model.WaitingListEntry, error) {
	const q = `SELECT ` + waitlistColumns + ` FROM waiting_list_entries
	           WHERE user_id = ? AND status IN ('WAITING','CALLED','CONFIRMED')
	           ORDER BY requested_at ASC, id ASC`
	return r.list(ctx, q, userID)
}

func (r *WaitlistRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.WaitingListEntry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WaitingListEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

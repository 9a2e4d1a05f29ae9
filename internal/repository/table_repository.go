package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harunaoki/cardroom-backend/internal/model"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// TableRepo provides data access to poker tables and their seats. Seat
// occupancy is the gate for settlements, so assignment and release are
// transactional and keep the seat row and the patron's seat reference
// in lockstep.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *TableRepo) DB() *sql.DB { return r.db }

// Create inserts a table and bulk-creates its seats numbered
// 1..maxSeats in a single transaction.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `INSERT INTO poker_tables (name, max_seats, status, game_type, blinds_or_rate)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.Name, t.MaxSeats, t.Status, t.GameType, t.BlindsOrRate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	if t.MaxSeats > 0 {
		query := `INSERT INTO seats (table_id, seat_number) VALUES `
		args := make([]interface{}, 0, t.MaxSeats*2)
		for n := uint32(1); n <= t.MaxSeats; n++ {
			if n > 1 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, t.ID, n)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID retrieves a table by its id.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	const q = `SELECT id, name, max_seats, status, game_type, blinds_or_rate, created_at, updated_at
	           FROM poker_tables WHERE id = ?`
	var t model.Table
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.Name, &t.MaxSeats, &t.Status, &t.GameType, &t.BlindsOrRate, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all tables ordered by name.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
	const q = `SELECT id, name, max_seats, status, game_type, blinds_or_rate, created_at, updated_at
	           FROM poker_tables ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Table
	for rows.Next() {
		var t model.Table
		if err := rows.Scan(&t.ID, &t.Name, &t.MaxSeats, &t.Status, &t.GameType, &t.BlindsOrRate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes a table's display fields and status. Plain write.
func (r *TableRepo) Update(ctx context.Context, t *model.Table) error {
	const q = `UPDATE poker_tables SET name = ?, status = ?, game_type = ?, blinds_or_rate = ?,
	           updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.Status, t.GameType, t.BlindsOrRate, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTableNotFound
	}
	return nil
}

// SeatsByTable retrieves all seats of a table ordered by seat number.
func (r *TableRepo) SeatsByTable(ctx context.Context, tableID uint64) ([]model.Seat, error) {
	const q = `SELECT id, table_id, seat_number, occupant_id, occupant_poker_name, occupied_at
	           FROM seats WHERE table_id = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
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

func scanSeat(row interface{ Scan(...interface{}) error }) (*model.Seat, error) {
	var (
		s         model.Seat
		occupant  sql.NullInt64
		pokerName sql.NullString
		occupied  sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.TableID, &s.SeatNumber, &occupant, &pokerName, &occupied); err != nil {
		return nil, err
	}
	if occupant.Valid {
		oid := uint64(occupant.Int64)
		s.OccupantID = &oid
	}
	if pokerName.Valid {
		pn := pokerName.String
		s.OccupantPokerName = &pn
	}
	if occupied.Valid {
		t := occupied.Time
		s.OccupiedAt = &t
	}
	return &s, nil
}

// GetSeatForUpdateTx locks one seat row inside tx.
func (r *TableRepo) GetSeatForUpdateTx(ctx context.Context, tx *sql.Tx, tableID uint64, seatNumber uint32) (*model.Seat, error) {
	const q = `SELECT id, table_id, seat_number, occupant_id, occupant_poker_name, occupied_at
	           FROM seats WHERE table_id = ? AND seat_number = ? FOR UPDATE`
	s, err := scanSeat(tx.QueryRowContext(ctx, q, tableID, seatNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	return s, err
}

// AssignSeatTx seats a patron. Within the caller's transaction it locks
// the seat and patron rows, rejects when the seat is held by someone
// else or the patron sits elsewhere, then writes both sides of the
// occupancy. Re-assigning a patron to their current seat is a no-op.
func (r *TableRepo) AssignSeatTx(ctx context.Context, tx *sql.Tx, tableID uint64, seatNumber uint32, patron *model.Patron) error {
	seat, err := r.GetSeatForUpdateTx(ctx, tx, tableID, seatNumber)
	if err != nil {
		return err
	}
	if seat.OccupantID != nil {
		if *seat.OccupantID == patron.ID {
			return nil
		}
		return workflow.Conflictf("seat %d at table %d is occupied", seatNumber, tableID)
	}
	if patron.CurrentTableID != nil {
		return workflow.Conflictf("patron %q already occupies a seat", patron.PokerName)
	}
	const upd = `UPDATE seats SET occupant_id = ?, occupant_poker_name = ?, occupied_at = UTC_TIMESTAMP()
	             WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, patron.ID, patron.PokerName, seat.ID); err != nil {
		return err
	}
	const user = `UPDATE users SET current_table_id = ?, current_seat_number = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, user, tableID, seatNumber, patron.ID); err != nil {
		return err
	}
	return nil
}

// ReleaseSeatTx empties a seat and clears the occupant's seat
// reference. Releasing an already-empty seat is a no-op and returns
// zero.
func (r *TableRepo) ReleaseSeatTx(ctx context.Context, tx *sql.Tx, tableID uint64, seatNumber uint32) (uint64, error) {
	seat, err := r.GetSeatForUpdateTx(ctx, tx, tableID, seatNumber)
	if err != nil {
		return 0, err
	}
	if seat.OccupantID == nil {
		return 0, nil
	}
	occupant := *seat.OccupantID
	const upd = `UPDATE seats SET occupant_id = NULL, occupant_poker_name = NULL, occupied_at = NULL
	             WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, seat.ID); err != nil {
		return 0, err
	}
	const user = `UPDATE users SET current_table_id = NULL, current_seat_number = NULL WHERE id = ?`
	if _, err := tx.ExecContext(ctx, user, occupant); err != nil {
		return 0, err
	}
	return occupant, nil
}

// ClearSeatByOccupantTx empties whatever seat the given patron holds,
// used when a settlement finalizes. No-op when the patron is unseated.
func (r *TableRepo) ClearSeatByOccupantTx(ctx context.Context, tx *sql.Tx, occupantID uint64) error {
	const q = `UPDATE seats SET occupant_id = NULL, occupant_poker_name = NULL, occupied_at = NULL
	           WHERE occupant_id = ?`
	_, err := tx.ExecContext(ctx, q, occupantID)
	return err
}

package repository

import (
	"context"
	"database/sql"

	"github.com/harunaoki/cardroom-backend/internal/model"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// OrderRepo provides data access to orders and their line items.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, user_id, total_price, status, failure_reason, ordered_at,
	admin_delivered_at, customer_confirmed_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*model.Order, error) {
	var (
		o           model.Order
		reason      sql.NullString
		deliveredAt sql.NullTime
		confirmedAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.Status, &reason, &o.OrderedAt,
		&deliveredAt, &confirmedAt)
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		s := reason.String
		o.FailureReason = &s
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		o.AdminDeliveredAt = &t
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		o.CustomerConfirmedAt = &t
	}
	return &o, nil
}

// CreateTx inserts an order row in PENDING state and bulk-inserts its
// line items within tx. The generated order ID is populated on o.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order, lines []workflow.CartLine) error {
	const q = `INSERT INTO orders (user_id, total_price, status) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, o.UserID, o.TotalPrice, string(workflow.OrderPending))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.Status = string(workflow.OrderPending)

	if len(lines) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, item_id, item_type, quantity, unit_price, chips_per_unit, total_item_price) VALUES `
	args := make([]interface{}, 0, len(lines)*7)
	for i, l := range lines {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, o.ID, l.ItemID, l.ItemType, l.Quantity, l.UnitPrice, l.ChipsPerUnit, l.LinePrice())
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID fetches an order with its line items; sql.ErrNoRows when
// absent.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.itemsByOrder(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByIDForUpdateTx locks an order row inside tx. Items are not
// loaded; use ItemsByOrderTx when the transition depends on them.
func (r *OrderRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ? FOR UPDATE`
	return scanOrder(tx.QueryRowContext(ctx, q, id))
}

func (r *OrderRepo) itemsByOrder(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	const q = `SELECT id, order_id, item_id, item_type, quantity, unit_price, chips_per_unit, total_item_price
	           FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// ItemsByOrderTx loads line items within tx.
func (r *OrderRepo) ItemsByOrderTx(ctx context.Context, tx *sql.Tx, orderID uint64) ([]model.OrderItem, error) {
	const q = `SELECT id, order_id, item_id, item_type, quantity, unit_price, chips_per_unit, total_item_price
	           FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := tx.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]model.OrderItem, error) {
	var out []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.ItemType, &it.Quantity,
			&it.UnitPrice, &it.ChipsPerUnit, &it.TotalItemPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// TransitionTx moves an order between statuses inside tx with a
// from-status guard, stamping the delivery or confirmation time when
// the target state calls for it.
func (r *OrderRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to workflow.OrderStatus) error {
	var (
		res sql.Result
		err error
	)
	switch to {
	case workflow.OrderDelivered:
		const q = `UPDATE orders SET status = ?, admin_delivered_at = UTC_TIMESTAMP()
		           WHERE id = ? AND status = ?`
		res, err = tx.ExecContext(ctx, q, string(to), id, string(from))
	case workflow.OrderCompleted:
		const q = `UPDATE orders SET status = ?, customer_confirmed_at = UTC_TIMESTAMP()
		           WHERE id = ? AND status = ?`
		res, err = tx.ExecContext(ctx, q, string(to), id, string(from))
	default:
		const q = `UPDATE orders SET status = ? WHERE id = ? AND status = ?`
		res, err = tx.ExecContext(ctx, q, string(to), id, string(from))
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workflow.Conflictf("order %d is no longer %s", id, from)
	}
	return nil
}

// MarkFailed records a failed chip-purchase sub-transaction with its
// cause. Best-effort outside any transaction: the order must not stay
// PENDING when the money step was rolled back.
func (r *OrderRepo) MarkFailed(ctx context.Context, id uint64, reason string) error {
	if len(reason) > 255 {
		reason = reason[:255]
	}
	const q = `UPDATE orders SET status = ?, failure_reason = ? WHERE id = ? AND status = ?`
	_, err := r.db.ExecContext(ctx, q, string(workflow.OrderFailed), reason, id, string(workflow.OrderPending))
	return err
}

// ListByUser returns a patron's orders with items, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY ordered_at DESC`
	return r.list(ctx, q, userID)
}

// ListActive returns orders staff still needs to act on, oldest first.
func (r *OrderRepo) ListActive(ctx context.Context) ([]model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders
	           WHERE status IN ('PENDING','PREPARING','DELIVERED_AWAITING_CONFIRMATION')
	           ORDER BY ordered_at ASC`
	return r.list(ctx, q)
}

func (r *OrderRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.itemsByOrder(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harunaoki/cardroom-backend/internal/logger"
	"github.com/harunaoki/cardroom-backend/internal/model"
	"github.com/harunaoki/cardroom-backend/internal/queue"
	"github.com/harunaoki/cardroom-backend/internal/repository"
	queue_publisher "github.com/harunaoki/cardroom-backend/internal/service"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// OrderHandler implements in-venue orders. Chip-bearing orders credit
// bank chips and the bill atomically at placement; drink-only orders
// are billed when staff delivers them. A failed chip credit marks the
// order FAILED with its cause rather than leaving it PENDING.
type OrderHandler struct {
	DB      *sql.DB
	Patrons *repository.PatronRepo
	Orders  *repository.OrderRepo
}

func NewOrderHandler(db *sql.DB, p *repository.PatronRepo, o *repository.OrderRepo) *OrderHandler {
	return &OrderHandler{DB: db, Patrons: p, Orders: o}
}

type orderLineReq struct {
	ItemID       string `json:"item_id"`
	ItemType     string `json:"item_type"`
	Quantity     int64  `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	ChipsPerUnit int64  `json:"chips_per_unit"`
}

type placeOrderReq struct {
	Items []orderLineReq `json:"items"`
}

type orderItemJSON struct {
	ItemID       string `json:"item_id"`
	ItemType     string `json:"item_type"`
	Quantity     uint32 `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	ChipsPerUnit int64  `json:"chips_per_unit,omitempty"`
	TotalPrice   int64  `json:"total_price"`
}

type orderJSON struct {
	ID                  uint64          `json:"id"`
	UserID              uint64          `json:"user_id"`
	TotalPrice          int64           `json:"total_price"`
	Status              string          `json:"status"`
	FailureReason       *string         `json:"failure_reason,omitempty"`
	OrderedAt           time.Time       `json:"ordered_at"`
	AdminDeliveredAt    *time.Time      `json:"admin_delivered_at,omitempty"`
	CustomerConfirmedAt *time.Time      `json:"customer_confirmed_at,omitempty"`
	Items               []orderItemJSON `json:"items"`
}

func orderView(o *model.Order) orderJSON {
	items := make([]orderItemJSON, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemJSON{
			ItemID:       it.ItemID,
			ItemType:     it.ItemType,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			ChipsPerUnit: it.ChipsPerUnit,
			TotalPrice:   it.TotalItemPrice,
		})
	}
	return orderJSON{
		ID:                  o.ID,
		UserID:              o.UserID,
		TotalPrice:          o.TotalPrice,
		Status:              o.Status,
		FailureReason:       o.FailureReason,
		OrderedAt:           o.OrderedAt,
		AdminDeliveredAt:    o.AdminDeliveredAt,
		CustomerConfirmedAt: o.CustomerConfirmedAt,
		Items:               items,
	}
}

// Place creates an order for the caller. The order row commits first;
// for carts with chip lines a second transaction applies the chip
// credit together with the full bill increment. If that money step
// fails the order is marked FAILED with the cause, so no order is ever
// left claiming a credit that did not happen.
func (h *OrderHandler) Place(c echo.Context) error {
	var req placeOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	lines := make([]workflow.CartLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, workflow.CartLine{
			ItemID:       it.ItemID,
			ItemType:     it.ItemType,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			ChipsPerUnit: it.ChipsPerUnit,
		})
	}
	totals, err := workflow.ValidateCart(lines)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID := currentUserID(c)
	patron, err := h.Patrons.GetByID(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	if !patron.Approved {
		return writeError(c, workflow.ErrForbidden)
	}

	o := &model.Order{UserID: userID, TotalPrice: totals.TotalPrice}
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Orders.CreateTx(ctx, tx, o, lines); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true

	if totals.HasChipLines() {
		if err := h.creditChipPurchase(ctx, o, totals); err != nil {
			reason := err.Error()
			if mfErr := h.Orders.MarkFailed(context.Background(), o.ID, reason); mfErr != nil {
				logger.Errorf("order %d: mark failed after credit error: %v", o.ID, mfErr)
			}
			return writeError(c, err)
		}
		ev := queue.ChipOrderPlacedEvent{
			OrderID:     o.ID,
			UserID:      userID,
			TotalPrice:  totals.TotalPrice,
			ChipsCredit: totals.ChipCredit,
			PlacedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer pcancel()
			if err := queue_publisher.PublishActivity(pctx, queue.KindChipOrderPlaced, ev); err != nil {
				logger.Warnf("order: publish chip order event failed: %v", err)
			}
		}()
	}

	created, err := h.Orders.GetByID(ctx, o.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, orderView(created))
}

// creditChipPurchase runs the money sub-transaction of a chip-bearing
// order: chip credit and bill increment in one statement.
func (h *OrderHandler) creditChipPurchase(ctx context.Context, o *model.Order, totals workflow.CartTotals) error {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return workflow.ErrTransient
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Patrons.CreditPurchaseTx(ctx, tx, o.UserID, totals.ChipCredit, totals.TotalPrice); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return workflow.ErrTransient
	}
	committed = true
	return nil
}

// Preparing moves a PENDING order to PREPARING (staff only).
func (h *OrderHandler) Preparing(c echo.Context) error {
	return h.transition(c, workflow.OrderPreparing, false)
}

// Deliver marks the physical handoff (staff only). Drink-only orders
// are billed here; chip-bearing orders were billed fully at placement.
func (h *OrderHandler) Deliver(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	o, err := h.Orders.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeError(c, err)
	}
	from := workflow.OrderStatus(o.Status)
	if !from.CanTransition(workflow.OrderDelivered) {
		return writeError(c, workflow.Conflictf("order %d is %s", id, o.Status))
	}

	items, err := h.Orders.ItemsByOrderTx(ctx, tx, id)
	if err != nil {
		return writeError(c, err)
	}
	hasChips := false
	for _, it := range items {
		if it.ItemType == workflow.ItemTypeChip {
			hasChips = true
			break
		}
	}
	if !hasChips && o.TotalPrice > 0 {
		if err := h.Patrons.AddBillTx(ctx, tx, o.UserID, o.TotalPrice); err != nil {
			return writeError(c, err)
		}
	}
	if err := h.Orders.TransitionTx(ctx, tx, id, from, workflow.OrderDelivered); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true
	return h.respondWith(c, id)
}

// Confirm is the patron acknowledging delivery of their own order.
func (h *OrderHandler) Confirm(c echo.Context) error {
	return h.transition(c, workflow.OrderCompleted, true)
}

// Cancel aborts an order before completion (staff only). Chips already
// credited at placement stay credited; a correction is a staff
// settlement concern, not an automatic reversal.
func (h *OrderHandler) Cancel(c echo.Context) error {
	return h.transition(c, workflow.OrderCancelled, false)
}

// transition applies a plain status move. When ownerOnly is set the
// caller must be the ordering patron.
func (h *OrderHandler) transition(c echo.Context, to workflow.OrderStatus, ownerOnly bool) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	o, err := h.Orders.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeError(c, err)
	}
	if ownerOnly && o.UserID != currentUserID(c) {
		return writeError(c, workflow.ErrForbidden)
	}
	from := workflow.OrderStatus(o.Status)
	if !from.CanTransition(to) {
		return writeError(c, workflow.Conflictf("order %d is %s", id, o.Status))
	}
	if err := h.Orders.TransitionTx(ctx, tx, id, from, to); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true
	return h.respondWith(c, id)
}

func (h *OrderHandler) respondWith(c echo.Context, id uint64) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orderView(o))
}

// Mine returns the caller's orders, newest first.
func (h *OrderHandler) Mine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Orders.ListByUser(ctx, currentUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": viewOrders(list)})
}

// ListActive returns every order staff still has to act on, oldest
// first (staff only).
func (h *OrderHandler) ListActive(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Orders.ListActive(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": viewOrders(list)})
}

func viewOrders(list []model.Order) []orderJSON {
	out := make([]orderJSON, 0, len(list))
	for i := range list {
		out = append(out, orderView(&list[i]))
	}
	return out
}

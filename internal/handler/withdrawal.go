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

// WithdrawalHandler implements the cash-out workflow. The bank debit
// happens at the physical handoff (Dispense), not at approval, so the
// stored balance always reflects chips already out of the cage.
type WithdrawalHandler struct {
	DB          *sql.DB
	Patrons     *repository.PatronRepo
	Withdrawals *repository.WithdrawalRepo
}

func NewWithdrawalHandler(db *sql.DB, p *repository.PatronRepo, w *repository.WithdrawalRepo) *WithdrawalHandler {
	return &WithdrawalHandler{DB: db, Patrons: p, Withdrawals: w}
}

type withdrawalReq struct {
	Amount int64 `json:"amount"`
}

type withdrawalJSON struct {
	ID                  uint64     `json:"id"`
	UserID              uint64     `json:"user_id"`
	Amount              int64      `json:"amount"`
	Status              string     `json:"status"`
	RequestedAt         time.Time  `json:"requested_at"`
	AdminProcessedAt    *time.Time `json:"admin_processed_at,omitempty"`
	CustomerConfirmedAt *time.Time `json:"customer_confirmed_at,omitempty"`
	ProcessedBy         *uint64    `json:"processed_by,omitempty"`
}

func withdrawalView(w *model.WithdrawalRequest) withdrawalJSON {
	return withdrawalJSON{
		ID:                  w.ID,
		UserID:              w.UserID,
		Amount:              w.RequestedChipsAmount,
		Status:              w.Status,
		RequestedAt:         w.RequestedAt,
		AdminProcessedAt:    w.AdminProcessedAt,
		CustomerConfirmedAt: w.CustomerConfirmedAt,
		ProcessedBy:         w.ProcessedBy,
	}
}

// Request files a withdrawal for the caller. The amount is validated
// against the current bank balance; the actual debit is re-guarded at
// dispense time because the balance may move in between.
func (h *WithdrawalHandler) Request(c echo.Context) error {
	var req withdrawalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	patron, err := h.Patrons.GetByID(ctx, currentUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	if !patron.Approved {
		return writeError(c, workflow.ErrForbidden)
	}
	if err := workflow.ValidateWithdrawalRequest(req.Amount, patron.BankChips); err != nil {
		return writeError(c, err)
	}

	w, err := h.Withdrawals.Create(ctx, patron.ID, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, withdrawalView(w))
}

// Approve moves a request to APPROVED_PREPARING (staff only). The
// balance is re-checked here so staff never starts preparing chips the
// patron no longer has.
func (h *WithdrawalHandler) Approve(c echo.Context) error {
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

	w, err := h.Withdrawals.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeError(c, err)
	}
	from := workflow.WithdrawalStatus(w.Status)
	if !from.CanTransition(workflow.WithdrawalPreparing) {
		return writeError(c, workflow.Conflictf("withdrawal %d is %s", id, w.Status))
	}
	patron, err := h.Patrons.GetForUpdateTx(ctx, tx, w.UserID)
	if err != nil {
		return writeError(c, err)
	}
	if _, err := workflow.ApplyDebit(patron.BankChips, w.RequestedChipsAmount); err != nil {
		return writeError(c, err)
	}

	staffID := currentUserID(c)
	if err := h.Withdrawals.TransitionTx(ctx, tx, id, from, workflow.WithdrawalPreparing, &staffID); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true
	return h.respondWith(c, id)
}

// Dispense records the physical chip handoff (staff only): the bank
// debit and the move to DELIVERED_AWAITING_CONFIRMATION commit
// together. A balance that dropped below the amount since approval
// surfaces as a conflict, never a negative balance.
func (h *WithdrawalHandler) Dispense(c echo.Context) error {
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

	w, err := h.Withdrawals.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeError(c, err)
	}
	from := workflow.WithdrawalStatus(w.Status)
	if !from.CanTransition(workflow.WithdrawalDelivered) {
		return writeError(c, workflow.Conflictf("withdrawal %d is %s", id, w.Status))
	}
	if err := h.Patrons.DebitBankChipsTx(ctx, tx, w.UserID, w.RequestedChipsAmount); err != nil {
		return writeError(c, err)
	}
	staffID := currentUserID(c)
	if err := h.Withdrawals.TransitionTx(ctx, tx, id, from, workflow.WithdrawalDelivered, &staffID); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true

	ev := queue.WithdrawalDeliveredEvent{
		WithdrawalID: id,
		UserID:       w.UserID,
		Amount:       w.RequestedChipsAmount,
		StaffID:      staffID,
		DeliveredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pcancel()
		if err := queue_publisher.PublishActivity(pctx, queue.KindWithdrawalDelivered, ev); err != nil {
			logger.Warnf("withdrawal: publish delivered event failed: %v", err)
		}
	}()
	return h.respondWith(c, id)
}

// Confirm is the patron acknowledging receipt of their chips, closing
// the request. Only the requesting patron may confirm.
func (h *WithdrawalHandler) Confirm(c echo.Context) error {
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

	w, err := h.Withdrawals.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeError(c, err)
	}
	if w.UserID != currentUserID(c) {
		return writeError(c, workflow.ErrForbidden)
	}
	from := workflow.WithdrawalStatus(w.Status)
	if !from.CanTransition(workflow.WithdrawalConfirmed) {
		return writeError(c, workflow.Conflictf("withdrawal %d is %s", id, w.Status))
	}
	if err := h.Withdrawals.TransitionTx(ctx, tx, id, from, workflow.WithdrawalConfirmed, nil); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true
	return h.respondWith(c, id)
}

// Deny rejects a request still in REQUESTED state (staff only). No
// balance was touched yet, so nothing to restore.
func (h *WithdrawalHandler) Deny(c echo.Context) error {
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

	w, err := h.Withdrawals.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeError(c, err)
	}
	from := workflow.WithdrawalStatus(w.Status)
	if !from.CanTransition(workflow.WithdrawalDenied) {
		return writeError(c, workflow.Conflictf("withdrawal %d is %s", id, w.Status))
	}
	staffID := currentUserID(c)
	if err := h.Withdrawals.TransitionTx(ctx, tx, id, from, workflow.WithdrawalDenied, &staffID); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true
	return h.respondWith(c, id)
}

func (h *WithdrawalHandler) respondWith(c echo.Context, id uint64) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	w, err := h.Withdrawals.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, withdrawalView(w))
}

// Mine returns the caller's withdrawal history, newest first.
func (h *WithdrawalHandler) Mine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Withdrawals.ListByUser(ctx, currentUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawals": viewWithdrawals(list)})
}

// ListOpen returns all non-terminal requests oldest first (staff only),
// so handoffs stuck awaiting confirmation stay visible.
func (h *WithdrawalHandler) ListOpen(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Withdrawals.ListOpen(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawals": viewWithdrawals(list)})
}

func viewWithdrawals(list []model.WithdrawalRequest) []withdrawalJSON {
	out := make([]withdrawalJSON, 0, len(list))
	for i := range list {
		out = append(out, withdrawalView(&list[i]))
	}
	return out
}

package handler

import (
	"context"
	"database/sql"
	"errors"
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

// SettlementHandler implements the two-phase chip settlement: staff
// counts a seated patron's stack, then the patron confirms, staff
// force-completes, or staff cancels. The money movement and the seat
// release commit in one transaction.
type SettlementHandler struct {
	DB          *sql.DB
	Patrons     *repository.PatronRepo
	Tables      *repository.TableRepo
	Settlements *repository.SettlementRepo
}

func NewSettlementHandler(db *sql.DB, p *repository.PatronRepo, t *repository.TableRepo, s *repository.SettlementRepo) *SettlementHandler {
	return &SettlementHandler{DB: db, Patrons: p, Tables: t, Settlements: s}
}

type initiateSettlementReq struct {
	UserID        uint64          `json:"user_id"`
	DeclaredTotal int64           `json:"declared_total"`
	Denominations map[int64]int64 `json:"denominations"`
}

type settlementJSON struct {
	ID            uint64          `json:"id"`
	UserID        uint64          `json:"user_id"`
	TableID       uint64          `json:"table_id"`
	SeatNumber    uint32          `json:"seat_number"`
	DeclaredTotal int64           `json:"declared_total"`
	Denominations map[int64]int64 `json:"denominations"`
	InitiatedBy   uint64          `json:"initiated_by"`
	InitiatedAt   time.Time       `json:"initiated_at"`
}

func settlementView(s *model.ChipSettlement) settlementJSON {
	return settlementJSON{
		ID:            s.ID,
		UserID:        s.UserID,
		TableID:       s.TableID,
		SeatNumber:    s.SeatNumber,
		DeclaredTotal: s.DeclaredTotal,
		Denominations: s.Denominations,
		InitiatedBy:   s.InitiatedBy,
		InitiatedAt:   s.InitiatedAt,
	}
}

// Initiate starts a settlement for a seated patron (staff only). The
// declared total must equal the denomination sum; the unique constraint
// on the pending set rejects a second concurrent count for the same
// patron.
func (h *SettlementHandler) Initiate(c echo.Context) error {
	var req initiateSettlementReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	counts := workflow.DenominationCounts(req.Denominations)
	if err := workflow.ValidateDeclaredTotal(req.DeclaredTotal, counts); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hasPending, err := h.Settlements.HasPending(ctx, req.UserID)
	if err != nil {
		return writeError(c, err)
	}

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

	patron, err := h.Patrons.GetForUpdateTx(ctx, tx, req.UserID)
	if err != nil {
		return writeError(c, err)
	}
	seated := patron.CurrentTableID != nil && patron.CurrentSeatNumber != nil
	// The unique constraint still decides the race; the pre-check just
	// gives the common case a clean error before locking anything.
	if err := workflow.CanInitiateSettlement(seated, hasPending); err != nil {
		return writeError(c, err)
	}

	s := &model.ChipSettlement{
		UserID:        patron.ID,
		TableID:       *patron.CurrentTableID,
		SeatNumber:    *patron.CurrentSeatNumber,
		DeclaredTotal: req.DeclaredTotal,
		Denominations: counts,
		InitiatedBy:   currentUserID(c),
	}
	if err := h.Settlements.CreateTx(ctx, tx, s); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true

	created, err := h.Settlements.GetByUser(ctx, s.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, settlementView(created))
}

// Confirm is the patron accepting the staff count for their own stack.
func (h *SettlementHandler) Confirm(c echo.Context) error {
	return h.finalize(c, currentUserID(c), workflow.SettlementConfirmed)
}

// Force is staff completing a settlement without patron confirmation,
// the dispute path. The declared total is credited as counted.
func (h *SettlementHandler) Force(c echo.Context) error {
	userID, err := pathID(c, "userID")
	if err != nil {
		return writeError(c, err)
	}
	return h.finalize(c, userID, workflow.SettlementForced)
}

// Cancel is staff abandoning a pending count. No balance changes; the
// patron keeps their seat.
func (h *SettlementHandler) Cancel(c echo.Context) error {
	userID, err := pathID(c, "userID")
	if err != nil {
		return writeError(c, err)
	}
	return h.finalize(c, userID, workflow.SettlementCancelled)
}

// finalize resolves the pending settlement of userID. Locking the
// settlement row first means the second of two racing finalizers finds
// no row and reports a conflict instead of double-crediting.
func (h *SettlementHandler) finalize(c echo.Context, userID uint64, resolution workflow.SettlementResolution) error {
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

	s, err := h.Settlements.GetByUserForUpdateTx(ctx, tx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return writeError(c, workflow.Conflictf("no pending settlement for this patron"))
	}
	if err != nil {
		return writeError(c, err)
	}

	if resolution.CreditsBalance() {
		if err := h.Patrons.SettleChipsTx(ctx, tx, s.UserID, s.DeclaredTotal); err != nil {
			return writeError(c, err)
		}
		if err := h.Tables.ClearSeatByOccupantTx(ctx, tx, s.UserID); err != nil {
			return writeError(c, err)
		}
	}
	if err := h.Settlements.DeleteByUserTx(ctx, tx, s.UserID); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true

	if resolution.CreditsBalance() {
		h.publishFinalized(s, resolution, currentUserID(c))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":    s.UserID,
		"resolution": string(resolution),
	})
}

func (h *SettlementHandler) publishFinalized(s *model.ChipSettlement, resolution workflow.SettlementResolution, staffID uint64) {
	patron, err := h.Patrons.GetByID(context.Background(), s.UserID)
	pokerName := ""
	if err == nil {
		pokerName = patron.PokerName
	}
	ev := queue.SettlementFinalizedEvent{
		UserID:        s.UserID,
		PokerName:     pokerName,
		DeclaredTotal: s.DeclaredTotal,
		Resolution:    string(resolution),
		StaffID:       staffID,
		FinalizedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue_publisher.PublishActivity(ctx, queue.KindSettlementFinalized, ev); err != nil {
			logger.Warnf("settlement: publish finalized event failed: %v", err)
		}
	}()
}

// Mine returns the caller's pending settlement, if any, so their device
// can show the count awaiting confirmation.
func (h *SettlementHandler) Mine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Settlements.GetByUser(ctx, currentUserID(c))
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusOK, echo.Map{"pending": nil})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pending": settlementView(s)})
}

// ListOpen returns all pending settlements oldest first (staff only).
func (h *SettlementHandler) ListOpen(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	open, err := h.Settlements.ListOpen(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]settlementJSON, 0, len(open))
	for i := range open {
		out = append(out, settlementView(&open[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"settlements": out})
}

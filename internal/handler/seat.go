package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harunaoki/cardroom-backend/internal/repository"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// SeatHandler implements staff seat assignment and release. A seat
// assignment can carry an initial buy-in moved from the patron's bank
// to their table stack, and closes any open waitlist entry the patron
// held for the table's game.
type SeatHandler struct {
	DB       *sql.DB
	Patrons  *repository.PatronRepo
	Tables   *repository.TableRepo
	Waitlist *repository.WaitlistRepo
}

func NewSeatHandler(db *sql.DB, p *repository.PatronRepo, t *repository.TableRepo, w *repository.WaitlistRepo) *SeatHandler {
	return &SeatHandler{DB: db, Patrons: p, Tables: t, Waitlist: w}
}

type assignSeatReq struct {
	UserID         uint64 `json:"user_id"`
	TableID        uint64 `json:"table_id"`
	SeatNumber     uint32 `json:"seat_number"`
	BuyIn          int64  `json:"buy_in"`
	GameTemplateID uint64 `json:"game_template_id"`
}

type releaseSeatReq struct {
	TableID    uint64 `json:"table_id"`
	SeatNumber uint32 `json:"seat_number"`
}

// Assign seats a patron (staff only). Seat row, patron seat reference,
// optional buy-in debit and waitlist closure commit in one transaction;
// a seat taken in the meantime or a patron already seated elsewhere
// rolls the whole thing back.
func (h *SeatHandler) Assign(c echo.Context) error {
	var req assignSeatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 || req.TableID == 0 || req.SeatNumber == 0 {
		return writeError(c, workflow.Validationf("user_id, table_id and seat_number are required"))
	}
	if req.BuyIn < 0 {
		return writeError(c, workflow.Validationf("buy_in %d is negative", req.BuyIn))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	table, err := h.Tables.GetByID(ctx, req.TableID)
	if err != nil {
		return writeError(c, err)
	}
	if req.SeatNumber > table.MaxSeats {
		return writeError(c, workflow.Validationf("table %q has %d seats", table.Name, table.MaxSeats))
	}
	if table.Status != "OPEN" {
		return writeError(c, workflow.Conflictf("table %q is closed", table.Name))
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
	if !patron.IsCheckedIn {
		return writeError(c, workflow.Conflictf("patron %q is not checked in", patron.PokerName))
	}
	if err := h.Tables.AssignSeatTx(ctx, tx, req.TableID, req.SeatNumber, patron); err != nil {
		return writeError(c, err)
	}
	if req.BuyIn > 0 {
		if err := h.Patrons.MoveBankToPlayTx(ctx, tx, patron.ID, req.BuyIn); err != nil {
			return writeError(c, err)
		}
	}
	if req.GameTemplateID != 0 {
		if err := h.Waitlist.MarkSeatedTx(ctx, tx, patron.ID, req.GameTemplateID); err != nil {
			return writeError(c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true

	updated, err := h.Patrons.GetByID(ctx, patron.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, patronView(updated))
}

// Release empties a seat without settling (staff only, e.g. a patron
// moving tables). Chip stacks are untouched; reconciling them is the
// settlement workflow's job.
func (h *SeatHandler) Release(c echo.Context) error {
	var req releaseSeatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TableID == 0 || req.SeatNumber == 0 {
		return writeError(c, workflow.Validationf("table_id and seat_number are required"))
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
	occupant, err := h.Tables.ReleaseSeatTx(ctx, tx, req.TableID, req.SeatNumber)
	if err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"table_id":    req.TableID,
		"seat_number": req.SeatNumber,
		"released":    occupant != 0,
	})
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harunaoki/cardroom-backend/internal/logger"
	"github.com/harunaoki/cardroom-backend/internal/repository"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// AdminHandler covers staff account management: role escalation,
// patron approval, venue check-in and the checked-in overview.
type AdminHandler struct {
	Patrons *repository.PatronRepo
}

func NewAdminHandler(p *repository.PatronRepo) *AdminHandler {
	return &AdminHandler{Patrons: p}
}

type emailReq struct {
	Email string `json:"email"`
}

// PromoteToStaff grants the STAFF role to an existing account by email.
// Takes effect on the account's next token issue.
func (h *AdminHandler) PromoteToStaff(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Patrons.PromoteToStaffByEmail(ctx, req.Email)
	if err != nil {
		return writeError(c, err)
	}
	logger.Infof("staff role granted to user %d by %d", id, currentUserID(c))
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": "STAFF"})
}

type approvedReq struct {
	Approved bool `json:"approved"`
}

// SetApproved toggles whether a patron may place orders and
// withdrawals.
func (h *AdminHandler) SetApproved(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req approvedReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Patrons.SetApproved(ctx, id, req.Approved); err != nil {
		return writeError(c, err)
	}
	return h.respondWith(c, id)
}

// CheckIn marks a patron as present in the venue.
func (h *AdminHandler) CheckIn(c echo.Context) error {
	return h.setCheckedIn(c, true)
}

// CheckOut marks a patron as having left. Seat occupancy is not
// touched; a seated patron should be settled first.
func (h *AdminHandler) CheckOut(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Patrons.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if p.CurrentTableID != nil {
		return writeError(c, workflow.Conflictf("patron %q is still seated; settle first", p.PokerName))
	}
	if err := h.Patrons.SetCheckedIn(ctx, id, false); err != nil {
		return writeError(c, err)
	}
	return h.respondWith(c, id)
}

func (h *AdminHandler) setCheckedIn(c echo.Context, in bool) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Patrons.SetCheckedIn(ctx, id, in); err != nil {
		return writeError(c, err)
	}
	return h.respondWith(c, id)
}

type rebuyReq struct {
	Amount int64 `json:"amount"`
}

// Rebuy moves chips from a seated patron's bank to their table stack
// (staff only). One guarded statement: a balance below the amount at
// commit time is a conflict, never a negative bank.
func (h *AdminHandler) Rebuy(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req rebuyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Patrons.DB().BeginTx(ctx, nil)
	if err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := h.Patrons.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeError(c, err)
	}
	if p.CurrentTableID == nil {
		return writeError(c, workflow.Conflictf("patron %q is not seated", p.PokerName))
	}
	if err := h.Patrons.MoveBankToPlayTx(ctx, tx, id, req.Amount); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true
	return h.respondWith(c, id)
}

// GetPatron returns one account with live balances (staff only).
func (h *AdminHandler) GetPatron(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	return h.respondWith(c, id)
}

// ListCheckedIn returns everyone currently in the venue (staff only).
func (h *AdminHandler) ListCheckedIn(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Patrons.ListCheckedIn(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]patronJSON, 0, len(list))
	for i := range list {
		out = append(out, patronView(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"patrons": out})
}

func (h *AdminHandler) respondWith(c echo.Context, id uint64) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Patrons.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, patronView(p))
}

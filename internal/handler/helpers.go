// Package handler implements the HTTP endpoints of the card-room API.
package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/harunaoki/cardroom-backend/internal/model"
	"github.com/harunaoki/cardroom-backend/internal/repository"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// currentUserID reads the authenticated user ID injected by the JWT
// middleware. Routes behind JWTAuth always have it.
func currentUserID(c echo.Context) uint64 {
	id, _ := c.Get("user_id").(uint64)
	return id
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, workflow.Validationf("invalid %s", name)
	}
	return id, nil
}

// writeError maps domain errors onto HTTP responses. Workflow
// sentinels carry their status; anything unrecognized is a 500 with a
// generic body so internals never leak to clients.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, workflow.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, workflow.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, workflow.ErrTransient):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable, retry"})
	case errors.Is(err, sql.ErrNoRows),
		errors.Is(err, repository.ErrPatronNotFound),
		errors.Is(err, repository.ErrTableNotFound),
		errors.Is(err, repository.ErrSeatNotFound),
		errors.Is(err, repository.ErrGameTemplateNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// patronJSON is the client-facing shape of an account. The password
// hash never leaves the server.
type patronJSON struct {
	ID                uint64  `json:"id"`
	PokerName         string  `json:"poker_name"`
	Email             string  `json:"email"`
	Role              string  `json:"role"`
	Approved          bool    `json:"approved"`
	IsCheckedIn       bool    `json:"is_checked_in"`
	BankChips         int64   `json:"bank_chips"`
	ChipsInPlay       int64   `json:"chips_in_play"`
	Bill              int64   `json:"bill"`
	CurrentTableID    *uint64 `json:"current_table_id,omitempty"`
	CurrentSeatNumber *uint32 `json:"current_seat_number,omitempty"`
}

func patronView(p *model.Patron) patronJSON {
	return patronJSON{
		ID:                p.ID,
		PokerName:         p.PokerName,
		Email:             p.Email,
		Role:              p.Role,
		Approved:          p.Approved,
		IsCheckedIn:       p.IsCheckedIn,
		BankChips:         p.BankChips,
		ChipsInPlay:       p.ChipsInPlay,
		Bill:              p.Bill,
		CurrentTableID:    p.CurrentTableID,
		CurrentSeatNumber: p.CurrentSeatNumber,
	}
}

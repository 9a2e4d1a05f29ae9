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

// WaitlistHandler implements the per-game-template waiting queue.
// Queue positions are projected from request order on every read and
// never stored.
type WaitlistHandler struct {
	DB        *sql.DB
	Waitlist  *repository.WaitlistRepo
	Templates *repository.GameTemplateRepo
}

func NewWaitlistHandler(db *sql.DB, w *repository.WaitlistRepo, t *repository.GameTemplateRepo) *WaitlistHandler {
	return &WaitlistHandler{DB: db, Waitlist: w, Templates: t}
}

type joinWaitlistReq struct {
	GameTemplateID uint64 `json:"game_template_id"`
	Notes          string `json:"notes"`
}

type waitlistEntryJSON struct {
	ID             uint64    `json:"id"`
	UserID         uint64    `json:"user_id"`
	GameTemplateID uint64    `json:"game_template_id"`
	Status         string    `json:"status"`
	RequestedAt    time.Time `json:"requested_at"`
	NotesForStaff  string    `json:"notes_for_staff,omitempty"`
	Position       int       `json:"position,omitempty"`
}

func entryView(e *model.WaitingListEntry, position int) waitlistEntryJSON {
	return waitlistEntryJSON{
		ID:             e.ID,
		UserID:         e.UserID,
		GameTemplateID: e.GameTemplateID,
		Status:         e.Status,
		RequestedAt:    e.RequestedAt,
		NotesForStaff:  e.NotesForStaff,
		Position:       position,
	}
}

// Join puts the caller on a game template's waiting list. At most one
// open entry per patron per template; the check and insert run in one
// transaction so concurrent joins cannot both slip through.
func (h *WaitlistHandler) Join(c echo.Context) error {
	var req joinWaitlistReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tmpl, err := h.Templates.GetByID(ctx, req.GameTemplateID)
	if err != nil {
		return writeError(c, err)
	}
	if !tmpl.IsActive {
		return writeError(c, workflow.Validationf("game %q is not open for queueing", tmpl.TemplateName))
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
	entry, err := h.Waitlist.JoinTx(ctx, tx, currentUserID(c), req.GameTemplateID, req.Notes)
	if err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true

	pos, err := h.positionOf(ctx, entry)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, entryView(entry, pos))
}

// positionOf projects the entry's live queue position.
func (h *WaitlistHandler) positionOf(ctx context.Context, entry *model.WaitingListEntry) (int, error) {
	open, err := h.Waitlist.ListOpenByTemplate(ctx, entry.GameTemplateID)
	if err != nil {
		return 0, err
	}
	return projectRanks(open)[entry.ID], nil
}

func projectRanks(entries []model.WaitingListEntry) map[uint64]int {
	snaps := make([]workflow.QueueSnapshot, 0, len(entries))
	for _, e := range entries {
		snaps = append(snaps, workflow.QueueSnapshot{
			ID:          e.ID,
			Status:      workflow.WaitlistStatus(e.Status),
			RequestedAt: e.RequestedAt,
		})
	}
	return workflow.Ranks(snaps)
}

// CancelMine lets a patron withdraw their own entry.
func (h *WaitlistHandler) CancelMine(c echo.Context) error {
	return h.transition(c, workflow.WaitlistCancelledByUser, true)
}

// Call summons the next patron to a table (staff only).
func (h *WaitlistHandler) Call(c echo.Context) error {
	return h.transition(c, workflow.WaitlistCalled, false)
}

// ConfirmCall is the patron acknowledging a call on their own entry.
func (h *WaitlistHandler) ConfirmCall(c echo.Context) error {
	return h.transition(c, workflow.WaitlistConfirmed, true)
}

// NoShow marks a called patron who never appeared (staff only).
func (h *WaitlistHandler) NoShow(c echo.Context) error {
	return h.transition(c, workflow.WaitlistNoShow, false)
}

// CancelByAdmin removes an entry on the staff side.
func (h *WaitlistHandler) CancelByAdmin(c echo.Context) error {
	return h.transition(c, workflow.WaitlistCancelledByAdmin, false)
}

func (h *WaitlistHandler) transition(c echo.Context, to workflow.WaitlistStatus, ownerOnly bool) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, err := h.Waitlist.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if ownerOnly && entry.UserID != currentUserID(c) {
		return writeError(c, workflow.ErrForbidden)
	}
	from := workflow.WaitlistStatus(entry.Status)
	if !from.CanTransition(to) {
		return writeError(c, workflow.Conflictf("entry %d is %s", id, entry.Status))
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
	if err := h.Waitlist.TransitionTx(ctx, tx, id, from, to); err != nil {
		return writeError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeError(c, workflow.ErrTransient)
	}
	committed = true

	if to == workflow.WaitlistCalled {
		ev := queue.WaitlistCalledEvent{
			EntryID:        id,
			UserID:         entry.UserID,
			GameTemplateID: entry.GameTemplateID,
			CalledAt:       time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer pcancel()
			if err := queue_publisher.PublishActivity(pctx, queue.KindWaitlistCalled, ev); err != nil {
				logger.Warnf("waitlist: publish called event failed: %v", err)
			}
		}()
	}

	updated, err := h.Waitlist.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entryView(updated, 0))
}

// Queue returns a template's open entries with projected positions
// (staff only).
func (h *WaitlistHandler) Queue(c echo.Context) error {
	templateID, err := pathID(c, "templateID")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	open, err := h.Waitlist.ListOpenByTemplate(ctx, templateID)
	if err != nil {
		return writeError(c, err)
	}
	ranks := projectRanks(open)
	out := make([]waitlistEntryJSON, 0, len(open))
	for i := range open {
		out = append(out, entryView(&open[i], ranks[open[i].ID]))
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}

// Mine returns the caller's open entries with live positions.
func (h *WaitlistHandler) Mine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	mine, err := h.Waitlist.ListOpenByUser(ctx, currentUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]waitlistEntryJSON, 0, len(mine))
	for i := range mine {
		pos, err := h.positionOf(ctx, &mine[i])
		if err != nil {
			return writeError(c, err)
		}
		out = append(out, entryView(&mine[i], pos))
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}

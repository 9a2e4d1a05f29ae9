package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harunaoki/cardroom-backend/internal/model"
	"github.com/harunaoki/cardroom-backend/internal/repository"
	"github.com/harunaoki/cardroom-backend/internal/workflow"
)

// TableHandler implements table and game-template management plus the
// public venue boards. The public reads sit behind the response cache.
type TableHandler struct {
	Tables    *repository.TableRepo
	Templates *repository.GameTemplateRepo
	Waitlist  *repository.WaitlistRepo
}

func NewTableHandler(t *repository.TableRepo, g *repository.GameTemplateRepo, w *repository.WaitlistRepo) *TableHandler {
	return &TableHandler{Tables: t, Templates: g, Waitlist: w}
}

type tableReq struct {
	Name         string `json:"name"`
	MaxSeats     uint32 `json:"max_seats"`
	Status       string `json:"status"`
	GameType     string `json:"game_type"`
	BlindsOrRate string `json:"blinds_or_rate"`
}

type seatJSON struct {
	SeatNumber        uint32     `json:"seat_number"`
	OccupantID        *uint64    `json:"occupant_id,omitempty"`
	OccupantPokerName *string    `json:"occupant_poker_name,omitempty"`
	OccupiedAt        *time.Time `json:"occupied_at,omitempty"`
}

type tableJSON struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name"`
	MaxSeats     uint32     `json:"max_seats"`
	Status       string     `json:"status"`
	GameType     string     `json:"game_type"`
	BlindsOrRate string     `json:"blinds_or_rate"`
	Seats        []seatJSON `json:"seats,omitempty"`
}

func tableView(t *model.Table, seats []model.Seat) tableJSON {
	out := tableJSON{
		ID:           t.ID,
		Name:         t.Name,
		MaxSeats:     t.MaxSeats,
		Status:       t.Status,
		GameType:     t.GameType,
		BlindsOrRate: t.BlindsOrRate,
	}
	for i := range seats {
		s := &seats[i]
		out.Seats = append(out.Seats, seatJSON{
			SeatNumber:        s.SeatNumber,
			OccupantID:        s.OccupantID,
			OccupantPokerName: s.OccupantPokerName,
			OccupiedAt:        s.OccupiedAt,
		})
	}
	return out
}

func validateTableReq(req *tableReq, creating bool) error {
	if req.Name == "" {
		return workflow.Validationf("name is required")
	}
	if creating && (req.MaxSeats == 0 || req.MaxSeats > 10) {
		return workflow.Validationf("max_seats must be between 1 and 10")
	}
	switch req.Status {
	case "", "OPEN", "CLOSED":
	default:
		return workflow.Validationf("status must be OPEN or CLOSED")
	}
	return nil
}

// Create adds a table with its seats (staff only). Seat count is fixed
// at creation.
func (h *TableHandler) Create(c echo.Context) error {
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := validateTableReq(&req, true); err != nil {
		return writeError(c, err)
	}
	if req.Status == "" {
		req.Status = "OPEN"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t := &model.Table{
		Name:         req.Name,
		MaxSeats:     req.MaxSeats,
		Status:       req.Status,
		GameType:     req.GameType,
		BlindsOrRate: req.BlindsOrRate,
	}
	if err := h.Tables.Create(ctx, t); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, tableView(t, nil))
}

// Update changes a table's display fields and status (staff only).
func (h *TableHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := validateTableReq(&req, false); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tables.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	t.Name = req.Name
	if req.Status != "" {
		t.Status = req.Status
	}
	t.GameType = req.GameType
	t.BlindsOrRate = req.BlindsOrRate
	if err := h.Tables.Update(ctx, t); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tableView(t, nil))
}

// Get returns one table with its seat map.
func (h *TableHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tables.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	seats, err := h.Tables.SeatsByTable(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tableView(t, seats))
}

// List returns every table with its seat map: the venue floor board.
func (h *TableHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tables, err := h.Tables.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]tableJSON, 0, len(tables))
	for i := range tables {
		seats, err := h.Tables.SeatsByTable(ctx, tables[i].ID)
		if err != nil {
			return writeError(c, err)
		}
		out = append(out, tableView(&tables[i], seats))
	}
	return c.JSON(http.StatusOK, echo.Map{"tables": out})
}

// ----- game templates -----

type templateReq struct {
	TemplateName string `json:"template_name"`
	GameType     string `json:"game_type"`
	IsActive     *bool  `json:"is_active"`
	SortOrder    int    `json:"sort_order"`
}

type templateJSON struct {
	ID           uint64 `json:"id"`
	TemplateName string `json:"template_name"`
	GameType     string `json:"game_type"`
	IsActive     bool   `json:"is_active"`
	SortOrder    int    `json:"sort_order"`
	QueueLength  int    `json:"queue_length"`
}

// CreateTemplate adds a game template (staff only).
func (h *TableHandler) CreateTemplate(c echo.Context) error {
	var req templateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TemplateName == "" || req.GameType == "" {
		return writeError(c, workflow.Validationf("template_name and game_type are required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	t := &model.GameTemplate{
		TemplateName: req.TemplateName,
		GameType:     req.GameType,
		IsActive:     active,
		SortOrder:    req.SortOrder,
	}
	if err := h.Templates.Create(ctx, t); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, templateJSON{
		ID: t.ID, TemplateName: t.TemplateName, GameType: t.GameType,
		IsActive: t.IsActive, SortOrder: t.SortOrder,
	})
}

// UpdateTemplate changes a template (staff only). Deactivating keeps
// existing queue entries; it only stops new joins.
func (h *TableHandler) UpdateTemplate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req templateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Templates.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if req.TemplateName != "" {
		t.TemplateName = req.TemplateName
	}
	if req.GameType != "" {
		t.GameType = req.GameType
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	t.SortOrder = req.SortOrder
	if err := h.Templates.Update(ctx, t); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, templateJSON{
		ID: t.ID, TemplateName: t.TemplateName, GameType: t.GameType,
		IsActive: t.IsActive, SortOrder: t.SortOrder,
	})
}

// ListTemplates returns all templates for staff management.
func (h *TableHandler) ListTemplates(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Templates.ListAll(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return h.templatesWithQueues(c, ctx, list)
}

// PublicGames returns active templates with live queue lengths: the
// lobby board patrons see before logging in.
func (h *TableHandler) PublicGames(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Templates.ListActive(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return h.templatesWithQueues(c, ctx, list)
}

func (h *TableHandler) templatesWithQueues(c echo.Context, ctx context.Context, list []model.GameTemplate) error {
	out := make([]templateJSON, 0, len(list))
	for i := range list {
		open, err := h.Waitlist.ListOpenByTemplate(ctx, list[i].ID)
		if err != nil {
			return writeError(c, err)
		}
		out = append(out, templateJSON{
			ID:           list[i].ID,
			TemplateName: list[i].TemplateName,
			GameType:     list[i].GameType,
			IsActive:     list[i].IsActive,
			SortOrder:    list[i].SortOrder,
			QueueLength:  len(open),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"games": out})
}

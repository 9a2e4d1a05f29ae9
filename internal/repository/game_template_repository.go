package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/harunaoki/cardroom-backend/internal/model"
)

// ErrGameTemplateNotFound is returned when a template lookup yields no
// rows.
var ErrGameTemplateNotFound = errors.New("game template not found")

// GameTemplateRepo provides CRUD for game templates. All writes are
// plain: templates carry no conserved values.
type GameTemplateRepo struct {
	db *sql.DB
}

// NewGameTemplateRepo returns a GameTemplateRepo bound to the given database.
func NewGameTemplateRepo(db *sql.DB) *GameTemplateRepo { return &GameTemplateRepo{db: db} }

// Create inserts a template and populates its ID.
func (r *GameTemplateRepo) Create(ctx context.Context, t *model.GameTemplate) error {
	const q = `INSERT INTO game_templates (template_name, game_type, is_active, sort_order) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.TemplateName, t.GameType, t.IsActive, t.SortOrder)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID retrieves a template by its id.
func (r *GameTemplateRepo) GetByID(ctx context.Context, id uint64) (*model.GameTemplate, error) {
	const q = `SELECT id, template_name, game_type, is_active, sort_order FROM game_templates WHERE id = ?`
	var t model.GameTemplate
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.TemplateName, &t.GameType, &t.IsActive, &t.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update changes a template's fields.
func (r *GameTemplateRepo) Update(ctx context.Context, t *model.GameTemplate) error {
	const q = `UPDATE game_templates SET template_name = ?, game_type = ?, is_active = ?, sort_order = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, t.TemplateName, t.GameType, t.IsActive, t.SortOrder, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGameTemplateNotFound
	}
	return nil
}

// ListActive returns active templates in display order, for the public
// waitlist board.
func (r *GameTemplateRepo) ListActive(ctx context.Context) ([]model.GameTemplate, error) {
	const q = `SELECT id, template_name, game_type, is_active, sort_order FROM game_templates
	           WHERE is_active = 1 ORDER BY sort_order, template_name`
	return r.list(ctx, q)
}

// ListAll returns every template for staff management.
func (r *GameTemplateRepo) ListAll(ctx context.Context) ([]model.GameTemplate, error) {
	const q = `SELECT id, template_name, game_type, is_active, sort_order FROM game_templates
	           ORDER BY sort_order, template_name`
	return r.list(ctx, q)
}

func (r *GameTemplateRepo) list(ctx context.Context, q string) ([]model.GameTemplate, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GameTemplate
	for rows.Next() {
		var t model.GameTemplate
		if err := rows.Scan(&t.ID, &t.TemplateName, &t.GameType, &t.IsActive, &t.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

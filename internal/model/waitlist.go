package model

import "time"

// GameTemplate is a named game-type + stakes configuration a table can
// run. Patrons queue per template, not per table.
type GameTemplate struct {
	ID           uint64 // game_templates.id
	TemplateName string // game_templates.template_name
	GameType     string // game_templates.game_type
	IsActive     bool   // game_templates.is_active
	SortOrder    int    // game_templates.sort_order
}

// WaitingListEntry is one patron's place in a game template's queue.
// Queue position is never stored; it is derived at read time from
// RequestedAt order over the WAITING set.
type WaitingListEntry struct {
	ID             uint64    // waiting_list_entries.id
	UserID         uint64    // waiting_list_entries.user_id
	GameTemplateID uint64    // waiting_list_entries.game_template_id
	Status         string    // waiting_list_entries.status
	RequestedAt    time.Time // waiting_list_entries.requested_at
	NotesForStaff  string    // waiting_list_entries.notes_for_staff
}

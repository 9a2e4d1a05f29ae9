package model

import "time"

// Table describes a physical poker table in the venue.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name (e.g. "Table 1").
//  MaxSeats     – number of seats, numbered 1..MaxSeats.
//  Status       – OPEN or CLOSED.
//  GameType     – game currently running (e.g. NLH, PLO).
//  BlindsOrRate – stakes description shown to patrons.
type Table struct {
	ID           uint64    // poker_tables.id
	Name         string    // poker_tables.name
	MaxSeats     uint32    // poker_tables.max_seats
	Status       string    // poker_tables.status
	GameType     string    // poker_tables.game_type
	BlindsOrRate string    // poker_tables.blinds_or_rate
	CreatedAt    time.Time // poker_tables.created_at
	UpdatedAt    time.Time // poker_tables.updated_at
}

// Seat is one position at a table. A seat is empty when OccupantID is
// nil. (TableID, SeatNumber) is unique across the venue.
type Seat struct {
	ID                uint64     // seats.id
	TableID           uint64     // seats.table_id
	SeatNumber        uint32     // seats.seat_number
	OccupantID        *uint64    // seats.occupant_id (nullable)
	OccupantPokerName *string    // seats.occupant_poker_name (nullable)
	OccupiedAt        *time.Time // seats.occupied_at (nullable)
}

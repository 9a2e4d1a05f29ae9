package model

import "time"

// ChipSettlement is a pending chip-count reconciliation for one patron.
// It is created by staff counting the patron's physical stack and
// destroyed when the patron confirms, staff force-completes, or staff
// cancels. The UNIQUE(user_id) constraint in the store guarantees at
// most one pending settlement per patron.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – patron being settled.
//  TableID       – table the patron occupies.
//  SeatNumber    – seat the patron occupies.
//  DeclaredTotal – staff-counted chip total; must equal the sum of
//                  Denominations (value × count).
//  Denominations – chip face value → count of chips of that value.
//  InitiatedBy   – staff member who started the count.
//  InitiatedAt   – when the count was started.
type ChipSettlement struct {
	ID            uint64          // chip_settlements.id
	UserID        uint64          // chip_settlements.user_id
	TableID       uint64          // chip_settlements.table_id
	SeatNumber    uint32          // chip_settlements.seat_number
	DeclaredTotal int64           // chip_settlements.declared_total
	Denominations map[int64]int64 // chip_settlements.denominations (JSON)
	InitiatedBy   uint64          // chip_settlements.initiated_by
	InitiatedAt   time.Time       // chip_settlements.initiated_at
}

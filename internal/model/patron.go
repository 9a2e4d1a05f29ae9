package model

import "time"

// Patron represents a card-room customer or staff member as stored in
// the `users` table. Conserved chip balances (BankChips, ChipsInPlay)
// and the running Bill only ever change through the privileged
// repository operations; handlers must never write them directly.
//
// Fields:
//  ID                – primary key identifier.
//  PokerName         – display name used at the tables.
//  Email             – unique email address.
//  PasswordHash      – bcrypt hashed password.
//  Role              – STAFF or PATRON.
//  Approved          – whether staff has approved this patron for
//                      orders and withdrawals.
//  IsCheckedIn       – whether the patron is currently in the venue.
//  BankChips         – chips owned but not in play (never negative).
//  ChipsInPlay       – chips at the patron's occupied seat.
//  Bill              – accumulated bill in yen.
//  CurrentTableID    – table currently occupied, nil when unseated.
//  CurrentSeatNumber – seat currently occupied, nil when unseated.
type Patron struct {
	ID                uint64     // users.id
	PokerName         string     // users.poker_name
	Email             string     // users.email
	PasswordHash      string     // users.password_hash
	Role              string     // users.role
	Approved          bool       // users.approved
	IsCheckedIn       bool       // users.is_checked_in
	BankChips         int64      // users.bank_chips
	ChipsInPlay       int64      // users.chips_in_play
	Bill              int64      // users.bill
	CurrentTableID    *uint64    // users.current_table_id (nullable)
	CurrentSeatNumber *uint32    // users.current_seat_number (nullable)
	CreatedAt         time.Time  // users.created_at
	UpdatedAt         time.Time  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

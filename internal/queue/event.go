// Package queue defines the activity events exchanged over the message
// broker and the consumer that records them.
package queue

import "encoding/json"

// Event kinds carried on the cardroom.activity queue.
const (
	KindSettlementFinalized = "settlement.finalized"
	KindChipOrderPlaced     = "order.chips_placed"
	KindWithdrawalDelivered = "withdrawal.delivered"
	KindWaitlistCalled      = "waitlist.called"
)

// Envelope wraps every activity event with its kind so a single queue
// can carry all of them.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// SettlementFinalizedEvent is published when a staff member finalizes a
// chip settlement, normally or by force. Downstream consumers get the
// full money movement without querying the primary database.
type SettlementFinalizedEvent struct {
	UserID        uint64 `json:"user_id"`
	PokerName     string `json:"poker_name"`
	DeclaredTotal int64  `json:"declared_total"`
	Resolution    string `json:"resolution"`
	StaffID       uint64 `json:"staff_id"`
	FinalizedAt   string `json:"finalized_at"`
}

// ChipOrderPlacedEvent is published when an order containing chip items
// credits a patron's bank.
type ChipOrderPlacedEvent struct {
	OrderID     uint64 `json:"order_id"`
	UserID      uint64 `json:"user_id"`
	TotalPrice  int64  `json:"total_price"`
	ChipsCredit int64  `json:"chips_credit"`
	PlacedAt    string `json:"placed_at"`
}

// WithdrawalDeliveredEvent is published when staff hands cash to the
// patron and the request starts awaiting customer confirmation.
type WithdrawalDeliveredEvent struct {
	WithdrawalID uint64 `json:"withdrawal_id"`
	UserID       uint64 `json:"user_id"`
	Amount       int64  `json:"amount"`
	StaffID      uint64 `json:"staff_id"`
	DeliveredAt  string `json:"delivered_at"`
}

// WaitlistCalledEvent is published when staff calls a waiting patron to
// a table.
type WaitlistCalledEvent struct {
	EntryID        uint64 `json:"entry_id"`
	UserID         uint64 `json:"user_id"`
	GameTemplateID uint64 `json:"game_template_id"`
	CalledAt       string `json:"called_at"`
}

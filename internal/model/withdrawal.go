package model

import "time"

// WithdrawalRequest tracks a patron asking to take chips out of their
// bank balance. The balance debit happens when staff marks the physical
// handoff (DELIVERED_AWAITING_CONFIRMATION), not at approval, so the
// stored balance always reflects chips already out of the cage.
//
// Fields:
//  ID                   – primary key identifier.
//  UserID               – requesting patron.
//  RequestedChipsAmount – amount to withdraw; positive and at most the
//                         patron's bank chips at request time.
//  Status               – REQUESTED, APPROVED_PREPARING,
//                         DELIVERED_AWAITING_CONFIRMATION, CONFIRMED
//                         or DENIED.
//  RequestedAt          – when the patron filed the request.
//  AdminProcessedAt     – when staff last moved the request forward.
//  CustomerConfirmedAt  – when the patron acknowledged receipt.
//  ProcessedBy          – staff member handling the request.
type WithdrawalRequest struct {
	ID                   uint64     // withdrawal_requests.id
	UserID               uint64     // withdrawal_requests.user_id
	RequestedChipsAmount int64      // withdrawal_requests.requested_chips_amount
	Status               string     // withdrawal_requests.status
	RequestedAt          time.Time  // withdrawal_requests.requested_at
	AdminProcessedAt     *time.Time // withdrawal_requests.admin_processed_at (nullable)
	CustomerConfirmedAt  *time.Time // withdrawal_requests.customer_confirmed_at (nullable)
	ProcessedBy          *uint64    // withdrawal_requests.processed_by (nullable)
}

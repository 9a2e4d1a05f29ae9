package model

import "time"

// Order is an in-venue request for drinks and/or chip purchases.
// Orders containing chip lines credit the patron's bank chips and bill
// atomically at placement; drink-only orders are billed when staff
// delivers them.
type Order struct {
	ID                  uint64      // orders.id
	UserID              uint64      // orders.user_id
	TotalPrice          int64       // orders.total_price (yen)
	Status              string      // orders.status
	FailureReason       *string     // orders.failure_reason (nullable)
	OrderedAt           time.Time   // orders.ordered_at
	AdminDeliveredAt    *time.Time  // orders.admin_delivered_at (nullable)
	CustomerConfirmedAt *time.Time  // orders.customer_confirmed_at (nullable)
	Items               []OrderItem // loaded separately from order_items
}

// OrderItem is one line of an order. For chip lines ChipsPerUnit is the
// number of chips credited per unit purchased; drink lines carry zero.
type OrderItem struct {
	ID             uint64 // order_items.id
	OrderID        uint64 // order_items.order_id
	ItemID         string // order_items.item_id (menu identifier)
	ItemType       string // order_items.item_type ('drink' | 'chip')
	Quantity       uint32 // order_items.quantity
	UnitPrice      int64  // order_items.unit_price (yen)
	ChipsPerUnit   int64  // order_items.chips_per_unit
	TotalItemPrice int64  // order_items.total_item_price (yen)
}

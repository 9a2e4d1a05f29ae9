package workflow

// OrderStatus is the state of a drink/chip order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPreparing OrderStatus = "PREPARING"
	OrderDelivered OrderStatus = "DELIVERED_AWAITING_CONFIRMATION"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderFailed    OrderStatus = "FAILED"
)

// Item types accepted on an order line.
const (
	ItemTypeDrink = "drink"
	ItemTypeChip  = "chip"
)

// orderTransitions is the complete transition table. Cancellation is
// allowed from any state before completion; FAILED is set by the system
// when the chip-purchase sub-transaction fails and is terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderPreparing, OrderCancelled, OrderFailed},
	OrderPreparing: {OrderDelivered, OrderCancelled},
	OrderDelivered: {OrderCompleted, OrderCancelled},
}

// CanTransition reports whether moving from s to next is legal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CartLine is one requested line of a new order, before persistence.
type CartLine struct {
	ItemID       string
	ItemType     string
	Quantity     int64
	UnitPrice    int64
	ChipsPerUnit int64
}

// LinePrice returns the total price of the line.
func (l CartLine) LinePrice() int64 { return l.UnitPrice * l.Quantity }

// CartTotals holds the derived money amounts of a cart: the bill
// increment and the chip credit owed at placement.
type CartTotals struct {
	TotalPrice int64 // Σ quantity × unit price, in yen
	ChipCredit int64 // Σ quantity × chips per unit, chip lines only
}

// HasChipLines reports whether the cart contains a chip purchase, which
// makes the credit and bill increment due atomically at placement.
func (t CartTotals) HasChipLines() bool { return t.ChipCredit > 0 }

// ValidateCart checks line items and derives the cart totals. Drink
// lines must not carry a chip amount and chip lines must credit at
// least one chip per unit.
func ValidateCart(lines []CartLine) (CartTotals, error) {
	if len(lines) == 0 {
		return CartTotals{}, Validationf("cart is empty")
	}
	var totals CartTotals
	for _, l := range lines {
		if l.Quantity <= 0 {
			return CartTotals{}, Validationf("quantity %d for item %q is not positive", l.Quantity, l.ItemID)
		}
		if l.UnitPrice < 0 {
			return CartTotals{}, Validationf("unit price %d for item %q is negative", l.UnitPrice, l.ItemID)
		}
		switch l.ItemType {
		case ItemTypeDrink:
			if l.ChipsPerUnit != 0 {
				return CartTotals{}, Validationf("drink item %q must not carry chips", l.ItemID)
			}
		case ItemTypeChip:
			if l.ChipsPerUnit <= 0 {
				return CartTotals{}, Validationf("chip item %q must credit at least one chip per unit", l.ItemID)
			}
			totals.ChipCredit += l.ChipsPerUnit * l.Quantity
		default:
			return CartTotals{}, Validationf("unknown item type %q", l.ItemType)
		}
		totals.TotalPrice += l.LinePrice()
	}
	return totals, nil
}

package workflow

import (
	"errors"
	"testing"
)

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderPreparing, true},
		{OrderPreparing, OrderDelivered, true},
		{OrderDelivered, OrderCompleted, true},
		// cancellation from any pre-completed state
		{OrderPending, OrderCancelled, true},
		{OrderPreparing, OrderCancelled, true},
		{OrderDelivered, OrderCancelled, true},
		// FAILED only out of PENDING, set when the chip sub-transaction fails
		{OrderPending, OrderFailed, true},
		{OrderPreparing, OrderFailed, false},
		// no skipping preparation or delivery
		{OrderPending, OrderDelivered, false},
		{OrderPending, OrderCompleted, false},
		{OrderPreparing, OrderCompleted, false},
		// terminal states stay terminal
		{OrderCompleted, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
		{OrderFailed, OrderPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestValidateCart_ChipPurchaseTotals(t *testing.T) {
	// one chip option at 1000 yen crediting 500 chips
	totals, err := ValidateCart([]CartLine{
		{ItemID: "chip-500", ItemType: ItemTypeChip, Quantity: 1, UnitPrice: 1000, ChipsPerUnit: 500},
	})
	if err != nil {
		t.Fatalf("expected valid chip cart, got %v", err)
	}
	if totals.TotalPrice != 1000 {
		t.Fatalf("expected total price 1000, got %d", totals.TotalPrice)
	}
	if totals.ChipCredit != 500 {
		t.Fatalf("expected chip credit 500, got %d", totals.ChipCredit)
	}
	if !totals.HasChipLines() {
		t.Fatalf("cart with chip lines must report HasChipLines")
	}
}

func TestValidateCart_DrinkOnlyNeverTouchesLedger(t *testing.T) {
	totals, err := ValidateCart([]CartLine{
		{ItemID: "beer", ItemType: ItemTypeDrink, Quantity: 2, UnitPrice: 700},
		{ItemID: "oolong", ItemType: ItemTypeDrink, Quantity: 1, UnitPrice: 400},
	})
	if err != nil {
		t.Fatalf("expected valid drink cart, got %v", err)
	}
	if totals.TotalPrice != 1800 {
		t.Fatalf("expected total price 1800, got %d", totals.TotalPrice)
	}
	if totals.ChipCredit != 0 || totals.HasChipLines() {
		t.Fatalf("drink-only cart must carry no chip credit, got %d", totals.ChipCredit)
	}
}

func TestValidateCart_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		lines []CartLine
	}{
		{"empty cart", nil},
		{"zero quantity", []CartLine{{ItemID: "beer", ItemType: ItemTypeDrink, Quantity: 0, UnitPrice: 700}}},
		{"negative price", []CartLine{{ItemID: "beer", ItemType: ItemTypeDrink, Quantity: 1, UnitPrice: -700}}},
		{"drink with chips", []CartLine{{ItemID: "beer", ItemType: ItemTypeDrink, Quantity: 1, UnitPrice: 700, ChipsPerUnit: 100}}},
		{"chip without chips", []CartLine{{ItemID: "chip-0", ItemType: ItemTypeChip, Quantity: 1, UnitPrice: 1000}}},
		{"unknown type", []CartLine{{ItemID: "x", ItemType: "food", Quantity: 1, UnitPrice: 500}}},
	}
	for _, tc := range cases {
		if _, err := ValidateCart(tc.lines); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

package enums

import "testing"

func TestOrderStatusConsumesInventory(t *testing.T) {
	holding := []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusCompleted}
	for _, status := range holding {
		if !status.ConsumesInventory() {
			t.Fatalf("expected %s to consume inventory", status)
		}
	}

	released := []OrderStatus{OrderStatusWaitlist, OrderStatusCancelled}
	for _, status := range released {
		if status.ConsumesInventory() {
			t.Fatalf("expected %s to release inventory", status)
		}
	}
}

func TestOrderStatusImmutable(t *testing.T) {
	if !OrderStatusPaid.Immutable() || !OrderStatusCompleted.Immutable() {
		t.Fatalf("paid and completed orders must be immutable")
	}
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusWaitlist, OrderStatusCancelled} {
		if status.Immutable() {
			t.Fatalf("expected %s to be deletable", status)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("waitlist")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if status != OrderStatusWaitlist {
		t.Fatalf("expected waitlist, got %s", status)
	}

	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

package models

import (
	"regexp"
	"testing"
)

func TestNewOrderNumberFormat(t *testing.T) {
	format := regexp.MustCompile(`^ORD-\d+-[0-9A-Z]{9}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		num := NewOrderNumber()
		if !format.MatchString(num) {
			t.Fatalf("NewOrderNumber() = %q, want ORD-<millis>-<9 chars>", num)
		}
		if seen[num] {
			t.Fatalf("NewOrderNumber() produced duplicate %q", num)
		}
		seen[num] = true
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{
		StatusPending, StatusConfirmed, StatusPreparing,
		StatusDelivering, StatusDelivered, StatusCancelled,
	} {
		if !s.Valid() {
			t.Errorf("%s.Valid() = false, want true", s)
		}
	}
	for _, s := range []OrderStatus{"", "new", "shipped", "Pending"} {
		if s.Valid() {
			t.Errorf("%q.Valid() = true, want false", s)
		}
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusConfirmed, StatusCancelled, false},
		{StatusPreparing, StatusDelivering, true},
		{StatusDelivering, StatusDelivered, true},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

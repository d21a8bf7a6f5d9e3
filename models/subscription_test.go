package models

import "testing"

func TestSubscriptionIsEntitled(t *testing.T) {
	tests := []struct {
		name string
		sub  *Subscription
		want bool
	}{
		{"nil subscription", nil, false},
		{"active", &Subscription{Status: SubscriptionStatusActive}, true},
		{"trialing", &Subscription{Status: SubscriptionStatusTrialing}, true},
		{"canceled", &Subscription{Status: SubscriptionStatusCanceled}, false},
		{"past due", &Subscription{Status: SubscriptionStatusPastDue}, false},
		{"unpaid", &Subscription{Status: SubscriptionStatusUnpaid}, false},
		{"incomplete", &Subscription{Status: SubscriptionStatusIncomplete}, false},
		{"active but flagged for cancellation", &Subscription{Status: SubscriptionStatusActive, CancelAtPeriodEnd: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.IsEntitled(); got != tt.want {
				t.Errorf("IsEntitled() = %v, want %v", got, tt.want)
			}
		})
	}
}

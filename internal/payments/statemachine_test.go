package payments

import (
	"testing"

	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		name    string
		current enums.PaymentStatus
		event   TransitionEvent
		want    enums.PaymentStatus
		wantErr bool
	}{
		{"pending success", enums.PaymentStatusPending, EventProviderSuccess, enums.PaymentStatusCompleted, false},
		{"pending failure", enums.PaymentStatusPending, EventProviderFailure, enums.PaymentStatusFailed, false},
		{"pending cancel", enums.PaymentStatusPending, EventCancel, enums.PaymentStatusCancelled, false},
		{"completed is terminal", enums.PaymentStatusCompleted, EventProviderSuccess, "", true},
		{"completed cannot cancel", enums.PaymentStatusCompleted, EventCancel, "", true},
		{"failed is terminal", enums.PaymentStatusFailed, EventProviderSuccess, "", true},
		{"cancelled is terminal", enums.PaymentStatusCancelled, EventProviderFailure, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.current, tc.event)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s + %s", tc.current, tc.event)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, next)
			}
		})
	}
}

package payments

import (
	"fmt"

	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

// TransitionEvent is a trigger that may move a payment between statuses.
type TransitionEvent string

const (
	EventProviderSuccess TransitionEvent = "provider_success"
	EventProviderFailure TransitionEvent = "provider_failure"
	EventCancel          TransitionEvent = "cancel"
)

// TransitionSource records what triggered a transition, for audit logging.
type TransitionSource string

const (
	SourceManualVerify TransitionSource = "manual_verify"
	SourceWebhook      TransitionSource = "webhook"
	SourceClient       TransitionSource = "client"
)

var transitions = map[enums.PaymentStatus]map[TransitionEvent]enums.PaymentStatus{
	enums.PaymentStatusPending: {
		EventProviderSuccess: enums.PaymentStatusCompleted,
		EventProviderFailure: enums.PaymentStatusFailed,
		EventCancel:          enums.PaymentStatusCancelled,
	},
}

// Transition resolves the next status for (current, event). Terminal statuses
// accept no events; an illegal pair is rejected, never silently absorbed.
func Transition(current enums.PaymentStatus, event TransitionEvent) (enums.PaymentStatus, error) {
	allowed, ok := transitions[current]
	if !ok {
		return "", fmt.Errorf("status %q is terminal, no transitions allowed", current)
	}
	next, ok := allowed[event]
	if !ok {
		return "", fmt.Errorf("event %q is not valid from status %q", event, current)
	}
	return next, nil
}

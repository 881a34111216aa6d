package enums

import "fmt"

// QuoteStatus mirrors the quote store's lifecycle. Only the payable subset
// matters to the payment core; the rest exists so stored quotes round-trip.
type QuoteStatus string

const (
	QuoteStatusDraft          QuoteStatus = "draft"
	QuoteStatusApproved       QuoteStatus = "approved"
	QuoteStatusPendingPayment QuoteStatus = "pending_payment"
	QuoteStatusPaid           QuoteStatus = "paid"
	QuoteStatusRejected       QuoteStatus = "rejected"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusDraft,
	QuoteStatusApproved,
	QuoteStatusPendingPayment,
	QuoteStatusPaid,
	QuoteStatusRejected,
}

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// IsPayable reports whether a quote in this status may accept payments.
func (q QuoteStatus) IsPayable() bool {
	return q == QuoteStatusApproved || q == QuoteStatusPendingPayment
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}

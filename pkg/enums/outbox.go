package enums

// OutboxEventType identifies domain events queued for publication.
type OutboxEventType string

const (
	OutboxEventPaymentCompleted OutboxEventType = "payment.completed"
	OutboxEventPaymentFailed    OutboxEventType = "payment.failed"
	OutboxEventPaymentCancelled OutboxEventType = "payment.cancelled"
)

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	switch o {
	case OutboxEventPaymentCompleted, OutboxEventPaymentFailed, OutboxEventPaymentCancelled:
		return true
	default:
		return false
	}
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregatePayment OutboxAggregateType = "payment"
)

package agreement

import "time"

const (
	EventTenantRegistered   = "TENANT_REGISTERED"
	EventRentPaid           = "RENT_PAID"
	EventExtraChargesSet    = "EXTRA_CHARGES_SET"
	EventMonthlyRentDue     = "MONTHLY_RENT_DUE"
	EventPeriodExtended     = "PERIOD_EXTENDED"
	EventRentalTerminated   = "RENTAL_TERMINATED"
	EventRentCollected      = "RENT_COLLECTED"
	EventChangeCollected    = "CHANGE_COLLECTED"
	EventPaymentFailed      = "PAYMENT_FAILED"
	EventUnexpectedTransfer = "UNEXPECTED_TRANSFER"
)

type Event struct {
	Type   string         `json:"type"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

// AuditSink receives every event the agreement emits. The agreement's
// correctness never depends on the sink being observed; NopSink is valid.
type AuditSink interface {
	Emit(e Event)
}

type NopSink struct{}

func (NopSink) Emit(Event) {}

// Recorder buffers events in order. The rental service flushes the buffer to
// storage inside the same transaction that saves the agreement row.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

func (r *Recorder) Reset() { r.Events = nil }

func (a *Agreement) emit(typ string, fields map[string]any) {
	a.sink.Emit(Event{Type: typ, At: a.now().UTC(), Fields: fields})
}

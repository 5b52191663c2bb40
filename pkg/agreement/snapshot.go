package agreement

import (
	"time"

	"leaselane/pkg/domain"
)

// Snapshot is the full persisted state of an agreement, exactly the fields a
// store needs to round-trip one instance.
type Snapshot struct {
	Owner             domain.Account
	Tenant            domain.Account
	MonthlyRent       int64
	Deposit           int64
	ExtraCharges      int64
	InitialPeriod     int64
	Start             int64
	Expiration        int64
	Status            domain.RentStatus
	UncollectedRent   int64
	UncollectedChange int64
}

func (a *Agreement) Snapshot() Snapshot {
	return Snapshot{
		Owner:             a.owner,
		Tenant:            a.tenant,
		MonthlyRent:       a.monthlyRent,
		Deposit:           a.deposit,
		ExtraCharges:      a.extraCharges,
		InitialPeriod:     a.initialPeriod,
		Start:             a.window.start,
		Expiration:        a.window.expiration,
		Status:            a.status,
		UncollectedRent:   a.ledger.uncollectedRent,
		UncollectedChange: a.ledger.uncollectedChange,
	}
}

// Restore rebuilds an agreement from persisted state, rejecting snapshots
// that violate the structural invariants (absent tenant iff inactive iff
// zeroed window; active windows strictly ordered; no negative amounts).
func Restore(s Snapshot, bank Transferer, sink AuditSink, now func() time.Time) (*Agreement, error) {
	if s.Owner.IsZero() || bank == nil || !s.Status.Valid() {
		return nil, domain.ErrInvalidParameter
	}
	if s.MonthlyRent < 0 || s.Deposit < 0 || s.ExtraCharges < 0 || s.InitialPeriod <= 0 ||
		s.UncollectedRent < 0 || s.UncollectedChange < 0 {
		return nil, domain.ErrInvalidParameter
	}
	if s.Tenant.IsZero() {
		if s.Status != domain.StatusInactive || s.Start != 0 || s.Expiration != 0 {
			return nil, domain.ErrInvalidParameter
		}
	} else {
		if s.Status == domain.StatusInactive || s.Expiration <= s.Start || s.Start <= 0 {
			return nil, domain.ErrInvalidParameter
		}
	}
	a := &Agreement{
		owner:         s.Owner,
		tenant:        s.Tenant,
		monthlyRent:   s.MonthlyRent,
		deposit:       s.Deposit,
		extraCharges:  s.ExtraCharges,
		initialPeriod: s.InitialPeriod,
		window:        timeWindow{start: s.Start, expiration: s.Expiration},
		status:        s.Status,
		ledger: paymentLedger{
			uncollectedRent:   s.UncollectedRent,
			uncollectedChange: s.UncollectedChange,
		},
		bank: bank,
		sink: sink,
		now:  now,
	}
	if a.sink == nil {
		a.sink = NopSink{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

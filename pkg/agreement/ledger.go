package agreement

import "leaselane/pkg/domain"

// paymentLedger tracks push payments that could not be delivered: rent owed
// to the owner and change owed to the tenant. Counters only grow through
// soft-failed transfers and only reach zero through a successful collect.
type paymentLedger struct {
	uncollectedRent   int64
	uncollectedChange int64
}

// creditedRent returns the counter value after adding amount, without
// mutating; operations precompute it so an overflow aborts before any state
// change.
func (l paymentLedger) creditedRent(amount int64) (int64, error) {
	return domain.CheckedAdd(l.uncollectedRent, amount)
}

func (l paymentLedger) creditedChange(amount int64) (int64, error) {
	return domain.CheckedAdd(l.uncollectedChange, amount)
}

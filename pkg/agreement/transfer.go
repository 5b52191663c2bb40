package agreement

import "leaselane/pkg/domain"

// Transferer is the host environment's push-payment primitive. A transfer is
// synchronous: delivery success or failure is known before it returns.
type Transferer interface {
	Transfer(to domain.Account, amount int64) error
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(to domain.Account, amount int64) error

func (f TransferFunc) Transfer(to domain.Account, amount int64) error { return f(to, amount) }

// send pushes amount to a recipient. Delivery failure never aborts the
// enclosing operation: it emits PaymentFailed and reports false, leaving the
// caller to record the debt. A zero amount is trivially delivered.
func (a *Agreement) send(to domain.Account, amount int64) bool {
	if amount == 0 {
		return true
	}
	if err := a.bank.Transfer(to, amount); err != nil {
		a.emit(EventPaymentFailed, map[string]any{
			"recipient": string(to),
			"amount":    amount,
			"reason":    err.Error(),
		})
		return false
	}
	return true
}

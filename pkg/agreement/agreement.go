package agreement

import (
	"time"

	"leaselane/pkg/domain"
)

// Agreement is the escrow state machine for one rental property: it holds
// who may act and when, exact-amount accounting for deposit and rent cycles,
// and pull-recovery bookkeeping for push payments that could not be
// delivered. One instance processes operations one at a time; a guard
// failure leaves every field untouched.
type Agreement struct {
	owner         domain.Account
	tenant        domain.Account
	monthlyRent   int64
	deposit       int64
	extraCharges  int64
	initialPeriod int64
	window        timeWindow
	status        domain.RentStatus
	ledger        paymentLedger

	// busy is the non-reentrant operation lock: set before any outbound
	// transfer, released on every exit path. A recipient calling back in
	// during its own payout fails with ErrOperationInProgress.
	busy bool

	bank Transferer
	sink AuditSink
	now  func() time.Time
}

type Config struct {
	Owner         domain.Account
	MonthlyRent   int64
	Deposit       int64
	InitialPeriod int64 // seconds
	Bank          Transferer
	Sink          AuditSink
	Now           func() time.Time
}

func New(cfg Config) (*Agreement, error) {
	if cfg.Owner.IsZero() || cfg.Bank == nil {
		return nil, domain.ErrInvalidParameter
	}
	if cfg.MonthlyRent < 0 || cfg.Deposit < 0 || cfg.InitialPeriod <= 0 {
		return nil, domain.ErrInvalidParameter
	}
	a := &Agreement{
		owner:         cfg.Owner,
		monthlyRent:   cfg.MonthlyRent,
		deposit:       cfg.Deposit,
		initialPeriod: cfg.InitialPeriod,
		status:        domain.StatusInactive,
		bank:          cfg.Bank,
		sink:          cfg.Sink,
		now:           cfg.Now,
	}
	if a.sink == nil {
		a.sink = NopSink{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

func (a *Agreement) begin() error {
	if a.busy {
		return domain.ErrOperationInProgress
	}
	a.busy = true
	return nil
}

func (a *Agreement) end() { a.busy = false }

func (a *Agreement) nowUnix() int64 { return a.now().UTC().Unix() }

// RegisterTenant activates a tenancy. The caller becomes the tenant; there is
// no separate designation step, so the only gate on identity is that no
// tenant is currently registered.
func (a *Agreement) RegisterTenant(caller domain.Account, payment int64) error {
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	if err := a.requireInactive(); err != nil {
		return err
	}
	if caller.IsZero() || caller == a.owner {
		return domain.ErrAccessDenied
	}
	if payment < 0 {
		return domain.ErrInvalidParameter
	}
	if payment < a.deposit {
		return domain.ErrInsufficientFunds
	}
	now := a.nowUnix()
	win, err := activatedWindow(now, a.initialPeriod)
	if err != nil {
		return err
	}
	creditedRent, err := a.ledger.creditedRent(a.deposit)
	if err != nil {
		return err
	}

	a.tenant = caller
	a.window = win
	a.status = domain.StatusPaid
	a.emit(EventTenantRegistered, map[string]any{
		"tenant":     string(caller),
		"deposit":    a.deposit,
		"start":      win.start,
		"expiration": win.expiration,
	})
	if !a.send(a.owner, a.deposit) {
		a.ledger.uncollectedRent = creditedRent
	}
	return nil
}

// PayRent settles the current cycle. The amount due is monthlyRent plus any
// extra charges; surplus is pushed straight back to the tenant.
func (a *Agreement) PayRent(caller domain.Account, payment int64) error {
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	if err := a.requireTenant(caller); err != nil {
		return err
	}
	if err := a.requireValid(a.nowUnix()); err != nil {
		return err
	}
	if a.status != domain.StatusUnpaid {
		return domain.ErrRentNotDue
	}
	if payment < 0 {
		return domain.ErrInvalidParameter
	}
	due, err := domain.CheckedAdd(a.monthlyRent, a.extraCharges)
	if err != nil {
		return err
	}
	if payment < due {
		return domain.ErrInsufficientFunds
	}
	surplus, err := domain.CheckedSub(payment, due)
	if err != nil {
		return err
	}
	creditedRent, err := a.ledger.creditedRent(due)
	if err != nil {
		return err
	}
	creditedChange, err := a.ledger.creditedChange(surplus)
	if err != nil {
		return err
	}

	a.status = domain.StatusPaid
	a.extraCharges = 0
	a.emit(EventRentPaid, map[string]any{"amount": due, "surplus": surplus})
	if !a.send(a.owner, due) {
		a.ledger.uncollectedRent = creditedRent
	}
	if surplus > 0 && !a.send(a.tenant, surplus) {
		a.ledger.uncollectedChange = creditedChange
	}
	return nil
}

// SetMonthlyCharges opens the next rent cycle: the agreement flips to UNPAID
// and the extra amount is owed on top of the monthly rent until paid.
func (a *Agreement) SetMonthlyCharges(caller domain.Account, extra int64) error {
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if err := a.requireValid(a.nowUnix()); err != nil {
		return err
	}
	if extra < 0 {
		return domain.ErrInvalidParameter
	}
	totalDue, err := domain.CheckedAdd(a.monthlyRent, extra)
	if err != nil {
		return err
	}

	a.status = domain.StatusUnpaid
	a.extraCharges = extra
	a.emit(EventExtraChargesSet, map[string]any{"extra_charges": extra})
	a.emit(EventMonthlyRentDue, map[string]any{"total_due": totalDue})
	return nil
}

func (a *Agreement) ExtendRentalPeriod(caller domain.Account, delta int64) error {
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if err := a.requireValid(a.nowUnix()); err != nil {
		return err
	}
	win, err := a.window.extended(delta)
	if err != nil {
		return err
	}

	a.window = win
	a.emit(EventPeriodExtended, map[string]any{"delta": delta, "expiration": win.expiration})
	return nil
}

// RefundAmount is the exact payment TerminateRental requires: the deposit
// plus any change still owed to the tenant, less (monthlyRent - extraCharges)
// when the current cycle is unpaid. The subtraction is kept exactly as the
// contract terms state it.
func (a *Agreement) RefundAmount() (int64, error) {
	refund, err := domain.CheckedAdd(a.deposit, a.ledger.uncollectedChange)
	if err != nil {
		return 0, err
	}
	if a.status == domain.StatusUnpaid {
		gap, err := domain.CheckedSub(a.monthlyRent, a.extraCharges)
		if err != nil {
			return 0, err
		}
		refund, err = domain.CheckedSub(refund, gap)
		if err != nil {
			return 0, err
		}
	}
	return refund, nil
}

// TerminateRental ends the tenancy. Termination is owner-funded: the owner
// attaches exactly RefundAmount, which is relayed to the tenant. A failed
// relay emits PaymentFailed but is not requeued; the ledger's change counter
// is cleared either way.
func (a *Agreement) TerminateRental(caller domain.Account, payment int64) error {
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	if err := a.requireOwner(caller); err != nil {
		return err
	}
	if err := a.requireValid(a.nowUnix()); err != nil {
		return err
	}
	refund, err := a.RefundAmount()
	if err != nil {
		return err
	}
	if payment != refund {
		return domain.ErrWrongRefundAmount
	}
	tenant := a.tenant

	a.status = domain.StatusInactive
	a.window = timeWindow{}
	a.tenant = ""
	a.extraCharges = 0
	a.ledger.uncollectedChange = 0
	a.emit(EventRentalTerminated, map[string]any{"tenant": string(tenant), "refund": refund})
	a.send(tenant, refund)
	return nil
}

// CollectRent is the owner's pull recovery for rent pushes that failed. No
// partial collection: either the full counter is delivered and zeroed, or
// nothing changes and the attempt stays retriable.
func (a *Agreement) CollectRent(caller domain.Account) (int64, error) {
	if err := a.begin(); err != nil {
		return 0, err
	}
	defer a.end()

	if err := a.requireOwner(caller); err != nil {
		return 0, err
	}
	amount := a.ledger.uncollectedRent
	if amount == 0 {
		return 0, domain.ErrNothingToCollect
	}
	if !a.send(a.owner, amount) {
		return 0, domain.ErrTransferFailed
	}
	a.ledger.uncollectedRent = 0
	a.emit(EventRentCollected, map[string]any{"amount": amount})
	return amount, nil
}

// CollectChange is the tenant's pull recovery for undelivered change.
func (a *Agreement) CollectChange(caller domain.Account) (int64, error) {
	if err := a.begin(); err != nil {
		return 0, err
	}
	defer a.end()

	if err := a.requireTenant(caller); err != nil {
		return 0, err
	}
	amount := a.ledger.uncollectedChange
	if amount == 0 {
		return 0, domain.ErrNothingToCollect
	}
	if !a.send(a.tenant, amount) {
		return 0, domain.ErrTransferFailed
	}
	a.ledger.uncollectedChange = 0
	a.emit(EventChangeCollected, map[string]any{"amount": amount})
	return amount, nil
}

// Receive rejects value sent outside any operation. The event is recorded
// before the rejection so the attempt is still auditable.
func (a *Agreement) Receive(sender domain.Account, amount int64) error {
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	a.emit(EventUnexpectedTransfer, map[string]any{
		"sender": string(sender),
		"amount": amount,
	})
	return domain.ErrUnexpectedTransfer
}

func (a *Agreement) Owner() domain.Account  { return a.owner }
func (a *Agreement) Tenant() domain.Account { return a.tenant }
func (a *Agreement) RequiredDeposit() int64 { return a.deposit }
func (a *Agreement) MonthlyRent() int64     { return a.monthlyRent }
func (a *Agreement) ExtraCharges() int64    { return a.extraCharges }

func (a *Agreement) RentStatus() domain.RentStatus { return a.status }

func (a *Agreement) ActivationTimestamp() int64 { return a.window.start }
func (a *Agreement) ExpirationTimestamp() int64 { return a.window.expiration }

// TimeUntilExpiration is valid only while the window is: before registration
// or after expiration it fails, at the exact expiration instant it returns 0.
func (a *Agreement) TimeUntilExpiration() (int64, error) {
	now := a.nowUnix()
	if err := a.requireValid(now); err != nil {
		return 0, err
	}
	return a.window.remaining(now)
}

func (a *Agreement) UncollectedRent() int64   { return a.ledger.uncollectedRent }
func (a *Agreement) UncollectedChange() int64 { return a.ledger.uncollectedChange }

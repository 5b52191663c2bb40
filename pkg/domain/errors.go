package domain

import "errors"

// Every error except ErrTransferFailed aborts its operation with zero state
// mutation. ErrTransferFailed is soft: the undelivered amount is recorded for
// pull recovery and the triggering operation completes.
var (
	ErrAccessDenied        = errors.New("caller does not hold the required role")
	ErrInvalidWindow       = errors.New("agreement is not active or has expired")
	ErrAlreadyOccupied     = errors.New("agreement already has a registered tenant")
	ErrInsufficientFunds   = errors.New("attached payment is below the required amount")
	ErrInvalidParameter    = errors.New("parameter is out of the accepted range")
	ErrNothingToCollect    = errors.New("no uncollected funds for this party")
	ErrRentNotDue          = errors.New("rent for the current cycle is already paid")
	ErrTransferFailed      = errors.New("outbound transfer was not delivered")
	ErrWrongRefundAmount   = errors.New("attached payment does not match the computed refund")
	ErrUnexpectedTransfer  = errors.New("incoming transfer matches no operation")
	ErrOperationInProgress = errors.New("another operation on this agreement is still executing")
	ErrAmountOverflow      = errors.New("amount arithmetic overflows")
)

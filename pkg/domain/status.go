package domain

type RentStatus string

const (
	StatusPaid   RentStatus = "PAID"
	StatusUnpaid RentStatus = "UNPAID"
	// StatusOverdue is part of the enumeration but no transition produces it.
	// Reserved for a future overdue-detection pass.
	StatusOverdue  RentStatus = "OVERDUE"
	StatusInactive RentStatus = "INACTIVE"
)

func (s RentStatus) Valid() bool {
	switch s {
	case StatusPaid, StatusUnpaid, StatusOverdue, StatusInactive:
		return true
	}
	return false
}

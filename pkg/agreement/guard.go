package agreement

import "leaselane/pkg/domain"

// Guards are pure preconditions composed at the top of every mutating
// operation. They never touch state.

func (a *Agreement) requireOwner(caller domain.Account) error {
	if caller.IsZero() || caller != a.owner {
		return domain.ErrAccessDenied
	}
	return nil
}

// requireTenant passes only for the registered tenant. While no tenant is
// registered it can never pass; registration therefore goes through
// requireInactive instead, with the registering caller becoming the tenant.
func (a *Agreement) requireTenant(caller domain.Account) error {
	if a.tenant.IsZero() || caller != a.tenant {
		return domain.ErrAccessDenied
	}
	return nil
}

func (a *Agreement) requireValid(now int64) error {
	if a.tenant.IsZero() || !a.window.contains(now) {
		return domain.ErrInvalidWindow
	}
	return nil
}

func (a *Agreement) requireInactive() error {
	if !a.tenant.IsZero() {
		return domain.ErrAlreadyOccupied
	}
	return nil
}

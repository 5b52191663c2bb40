package agreement

import "leaselane/pkg/domain"

// MaxExtension bounds a single period extension to one year of seconds.
const MaxExtension int64 = 365 * 24 * 60 * 60

// timeWindow owns the activation and expiration timestamps. Both are zero
// while no tenancy is active; while active, expiration > start.
type timeWindow struct {
	start      int64
	expiration int64
}

func activatedWindow(now, period int64) (timeWindow, error) {
	if now <= 0 || period <= 0 {
		return timeWindow{}, domain.ErrInvalidParameter
	}
	exp, err := domain.CheckedAdd(now, period)
	if err != nil {
		return timeWindow{}, err
	}
	return timeWindow{start: now, expiration: exp}, nil
}

func (w timeWindow) extended(delta int64) (timeWindow, error) {
	if delta <= 0 || delta > MaxExtension {
		return timeWindow{}, domain.ErrInvalidParameter
	}
	exp, err := domain.CheckedAdd(w.expiration, delta)
	if err != nil {
		return timeWindow{}, err
	}
	return timeWindow{start: w.start, expiration: exp}, nil
}

// contains is inclusive at both ends: now == expiration is still inside.
func (w timeWindow) contains(now int64) bool {
	return w.start != 0 && now >= w.start && now <= w.expiration
}

func (w timeWindow) remaining(now int64) (int64, error) {
	if !w.contains(now) {
		return 0, domain.ErrInvalidWindow
	}
	return domain.CheckedSub(w.expiration, now)
}

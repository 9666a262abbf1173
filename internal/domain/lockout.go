package domain

import "time"

// LockoutPolicy governs the failed-login guard. After Threshold consecutive
// failures the account refuses logins for Duration. The guard is evaluated
// before any password comparison, so a locked account costs no hashing work.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// Trips reports whether the given consecutive-failure count reaches the
// threshold. A non-positive threshold disables locking.
func (p LockoutPolicy) Trips(failures int) bool {
	return p.Threshold > 0 && failures >= p.Threshold
}

// LockExpiry returns when a lock applied at now ends
func (p LockoutPolicy) LockExpiry(now time.Time) time.Time {
	return now.Add(p.Duration)
}

// Locked reports whether the account is locked at the given instant.
// The failure counter is intentionally not consulted here: only a
// successful login clears it, so an expired lock with a high counter
// re-locks on the very next failure.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// LockRemaining returns the time until the lock ends, zero when unlocked
func (u *User) LockRemaining(now time.Time) time.Duration {
	if !u.Locked(now) {
		return 0
	}
	return u.LockedUntil.Sub(now)
}

// Package clock provides the injectable time source used by all deadline
// arithmetic. Expiry logic never calls time.Now directly so tests can pin
// the instant.
package clock

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the wall clock, in UTC.
func System() Clock { return systemClock{} }

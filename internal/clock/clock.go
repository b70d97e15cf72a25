// Package clock reads and steps the system clock and reports the kernel's
// clock discipline state.
package clock

import (
	"errors"
	"time"
)

// ErrUnsupported is returned on platforms without the required primitive
var ErrUnsupported = errors.New("not supported on this platform")

// System is the host wall clock
type System struct{}

// Now returns the current wall clock time
func (System) Now() time.Time {
	return time.Now()
}

// SetTime steps the wall clock to t. It needs the clock-set privilege.
func (System) SetTime(t time.Time) error {
	return setSystemTime(t)
}

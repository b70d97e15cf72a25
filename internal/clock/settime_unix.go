//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package clock

import (
	"time"

	"golang.org/x/sys/unix"
)

// setSystemTime sets the system time with settimeofday(2)
func setSystemTime(t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	return unix.Settimeofday(&tv)
}

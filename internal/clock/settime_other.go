//go:build !(linux || darwin || freebsd || openbsd || netbsd || dragonfly)

package clock

import (
	"fmt"
	"time"
)

func setSystemTime(t time.Time) error {
	return fmt.Errorf("set clock to %d: %w", t.Unix(), ErrUnsupported)
}

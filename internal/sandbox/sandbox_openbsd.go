//go:build openbsd

package sandbox

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func restrict(p Promises) error {
	if err := unix.PledgePromises(p.String()); err != nil {
		return fmt.Errorf("pledge: %w", err)
	}
	return nil
}

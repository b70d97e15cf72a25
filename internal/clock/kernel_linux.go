//go:build linux

package clock

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Read queries adjtimex(2) in read-only mode
func (k *KernelReader) Read() (*KernelStatus, error) {
	var tx unix.Timex

	state, err := unix.Adjtimex(&tx)
	if err != nil {
		return nil, fmt.Errorf("adjtimex: %w", err)
	}

	unit := time.Microsecond
	if tx.Status&STA_NANO != 0 {
		unit = time.Nanosecond
	}

	return &KernelStatus{
		Offset:     time.Duration(tx.Offset) * unit,
		MaxError:   time.Duration(tx.Maxerror) * time.Microsecond,
		EstError:   time.Duration(tx.Esterror) * time.Microsecond,
		Status:     int32(tx.Status),
		State:      state,
		SyncStatus: statusString(int32(tx.Status), state),
	}, nil
}

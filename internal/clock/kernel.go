package clock

import "time"

// Kernel time status bits (struct timex status)
const (
	STA_PLL      = 0x0001
	STA_INS      = 0x0010
	STA_DEL      = 0x0020
	STA_UNSYNC   = 0x0040
	STA_CLOCKERR = 0x1000
	STA_NANO     = 0x2000
)

// Kernel clock states returned by adjtimex
const (
	TIME_OK    = 0
	TIME_INS   = 1
	TIME_DEL   = 2
	TIME_OOP   = 3
	TIME_WAIT  = 4
	TIME_ERROR = 5
)

// KernelStatus is the subset of the kernel NTP state sntpc cares about
// before stepping the clock.
type KernelStatus struct {
	Offset     time.Duration
	MaxError   time.Duration
	EstError   time.Duration
	Status     int32
	State      int
	SyncStatus string
}

// Synchronized returns true if the kernel clock is marked synchronized
func (k *KernelStatus) Synchronized() bool {
	return (k.Status & STA_UNSYNC) == 0
}

// HasLeapSecond returns true if a leap second is pending
func (k *KernelStatus) HasLeapSecond() bool {
	return (k.Status&STA_INS) != 0 || (k.Status&STA_DEL) != 0
}

// statusString converts the status word and clock state to a label
func statusString(status int32, state int) string {
	if (status & STA_UNSYNC) != 0 {
		return "unsynchronized"
	}

	if (status & STA_CLOCKERR) != 0 {
		return "clock_error"
	}

	switch state {
	case TIME_OK:
		return "synchronized"
	case TIME_INS:
		return "leap_insert_pending"
	case TIME_DEL:
		return "leap_delete_pending"
	case TIME_OOP:
		return "leap_in_progress"
	case TIME_WAIT:
		return "leap_occurred"
	case TIME_ERROR:
		return "error"
	default:
		return "unknown"
	}
}

// KernelReader reads the kernel clock discipline state
type KernelReader struct{}

// NewKernelReader creates a new kernel reader
func NewKernelReader() *KernelReader {
	return &KernelReader{}
}

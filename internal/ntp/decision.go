package ntp

import (
	"fmt"
	"time"

	"github.com/ghewgill/sntpc/pkg/logger"
	"github.com/ghewgill/sntpc/pkg/mathutil"
)

// ClockSetter steps the system clock
type ClockSetter interface {
	SetTime(t time.Time) error
}

// Policy bounds which corrections may be applied
type Policy struct {
	// AllowBackwards permits stepping the clock to an earlier time
	AllowBackwards bool

	// MaxOffset is the largest acceptable absolute offset in seconds
	MaxOffset int64
}

// Decision is an accepted clock correction
type Decision struct {
	Local  int64 // local Unix seconds at decision time
	Server int64 // server Unix seconds from the reply
	Offset int64 // Local - Server; positive means the local clock is ahead
}

// Decide applies the directionality and threshold policies to a pair of
// clock readings.
func Decide(policy Policy, local, server int64) (Decision, error) {
	delta := local - server
	d := Decision{Local: local, Server: server, Offset: delta}

	if delta > 0 && !policy.AllowBackwards {
		return d, fmt.Errorf("%w (local clock ahead by %d seconds)", ErrBackwardsStepRefused, delta)
	}

	if mathutil.AbsInt64(delta) > policy.MaxOffset {
		return d, fmt.Errorf("%w (offset %d, threshold %d)", ErrOffsetExceedsThreshold, delta, policy.MaxOffset)
	}

	return d, nil
}

// Step sets the clock to the server time of an accepted decision, with a
// zero sub-second part.
func Step(setter ClockSetter, d Decision) (time.Time, error) {
	target := time.Unix(d.Server, 0)
	if err := setter.SetTime(target); err != nil {
		logger.SafeWarn("ntp", "Clock step failed", map[string]interface{}{
			"target": target.Unix(),
			"error":  err.Error(),
		})
		return time.Time{}, fmt.Errorf("%w: %v", ErrClockSet, err)
	}
	return target, nil
}

package ntp

import "errors"

// Setup errors
var (
	ErrSocket    = errors.New("socket")
	ErrResolve   = errors.New("resolve")
	ErrNoAddress = errors.New("no address for server")
)

// Transport errors
var (
	ErrSend       = errors.New("send")
	ErrReceive    = errors.New("recv")
	ErrNoResponse = errors.New("no response")
)

// Decode errors
var ErrShortReply = errors.New("short reply received")

// Protocol validation errors
var (
	ErrUnexpectedMode         = errors.New("unexpected reply mode from server")
	ErrKissOfDeath            = errors.New("got kiss-o-death message")
	ErrRootDelayTooLarge      = errors.New("root delay exceeds 1 second")
	ErrRootDispersionTooLarge = errors.New("root dispersion exceeds 1 second")
	ErrOriginateMismatch      = errors.New("unexpected originate timestamp in reply packet")
)

// Policy refusals
var (
	ErrBackwardsStepRefused   = errors.New("not stepping clock backwards (use -b to allow this)")
	ErrOffsetExceedsThreshold = errors.New("clock absolute offset exceeds threshold")
)

// ErrClockSet wraps a failure of the privileged clock-set primitive
var ErrClockSet = errors.New("settimeofday")

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrSocket, "socket"},
	{ErrResolve, "resolve"},
	{ErrNoAddress, "no_address"},
	{ErrSend, "send"},
	{ErrReceive, "receive"},
	{ErrNoResponse, "no_response"},
	{ErrShortReply, "short_reply"},
	{ErrUnexpectedMode, "unexpected_mode"},
	{ErrKissOfDeath, "kiss_of_death"},
	{ErrRootDelayTooLarge, "root_delay_too_large"},
	{ErrRootDispersionTooLarge, "root_dispersion_too_large"},
	{ErrOriginateMismatch, "originate_mismatch"},
	{ErrBackwardsStepRefused, "backwards_step_refused"},
	{ErrOffsetExceedsThreshold, "offset_exceeds_threshold"},
	{ErrClockSet, "clock_set"},
}

// ErrorKind returns a stable snake_case label for err, "none" for nil and
// "other" for errors outside the taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return "none"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}

// ErrorKinds lists every label ErrorKind can return for a non-nil error.
func ErrorKinds() []string {
	kinds := make([]string, 0, len(errorKinds)+1)
	for _, k := range errorKinds {
		kinds = append(kinds, k.kind)
	}
	return append(kinds, "other")
}

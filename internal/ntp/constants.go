package ntp

import "time"

// Wire layout
const (
	// PacketSize is the full encoded size including the authentication fields
	PacketSize = 68

	// MinReplySize is the smallest acceptable reply; servers may omit the
	// trailing key identifier and message digest
	MinReplySize = PacketSize - 20

	// ProtocolVersion is the NTP version stamped into requests
	ProtocolVersion = 4
)

// Association modes
const (
	ModeClient = 3
	ModeServer = 4
)

// EpochOffset is the number of seconds between 1900-01-01 and 1970-01-01
const EpochOffset = 25567 * 86400

// Exchange behavior constants
const (
	// DefaultPort is the NTP server UDP port
	DefaultPort = 123

	// DefaultWait is how long each attempt waits for a reply
	DefaultWait = 2 * time.Second

	// DefaultAttempts bounds the number of identical requests sent
	DefaultAttempts = 3
)

// Validation thresholds
const (
	// MaxRootDistanceRaw is one second in signed 16.16 fixed point
	MaxRootDistanceRaw = 0x10000

	// KissOfDeathStratum marks a control message rather than a time source
	KissOfDeathStratum = 0
)

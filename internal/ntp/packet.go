package ntp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/beevik/ntp"
)

// Timestamp is the 64-bit NTP timestamp split into its two big-endian
// words. Requests put a nonce in Fraction rather than a sub-second value.
type Timestamp struct {
	Seconds  uint32
	Fraction uint32
}

// Packet is the decoded 68-byte NTP packet shared by requests and replies.
type Packet struct {
	Flags              uint32
	RootDelay          uint32
	RootDispersion     uint32
	ReferenceID        [4]byte
	ReferenceTimestamp uint64
	Originate          Timestamp
	ReceiveTimestamp   uint64
	Transmit           Timestamp
	KeyID              uint32
	Digest             [16]byte
}

// Field offsets within the encoded packet
const (
	offFlags          = 0
	offRootDelay      = 4
	offRootDispersion = 8
	offReferenceID    = 12
	offReferenceTime  = 16
	offOriginate      = 24
	offReceive        = 32
	offTransmit       = 40
	offKeyID          = 48
	offDigest         = 52
)

// NTPToUnix converts seconds since 1900 into Unix seconds. The subtraction
// wraps in 32 bits, so era 1 timestamps (from 2036-02-07) map onto Unix
// seconds up to 2106.
func NTPToUnix(seconds uint32) int64 {
	return int64(seconds - EpochOffset)
}

// UnixToNTP converts Unix seconds into seconds since 1900, wrapping on the
// 32-bit era boundary.
func UnixToNTP(seconds int64) uint32 {
	return uint32(seconds + EpochOffset)
}

// NewNonce reads a 32-bit request nonce from r, or from crypto/rand when r
// is nil.
func NewNonce(r io.Reader) (uint32, error) {
	if r == nil {
		r = rand.Reader
	}
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read nonce: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// NewRequest builds a client-mode request carrying the given transmit
// timestamp.
func NewRequest(transmit Timestamp) Packet {
	return Packet{
		Flags:    ProtocolVersion<<27 | ModeClient<<24,
		Transmit: transmit,
	}
}

// EncodeRequest returns the wire form of a client request whose transmit
// timestamp is (seconds, fraction).
func EncodeRequest(seconds, fraction uint32) []byte {
	p := NewRequest(Timestamp{Seconds: seconds, Fraction: fraction})
	return p.Marshal()
}

// Marshal encodes the packet into its 68-byte big-endian form.
func (p *Packet) Marshal() []byte {
	buf := make([]byte, PacketSize)
	binary.BigEndian.PutUint32(buf[offFlags:], p.Flags)
	binary.BigEndian.PutUint32(buf[offRootDelay:], p.RootDelay)
	binary.BigEndian.PutUint32(buf[offRootDispersion:], p.RootDispersion)
	copy(buf[offReferenceID:offReferenceTime], p.ReferenceID[:])
	binary.BigEndian.PutUint64(buf[offReferenceTime:], p.ReferenceTimestamp)
	putTimestamp(buf[offOriginate:], p.Originate)
	binary.BigEndian.PutUint64(buf[offReceive:], p.ReceiveTimestamp)
	putTimestamp(buf[offTransmit:], p.Transmit)
	binary.BigEndian.PutUint32(buf[offKeyID:], p.KeyID)
	copy(buf[offDigest:], p.Digest[:])
	return buf
}

// DecodeReply decodes a reply datagram. The authentication fields are
// optional and decode as zero when absent.
func DecodeReply(b []byte) (Packet, error) {
	if len(b) < MinReplySize {
		return Packet{}, fmt.Errorf("%w (got %d, expected %d)", ErrShortReply, len(b), MinReplySize)
	}

	var full [PacketSize]byte
	copy(full[:], b)

	p := Packet{
		Flags:              binary.BigEndian.Uint32(full[offFlags:]),
		RootDelay:          binary.BigEndian.Uint32(full[offRootDelay:]),
		RootDispersion:     binary.BigEndian.Uint32(full[offRootDispersion:]),
		ReferenceTimestamp: binary.BigEndian.Uint64(full[offReferenceTime:]),
		Originate:          getTimestamp(full[offOriginate:]),
		ReceiveTimestamp:   binary.BigEndian.Uint64(full[offReceive:]),
		Transmit:           getTimestamp(full[offTransmit:]),
		KeyID:              binary.BigEndian.Uint32(full[offKeyID:]),
	}
	copy(p.ReferenceID[:], full[offReferenceID:offReferenceTime])
	copy(p.Digest[:], full[offDigest:])

	return p, nil
}

func putTimestamp(b []byte, ts Timestamp) {
	binary.BigEndian.PutUint32(b[0:], ts.Seconds)
	binary.BigEndian.PutUint32(b[4:], ts.Fraction)
}

func getTimestamp(b []byte) Timestamp {
	return Timestamp{
		Seconds:  binary.BigEndian.Uint32(b[0:]),
		Fraction: binary.BigEndian.Uint32(b[4:]),
	}
}

// Leap returns the leap indicator from the top two bits
func (p *Packet) Leap() ntp.LeapIndicator {
	return ntp.LeapIndicator(p.Flags >> 30)
}

// Version returns the protocol version number
func (p *Packet) Version() uint8 {
	return uint8(p.Flags>>27) & 0x07
}

// Mode returns the association mode (bits 24-26)
func (p *Packet) Mode() uint8 {
	return uint8((p.Flags & 0x07000000) >> 24)
}

// Stratum returns the server stratum
func (p *Packet) Stratum() uint8 {
	return uint8((p.Flags & 0x00ff0000) >> 16)
}

// Poll returns the log2 poll interval
func (p *Packet) Poll() int8 {
	return int8(p.Flags >> 8)
}

// Precision returns the log2 clock precision
func (p *Packet) Precision() int8 {
	return int8(p.Flags)
}

// SignedRootDelay interprets the root delay as signed 16.16 fixed point
func (p *Packet) SignedRootDelay() int32 {
	return int32(p.RootDelay)
}

// SignedRootDispersion interprets the root dispersion as signed 16.16 fixed point
func (p *Packet) SignedRootDispersion() int32 {
	return int32(p.RootDispersion)
}

// KissCode returns the ASCII kiss code carried in the reference identifier
// of a stratum 0 reply, or "" for any other stratum.
func (p *Packet) KissCode() string {
	if p.Stratum() != KissOfDeathStratum {
		return ""
	}
	code := make([]byte, 0, len(p.ReferenceID))
	for _, c := range p.ReferenceID {
		if c < 0x20 || c > 0x7e {
			break
		}
		code = append(code, c)
	}
	return string(code)
}

// leapString names a leap indicator for diagnostics
func leapString(li ntp.LeapIndicator) string {
	switch li {
	case ntp.LeapNoWarning:
		return "none"
	case ntp.LeapAddSecond:
		return "insert"
	case ntp.LeapDelSecond:
		return "delete"
	case ntp.LeapNotInSync:
		return "unsynchronized"
	default:
		return "unknown"
	}
}

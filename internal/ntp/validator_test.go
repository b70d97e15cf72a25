package ntp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testSent = Timestamp{Seconds: UnixToNTP(1700000000), Fraction: 0x5EED1234}

func validReply() Packet {
	return ServerReply(NewRequest(testSent), time.Unix(1700000001, 0), 2)
}

func TestValidateReply_Valid(t *testing.T) {
	reply := validReply()
	assert.NoError(t, ValidateReply(&reply, testSent))
}

func TestValidateReply_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Packet)
		want   error
	}{
		{
			name:   "client_mode",
			mutate: func(p *Packet) { p.Flags = p.Flags&^0x07000000 | 3<<24 },
			want:   ErrUnexpectedMode,
		},
		{
			name:   "broadcast_mode",
			mutate: func(p *Packet) { p.Flags = p.Flags&^0x07000000 | 5<<24 },
			want:   ErrUnexpectedMode,
		},
		{
			name:   "stratum_zero",
			mutate: func(p *Packet) { p.Flags &^= 0x00ff0000 },
			want:   ErrKissOfDeath,
		},
		{
			name:   "root_delay_one_second",
			mutate: func(p *Packet) { p.RootDelay = 0x10000 },
			want:   ErrRootDelayTooLarge,
		},
		{
			name:   "root_delay_minus_one_second",
			mutate: func(p *Packet) { p.RootDelay = 0xFFFF0000 },
			want:   ErrRootDelayTooLarge,
		},
		{
			name:   "root_dispersion_one_second",
			mutate: func(p *Packet) { p.RootDispersion = 0x10000 },
			want:   ErrRootDispersionTooLarge,
		},
		{
			name:   "root_dispersion_min_int32",
			mutate: func(p *Packet) { p.RootDispersion = 0x80000000 },
			want:   ErrRootDispersionTooLarge,
		},
		{
			name:   "originate_seconds_differ",
			mutate: func(p *Packet) { p.Originate.Seconds++ },
			want:   ErrOriginateMismatch,
		},
		{
			name:   "originate_fraction_differ",
			mutate: func(p *Packet) { p.Originate.Fraction ^= 1 },
			want:   ErrOriginateMismatch,
		},
		{
			name:   "originate_zero",
			mutate: func(p *Packet) { p.Originate = Timestamp{} },
			want:   ErrOriginateMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := validReply()
			tt.mutate(&reply)

			err := ValidateReply(&reply, testSent)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestValidateReply_RootBoundsJustBelowOneSecond(t *testing.T) {
	reply := validReply()
	reply.RootDelay = 0xFFFF
	reply.RootDispersion = uint32(0xFFFF0001) // -65535
	assert.NoError(t, ValidateReply(&reply, testSent))
}

func TestValidateReply_ModeWinsOverEverything(t *testing.T) {
	reply := validReply()
	reply.Flags = 3 << 24 // client mode, stratum 0
	reply.RootDelay = 0x7FFFFFFF
	reply.RootDispersion = 0x7FFFFFFF
	reply.Originate = Timestamp{}

	err := ValidateReply(&reply, testSent)
	assert.True(t, errors.Is(err, ErrUnexpectedMode))
}

func TestValidateReply_KissOfDeathWinsOverLaterChecks(t *testing.T) {
	reply := validReply()
	reply.Flags &^= 0x00ff0000
	copy(reply.ReferenceID[:], "RATE")
	reply.RootDelay = 0x7FFFFFFF
	reply.Originate = Timestamp{}

	err := ValidateReply(&reply, testSent)
	assert.True(t, errors.Is(err, ErrKissOfDeath))
	assert.Contains(t, err.Error(), `"RATE"`)
}

func TestValidateReply_MismatchReportsBothValues(t *testing.T) {
	reply := validReply()
	reply.Originate.Fraction = 0

	err := ValidateReply(&reply, testSent)
	assert.Contains(t, err.Error(), "5eed1234")
	assert.Contains(t, err.Error(), "got ")
}

func TestValidateServerAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"hostname", "pool.ntp.org", false},
		{"fqdn_trailing_dot", "time.example.com.", false},
		{"ipv4", "192.0.2.1", false},
		{"loopback", "127.0.0.1", false},
		{"single_label", "timehost", false},
		{"empty", "", true},
		{"ipv6", "2001:db8::1", true},
		{"shell_metachar", "pool.ntp.org;rm", true},
		{"null_byte", "pool\x00ntp", true},
		{"space", "pool ntp.org", true},
		{"too_long", string(make([]byte, 300)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServerAddress(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

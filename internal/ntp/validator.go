package ntp

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/ghewgill/sntpc/pkg/logger"
	"github.com/ghewgill/sntpc/pkg/mathutil"
)

var (
	hostnamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9\-_]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9_]([a-zA-Z0-9\-_]{0,61}[a-zA-Z0-9])?)*\.?$`)
	maliciousPattern = regexp.MustCompile(`[;&|<>$` + "`" + `\x00]`)
)

// ValidateReply applies the protocol and plausibility checks to a decoded
// reply. sent is the transmit timestamp of the request the reply answers.
// Checks run in a fixed order and the first failure is returned.
func ValidateReply(reply *Packet, sent Timestamp) error {
	if mode := reply.Mode(); mode != ModeServer {
		return fmt.Errorf("%w (got %d, expected %d)", ErrUnexpectedMode, mode, ModeServer)
	}

	if reply.Stratum() == KissOfDeathStratum {
		logger.Security("kiss_of_death", reply.KissCode(), map[string]interface{}{
			"reference_id": fmt.Sprintf("%x", reply.ReferenceID),
		})
		if code := reply.KissCode(); code != "" {
			return fmt.Errorf("%w (code %q)", ErrKissOfDeath, code)
		}
		return ErrKissOfDeath
	}

	if d := mathutil.AbsInt32(reply.SignedRootDelay()); d >= MaxRootDistanceRaw {
		return fmt.Errorf("%w (got %#x, limit %#x)", ErrRootDelayTooLarge, d, MaxRootDistanceRaw)
	}

	if d := mathutil.AbsInt32(reply.SignedRootDispersion()); d >= MaxRootDistanceRaw {
		return fmt.Errorf("%w (got %#x, limit %#x)", ErrRootDispersionTooLarge, d, MaxRootDistanceRaw)
	}

	if reply.Originate != sent {
		logger.Security("originate_mismatch", "reply does not echo request", map[string]interface{}{
			"expected": fmt.Sprintf("%08x.%08x", sent.Seconds, sent.Fraction),
			"got":      fmt.Sprintf("%08x.%08x", reply.Originate.Seconds, reply.Originate.Fraction),
		})
		return fmt.Errorf("%w (got %08x.%08x, expected %08x.%08x)", ErrOriginateMismatch,
			reply.Originate.Seconds, reply.Originate.Fraction, sent.Seconds, sent.Fraction)
	}

	return nil
}

// ValidateServerAddress validates an NTP server hostname or IP literal
func ValidateServerAddress(address string) error {
	if address == "" {
		return errors.New("server address is empty")
	}

	if len(address) > 255 {
		return errors.New("server address is too long")
	}

	if strings.Contains(address, "\x00") {
		return errors.New("server address contains null byte")
	}

	if maliciousPattern.MatchString(address) {
		return errors.New("server address contains invalid characters")
	}

	if ip := net.ParseIP(address); ip != nil {
		if ip.To4() == nil {
			return errors.New("only IPv4 server addresses are supported")
		}
		return nil
	}

	if !hostnamePattern.MatchString(address) {
		return errors.New("invalid server address format")
	}

	return nil
}

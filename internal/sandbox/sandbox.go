// Package sandbox restricts what the process may do once the command line
// has been read. On OpenBSD this is pledge(2); on Linux the capability sets
// are reduced to CAP_SYS_TIME (or nothing for a dry run) and
// no_new_privs is set.
package sandbox

import (
	"errors"
	"strings"

	"github.com/ghewgill/sntpc/pkg/logger"
)

// ErrUnsupported is returned where the platform offers no restriction
var ErrUnsupported = errors.New("sandbox not supported on this platform")

// Promises lists what the process still needs after restriction
type Promises struct {
	// SetTime keeps the ability to step the system clock
	SetTime bool
	// Files keeps the ability to create and write files
	Files bool
}

// String renders the promises in pledge(2) syntax
func (p Promises) String() string {
	promises := []string{"stdio", "inet", "dns"}
	if p.Files {
		promises = append(promises, "rpath", "wpath", "cpath")
	}
	if p.SetTime {
		promises = append(promises, "settime")
	}
	return strings.Join(promises, " ")
}

// Restrict applies p to the running process. It is irreversible.
func Restrict(p Promises) error {
	err := restrict(p)
	if err != nil {
		return err
	}
	logger.SafeDebug("sandbox", "Process restricted", map[string]interface{}{
		"promises": p.String(),
	})
	return nil
}

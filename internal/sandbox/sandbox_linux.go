//go:build linux

package sandbox

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

func restrict(p Promises) error {
	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var current [2]unix.CapUserData
	if err := unix.Capget(&hdr, &current[0]); err != nil {
		return fmt.Errorf("capget: %w", err)
	}

	// Only capabilities already held can be kept
	var keep [2]unix.CapUserData
	if p.SetTime {
		word, bit := unix.CAP_SYS_TIME/32, uint32(1)<<(unix.CAP_SYS_TIME%32)
		if current[word].Permitted&bit != 0 {
			keep[word].Permitted = bit
			keep[word].Effective = bit
		}
	}

	// Capabilities and no_new_privs are per thread, so apply them to every
	// thread of the runtime.
	if err := allThreads(unix.SYS_CAPSET, uintptr(unsafe.Pointer(&hdr)), uintptr(unsafe.Pointer(&keep[0])), 0); err != nil {
		return fmt.Errorf("capset: %w", err)
	}
	if err := allThreads(unix.SYS_PRCTL, unix.PR_SET_NO_NEW_PRIVS, 1, 0); err != nil {
		return fmt.Errorf("prctl(PR_SET_NO_NEW_PRIVS): %w", err)
	}
	return nil
}

func allThreads(trap, a1, a2, a3 uintptr) error {
	_, _, errno := syscall.AllThreadsSyscall(trap, a1, a2, a3)
	if errno == 0 {
		return nil
	}
	// Not available when linked with cgo
	if errors.Is(errno, syscall.ENOTSUP) {
		return ErrUnsupported
	}
	return errno
}

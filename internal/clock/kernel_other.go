//go:build !linux

package clock

import "fmt"

// Read is not supported outside Linux
func (k *KernelReader) Read() (*KernelStatus, error) {
	return nil, fmt.Errorf("kernel clock status: %w", ErrUnsupported)
}

//go:build !linux && !openbsd

package sandbox

func restrict(Promises) error {
	return ErrUnsupported
}

package doors

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// The package classifies kernel failures into this taxonomy. Every error
// returned by a fallible operation wraps both the matching sentinel and
// the underlying errno, so callers may test either way:
//
//	errors.Is(err, doors.ErrTargetDied)
//	errors.Is(err, unix.EBADF)
var (
	// ErrUnsupported: the running kernel has no doors facility.
	ErrUnsupported = errors.New("doors not supported on this platform")

	// ErrTargetDied: the server process is gone or the door was
	// revoked. Terminal for the handle; re-open the path instead of
	// retrying.
	ErrTargetDied = errors.New("door target died or was revoked")

	// ErrInterrupted: a signal interrupted the call. The call may be
	// retried; see Client.CallWithRetry.
	ErrInterrupted = errors.New("door call interrupted")

	// ErrArgumentsTooLarge: the payload or descriptor count exceeds
	// what the door accepts. Nothing was transferred.
	ErrArgumentsTooLarge = errors.New("door arguments exceed limits")

	// ErrInvalidHandle: the handle does not refer to a usable door.
	ErrInvalidHandle = errors.New("invalid door handle")

	// ErrNotADoor: the path exists but no door is attached to it.
	ErrNotADoor = errors.New("not a door")

	// ErrPathOccupied: Install found an existing entry at the path.
	// The entry is left untouched; use ForceInstall to replace it.
	ErrPathOccupied = errors.New("door path occupied")
)

// classify maps an errno from door_call(3C) and friends onto the package
// taxonomy. Errnos with no mapping are reported as-is.
func classify(err error) error {
	switch {
	case errors.Is(err, unix.ENOSYS):
		return ErrUnsupported
	case errors.Is(err, unix.EBADF):
		return ErrTargetDied
	case errors.Is(err, unix.EINTR):
		return ErrInterrupted
	case errors.Is(err, unix.E2BIG),
		errors.Is(err, unix.ENOBUFS),
		errors.Is(err, unix.ENFILE),
		errors.Is(err, unix.EOVERFLOW),
		errors.Is(err, unix.ENOTSUP):
		return ErrArgumentsTooLarge
	case errors.Is(err, unix.EINVAL):
		return ErrInvalidHandle
	}
	return nil
}

func opError(op string, err error) error {
	if kind := classify(err); kind != nil {
		return fmt.Errorf("%s: %w: %w", op, kind, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

//go:build !solaris

package syscall

import "golang.org/x/sys/unix"

// Doors exist only on illumos and Solaris. On other platforms the raw
// layer compiles but every entry point reports ENOSYS, the kernel's own
// answer for a missing facility.

func DoorCreate(p RawProcedure, cookie uint64, attr uint32) (int, error) {
	return -1, unix.ENOSYS
}

func DoorRevoke(fd int) error {
	return unix.ENOSYS
}

func DoorInfo(fd int) (Info, error) {
	return Info{}, unix.ENOSYS
}

func DoorCall(fd int, data []byte, descs []Desc, rbufSize int) ([]byte, []Desc, error) {
	return nil, nil, unix.ENOSYS
}

func Fattach(fd int, path string) error {
	return unix.ENOSYS
}

func Fdetach(path string) error {
	return unix.ENOSYS
}

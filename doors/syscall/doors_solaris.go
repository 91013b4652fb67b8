//go:build solaris

package syscall

/*
#include <errno.h>
#include <stdlib.h>
#include <sys/mman.h>
#include <sys/types.h>
#include <door.h>
#include <stropts.h>

#include "doorsrv.h"
*/
import "C"

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Return buffers smaller than this are rounded up so that small responses
// do not immediately force the kernel's overflow path.
const minReturnBuffer = 4096

// rawDoor is the dispatch record behind a door's cookie slot.
type rawDoor struct {
	proc   RawProcedure
	cookie uint64
}

// Registrations by door descriptor, so DoorRevoke can release the cgo
// handle the kernel holds in the cookie slot.
var (
	regMu sync.Mutex
	regs  = make(map[int]cgo.Handle)
)

// DoorCreate registers p with the kernel and returns a door descriptor for
// it. cookie is delivered to p on every invocation; attr is a combination
// of the Attr* bits.
//
// The kernel-visible server procedure is the package's C trampoline; the
// kernel's cookie slot carries an internal dispatch handle, which DoorInfo
// reports in Info.Cookie.
func DoorCreate(p RawProcedure, cookie uint64, attr uint32) (int, error) {
	h := cgo.NewHandle(&rawDoor{proc: p, cookie: cookie})
	fd, err := C.doorsrv_create(C.uintptr_t(uintptr(h)), C.uint_t(attr))
	if fd == -1 {
		h.Delete()
		return -1, errnoOr(err, unix.EINVAL)
	}
	regMu.Lock()
	regs[int(fd)] = h
	regMu.Unlock()
	return int(fd), nil
}

// DoorRevoke revokes the door associated with fd. Pending and subsequent
// door_call invocations against it fail with EBADF.
func DoorRevoke(fd int) error {
	rc, err := C.door_revoke(C.int(fd))
	if rc == -1 {
		return errnoOr(err, unix.EBADF)
	}
	regMu.Lock()
	if h, ok := regs[fd]; ok {
		h.Delete()
		delete(regs, fd)
	}
	regMu.Unlock()
	return nil
}

// DoorInfo returns the kernel's metadata for the door descriptor fd. It
// fails with EBADF if fd is not a door, which makes it the canonical "is
// this a door?" probe.
func DoorInfo(fd int) (Info, error) {
	var ci C.door_info_t
	rc, err := C.door_info(C.int(fd), &ci)
	if rc == -1 {
		return Info{}, errnoOr(err, unix.EBADF)
	}
	return Info{
		Target:     int(ci.di_target),
		Proc:       uintptr(ci.di_proc),
		Cookie:     uintptr(ci.di_data),
		Attributes: uint32(ci.di_attributes),
		Uniquifier: uint64(ci.di_uniquifier),
	}, nil
}

// DoorCall invokes the door behind fd with the given payload and
// descriptors and blocks until the server procedure answers or the kernel
// reports a failure.
//
// Argument memory is staged in C allocations (door_arg_t may not carry Go
// pointers across the call) and results are copied into Go-owned memory
// before returning; if the kernel substituted an overflow return buffer it
// is unmapped here, so callers never manage mapped regions. rbufSize is a
// hint for the reply buffer and is rounded up to a small minimum.
//
// A zero-length payload is sent with a null argument pointer, and an empty
// reply comes back as an empty, non-nil slice.
func DoorCall(fd int, data []byte, descs []Desc, rbufSize int) ([]byte, []Desc, error) {
	if rbufSize < minReturnBuffer {
		rbufSize = minReturnBuffer
	}

	var arg C.door_arg_t

	if len(data) > 0 {
		cdata := C.CBytes(data)
		defer C.free(cdata)
		arg.data_ptr = (*C.char)(cdata)
		arg.data_size = C.size_t(len(data))
	}
	if len(descs) > 0 {
		cdescs := C.malloc(C.size_t(len(descs)) * C.sizeof_door_desc_t)
		defer C.free(cdescs)
		for i, d := range descs {
			attr := C.uint_t(DescDescriptor)
			if d.Release {
				attr |= DescRelease
			}
			C.doorsrv_set_desc(descAt((*C.door_desc_t)(cdescs), i), C.int(d.Fd), attr)
		}
		arg.desc_ptr = (*C.door_desc_t)(cdescs)
		arg.desc_num = C.uint_t(len(descs))
	}

	rbuf := C.malloc(C.size_t(rbufSize))
	defer C.free(rbuf)
	arg.rbuf = (*C.char)(rbuf)
	arg.rsize = C.size_t(rbufSize)

	rc, err := C.door_call(C.int(fd), &arg)
	if rc == -1 {
		return nil, nil, errnoOr(err, unix.EINVAL)
	}

	// When the results did not fit in rbuf, the kernel mapped a fresh
	// buffer into our address space and pointed arg.rbuf at it. That
	// mapping is ours to reclaim once the results are copied out.
	if unsafe.Pointer(arg.rbuf) != rbuf {
		defer C.munmap(unsafe.Pointer(arg.rbuf), arg.rsize)
	}

	rdata := []byte{}
	if arg.data_size > 0 {
		rdata = C.GoBytes(unsafe.Pointer(arg.data_ptr), C.int(arg.data_size))
	}
	var rdescs []Desc
	for i := 0; i < int(arg.desc_num); i++ {
		d := descAt(arg.desc_ptr, i)
		if uint32(C.doorsrv_desc_attr(d))&DescDescriptor != 0 {
			rdescs = append(rdescs, Desc{Fd: int(C.doorsrv_desc_fd(d))})
		}
	}
	return rdata, rdescs, nil
}

// Fattach attaches the door descriptor fd to an existing file at path.
func Fattach(fd int, path string) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	rc, err := C.fattach(C.int(fd), cpath)
	if rc == -1 {
		return errnoOr(err, unix.EINVAL)
	}
	return nil
}

// Fdetach detaches whatever descriptor is attached at path, leaving the
// underlying file in place.
func Fdetach(path string) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	rc, err := C.fdetach(cpath)
	if rc == -1 {
		return errnoOr(err, unix.EINVAL)
	}
	return nil
}

func descAt(base *C.door_desc_t, i int) *C.door_desc_t {
	return (*C.door_desc_t)(unsafe.Pointer(uintptr(unsafe.Pointer(base)) + uintptr(i)*C.sizeof_door_desc_t))
}

// errnoOr returns the errno cgo captured for a failed call, or fallback
// when the call failed without setting one.
func errnoOr(err error, fallback unix.Errno) error {
	if err != nil {
		return err
	}
	return fallback
}

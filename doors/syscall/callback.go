//go:build solaris

package syscall

/*
#include <sys/types.h>
#include <string.h>
#include <door.h>

#include "doorsrv.h"
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

// goDoorProc is the Go half of the server-procedure trampoline. The kernel
// scheduled this thread into our address space on behalf of a door_call;
// the C trampoline forwards the raw arguments here and issues door_return
// with whatever this function leaves in resp.
//
// The function must return normally in all cases: a panic unwinding out of
// an exported cgo callback aborts the process, and the trampoline's
// door_return must run to hand the thread back to the kernel.
//
//export goDoorProc
func goDoorProc(cookie unsafe.Pointer, argp *C.char, argSize C.size_t, dp *C.door_desc_t, nDesc C.uint_t, resp *C.doorsrv_resp_t) {
	defer func() {
		if r := recover(); r != nil {
			resp.data = nil
			resp.size = 0
			resp.desc = nil
			resp.ndesc = 0
		}
	}()

	d, ok := cgo.Handle(uintptr(cookie)).Value().(*rawDoor)
	if !ok {
		return
	}

	// Zero-copy view over the kernel's argument buffer; valid only until
	// this function returns. An absent payload still surfaces as an
	// empty, non-nil slice.
	data := []byte{}
	if argp != nil && argSize > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(argp)), int(argSize))
	}
	var descs []Desc
	for i := 0; i < int(nDesc); i++ {
		dd := descAt(dp, i)
		if uint32(C.doorsrv_desc_attr(dd))&DescDescriptor != 0 {
			descs = append(descs, Desc{Fd: int(C.doorsrv_desc_fd(dd))})
		}
	}

	rdata, rdescs := d.proc(d.cookie, data, descs)

	if len(rdata) > 0 {
		buf := C.doorsrv_databuf(C.size_t(len(rdata)))
		if buf == nil {
			return
		}
		C.memcpy(unsafe.Pointer(buf), unsafe.Pointer(&rdata[0]), C.size_t(len(rdata)))
		resp.data = buf
		resp.size = C.size_t(len(rdata))
	}
	if len(rdescs) > 0 {
		db := C.doorsrv_descbuf(C.uint_t(len(rdescs)))
		if db == nil {
			resp.data = nil
			resp.size = 0
			return
		}
		for i, d := range rdescs {
			attr := C.uint_t(DescDescriptor)
			if d.Release {
				attr |= DescRelease
			}
			C.doorsrv_set_desc(descAt(db, i), C.int(d.Fd), attr)
		}
		resp.desc = db
		resp.ndesc = C.uint_t(len(rdescs))
	}
}

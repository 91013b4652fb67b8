// Package syscall provides a low-level interface to the illumos doors
// facility.
//
// The functions in this package are direct transcriptions of the C calls
// documented in door_create(3C), door_call(3C), door_info(3C),
// door_revoke(3C), fattach(3C) and fdetach(3C). They perform no validation
// beyond what the kernel itself does and no retries; transient failures are
// reported to the caller as errnos. The doors package builds its safe
// interface on top of this one.
package syscall

// Door attribute bits, for use in the attr argument of DoorCreate and
// reported back in Info.Attributes.
//
// The values match the DOOR_* constants in sys/door.h.
const (
	// Deliver an unref notification when the door loses its last
	// reference.
	AttrUnref = 0x01

	// Use a private pool of server threads for this door.
	AttrPrivate = 0x02

	// Deliver unref notifications more than once.
	AttrUnrefMulti = 0x10

	// Prohibit clients from passing descriptors with their calls.
	AttrRefuseDesc = 0x40

	// Do not cancel the server thread when the client aborts its call.
	AttrNoCancel = 0x80

	// Do not issue thread-creation callbacks when the pool is depleted.
	AttrNoDepletionCB = 0x100

	// Set by the kernel: the descriptor is local to the current process.
	AttrLocal = 0x04

	// Set by the kernel: the door has been revoked.
	AttrRevoked = 0x08

	// Set by the kernel: the door is currently unreferenced.
	AttrIsUnref = 0x20

	// Set by the kernel: the door has a private thread-creation function.
	AttrPrivCreate = 0x200

	// Set by the kernel: a depletion callback is in effect.
	AttrDepletionCB = 0x400
)

// Descriptor-passing flag bits from sys/door.h. Every door_desc_t entry
// carries DescDescriptor; DescRelease additionally asks the kernel to close
// the sender's descriptor once it has been transferred.
const (
	DescDescriptor = 0x10000
	DescRelease    = 0x40000
)

// Desc describes one descriptor travelling with a door call or a door
// return, in either direction.
//
// On the sending side, Release selects move semantics: the kernel closes Fd
// in the sender once the transfer is complete, so the sender must not touch
// Fd again after handing it over. On the receiving side, Fd is a fresh
// descriptor valid in the receiver's process and Release is always false.
type Desc struct {
	Fd      int
	Release bool
}

// Info is the metadata the kernel keeps about a door, as returned by
// DoorInfo. It corresponds to door_info_t.
type Info struct {
	// Target is the pid of the door server process.
	Target int

	// Proc is the address of the server procedure in the server's
	// address space.
	Proc uintptr

	// Cookie is the raw cookie slot registered with door_create. For
	// doors created through this package it holds the internal dispatch
	// handle, not the caller's cookie value; caller cookies are delivered
	// to the RawProcedure on each invocation instead.
	Cookie uintptr

	// Attributes is a combination of the Attr* bits above.
	Attributes uint32

	// Uniquifier is a systemwide unique number assigned at creation.
	Uniquifier uint64
}

// Revoked reports whether the kernel has marked this door as revoked.
func (i Info) Revoked() bool {
	return i.Attributes&AttrRevoked != 0
}

// RawProcedure is the Go-side shape of a door server procedure.
//
// The doors runtime invokes it on a thread the kernel created inside the
// server process, possibly many times concurrently. cookie is the value the
// door was created with. data is a view over the kernel's argument buffer:
// it is valid only until the procedure returns and must not be retained or
// written to. descs carries any descriptors the client passed; they are
// owned by the callee.
//
// The returned payload and descriptors are copied into a per-thread return
// area before the thread parks in door_return, so the procedure may return
// memory of any lifetime. A panic escaping a RawProcedure would unwind into
// the kernel's thread management; callers must recover before returning.
type RawProcedure func(cookie uint64, data []byte, descs []Desc) ([]byte, []Desc)

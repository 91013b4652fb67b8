package doors

import (
	"fmt"
	"os"
)

// Descriptor is an open file-like resource travelling with a door call or
// response.
//
// The kernel transfers a duplicate into the receiving process: the
// descriptor number on the far side bears no relation to the one passed
// in. A Descriptor built with [ReleaseDescriptor] is moved rather than
// copied; the kernel closes the sender's descriptor once the transfer
// completes, and the sender must not use the number again.
type Descriptor struct {
	// Fd is the descriptor number in the process that owns it.
	Fd int

	// Release requests move semantics when sending.
	Release bool
}

// NewDescriptor passes a duplicate of fd; the caller keeps its own copy.
func NewDescriptor(fd int) Descriptor {
	return Descriptor{Fd: fd}
}

// ReleaseDescriptor hands fd over entirely; the kernel closes the caller's
// copy after the transfer.
func ReleaseDescriptor(fd int) Descriptor {
	return Descriptor{Fd: fd, Release: true}
}

// File wraps a received descriptor in an os.File, which takes ownership
// of it.
func (d Descriptor) File() *os.File {
	return os.NewFile(uintptr(d.Fd), fmt.Sprintf("door-descriptor-%d", d.Fd))
}

// Request is the argument a Procedure receives for one invocation.
//
// Data is a view directly over the kernel's argument buffer: it is valid
// only until the procedure returns, and must be copied if any part of it
// is kept. A call with an empty payload arrives as an empty, non-nil Data.
type Request struct {
	// Cookie is the value the door was created with.
	Cookie uint64

	// Data is the caller's payload.
	Data []byte

	// Descriptors are any descriptors the caller passed; they are
	// owned by the procedure's process.
	Descriptors []Descriptor
}

// Response is what a Procedure hands back to the kernel for delivery to
// the caller. Ownership of Data and the descriptors transfers to the
// transport on return; the procedure must not mutate them afterwards.
//
// The zero Response answers with no payload and no descriptors.
type Response struct {
	// Data is the reply payload.
	Data []byte

	descriptors []Descriptor
}

// NewResponse answers with the given payload.
func NewResponse(data []byte) Response {
	return Response{Data: data}
}

// AddDescriptor attaches a descriptor to the response.
func (r Response) AddDescriptor(d Descriptor) Response {
	r.descriptors = append(r.descriptors[:len(r.descriptors):len(r.descriptors)], d)
	return r
}

// Descriptors returns the descriptors attached so far.
func (r Response) Descriptors() []Descriptor {
	return r.descriptors
}

// Result is the payload and descriptors a call returned. Unlike a
// Request, it is owned by the caller: Data is ordinary Go memory, and any
// Descriptors are open descriptors in the caller's process which the
// caller is responsible for closing.
type Result struct {
	Data        []byte
	Descriptors []Descriptor
}

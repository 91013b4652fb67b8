package doors

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	dsys "github.com/illumos-ipc/go-doors/doors/syscall"
)

// Client is an open handle to a door installed on the filesystem.
//
// Calls on one Client may proceed concurrently; each call carries its own
// argument and return buffers and the kernel supports concurrent
// invocations on one descriptor. Close waits for no one: a call racing
// with Close fails with ErrInvalidHandle rather than touching a reused
// descriptor.
//
// A Client stays valid only while the server keeps the door alive; once
// the door is revoked or the server exits, calls fail with ErrTargetDied
// and the Client should be re-opened.
type Client struct {
	mu       sync.RWMutex
	fd       int
	closed   bool
	path     string
	rbufSize int
}

// Open resolves path to a door.
//
// A missing path reports fs.ErrNotExist and denied access reports
// fs.ErrPermission, both via the wrapped os error; a path that exists but
// has no door attached reports ErrNotADoor.
func Open(path string) (*Client, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open door: %w", &os.PathError{Op: "open", Path: path, Err: err})
	}
	// door_info doubles as the "really a door?" probe; it fails with
	// EBADF on any ordinary file descriptor.
	if _, err := dsys.DoorInfo(fd); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.ENOSYS) {
			return nil, fmt.Errorf("open door %s: %w: %w", path, ErrUnsupported, err)
		}
		return nil, fmt.Errorf("open door %s: %w: %w", path, ErrNotADoor, err)
	}
	return &Client{fd: fd, path: path}, nil
}

// Call invokes the door synchronously and blocks until the server
// procedure answers. The returned Result is owned by the caller; any
// descriptors in it are open in this process and must be closed by the
// caller.
//
// An empty payload is legal and is delivered to the procedure as an
// empty request. Failures follow the package taxonomy: ErrTargetDied,
// ErrInterrupted, ErrArgumentsTooLarge, ErrInvalidHandle.
func (c *Client) Call(data []byte, descs ...Descriptor) (*Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, fmt.Errorf("call %s: %w", c.path, ErrInvalidHandle)
	}

	var sd []dsys.Desc
	if len(descs) > 0 {
		sd = make([]dsys.Desc, len(descs))
		for i, d := range descs {
			sd[i] = dsys.Desc{Fd: d.Fd, Release: d.Release}
		}
	}

	rdata, rdescs, err := dsys.DoorCall(c.fd, data, sd, c.rbufSize)
	if err != nil {
		return nil, opError("call "+c.path, err)
	}

	res := &Result{Data: rdata}
	for _, d := range rdescs {
		res.Descriptors = append(res.Descriptors, Descriptor{Fd: d.Fd})
	}
	return res, nil
}

// SetReturnBufferSize hints how much reply space to reserve per call.
// Replies that outgrow it still arrive intact through the kernel's
// overflow path, at the cost of an extra mapping per call.
func (c *Client) SetReturnBufferSize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rbufSize = n
}

// Info returns the kernel's metadata for the door this client is attached
// to: the server pid, procedure address, cookie slot and attribute bits.
func (c *Client) Info() (dsys.Info, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return dsys.Info{}, fmt.Errorf("door_info %s: %w", c.path, ErrInvalidHandle)
	}
	info, err := dsys.DoorInfo(c.fd)
	if err != nil {
		return dsys.Info{}, opError("door_info "+c.path, err)
	}
	return info, nil
}

// Path returns the path this client was opened from.
func (c *Client) Path() string {
	return c.path
}

// Close releases the client's descriptor. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}

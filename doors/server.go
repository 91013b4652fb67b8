package doors

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	dsys "github.com/illumos-ipc/go-doors/doors/syscall"
)

// Door is a created door, owned by the server process.
//
// A Door starts detached from the filesystem; Install or ForceInstall
// makes it callable by other processes. Close (or Revoke) invalidates the
// kernel descriptor on every exit path:
//
//	door, err := doors.Create(proc)
//	if err != nil { ... }
//	defer door.Close()
//
// A Door is safe for concurrent use. Exactly one Door owns a given kernel
// descriptor; do not duplicate the descriptor by other means.
type Door struct {
	mu      sync.Mutex
	fd      int
	path    string
	revoked bool
}

// Create registers proc as a door server procedure and returns its Door,
// with a zero cookie and no attributes.
func Create(proc Procedure) (*Door, error) {
	return CreateWithCookieAndAttributes(proc, 0, 0)
}

// CreateWithCookie is Create with a cookie value, delivered back in every
// Request. The cookie is readable by anyone who can reach the door; do
// not put secrets in it.
func CreateWithCookie(proc Procedure, cookie uint64) (*Door, error) {
	return CreateWithCookieAndAttributes(proc, cookie, 0)
}

// CreateWithAttributes is Create with door attribute bits.
func CreateWithAttributes(proc Procedure, attrs Attr) (*Door, error) {
	return CreateWithCookieAndAttributes(proc, 0, attrs)
}

// CreateWithCookieAndAttributes registers proc with both a cookie and
// attribute bits.
func CreateWithCookieAndAttributes(proc Procedure, cookie uint64, attrs Attr) (*Door, error) {
	if proc == nil {
		return nil, errors.New("door_create: nil procedure")
	}
	fd, err := dsys.DoorCreate(adapt(proc), cookie, uint32(attrs))
	if err != nil {
		if errors.Is(err, unix.ENOSYS) {
			return nil, fmt.Errorf("door_create: %w: %w", ErrUnsupported, err)
		}
		return nil, fmt.Errorf("door_create: %w", err)
	}
	return &Door{fd: fd}, nil
}

// adapt bridges a Procedure to the raw callback shape the kernel invokes.
// It reconstructs the Request view without copying the payload, and
// converts a panic into a defined empty response so that no failure can
// unwind into the kernel's thread management.
func adapt(proc Procedure) dsys.RawProcedure {
	return func(cookie uint64, data []byte, descs []dsys.Desc) (rdata []byte, rdescs []dsys.Desc) {
		defer func() {
			if r := recover(); r != nil {
				rdata, rdescs = nil, nil
			}
		}()

		req := Request{Cookie: cookie, Data: data}
		if len(descs) > 0 {
			req.Descriptors = make([]Descriptor, len(descs))
			for i, d := range descs {
				req.Descriptors[i] = Descriptor{Fd: d.Fd}
			}
		}

		resp := proc(req)

		rdata = resp.Data
		for _, d := range resp.descriptors {
			rdescs = append(rdescs, dsys.Desc{Fd: d.Fd, Release: d.Release})
		}
		return rdata, rdescs
	}
}

// Install attaches the door to path. The path must not exist; an existing
// entry is reported as ErrPathOccupied and left untouched.
func (d *Door) Install(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.install(path)
}

// ForceInstall attaches the door to path, detaching and removing any
// pre-existing entry first. Installing over a leftover from an unclean
// shutdown is its main use; calling it repeatedly is idempotent and
// leaves exactly one door attached.
func (d *Door) ForceInstall(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Nothing may be attached; only surface removal errors.
	dsys.Fdetach(path)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("force install %s: %w", path, err)
	}
	return d.install(path)
}

func (d *Door) install(path string) error {
	if d.revoked {
		return fmt.Errorf("install %s: %w", path, ErrInvalidHandle)
	}

	// The jamb: a fresh empty file for fattach to cover.
	jamb, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("install %s: %w: %w", path, ErrPathOccupied, err)
		}
		return fmt.Errorf("install %s: %w", path, err)
	}
	jamb.Close()

	if err := dsys.Fattach(d.fd, path); err != nil {
		os.Remove(path)
		if errors.Is(err, unix.EBUSY) {
			return fmt.Errorf("fattach %s: %w: %w", path, ErrPathOccupied, err)
		}
		return opError("fattach "+path, err)
	}
	d.path = path
	return nil
}

// Uninstall detaches the door from its installed path and removes the
// jamb. The door itself stays valid and may be installed again.
func (d *Door) Uninstall() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.path == "" {
		return nil
	}
	if err := dsys.Fdetach(d.path); err != nil {
		return opError("fdetach "+d.path, err)
	}
	if err := os.Remove(d.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("uninstall %s: %w", d.path, err)
	}
	d.path = ""
	return nil
}

// Revoke invalidates the door. Clients with open handles get
// ErrTargetDied from then on; blocked calls are unblocked. Revoke is
// idempotent. The filesystem entry, if any, is left behind (revoked);
// call Uninstall first to remove it.
func (d *Door) Revoke() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revoked {
		return nil
	}
	d.revoked = true
	if err := dsys.DoorRevoke(d.fd); err != nil {
		return opError("door_revoke", err)
	}
	return nil
}

// Close revokes the door. It implements io.Closer so a Door can sit
// behind the usual defer discipline.
func (d *Door) Close() error {
	return d.Revoke()
}

// Info returns the kernel's metadata for this door.
func (d *Door) Info() (dsys.Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revoked {
		return dsys.Info{}, fmt.Errorf("door_info: %w", ErrInvalidHandle)
	}
	info, err := dsys.DoorInfo(d.fd)
	if err != nil {
		return dsys.Info{}, opError("door_info", err)
	}
	return info, nil
}

// Path returns the filesystem path the door is currently installed at, or
// "" when detached.
func (d *Door) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

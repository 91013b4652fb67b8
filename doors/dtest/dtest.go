// Package dtest has helpers for doors-backed tests.
package dtest

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/illumos-ipc/go-doors/doors"
)

var probe struct {
	once sync.Once
	err  error
}

// RequireDoors skips the test unless the running kernel can create doors.
// The probe creates and immediately revokes a throwaway door once per test
// binary.
func RequireDoors(t testing.TB) {
	t.Helper()
	probe.once.Do(func() {
		d, err := doors.Create(func(doors.Request) doors.Response {
			return doors.Response{}
		})
		if err != nil {
			probe.err = err
			return
		}
		probe.err = d.Close()
	})
	if probe.err != nil {
		t.Skipf("doors unavailable: %v", probe.err)
	}
}

// Path returns a door path inside the test's temporary directory.
func Path(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.door")
}

// Serve creates a door for proc, installs it at a temporary path and
// tears it down when the test finishes. It skips the test where doors are
// unavailable.
func Serve(t testing.TB, proc doors.Procedure) string {
	t.Helper()
	RequireDoors(t)

	d, err := doors.Create(proc)
	if err != nil {
		t.Fatalf("doors.Create: %v", err)
	}
	path := Path(t)
	if err := d.ForceInstall(path); err != nil {
		d.Close()
		t.Fatalf("ForceInstall(%q): %v", path, err)
	}
	t.Cleanup(func() {
		d.Uninstall()
		d.Close()
	})
	return path
}

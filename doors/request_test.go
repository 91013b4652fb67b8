package doors_test

import (
	"testing"

	"github.com/illumos-ipc/go-doors/doors"
)

func TestResponseZeroValue(t *testing.T) {
	var r doors.Response
	if r.Data != nil {
		t.Errorf("zero Response.Data = %v, want nil", r.Data)
	}
	if n := len(r.Descriptors()); n != 0 {
		t.Errorf("zero Response has %d descriptors, want 0", n)
	}
}

func TestResponseAddDescriptor(t *testing.T) {
	r := doors.NewResponse([]byte("ok")).
		AddDescriptor(doors.NewDescriptor(3)).
		AddDescriptor(doors.ReleaseDescriptor(4))

	ds := r.Descriptors()
	if len(ds) != 2 {
		t.Fatalf("got %d descriptors, want 2", len(ds))
	}
	if ds[0].Fd != 3 || ds[0].Release {
		t.Errorf("descriptor 0 = %+v, want {Fd: 3, Release: false}", ds[0])
	}
	if ds[1].Fd != 4 || !ds[1].Release {
		t.Errorf("descriptor 1 = %+v, want {Fd: 4, Release: true}", ds[1])
	}
}

// Chained AddDescriptor calls that fork from a shared base must not
// clobber each other's descriptor lists.
func TestResponseAddDescriptorForking(t *testing.T) {
	base := doors.NewResponse(nil).AddDescriptor(doors.NewDescriptor(3))
	a := base.AddDescriptor(doors.NewDescriptor(4))
	b := base.AddDescriptor(doors.NewDescriptor(5))

	if fd := a.Descriptors()[1].Fd; fd != 4 {
		t.Errorf("a's second descriptor fd = %d, want 4", fd)
	}
	if fd := b.Descriptors()[1].Fd; fd != 5 {
		t.Errorf("b's second descriptor fd = %d, want 5", fd)
	}
}

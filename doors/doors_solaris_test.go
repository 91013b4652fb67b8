//go:build solaris

package doors_test

import (
	"bytes"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/illumos-ipc/go-doors/doors"
	"github.com/illumos-ipc/go-doors/doors/dtest"
)

func echo(req doors.Request) doors.Response {
	// The request view dies with the invocation; answer with a copy.
	return doors.NewResponse(bytes.Clone(req.Data))
}

func openClient(t *testing.T, path string) *doors.Client {
	t.Helper()
	c, err := doors.Open(path)
	if err != nil {
		t.Fatalf("doors.Open(%q): %v", path, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRoundTrip(t *testing.T) {
	path := dtest.Serve(t, echo)
	client := openClient(t, path)

	for _, tt := range []struct {
		Name    string
		Payload []byte
	}{
		{"OneByte", []byte{42}},
		{"Text", []byte("Hello, World!")},
		{"Binary", []byte{0, 1, 2, 0xff, 0, 0x80}},
		{"FourKiB", bytes.Repeat([]byte{0xAB}, 4096)},
		// Larger than the default return buffer: exercises the
		// kernel's overflow reply path.
		{"Overflow", bytes.Repeat([]byte("0123456789abcdef"), 8192)},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			res, err := client.Call(tt.Payload)
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if diff := cmp.Diff(tt.Payload, res.Data); diff != "" {
				t.Errorf("echo mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDouble(t *testing.T) {
	path := dtest.Serve(t, func(req doors.Request) doors.Response {
		if len(req.Data) == 0 {
			return doors.NewResponse([]byte{0})
		}
		return doors.NewResponse([]byte{req.Data[0] * 2})
	})
	client := openClient(t, path)

	for _, tt := range []struct {
		In   byte
		Want byte
	}{
		{111, 222},
		{200, 144}, // wraps mod 256
		{0, 0},
	} {
		res, err := client.Call([]byte{tt.In})
		if err != nil {
			t.Fatalf("Call([%d]): %v", tt.In, err)
		}
		if len(res.Data) != 1 || res.Data[0] != tt.Want {
			t.Errorf("double(%d) = %v, want [%d]", tt.In, res.Data, tt.Want)
		}
	}
}

func TestZeroLengthPayload(t *testing.T) {
	var sawNil atomic.Bool
	path := dtest.Serve(t, func(req doors.Request) doors.Response {
		if req.Data == nil {
			sawNil.Store(true)
		}
		return doors.NewResponse(bytes.Clone(req.Data))
	})
	client := openClient(t, path)

	res, err := client.Call(nil)
	if err != nil {
		t.Fatalf("Call(nil): %v", err)
	}
	if res.Data == nil || len(res.Data) != 0 {
		t.Errorf("Result.Data = %v, want empty non-nil slice", res.Data)
	}
	if sawNil.Load() {
		t.Error("procedure saw a nil payload, want empty non-nil slice")
	}
}

func TestConcurrentCalls(t *testing.T) {
	const calls = 32

	var (
		mu      sync.Mutex
		counter int
	)
	path := dtest.Serve(t, func(doors.Request) doors.Response {
		mu.Lock()
		counter++
		mu.Unlock()
		return doors.Response{}
	})
	client := openClient(t, path)

	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Call(nil); err != nil {
				t.Errorf("Call: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if counter != calls {
		t.Errorf("counter = %d, want %d", counter, calls)
	}
}

func TestCookieDelivery(t *testing.T) {
	dtest.RequireDoors(t)

	var got atomic.Uint64
	d, err := doors.CreateWithCookie(func(req doors.Request) doors.Response {
		got.Store(req.Cookie)
		return doors.Response{}
	}, 7127)
	if err != nil {
		t.Fatalf("CreateWithCookie: %v", err)
	}
	defer d.Close()

	path := dtest.Path(t)
	if err := d.Install(path); err != nil {
		t.Fatalf("Install: %v", err)
	}
	client := openClient(t, path)

	if _, err := client.Call(nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Load() != 7127 {
		t.Errorf("procedure saw cookie %d, want 7127", got.Load())
	}
}

func TestRevocationVisibility(t *testing.T) {
	dtest.RequireDoors(t)

	d, err := doors.Create(echo)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	path := dtest.Path(t)
	if err := d.ForceInstall(path); err != nil {
		t.Fatalf("ForceInstall: %v", err)
	}
	client := openClient(t, path)

	if _, err := client.Call([]byte("ping")); err != nil {
		t.Fatalf("Call before revoke: %v", err)
	}
	if err := d.Revoke(); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := client.Call([]byte("ping")); !errors.Is(err, doors.ErrTargetDied) {
		t.Errorf("Call after revoke = %v, want ErrTargetDied", err)
	}

	info, err := client.Info()
	if err == nil && !info.Revoked() {
		t.Errorf("Info after revoke = %+v, revoked bit not set", info)
	}

	// Revoke stays idempotent.
	if err := d.Revoke(); err != nil {
		t.Errorf("second Revoke: %v", err)
	}
}

func TestInstallOccupied(t *testing.T) {
	dtest.RequireDoors(t)

	d, err := doors.Create(echo)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	path := dtest.Path(t)
	if err := os.WriteFile(path, []byte("precious"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := d.Install(path); !errors.Is(err, doors.ErrPathOccupied) {
		t.Errorf("Install over existing file = %v, want ErrPathOccupied", err)
	}

	// The pre-existing entry must be untouched.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", path, err)
	}
	if string(data) != "precious" {
		t.Errorf("pre-existing file content = %q, want %q", data, "precious")
	}
}

func TestForceInstallIdempotent(t *testing.T) {
	dtest.RequireDoors(t)

	d, err := doors.Create(echo)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() {
		d.Uninstall()
		d.Close()
	}()

	path := dtest.Path(t)
	if err := d.ForceInstall(path); err != nil {
		t.Fatalf("first ForceInstall: %v", err)
	}
	if err := d.ForceInstall(path); err != nil {
		t.Fatalf("second ForceInstall: %v", err)
	}

	client := openClient(t, path)
	res, err := client.Call([]byte("still here"))
	if err != nil {
		t.Fatalf("Call after re-install: %v", err)
	}
	if string(res.Data) != "still here" {
		t.Errorf("echo after re-install = %q, want %q", res.Data, "still here")
	}
}

func TestDescriptorToServer(t *testing.T) {
	path := dtest.Serve(t, func(req doors.Request) doors.Response {
		if len(req.Descriptors) != 1 {
			return doors.NewResponse([]byte("no descriptor"))
		}
		f := req.Descriptors[0].File()
		defer f.Close()
		if _, err := f.WriteString("written by server"); err != nil {
			return doors.NewResponse([]byte(err.Error()))
		}
		return doors.NewResponse([]byte("ok"))
	})
	client := openClient(t, path)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	// Move the write end across; the kernel closes our copy.
	res, err := client.Call(nil, doors.ReleaseDescriptor(int(w.Fd())))
	if err != nil {
		t.Fatalf("Call with descriptor: %v", err)
	}
	if string(res.Data) != "ok" {
		t.Fatalf("server answered %q", res.Data)
	}

	buf := make([]byte, 64)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("reading pipe: %v", err)
	}
	if got := string(buf[:n]); got != "written by server" {
		t.Errorf("pipe carried %q, want %q", got, "written by server")
	}
}

func TestDescriptorToClient(t *testing.T) {
	path := dtest.Serve(t, func(doors.Request) doors.Response {
		r, w, err := os.Pipe()
		if err != nil {
			return doors.NewResponse([]byte(err.Error()))
		}
		w.WriteString("from the far side")
		w.Close()
		// Hand the read end over entirely.
		return doors.NewResponse([]byte("ok")).
			AddDescriptor(doors.ReleaseDescriptor(int(r.Fd())))
	})
	client := openClient(t, path)

	res, err := client.Call(nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(res.Data) != "ok" {
		t.Fatalf("server answered %q", res.Data)
	}
	if len(res.Descriptors) != 1 {
		t.Fatalf("got %d descriptors, want 1", len(res.Descriptors))
	}

	f := res.Descriptors[0].File()
	defer f.Close()
	buf := make([]byte, 64)
	n, err := f.Read(buf)
	if err != nil {
		t.Fatalf("reading received descriptor: %v", err)
	}
	if got := string(buf[:n]); got != "from the far side" {
		t.Errorf("received descriptor carried %q, want %q", got, "from the far side")
	}
}

func TestPanickingProcedure(t *testing.T) {
	path := dtest.Serve(t, func(req doors.Request) doors.Response {
		if string(req.Data) == "boom" {
			panic("deliberate")
		}
		return doors.NewResponse(bytes.Clone(req.Data))
	})
	client := openClient(t, path)

	// The panic is absorbed into a defined empty response.
	res, err := client.Call([]byte("boom"))
	if err != nil {
		t.Fatalf("Call(boom): %v", err)
	}
	if len(res.Data) != 0 {
		t.Errorf("panicking call answered %q, want empty", res.Data)
	}

	// The server keeps serving.
	res, err = client.Call([]byte("fine"))
	if err != nil {
		t.Fatalf("Call after panic: %v", err)
	}
	if string(res.Data) != "fine" {
		t.Errorf("echo after panic = %q, want %q", res.Data, "fine")
	}
}

func TestDoorInfo(t *testing.T) {
	path := dtest.Serve(t, echo)
	client := openClient(t, path)

	info, err := client.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Target != os.Getpid() {
		t.Errorf("Info.Target = %d, want %d (door server is this process)", info.Target, os.Getpid())
	}
	if info.Revoked() {
		t.Error("Info reports a live door as revoked")
	}
}

func TestUninstall(t *testing.T) {
	dtest.RequireDoors(t)

	d, err := doors.Create(echo)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	path := dtest.Path(t)
	if err := d.Install(path); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := d.Uninstall(); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := doors.Open(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open after Uninstall = %v, want os.ErrNotExist", err)
	}

	// The door survives uninstalling and may be installed again.
	if err := d.Install(path); err != nil {
		t.Fatalf("re-Install: %v", err)
	}
	defer d.Uninstall()
	client := openClient(t, path)
	if _, err := client.Call([]byte("hi")); err != nil {
		t.Errorf("Call after re-install: %v", err)
	}
}

func TestAwait(t *testing.T) {
	dtest.RequireDoors(t)

	d, err := doors.Create(echo)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	path := dtest.Path(t)

	go func() {
		time.Sleep(100 * time.Millisecond)
		d.ForceInstall(path)
	}()
	defer func() {
		d.Uninstall()
		d.Close()
	}()

	client, err := doors.Await(path, 5*time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	defer client.Close()

	res, err := client.Call([]byte("knock"))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(res.Data) != "knock" {
		t.Errorf("echo = %q, want %q", res.Data, "knock")
	}
}

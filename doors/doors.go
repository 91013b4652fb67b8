// Package doors is a safe interface to illumos doors, the kernel's
// filesystem-addressable synchronous RPC facility.
//
// A door turns a function into a file: the server registers a [Procedure]
// with [Create] and attaches the resulting [Door] to a path with
// [Door.Install], and any process that can open that path may invoke the
// procedure with [Client.Call]. The kernel runs the procedure on a thread
// it schedules directly inside the server process, which makes doors a
// low-latency alternative to socket-based local RPC.
//
// Payloads are opaque byte slices; callers layer their own encoding on
// top. Calls may additionally carry open file descriptors in either
// direction, delivered out of band from the payload.
//
//	// Server
//	door, err := doors.Create(func(req doors.Request) doors.Response {
//		if len(req.Data) == 0 {
//			return doors.Response{}
//		}
//		return doors.NewResponse([]byte{req.Data[0] * 2})
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer door.Close()
//	if err := door.ForceInstall("/tmp/double.door"); err != nil {
//		log.Fatal(err)
//	}
//
//	// Client
//	client, err := doors.Open("/tmp/double.door")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//	res, err := client.Call([]byte{111})
//	// res.Data is []byte{222}
//
// # Concurrency
//
// The kernel may invoke a registered procedure concurrently, arbitrarily
// many times, on threads the server process never spawned. Procedures that
// touch state shared across invocations must synchronize it themselves;
// this package adds no serialization of its own. On the client side a call
// blocks the issuing goroutine for the full round trip, and there is no
// cancellation: a blocked call ends only when the server answers, the door
// is revoked, the target dies, or a signal interrupts it (reported as
// [ErrInterrupted]).
//
// Doors exist only on illumos and Solaris. The package compiles
// everywhere; on other platforms every operation fails with
// [ErrUnsupported].
package doors

// Procedure is a door server procedure: it receives one request and
// produces one response.
//
// The kernel may call it concurrently from multiple threads; see the
// package documentation. The Request's payload and descriptor list are
// only valid for the duration of the invocation and must not be retained.
// A panic inside a Procedure is recovered at the kernel boundary and
// answered as an empty response; the server keeps serving.
type Procedure func(Request) Response

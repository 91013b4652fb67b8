package doors

import (
	"strings"

	dsys "github.com/illumos-ipc/go-doors/doors/syscall"
)

// Attr is a set of door attribute bits applied at creation time.
type Attr uint32

const (
	// Deliver an unref notification when the door loses its last
	// reference.
	Unref Attr = dsys.AttrUnref

	// Deliver unref notifications more than once.
	UnrefMulti Attr = dsys.AttrUnrefMulti

	// Serve this door from a private thread pool.
	Private Attr = dsys.AttrPrivate

	// Refuse calls that carry descriptors.
	RefuseDesc Attr = dsys.AttrRefuseDesc

	// Do not cancel the server thread when the client aborts.
	NoCancel Attr = dsys.AttrNoCancel

	// Do not issue thread-creation callbacks on pool depletion.
	NoDepletionCB Attr = dsys.AttrNoDepletionCB
)

var attrNames = []struct {
	bit  Attr
	name string
}{
	{Unref, "Unref"},
	{Private, "Private"},
	{UnrefMulti, "UnrefMulti"},
	{RefuseDesc, "RefuseDesc"},
	{NoCancel, "NoCancel"},
	{NoDepletionCB, "NoDepletionCB"},
}

func (a Attr) String() string {
	if a == 0 {
		return "∅"
	}
	var b strings.Builder
	b.WriteByte('{')
	for _, n := range attrNames {
		if a&n.bit == 0 {
			continue
		}
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		b.WriteString(n.name)
	}
	b.WriteByte('}')
	return b.String()
}

// Has reports whether every bit in b is set in a.
func (a Attr) Has(b Attr) bool {
	return a&b == b
}

// Package method provides the typed method descriptor that binds a wire
// method name to a parameter type and a return type at compile time.
//
// A protocol module declares one descriptor per method:
//
//	package proto
//
//	type AddParams struct{ A, B uint32 }
//
//	var Add = method.New[AddParams, uint32]("add")
//
// Both sides share the declaration: the client calls the descriptor to
// build a request, the server registers an implementation against it.
// The name is the only thing that crosses the wire; the two type
// parameters exist purely to type-check the call sites. Names must be
// unique within a protocol module — that is a declaration-time contract,
// not checked at runtime.
package method

import (
	"github.com/pkg/errors"

	"sockrpc/codec"
	"sockrpc/message"
)

// Unit is the empty parameter (or return) type for methods that declare
// no parameters or no return value.
type Unit struct{}

// Method binds a method name to a parameter type P and return type R.
// Descriptors are immutable values; copy and share them freely.
type Method[P, R any] struct {
	name string
}

// New builds the descriptor for the named method.
func New[P, R any](name string) Method[P, R] {
	return Method[P, R]{name: name}
}

// Name returns the wire identifier of the method.
func (m Method[P, R]) Name() string {
	return m.name
}

// Call serializes params (layer 1) and wraps them in a fresh Request.
// No implementation runs here — the result is a Call[R] ready to hand to
// a client dispatcher, whose type parameter tells the dispatcher what
// type to decode the reply into. The request itself carries no type
// information.
func (m Method[P, R]) Call(params P) (Call[R], error) {
	body, err := codec.Marshal(params)
	if err != nil {
		return Call[R]{}, errors.Wrapf(err, "encode params for %q", m.name)
	}
	return Call[R]{Req: message.NewRequest(m.name, body)}, nil
}

// Call is a built request paired with the expected reply type R.
type Call[R any] struct {
	Req *message.Request
}

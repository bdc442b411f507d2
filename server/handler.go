package server

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"sockrpc/codec"
	"sockrpc/message"
	"sockrpc/method"
)

// Callback is the type-erased form of a method implementation: it takes a
// request whose body is still opaque bytes and produces a finished
// response. The concrete parameter and return types live inside the
// closure, captured by Register.
type Callback func(req *message.Request) *message.Response

// Handler maps method names to type-erased callbacks. Build it fully
// before the server starts; afterwards it is read-only and safe to share
// across every connection task.
type Handler struct {
	callbacks map[string]Callback
}

func NewHandler() *Handler {
	return &Handler{callbacks: make(map[string]Callback)}
}

// Register binds an implementation to a method descriptor. The wrapped
// callback layer-1-decodes the parameters, invokes impl, layer-1-encodes
// the result, and replies. A request whose body does not decode as P gets
// an explicit error response rather than a dropped frame.
//
// Registering the same name twice silently overwrites the previous entry.
// Returns h so registrations chain:
//
//	server.Register(h, proto.Add, add)
//	server.Register(h, proto.Sub, sub)
func Register[P, R any](h *Handler, m method.Method[P, R], impl func(P) R) *Handler {
	h.callbacks[m.Name()] = func(req *message.Request) *message.Response {
		params, err := codec.Unmarshal[P](req.Body)
		if err != nil {
			return req.ReplyError(fmt.Sprintf("decode params for %q: %v", req.Method, err))
		}

		result := impl(params)

		body, err := codec.Marshal(result)
		if err != nil {
			return req.ReplyError(fmt.Sprintf("encode result for %q: %v", req.Method, err))
		}
		return req.Reply(body)
	}
	return h
}

// Dispatch routes a decoded request to its callback. An unregistered
// method gets an explicit error response, so the caller fails fast
// instead of waiting forever for a reply.
func (h *Handler) Dispatch(ctx context.Context, req *message.Request) *message.Response {
	cb, ok := h.callbacks[req.Method]
	if !ok {
		return req.ReplyError("unknown method: " + req.Method)
	}
	return cb(req)
}

// Handle processes one raw inbound envelope end to end: layer-2 decode,
// dispatch, layer-2 encode of the response. It fails only when the
// envelope itself is malformed — there is no request ID to address an
// error reply to in that case.
func (h *Handler) Handle(raw []byte) ([]byte, error) {
	cdc := codec.GetCodec(codec.CodecTypeBinary)

	var req message.Request
	if err := cdc.Decode(raw, &req); err != nil {
		return nil, errors.Wrap(err, "decode request envelope")
	}

	resp := h.Dispatch(context.Background(), &req)
	return cdc.Encode(resp)
}

// Methods returns the registered method names, for logging.
func (h *Handler) Methods() []string {
	names := make([]string, 0, len(h.callbacks))
	for name := range h.callbacks {
		names = append(names, name)
	}
	return names
}

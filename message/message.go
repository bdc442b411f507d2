// Package message defines the request/response envelopes exchanged between
// client and server.
//
// Both envelopes carry their payload as opaque bytes: the typed value is
// serialized first (layer 1), then the whole envelope is serialized for the
// wire (layer 2). A receiver can therefore decode the envelope and route by
// method name without knowing the payload type, and decode the body
// separately once the expected type is known.
package message

import "github.com/google/uuid"

// Request is the client-to-server envelope for a single call.
type Request struct {
	ID     string // Fresh UUIDv4, assigned at construction; echoed back in Response.To
	Method string // Method name, matching a registered descriptor
	Body   []byte // Layer-1 serialized parameters (opaque at this level)
}

// Response is the server-to-client envelope answering one Request.
//
// Error is non-empty when the server could not execute the call (unknown
// method, undecodable parameters, handler failure). An error response
// carries no meaningful Body.
type Response struct {
	To     string // Copied from the originating Request.ID
	Method string // Copied from the originating Request.Method
	Error  string // Non-empty if the call failed server-side
	Body   []byte // Layer-1 serialized return value (opaque at this level)
}

// NewRequest builds a Request for the named method with an already
// serialized body and a freshly generated ID.
func NewRequest(method string, body []byte) *Request {
	return &Request{
		ID:     uuid.NewString(),
		Method: method,
		Body:   body,
	}
}

// Reply builds the Response answering r, carrying the given body.
// It reads r's ID and Method; r itself is not modified.
func (r *Request) Reply(body []byte) *Response {
	return &Response{
		To:     r.ID,
		Method: r.Method,
		Body:   body,
	}
}

// ReplyError builds an error Response answering r. The client surfaces
// the message as a call failure instead of blocking forever on a reply
// that never comes.
func (r *Request) ReplyError(msg string) *Response {
	return &Response{
		To:     r.ID,
		Method: r.Method,
		Error:  msg,
	}
}

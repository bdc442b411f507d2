// Package client implements the calling side of the protocol.
//
// A Dispatcher owns one open socket connection and performs strict
// request/reply turn-taking on it: send one frame, block for the next
// inbound frame, decode it as the reply. No response correlation is done
// against Response.To — at most one request may be outstanding per
// connection at a time. A Dispatcher is therefore not safe for concurrent
// use; concurrent callers should borrow from a DispatcherPool instead.
//
//	dispatcher, err := client.Connect("/run/user/1000/calc.sock")
//	...
//	call, err := proto.Add.Call(proto.AddParams{A: 5, B: 23})
//	...
//	sum, err := client.Dispatch(dispatcher, call)
package client

import (
	"net"

	"github.com/pkg/errors"

	"sockrpc/codec"
	"sockrpc/message"
	"sockrpc/method"
	"sockrpc/protocol"
	"sockrpc/registry"
)

// Dispatcher owns a single live connection to a server socket.
type Dispatcher struct {
	conn net.Conn
}

// Connect dials the unix socket at path.
func Connect(path string) (*Dispatcher, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "dial unix socket %s", path)
	}
	return &Dispatcher{conn: conn}, nil
}

// Discover looks the protocol up in the registry and connects to the
// first announced endpoint.
func Discover(reg registry.Registry, protoName string) (*Dispatcher, error) {
	endpoints, err := reg.Discover(protoName)
	if err != nil {
		return nil, errors.Wrapf(err, "discover %q", protoName)
	}
	if len(endpoints) == 0 {
		return nil, errors.Errorf("no endpoint registered for %q", protoName)
	}
	return Connect(endpoints[0].SocketPath)
}

// Close closes the underlying connection.
func (d *Dispatcher) Close() error {
	return d.conn.Close()
}

// Dispatch sends the built call as one frame and blocks until the reply
// frame arrives, decoding it into the call's expected return type.
//
// Failure modes, in order: transport write, transport read, envelope
// decode (layer 2), server-reported error, body decode (layer 1). A
// caller expecting the wrong return type fails here, not on the server.
func Dispatch[R any](d *Dispatcher, call method.Call[R]) (R, error) {
	var zero R

	cdc := codec.GetCodec(codec.CodecTypeBinary)
	wire, err := cdc.Encode(call.Req)
	if err != nil {
		return zero, errors.Wrap(err, "encode request envelope")
	}

	if err := protocol.WriteFrame(d.conn, wire); err != nil {
		return zero, errors.Wrap(err, "send request frame")
	}

	payload, err := protocol.ReadFrame(d.conn)
	if err != nil {
		return zero, errors.Wrap(err, "read response frame")
	}

	var resp message.Response
	if err := cdc.Decode(payload, &resp); err != nil {
		return zero, errors.Wrap(err, "decode response envelope")
	}

	if resp.Error != "" {
		return zero, errors.Errorf("server: %s", resp.Error)
	}

	result, err := codec.Unmarshal[R](resp.Body)
	if err != nil {
		return zero, errors.Wrap(err, "decode response body")
	}
	return result, nil
}

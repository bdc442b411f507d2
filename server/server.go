// Package server implements the handler registry and the per-connection
// serving loop, plus middleware and graceful shutdown.
//
// Request processing pipeline:
//
//	Accept conn → handleConn (reads frames in arrival order)
//	  → for each frame: envelope decode → Middleware Chain → Handler.Dispatch
//	    → typed callback → envelope encode → write response frame
//
// One goroutine runs per accepted connection; frames on a single
// connection are processed strictly one at a time (request/reply
// turn-taking, no pipelining). Connections share nothing but the
// read-only handler table.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"sockrpc/codec"
	"sockrpc/message"
	"sockrpc/middleware"
	"sockrpc/protocol"
	"sockrpc/registry"
)

// registrationTTL is the lease TTL (seconds) for registry announcements.
// KeepAlive renews the lease automatically while the server is alive.
const registrationTTL = 10

// Server accepts connections on a unix socket and serves requests against
// a Handler built before Serve is called.
type Server struct {
	handler     *Handler
	middlewares []middleware.Middleware // Applied in registration order
	chain       middleware.HandlerFunc  // middleware(middleware(...(Handler.Dispatch)))
	listener    net.Listener
	socketPath  string
	protoName   string
	registry    registry.Registry // nil if not using discovery
	wg          sync.WaitGroup    // Tracks in-flight requests for graceful shutdown
	shutdown    atomic.Bool       // Set during shutdown to suppress the Accept error
}

// NewServer creates a server around a fully built handler table. Do not
// register more methods after Serve starts: the table is shared read-only
// across all connection tasks.
func NewServer(h *Handler) *Server {
	return &Server{handler: h}
}

// Use registers a middleware. Middlewares run in the order they are added.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// Serve binds the unix socket at socketPath and enters the accept loop.
// Any pre-existing socket file is removed first and the parent directory
// is created if missing. If reg is non-nil the endpoint is announced
// under protoName so clients can discover the path.
func (svr *Server) Serve(socketPath string, protoName string, reg registry.Registry) error {
	if err := prepareSocketPath(socketPath); err != nil {
		return err
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	svr.listener = listener
	svr.socketPath = socketPath
	svr.protoName = protoName

	// Build the middleware chain once at startup (not per-request)
	svr.chain = middleware.Chain(svr.middlewares...)(svr.handler.Dispatch)

	if reg != nil {
		svr.registry = reg
		if err := reg.Register(protoName, registry.Endpoint{SocketPath: socketPath}, registrationTTL); err != nil {
			listener.Close()
			return err
		}
	}

	log.Printf("listening on %s, methods: %v", socketPath, svr.handler.Methods())

	// Accept loop: one goroutine per connection
	for {
		conn, err := listener.Accept()
		if err != nil {
			// During shutdown, listener.Close() makes Accept fail.
			// The flag distinguishes intentional close from real errors.
			if svr.shutdown.Load() {
				return nil
			}
			return err
		}
		go svr.handleConn(conn)
	}
}

// prepareSocketPath ensures the socket's parent directory exists and
// removes any stale socket file left by a previous run.
func prepareSocketPath(socketPath string) error {
	dir := filepath.Dir(socketPath)
	if dir == "/" || dir == "." {
		return fmt.Errorf("socket cannot live at %q; use a run directory such as /run/user/{uid}/", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// handleConn serves one connection until the peer closes it or a frame
// fails to read or write. Frames are read and answered strictly in
// arrival order, one at a time.
func (svr *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		// Read one complete frame. EOF means the client hung up; a
		// corrupt length header also lands here and ends only this
		// connection, never the process.
		payload, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}

		out := svr.serveFrame(payload)
		if out == nil {
			// Malformed envelope — nothing to reply to; keep reading.
			continue
		}

		if err := protocol.WriteFrame(conn, out); err != nil {
			log.Printf("write response frame: %v; terminating connection", err)
			return
		}
	}
}

// serveFrame turns one inbound envelope into outbound response bytes.
// Returns nil when the envelope does not decode (no ID to reply to).
func (svr *Server) serveFrame(payload []byte) []byte {
	// Track this request for graceful shutdown
	svr.wg.Add(1)
	defer svr.wg.Done()

	cdc := codec.GetCodec(codec.CodecTypeBinary)

	var req message.Request
	if err := cdc.Decode(payload, &req); err != nil {
		log.Printf("drop undecodable request envelope: %v", err)
		return nil
	}

	resp := svr.chain(context.Background(), &req)

	out, err := cdc.Encode(resp)
	if err != nil {
		log.Printf("encode response envelope for %s: %v", req.Method, err)
		return nil
	}
	return out
}

// Shutdown performs graceful shutdown:
//  1. Withdraw the endpoint from the registry (clients stop discovering it)
//  2. Set the shutdown flag (so the Accept error reads as intentional)
//  3. Close the listener (stop accepting new connections)
//  4. Wait for in-flight requests to finish, up to the timeout
//  5. Remove the socket file
func (svr *Server) Shutdown(timeout time.Duration) error {
	if svr.registry != nil {
		svr.registry.Deregister(svr.protoName, svr.socketPath)
	}

	// Set the flag BEFORE closing the listener: otherwise the Accept
	// error fires first and Serve returns it as a real failure.
	svr.shutdown.Store(true)
	if svr.listener != nil {
		svr.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	defer os.Remove(svr.socketPath)

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for in-flight requests to finish")
	}
}

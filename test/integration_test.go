package test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"sockrpc/client"
	"sockrpc/method"
	"sockrpc/middleware"
	"sockrpc/registry"
	"sockrpc/server"
)

// ---- Shared protocol declaration ----

type ArithParams struct {
	A uint32 `json:"a"`
	B uint32 `json:"b"`
}

var (
	Add  = method.New[ArithParams, uint32]("add")
	Sub  = method.New[ArithParams, uint32]("sub")
	Ping = method.New[method.Unit, method.Unit]("ping")
)

// ---- Mock registry (no etcd needed) ----

type MockRegistry struct {
	endpoints map[string][]registry.Endpoint
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{endpoints: make(map[string][]registry.Endpoint)}
}

func (m *MockRegistry) Register(protoName string, ep registry.Endpoint, ttl int64) error {
	m.endpoints[protoName] = append(m.endpoints[protoName], ep)
	return nil
}

func (m *MockRegistry) Deregister(protoName string, socketPath string) error {
	eps := m.endpoints[protoName]
	for i, ep := range eps {
		if ep.SocketPath == socketPath {
			m.endpoints[protoName] = append(eps[:i], eps[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockRegistry) Discover(protoName string) ([]registry.Endpoint, error) {
	return m.endpoints[protoName], nil
}

func (m *MockRegistry) Watch(protoName string) <-chan []registry.Endpoint {
	return nil
}

// ---- Setup ----

func arithHandler() *server.Handler {
	h := server.NewHandler()
	server.Register(h, Add, func(p ArithParams) uint32 { return p.A + p.B })
	server.Register(h, Sub, func(p ArithParams) uint32 { return p.A - p.B })
	server.Register(h, Ping, func(method.Unit) method.Unit { return method.Unit{} })
	return h
}

func startArithServer(t *testing.T, reg registry.Registry) (*server.Server, string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "arith.sock")

	svr := server.NewServer(arithHandler())
	svr.Use(middleware.Recovery())
	svr.Use(middleware.Logging())
	go svr.Serve(socketPath, "arith", reg)
	t.Cleanup(func() { svr.Shutdown(3 * time.Second) })

	time.Sleep(100 * time.Millisecond)
	return svr, socketPath
}

// ---- Tests ----

// TestEndToEnd walks the full chain:
// descriptor → request → frame → server dispatch → response → typed result.
func TestEndToEnd(t *testing.T) {
	_, socketPath := startArithServer(t, nil)

	d, err := client.Connect(socketPath)
	require.NoError(t, err)
	defer d.Close()

	call, err := Add.Call(ArithParams{A: 5, B: 23})
	require.NoError(t, err)
	sum, err := client.Dispatch(d, call)
	require.NoError(t, err)
	require.Equal(t, uint32(28), sum)

	call2, err := Sub.Call(ArithParams{A: 23, B: 5})
	require.NoError(t, err)
	diff, err := client.Dispatch(d, call2)
	require.NoError(t, err)
	require.Equal(t, uint32(18), diff)

	call3, err := Ping.Call(method.Unit{})
	require.NoError(t, err)
	_, err = client.Dispatch(d, call3)
	require.NoError(t, err)
}

// TestDiscoverViaRegistry exercises endpoint discovery end to end with
// the in-memory registry.
func TestDiscoverViaRegistry(t *testing.T) {
	reg := NewMockRegistry()
	_, socketPath := startArithServer(t, reg)

	eps, err := reg.Discover("arith")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	require.Equal(t, socketPath, eps[0].SocketPath)

	d, err := client.Discover(reg, "arith")
	require.NoError(t, err)
	defer d.Close()

	call, err := Add.Call(ArithParams{A: 2, B: 2})
	require.NoError(t, err)
	sum, err := client.Dispatch(d, call)
	require.NoError(t, err)
	require.Equal(t, uint32(4), sum)
}

// TestConcurrentClients runs many callers at once through a dispatcher
// pool; every caller must get its own correct answer.
func TestConcurrentClients(t *testing.T) {
	_, socketPath := startArithServer(t, nil)

	pool := client.NewDispatcherPool(socketPath, 8)
	defer pool.Close()

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		a := uint32(i)
		g.Go(func() error {
			d, err := pool.Get()
			if err != nil {
				return err
			}
			defer pool.Put(d)

			call, err := Add.Call(ArithParams{A: a, B: 1000})
			if err != nil {
				return err
			}
			sum, err := client.Dispatch(d, call)
			if err != nil {
				return err
			}
			if sum != a+1000 {
				return fmt.Errorf("expect %d, got %d", a+1000, sum)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

// TestUnknownMethodErrorAndConnectionSurvives sends a call the server
// never registered; the caller gets an explicit error and the connection
// keeps working.
func TestUnknownMethodErrorAndConnectionSurvives(t *testing.T) {
	_, socketPath := startArithServer(t, nil)

	d, err := client.Connect(socketPath)
	require.NoError(t, err)
	defer d.Close()

	mul := method.New[ArithParams, uint32]("mul")
	call, err := mul.Call(ArithParams{A: 6, B: 7})
	require.NoError(t, err)

	_, err = client.Dispatch(d, call)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown method")

	call2, err := Add.Call(ArithParams{A: 6, B: 7})
	require.NoError(t, err)
	sum, err := client.Dispatch(d, call2)
	require.NoError(t, err)
	require.Equal(t, uint32(13), sum)
}

// TestGracefulShutdown verifies that in-flight requests complete and the
// socket file disappears.
func TestGracefulShutdown(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "arith.sock")

	svr := server.NewServer(arithHandler())
	go svr.Serve(socketPath, "arith", nil)
	time.Sleep(100 * time.Millisecond)

	d, err := client.Connect(socketPath)
	require.NoError(t, err)
	call, err := Add.Call(ArithParams{A: 1, B: 2})
	require.NoError(t, err)
	sum, err := client.Dispatch(d, call)
	require.NoError(t, err)
	require.Equal(t, uint32(3), sum)
	d.Close()

	require.NoError(t, svr.Shutdown(3*time.Second))

	// The socket path is gone; new connections fail.
	_, err = client.Connect(socketPath)
	require.Error(t, err)
}

package client

import (
	"sync"

	"github.com/pkg/errors"
)

// DispatcherPool manages reusable connections to a single socket path.
//
// One Dispatcher admits one outstanding request at a time, so goroutines
// that want to call in parallel each borrow their own dispatcher from the
// pool and return it when the reply is in. The pool is a buffered channel
// used as a FIFO queue: concurrency-safe, and blocking-on-empty comes for
// free.
type DispatcherPool struct {
	mu          sync.Mutex
	dispatchers chan *Dispatcher // Buffered channel as pool — FIFO, goroutine-safe
	path        string
	maxConns    int
	curConns    int // Currently created connections (may be < maxConns)
}

// NewDispatcherPool creates a pool with the given max size. Connections
// are created lazily — the pool starts empty and grows on demand.
func NewDispatcherPool(path string, maxConns int) *DispatcherPool {
	return &DispatcherPool{
		dispatchers: make(chan *Dispatcher, maxConns),
		path:        path,
		maxConns:    maxConns,
	}
}

// Get borrows a dispatcher from the pool.
// Strategy:
//  1. Take an idle dispatcher if one is available (non-blocking select)
//  2. If the pool is empty but under limit, dial a new connection
//  3. If at the limit, block until a dispatcher is returned
func (p *DispatcherPool) Get() (*Dispatcher, error) {
	select {
	case d := <-p.dispatchers:
		return d, nil
	default:
		p.mu.Lock()
		if p.curConns < p.maxConns {
			p.curConns++
			p.mu.Unlock()
			d, err := Connect(p.path)
			if err != nil {
				p.mu.Lock()
				p.curConns--
				p.mu.Unlock()
				return nil, errors.Wrap(err, "grow dispatcher pool")
			}
			return d, nil
		}
		p.mu.Unlock()
		// At capacity — block until a dispatcher is returned
		return <-p.dispatchers, nil
	}
}

// Put returns a dispatcher to the pool. A dispatcher whose last call
// failed on the transport should be discarded with Discard instead — its
// turn-taking state is unknown.
func (p *DispatcherPool) Put(d *Dispatcher) {
	p.dispatchers <- d
}

// Discard closes a broken dispatcher and frees its pool slot.
func (p *DispatcherPool) Discard(d *Dispatcher) {
	d.Close()
	p.mu.Lock()
	p.curConns--
	p.mu.Unlock()
}

// Close shuts down the pool and closes all idle connections.
func (p *DispatcherPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.dispatchers)
	for d := range p.dispatchers {
		d.Close()
		p.curConns--
	}
	return nil
}

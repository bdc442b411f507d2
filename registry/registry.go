package registry

// Endpoint describes where a protocol's server is listening.
type Endpoint struct {
	SocketPath string
	Version    string
}

// Registry maps a protocol name to the socket endpoints serving it, so a
// client can locate a daemon's socket path without hardcoding it.
type Registry interface {
	Register(protoName string, ep Endpoint, ttl int64) error
	Deregister(protoName string, socketPath string) error
	Discover(protoName string) ([]Endpoint, error)
	Watch(protoName string) <-chan []Endpoint
}

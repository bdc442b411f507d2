// Package registry provides the etcd-based endpoint registry.
//
// etcd acts as a "phonebook" for local daemons:
//
//	Key:   /sockrpc/{protoName}/{escaped socket path}
//	Value: JSON-encoded Endpoint
//
// Registration uses TTL-based leases: if the server crashes, the lease
// expires and the entry disappears on its own, so clients never discover
// a socket nobody is listening on anymore.
package registry

import (
	"context"
	"encoding/json"
	"net/url"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/sockrpc/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // etcd client connection (thread-safe, shared across goroutines)
}

// NewEtcdRegistry creates a registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// key builds the etcd key for one endpoint. Socket paths contain slashes,
// which would splinter the per-protocol prefix, so the path is escaped.
func key(protoName, socketPath string) string {
	return keyPrefix + protoName + "/" + url.PathEscape(socketPath)
}

// Register announces an endpoint under a TTL lease and keeps the lease
// alive in the background until the client is closed or Deregister runs.
func (r *EtcdRegistry) Register(protoName string, ep Endpoint, ttl int64) error {
	ctx := context.TODO()

	// Create a TTL-based lease — if KeepAlive stops, the entry auto-expires
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(ep)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, key(protoName, ep.SocketPath), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	// Start background lease renewal — KeepAlive sends heartbeats to etcd
	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Consume KeepAlive responses to prevent the channel from filling up
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister withdraws an endpoint. Called during graceful shutdown before
// the listener closes.
func (r *EtcdRegistry) Deregister(protoName string, socketPath string) error {
	_, err := r.client.Delete(context.TODO(), key(protoName, socketPath))
	return err
}

// Discover returns all endpoints currently announced for a protocol.
func (r *EtcdRegistry) Discover(protoName string) ([]Endpoint, error) {
	ctx := context.TODO()
	prefix := keyPrefix + protoName + "/"

	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	endpoints := make([]Endpoint, 0)
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			continue // Skip malformed entries
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// Watch monitors a protocol prefix and emits the updated endpoint list
// whenever it changes (registrations, withdrawals, lease expirations).
func (r *EtcdRegistry) Watch(protoName string) <-chan []Endpoint {
	ctx := context.TODO()
	ch := make(chan []Endpoint, 1)
	prefix := keyPrefix + protoName + "/"

	go func() {
		watchChan := r.client.Watch(ctx, prefix, clientv3.WithPrefix())
		for range watchChan {
			// On any change, re-fetch the full endpoint list
			// (simpler than parsing individual watch events)
			endpoints, _ := r.Discover(protoName)
			ch <- endpoints
		}
	}()

	return ch
}

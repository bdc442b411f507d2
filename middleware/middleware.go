// Package middleware provides the server-side handler chain.
//
// A Middleware wraps a HandlerFunc in the onion model:
//
//	Chain(A, B, C)(handler) → A(B(C(handler)))
//
// so A's before-code runs first and its after-code runs last. The server
// builds the chain once at startup around the registry dispatch.
package middleware

import (
	"context"

	"sockrpc/message"
)

type HandlerFunc func(ctx context.Context, req *message.Request) *message.Response

type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines several middlewares into one, preserving their order.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

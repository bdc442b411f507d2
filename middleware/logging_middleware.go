package middleware

import (
	"context"
	"log"
	"time"

	"sockrpc/message"
)

// Logging logs every dispatched request: method name, duration, and the
// error message if the call failed.
func Logging() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			start := time.Now()
			resp := next(ctx, req)
			duration := time.Since(start)
			log.Printf("method: %s, duration: %s", req.Method, duration)
			if resp.Error != "" {
				log.Printf("method: %s, error: %s", req.Method, resp.Error)
			}
			return resp
		}
	}
}

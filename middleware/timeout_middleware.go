package middleware

import (
	"context"
	"time"

	"sockrpc/message"
)

// Timeout bounds how long a handler may run. On expiry the caller gets an
// explicit error response; the handler goroutine is left to finish on its
// own (handlers are expected to be fast and synchronous).
func Timeout(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.Response, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return req.ReplyError("request timed out")
			}
		}
	}
}

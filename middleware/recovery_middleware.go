package middleware

import (
	"context"
	"fmt"
	"log"

	"sockrpc/message"
)

// Recovery converts a handler panic into an explicit error response, so a
// faulty implementation fails one call instead of killing the connection
// task it runs on.
func Recovery() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (resp *message.Response) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("panic in handler for %s: %v", req.Method, r)
					resp = req.ReplyError(fmt.Sprintf("internal error: %v", r))
				}
			}()
			return next(ctx, req)
		}
	}
}

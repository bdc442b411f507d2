package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"sockrpc/message"
)

// RateLimit rejects requests beyond r per second (with the given burst)
// using a token bucket. Rejected requests get an explicit error response
// so the caller is not left waiting.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			if !limiter.Allow() {
				return req.ReplyError("rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}

package middleware

import (
	"context"
	"fmt"

	"dist-rpc/message"
)

// RecoverMiddleware turns a handler panic into an exception response.
func RecoverMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) (resp *message.Message) {
			defer func() {
				if r := recover(); r != nil {
					resp = reject(req, fmt.Sprintf("handler panic: %v", r))
				}
			}()
			return next(ctx, req)
		}
	}
}

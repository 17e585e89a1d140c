// Package middleware wraps request handlers. A middleware that rejects a request
// answers it with an exception response carrying the request's correlation id,
// so the caller's pending entry is always completed.
package middleware

import (
	"context"

	"dist-rpc/message"
)

// HandlerFunc handles one request message and returns its response.
type HandlerFunc func(ctx context.Context, req *message.Message) *message.Message

type Middleware func(next HandlerFunc) HandlerFunc

// Chain 将多个中间件组合成一个中间件
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// reject builds the exception response for req.
func reject(req *message.Message, text string) *message.Message {
	resp := message.NewExceptionResponse(text, req.ID())
	return &resp
}

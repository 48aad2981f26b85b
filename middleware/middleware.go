// Package middleware wraps the server's dispatch of a single call.
package middleware

import (
	"context"

	"ev3-dog/message"
)

// HandlerFunc answers one call. It never returns nil.
type HandlerFunc func(ctx context.Context, call *message.Call) *message.Response

type Middleware func(next HandlerFunc) HandlerFunc

// Chain 将多个中间件组合成一个中间件
//
//	Chain(A, B, C)(handler) → A(B(C(handler)))
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

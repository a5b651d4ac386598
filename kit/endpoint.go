// Package kit holds the transport-agnostic endpoint plumbing shared by the
// HTTP and MCP surfaces.
package kit

import "context"

// Endpoint is the transport-agnostic unit of work: one request in, one
// response out.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares into one; the first argument runs outermost.
func Chain(mw ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

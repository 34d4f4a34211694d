// Package httpkit is the routing surface modules mount against
// modules import this instead of internal/platform/net/http
package httpkit

import (
	"net/http"

	phttp "scorekeeper/internal/platform/net/http"
)

type (
	// Router is the platform router seam
	Router = phttp.Router

	// Handler is the platform handler type
	Handler = phttp.Handler

	// Response lets a handler choose its status
	Response = phttp.Response
)

// Accepted returns a 202 response for work that continues after the reply
func Accepted(data any) Response { return phttp.Accepted(data) }

// Get mounts a body-less JSON handler under GET
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.CallHandler(h))
}

// Post mounts a body-less JSON handler under POST
func Post(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, phttp.CallHandler(h))
}

// PostJSON mounts a handler that receives a bound and validated T
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}

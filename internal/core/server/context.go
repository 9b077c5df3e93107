package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/swayhq/sway/internal/types"
)

// AppContext is a property bag shared by every request of an app.
// Safe for concurrent use.
type AppContext struct {
	mu    sync.RWMutex
	props map[string]any
}

// NewAppContext creates an empty app context.
func NewAppContext() *AppContext {
	return &AppContext{props: make(map[string]any)}
}

// Set stores value under key, replacing any previous value.
func (a *AppContext) Set(key string, value any) {
	a.mu.Lock()
	a.props[key] = value
	a.mu.Unlock()
}

// Get returns the value stored under key.
func (a *AppContext) Get(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.props[key]
	return v, ok
}

// Delete removes key.
func (a *AppContext) Delete(key string) {
	a.mu.Lock()
	delete(a.props, key)
	a.mu.Unlock()
}

// RequestContext is handed to middlewares and route handlers. It carries the
// raw request and response plus per-request properties.
type RequestContext struct {
	request *http.Request
	writer  http.ResponseWriter
	id      types.RequestID
	app     *AppContext

	mu    sync.RWMutex
	props map[string]any
}

// NewRequestContext creates the context of one request.
func NewRequestContext(w http.ResponseWriter, r *http.Request, id types.RequestID, app *AppContext) *RequestContext {
	return &RequestContext{request: r, writer: w, id: id, app: app, props: make(map[string]any)}
}

// Request returns the inbound request.
func (c *RequestContext) Request() *http.Request { return c.request }

// Response returns the response writer. Handlers that write to it directly
// should return a nil result.
func (c *RequestContext) Response() http.ResponseWriter { return c.writer }

// Context returns the request's context.Context.
func (c *RequestContext) Context() context.Context { return c.request.Context() }

// ID returns the request id, also sent as the X-Request-ID header.
func (c *RequestContext) ID() types.RequestID { return c.id }

// App returns the app-wide context.
func (c *RequestContext) App() *AppContext { return c.app }

// Param returns the raw value of a route parameter.
func (c *RequestContext) Param(name string) string {
	return chi.URLParam(c.request, name)
}

// Set stores a per-request property.
func (c *RequestContext) Set(key string, value any) {
	c.mu.Lock()
	c.props[key] = value
	c.mu.Unlock()
}

// Get returns a per-request property.
func (c *RequestContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.props[key]
	return v, ok
}

// Delete removes a per-request property.
func (c *RequestContext) Delete(key string) {
	c.mu.Lock()
	delete(c.props, key)
	c.mu.Unlock()
}

type requestContextKey struct{}

func withRequestContext(r *http.Request, rc *RequestContext) *http.Request {
	r = r.WithContext(context.WithValue(r.Context(), requestContextKey{}, rc))
	rc.request = r
	return r
}

// FromRequest returns the RequestContext attached by the dispatcher.
func FromRequest(r *http.Request) (*RequestContext, bool) {
	rc, ok := r.Context().Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}

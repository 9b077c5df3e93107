package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/swayhq/sway/internal/core/events"
	"github.com/swayhq/sway/internal/core/metrics"
	"github.com/swayhq/sway/internal/routing"
	"github.com/swayhq/sway/internal/rules"
	"github.com/swayhq/sway/internal/types"
)

// Middleware runs before routing. A returned error aborts the request with
// its HTTPError status, or 500.
type Middleware func(rc *RequestContext) error

// InputValidationSkipper lets a route turn off input validation per method.
// Query coercion still applies.
type InputValidationSkipper interface {
	SkipInputValidation(method types.RestMethod) bool
}

// ContextPreparer is called after route params are validated and before the
// input is read.
type ContextPreparer interface {
	PrepareContext(rc *RequestContext) error
}

// AppContextAware routes receive the app context when they are registered.
type AppContextAware interface {
	SetAppContext(app *AppContext)
}

// RequestIDHeader carries the request id in responses.
const RequestIDHeader = "X-Request-ID"

// Options configures a Dispatcher.
type Options struct {
	Table       *routing.Table
	Engine      *rules.Engine
	CORS        *CORS // nil disables CORS handling
	Middlewares []Middleware
	App         *AppContext
	Publisher   events.Publisher
	Metrics     *metrics.Recorder
	MetricsPath string
	Logger      *slog.Logger
	MaxBody     int64
	Timeout     time.Duration
}

// Dispatcher is the http.Handler of an app.
type Dispatcher struct {
	opts Options
	mux  *chi.Mux
}

// NewDispatcher mounts every route method of opts.Table on a chi mux.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = &events.NoopPublisher{}
	}
	if opts.App == nil {
		opts.App = NewAppContext()
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = types.DefaultMaxBodyBytes
	}

	d := &Dispatcher{opts: opts, mux: chi.NewRouter()}
	d.mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		d.writeError(w, r, types.NotFound("Not Found", r.URL.Path))
	})
	d.mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		d.writeError(w, r, types.MethodNotAllowed("Method Not Allowed", r.Method+" "+r.URL.Path))
	})
	if opts.Table != nil {
		for _, route := range opts.Table.Routes() {
			for _, m := range route.Methods {
				d.mux.Method(string(m.Rest), route.Pattern, d.serveMethod(route, m))
			}
		}
	}
	return d
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if d.opts.Metrics != nil && d.opts.MetricsPath != "" && r.URL.Path == d.opts.MetricsPath && r.Method == http.MethodGet {
		d.opts.Metrics.Handler().ServeHTTP(w, r)
		return
	}

	// A route serving OPTIONS handles its own preflight.
	if d.opts.CORS != nil && !(r.Method == http.MethodOptions && d.servesOptions(r)) {
		if !d.opts.CORS.Handle(w, r) {
			return
		}
	}

	if d.opts.Timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), d.opts.Timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}

	id, err := types.NewRequestID()
	if err != nil {
		d.writeError(w, r, err)
		return
	}
	w.Header().Set(RequestIDHeader, string(id))

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	rc := NewRequestContext(sw, r, id, d.opts.App)
	r = withRequestContext(r, rc)

	rctx := chi.NewRouteContext()
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	rc.request = r

	defer func() {
		pattern := rctx.RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		d.opts.Metrics.ObserveRequest(pattern, r.Method, sw.status, time.Since(start))
	}()

	for _, mw := range d.opts.Middlewares {
		if err := d.runMiddleware(mw, rc); err != nil {
			d.writeError(sw, r, err)
			return
		}
	}

	d.mux.ServeHTTP(sw, r)
}

func (d *Dispatcher) servesOptions(r *http.Request) bool {
	return d.mux.Match(chi.NewRouteContext(), http.MethodOptions, r.URL.Path)
}

func (d *Dispatcher) runMiddleware(mw Middleware, rc *RequestContext) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = d.recovered(rc.Request(), p)
		}
	}()
	return mw(rc)
}

func (d *Dispatcher) recovered(r *http.Request, p any) error {
	d.opts.Logger.Error("panic recovered in HTTP handler",
		"path", r.URL.Path,
		"method", r.Method,
		"panic", fmt.Sprintf("%v", p),
		"stack", string(debug.Stack()),
	)
	return types.InternalServerError("Internal Server Error")
}

func (d *Dispatcher) serveMethod(route *routing.Route, m *routing.Method) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, ok := FromRequest(r)
		if !ok {
			// Mounted outside ServeHTTP, e.g. by a test calling the mux directly.
			rc = NewRequestContext(w, r, "", d.opts.App)
			r = withRequestContext(r, rc)
		}
		rc.request = r

		result, err := d.invoke(rc, route, m)
		if err != nil {
			d.writeError(w, r, err)
			return
		}
		if isNil(result) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (d *Dispatcher) invoke(rc *RequestContext, route *routing.Route, m *routing.Method) (any, error) {
	r := rc.Request()
	args := []reflect.Value{reflect.ValueOf(rc)}

	var params reflect.Value
	if m.Params != nil {
		raw := routeParams(r)
		value := any(raw)
		if m.ParamsRule != nil {
			coerced, violations, err := d.opts.Engine.CoerceAndValidate(*m.ParamsRule, raw)
			if len(violations) > 0 {
				return nil, d.reject(rc, route, m, violations)
			}
			if err != nil {
				return nil, err
			}
			value = coerced
		}
		pv, err := decodeInto(m.Params, value)
		if err != nil {
			return nil, types.UnprocessableEntity("cannot parse params", err.Error())
		}
		params = pv
	}

	skip := false
	if s, ok := route.Handler.(InputValidationSkipper); ok {
		skip = s.SkipInputValidation(m.Rest)
	}
	if p, ok := route.Handler.(ContextPreparer); ok {
		if err := p.PrepareContext(rc); err != nil {
			return nil, err
		}
	}

	if m.Input != nil {
		in, err := d.readInput(rc, route, m, skip)
		if err != nil {
			return nil, err
		}
		args = append(args, in)
	}
	if m.Params != nil {
		args = append(args, params)
	}

	return d.call(rc, m, args)
}

func (d *Dispatcher) readInput(rc *RequestContext, route *routing.Route, m *routing.Method, skip bool) (reflect.Value, error) {
	r := rc.Request()

	var value any
	if m.Rest.ReadsQuery() {
		q := queryValues(r.URL.Query())
		if len(q) > 0 || !m.InputOptional() {
			value = q
		}
	} else {
		body, err := readBody(rc.Response(), r, d.opts.MaxBody)
		if err != nil {
			return reflect.Value{}, err
		}
		value = body
	}

	if m.InputRule != nil {
		if m.Rest.ReadsQuery() {
			coerced, err := d.opts.Engine.Coerce(*m.InputRule, value)
			if err != nil && !skip {
				return reflect.Value{}, d.reject(rc, route, m, []string{err.Error()})
			}
			if err == nil {
				value = coerced
			}
		}
		if !skip {
			if violations := d.opts.Engine.Validate(*m.InputRule, value); len(violations) > 0 {
				return reflect.Value{}, d.reject(rc, route, m, violations)
			}
		}
	}

	in, err := decodeInto(m.Input, value)
	if err != nil {
		return reflect.Value{}, types.UnprocessableEntity("cannot parse "+m.InputName(), err.Error())
	}
	return in, nil
}

func (d *Dispatcher) reject(rc *RequestContext, route *routing.Route, m *routing.Method, violations []string) error {
	d.opts.Logger.Info("request rejected",
		"request_id", rc.ID(),
		"route", route.Pattern,
		"method", m.Rest,
		"violations", violations,
	)
	d.opts.Metrics.ValidationFailed(route.Pattern, string(m.Rest))

	event := events.RequestRejected{RequestID: rc.ID(), Route: route.Pattern, Method: m.Rest, Violations: violations}
	if err := d.opts.Publisher.Publish(rc.Context(), events.TopicRequestRejected, event); err != nil {
		d.opts.Logger.Warn("failed to publish event", "topic", events.TopicRequestRejected, "error", err)
	}
	return types.ValidationFailed(violations)
}

func (d *Dispatcher) call(rc *RequestContext, m *routing.Method, args []reflect.Value) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = d.recovered(rc.Request(), p)
		}
	}()

	out := m.Func.Call(args)
	if e, ok := out[1].Interface().(error); ok && e != nil {
		return nil, e
	}
	return out[0].Interface(), nil
}

func (d *Dispatcher) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var he *types.HTTPError
	if !errors.As(err, &he) {
		d.opts.Logger.Error("request failed", "path", r.URL.Path, "method", r.Method, "error", err)
		he = types.InternalServerError("Internal Server Error")
	} else if he.Status >= http.StatusInternalServerError {
		d.opts.Logger.Error("request failed", "path", r.URL.Path, "method", r.Method, "error", he)
	}
	writeJSON(w, he.Status, he)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"InternalServerError","message":"cannot encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// readBody decodes a JSON request body. An empty body is nil.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) (any, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, types.PayloadTooLarge("request body too large", fmt.Sprintf("limit is %d bytes", limit))
		}
		return nil, types.BadRequest("cannot read body", err.Error())
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, types.UnprocessableEntity("cannot parse body", err.Error())
	}
	return v, nil
}

// queryValues flattens a query string: a key given once maps to its string,
// a repeated key to a list of strings.
func queryValues(q url.Values) map[string]any {
	out := make(map[string]any, len(q))
	for k, vs := range q {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		out[k] = list
	}
	return out
}

func routeParams(r *http.Request) map[string]any {
	out := make(map[string]any)
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return out
	}
	for i, k := range rctx.URLParams.Keys {
		if k == "*" {
			continue
		}
		v := rctx.URLParams.Values[i]
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
		out[k] = v
	}
	return out
}

// decodeInto converts a decoded JSON value into a value of type t by a JSON
// round trip, so struct tags drive field mapping.
func decodeInto(t reflect.Type, value any) (reflect.Value, error) {
	ptr := reflect.New(t)
	if value == nil {
		return ptr.Elem(), nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, err
	}
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// statusWriter records the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

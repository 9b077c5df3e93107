/*
Package sway is a file-routed HTTP framework with type-driven input
validation.

A route is a Go type in a file below the routes root. Its path gives the
URL; its Get, Post, Put, Delete and Options methods serve the request:

	routes/users/[id].go  ->  /users/{id}

	type User struct{}

	func (User) Get(rc *sway.RequestContext, q *Query, p Params) (any, error)

The input type (query string for GET/DELETE/OPTIONS, JSON body for
POST/PUT) and the params type are compiled into rule trees when the route
is registered. Each request is coerced and validated against them before
the handler runs; violations produce a 422 with the list of failures.

Struct tags refine the Go types with the rule vocabulary:

	type Query struct {
		Page  int    `json:"page" sway:"Min<1>"`
		Email string `json:"email,omitempty" sway:"Format<\"email\">"`
	}
*/
package sway

import (
	"github.com/swayhq/sway/internal/core/config"
	"github.com/swayhq/sway/internal/core/server"
	"github.com/swayhq/sway/internal/routing"
	"github.com/swayhq/sway/internal/rules"
	"github.com/swayhq/sway/internal/types"
)

type (
	// RequestContext is passed to middlewares and handler methods.
	RequestContext = server.RequestContext

	// AppContext is the property bag shared by every request.
	AppContext = server.AppContext

	// Middleware runs before routing; an error aborts the request.
	Middleware = server.Middleware

	// HTTPError selects the response status of a failed handler.
	HTTPError = types.HTTPError

	// InputValidationSkipper turns off input validation per method.
	InputValidationSkipper = server.InputValidationSkipper

	// ContextPreparer is called before the input is read.
	ContextPreparer = server.ContextPreparer

	// AppContextAware routes receive the AppContext on registration.
	AppContextAware = server.AppContextAware

	// Method is an HTTP method served by a route.
	Method = types.RestMethod

	// Predicate is a custom rule registered with RegisterRule.
	Predicate = rules.Predicate

	// RouteRules is the compiled rule tree of one route method.
	RouteRules = routing.MethodRules

	// Config is the app configuration.
	Config = config.Config
)

// Served methods.
const (
	MethodGet     = types.MethodGet
	MethodPost    = types.MethodPost
	MethodPut     = types.MethodPut
	MethodDelete  = types.MethodDelete
	MethodOptions = types.MethodOptions
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads configuration from path (optional) and SWAY_ environment
// variables.
func LoadConfig(path string) (*Config, error) {
	return config.LoadConfig(path)
}

package server

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/swayhq/sway/internal/core/config"
)

// CORS applies cross-origin headers to every request and answers preflight
// requests.
//
// Origins: "*" allows any origin. A single literal origin is always sent
// back as is. Anything else is a list of literals and /regexp/ entries; a
// request origin matching one of them is reflected.
type CORS struct {
	anyOrigin   bool
	fixedOrigin string
	origins     []string
	patterns    []*regexp.Regexp

	methods           string
	allowedHeaders    string
	exposedHeaders    string
	credentials       bool
	maxAge            int
	preflightContinue bool
	optionsStatus     int
}

// NewCORS compiles cfg. Returns an error for an invalid /regexp/ origin.
func NewCORS(cfg config.CORSConfig) (*CORS, error) {
	c := &CORS{
		methods:           strings.Join(cfg.Methods, ","),
		allowedHeaders:    strings.Join(cfg.AllowedHeaders, ","),
		exposedHeaders:    strings.Join(cfg.ExposedHeaders, ","),
		credentials:       cfg.Credentials,
		maxAge:            cfg.MaxAge,
		preflightContinue: cfg.PreflightContinue,
		optionsStatus:     cfg.OptionsStatus,
	}
	if c.optionsStatus == 0 {
		c.optionsStatus = http.StatusNoContent
	}

	switch {
	case len(cfg.Origins) == 0 || (len(cfg.Origins) == 1 && cfg.Origins[0] == "*"):
		c.anyOrigin = true
	case len(cfg.Origins) == 1 && !isPattern(cfg.Origins[0]):
		c.fixedOrigin = cfg.Origins[0]
	default:
		for _, o := range cfg.Origins {
			if !isPattern(o) {
				c.origins = append(c.origins, o)
				continue
			}
			re, err := regexp.Compile(o[1 : len(o)-1])
			if err != nil {
				return nil, err
			}
			c.patterns = append(c.patterns, re)
		}
	}
	return c, nil
}

func isPattern(origin string) bool {
	return len(origin) > 2 && strings.HasPrefix(origin, "/") && strings.HasSuffix(origin, "/")
}

// Handle writes the CORS headers for r. It returns false when the request
// was a preflight that has been answered and must not be dispatched.
func (c *CORS) Handle(w http.ResponseWriter, r *http.Request) bool {
	h := w.Header()
	c.setOrigin(h, r)
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}

	if r.Method != http.MethodOptions {
		c.setExposed(h)
		return true
	}

	if c.methods != "" {
		h.Set("Access-Control-Allow-Methods", c.methods)
	}
	allowed := c.allowedHeaders
	if allowed == "" {
		allowed = r.Header.Get("Access-Control-Request-Headers")
		addVary(h, "Access-Control-Request-Headers")
	}
	if allowed != "" {
		h.Set("Access-Control-Allow-Headers", allowed)
	}
	if c.maxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.maxAge))
	}
	c.setExposed(h)

	if c.preflightContinue {
		return true
	}
	// Some browsers hang on a 204 without an explicit zero length.
	h.Set("Content-Length", "0")
	w.WriteHeader(c.optionsStatus)
	return false
}

func (c *CORS) setOrigin(h http.Header, r *http.Request) {
	switch {
	case c.anyOrigin:
		h.Set("Access-Control-Allow-Origin", "*")
	case c.fixedOrigin != "":
		h.Set("Access-Control-Allow-Origin", c.fixedOrigin)
		addVary(h, "Origin")
	default:
		if origin := r.Header.Get("Origin"); origin != "" && c.allowed(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
		}
		addVary(h, "Origin")
	}
}

func (c *CORS) setExposed(h http.Header) {
	if c.exposedHeaders != "" {
		h.Set("Access-Control-Expose-Headers", c.exposedHeaders)
	}
}

func (c *CORS) allowed(origin string) bool {
	for _, o := range c.origins {
		if o == origin {
			return true
		}
	}
	for _, re := range c.patterns {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

// addVary appends field to the Vary header unless it is already listed.
func addVary(h http.Header, field string) {
	for _, v := range h.Values("Vary") {
		for _, f := range strings.Split(v, ",") {
			f = strings.TrimSpace(f)
			if f == "*" || strings.EqualFold(f, field) {
				return
			}
		}
	}
	h.Add("Vary", field)
}

// Package routing maps route files to URL patterns and discovers the
// handler methods a route type serves.
//
// File layout mirrors URLs. Relative to the routes root, the extension is
// dropped, `[name]` segments become `{name}` parameters and a file named
// index serves its directory:
//
//	routes/index.go               -> /
//	routes/users/index.go         -> /users
//	routes/users/[id].go          -> /users/{id}
//	routes/users/[id]/posts.go    -> /users/{id}/posts
package routing

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/swayhq/sway/internal/types"
)

var paramSegment = regexp.MustCompile(`\[(.*?)\]`)

// PatternFromFile derives the URL pattern of file relative to root.
func PatternFromFile(root, file string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve routes root %q: %w", root, err)
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve route file %q: %w", file, err)
	}

	rel, err := filepath.Rel(absRoot, absFile)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s not under %s", types.ErrRouteOutsideRoot, file, root)
	}

	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	dir, name := path.Split(rel)

	pattern := "/" + paramSegment.ReplaceAllString(dir, "{$1}")
	if !strings.EqualFold(name, "index") {
		pattern += paramSegment.ReplaceAllString(name, "{$1}")
	}
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	return pattern, nil
}

// ParamNames lists the {name} parameters of pattern in order.
func ParamNames(pattern string) []string {
	var names []string
	for _, seg := range strings.Split(pattern, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			names = append(names, seg[1:len(seg)-1])
		}
	}
	return names
}

// Package alias parses the alias definition DSL and resolves request
// paths to alias routes.
//
// A definition is a multi-line text. Each non-empty, non-comment line
// declares a route:
//
//	{pattern} -> {target} [literal|regex|glob] [ignore-case]
//
// The first route is primary; only primary routes participate in request
// matching. Secondary routes are parsed for listing and export.
package alias

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Match types, ranked for tie-breaking: literal beats glob beats regex.
const (
	MatchLiteral = "literal"
	MatchGlob    = "glob"
	MatchRegex   = "regex"
)

// ParseError is a line-level diagnostic for a malformed definition.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Route is one parsed rewrite rule.
type Route struct {
	AliasName  string
	Pattern    string
	Target     string
	MatchType  string
	IgnoreCase bool
	Primary    bool

	// Compiled matchers, populated by compile().
	globMatcher  glob.Glob
	regexMatcher *regexp.Regexp
}

// ParseDefinition parses a full alias definition. At least one route is
// required.
func ParseDefinition(aliasName, definition string) ([]*Route, error) {
	var routes []*Route

	for i, line := range strings.Split(definition, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		route, err := parseLine(trimmed)
		if err != nil {
			return nil, &ParseError{Line: i + 1, Reason: err.Error()}
		}
		route.AliasName = aliasName
		route.Primary = len(routes) == 0

		if err := route.compile(); err != nil {
			return nil, &ParseError{Line: i + 1, Reason: err.Error()}
		}
		routes = append(routes, route)
	}

	if len(routes) == 0 {
		return nil, &ParseError{Line: 1, Reason: "definition declares no routes"}
	}
	return routes, nil
}

// parseLine splits "pattern -> target [options]".
func parseLine(line string) (*Route, error) {
	idx := strings.Index(line, "->")
	if idx < 0 {
		return nil, fmt.Errorf("missing '->' separator in %q", line)
	}

	pattern := strings.TrimSpace(line[:idx])
	rest := strings.TrimSpace(line[idx+2:])
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	if rest == "" {
		return nil, fmt.Errorf("empty target")
	}

	route := &Route{Pattern: pattern, MatchType: MatchLiteral}

	// Options are bracketed tokens after the target.
	for strings.HasSuffix(rest, "]") {
		open := strings.LastIndex(rest, "[")
		if open < 0 {
			break
		}
		opt := strings.TrimSpace(rest[open+1 : len(rest)-1])
		rest = strings.TrimSpace(rest[:open])

		switch strings.ToLower(opt) {
		case MatchLiteral, MatchGlob, MatchRegex:
			route.MatchType = strings.ToLower(opt)
		case "ignore-case":
			route.IgnoreCase = true
		default:
			return nil, fmt.Errorf("unknown option %q", opt)
		}
	}

	if rest == "" {
		return nil, fmt.Errorf("empty target")
	}
	route.Target = rest
	return route, nil
}

// compile prepares the glob or regex matcher.
func (r *Route) compile() error {
	switch r.MatchType {
	case MatchLiteral:
		return nil
	case MatchGlob:
		pattern := r.Pattern
		if r.IgnoreCase {
			pattern = strings.ToLower(pattern)
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return fmt.Errorf("invalid glob pattern %q: %v", r.Pattern, err)
		}
		r.globMatcher = g
		return nil
	case MatchRegex:
		pattern := r.Pattern
		if r.IgnoreCase {
			pattern = "(?i)" + pattern
		}
		// Anchors are implicit: the route matches the whole path.
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return fmt.Errorf("invalid regex pattern %q: %v", r.Pattern, err)
		}
		r.regexMatcher = re
		return nil
	default:
		return fmt.Errorf("unknown match type %q", r.MatchType)
	}
}

// Match reports whether the normalized request path matches this route.
func (r *Route) Match(path string) bool {
	switch r.MatchType {
	case MatchLiteral:
		if r.IgnoreCase {
			return strings.EqualFold(path, r.Pattern)
		}
		return path == r.Pattern
	case MatchGlob:
		if r.globMatcher == nil {
			return false
		}
		if r.IgnoreCase {
			path = strings.ToLower(path)
		}
		return r.globMatcher.Match(path)
	case MatchRegex:
		return r.regexMatcher != nil && r.regexMatcher.MatchString(path)
	}
	return false
}

// literalPrefixLen is the length of the pattern's leading literal run,
// used as the specificity tie-break: a pattern with more fixed characters
// up front wins.
func (r *Route) literalPrefixLen() int {
	switch r.MatchType {
	case MatchLiteral:
		return len(r.Pattern)
	case MatchGlob:
		if i := strings.IndexAny(r.Pattern, `*?[{\`); i >= 0 {
			return i
		}
		return len(r.Pattern)
	case MatchRegex:
		pattern := strings.TrimPrefix(r.Pattern, "^")
		if i := strings.IndexAny(pattern, `.\+*?()|[]{}^$`); i >= 0 {
			return i
		}
		return len(pattern)
	}
	return 0
}

// rank orders match types for tie-breaking.
func (r *Route) rank() int {
	switch r.MatchType {
	case MatchLiteral:
		return 0
	case MatchGlob:
		return 1
	default:
		return 2
	}
}

// Package transform executes server definitions. Definitions are
// declarative YAML documents restricted to a fixed set of transform
// kinds; the service never evaluates arbitrary user code.
package transform

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transform kinds.
const (
	KindStatic   = "static"
	KindTemplate = "template"
	KindPipeline = "pipeline"
	KindForward  = "forward"
)

// DefaultContentType is used when a definition does not set content_type.
const DefaultContentType = "text/html"

// Definition is a parsed server definition.
type Definition struct {
	Kind        string       `yaml:"kind"`
	ContentType string       `yaml:"content_type"`
	Output      string       `yaml:"output"`
	Template    string       `yaml:"template"`
	Steps       []Step       `yaml:"steps"`
	Forward     *ForwardSpec `yaml:"forward"`
}

// Step is one pipeline operation.
type Step struct {
	Op      string `yaml:"op"`
	Pattern string `yaml:"pattern"`
	Count   int    `yaml:"count"`
	Old     string `yaml:"old"`
	New     string `yaml:"new"`
}

// ForwardSpec describes an outbound HTTP call.
type ForwardSpec struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
	Timeout time.Duration     `yaml:"timeout"`
}

var pipelineOps = map[string]bool{
	"grep":    true,
	"head":    true,
	"tail":    true,
	"upper":   true,
	"lower":   true,
	"replace": true,
	"jsonfmt": true,
	"lines":   true,
}

// ParseDefinition parses and validates a server definition document.
func ParseDefinition(text string) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal([]byte(text), &def); err != nil {
		return nil, fmt.Errorf("definition is not valid YAML: %w", err)
	}
	if def.ContentType == "" {
		def.ContentType = DefaultContentType
	}

	switch def.Kind {
	case KindStatic:
		// empty output is legal; the server produces zero bytes
	case KindTemplate:
		if def.Template == "" {
			return nil, fmt.Errorf("template definition requires a template field")
		}
	case KindPipeline:
		if len(def.Steps) == 0 {
			return nil, fmt.Errorf("pipeline definition requires at least one step")
		}
		for i, step := range def.Steps {
			if !pipelineOps[step.Op] {
				return nil, fmt.Errorf("step %d: unknown op %q", i+1, step.Op)
			}
		}
	case KindForward:
		if def.Forward == nil || def.Forward.URL == "" {
			return nil, fmt.Errorf("forward definition requires forward.url")
		}
	case "":
		return nil, fmt.Errorf("definition requires a kind (static, template, pipeline, forward)")
	default:
		return nil, fmt.Errorf("unknown definition kind %q", def.Kind)
	}
	return &def, nil
}

var argPlaceholder = regexp.MustCompile(`\{arg(\d+)\}`)

// substituteArgs replaces {argN} placeholders with positional arguments
// from the chained path. Out-of-range placeholders become empty strings.
func substituteArgs(s string, args []string) string {
	return argPlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		var n int
		fmt.Sscanf(m, "{arg%d}", &n)
		if n < len(args) {
			return args[n]
		}
		return ""
	})
}

// References lists the context entries a definition mentions. The scan is
// a hint for the entity detail view and never affects execution.
type References struct {
	Variables []string `json:"variables"`
	Secrets   []string `json:"secrets"`
	Servers   []string `json:"servers"`
}

var (
	refDot   = regexp.MustCompile(`\.Context\.(Variables|Secrets|Servers)\.([A-Za-z0-9_]+)`)
	refIndex = regexp.MustCompile(`index\s+\.Context\.(Variables|Secrets|Servers)\s+"([^"]+)"`)
)

// ScanReferences reports the variable, secret, and server names a
// definition's template text references, each list sorted and deduped.
func ScanReferences(text string) References {
	seen := map[string]map[string]bool{
		"Variables": {}, "Secrets": {}, "Servers": {},
	}
	for _, re := range []*regexp.Regexp{refDot, refIndex} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			seen[m[1]][m[2]] = true
		}
	}
	collect := func(kind string) []string {
		names := make([]string, 0, len(seen[kind]))
		for n := range seen[kind] {
			names = append(names, n)
		}
		sort.Strings(names)
		return names
	}
	return References{
		Variables: collect("Variables"),
		Secrets:   collect("Secrets"),
		Servers:   collect("Servers"),
	}
}

// splitLines splits on newlines, dropping the empty tail a trailing
// newline produces so line counts match what an editor shows.
func splitLines(s string) (lines []string, trailingNewline bool) {
	if s == "" {
		return nil, false
	}
	trailingNewline = strings.HasSuffix(s, "\n")
	if trailingNewline {
		s = s[:len(s)-1]
	}
	return strings.Split(s, "\n"), trailingNewline
}

func joinLines(lines []string, trailingNewline bool) string {
	out := strings.Join(lines, "\n")
	if trailingNewline && out != "" {
		out += "\n"
	}
	return out
}

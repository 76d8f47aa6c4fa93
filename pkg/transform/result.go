package transform

import (
	"fmt"
	"strings"
)

// Result is a successful execution: the encoded output bytes and the
// content type they should be served with.
type Result struct {
	Output      []byte
	ContentType string
}

// RunError is a failed execution. The runner never panics across this
// boundary; every failure becomes a RunError the HTTP layer maps to a
// 500 text/plain diagnostic. Failed runs write no invocation row.
type RunError struct {
	Message string
	Detail  string
	Source  string
	Args    []string
}

func (e *RunError) Error() string {
	return e.Message
}

// Body renders the full diagnostic: message, detail, the definition
// source, and the argument payload.
func (e *RunError) Body() string {
	var b strings.Builder
	b.WriteString(e.Message)
	b.WriteByte('\n')
	if e.Detail != "" {
		b.WriteByte('\n')
		b.WriteString(e.Detail)
		b.WriteByte('\n')
	}
	b.WriteString("\n--- definition ---\n")
	b.WriteString(e.Source)
	if !strings.HasSuffix(e.Source, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("\n--- arguments ---\n")
	if len(e.Args) == 0 {
		b.WriteString("(none)\n")
	}
	for i, a := range e.Args {
		fmt.Fprintf(&b, "arg%d: %s\n", i, a)
	}
	return b.String()
}

func runErrorf(source string, args []string, detail, format string, a ...any) *RunError {
	return &RunError{
		Message: fmt.Sprintf(format, a...),
		Detail:  detail,
		Source:  source,
		Args:    args,
	}
}

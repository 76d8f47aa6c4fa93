package transform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/secrets"
	"github.com/hashbeam/cidhub/pkg/store"
)

// RequestDetails is the request structure a definition sees. It is also
// serialized and stored as the invocation's request_details CID, so
// fields are stable JSON.
type RequestDetails struct {
	Path    string            `json:"path"`
	Method  string            `json:"method"`
	Query   map[string]string `json:"query"`
	Headers map[string]string `json:"headers"`
	Form    map[string]string `json:"form"`
	Args    []string          `json:"args"`
	JSON    json.RawMessage   `json:"json,omitempty"`
	Body    string            `json:"body"`
}

// NewRequestDetails captures the executable view of an HTTP request.
// Cookies never cross into definitions.
func NewRequestDetails(r *http.Request, args []string) *RequestDetails {
	d := &RequestDetails{
		Path:    r.URL.Path,
		Method:  r.Method,
		Query:   map[string]string{},
		Headers: map[string]string{},
		Form:    map[string]string{},
		Args:    args,
	}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			d.Query[k] = v[0]
		}
	}
	for k, v := range r.Header {
		if strings.EqualFold(k, "Cookie") {
			continue
		}
		if len(v) > 0 {
			d.Headers[k] = v[0]
		}
	}

	if r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err == nil && len(body) > 0 {
			d.Body = string(body)
			if json.Valid(body) {
				d.JSON = json.RawMessage(body)
			}
		}
	}
	if err := r.ParseForm(); err == nil {
		for k, v := range r.PostForm {
			if len(v) > 0 {
				d.Form[k] = v[0]
			}
		}
	}
	return d
}

// Context is the entity snapshot a definition executes against. It is
// read once at the start of execution and never refreshed.
type Context struct {
	Variables map[string]string `json:"variables"`
	Secrets   map[string]string `json:"secrets"`
	Servers   map[string]string `json:"servers"`
}

// MaterializeContext reads the user's enabled variables, secrets, and
// servers into a Context. Secrets decrypt with secretKey; with no key,
// or on a decrypt failure, the secret is omitted rather than exposed as
// ciphertext.
func MaterializeContext(ctx context.Context, s *store.GORMStore, userID, secretKey string) (*Context, error) {
	out := &Context{
		Variables: map[string]string{},
		Secrets:   map[string]string{},
		Servers:   map[string]string{},
	}

	vars, err := s.ListEnabledVariables(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, v := range vars {
		out.Variables[v.Name] = v.Definition
	}

	if secretKey != "" {
		secs, err := s.ListEnabledSecrets(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, sec := range secs {
			plain, err := secrets.Decrypt(sec.Ciphertext, secretKey)
			if err != nil {
				logger.Warn("secret not decryptable in execution context",
					logger.KeyUser, userID, "secret", sec.Name)
				continue
			}
			out.Secrets[sec.Name] = plain
		}
	}

	servers, err := s.ListEnabledServers(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, sv := range servers {
		out.Servers[sv.Name] = sv.Definition
	}
	return out, nil
}

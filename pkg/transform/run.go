package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/metrics"
	"github.com/hashbeam/cidhub/pkg/mimetype"
	"github.com/hashbeam/cidhub/pkg/models"
)

// DefaultForwardTimeout bounds outbound HTTP calls made by forward
// definitions.
const DefaultForwardTimeout = 60 * time.Second

// Options configures an Executor.
type Options struct {
	// ForwardTimeout overrides DefaultForwardTimeout when positive.
	ForwardTimeout time.Duration
	// SecretKey decrypts secrets into the execution context. Empty means
	// definitions see no secrets.
	SecretKey string
	// Client overrides the HTTP client used by forward definitions.
	Client *http.Client
}

// Executor runs server definitions and records their lineage.
type Executor struct {
	content        *content.Service
	metrics        metrics.ExecMetrics
	client         *http.Client
	forwardTimeout time.Duration
	secretKey      string
}

// New creates an executor over the content service.
func New(c *content.Service, m metrics.ExecMetrics, opts Options) *Executor {
	timeout := opts.ForwardTimeout
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Executor{
		content:        c,
		metrics:        m,
		client:         client,
		forwardTimeout: timeout,
		secretKey:      opts.SecretKey,
	}
}

// Outcome is a recorded successful execution.
type Outcome struct {
	ResultCID    string
	ContentType  string
	RedirectPath string
	InvocationID string
}

// Execute runs a definition for one request. segments are the path
// segments after the server name; the last one may name a data source
// (an enabled server, invoked first, or a CID), the rest are positional
// arguments. On success the output is stored and an invocation row is
// written; on failure nothing is persisted.
func (e *Executor) Execute(ctx context.Context, userID, serverName, definition string, req *RequestDetails, segments []string) (*Outcome, *RunError) {
	start := time.Now()
	outcome, runErr := e.execute(ctx, userID, serverName, definition, req, segments)
	if e.metrics != nil {
		e.metrics.ObserveInvocation(serverName, time.Since(start).Seconds(), runErr != nil)
	}
	return outcome, runErr
}

func (e *Executor) execute(ctx context.Context, userID, serverName, definition string, req *RequestDetails, segments []string) (*Outcome, *RunError) {
	execCtx, err := MaterializeContext(ctx, e.content.Store(), userID, e.secretKey)
	if err != nil {
		return nil, runErrorf(definition, segments, err.Error(), "failed to materialize execution context")
	}

	args, input, runErr := e.resolveChain(ctx, userID, serverName, execCtx, req, segments)
	if runErr != nil {
		return nil, runErr
	}
	if input == nil && req != nil && req.Body != "" {
		input = []byte(req.Body)
	}
	if req != nil {
		req.Args = args
	}

	result, runErr := e.runDefinition(ctx, definition, execCtx, req, args, input)
	if runErr != nil {
		return nil, runErr
	}

	outcome, err := e.record(ctx, userID, serverName, execCtx, req, result)
	if err != nil {
		return nil, runErrorf(definition, args, err.Error(), "failed to record invocation")
	}
	logger.InfoCtx(ctx, "server executed",
		logger.KeyServer, serverName,
		logger.KeyCID, outcome.ResultCID,
		logger.KeySize, len(result.Output))
	return outcome, nil
}

// resolveChain splits the extra path segments into positional args and an
// input source. The last segment is tried as another enabled server, then
// as a stored CID; if neither, all segments are plain args.
func (e *Executor) resolveChain(ctx context.Context, userID, serverName string, execCtx *Context, req *RequestDetails, segments []string) (args []string, input []byte, runErr *RunError) {
	if len(segments) == 0 {
		return nil, nil, nil
	}
	last := segments[len(segments)-1]

	if last != serverName {
		if src, err := e.content.Store().GetEnabledServer(ctx, userID, last); err == nil {
			result, runErr := e.runDefinition(ctx, src.Definition, execCtx, req, nil, nil)
			if runErr != nil {
				return nil, nil, runErr
			}
			return segments[:len(segments)-1], result.Output, nil
		}
	}

	if cid.Validate(last) == nil {
		if ok, err := e.content.Exists(ctx, last); err == nil && ok {
			b, err := e.content.Get(ctx, last)
			if err != nil {
				return nil, nil, runErrorf("", segments, err.Error(), "chained source %s not readable", last)
			}
			return segments[:len(segments)-1], b, nil
		}
	}
	return segments, nil, nil
}

// runDefinition parses and runs a definition without persisting anything.
func (e *Executor) runDefinition(ctx context.Context, definition string, execCtx *Context, req *RequestDetails, args []string, input []byte) (*Result, *RunError) {
	def, err := ParseDefinition(definition)
	if err != nil {
		return nil, runErrorf(definition, args, err.Error(), "invalid server definition")
	}

	switch def.Kind {
	case KindStatic:
		return &Result{
			Output:      []byte(substituteArgs(def.Output, args)),
			ContentType: def.ContentType,
		}, nil
	case KindTemplate:
		return runTemplate(def, definition, execCtx, req, args, input)
	case KindPipeline:
		return runPipeline(def, definition, args, input)
	case KindForward:
		return e.runForward(ctx, def, definition, args, input)
	}
	return nil, runErrorf(definition, args, "", "unknown definition kind %q", def.Kind)
}

type templateData struct {
	Request *RequestDetails
	Context *Context
	Args    []string
	Input   string
}

func runTemplate(def *Definition, source string, execCtx *Context, req *RequestDetails, args []string, input []byte) (*Result, *RunError) {
	tmpl, err := template.New("server").Option("missingkey=zero").Parse(def.Template)
	if err != nil {
		return nil, runErrorf(source, args, err.Error(), "template parse failed")
	}
	var buf bytes.Buffer
	data := templateData{Request: req, Context: execCtx, Args: args, Input: string(input)}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, runErrorf(source, args, err.Error(), "template execution failed")
	}
	return &Result{Output: buf.Bytes(), ContentType: def.ContentType}, nil
}

func runPipeline(def *Definition, source string, args []string, input []byte) (*Result, *RunError) {
	text := string(input)
	for i, step := range def.Steps {
		out, err := applyStep(step, args, text)
		if err != nil {
			return nil, runErrorf(source, args, err.Error(), "pipeline step %d (%s) failed", i+1, step.Op)
		}
		text = out
	}
	return &Result{Output: []byte(text), ContentType: def.ContentType}, nil
}

func applyStep(step Step, args []string, input string) (string, error) {
	switch step.Op {
	case "grep":
		pattern := substituteArgs(step.Pattern, args)
		lines, _ := splitLines(input)
		var kept []string
		for _, line := range lines {
			if strings.Contains(line, pattern) {
				kept = append(kept, line)
			}
		}
		return joinLines(kept, true), nil
	case "head":
		n := step.Count
		if n <= 0 {
			n = 10
		}
		lines, trailing := splitLines(input)
		if len(lines) > n {
			lines, trailing = lines[:n], true
		}
		return joinLines(lines, trailing), nil
	case "tail":
		n := step.Count
		if n <= 0 {
			n = 10
		}
		lines, trailing := splitLines(input)
		if len(lines) > n {
			lines = lines[len(lines)-n:]
		}
		return joinLines(lines, trailing), nil
	case "upper":
		return strings.ToUpper(input), nil
	case "lower":
		return strings.ToLower(input), nil
	case "replace":
		old := substituteArgs(step.Old, args)
		if old == "" {
			return "", fmt.Errorf("replace requires a non-empty old string")
		}
		return strings.ReplaceAll(input, old, substituteArgs(step.New, args)), nil
	case "jsonfmt":
		var v any
		if err := json.Unmarshal([]byte(input), &v); err != nil {
			return "", fmt.Errorf("input is not valid JSON: %w", err)
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out) + "\n", nil
	case "lines":
		lines, _ := splitLines(input)
		return fmt.Sprintf("%d\n", len(lines)), nil
	}
	return "", fmt.Errorf("unknown op %q", step.Op)
}

func (e *Executor) runForward(ctx context.Context, def *Definition, source string, args []string, input []byte) (*Result, *RunError) {
	spec := def.Forward
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}
	url := substituteArgs(spec.URL, args)

	var body io.Reader
	switch {
	case spec.Body != "":
		body = strings.NewReader(substituteArgs(spec.Body, args))
	case len(input) > 0:
		body = bytes.NewReader(input)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = e.forwardTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return nil, runErrorf(source, args, err.Error(), "forward request invalid")
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, substituteArgs(v, args))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, runErrorf(source, args, err.Error(), "forward to %s failed", url)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, runErrorf(source, args, err.Error(), "forward response from %s not readable", url)
	}

	contentType := def.ContentType
	if contentType == DefaultContentType {
		if upstream := resp.Header.Get("Content-Type"); upstream != "" {
			contentType = upstream
		}
	}
	return &Result{Output: out, ContentType: contentType}, nil
}

// invocationRecord is the JSON document whose CID becomes the
// invocation_cid cross-link.
type invocationRecord struct {
	ServerName        string `json:"server_name"`
	ResultCID         string `json:"result_cid"`
	ServersCID        string `json:"servers_cid"`
	VariablesCID      string `json:"variables_cid"`
	SecretsCID        string `json:"secrets_cid"`
	RequestDetailsCID string `json:"request_details_cid"`
	InvokedAt         string `json:"invoked_at"`
}

// record persists the result bytes and the full invocation lineage. All
// cross-links between invocation artifacts are CIDs.
func (e *Executor) record(ctx context.Context, userID, serverName string, execCtx *Context, req *RequestDetails, result *Result) (*Outcome, error) {
	resultCID, err := e.content.Put(ctx, result.Output, userID)
	if err != nil {
		return nil, err
	}

	serversCID, err := e.putSnapshot(ctx, userID, execCtx.Servers)
	if err != nil {
		return nil, err
	}
	variablesCID, err := e.putSnapshot(ctx, userID, execCtx.Variables)
	if err != nil {
		return nil, err
	}
	secretsCID, err := e.putSecretsSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	var requestCID string
	if req != nil {
		raw, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}
		requestCID, err = e.content.Put(ctx, raw, userID)
		if err != nil {
			return nil, err
		}
	}

	invokedAt := time.Now().UTC()
	record := invocationRecord{
		ServerName:        serverName,
		ResultCID:         resultCID,
		ServersCID:        serversCID,
		VariablesCID:      variablesCID,
		SecretsCID:        secretsCID,
		RequestDetailsCID: requestCID,
		InvokedAt:         invokedAt.Format(time.RFC3339),
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	invocationCID, err := e.content.Put(ctx, recordBytes, userID)
	if err != nil {
		return nil, err
	}

	inv := &models.ServerInvocation{
		UserID:            userID,
		ServerName:        serverName,
		ResultCID:         resultCID,
		ServersCID:        serversCID,
		VariablesCID:      variablesCID,
		SecretsCID:        secretsCID,
		RequestDetailsCID: requestCID,
		InvocationCID:     invocationCID,
		InvokedAt:         invokedAt,
	}
	if err := e.content.Store().AddInvocation(ctx, inv); err != nil {
		return nil, err
	}

	redirect := "/" + resultCID
	if ext := mimetype.ExtensionFor(result.ContentType); ext != "" {
		redirect += "." + ext
	}
	return &Outcome{
		ResultCID:    resultCID,
		ContentType:  result.ContentType,
		RedirectPath: redirect,
		InvocationID: inv.ID,
	}, nil
}

// putSnapshot stores a name-to-definition map as a CID. encoding/json
// sorts map keys, so the snapshot bytes are deterministic for a given
// table state.
func (e *Executor) putSnapshot(ctx context.Context, userID string, m map[string]string) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return e.content.Put(ctx, raw, userID)
}

// putSecretsSnapshot snapshots name-to-ciphertext. Plaintext secrets are
// never written to the content pool.
func (e *Executor) putSecretsSnapshot(ctx context.Context, userID string) (string, error) {
	secs, err := e.content.Store().ListEnabledSecrets(ctx, userID)
	if err != nil {
		return "", err
	}
	m := make(map[string]string, len(secs))
	for _, sec := range secs {
		m[sec.Name] = sec.Ciphertext
	}
	return e.putSnapshot(ctx, userID, m)
}

// AmbiguousVersionError reports a definition CID prefix matching more
// than one historical definition.
type AmbiguousVersionError struct {
	Matches []string
}

func (e *AmbiguousVersionError) Error() string {
	return fmt.Sprintf("definition prefix matches %d versions", len(e.Matches))
}

// ResolveVersion finds the unique historical definition of a server whose
// definition CID starts with prefix. Candidates are the current
// definition_cid plus every definition recoverable from past
// servers-table snapshots. Zero matches return models.ErrServerNotFound;
// several return an AmbiguousVersionError listing them.
func (e *Executor) ResolveVersion(ctx context.Context, userID, serverName, prefix string) (definition string, definitionCID string, err error) {
	s := e.content.Store()

	// cid -> definition text for every version we can recover
	versions := map[string]string{}

	if current, err := s.GetServer(ctx, userID, serverName); err == nil {
		versions[current.DefinitionCID] = current.Definition
	}

	snapshotCIDs, err := s.ServerSnapshotCIDs(ctx, userID)
	if err != nil {
		return "", "", err
	}
	for _, snapCID := range snapshotCIDs {
		raw, err := e.content.Get(ctx, snapCID)
		if err != nil {
			logger.Warn("server snapshot unreadable", logger.KeyCID, snapCID, logger.KeyError, err)
			continue
		}
		var snapshot map[string]string
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			continue
		}
		if def, ok := snapshot[serverName]; ok {
			versions[cid.Generate([]byte(def))] = def
		}
	}

	var matches []string
	for defCID := range versions {
		if strings.HasPrefix(defCID, prefix) {
			matches = append(matches, defCID)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", "", models.ErrServerNotFound
	case 1:
		return versions[matches[0]], matches[0], nil
	default:
		return "", "", &AmbiguousVersionError{Matches: matches}
	}
}

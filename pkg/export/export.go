// Package export serializes a workspace into a single deterministic
// payload identified by one CID, and applies such payloads back.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/metrics"
	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/secrets"
)

// PayloadVersion is the export payload format version.
const PayloadVersion = 6

// epochTimestamp is the generated_at value for exports that carry no
// change history. A wall-clock stamp would break CID stability across
// identical workspaces.
const epochTimestamp = "1970-01-01T00:00:00Z"

// Selection chooses what an export contains.
type Selection struct {
	Aliases       bool `json:"aliases"`
	Servers       bool `json:"servers"`
	Variables     bool `json:"variables"`
	Secrets       bool `json:"secrets"`
	ChangeHistory bool `json:"change_history"`
	AppSource     bool `json:"app_source"`

	// CIDMap inlines the content of every referenced CID so the payload
	// imports into an empty store.
	CIDMap bool `json:"cid_map"`
	// UnreferencedCIDData additionally inlines every stored CID the
	// sections do not reference.
	UnreferencedCIDData bool `json:"unreferenced_cid_data"`

	IncludeDisabled bool `json:"include_disabled"`
	// Names restricts a collection to explicit names, keyed by entity
	// type. An absent key exports the whole collection.
	Names map[string][]string `json:"names,omitempty"`

	// SecretKey re-encrypts exported secrets. Empty passes ciphertext
	// through unchanged.
	SecretKey string `json:"-"`
	// StoreContent writes the payload and its sections to the CID pool.
	// The size probe runs with it off.
	StoreContent bool `json:"-"`
}

// Everything selects all sections with inlined CID content.
func Everything(secretKey string) Selection {
	return Selection{
		Aliases: true, Servers: true, Variables: true, Secrets: true,
		ChangeHistory: true, AppSource: true, CIDMap: true,
		IncludeDisabled: true,
		SecretKey:       secretKey,
		StoreContent:    true,
	}
}

// Result is a produced snapshot.
type Result struct {
	CID     string
	Payload []byte
	Size    int
}

// Engine assembles export payloads.
type Engine struct {
	content  *content.Service
	metrics  metrics.ExportMetrics
	storeKey string
}

// NewEngine creates an export engine. storeKey is the passphrase secrets
// are encrypted with at rest; metrics may be nil.
func NewEngine(c *content.Service, m metrics.ExportMetrics, storeKey string) *Engine {
	return &Engine{content: c, metrics: m, storeKey: storeKey}
}

// assembly tracks section CIDs and the content behind every referenced
// CID during one export run.
type assembly struct {
	ctx          context.Context
	userID       string
	storeContent bool
	engine       *Engine
	refs         map[string]string
}

// put stores bytes when the run persists, and only computes the CID for
// the size probe. Either way the bytes are remembered for cid_values.
func (a *assembly) put(b []byte) (string, error) {
	var id string
	if a.storeContent {
		var err error
		id, err = a.engine.content.Put(a.ctx, b, a.userID)
		if err != nil {
			return "", err
		}
	} else {
		id = cid.Generate(b)
	}
	a.refs[id] = replaceInvalidUTF8(b)
	return id, nil
}

// Export serializes the selected workspace sections. With StoreContent
// the payload is written to the pool and recorded as an Export row.
func (e *Engine) Export(ctx context.Context, userID string, sel Selection) (*Result, error) {
	start := time.Now()
	a := &assembly{
		ctx:          ctx,
		userID:       userID,
		storeContent: sel.StoreContent,
		engine:       e,
		refs:         map[string]string{},
	}
	s := e.content.Store()

	sections := []sectionKV{}
	addSection := func(key string, doc any) error {
		raw, err := canonicalJSON(doc)
		if err != nil {
			return err
		}
		id, err := a.put(raw)
		if err != nil {
			return err
		}
		sections = append(sections, sectionKV{key, json.RawMessage(fmt.Sprintf("%q", id))})
		return nil
	}

	if sel.Aliases {
		rows, err := s.ListAliases(ctx, userID)
		if err != nil {
			return nil, err
		}
		doc, err := definitionEntries(a, filterNamed(rows, sel, models.EntityAlias,
			func(r *models.Alias) (string, bool) { return r.Name, r.Enabled }),
			func(r *models.Alias) string { return r.Definition })
		if err != nil {
			return nil, err
		}
		if err := addSection("aliases", doc); err != nil {
			return nil, err
		}
	}
	if sel.AppSource {
		if err := addSection("app_source", map[string][]any{}); err != nil {
			return nil, err
		}
	}

	var generatedAt = epochTimestamp
	if sel.ChangeHistory {
		doc, newest, err := e.historyDoc(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !newest.IsZero() {
			generatedAt = newest.UTC().Format(time.RFC3339)
		}
		if err := addSection("change_history", doc); err != nil {
			return nil, err
		}
	}

	sections = append(sections,
		sectionKV{"generated_at", json.RawMessage(fmt.Sprintf("%q", generatedAt))})

	runtimeDoc, err := canonicalValue(runtimeSection())
	if err != nil {
		return nil, err
	}
	sections = append(sections, sectionKV{"runtime", runtimeDoc})

	if sel.Secrets {
		rows, err := s.ListSecrets(ctx, userID)
		if err != nil {
			return nil, err
		}
		doc, err := e.secretsDoc(filterNamed(rows, sel, models.EntitySecret,
			func(r *models.Secret) (string, bool) { return r.Name, r.Enabled }), sel.SecretKey)
		if err != nil {
			return nil, err
		}
		if err := addSection("secrets", doc); err != nil {
			return nil, err
		}
	}
	if sel.Servers {
		rows, err := s.ListServers(ctx, userID)
		if err != nil {
			return nil, err
		}
		doc, err := definitionEntries(a, filterNamed(rows, sel, models.EntityServer,
			func(r *models.Server) (string, bool) { return r.Name, r.Enabled }),
			func(r *models.Server) string { return r.Definition })
		if err != nil {
			return nil, err
		}
		if err := addSection("servers", doc); err != nil {
			return nil, err
		}
	}
	if sel.Variables {
		rows, err := s.ListVariables(ctx, userID)
		if err != nil {
			return nil, err
		}
		entries := make([]variableEntry, 0, len(rows))
		for _, v := range filterNamed(rows, sel, models.EntityVariable,
			func(r *models.Variable) (string, bool) { return r.Name, r.Enabled }) {
			entries = append(entries, variableEntry{
				Definition: v.Row.Definition,
				Enabled:    v.Enabled,
				Name:       v.Name,
			})
		}
		if err := addSection("variables", entries); err != nil {
			return nil, err
		}
	}

	sections = append(sections,
		sectionKV{"version", json.RawMessage(fmt.Sprintf("%d", PayloadVersion))})

	var cidValues map[string]string
	if sel.CIDMap {
		cidValues = a.refs
		if sel.UnreferencedCIDData {
			if err := a.addUnreferenced(); err != nil {
				return nil, err
			}
		}
	}

	payload, err := encodePayload(sections, cidValues)
	if err != nil {
		return nil, err
	}

	result := &Result{Payload: payload, Size: len(payload)}
	if sel.StoreContent {
		id, err := e.content.Put(ctx, payload, userID)
		if err != nil {
			return nil, err
		}
		result.CID = id
		if err := s.RecordExport(ctx, userID, id); err != nil {
			return nil, err
		}
		logger.Info("export recorded", logger.KeyCID, id, logger.KeySize, result.Size)
	} else {
		result.CID = cid.Generate(payload)
	}

	if e.metrics != nil {
		e.metrics.ObserveExport(time.Since(start).Seconds(), result.Size)
	}
	return result, nil
}

// named pairs a row with its export fields.
type named[T any] struct {
	Name    string
	Enabled bool
	Row     T
}

func filterNamed[T any](rows []T, sel Selection, entityType string, fields func(T) (string, bool)) []named[T] {
	var wanted map[string]bool
	if names, ok := sel.Names[entityType]; ok {
		wanted = map[string]bool{}
		for _, n := range names {
			wanted[n] = true
		}
	}
	out := make([]named[T], 0, len(rows))
	for _, r := range rows {
		name, enabled := fields(r)
		if !enabled && !sel.IncludeDisabled {
			continue
		}
		if wanted != nil && !wanted[name] {
			continue
		}
		out = append(out, named[T]{Name: name, Enabled: enabled, Row: r})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// definitionEntry references an entity definition by CID.
type definitionEntry struct {
	DefinitionCID string `json:"definition_cid"`
	Enabled       bool   `json:"enabled"`
	Name          string `json:"name"`
}

type variableEntry struct {
	Definition string `json:"definition"`
	Enabled    bool   `json:"enabled"`
	Name       string `json:"name"`
}

type secretEntry struct {
	Ciphertext string `json:"ciphertext"`
	Enabled    bool   `json:"enabled"`
	Name       string `json:"name"`
}

type secretsSection struct {
	Encryption string        `json:"encryption"`
	Items      []secretEntry `json:"items"`
}

func definitionEntries[T any](a *assembly, rows []named[T], definition func(T) string) ([]definitionEntry, error) {
	entries := make([]definitionEntry, 0, len(rows))
	for _, r := range rows {
		defCID, err := a.put([]byte(definition(r.Row)))
		if err != nil {
			return nil, err
		}
		entries = append(entries, definitionEntry{
			DefinitionCID: defCID,
			Enabled:       r.Enabled,
			Name:          r.Name,
		})
	}
	return entries, nil
}

// secretsDoc re-encrypts secrets under the export key when the at-rest
// key can open them; otherwise ciphertext passes through unchanged so a
// key mismatch never blocks the rest of the export.
func (e *Engine) secretsDoc(rows []named[*models.Secret], exportKey string) (*secretsSection, error) {
	items := make([]secretEntry, 0, len(rows))
	for _, r := range rows {
		ciphertext := r.Row.Ciphertext
		if exportKey != "" && e.storeKey != "" {
			if plain, err := secrets.Decrypt(ciphertext, e.storeKey); err == nil {
				reenc, err := secrets.Encrypt(plain, exportKey)
				if err != nil {
					return nil, err
				}
				ciphertext = reenc
			}
		}
		items = append(items, secretEntry{
			Ciphertext: ciphertext,
			Enabled:    r.Enabled,
			Name:       r.Name,
		})
	}
	return &secretsSection{Encryption: secrets.Scheme, Items: items}, nil
}

// historyEvent is one change-history entry.
type historyEvent struct {
	Action    string `json:"action"`
	Content   string `json:"content,omitempty"`
	CreatedAt string `json:"created_at"`
	Message   string `json:"message,omitempty"`
}

// historyDoc builds collection -> name -> events, and reports the newest
// event time for generated_at.
func (e *Engine) historyDoc(ctx context.Context, userID string) (map[string]map[string][]historyEvent, time.Time, error) {
	rows, err := e.content.Store().ListInteractions(ctx, userID, "", "")
	if err != nil {
		return nil, time.Time{}, err
	}
	doc := map[string]map[string][]historyEvent{}
	var newest time.Time
	for _, row := range rows {
		byName := doc[row.EntityType]
		if byName == nil {
			byName = map[string][]historyEvent{}
			doc[row.EntityType] = byName
		}
		byName[row.EntityName] = append(byName[row.EntityName], historyEvent{
			Action:    row.Action,
			Content:   row.Content,
			CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
			Message:   row.Message,
		})
		if row.CreatedAt.After(newest) {
			newest = row.CreatedAt
		}
	}
	return doc, newest, nil
}

// addUnreferenced inlines every stored CID the sections did not already
// reference.
func (a *assembly) addUnreferenced() error {
	paths, err := a.engine.content.Store().CIDPaths(a.ctx)
	if err != nil {
		return err
	}
	for p := range paths {
		id := strings.TrimPrefix(p, "/")
		if _, ok := a.refs[id]; ok {
			continue
		}
		b, err := a.engine.content.Get(a.ctx, id)
		if err != nil {
			return err
		}
		a.refs[id] = replaceInvalidUTF8(b)
	}
	return nil
}

// sectionKV is one ordered top-level payload entry.
type sectionKV struct {
	Key   string
	Value json.RawMessage
}

// canonicalJSON renders a section document with sorted keys and fixed
// two-space indent. Byte-for-byte stability is what keeps section CIDs
// reproducible.
func canonicalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// canonicalValue renders a value for embedding at payload depth one.
func canonicalValue(v any) (json.RawMessage, error) {
	raw, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// encodePayload writes the top-level object with keys alphabetical and
// cid_values always last.
func encodePayload(sections []sectionKV, cidValues map[string]string) ([]byte, error) {
	ordered := make([]sectionKV, len(sections))
	copy(ordered, sections)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Key < ordered[j].Key })

	if cidValues != nil {
		raw, err := canonicalValue(cidValues)
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, sectionKV{"cid_values", raw})
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, kv := range ordered {
		fmt.Fprintf(&buf, "  %q: %s", kv.Key, kv.Value)
		if i < len(ordered)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

// replaceInvalidUTF8 renders bytes as text, substituting the replacement
// rune for undecodable sequences.
func replaceInvalidUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

package export

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/cid"
)

// bootSections are the payload keys whose string values reference
// section CIDs.
var bootSections = []string{
	"aliases", "servers", "variables", "secrets",
	"change_history", "app_source", "metadata",
}

// MissingDependenciesError aborts a boot import before any mutation.
type MissingDependenciesError struct {
	Missing []string
}

func (e *MissingDependenciesError) Error() string {
	return fmt.Sprintf(
		"boot import aborted: the following CIDs are missing from the database: %s. Place files with those names in the cids/ directory and restart.",
		strings.Join(e.Missing, ", "))
}

// BootFromCID materializes a workspace from one CID. Every referenced
// section CID must resolve before anything is written; on success the
// sections apply through the shared importer and a fresh snapshot is
// recorded.
func (im *Importer) BootFromCID(ctx context.Context, userID, bootCID, secretKey string) error {
	importMu.Lock()
	defer importMu.Unlock()

	payload, err := im.content.Get(ctx, bootCID)
	if err != nil {
		return fmt.Errorf("boot CID %s: %w", bootCID, err)
	}
	if !utf8.Valid(payload) {
		return fmt.Errorf("boot CID %s: content is not UTF-8 text", bootCID)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return fmt.Errorf("boot CID %s: content is not a JSON object: %w", bootCID, err)
	}

	inlined := map[string]bool{}
	if raw, ok := top["cid_values"]; ok {
		var values map[string]string
		if err := json.Unmarshal(raw, &values); err != nil {
			return fmt.Errorf("boot CID %s: cid_values malformed: %w", bootCID, err)
		}
		for id := range values {
			inlined[id] = true
		}
	}

	paths, err := im.content.Store().CIDPaths(ctx)
	if err != nil {
		return err
	}
	var missing []string
	for _, key := range bootSections {
		raw, ok := top[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil || cid.Validate(id) != nil {
			continue
		}
		if inlined[id] || cid.IsLiteral(id) {
			continue
		}
		if _, ok := paths["/"+id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingDependenciesError{Missing: missing}
	}

	im.printBootDiff(ctx, userID, top, inlined)

	if _, err := im.apply(ctx, userID, payload, secretKey); err != nil {
		return err
	}

	if im.engine != nil {
		if _, err := im.engine.Export(ctx, userID, Everything(secretKey)); err != nil {
			return fmt.Errorf("post-boot snapshot failed: %w", err)
		}
	}
	logger.Info("boot import complete", logger.KeyCID, bootCID)
	return nil
}

// printBootDiff warns on stdout about inbound entities that differ from
// their current rows. The import overwrites them regardless.
func (im *Importer) printBootDiff(ctx context.Context, userID string, top map[string]json.RawMessage, inlined map[string]bool) {
	var differing []string

	check := func(key string, current func(name string) (definition string, enabled bool, found bool)) {
		doc, ok, err := im.bootSection(ctx, top, key, inlined)
		if err != nil || !ok {
			return
		}
		var entries []definitionEntry
		if err := json.Unmarshal(doc, &entries); err != nil {
			return
		}
		for _, entry := range entries {
			def, err := im.bootContent(ctx, entry.DefinitionCID, inlined, top)
			if err != nil {
				continue
			}
			definition, enabled, found := current(entry.Name)
			if found && (definition != string(def) || enabled != entry.Enabled) {
				differing = append(differing, key+"/"+entry.Name)
			}
		}
	}

	s := im.content.Store()
	check("aliases", func(name string) (string, bool, bool) {
		row, err := s.GetAlias(ctx, userID, name)
		if err != nil {
			return "", false, false
		}
		return row.Definition, row.Enabled, true
	})
	check("servers", func(name string) (string, bool, bool) {
		row, err := s.GetServer(ctx, userID, name)
		if err != nil {
			return "", false, false
		}
		return row.Definition, row.Enabled, true
	})

	if len(differing) > 0 {
		sort.Strings(differing)
		fmt.Printf("warning: boot image differs from current workspace: %s\n",
			strings.Join(differing, ", "))
	}
}

// bootSection resolves a section document during the pre-apply diff,
// reading inlined content when the store has no row yet.
func (im *Importer) bootSection(ctx context.Context, top map[string]json.RawMessage, key string, inlined map[string]bool) ([]byte, bool, error) {
	raw, ok := top[key]
	if !ok {
		return nil, false, nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, false, err
	}
	doc, err := im.bootContent(ctx, id, inlined, top)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (im *Importer) bootContent(ctx context.Context, id string, inlined map[string]bool, top map[string]json.RawMessage) ([]byte, error) {
	if inlined[id] {
		var values map[string]string
		if err := json.Unmarshal(top["cid_values"], &values); err == nil {
			if text, ok := values[id]; ok {
				return []byte(text), nil
			}
		}
	}
	return im.content.Get(ctx, id)
}

package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/alias"
	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/secrets"
)

// ErrSecretKey reports that the imported secrets section does not open
// with the supplied key. Other sections are unaffected.
var ErrSecretKey = errors.New("Invalid decryption key for secrets")

// importMu serializes all imports process-wide. Entity tables must not
// see concurrent importer writes, and the boot importer runs before the
// HTTP listener starts.
var importMu sync.Mutex

// Importer applies export payloads to the workspace.
type Importer struct {
	content *content.Service
	engine  *Engine
}

// NewImporter creates an importer. The engine regenerates a snapshot
// after a boot import.
func NewImporter(c *content.Service, e *Engine) *Importer {
	return &Importer{content: c, engine: e}
}

// Report summarizes one import.
type Report struct {
	Applied       map[string]int `json:"applied"`
	SkippedCIDs   []string       `json:"skipped_cids,omitempty"`
	SectionErrors []string       `json:"section_errors,omitempty"`
}

// Apply parses and applies an export payload. A malformed payload
// returns an error before any mutation. Section-level failures (secret
// key mismatch) are reported without blocking other sections.
func (im *Importer) Apply(ctx context.Context, userID string, payload []byte, secretKey string) (*Report, error) {
	importMu.Lock()
	defer importMu.Unlock()
	return im.apply(ctx, userID, payload, secretKey)
}

func (im *Importer) apply(ctx context.Context, userID string, payload []byte, secretKey string) (*Report, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}

	report := &Report{Applied: map[string]int{}}

	// Inline CID content first so sections referencing it resolve.
	if raw, ok := top["cid_values"]; ok {
		var values map[string]string
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("cid_values is not a string map: %w", err)
		}
		for id, text := range values {
			if cid.Generate([]byte(text)) != id {
				logger.Warn("inlined content does not hash to its key", logger.KeyCID, id)
				report.SkippedCIDs = append(report.SkippedCIDs, id)
				continue
			}
			if _, err := im.content.Put(ctx, []byte(text), userID); err != nil {
				return nil, err
			}
		}
	}

	if n, err := im.applyDefinitionSection(ctx, userID, top, "aliases", im.upsertAlias); err != nil {
		return nil, err
	} else {
		report.Applied["aliases"] = n
	}
	if n, err := im.applyDefinitionSection(ctx, userID, top, "servers", im.upsertServer); err != nil {
		return nil, err
	} else {
		report.Applied["servers"] = n
	}

	if doc, ok, err := im.section(ctx, top, "variables"); err != nil {
		return nil, err
	} else if ok {
		var entries []variableEntry
		if err := json.Unmarshal(doc, &entries); err != nil {
			return nil, fmt.Errorf("variables section malformed: %w", err)
		}
		for _, entry := range entries {
			if err := im.upsertVariable(ctx, userID, entry); err != nil {
				return nil, err
			}
		}
		report.Applied["variables"] = len(entries)
	}

	if doc, ok, err := im.section(ctx, top, "secrets"); err != nil {
		return nil, err
	} else if ok {
		n, err := im.applySecrets(ctx, userID, doc, secretKey)
		if err != nil {
			if errors.Is(err, ErrSecretKey) {
				report.SectionErrors = append(report.SectionErrors, err.Error())
			} else {
				return nil, err
			}
		} else {
			report.Applied["secrets"] = n
		}
	}

	if doc, ok, err := im.section(ctx, top, "change_history"); err != nil {
		return nil, err
	} else if ok {
		n, err := im.applyHistory(ctx, userID, doc)
		if err != nil {
			return nil, err
		}
		report.Applied["change_history"] = n
	}

	return report, nil
}

// section resolves a top-level key holding a CID string to the section
// document bytes. ok is false when the key is absent.
func (im *Importer) section(ctx context.Context, top map[string]json.RawMessage, key string) ([]byte, bool, error) {
	raw, present := top[key]
	if !present {
		return nil, false, nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, false, fmt.Errorf("section %s is not a CID string: %w", key, err)
	}
	doc, err := im.content.Get(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("section %s: CID %s: %w", key, id, err)
	}
	return doc, true, nil
}

func (im *Importer) applyDefinitionSection(ctx context.Context, userID string, top map[string]json.RawMessage, key string, upsert func(context.Context, string, string, definitionEntry) error) (int, error) {
	doc, ok, err := im.section(ctx, top, key)
	if err != nil || !ok {
		return 0, err
	}
	var entries []definitionEntry
	if err := json.Unmarshal(doc, &entries); err != nil {
		return 0, fmt.Errorf("%s section malformed: %w", key, err)
	}
	for _, entry := range entries {
		definition, err := im.content.Get(ctx, entry.DefinitionCID)
		if err != nil {
			return 0, fmt.Errorf("%s %q: definition CID %s: %w", key, entry.Name, entry.DefinitionCID, err)
		}
		if err := upsert(ctx, userID, string(definition), entry); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

func (im *Importer) upsertAlias(ctx context.Context, userID, definition string, entry definitionEntry) error {
	s := im.content.Store()
	row := &models.Alias{
		UserID:     userID,
		Name:       entry.Name,
		Definition: definition,
		Enabled:    entry.Enabled,
	}
	if err := alias.PrimaryFields(row); err != nil {
		return fmt.Errorf("alias %q: %w", entry.Name, err)
	}
	if _, err := s.GetAlias(ctx, userID, entry.Name); errors.Is(err, models.ErrAliasNotFound) {
		return s.CreateAlias(ctx, row)
	} else if err != nil {
		return err
	}
	return s.UpdateAlias(ctx, row)
}

func (im *Importer) upsertServer(ctx context.Context, userID, definition string, entry definitionEntry) error {
	s := im.content.Store()
	row := &models.Server{
		UserID:     userID,
		Name:       entry.Name,
		Definition: definition,
		Enabled:    entry.Enabled,
	}
	if _, err := s.GetServer(ctx, userID, entry.Name); errors.Is(err, models.ErrServerNotFound) {
		return s.CreateServer(ctx, row)
	} else if err != nil {
		return err
	}
	return s.UpdateServer(ctx, row)
}

func (im *Importer) upsertVariable(ctx context.Context, userID string, entry variableEntry) error {
	s := im.content.Store()
	row := &models.Variable{
		UserID:     userID,
		Name:       entry.Name,
		Definition: entry.Definition,
		Enabled:    entry.Enabled,
	}
	if _, err := s.GetVariable(ctx, userID, entry.Name); errors.Is(err, models.ErrVariableNotFound) {
		return s.CreateVariable(ctx, row)
	} else if err != nil {
		return err
	}
	return s.UpdateVariable(ctx, row)
}

// applySecrets validates every ciphertext against the supplied key
// before touching any row, so a wrong key fails the section atomically.
func (im *Importer) applySecrets(ctx context.Context, userID string, doc []byte, secretKey string) (int, error) {
	var section secretsSection
	if err := json.Unmarshal(doc, &section); err != nil {
		return 0, fmt.Errorf("secrets section malformed: %w", err)
	}

	if secretKey != "" {
		for _, item := range section.Items {
			if _, err := secrets.Decrypt(item.Ciphertext, secretKey); err != nil {
				return 0, ErrSecretKey
			}
		}
	}

	s := im.content.Store()
	for _, item := range section.Items {
		row := &models.Secret{
			UserID:     userID,
			Name:       item.Name,
			Ciphertext: item.Ciphertext,
			Enabled:    item.Enabled,
		}
		if _, err := s.GetSecret(ctx, userID, item.Name); errors.Is(err, models.ErrSecretNotFound) {
			if err := s.CreateSecret(ctx, row); err != nil {
				return 0, err
			}
		} else if err != nil {
			return 0, err
		} else if err := s.UpdateSecret(ctx, row); err != nil {
			return 0, err
		}
	}
	return len(section.Items), nil
}

// applyHistory replays change-history events, skipping any event that
// already exists with the same identity tuple.
func (im *Importer) applyHistory(ctx context.Context, userID string, doc []byte) (int, error) {
	var history map[string]map[string][]historyEvent
	if err := json.Unmarshal(doc, &history); err != nil {
		return 0, fmt.Errorf("change_history section malformed: %w", err)
	}

	s := im.content.Store()
	applied := 0
	for entityType, byName := range history {
		for name, events := range byName {
			for _, ev := range events {
				at, err := time.Parse(time.RFC3339, ev.CreatedAt)
				if err != nil {
					return 0, fmt.Errorf("history event for %s %q: bad timestamp %q", entityType, name, ev.CreatedAt)
				}
				exists, err := s.HasInteraction(ctx, userID, entityType, name, ev.Action, ev.Message, at)
				if err != nil {
					return 0, err
				}
				if exists {
					continue
				}
				err = s.AddInteractionAt(ctx, &models.EntityInteraction{
					UserID:     userID,
					EntityType: entityType,
					EntityName: name,
					Action:     ev.Action,
					Message:    ev.Message,
					Content:    ev.Content,
					CreatedAt:  at,
				})
				if err != nil {
					return 0, err
				}
				applied++
			}
		}
	}
	return applied, nil
}

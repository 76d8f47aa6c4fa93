package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hashbeam/cidhub/pkg/alias"
	"github.com/hashbeam/cidhub/pkg/api/middleware"
	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/secrets"
	"github.com/hashbeam/cidhub/pkg/store"
	"github.com/hashbeam/cidhub/pkg/transform"
)

// EntityHandler manages the four workspace entity collections.
type EntityHandler struct {
	store *store.GORMStore

	// secretKey encrypts secret values at rest.
	secretKey string

	// reserved reports whether a name collides with a built-in route.
	reserved func(name string) bool
}

// NewEntityHandler creates an entity handler. reserved may be nil when no
// built-in routes need protecting (tests).
func NewEntityHandler(s *store.GORMStore, secretKey string, reserved func(string) bool) *EntityHandler {
	if reserved == nil {
		reserved = func(string) bool { return false }
	}
	return &EntityHandler{store: s, secretKey: secretKey, reserved: reserved}
}

// EntityRequest is the request body for entity create and update.
type EntityRequest struct {
	Name       string `json:"name,omitempty"`
	Definition string `json:"definition"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

// AliasResponse is the response body for alias endpoints.
type AliasResponse struct {
	Name       string    `json:"name"`
	Definition string    `json:"definition"`
	Enabled    bool      `json:"enabled"`
	MatchType  string    `json:"match_type,omitempty"`
	Pattern    string    `json:"pattern,omitempty"`
	Target     string    `json:"target,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ServerResponse is the response body for server endpoints. References
// are included on single-entity reads only.
type ServerResponse struct {
	Name          string                `json:"name"`
	Definition    string                `json:"definition"`
	DefinitionCID string                `json:"definition_cid"`
	Enabled       bool                  `json:"enabled"`
	References    *transform.References `json:"references,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// VariableResponse is the response body for variable endpoints.
type VariableResponse struct {
	Name       string    `json:"name"`
	Definition string    `json:"definition"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SecretResponse is the response body for secret endpoints. The value is
// never returned.
type SecretResponse struct {
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEvent is one change-history entry.
type HistoryEvent struct {
	Action    string    `json:"action"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func aliasResponse(a *models.Alias) AliasResponse {
	return AliasResponse{
		Name:       a.Name,
		Definition: a.Definition,
		Enabled:    a.Enabled,
		MatchType:  a.MatchType,
		Pattern:    a.Pattern,
		Target:     a.Target,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func serverResponse(sv *models.Server, refs *transform.References) ServerResponse {
	return ServerResponse{
		Name:          sv.Name,
		Definition:    sv.Definition,
		DefinitionCID: sv.DefinitionCID,
		Enabled:       sv.Enabled,
		References:    refs,
		CreatedAt:     sv.CreatedAt,
		UpdatedAt:     sv.UpdatedAt,
	}
}

// notFoundErrors maps store errors handlers translate to 404.
var notFoundErrors = []error{
	models.ErrAliasNotFound,
	models.ErrServerNotFound,
	models.ErrVariableNotFound,
	models.ErrSecretNotFound,
}

func writeStoreError(w http.ResponseWriter, err error) {
	for _, nf := range notFoundErrors {
		if errors.Is(err, nf) {
			NotFound(w, err.Error())
			return
		}
	}
	switch {
	case errors.Is(err, models.ErrDuplicateAlias),
		errors.Is(err, models.ErrDuplicateServer),
		errors.Is(err, models.ErrDuplicateVariable),
		errors.Is(err, models.ErrDuplicateSecret):
		Conflict(w, err.Error())
	case errors.Is(err, models.ErrReservedName):
		Conflict(w, err.Error())
	default:
		InternalServerError(w, "store failure")
	}
}

// ListAliases handles GET /api/aliases.
func (h *EntityHandler) ListAliases(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListAliases(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]AliasResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, aliasResponse(a))
	}
	WriteJSONOK(w, out)
}

// GetAlias handles GET /api/aliases/{name}.
func (h *EntityHandler) GetAlias(w http.ResponseWriter, r *http.Request) {
	row, err := h.store.GetAlias(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONOK(w, aliasResponse(row))
}

// CreateAlias handles POST /api/aliases.
func (h *EntityHandler) CreateAlias(w http.ResponseWriter, r *http.Request) {
	var req EntityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Alias name is required")
		return
	}
	if h.reserved("/" + req.Name) {
		Conflict(w, models.ErrReservedName.Error())
		return
	}

	row := &models.Alias{
		UserID:     middleware.UserID(r.Context()),
		Name:       req.Name,
		Definition: req.Definition,
		Enabled:    enabledOrDefault(req.Enabled),
	}
	if err := alias.PrimaryFields(row); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if err := h.store.CreateAlias(r.Context(), row); err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONCreated(w, aliasResponse(row))
}

// UpdateAlias handles PUT /api/aliases/{name}.
func (h *EntityHandler) UpdateAlias(w http.ResponseWriter, r *http.Request) {
	var req EntityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	userID := middleware.UserID(r.Context())
	name := chi.URLParam(r, "name")

	current, err := h.store.GetAlias(r.Context(), userID, name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	row := &models.Alias{
		UserID:     userID,
		Name:       name,
		Definition: req.Definition,
		Enabled:    enabledOr(req.Enabled, current.Enabled),
	}
	if err := alias.PrimaryFields(row); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if err := h.store.UpdateAlias(r.Context(), row); err != nil {
		writeStoreError(w, err)
		return
	}
	updated, err := h.store.GetAlias(r.Context(), userID, name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONOK(w, aliasResponse(updated))
}

// DeleteAlias handles DELETE /api/aliases/{name}.
func (h *EntityHandler) DeleteAlias(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteAlias(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteNoContent(w)
}

// ListServers handles GET /api/servers.
func (h *EntityHandler) ListServers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListServers(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]ServerResponse, 0, len(rows))
	for _, sv := range rows {
		out = append(out, serverResponse(sv, nil))
	}
	WriteJSONOK(w, out)
}

// GetServer handles GET /api/servers/{name}. The response carries the
// context references scanned from the definition text.
func (h *EntityHandler) GetServer(w http.ResponseWriter, r *http.Request) {
	row, err := h.store.GetServer(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	refs := transform.ScanReferences(row.Definition)
	WriteJSONOK(w, serverResponse(row, &refs))
}

// CreateServer handles POST /api/servers. The definition must parse as a
// valid transform document.
func (h *EntityHandler) CreateServer(w http.ResponseWriter, r *http.Request) {
	var req EntityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Server name is required")
		return
	}
	if h.reserved("/" + req.Name) {
		Conflict(w, models.ErrReservedName.Error())
		return
	}
	if _, err := transform.ParseDefinition(req.Definition); err != nil {
		BadRequest(w, err.Error())
		return
	}

	row := &models.Server{
		UserID:     middleware.UserID(r.Context()),
		Name:       req.Name,
		Definition: req.Definition,
		Enabled:    enabledOrDefault(req.Enabled),
	}
	if err := h.store.CreateServer(r.Context(), row); err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONCreated(w, serverResponse(row, nil))
}

// UpdateServer handles PUT /api/servers/{name}.
func (h *EntityHandler) UpdateServer(w http.ResponseWriter, r *http.Request) {
	var req EntityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	userID := middleware.UserID(r.Context())
	name := chi.URLParam(r, "name")

	if _, err := transform.ParseDefinition(req.Definition); err != nil {
		BadRequest(w, err.Error())
		return
	}
	current, err := h.store.GetServer(r.Context(), userID, name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	row := &models.Server{
		UserID:     userID,
		Name:       name,
		Definition: req.Definition,
		Enabled:    enabledOr(req.Enabled, current.Enabled),
	}
	if err := h.store.UpdateServer(r.Context(), row); err != nil {
		writeStoreError(w, err)
		return
	}
	updated, err := h.store.GetServer(r.Context(), userID, name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONOK(w, serverResponse(updated, nil))
}

// DeleteServer handles DELETE /api/servers/{name}.
func (h *EntityHandler) DeleteServer(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteServer(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteNoContent(w)
}

// ListVariables handles GET /api/variables.
func (h *EntityHandler) ListVariables(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListVariables(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]VariableResponse, 0, len(rows))
	for _, v := range rows {
		out = append(out, VariableResponse{
			Name: v.Name, Definition: v.Definition, Enabled: v.Enabled,
			CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
		})
	}
	WriteJSONOK(w, out)
}

// GetVariable handles GET /api/variables/{name}.
func (h *EntityHandler) GetVariable(w http.ResponseWriter, r *http.Request) {
	row, err := h.store.GetVariable(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONOK(w, VariableResponse{
		Name: row.Name, Definition: row.Definition, Enabled: row.Enabled,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	})
}

// CreateVariable handles POST /api/variables.
func (h *EntityHandler) CreateVariable(w http.ResponseWriter, r *http.Request) {
	var req EntityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Variable name is required")
		return
	}
	row := &models.Variable{
		UserID:     middleware.UserID(r.Context()),
		Name:       req.Name,
		Definition: req.Definition,
		Enabled:    enabledOrDefault(req.Enabled),
	}
	if err := h.store.CreateVariable(r.Context(), row); err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONCreated(w, VariableResponse{
		Name: row.Name, Definition: row.Definition, Enabled: row.Enabled,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	})
}

// UpdateVariable handles PUT /api/variables/{name}.
func (h *EntityHandler) UpdateVariable(w http.ResponseWriter, r *http.Request) {
	var req EntityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	userID := middleware.UserID(r.Context())
	name := chi.URLParam(r, "name")

	current, err := h.store.GetVariable(r.Context(), userID, name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	row := &models.Variable{
		UserID:     userID,
		Name:       name,
		Definition: req.Definition,
		Enabled:    enabledOr(req.Enabled, current.Enabled),
	}
	if err := h.store.UpdateVariable(r.Context(), row); err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONOK(w, VariableResponse{
		Name: row.Name, Definition: row.Definition, Enabled: row.Enabled,
		CreatedAt: current.CreatedAt, UpdatedAt: time.Now(),
	})
}

// DeleteVariable handles DELETE /api/variables/{name}.
func (h *EntityHandler) DeleteVariable(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteVariable(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteNoContent(w)
}

// SecretRequest is the request body for secret create and update. The
// plaintext value is encrypted before it reaches the store.
type SecretRequest struct {
	Name    string `json:"name,omitempty"`
	Value   string `json:"value"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// ListSecrets handles GET /api/secrets.
func (h *EntityHandler) ListSecrets(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListSecrets(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]SecretResponse, 0, len(rows))
	for _, sec := range rows {
		out = append(out, SecretResponse{
			Name: sec.Name, Enabled: sec.Enabled,
			CreatedAt: sec.CreatedAt, UpdatedAt: sec.UpdatedAt,
		})
	}
	WriteJSONOK(w, out)
}

// GetSecret handles GET /api/secrets/{name}.
func (h *EntityHandler) GetSecret(w http.ResponseWriter, r *http.Request) {
	row, err := h.store.GetSecret(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONOK(w, SecretResponse{
		Name: row.Name, Enabled: row.Enabled,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	})
}

// CreateSecret handles POST /api/secrets.
func (h *EntityHandler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	var req SecretRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		BadRequest(w, "Secret name is required")
		return
	}
	if req.Value == "" {
		BadRequest(w, "Secret value is required")
		return
	}
	ciphertext, err := secrets.Encrypt(req.Value, h.secretKey)
	if err != nil {
		InternalServerError(w, "encryption failed")
		return
	}
	row := &models.Secret{
		UserID:     middleware.UserID(r.Context()),
		Name:       req.Name,
		Ciphertext: ciphertext,
		Enabled:    enabledOrDefault(req.Enabled),
	}
	if err := h.store.CreateSecret(r.Context(), row); err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONCreated(w, SecretResponse{
		Name: row.Name, Enabled: row.Enabled,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	})
}

// UpdateSecret handles PUT /api/secrets/{name}. An empty value keeps the
// stored ciphertext and only toggles enablement.
func (h *EntityHandler) UpdateSecret(w http.ResponseWriter, r *http.Request) {
	var req SecretRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	userID := middleware.UserID(r.Context())
	name := chi.URLParam(r, "name")

	current, err := h.store.GetSecret(r.Context(), userID, name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	ciphertext := current.Ciphertext
	if req.Value != "" {
		ciphertext, err = secrets.Encrypt(req.Value, h.secretKey)
		if err != nil {
			InternalServerError(w, "encryption failed")
			return
		}
	}
	row := &models.Secret{
		UserID:     userID,
		Name:       name,
		Ciphertext: ciphertext,
		Enabled:    enabledOr(req.Enabled, current.Enabled),
	}
	if err := h.store.UpdateSecret(r.Context(), row); err != nil {
		writeStoreError(w, err)
		return
	}
	WriteJSONOK(w, SecretResponse{
		Name: row.Name, Enabled: row.Enabled,
		CreatedAt: current.CreatedAt, UpdatedAt: time.Now(),
	})
}

// DeleteSecret handles DELETE /api/secrets/{name}.
func (h *EntityHandler) DeleteSecret(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteSecret(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	WriteNoContent(w)
}

// History handles GET /api/{entityType}/{name}/history.
func (h *EntityHandler) History(entityType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := h.store.ListInteractions(r.Context(),
			middleware.UserID(r.Context()), entityType, chi.URLParam(r, "name"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		out := make([]HistoryEvent, 0, len(rows))
		for _, ev := range rows {
			out = append(out, HistoryEvent{
				Action:    ev.Action,
				Message:   ev.Message,
				CreatedAt: ev.CreatedAt,
			})
		}
		WriteJSONOK(w, out)
	}
}

func enabledOrDefault(v *bool) bool {
	return enabledOr(v, true)
}

func enabledOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

package apiclient

import (
	"net/url"
	"time"
)

// EntityRequest is the request body for alias, server, and variable
// endpoints.
type EntityRequest struct {
	Name       string `json:"name,omitempty"`
	Definition string `json:"definition"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

// SecretRequest is the request body for secret endpoints.
type SecretRequest struct {
	Name    string `json:"name,omitempty"`
	Value   string `json:"value"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Alias is an alias as returned by the API.
type Alias struct {
	Name       string    `json:"name"`
	Definition string    `json:"definition"`
	Enabled    bool      `json:"enabled"`
	MatchType  string    `json:"match_type,omitempty"`
	Pattern    string    `json:"pattern,omitempty"`
	Target     string    `json:"target,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Server is a server as returned by the API.
type Server struct {
	Name          string    `json:"name"`
	Definition    string    `json:"definition"`
	DefinitionCID string    `json:"definition_cid"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Variable is a variable as returned by the API.
type Variable struct {
	Name       string    `json:"name"`
	Definition string    `json:"definition"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Secret is a secret as returned by the API. The value is never
// included.
type Secret struct {
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

func itemPath(kind, name string) string {
	return "/api/" + kind + "/" + url.PathEscape(name)
}

// ListAliases returns all aliases.
func (c *Client) ListAliases() ([]Alias, error) {
	var out []Alias
	return out, c.get("/api/aliases", &out)
}

// GetAlias returns one alias.
func (c *Client) GetAlias(name string) (*Alias, error) {
	var out Alias
	return &out, c.get(itemPath("aliases", name), &out)
}

// CreateAlias creates an alias.
func (c *Client) CreateAlias(req EntityRequest) (*Alias, error) {
	var out Alias
	return &out, c.post("/api/aliases", req, &out)
}

// UpdateAlias updates an alias.
func (c *Client) UpdateAlias(name string, req EntityRequest) (*Alias, error) {
	var out Alias
	return &out, c.put(itemPath("aliases", name), req, &out)
}

// DeleteAlias deletes an alias.
func (c *Client) DeleteAlias(name string) error {
	return c.delete(itemPath("aliases", name))
}

// ListServers returns all servers.
func (c *Client) ListServers() ([]Server, error) {
	var out []Server
	return out, c.get("/api/servers", &out)
}

// GetServer returns one server.
func (c *Client) GetServer(name string) (*Server, error) {
	var out Server
	return &out, c.get(itemPath("servers", name), &out)
}

// CreateServer creates a server.
func (c *Client) CreateServer(req EntityRequest) (*Server, error) {
	var out Server
	return &out, c.post("/api/servers", req, &out)
}

// UpdateServer updates a server.
func (c *Client) UpdateServer(name string, req EntityRequest) (*Server, error) {
	var out Server
	return &out, c.put(itemPath("servers", name), req, &out)
}

// DeleteServer deletes a server.
func (c *Client) DeleteServer(name string) error {
	return c.delete(itemPath("servers", name))
}

// ListVariables returns all variables.
func (c *Client) ListVariables() ([]Variable, error) {
	var out []Variable
	return out, c.get("/api/variables", &out)
}

// CreateVariable creates a variable.
func (c *Client) CreateVariable(req EntityRequest) (*Variable, error) {
	var out Variable
	return &out, c.post("/api/variables", req, &out)
}

// DeleteVariable deletes a variable.
func (c *Client) DeleteVariable(name string) error {
	return c.delete(itemPath("variables", name))
}

// ListSecrets returns all secrets.
func (c *Client) ListSecrets() ([]Secret, error) {
	var out []Secret
	return out, c.get("/api/secrets", &out)
}

// CreateSecret creates a secret.
func (c *Client) CreateSecret(req SecretRequest) (*Secret, error) {
	var out Secret
	return &out, c.post("/api/secrets", req, &out)
}

// DeleteSecret deletes a secret.
func (c *Client) DeleteSecret(name string) error {
	return c.delete(itemPath("secrets", name))
}

// History returns the change history for one entity.
func (c *Client) History(kind, name string) ([]HistoryEvent, error) {
	var out []HistoryEvent
	return out, c.get(itemPath(kind, name)+"/history", &out)
}

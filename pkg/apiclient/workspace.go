package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Token is an issued session token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login authenticates and returns a session token.
func (c *Client) Login(username, password string) (*Token, error) {
	body := map[string]string{"username": username, "password": password}
	var out Token
	return &out, c.post("/auth/login", body, &out)
}

// UploadResult describes stored content.
type UploadResult struct {
	CID  string `json:"cid"`
	Path string `json:"path"`
	Size int    `json:"size"`
}

// UploadText stores a text snippet in the CID pool.
func (c *Client) UploadText(text string) (*UploadResult, error) {
	return c.upload(func(w *multipart.Writer) error {
		return w.WriteField("text", text)
	})
}

// UploadFile stores a file in the CID pool.
func (c *Client) UploadFile(name string, r io.Reader) (*UploadResult, error) {
	return c.upload(func(w *multipart.Writer) error {
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, r)
		return err
	})
}

func (c *Client) upload(fill func(*multipart.Writer) error) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := fill(mw); err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp.StatusCode, body)
	}

	var out UploadResult
	if err := decodeInto(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportSelection mirrors the server-side export selection.
type ExportSelection struct {
	Aliases             bool                `json:"aliases"`
	Servers             bool                `json:"servers"`
	Variables           bool                `json:"variables"`
	Secrets             bool                `json:"secrets"`
	ChangeHistory       bool                `json:"change_history"`
	AppSource           bool                `json:"app_source"`
	CIDMap              bool                `json:"cid_map"`
	UnreferencedCIDData bool                `json:"unreferenced_cid_data"`
	IncludeDisabled     bool                `json:"include_disabled"`
	Names               map[string][]string `json:"names,omitempty"`
	SecretKey           string              `json:"secret_key,omitempty"`
}

// ExportResult describes a stored export payload.
type ExportResult struct {
	CID  string `json:"cid"`
	Path string `json:"path"`
	Size int    `json:"size"`
}

// ExportEverything exports the full workspace.
func (c *Client) ExportEverything(secretKey string) (*ExportResult, error) {
	path := "/export"
	if secretKey != "" {
		path += "?secret_key=" + url.QueryEscape(secretKey)
	}
	var out ExportResult
	return &out, c.get(path, &out)
}

// Export exports an explicit selection.
func (c *Client) Export(sel ExportSelection) (*ExportResult, error) {
	var out ExportResult
	return &out, c.post("/export", sel, &out)
}

// ExportSize previews an export without storing the payload.
func (c *Client) ExportSize(sel ExportSelection) (*ExportResult, error) {
	var out ExportResult
	return &out, c.post("/export/size", sel, &out)
}

// ImportReport summarizes an applied import.
type ImportReport struct {
	Applied       map[string]int `json:"applied"`
	SkippedCIDs   []string       `json:"skipped_cids,omitempty"`
	SectionErrors []string       `json:"section_errors,omitempty"`
}

// ImportCID applies a stored export payload by CID.
func (c *Client) ImportCID(cid, secretKey string) (*ImportReport, error) {
	path := "/import?cid=" + url.QueryEscape(cid)
	if secretKey != "" {
		path += "&secret_key=" + url.QueryEscape(secretKey)
	}
	var out ImportReport
	return &out, c.get(path, &out)
}

// Dashboard summarizes the workspace contents.
type Dashboard struct {
	Aliases   int `json:"aliases"`
	Servers   int `json:"servers"`
	Variables int `json:"variables"`
	Secrets   int `json:"secrets"`
	CIDs      int `json:"cids"`
	Exports   int `json:"exports"`
}

// GetDashboard returns the workspace summary.
func (c *Client) GetDashboard() (*Dashboard, error) {
	var out Dashboard
	return &out, c.get("/", &out)
}

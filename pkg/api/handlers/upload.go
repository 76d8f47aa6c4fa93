package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/api/middleware"
	"github.com/hashbeam/cidhub/pkg/content"
)

// UploadHandler stores request content in the CID pool.
type UploadHandler struct {
	content *content.Service
	client  *http.Client

	// maxBodyBytes caps the request body and url-fetched content.
	maxBodyBytes int64
}

// NewUploadHandler creates an upload handler. client may be nil for a
// default with a 30 second timeout.
func NewUploadHandler(c *content.Service, maxBodyBytes int64, client *http.Client) *UploadHandler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &UploadHandler{content: c, client: client, maxBodyBytes: maxBodyBytes}
}

// UploadResponse is the response body for POST /upload.
type UploadResponse struct {
	CID  string `json:"cid"`
	Path string `json:"path"`
	Size int    `json:"size"`
}

// Upload handles POST /upload. The multipart form accepts exactly one of
// a "file" part, a "text" field, or a "url" field to fetch.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	if err := r.ParseMultipartForm(h.maxBodyBytes); err != nil {
		BadRequest(w, "Invalid multipart form: "+err.Error())
		return
	}

	data, err := h.readSource(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	userID := middleware.UserID(r.Context())
	id, err := h.content.Put(r.Context(), data, userID)
	if err != nil {
		logger.Error("upload store failed", logger.KeyError, err)
		InternalServerError(w, "failed to store content")
		return
	}
	logger.Info("content uploaded",
		logger.KeyCID, id,
		logger.KeySize, len(data),
		logger.KeyUser, userID)

	WriteJSONCreated(w, UploadResponse{CID: id, Path: "/" + id, Size: len(data)})
}

// readSource extracts the upload bytes from whichever source the form
// provides.
func (h *UploadHandler) readSource(r *http.Request) ([]byte, error) {
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, h.maxBodyBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read file part: %w", err)
		}
		if int64(len(data)) > h.maxBodyBytes {
			return nil, fmt.Errorf("file exceeds the %d byte limit", h.maxBodyBytes)
		}
		return data, nil
	}

	if text := r.FormValue("text"); text != "" {
		return []byte(text), nil
	}

	if raw := r.FormValue("url"); raw != "" {
		return h.fetch(r, raw)
	}

	return nil, fmt.Errorf("upload requires a file, text, or url field")
}

// fetch downloads remote content for the url upload form.
func (h *UploadHandler) fetch(r *http.Request, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("url must be absolute http or https")
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read fetched content: %w", err)
	}
	if int64(len(data)) > h.maxBodyBytes {
		return nil, fmt.Errorf("fetched content exceeds the %d byte limit", h.maxBodyBytes)
	}
	return data, nil
}

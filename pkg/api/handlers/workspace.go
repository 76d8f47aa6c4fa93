package handlers

import (
	"io"
	"net/http"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/api/middleware"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/export"
)

// WorkspaceHandler serves export, import, and the dashboard summary.
type WorkspaceHandler struct {
	content  *content.Service
	engine   *export.Engine
	importer *export.Importer

	// maxBodyBytes caps import payloads.
	maxBodyBytes int64
}

// NewWorkspaceHandler creates a workspace handler.
func NewWorkspaceHandler(c *content.Service, e *export.Engine, im *export.Importer, maxBodyBytes int64) *WorkspaceHandler {
	return &WorkspaceHandler{content: c, engine: e, importer: im, maxBodyBytes: maxBodyBytes}
}

// ExportRequest is the request body for POST /export and /export/size.
type ExportRequest struct {
	export.Selection
	SecretKey string `json:"secret_key,omitempty"`
}

// ExportResponse is the response body for export endpoints.
type ExportResponse struct {
	CID  string `json:"cid"`
	Path string `json:"path"`
	Size int    `json:"size"`
}

// Export handles GET and POST /export. GET exports everything; POST
// takes an explicit selection.
func (h *WorkspaceHandler) Export(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selection(w, r, true)
	if !ok {
		return
	}
	result, err := h.engine.Export(r.Context(), middleware.UserID(r.Context()), sel)
	if err != nil {
		logger.Error("export failed", logger.KeyError, err)
		InternalServerError(w, "export failed")
		return
	}
	WriteJSONOK(w, ExportResponse{CID: result.CID, Path: "/" + result.CID, Size: result.Size})
}

// ExportSize handles POST /export/size: the same assembly without
// writing anything, so callers can preview payload size and CID.
func (h *WorkspaceHandler) ExportSize(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selection(w, r, false)
	if !ok {
		return
	}
	result, err := h.engine.Export(r.Context(), middleware.UserID(r.Context()), sel)
	if err != nil {
		logger.Error("export size probe failed", logger.KeyError, err)
		InternalServerError(w, "export failed")
		return
	}
	WriteJSONOK(w, ExportResponse{CID: result.CID, Path: "/" + result.CID, Size: result.Size})
}

func (h *WorkspaceHandler) selection(w http.ResponseWriter, r *http.Request, storeContent bool) (export.Selection, bool) {
	if r.Method == http.MethodGet {
		sel := export.Everything(r.URL.Query().Get("secret_key"))
		sel.StoreContent = storeContent
		return sel, true
	}

	var req ExportRequest
	if !decodeJSONBody(w, r, &req) {
		return export.Selection{}, false
	}
	sel := req.Selection
	sel.SecretKey = req.SecretKey
	sel.StoreContent = storeContent
	return sel, true
}

// Import handles GET and POST /import. GET imports a payload already in
// the pool by CID; POST takes the payload as the request body.
func (h *WorkspaceHandler) Import(w http.ResponseWriter, r *http.Request) {
	var payload []byte
	secretKey := r.URL.Query().Get("secret_key")

	switch r.Method {
	case http.MethodGet:
		id := r.URL.Query().Get("cid")
		if id == "" {
			BadRequest(w, "Import requires a cid query parameter")
			return
		}
		var err error
		payload, err = h.content.Get(r.Context(), id)
		if err != nil {
			NotFound(w, "CID not found: "+id)
			return
		}
	default:
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
		var err error
		payload, err = io.ReadAll(r.Body)
		if err != nil {
			BadRequest(w, "Failed to read import payload")
			return
		}
	}

	report, err := h.importer.Apply(r.Context(), middleware.UserID(r.Context()), payload, secretKey)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	WriteJSONOK(w, report)
}

// DashboardResponse is the workspace summary for GET /.
type DashboardResponse struct {
	Aliases   int `json:"aliases"`
	Servers   int `json:"servers"`
	Variables int `json:"variables"`
	Secrets   int `json:"secrets"`
	CIDs      int `json:"cids"`
	Exports   int `json:"exports"`
}

// Dashboard handles GET /: counts of every workspace collection.
func (h *WorkspaceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)
	s := h.content.Store()

	var out DashboardResponse
	if rows, err := s.ListAliases(ctx, userID); err == nil {
		out.Aliases = len(rows)
	}
	if rows, err := s.ListServers(ctx, userID); err == nil {
		out.Servers = len(rows)
	}
	if rows, err := s.ListVariables(ctx, userID); err == nil {
		out.Variables = len(rows)
	}
	if rows, err := s.ListSecrets(ctx, userID); err == nil {
		out.Secrets = len(rows)
	}
	if paths, err := s.CIDPaths(ctx); err == nil {
		out.CIDs = len(paths)
	}
	if rows, err := s.ListExports(ctx, userID); err == nil {
		out.Exports = len(rows)
	}
	WriteJSONOK(w, out)
}

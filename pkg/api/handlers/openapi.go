package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/invopop/jsonschema"
)

// OpenAPIHandler serves the generated API description.
type OpenAPIHandler struct {
	once sync.Once
	doc  []byte
	err  error
}

// NewOpenAPIHandler creates an OpenAPI handler. The document is built
// lazily on first request.
func NewOpenAPIHandler() *OpenAPIHandler {
	return &OpenAPIHandler{}
}

// schemaTypes are the request and response bodies exposed in the
// document, keyed by component name.
var schemaTypes = map[string]any{
	"EntityRequest":     &EntityRequest{},
	"SecretRequest":     &SecretRequest{},
	"AliasResponse":     &AliasResponse{},
	"ServerResponse":    &ServerResponse{},
	"VariableResponse":  &VariableResponse{},
	"SecretResponse":    &SecretResponse{},
	"HistoryEvent":      &HistoryEvent{},
	"UploadResponse":    &UploadResponse{},
	"ExportRequest":     &ExportRequest{},
	"ExportResponse":    &ExportResponse{},
	"LoginRequest":      &LoginRequest{},
	"DashboardResponse": &DashboardResponse{},
	"Problem":           &Problem{},
}

// JSON handles GET /openapi.json.
func (h *OpenAPIHandler) JSON(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.doc, h.err = buildDocument()
	})
	if h.err != nil {
		InternalServerError(w, "failed to build API document")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(h.doc)
}

// Page handles GET /openapi with a minimal HTML viewer.
func (h *OpenAPIHandler) Page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(openapiPage))
}

const openapiPage = `<!DOCTYPE html>
<html>
<head><title>cidhub API</title></head>
<body>
<h1>cidhub API</h1>
<p>The machine-readable description is at <a href="/openapi.json">/openapi.json</a>.</p>
</body>
</html>
`

func buildDocument() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schemas := map[string]*jsonschema.Schema{}
	for name, v := range schemaTypes {
		schema := reflector.Reflect(v)
		schema.Version = ""
		schemas[name] = schema
	}

	doc := map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":       "cidhub",
			"description": "Content-addressed workspace API",
			"version":     "1",
		},
		"paths":      pathDescriptions(),
		"components": map[string]any{"schemas": schemas},
	}
	return json.MarshalIndent(doc, "", "  ")
}

func pathDescriptions() map[string]any {
	op := func(summary, tag string) map[string]any {
		return map[string]any{"summary": summary, "tags": []string{tag}}
	}
	entity := func(kind string) (list, item map[string]any) {
		list = map[string]any{
			"get":  op("List "+kind, kind),
			"post": op("Create a "+kind[:len(kind)-1], kind),
		}
		item = map[string]any{
			"get":    op("Get one of "+kind, kind),
			"put":    op("Update one of "+kind, kind),
			"delete": op("Delete one of "+kind, kind),
		}
		return list, item
	}

	paths := map[string]any{
		"/":             map[string]any{"get": op("Workspace summary", "workspace")},
		"/healthz":      map[string]any{"get": op("Liveness probe", "workspace")},
		"/upload":       map[string]any{"post": op("Store content in the CID pool", "content")},
		"/export":       map[string]any{"get": op("Export everything", "workspace"), "post": op("Export a selection", "workspace")},
		"/export/size":  map[string]any{"post": op("Preview export size without writing", "workspace")},
		"/import":       map[string]any{"get": op("Import a stored payload by CID", "workspace"), "post": op("Import a payload", "workspace")},
		"/auth/login":   map[string]any{"post": op("Issue a session token", "auth")},
		"/openapi.json": map[string]any{"get": op("This document", "workspace")},
	}
	for _, kind := range []string{"aliases", "servers", "variables", "secrets"} {
		list, item := entity(kind)
		paths["/api/"+kind] = list
		paths["/api/"+kind+"/{name}"] = item
		paths["/api/"+kind+"/{name}/history"] = map[string]any{
			"get": op("Change history for one of "+kind, kind),
		}
	}
	return paths
}

package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"forum-backend/pkg/apierror"
)

const swaggerCSP = "default-src 'self'; connect-src 'self' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline' https://unpkg.com; img-src 'self' data: https://validator.swagger.io"

const swaggerPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Forum API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
    <style>body{margin:0;background:#fafafa;}#swagger-ui{max-width:1200px;margin:0 auto;}</style>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
        persistAuthorization: true
      });
    </script>
  </body>
</html>`

// DocsHandler serves the OpenAPI document read once at startup.
type DocsHandler struct {
	spec []byte
	etag string
}

func NewDocsHandler(specPath string) *DocsHandler {
	h := &DocsHandler{}

	path := strings.TrimSpace(specPath)
	if path == "" {
		slog.Warn("OPENAPI_SPEC_PATH is empty; /openapi.yaml disabled")
		return h
	}

	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("openapi spec unavailable", "path", path, "error", err)
		return h
	}

	sum := sha256.Sum256(content)
	h.spec = content
	h.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
	return h
}

func (h *DocsHandler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	if len(h.spec) == 0 {
		writeError(w, apierror.NotFound("openapi spec not available", ""))
		return
	}

	w.Header().Set("ETag", h.etag)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if r.Header.Get("If-None-Match") == h.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.spec)
}

func (h *DocsHandler) SwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Security-Policy", swaggerCSP)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(swaggerPage))
}

package handler

import (
	"bytes"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const indexDocument = "index.html"

type StaticHandler interface {
	Serve(c *gin.Context)
}

type staticHandler struct {
	assets fs.FS
	logger *zap.Logger
}

// NewStaticHandler serves the pre-built admin UI from assets, falling back to
// the root index document for client-side routes.
func NewStaticHandler(assets fs.FS, logger *zap.Logger) StaticHandler {
	return &staticHandler{assets: assets, logger: logger}
}

// Serve is installed as the router's NoRoute handler.
func (h *staticHandler) Serve(c *gin.Context) {
	urlPath := c.Request.URL.Path
	if urlPath == "/api" || strings.HasPrefix(urlPath, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "API Endpoint not found"})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusNotFound)
		return
	}

	name, ok := h.resolve(urlPath)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	data, err := fs.ReadFile(h.assets, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Status(http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to read static asset", zap.String("name", name), zap.Error(err))
		c.String(http.StatusInternalServerError, "Server Error")
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	http.ServeContent(c.Writer, c.Request, name, time.Time{}, bytes.NewReader(data))
}

// resolve maps a request path onto an asset name following the SPA rules:
// "/" and directories serve their index document, a missing extensionless
// path serves the root index, a missing asset is not found.
func (h *staticHandler) resolve(urlPath string) (string, bool) {
	for _, segment := range strings.Split(urlPath, "/") {
		if segment == ".." {
			return "", false
		}
	}

	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		return indexDocument, true
	}
	if !fs.ValidPath(name) {
		return "", false
	}

	info, err := fs.Stat(h.assets, name)
	switch {
	case err == nil && info.IsDir():
		return path.Join(name, indexDocument), true
	case err == nil:
		return name, true
	case path.Ext(name) == "":
		return indexDocument, true
	default:
		return "", false
	}
}

package handler

import (
	"net/http"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func staticRouter() *gin.Engine {
	assets := fstest.MapFS{
		"index.html":         {Data: []byte("<html>root</html>")},
		"assets/app.js":      {Data: []byte("console.log(1)")},
		"assets/app.css":     {Data: []byte("body{}")},
		"docs/index.html":    {Data: []byte("<html>docs</html>")},
		"empty/.placeholder": {Data: []byte("")},
	}
	router := gin.New()
	router.GET("/api/v1/admin/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.NoRoute(NewStaticHandler(assets, zap.NewNop()).Serve)
	return router
}

func TestStaticServing(t *testing.T) {
	router := staticRouter()

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		expectedBody   string
		contentType    string
	}{
		{"root serves index", http.MethodGet, "/", http.StatusOK, "<html>root</html>", "text/html"},
		{"asset", http.MethodGet, "/assets/app.js", http.StatusOK, "console.log(1)", "javascript"},
		{"stylesheet", http.MethodGet, "/assets/app.css", http.StatusOK, "body{}", "text/css"},
		{"directory index", http.MethodGet, "/docs", http.StatusOK, "<html>docs</html>", "text/html"},
		{"directory without index", http.MethodGet, "/empty", http.StatusNotFound, "", ""},
		{"client route falls back", http.MethodGet, "/dashboard/pending", http.StatusOK, "<html>root</html>", "text/html"},
		{"missing asset", http.MethodGet, "/assets/missing.js", http.StatusNotFound, "", ""},
		{"traversal", http.MethodGet, "/assets/../../etc/passwd", http.StatusNotFound, "", ""},
		{"post is not served", http.MethodPost, "/", http.StatusNotFound, "", ""},
		{"unknown api path", http.MethodGet, "/api/v1/admin/nope", http.StatusNotFound, `{"error":"API Endpoint not found"}`, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, tt.method, tt.path, "")
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
			if tt.contentType != "" {
				assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			}
		})
	}
}

func TestStaticHead(t *testing.T) {
	w := do(staticRouter(), http.MethodHead, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

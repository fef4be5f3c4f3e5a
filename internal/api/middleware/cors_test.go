package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func corsRouter(allowOrigins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(allowOrigins))
	r.GET("/config", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func corsRequest(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/config", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCORS_Wildcard(t *testing.T) {
	r := corsRouter([]string{"*"})

	w := corsRequest(r, http.MethodGet, "https://shop.example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Equal(t, corsMethods, w.Header().Get("Access-Control-Allow-Methods"))

	w = corsRequest(r, http.MethodGet, "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ListedOrigins(t *testing.T) {
	r := corsRouter([]string{"https://docs.example.com"})

	w := corsRequest(r, http.MethodOptions, "https://docs.example.com")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://docs.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsHeaders, w.Header().Get("Access-Control-Allow-Headers"))

	w = corsRequest(r, http.MethodOptions, "https://evil.example.com")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_EmptyListDisablesCrossOrigin(t *testing.T) {
	r := corsRouter(nil)

	w := corsRequest(r, http.MethodGet, "https://docs.example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Vary"))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticValidator string

func (v staticValidator) ValidateAdminToken(token string) bool { return token == string(v) }

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID(), RequestLogger(logging.NewDiscardLogger()))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 26)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = serve(r, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestAdminAuth(t *testing.T) {
	r := newRouter(AdminAuth(staticValidator("tok")))

	cases := map[string]int{
		"":            http.StatusUnauthorized,
		"tok":         http.StatusUnauthorized,
		"Bearer ":     http.StatusUnauthorized,
		"Bearer nope": http.StatusUnauthorized,
		"Bearer tok":  http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, serve(r, req).Code, "header %q", header)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := newRouter(CORSMiddleware([]string{"https://docs.xtdb.com"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://docs.xtdb.com")
	w := serve(r, req)
	assert.Equal(t, "https://docs.xtdb.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	open := newRouter(CORSMiddleware([]string{"*"}))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w = serve(open, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

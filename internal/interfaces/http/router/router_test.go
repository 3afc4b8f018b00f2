package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func named(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, name)
	}
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register(NewDomainGroup("test", "/test").GET("/ping", named("pong")))
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/test/ping").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("companions", "/companions")
		assert.Equal(t, "companions", g.Name())
		assert.Equal(t, "/companions", g.Prefix())
	})

	t.Run("registers each method", func(t *testing.T) {
		engine := gin.New()
		NewDomainGroup("test", "/test").
			GET("/items", named("get")).
			POST("/items", named("post")).
			PUT("/items/:id", named("put")).
			RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, "get", serve(engine, http.MethodGet, "/api/v1/test/items").Body.String())
		assert.Equal(t, "post", serve(engine, http.MethodPost, "/api/v1/test/items").Body.String())
		assert.Equal(t, "put", serve(engine, http.MethodPut, "/api/v1/test/items/1").Body.String())
	})

	t.Run("applies group middleware", func(t *testing.T) {
		engine := gin.New()
		NewDomainGroup("test", "/test").
			Use(func(c *gin.Context) {
				c.Header("X-Group", "yes")
				c.Next()
			}).
			GET("/items", named("get")).
			RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/test/items")
		assert.Equal(t, "yes", w.Header().Get("X-Group"))
	})
}

func TestCompanionGroup(t *testing.T) {
	guarded := 0
	guard := func(c *gin.Context) {
		guarded++
		c.Next()
	}

	engine := gin.New()
	r := NewRouter(engine)
	r.Register(NewCompanionGroup(CompanionRoutes{
		Search:       named("search"),
		Get:          named("get"),
		HandleExists: named("exists"),
		Create:       named("create"),
		Update:       named("update"),
	}, guard))
	r.Setup()

	tests := []struct {
		method  string
		path    string
		want    string
		guarded bool
	}{
		{http.MethodGet, "/api/v1/companions", "search", false},
		{http.MethodGet, "/api/v1/companions/42", "get", false},
		{http.MethodGet, "/api/v1/companions/handles/exists", "exists", false},
		{http.MethodPost, "/api/v1/companions", "create", true},
		{http.MethodPut, "/api/v1/companions/42", "update", true},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			before := guarded
			w := serve(engine, tt.method, tt.path)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
			assert.Equal(t, tt.guarded, guarded > before)
		})
	}
}

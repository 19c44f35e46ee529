package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/internal/service"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.token = token
	return v.claims, v.err
}

func newProtectedRouter(v TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", JWT(v))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/resource", func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})
	return r
}

func TestJWTRequiresBearer(t *testing.T) {
	r := newProtectedRouter(&validatorStub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Basic abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTStoresClaims(t *testing.T) {
	v := &validatorStub{claims: &models.JWTClaims{UserID: "citizen-1", Role: models.RoleCitizen}}
	r := newProtectedRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "citizen-1", w.Body.String())
	assert.Equal(t, "tok", v.token)
}

func TestJWTPropagatesValidationError(t *testing.T) {
	r := newProtectedRouter(&validatorStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")})
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	citizen := &validatorStub{claims: &models.JWTClaims{UserID: "c", Role: models.RoleCitizen}}
	collector := &validatorStub{claims: &models.JWTClaims{UserID: "s", Role: models.RoleCollector}}

	for _, tc := range []struct {
		name string
		v    *validatorStub
		want int
	}{
		{"citizen forbidden", citizen, http.StatusForbidden},
		{"collector allowed", collector, http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := newProtectedRouter(tc.v, models.RoleAdmin, models.RoleCollector)
			req := httptest.NewRequest(http.MethodGet, "/resource", nil)
			req.Header.Set("Authorization", "Bearer tok")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/complaints/:id", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/complaints/abc", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, uint64(1), metrics.Snapshot().Requests)
}

type observerStub struct {
	routes   []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	o.routes = append(o.routes, method+" "+route)
	o.statuses = append(o.statuses, status)
}

func TestMetricsMiddlewareLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &observerStub{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/complaints/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/complaints/a", "/complaints/b", "/wp-admin/setup.php", "/.env"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []string{
		"GET /complaints/:id",
		"GET /complaints/:id",
		"GET unmatched",
		"GET unmatched",
	}, obs.routes)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusNotFound, http.StatusNotFound}, obs.statuses)
}

func TestMetricsMiddlewareToleratesNilService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var metrics *service.MetricsService
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

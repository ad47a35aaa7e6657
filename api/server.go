// Package api exposes the engine over HTTP with gin, grounded in
// api/tactics.go's handler shape (gin.H{} responses, uuid.New().String()
// IDs, a config-validation-collects-warnings pattern) generalized from
// that file's per-user Tactic CRUD to this engine's stateless
// POST /v1/analyze RPC plus a /v1/profiles CRUD surface.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kpizzy812/futures-scenario-engine/auth"
	"github.com/kpizzy812/futures-scenario-engine/engine"
	"github.com/kpizzy812/futures-scenario-engine/metrics"
	"github.com/kpizzy812/futures-scenario-engine/store"
)

// Server holds every dependency the HTTP handlers need. One Server is
// built once per process in cmd/engine/main.go and its methods
// registered as gin handlers.
type Server struct {
	Engine   *engine.Engine
	Profiles *store.ProfileStore
	Issuer   *auth.Issuer
}

func NewServer(eng *engine.Engine, profiles *store.ProfileStore, issuer *auth.Issuer) *Server {
	return &Server{Engine: eng, Profiles: profiles, Issuer: issuer}
}

// RegisterRoutes wires every endpoint onto r. /healthz and /metrics are
// unauthenticated (operational surfaces); everything under /v1 requires
// the service Bearer token.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.Use(s.recordHTTPMetrics)

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.Use(auth.Middleware(s.Issuer))
	{
		v1.POST("/analyze", s.handleAnalyze)

		v1.GET("/profiles", s.handleListProfiles)
		v1.GET("/profiles/:id", s.handleGetProfile)
		v1.POST("/profiles", s.handleCreateProfile)
		v1.PUT("/profiles/:id", s.handleUpdateProfile)
		v1.DELETE("/profiles/:id", s.handleDeleteProfile)
		v1.POST("/profiles/:id/activate", s.handleActivateProfile)
	}
}

// recordHTTPMetrics observes every request's duration and status,
// regardless of auth outcome.
func (s *Server) recordHTTPMetrics(c *gin.Context) {
	start := time.Now()
	c.Next()
	metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

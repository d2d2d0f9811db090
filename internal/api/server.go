package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"acadence/internal/auth"
	"acadence/internal/config"
	"acadence/internal/httpmiddleware"
	"acadence/internal/logging"
	"acadence/internal/metrics"
	"acadence/internal/school"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// Deps are the collaborators of the HTTP layer. Only Service is required.
type Deps struct {
	Service  *school.Service
	Config   config.App
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Limiter  httpmiddleware.Limiter
	Health   map[string]Checker
}

type handler struct {
	svc *school.Service
	cfg config.App
	log *zap.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	registerValidators()
	h := &handler{svc: d.Service, cfg: d.Config, log: d.Log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinLogger(d.Log, "/healthz", "/metrics"))
	r.Use(cors.New(corsConfig(d.Config.AllowedOrigins)))
	r.Use(securityHeaders())
	r.Use(d.Metrics.GinMiddleware())
	if d.Limiter != nil {
		r.Use(httpmiddleware.Middleware(d.Limiter, d.Log))
	}

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", healthz(d.Health))

	r.POST("/auth/login", h.login)
	r.POST("/auth/signup", h.signup)

	authed := r.Group("/", auth.Bearer(d.Config.JWTSigningKey, d.Config.JWTIssuer))
	authed.GET("/auth/me", h.requireRole(), h.me)

	admin := authed.Group("/admin", h.requireRole(school.RoleAdmin))
	admin.POST("/users", h.createUser)
	admin.GET("/users", h.listUsers)
	admin.DELETE("/users/:id", h.deleteUser)
	admin.PUT("/users/:id/group", h.assignGroup)
	admin.POST("/users/group", h.assignGroupBulk)
	admin.POST("/users/:id/verify-email", h.verifyEmail)
	admin.POST("/classes", h.createClass)
	admin.GET("/classes", h.listClasses)
	admin.GET("/classes/:id", h.getClass)
	admin.DELETE("/classes/:id", h.deleteClass)
	admin.GET("/classes/:id/enrollments", h.classEnrollments)
	admin.POST("/enrollments", h.createEnrollment)
	admin.POST("/enrollments/subject", h.expandEnrollments)
	admin.DELETE("/enrollments/:id", h.deleteEnrollment)
	admin.PUT("/enrollments/:id/marks", h.overrideMarks)
	admin.GET("/activity", h.activity)

	teacher := authed.Group("/teacher", h.requireRole(school.RoleTeacher))
	teacher.GET("/classes", h.teacherClasses)
	teacher.GET("/classes/:classId/students", h.teacherRoster)
	teacher.POST("/submit-attendance", h.submitAttendance)
	teacher.GET("/attendance-report/:classId/:date", h.attendanceReport)
	teacher.POST("/upload-marks", h.uploadMarks)

	student := authed.Group("/student", h.requireRole(school.RoleStudent))
	student.GET("/classes", h.studentClasses)
	student.GET("/report", h.studentReport)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func healthz(checks map[string]Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		body := gin.H{"status": "ok"}
		status := http.StatusOK
		for name, chk := range checks {
			ok := chk.Healthy(ctx)
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}

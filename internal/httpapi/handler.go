// Package httpapi exposes scans, rosters and reports over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"presensi/internal/attendance"
	"presensi/internal/auth"
	"presensi/internal/httpmiddleware"
	"presensi/internal/queue"
	"presensi/internal/roster"
)

// RosterService is the roster surface the API serves.
type RosterService interface {
	GetStudents(ctx context.Context, force bool) ([]roster.Student, error)
	GetStudentsByClass(ctx context.Context, class string) ([]roster.Student, error)
	GetStudent(ctx context.Context, id string) (roster.Student, error)
	GetTeachers(ctx context.Context, force bool) ([]roster.Teacher, error)
	CreateStudent(ctx context.Context, st roster.Student) (roster.Student, error)
	UpdateStudent(ctx context.Context, st roster.Student) (roster.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	CreateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error)
	UpdateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error)
	DeleteTeacher(ctx context.Context, id string) error
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Options carries the auth and transport settings.
type Options struct {
	JWTIssuer        string
	JWTSigningKey    string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	StationEnrollKey string
	AdminKey         string
	RateLimitPerMin  int
	AllowOrigins     []string
	// MaxBatch caps the scans accepted by one batch upload.
	MaxBatch int
}

// Deps are the services behind the handlers. Queue may be nil, which
// disables batch uploads.
type Deps struct {
	Engine    *attendance.Engine
	Store     attendance.Store
	Reporter  *attendance.Reporter
	Roster    RosterService
	Queue     queue.Queue
	Debouncer *attendance.Debouncer
	Health    map[string]HealthCheck
	Log       *zap.Logger
}

// Handler owns the API routes.
type Handler struct {
	Deps
	opts Options
}

// New creates a handler.
func New(deps Deps, opts Options) *Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Debouncer == nil {
		deps.Debouncer = attendance.NewDebouncer(0, nil)
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 500
	}
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"*"}
	}
	return &Handler{Deps: deps, opts: opts}
}

// Router builds the gin engine with middleware and every route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(h.Log, "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     h.opts.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())

	limiter := httpmiddleware.NewLimiter(h.opts.RateLimitPerMin, h.opts.RateLimitPerMin)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	open := r.Group("/v1", limiter.GinMiddleware(nil))
	open.POST("/stations/register", h.registerStation)
	open.POST("/admin/token", h.adminToken)
	open.POST("/token/refresh", h.refreshToken)

	authed := r.Group("/v1",
		auth.Bearer(h.opts.JWTSigningKey, h.opts.JWTIssuer),
		limiter.GinMiddleware(subjectKey),
		auth.RequireRole(auth.RoleStation, auth.RoleAdmin))
	authed.POST("/scans", h.scan)
	authed.POST("/scans/batch", h.scanBatch)
	authed.GET("/sessions/suggest", h.suggestSession)
	authed.GET("/attendance", h.listAttendance)
	authed.GET("/attendance/daily", h.dailyReport)
	authed.GET("/students", h.listStudents)
	authed.GET("/students/:id/qr", h.studentQR)
	authed.GET("/classes/:class/students", h.listClass)
	authed.GET("/teachers", h.listTeachers)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/students", h.createStudent)
	admin.PUT("/students/:id", h.updateStudent)
	admin.DELETE("/students/:id", h.deleteStudent)
	admin.POST("/teachers", h.createTeacher)
	admin.PUT("/teachers/:id", h.updateTeacher)
	admin.DELETE("/teachers/:id", h.deleteTeacher)

	return r
}

// logFor tags the handler logger with the request id.
func (h *Handler) logFor(c *gin.Context) *zap.Logger {
	return h.Log.With(zap.String("request_id", httpmiddleware.RequestID(c)))
}

func subjectKey(c *gin.Context) string {
	if claims, ok := auth.ClaimsFrom(c); ok && claims.Subject != "" {
		return claims.Role + ":" + claims.Subject
	}
	return httpmiddleware.ClientIP(c)
}

func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.Health {
		ok := check(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

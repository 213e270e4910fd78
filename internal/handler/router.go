package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/middleware"
	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/internal/service"
	"github.com/noah-isme/ccrm-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ccrm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ccrm-api/pkg/middleware/requestid"
)

// RouterConfig controls route registration.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	Metrics        *service.MetricsService
	Tokens         middleware.TokenValidator
	Logger         *zap.Logger
}

// Handlers groups every HTTP handler the API mounts. Nil handlers are skipped.
type Handlers struct {
	Auth        *AuthHandler
	Students    *StudentHandler
	Courses     *CourseHandler
	Instructors *InstructorHandler
	Enrollments *EnrollmentHandler
	Transcripts *TranscriptHandler
	Interchange *InterchangeHandler
	Backups     *BackupHandler
	Mirror      *MirrorHandler
	Metrics     *MetricsHandler
}

// NewRouter builds the gin engine. Reads are public; every mutation requires an admin token.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.WithResponseMeta())

	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(cfg.APIPrefix)
	admin := api.Group("")
	if cfg.Tokens != nil {
		admin.Use(middleware.JWT(cfg.Tokens), middleware.RequireRoles(models.RoleAdmin))
	} else {
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
	}

	if h.Auth != nil {
		api.POST("/auth/login", h.Auth.Login)
		admin.GET("/auth/me", h.Auth.Me)
	}

	if h.Students != nil {
		api.GET("/students", h.Students.List)
		api.GET("/students/search", h.Students.Search)
		api.GET("/students/:id", h.Students.Get)
		api.GET("/students/:id/credits", h.Students.Credits)
		api.GET("/students/:id/enrollments", h.Students.Enrollments)
		admin.POST("/students", h.Students.Create)
		admin.PUT("/students/:id", h.Students.Update)
		admin.DELETE("/students/:id", h.Students.Deactivate)
		admin.POST("/students/:id/gpa", h.Students.GPA)
	}

	if h.Transcripts != nil {
		api.GET("/students/:id/transcript", h.Transcripts.Get)
	}

	if h.Courses != nil {
		api.GET("/courses", h.Courses.List)
		api.GET("/courses/search", h.Courses.Search)
		api.GET("/courses/:id", h.Courses.Get)
		api.GET("/courses/:id/enrollments", h.Courses.Enrollments)
		admin.POST("/courses", h.Courses.Create)
		admin.PUT("/courses/:id", h.Courses.Update)
		admin.DELETE("/courses/:id", h.Courses.Deactivate)
	}

	if h.Instructors != nil {
		api.GET("/instructors", h.Instructors.List)
		api.GET("/instructors/:id", h.Instructors.Get)
		admin.POST("/instructors", h.Instructors.Create)
		admin.PUT("/instructors/:id/courses/:courseId", h.Instructors.AssignCourse)
		admin.DELETE("/instructors/:id", h.Instructors.Deactivate)
	}

	if h.Enrollments != nil {
		api.GET("/enrollments/search", h.Enrollments.Search)
		api.GET("/enrollments/eligibility", h.Enrollments.Eligibility)
		admin.POST("/enrollments", h.Enrollments.Enroll)
		admin.POST("/enrollments/withdraw", h.Enrollments.Withdraw)
		admin.POST("/enrollments/grade", h.Enrollments.RecordGrade)
	}

	if h.Interchange != nil {
		api.GET("/interchange/files/:token", h.Interchange.Download)
		admin.POST("/interchange/export", h.Interchange.Export)
		admin.POST("/interchange/import", h.Interchange.Import)
	}

	if h.Backups != nil {
		admin.GET("/backups", h.Backups.List)
		admin.POST("/backups", h.Backups.Create)
		admin.GET("/backups/jobs/:id", h.Backups.Job)
		admin.POST("/backups/cleanup", h.Backups.Cleanup)
	}

	if h.Mirror != nil {
		admin.POST("/mirror/push", h.Mirror.Push)
		admin.POST("/mirror/pull", h.Mirror.Pull)
	}

	if h.Metrics != nil {
		admin.GET("/metrics/summary", h.Metrics.Summary)
	}

	return r
}

package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/middleware"
	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/internal/service"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
	"github.com/noah-isme/maktab-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/maktab-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/maktab-api/pkg/middleware/requestid"
	"github.com/noah-isme/maktab-api/pkg/response"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	APIPrefix      string
	StaticDir      string
	AuthEnabled    bool
	EnableDocs     bool
	AllowedOrigins []string
}

// Handlers groups every endpoint handler.
type Handlers struct {
	Students   *StudentHandler
	Classes    *ClassHandler
	Fields     *FieldHandler
	Attendance *AttendanceHandler
	Holidays   *HolidayHandler
	Books      *BookHandler
	Education  *EducationHandler
	Dashboard  *DashboardHandler
	Reports    *ReportHandler
	Auth       *AuthHandler
	Users      *UserHandler
	Metrics    *MetricsHandler
}

// RouterDeps are the collaborators NewRouter wires together.
type RouterDeps struct {
	Config   RouterConfig
	Handlers Handlers
	Auth     *service.AuthService
	Limiter  *service.LoginLimiter
	Metrics  *service.MetricsService
	Logger   *zap.Logger
}

// NewRouter builds the gin engine with middleware, API routes, docs and the
// static frontend.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api"
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	h := deps.Handlers
	if h.Metrics != nil {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)
	if h.Metrics != nil {
		api.GET("/health", h.Metrics.Health)
	}

	enforce := cfg.AuthEnabled
	if h.Auth != nil {
		auth := api.Group("/auth")
		var onLocked func()
		if deps.Auth != nil {
			onLocked = deps.Auth.RecordLockout
		}
		if deps.Limiter != nil {
			auth.POST("/login", middleware.LoginThrottle(deps.Limiter, onLocked), h.Auth.Login)
		} else {
			auth.POST("/login", h.Auth.Login)
		}
		auth.GET("/me", middleware.JWT(deps.Auth), h.Auth.Me)
		auth.POST("/change-password", middleware.JWT(deps.Auth), h.Auth.ChangePassword)
	}

	protected := api.Group("")
	if deps.Auth != nil {
		protected.Use(middleware.ProtectMutations(enforce, deps.Auth))
	}
	adminWrites := middleware.WriteRoles(enforce, models.RoleAdmin)
	staffWrites := middleware.WriteRoles(enforce, models.RoleAdmin, models.RoleTeacher)

	if h.Students != nil {
		students := protected.Group("/students", adminWrites)
		students.GET("", h.Students.List)
		students.GET("/next-roll", h.Students.NextRoll)
		students.GET("/:id", h.Students.Get)
		students.POST("", h.Students.Create)
		students.PUT("/:id", h.Students.Update)
		students.DELETE("/:id", h.Students.Delete)
	}

	if h.Classes != nil {
		classes := protected.Group("/classes", adminWrites)
		classes.GET("", h.Classes.List)
		classes.GET("/:id", h.Classes.Get)
		classes.POST("", h.Classes.Create)
		classes.PUT("/:id", h.Classes.Update)
		classes.DELETE("/:id", h.Classes.Delete)
	}

	if h.Fields != nil {
		fields := protected.Group("/fields", adminWrites)
		fields.GET("", h.Fields.List)
		fields.POST("", h.Fields.Create)
		fields.PUT("/:id", h.Fields.Update)
		fields.DELETE("/:id", h.Fields.Delete)
	}

	if h.Attendance != nil {
		attendance := protected.Group("/attendance", staffWrites)
		attendance.GET("", h.Attendance.Sheet)
		attendance.POST("", h.Attendance.Save)
		attendance.GET("/students/:id", h.Attendance.StudentHistory)
		attendance.PUT("/:student_id/:date", h.Attendance.Upsert)
	}

	if h.Holidays != nil {
		holidays := protected.Group("/holidays", adminWrites)
		holidays.GET("", h.Holidays.List)
		holidays.GET("/check", h.Holidays.Check)
		holidays.POST("", h.Holidays.Create)
		holidays.PUT("/:id", h.Holidays.Update)
		holidays.DELETE("/:id", h.Holidays.Delete)
	}

	if h.Books != nil {
		books := protected.Group("/books", adminWrites)
		books.GET("", h.Books.List)
		books.GET("/:id", h.Books.Get)
		books.POST("", h.Books.Create)
		books.PUT("/:id", h.Books.Update)
		books.DELETE("/:id", h.Books.Delete)
	}

	if h.Education != nil {
		education := protected.Group("/education", staffWrites)
		education.GET("", h.Education.List)
		education.GET("/:id", h.Education.Get)
		education.POST("", h.Education.Save)
		education.PUT("/:id", h.Education.Update)
		education.DELETE("/:id", h.Education.Delete)
	}

	if h.Dashboard != nil {
		protected.GET("/dashboard", h.Dashboard.Get)
	}

	if h.Reports != nil {
		reports := protected.Group("/reports")
		reports.GET("/attendance", h.Reports.Attendance)
		reports.GET("/students", h.Reports.Students)
		reports.GET("/education", h.Reports.Education)
		reports.POST("/exports", staffWrites, h.Reports.CreateExport)
		reports.GET("/exports/:id", h.Reports.ExportStatus)
		reports.GET("/download/:token", h.Reports.Download)
	}

	if h.Users != nil {
		users := protected.Group("/users", middleware.RequireRoles(enforce, models.RoleAdmin))
		users.GET("", h.Users.List)
		users.POST("", h.Users.Create)
		users.PUT("/:id", h.Users.Update)
	}

	r.NoRoute(staticFallback(cfg.StaticDir, prefix))
	return r
}

// staticFallback serves files from dir and falls back to index.html for
// unknown non-API GET paths so client side routing works.
func staticFallback(dir, apiPrefix string) gin.HandlerFunc {
	notFound := func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	}
	return func(c *gin.Context) {
		reqPath := c.Request.URL.Path
		if dir == "" || reqPath == apiPrefix || strings.HasPrefix(reqPath, apiPrefix+"/") {
			notFound(c)
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			notFound(c)
			return
		}

		file := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+reqPath)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
		notFound(c)
	}
}

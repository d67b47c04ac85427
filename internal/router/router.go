package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/marovi-edu/tuition-api/internal/handler"
	"github.com/marovi-edu/tuition-api/internal/middleware"
	"github.com/marovi-edu/tuition-api/internal/models"
	"github.com/marovi-edu/tuition-api/internal/service"
	"github.com/marovi-edu/tuition-api/pkg/logger"
	corsmiddleware "github.com/marovi-edu/tuition-api/pkg/middleware/cors"
	reqidmiddleware "github.com/marovi-edu/tuition-api/pkg/middleware/requestid"
)

// Config collects everything the HTTP surface needs.
type Config struct {
	Production     bool
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger

	UploadsDir        string
	UploadsPublicPath string

	Auth    *service.AuthService
	Metrics *service.MetricsService

	AuthHandler       *handler.AuthHandler
	StudentHandler    *handler.StudentHandler
	TeacherHandler    *handler.TeacherHandler
	CycleHandler      *handler.CycleHandler
	CourseHandler     *handler.CourseHandler
	PackageHandler    *handler.PackageHandler
	OfferingHandler   *handler.OfferingHandler
	ScheduleHandler   *handler.ScheduleHandler
	EnrollmentHandler *handler.EnrollmentHandler
	PaymentHandler    *handler.PaymentHandler
	AttendanceHandler *handler.AttendanceHandler
	DashboardHandler  *handler.DashboardHandler
	MetricsHandler    *handler.MetricsHandler
}

// New builds the gin engine with the full route table.
func New(cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", cfg.MetricsHandler.Prometheus)
	}
	if !cfg.Production {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.UploadsDir != "" {
		r.Static(cfg.UploadsPublicPath, cfg.UploadsDir)
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}
	api := r.Group(prefix)

	api.POST("/auth/login", cfg.AuthHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(cfg.Auth))

	authed.GET("/auth/me", cfg.AuthHandler.Me)
	authed.PUT("/auth/password", cfg.AuthHandler.ChangePassword)

	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), "SELF")
	student := middleware.RequireRoles(models.RoleStudent)
	teacher := middleware.RequireRoles(models.RoleTeacher)

	students := authed.Group("/students")
	{
		students.GET("", admin, cfg.StudentHandler.List)
		students.POST("", admin, cfg.StudentHandler.Create)
		students.GET("/:id", adminOrSelf, cfg.StudentHandler.Get)
		students.PUT("/:id", admin, cfg.StudentHandler.Update)
		students.DELETE("/:id", admin, cfg.StudentHandler.Delete)
		students.GET("/:id/notifications", adminOrSelf, cfg.StudentHandler.Notifications)
	}

	teachers := authed.Group("/teachers")
	{
		teachers.GET("", admin, cfg.TeacherHandler.List)
		teachers.POST("", admin, cfg.TeacherHandler.Create)
		teachers.GET("/me/schedules", teacher, cfg.TeacherHandler.MySchedules)
		teachers.GET("/:id", adminOrSelf, cfg.TeacherHandler.Get)
		teachers.PUT("/:id", admin, cfg.TeacherHandler.Update)
		teachers.DELETE("/:id", admin, cfg.TeacherHandler.Delete)
		teachers.POST("/:id/reset-password", admin, cfg.TeacherHandler.ResetPassword)
		teachers.GET("/:id/students", adminOrSelf, cfg.TeacherHandler.Students)
		teachers.POST("/:id/attendance", teacher, cfg.AttendanceHandler.Mark)
	}

	cycles := authed.Group("/cycles")
	{
		cycles.GET("", cfg.CycleHandler.List)
		cycles.GET("/active", cfg.CycleHandler.Active)
		cycles.GET("/:id", cfg.CycleHandler.Get)
		cycles.POST("", admin, cfg.CycleHandler.Create)
		cycles.PUT("/:id", admin, cfg.CycleHandler.Update)
		cycles.DELETE("/:id", admin, cfg.CycleHandler.Delete)
	}

	courses := authed.Group("/courses")
	{
		courses.GET("", cfg.CourseHandler.List)
		courses.GET("/:id", cfg.CourseHandler.Get)
		courses.POST("", admin, cfg.CourseHandler.Create)
		courses.PUT("/:id", admin, cfg.CourseHandler.Update)
		courses.DELETE("/:id", admin, cfg.CourseHandler.Delete)
	}

	packages := authed.Group("/packages")
	{
		packages.GET("", cfg.PackageHandler.List)
		packages.GET("/:id", cfg.PackageHandler.Get)
		packages.POST("", admin, cfg.PackageHandler.Create)
		packages.PUT("/:id", admin, cfg.PackageHandler.Update)
		packages.DELETE("/:id", admin, cfg.PackageHandler.Delete)
		packages.POST("/:id/courses", admin, cfg.PackageHandler.AddCourse)
		packages.DELETE("/:id/courses/:courseId", admin, cfg.PackageHandler.RemoveCourse)
	}

	courseOfferings := authed.Group("/course-offerings")
	{
		courseOfferings.GET("", cfg.OfferingHandler.ListCourseOfferings)
		courseOfferings.GET("/:id", cfg.OfferingHandler.GetCourseOffering)
		courseOfferings.GET("/:id/schedules", cfg.OfferingHandler.CourseOfferingSchedules)
		courseOfferings.POST("", admin, cfg.OfferingHandler.CreateCourseOffering)
		courseOfferings.PUT("/:id", admin, cfg.OfferingHandler.UpdateCourseOffering)
		courseOfferings.DELETE("/:id", admin, cfg.OfferingHandler.DeleteCourseOffering)
	}

	packageOfferings := authed.Group("/package-offerings")
	{
		packageOfferings.GET("", cfg.OfferingHandler.ListPackageOfferings)
		packageOfferings.GET("/:id", cfg.OfferingHandler.GetPackageOffering)
		packageOfferings.POST("", admin, cfg.OfferingHandler.CreatePackageOffering)
		packageOfferings.PUT("/:id", admin, cfg.OfferingHandler.UpdatePackageOffering)
		packageOfferings.DELETE("/:id", admin, cfg.OfferingHandler.DeletePackageOffering)
		packageOfferings.GET("/:id/courses", admin, cfg.OfferingHandler.MappedCourses)
		packageOfferings.POST("/:id/courses", admin, cfg.OfferingHandler.MapCourse)
		packageOfferings.DELETE("/:id/courses/:courseOfferingId", admin, cfg.OfferingHandler.UnmapCourse)
	}

	schedules := authed.Group("/schedules")
	{
		schedules.GET("/by-course-offering/:id", cfg.ScheduleHandler.ByCourseOffering)
		schedules.GET("/by-package-offering/:id", cfg.ScheduleHandler.ByPackageOffering)
		schedules.GET("/:id", cfg.ScheduleHandler.Get)
		schedules.GET("/:id/attendance", teacher, cfg.AttendanceHandler.List)
		schedules.POST("", admin, cfg.ScheduleHandler.Create)
		schedules.PUT("/:id", admin, cfg.ScheduleHandler.Update)
		schedules.DELETE("/:id", admin, cfg.ScheduleHandler.Delete)
	}

	enrollments := authed.Group("/enrollments")
	{
		enrollments.POST("", student, cfg.EnrollmentHandler.Create)
		enrollments.GET("/me", middleware.RBAC(string(models.RoleAdmin), string(models.RoleStudent)), cfg.EnrollmentHandler.ListMine)
		enrollments.GET("", admin, cfg.EnrollmentHandler.ListAdmin)
		enrollments.GET("/roster", admin, cfg.EnrollmentHandler.Roster)
		enrollments.GET("/roster/export", admin, cfg.EnrollmentHandler.ExportRoster)
		enrollments.PUT("/:id/status", admin, cfg.EnrollmentHandler.UpdateStatus)
		enrollments.DELETE("/:id", student, cfg.EnrollmentHandler.Cancel)
	}

	payments := authed.Group("/payments")
	{
		payments.POST("/:id/voucher", middleware.RBAC(string(models.RoleAdmin), string(models.RoleStudent)), cfg.PaymentHandler.UploadVoucher)
		payments.GET("", admin, cfg.PaymentHandler.ListAdmin)
		payments.PUT("/:id/approve", admin, cfg.PaymentHandler.Approve)
		payments.PUT("/:id/reject", admin, cfg.PaymentHandler.Reject)
	}

	if cfg.DashboardHandler != nil {
		authed.GET("/dashboard/summary", admin, cfg.DashboardHandler.Summary)
	}
	if cfg.MetricsHandler != nil {
		authed.GET("/metrics/summary", admin, cfg.MetricsHandler.Snapshot)
	}

	return r
}

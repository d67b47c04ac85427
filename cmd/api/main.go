package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/marovi-edu/tuition-api/api/swagger"
	"github.com/marovi-edu/tuition-api/internal/handler"
	"github.com/marovi-edu/tuition-api/internal/repository"
	"github.com/marovi-edu/tuition-api/internal/router"
	"github.com/marovi-edu/tuition-api/internal/service"
	"github.com/marovi-edu/tuition-api/pkg/cache"
	"github.com/marovi-edu/tuition-api/pkg/config"
	"github.com/marovi-edu/tuition-api/pkg/database"
	"github.com/marovi-edu/tuition-api/pkg/logger"
	"github.com/marovi-edu/tuition-api/pkg/storage"
)

// @title Tuition API
// @version 1.0.0
// @description Enrollment, payment and attendance management for the institute
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := database.Migrate(ctx, db, cfg.Database.MigrationsDir); err != nil {
			cancel()
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
		cancel()
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Dashboard.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient), metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	cycleRepo := repository.NewCycleRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, service.NewLogSender(logr), logr,
		cfg.Notifications.WorkerCount, cfg.Notifications.Enabled)
	studentSvc := service.NewStudentService(studentRepo, userRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, userRepo, validate, logr)
	cycleSvc := service.NewCycleService(cycleRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	packageSvc := service.NewPackageService(packageRepo, validate, logr)
	offeringSvc := service.NewOfferingService(offeringRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, offeringRepo, paymentRepo, userRepo,
		validate, logr, cfg.Payments.InstallmentDueDays)
	paymentSvc := service.NewPaymentService(paymentRepo, enrollmentRepo, store, userRepo,
		validate, logr, cfg.Uploads.PublicPath, storage.RandomName)
	paymentSvc.SetParentNotifier(studentRepo, notificationSvc)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, notificationSvc,
		validate, logr, cfg.Notifications.AbsenceThreshold)
	exportSvc := service.NewExportService(enrollmentSvc, logr)

	var dashboardHandler *handler.DashboardHandler
	if cfg.Dashboard.Enabled {
		dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
		dashboardHandler = handler.NewDashboardHandler(dashboardSvc)
	}

	notifyCtx, stopNotify := context.WithCancel(context.Background())
	notificationSvc.Start(notifyCtx)

	r := router.New(router.Config{
		Production:        cfg.Env == config.EnvProduction,
		APIPrefix:         cfg.APIPrefix,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		Logger:            logr,
		UploadsDir:        store.Dir(),
		UploadsPublicPath: cfg.Uploads.PublicPath,
		Auth:              authSvc,
		Metrics:           metricsSvc,
		AuthHandler:       handler.NewAuthHandler(authSvc),
		StudentHandler:    handler.NewStudentHandler(studentSvc, notificationSvc),
		TeacherHandler:    handler.NewTeacherHandler(teacherSvc),
		CycleHandler:      handler.NewCycleHandler(cycleSvc),
		CourseHandler:     handler.NewCourseHandler(courseSvc),
		PackageHandler:    handler.NewPackageHandler(packageSvc),
		OfferingHandler:   handler.NewOfferingHandler(offeringSvc, scheduleSvc),
		ScheduleHandler:   handler.NewScheduleHandler(scheduleSvc),
		EnrollmentHandler: handler.NewEnrollmentHandler(enrollmentSvc, exportSvc),
		PaymentHandler:    handler.NewPaymentHandler(paymentSvc),
		AttendanceHandler: handler.NewAttendanceHandler(attendanceSvc),
		DashboardHandler:  dashboardHandler,
		MetricsHandler:    handler.NewMetricsHandler(metricsSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}

	stopNotify()
	notificationSvc.Stop()
}

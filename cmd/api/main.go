package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/zus-pop/academix-api/api/swagger"
	"github.com/zus-pop/academix-api/internal/handler"
	"github.com/zus-pop/academix-api/internal/middleware"
	"github.com/zus-pop/academix-api/internal/models"
	"github.com/zus-pop/academix-api/internal/repository"
	"github.com/zus-pop/academix-api/internal/service"
	"github.com/zus-pop/academix-api/pkg/cache"
	"github.com/zus-pop/academix-api/pkg/config"
	"github.com/zus-pop/academix-api/pkg/database"
	"github.com/zus-pop/academix-api/pkg/jobs"
	"github.com/zus-pop/academix-api/pkg/logger"
	corsmiddleware "github.com/zus-pop/academix-api/pkg/middleware/cors"
	reqidmiddleware "github.com/zus-pop/academix-api/pkg/middleware/requestid"
	"github.com/zus-pop/academix-api/pkg/storage"
)

// @title Academix API
// @version 1.0.0
// @description Academic administration backend: curriculum catalog, enrollment, grading, attendance and supervisor risk alerts
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	majorRepo := repository.NewMajorRepository(db)
	comboRepo := repository.NewComboRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Redis-backed cache is optional.
	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      true,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, comboRepo, curriculumRepo, validate, logr)
	majorSvc := service.NewMajorService(majorRepo, validate, logr)
	comboSvc := service.NewComboService(comboRepo, majorRepo, curriculumRepo, validate, logr)
	curriculumSvc := service.NewCurriculumService(curriculumRepo, subjectRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, subjectRepo, semesterRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, curriculumRepo, courseRepo, userRepo, cacheSvc, validate, logr, service.EnrollmentConfig{
		SessionsPerCourse: cfg.Academic.SessionsPerCourse,
	})
	gradeSvc := service.NewGradeService(enrollmentRepo, userRepo, validate, logr, service.GradeConfig{
		PassMark: cfg.Academic.PassMark,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, validate, logr)
	alertSvc := service.NewAlertService(alertRepo, enrollmentRepo, userRepo, validate, logr)

	// Asynchronous report pipeline is optional.
	var reportSvc *service.ReportService
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(enrollmentRepo, attendanceRepo, alertRepo, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)

		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()

		reportSvc = service.NewReportService(reportRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: time.Hour,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, enrollmentSvc)
	majorHandler := handler.NewMajorHandler(majorSvc)
	comboHandler := handler.NewComboHandler(comboSvc)
	curriculumHandler := handler.NewCurriculumHandler(curriculumSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	semesterHandler := handler.NewSemesterHandler(semesterSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, gradeSvc, attendanceSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	alertHandler := handler.NewAlertHandler(alertSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	staff := []models.UserRole{models.RoleAdmin, models.RoleManager}
	allRoles := []models.UserRole{models.RoleAdmin, models.RoleManager, models.RoleSupervisor}

	users := protected.Group("/users")
	users.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	students := protected.Group("/students")
	students.Use(middleware.Audit(userRepo, "student"))
	{
		students.GET("", middleware.RequireRoles(allRoles...), studentHandler.List)
		students.GET("/:id", middleware.RequireRoles(allRoles...), studentHandler.Get)
		students.GET("/:id/enrollment-options", middleware.RequireRoles(allRoles...), studentHandler.EnrollmentOptions)
		students.POST("", middleware.RequireRoles(staff...), studentHandler.Create)
		students.PUT("/:id", middleware.RequireRoles(staff...), studentHandler.Update)
		students.PUT("/:id/curriculum", middleware.RequireRoles(staff...), studentHandler.SetCurriculum)
		students.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), studentHandler.Delete)
		students.POST("/:id/restore", middleware.RequireRoles(models.RoleAdmin), studentHandler.Restore)
	}

	majors := protected.Group("/majors")
	majors.Use(middleware.Audit(userRepo, "major"))
	{
		majors.GET("", middleware.RequireRoles(allRoles...), majorHandler.List)
		majors.GET("/:id", middleware.RequireRoles(allRoles...), majorHandler.Get)
		majors.POST("", middleware.RequireRoles(staff...), majorHandler.Create)
		majors.PUT("/:id", middleware.RequireRoles(staff...), majorHandler.Update)
		majors.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), majorHandler.Delete)
	}

	combos := protected.Group("/combos")
	combos.Use(middleware.Audit(userRepo, "combo"))
	{
		combos.GET("", middleware.RequireRoles(allRoles...), comboHandler.List)
		combos.GET("/:id", middleware.RequireRoles(allRoles...), comboHandler.Get)
		combos.POST("", middleware.RequireRoles(staff...), comboHandler.Create)
		combos.PUT("/:id", middleware.RequireRoles(staff...), comboHandler.Update)
		combos.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), comboHandler.Delete)
	}

	curriculums := protected.Group("/curriculums")
	curriculums.Use(middleware.Audit(userRepo, "curriculum"))
	{
		curriculums.GET("", middleware.RequireRoles(allRoles...), curriculumHandler.List)
		curriculums.GET("/:id", middleware.RequireRoles(allRoles...), curriculumHandler.Get)
		curriculums.POST("", middleware.RequireRoles(staff...), curriculumHandler.Create)
		curriculums.PUT("/:id", middleware.RequireRoles(staff...), curriculumHandler.Update)
		curriculums.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), curriculumHandler.Delete)
		curriculums.POST("/:id/subjects", middleware.RequireRoles(staff...), curriculumHandler.AddSubject)
		curriculums.DELETE("/:id/subjects/:subjectId", middleware.RequireRoles(staff...), curriculumHandler.RemoveSubject)
	}

	subjects := protected.Group("/subjects")
	subjects.Use(middleware.Audit(userRepo, "subject"))
	{
		subjects.GET("", middleware.RequireRoles(allRoles...), subjectHandler.List)
		subjects.GET("/:id", middleware.RequireRoles(allRoles...), subjectHandler.Get)
		subjects.POST("", middleware.RequireRoles(staff...), subjectHandler.Create)
		subjects.PUT("/:id", middleware.RequireRoles(staff...), subjectHandler.Update)
		subjects.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), subjectHandler.Delete)
	}

	semesters := protected.Group("/semesters")
	semesters.Use(middleware.Audit(userRepo, "semester"))
	{
		semesters.GET("", middleware.RequireRoles(allRoles...), semesterHandler.List)
		semesters.GET("/:id", middleware.RequireRoles(allRoles...), semesterHandler.Get)
		semesters.POST("", middleware.RequireRoles(staff...), semesterHandler.Create)
		semesters.PUT("/:id", middleware.RequireRoles(staff...), semesterHandler.Update)
		semesters.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), semesterHandler.Delete)
	}

	courses := protected.Group("/courses")
	courses.Use(middleware.Audit(userRepo, "course"))
	{
		courses.GET("", middleware.RequireRoles(allRoles...), courseHandler.List)
		courses.GET("/:id", middleware.RequireRoles(allRoles...), courseHandler.Get)
		courses.POST("", middleware.RequireRoles(staff...), courseHandler.Create)
		courses.PUT("/:id", middleware.RequireRoles(staff...), courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Delete)
	}

	enrollments := protected.Group("/enrollments")
	enrollments.Use(middleware.Audit(userRepo, "enrollment"))
	{
		enrollments.GET("", middleware.RequireRoles(allRoles...), enrollmentHandler.List)
		enrollments.GET("/:id", middleware.RequireRoles(allRoles...), enrollmentHandler.Get)
		enrollments.GET("/:id/attendances", middleware.RequireRoles(allRoles...), enrollmentHandler.Attendances)
		enrollments.POST("/batch", middleware.RequireRoles(staff...), enrollmentHandler.BatchEnroll)
		enrollments.PUT("/:id/grades", middleware.RequireRoles(staff...), enrollmentHandler.UpdateGrades)
		enrollments.DELETE("/:id", middleware.RequireRoles(staff...), enrollmentHandler.Delete)
	}

	attendances := protected.Group("/attendances")
	attendances.Use(middleware.Audit(userRepo, "attendance"))
	{
		attendances.GET("", middleware.RequireRoles(allRoles...), attendanceHandler.List)
		attendances.GET("/:id", middleware.RequireRoles(allRoles...), attendanceHandler.Get)
		attendances.PATCH("/:id", middleware.RequireRoles(staff...), attendanceHandler.UpdateStatus)
	}

	alerts := protected.Group("/alerts")
	alerts.Use(middleware.Audit(userRepo, "alert"))
	{
		alerts.GET("", middleware.RequireRoles(allRoles...), alertHandler.List)
		alerts.GET("/:id", middleware.RequireRoles(allRoles...), alertHandler.Get)
		alerts.POST("", middleware.RequireRoles(allRoles...), alertHandler.Create)
		alerts.PATCH("/:id/response", middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), alertHandler.Respond)
		alerts.PATCH("/:id/resolve", middleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), alertHandler.Resolve)
		alerts.PATCH("/:id", middleware.RequireRoles(staff...), alertHandler.UpdateRiskLevel)
	}

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		reports := protected.Group("/reports")
		{
			reports.POST("", middleware.RequireRoles(allRoles...), reportHandler.GenerateReport)
			reports.GET("/:id", middleware.RequireRoles(allRoles...), reportHandler.ReportStatus)
		}
		api.GET("/export/:token", reportHandler.DownloadReport)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/arkanhadi/school-admin-api/api/swagger"
	"github.com/arkanhadi/school-admin-api/internal/handler"
	"github.com/arkanhadi/school-admin-api/internal/middleware"
	"github.com/arkanhadi/school-admin-api/internal/models"
	"github.com/arkanhadi/school-admin-api/internal/repository"
	"github.com/arkanhadi/school-admin-api/internal/service"
	"github.com/arkanhadi/school-admin-api/pkg/cache"
	"github.com/arkanhadi/school-admin-api/pkg/config"
	"github.com/arkanhadi/school-admin-api/pkg/database"
	"github.com/arkanhadi/school-admin-api/pkg/logger"
	corsmiddleware "github.com/arkanhadi/school-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/arkanhadi/school-admin-api/pkg/middleware/requestid"
)

// @title School Admin API
// @version 1.0.0
// @description Academic assignment and timetable core for school administration
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Timetable.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	schoolRepo := repository.NewSchoolRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	schoolSvc := service.NewSchoolService(schoolRepo, nil, logr)
	classSvc := service.NewClassService(classRepo, cacheRepo, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, classRepo, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, subjectRepo, classRepo, cacheRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, nil, logr)
	assignmentSvc := service.NewAssignmentService(classRepo, studentRepo, teacherRepo, subjectRepo, cacheRepo, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, classRepo, teacherRepo, subjectRepo, cacheRepo, cfg.Timetable.CacheTTL, metricsSvc, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, nil, logr)

	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	classHandler := handler.NewClassHandler(classSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	admin := middleware.RequireRoles(models.RoleAdmin)

	api.POST("/schools", admin, schoolHandler.Create)
	api.GET("/schools/:id", anyRole, schoolHandler.Get)
	api.PUT("/schools/:id", admin, schoolHandler.Update)
	api.GET("/schools/:id/master-subjects", staff, subjectHandler.ListMaster)
	api.POST("/master-subjects", admin, subjectHandler.CreateMaster)

	api.GET("/classes", anyRole, classHandler.List)
	api.POST("/classes", admin, classHandler.Create)
	api.GET("/classes/:id", anyRole, classHandler.Get)
	api.PUT("/classes/:id", admin, classHandler.Update)
	api.DELETE("/classes/:id", admin, classHandler.Delete)

	api.PUT("/classes/:id/students/:studentId", admin, assignmentHandler.AssignStudent)
	api.DELETE("/classes/:id/students/:studentId", admin, assignmentHandler.RemoveStudent)
	api.DELETE("/classes/:id/students", admin, assignmentHandler.RemoveAllStudents)
	api.PUT("/classes/:id/class-teacher", admin, assignmentHandler.AssignClassTeacher)
	api.DELETE("/classes/:id/class-teacher", admin, assignmentHandler.RemoveClassTeacher)
	api.GET("/classes/:id/subjects", anyRole, subjectHandler.ListByClass)
	api.DELETE("/classes/:id/subjects", admin, assignmentHandler.DeleteAllSubjects)

	api.GET("/subjects", anyRole, subjectHandler.List)
	api.POST("/subjects", admin, subjectHandler.Create)
	api.POST("/subjects/bulk", admin, subjectHandler.BulkCreate)
	api.GET("/subjects/:id", anyRole, subjectHandler.Get)
	api.DELETE("/subjects/:id", admin, assignmentHandler.DeleteSubject)

	api.GET("/teachers", staff, teacherHandler.List)
	api.POST("/teachers", admin, teacherHandler.Create)
	api.GET("/teachers/:id", staff, teacherHandler.Get)
	api.PUT("/teachers/:id", admin, teacherHandler.Update)
	api.DELETE("/teachers/:id", admin, teacherHandler.Delete)
	api.PUT("/teachers/:id/classes/:classId", admin, assignmentHandler.AssignTeacherClass)
	api.DELETE("/teachers/:id/classes/:classId", admin, assignmentHandler.RemoveTeacherClass)
	api.PUT("/teachers/:id/subjects/:subjectId", admin, assignmentHandler.AssignSubject)
	api.DELETE("/teachers/:id/subjects", admin, assignmentHandler.RemoveSubjects)
	api.GET("/teachers/:id/timetable", staff, timetableHandler.TeacherTimetable)

	api.GET("/students", staff, studentHandler.List)
	api.POST("/students", admin, studentHandler.Create)
	api.GET("/students/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), "SELF"), studentHandler.Get)
	api.PUT("/students/:id", admin, studentHandler.Update)
	api.DELETE("/students/:id", admin, studentHandler.Delete)

	api.GET("/classes/:id/timetable", anyRole, timetableHandler.ClassTimetable)
	api.PUT("/classes/:id/timetable", admin, timetableHandler.Save)
	if cfg.Exports.Enabled {
		api.GET("/classes/:id/timetable/export", staff, timetableHandler.Export)
	}

	api.GET("/students/:id/attendance", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), "SELF"), attendanceHandler.Summary)
	api.GET("/students/:id/attendance/records", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), "SELF"), attendanceHandler.Records)
	api.POST("/students/:id/attendance", staff, attendanceHandler.Record)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

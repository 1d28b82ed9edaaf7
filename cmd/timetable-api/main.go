package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/almas-dev/college-timetable-api/internal/handler"
	"github.com/almas-dev/college-timetable-api/internal/middleware"
	"github.com/almas-dev/college-timetable-api/internal/repository"
	"github.com/almas-dev/college-timetable-api/internal/service"
	"github.com/almas-dev/college-timetable-api/pkg/cache"
	"github.com/almas-dev/college-timetable-api/pkg/config"
	"github.com/almas-dev/college-timetable-api/pkg/database"
	"github.com/almas-dev/college-timetable-api/pkg/jobs"
	"github.com/almas-dev/college-timetable-api/pkg/logger"
	corsmiddleware "github.com/almas-dev/college-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/almas-dev/college-timetable-api/pkg/middleware/requestid"
)

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, analysis cache disabled", "error", err)
		cfg.Analysis.CacheEnabled = false
	}

	groupRepo := repository.NewGroupRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	itemRepo := repository.NewScheduleItemRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	distRepo := repository.NewWeeklyDistributionRepository(db)
	dayRepo := repository.NewDayScheduleRepository(db)
	runRepo := repository.NewGeneratedScheduleRepository(db)
	progressRepo := repository.NewSubjectProgressRepository(db)

	metricsSvc := service.NewMetricsService()
	reportCache := service.NewRedisReportCache(redisClient)

	analysisSvc := service.NewDayAnalysisService(
		dayRepo, groupRepo, teacherRepo, roomRepo, progressRepo,
		reportCache, logr, metricsSvc, cfg.Scheduler.PairSizeHours, cfg.Analysis,
	)
	availabilitySvc := service.NewAvailabilityService(dayRepo, distRepo, roomRepo)
	dictionarySvc := service.NewDictionaryService(
		groupRepo, subjectRepo, teacherRepo, roomRepo,
		itemRepo, linkRepo, calendarRepo, progressRepo, logr,
	)

	// The queue handler closes over the service wired after it.
	var weekPlanSvc *service.WeekPlanService
	queue := jobs.NewQueue(service.SemesterJobType, func(ctx context.Context, job jobs.Job) error {
		return weekPlanSvc.RunSemesterJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	weekPlanSvc = service.NewWeekPlanService(
		itemRepo, groupRepo, roomRepo, distRepo, calendarRepo, runRepo,
		queue, nil, logr, metricsSvc, cfg.Scheduler,
	)
	queue.Start(context.Background())
	defer queue.Stop()

	dayPlanSvc := service.NewDayPlanService(
		dayRepo, groupRepo, itemRepo, distRepo, calendarRepo, availabilitySvc,
		teacherRepo, roomRepo, subjectRepo, analysisSvc,
		nil, logr, metricsSvc, cfg.Scheduler,
	)
	swapSvc := service.NewSwapService(
		dayRepo, roomRepo, teacherRepo, linkRepo, analysisSvc,
		logr, metricsSvc, cfg.Scheduler,
	)
	replacementSvc := service.NewReplacementService(
		dayRepo, groupRepo, teacherRepo, subjectRepo, roomRepo, linkRepo,
		analysisSvc, logr, cfg.Scheduler,
	)

	weekPlanHandler := handler.NewWeekPlanHandler(weekPlanSvc)
	dayPlanHandler := handler.NewDayPlanHandler(dayPlanSvc)
	analysisHandler := handler.NewDayAnalysisHandler(analysisSvc, dayRepo)
	swapHandler := handler.NewSwapHandler(swapSvc)
	replacementHandler := handler.NewReplacementHandler(replacementSvc)
	dictionaryHandler := handler.NewDictionaryHandler(dictionarySvc)
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

	auth := middleware.JWT(cfg.JWT)
	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/groups", auth, dictionaryHandler.CreateGroup)
		api.GET("/groups", dictionaryHandler.ListGroups)
		api.POST("/subjects", auth, dictionaryHandler.CreateSubject)
		api.GET("/subjects", dictionaryHandler.ListSubjects)
		api.POST("/teachers", auth, dictionaryHandler.CreateTeacher)
		api.GET("/teachers", dictionaryHandler.ListTeachers)
		api.POST("/rooms", auth, dictionaryHandler.CreateRoom)
		api.GET("/rooms", dictionaryHandler.ListRooms)
		api.POST("/schedule-items", auth, dictionaryHandler.CreateScheduleItem)
		api.GET("/schedule-items", dictionaryHandler.ListScheduleItems)
		api.GET("/schedule-items/:id/progress", dictionaryHandler.ScheduleItemProgress)
		api.POST("/schedule-items/:id/teachers", auth, dictionaryHandler.AddScheduleItemTeacher)
		api.GET("/schedule-items/:id/teachers", dictionaryHandler.ListScheduleItemTeachers)
		api.POST("/links", auth, dictionaryHandler.CreateLink)
		api.GET("/links", dictionaryHandler.ListLinks)
		api.DELETE("/links/:id", auth, dictionaryHandler.DeleteLink)
		api.POST("/practices", auth, dictionaryHandler.CreatePractice)
		api.GET("/practices", dictionaryHandler.ListPractices)
		api.DELETE("/practices/:id", auth, dictionaryHandler.DeletePractice)
		api.POST("/holidays", auth, dictionaryHandler.CreateHoliday)
		api.GET("/holidays", dictionaryHandler.ListHolidays)
		api.DELETE("/holidays/:id", auth, dictionaryHandler.DeleteHoliday)

		api.GET("/weeks", weekPlanHandler.GetWeek)
		api.POST("/weeks/generate", auth, weekPlanHandler.GenerateWeek)
		api.POST("/semesters/generate", auth, weekPlanHandler.GenerateSemester)
		api.GET("/semesters/runs", weekPlanHandler.ListRuns)
		api.GET("/semesters/runs/:id", weekPlanHandler.GetRun)

		api.POST("/days", auth, dayPlanHandler.PlanDay)
		api.GET("/days/:date", dayPlanHandler.GetDay)
		api.GET("/days/:date/entries", dayPlanHandler.LookupEntries)
		api.GET("/days/:date/analysis", analysisHandler.Analyze)
		api.POST("/days/:date/approve", auth, analysisHandler.Approve)
		api.POST("/days/:date/replace-vacant", auth, replacementHandler.ReplaceVacant)
		api.POST("/days/:date/bulk-update", auth, replacementHandler.BulkUpdate)

		api.PATCH("/entries/:id", auth, replacementHandler.UpdateEntry)
		api.PUT("/entries/:id/teacher", auth, replacementHandler.ReplaceTeacher)
		api.GET("/entries/:id/room-swap", swapHandler.ProposeRoomSwap)
		api.POST("/entries/:id/room-swap", auth, swapHandler.ExecuteRoomSwap)
		api.GET("/entries/:id/teacher-swap", swapHandler.ProposeTeacherSwap)
		api.POST("/entries/:id/teacher-swap", auth, swapHandler.ExecuteTeacherSwap)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

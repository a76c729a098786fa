package app

import (
	"assessment_engine_backend/internal/config"
	"assessment_engine_backend/internal/controller"
	"assessment_engine_backend/internal/repository"
	"assessment_engine_backend/internal/repository/memory"
	"assessment_engine_backend/internal/scoring"
	"assessment_engine_backend/internal/service"
	"assessment_engine_backend/internal/util"
	"assessment_engine_backend/pkg/database"
	"assessment_engine_backend/pkg/logger"
	"assessment_engine_backend/pkg/monitoring"
	"assessment_engine_backend/pkg/security"
	"assessment_engine_backend/pkg/tracing"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.Limiter
	tracer          *sdktrace.TracerProvider
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

// repositories driver=memory 时全部由同一个 memory.Store 提供
type repositories struct {
	attempts    service.AttemptStore
	activities  service.ActivityReader
	activityW   service.ActivityWriter
	members     service.MembershipStore
	outbox      service.OutboxStore
	leaderboard service.LeaderboardCache
}

type services struct {
	gate        *service.AttemptGate
	attempt     *service.AttemptService
	antiCheat   *service.AntiCheatService
	leaderboard *service.LeaderboardService
	activity    *service.ActivityService
	storage     *service.StorageService
	hub         *service.AttemptHub
	sweeper     *service.DeadlineSweeper
	dispatcher  *service.CompletionDispatcher
}

type controllers struct {
	attempt     *controller.AttemptController
	leaderboard *controller.LeaderboardController
	activity    *controller.ActivityController
	hub         *controller.HubController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置热更新入口，只影响限流与后台任务参数
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	if db == nil {
		store := memory.NewStore()
		return &repositories{
			attempts:    store,
			activities:  store,
			activityW:   store,
			members:     store,
			outbox:      store,
			leaderboard: memory.NewLeaderboardCache(),
		}
	}

	activities := repository.NewActivityRepository(db)
	repos := &repositories{
		attempts:    repository.NewAttemptRepository(db),
		activities:  activities,
		activityW:   activities,
		members:     repository.NewMembershipRepository(db),
		outbox:      repository.NewOutboxRepository(db),
		leaderboard: memory.NewLeaderboardCache(),
	}
	if rdb != nil {
		repos.leaderboard = repository.NewLeaderboardCache(rdb)
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.gate = service.NewAttemptGate(repos.activities, repos.members)
	s.attempt = service.NewAttemptService(
		repos.attempts,
		s.gate,
		service.NewShuffleService(0),
		service.NewTimerService(time.Now),
		newScoringEngine(cfg),
	)
	s.antiCheat = service.NewAntiCheatService(s.attempt)
	s.leaderboard = service.NewLeaderboardService(repos.attempts, s.gate, repos.leaderboard, cfg.Engine.LeaderboardTTL())
	s.attempt.Leaderboard = s.leaderboard
	s.activity = service.NewActivityService(repos.activityW, repos.members)
	s.storage = service.NewStorageService(cfg)

	s.hub = service.NewAttemptHub(rdb)
	s.hub.TimerSync = func(ctx context.Context, userID uint, attemptID string) (interface{}, error) {
		return s.attempt.TimerStatus(ctx, userID, attemptID)
	}

	s.sweeper = service.NewDeadlineSweeper(s.attempt, s.hub,
		cfg.Engine.SweepInterval(), cfg.Engine.SweepBatchSize, cfg.Engine.TimerPush)

	var points service.PointsAwarder = service.LogPointsAwarder{}
	if rdb != nil {
		points = &service.RedisPointsAwarder{Redis: rdb}
	}
	s.dispatcher = service.NewCompletionDispatcher(
		repos.outbox,
		s.leaderboard,
		service.NewReportArchiver(s.storage, repos.attempts),
		s.hub,
		points,
	)
	s.dispatcher.Configure(cfg.Engine.OutboxPoll(), cfg.Engine.OutboxBatchSize, cfg.Engine.ArchiveReports)

	return s
}

// newScoringEngine 配置了模型接口时探究提问由模型评估，失败退回关键词分类
func newScoringEngine(cfg *config.Config) *scoring.Engine {
	ai := service.NewAIService(cfg.AI)
	if !ai.Enabled() {
		return scoring.NewEngine()
	}
	logger.Log.Info("Inquiry questions are evaluated by AI", zap.String("model", cfg.AI.Model))
	return scoring.NewEngine(scoring.WithInquiryEvaluator(scoring.FallbackEvaluator{
		Primary:  service.NewAIInquiryEvaluator(ai),
		Fallback: scoring.KeywordClassifier{},
		OnError: func(err error) {
			logger.Log.Warn("AI inquiry evaluation failed, using keyword classifier", zap.Error(err))
		},
	}))
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		attempt:     controller.NewAttemptController(s.attempt, s.antiCheat),
		leaderboard: controller.NewLeaderboardController(s.leaderboard),
		activity:    controller.NewActivityController(s.activity),
		hub:         controller.NewHubController(s.hub),
		health:      controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.limiter))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) registerConfigCallbacks() {
	s := a.services
	a.RegisterConfigCallback(func(cfg *config.Config) {
		if err := logger.SetLevel(cfg.Log.Level, cfg.Server.Mode); err != nil {
			logger.Log.Warn("Log level not updated", zap.Error(err))
		}
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.limiter.SetLimit(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.sweeper.Configure(cfg.Engine.SweepInterval(), cfg.Engine.SweepBatchSize, cfg.Engine.TimerPush)
		s.dispatcher.Configure(cfg.Engine.OutboxPoll(), cfg.Engine.OutboxBatchSize, cfg.Engine.ArchiveReports)
		s.leaderboard.SetTTL(cfg.Engine.LeaderboardTTL())
		logger.Log.Info("Engine settings updated",
			zap.Duration("sweepInterval", cfg.Engine.SweepInterval()),
			zap.Duration("outboxPoll", cfg.Engine.OutboxPoll()),
			zap.Bool("archiveReports", cfg.Engine.ArchiveReports))
	})
}

func (a *App) startBackgroundTasks(ctx context.Context, s *services) {
	go s.hub.Run()
	go s.sweeper.Run(ctx)
	go s.dispatcher.Run(ctx)
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	app := &App{Config: cfg}

	if cfg.Database.Driver != util.DriverMemory {
		migrate := cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate
		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode, migrate)
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}
		app.DB = db
	} else {
		logger.Log.Warn("Using in-memory storage, data is lost on restart")
	}
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	repos := app.initRepositories(app.DB, app.Redis)
	app.services = app.initServices(repos, cfg, app.Redis)
	controllers := app.initControllers(app.services)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("assessment-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.limiter = security.NewLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)
	app.registerConfigCallbacks()

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.startBackgroundTasks(ctx, app.services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// 先停后台任务与推送连接
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	logger.Log.Info("Server exiting")
}

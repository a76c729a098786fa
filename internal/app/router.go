package app

import (
	"assessment_engine_backend/internal/config"
	"assessment_engine_backend/internal/middleware"
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

// 三种模式共用同一组作答接口，路径前缀决定模式
var modeRoutes = map[string]model.ActivityMode{
	"exams":     model.ModeExam,
	"cases":     model.ModeCase,
	"inquiries": model.ModeInquiry,
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerAttemptRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerAttemptRoutes(r *gin.RouterGroup, c *controllers) {
	for prefix, mode := range modeRoutes {
		g := r.Group("/" + prefix)
		{
			g.POST("/:id/attempts", c.attempt.Start(mode))
			g.GET("/:id/status", c.attempt.Status(mode))
			g.GET("/:id/leaderboard", c.leaderboard.Leaderboard(mode))
		}
	}

	attempts := r.Group("/attempts")
	{
		attempts.GET("/:id", c.attempt.GetAttempt)
		attempts.PUT("/:id/responses/:questionId", c.attempt.SaveResponse)
		attempts.POST("/:id/submit", c.attempt.Submit)
		attempts.POST("/:id/cheating-stats", c.attempt.UpdateCheatingStats)
		attempts.POST("/:id/scenario/advance", c.attempt.AdvanceScenario)
	}

	r.GET("/ws", c.hub.Connect)
}

func (a *App) registerTeacherRoutes(r *gin.RouterGroup, c *controllers) {
	teacher := r.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/activities", c.activity.CreateActivity)
		teacher.POST("/groups/:id/members", c.activity.AddMember)
		teacher.GET("/attempts/:id/cheating-events", c.attempt.ListCheatingEvents)
	}
}

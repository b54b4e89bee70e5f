package app

import (
	"classroom_backend/docs"
	"classroom_backend/internal/config"
	"classroom_backend/internal/middleware"

	"classroom_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		// 班级维度
		authGroup.GET("/classes/:classId/quizzes", c.quiz.ListQuizzes)
		authGroup.POST("/classes/:classId/quizzes", c.quiz.CreateQuiz)

		// 测验维度
		authGroup.GET("/quizzes/:id", c.quiz.GetQuiz)
		authGroup.DELETE("/quizzes/:id", c.quiz.DeleteQuiz)
		authGroup.POST("/quizzes/:id/submissions", c.quiz.SubmitQuiz)
		authGroup.GET("/quizzes/:id/submissions", c.quiz.ListSubmissions)
		authGroup.GET("/quizzes/:id/my-submission", c.quiz.GetMySubmission)
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/scoring-service/internal/middleware"
	"github.com/prepstack/scoring-service/internal/services"
	"github.com/prepstack/scoring-service/internal/utils"
)

type HandlerManager struct {
	testHandler     *TestHandler
	questionHandler *QuestionHandler
	attemptHandler  *AttemptHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		testHandler:     NewTestHandler(serviceManager.Test(), serviceManager.Export(), validator, logger),
		questionHandler: NewQuestionHandler(serviceManager.Question(), validator, logger),
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), serviceManager.Leaderboard(), validator, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, auth *middleware.AuthMiddleware) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(auth.Authenticate())
	{
		// Test routes
		tests := v1.Group("/tests")
		{
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.GET("/:id/details", hm.testHandler.GetTestWithQuestions)
			tests.GET("/:id/questions", hm.questionHandler.GetQuestionsByTest)

			// Attempt flow
			tests.POST("/:id/attempts", hm.attemptHandler.StartAttempt)
			tests.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)

			// Leaderboard
			tests.GET("/:id/leaderboard", hm.attemptHandler.GetLeaderboard)
			tests.GET("/:id/leaderboard/me", hm.attemptHandler.GetMyRank)

			// Admin-only content management
			admin := tests.Group("", auth.RequireAdmin())
			{
				admin.POST("", hm.testHandler.CreateTest)
				admin.PUT("/:id", hm.testHandler.UpdateTest)
				admin.DELETE("/:id", hm.testHandler.DeleteTest)
				admin.POST("/:id/questions", hm.questionHandler.CreateQuestion)
				admin.DELETE("/:id/questions/:question_id", hm.questionHandler.DeleteQuestion)
				admin.GET("/:id/attempts", hm.attemptHandler.ListTestAttempts)
				admin.GET("/:id/export", hm.testHandler.ExportTestAttempts)
			}
		}

		// Question routes
		questions := v1.Group("/questions")
		{
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", auth.RequireAdmin(), hm.questionHandler.UpdateQuestion)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.GET("/me", hm.attemptHandler.ListMyAttempts)
			attempts.GET("/:id/results", hm.attemptHandler.GetResult)
		}
	}
}

// HealthCheck reports service liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/services"
	"github.com/prepstack/scoring-service/internal/utils"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	validator       *utils.Validator
}

func NewQuestionHandler(
	questionService services.QuestionService,
	validator *utils.Validator,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		validator:       validator,
	}
}

// CreateQuestion appends a question to a test
// @Summary Create question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	testID := ParseUintParam(c, "id")
	if testID == 0 {
		return
	}

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating question", "test_id", testID)

	question, err := h.questionService.Create(c.Request.Context(), testID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// GetQuestionsByTest lists a test's questions in order
// @Summary List questions for a test
// @Tags questions
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {array} models.Question
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/questions [get]
func (h *QuestionHandler) GetQuestionsByTest(c *gin.Context) {
	testID := ParseUintParam(c, "id")
	if testID == 0 {
		return
	}

	questions, err := h.questionService.GetByTest(c.Request.Context(), testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	// Takers never see the answer key.
	if RoleFromContext(c) != models.RoleAdmin {
		for _, q := range questions {
			q.CorrectAnswers = nil
			q.Explanation = nil
		}
	}

	c.JSON(http.StatusOK, questions)
}

// GetQuestion retrieves a question by ID
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} models.Question
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := ParseUintParam(c, "id")
	if id == 0 {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if RoleFromContext(c) != models.RoleAdmin {
		question.CorrectAnswers = nil
		question.Explanation = nil
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestion updates a question
// @Summary Update question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Question ID"
// @Param question body services.UpdateQuestionRequest true "Fields to update"
// @Success 200 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := ParseUintParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating question", "question_id", id)

	question, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question and renumbers the rest
// @Summary Delete question
// @Tags questions
// @Produce json
// @Param id path uint true "Test ID"
// @Param question_id path uint true "Question ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/questions/{question_id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	testID := ParseUintParam(c, "id")
	if testID == 0 {
		return
	}
	questionID := ParseUintParam(c, "question_id")
	if questionID == 0 {
		return
	}

	h.LogRequest(c, "Deleting question", "test_id", testID, "question_id", questionID)

	if err := h.questionService.Delete(c.Request.Context(), testID, questionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/scoring-service/internal/repositories"
	"github.com/prepstack/scoring-service/internal/services"
	"github.com/prepstack/scoring-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService     services.AttemptService
	leaderboardService services.LeaderboardService
	validator          *utils.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	leaderboardService services.LeaderboardService,
	validator *utils.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:        NewBaseHandler(logger),
		attemptService:     attemptService,
		leaderboardService: leaderboardService,
		validator:          validator,
	}
}

type startAttemptBody struct {
	Reattempt bool `json:"reattempt"`
}

// StartAttempt opens a new attempt on a test
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Success 201 {object} services.StartAttemptResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/{id}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	testID := ParseUintParam(c, "id")
	if testID == 0 {
		return
	}

	// Body is optional; absence means a plain first attempt.
	var body startAttemptBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting attempt", "test_id", testID, "reattempt", body.Reattempt)

	resp, err := h.attemptService.Start(c.Request.Context(), &services.StartAttemptRequest{
		TestID:    testID,
		Reattempt: body.Reattempt,
	}, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

type submitAttemptBody struct {
	AttemptID    *uint                      `json:"attempt_id"`
	Answers      []services.SubmittedAnswer `json:"answers"`
	TotalTimeSec int                        `json:"total_time_sec"`
}

// SubmitAttempt finalizes an attempt with the full answer set
// @Summary Submit attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} services.AttemptResultResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	testID := ParseUintParam(c, "id")
	if testID == 0 {
		return
	}

	var body submitAttemptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt",
		"test_id", testID,
		"attempt_id", body.AttemptID,
		"answers", len(body.Answers))

	resp, err := h.attemptService.Submit(c.Request.Context(), &services.SubmitAttemptRequest{
		TestID:       testID,
		AttemptID:    body.AttemptID,
		Answers:      body.Answers,
		TotalTimeSec: body.TotalTimeSec,
	}, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetResult returns the scored breakdown of a completed attempt
// @Summary Get attempt result
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResultResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/results [get]
func (h *AttemptHandler) GetResult(c *gin.Context) {
	attemptID := ParseUintParam(c, "id")
	if attemptID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.GetResult(c.Request.Context(), attemptID, userID, RoleFromContext(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListMyAttempts lists the caller's attempts
// @Summary List own attempts
// @Tags attempts
// @Produce json
// @Success 200 {object} services.AttemptListResponse
// @Router /attempts/me [get]
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := repositories.AttemptFilters{
		Limit:     ParseIntQuery(c, "limit", 20),
		Offset:    ParseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	resp, err := h.attemptService.ListByUser(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListTestAttempts lists attempts on a test (admin only, enforced by route)
// @Summary List attempts for a test
// @Tags attempts
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} services.AttemptListResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/attempts [get]
func (h *AttemptHandler) ListTestAttempts(c *gin.Context) {
	testID := ParseUintParam(c, "id")
	if testID == 0 {
		return
	}

	filters := repositories.AttemptFilters{
		LatestOnly: c.Query("latest_only") == "true",
		Limit:      ParseIntQuery(c, "limit", 20),
		Offset:     ParseIntQuery(c, "offset", 0),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if completed := c.Query("completed"); completed != "" {
		v := completed == "true"
		filters.Completed = &v
	}
	if userID := c.Query("user_id"); userID != "" {
		filters.UserID = &userID
	}

	resp, err := h.attemptService.ListByTest(c.Request.Context(), testID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetLeaderboard returns the top scorers for a test
// @Summary Get leaderboard
// @Tags leaderboard
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} services.LeaderboardResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/leaderboard [get]
func (h *AttemptHandler) GetLeaderboard(c *gin.Context) {
	testID := ParseUintParam(c, "id")
	if testID == 0 {
		return
	}

	limit := int64(ParseIntQuery(c, "limit", 10))

	resp, err := h.leaderboardService.GetTop(c.Request.Context(), testID, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetMyRank returns the caller's position on a test leaderboard
// @Summary Get own leaderboard rank
// @Tags leaderboard
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} services.UserRankResponse
// @Router /tests/{id}/leaderboard/me [get]
func (h *AttemptHandler) GetMyRank(c *gin.Context) {
	testID := ParseUintParam(c, "id")
	if testID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	resp, err := h.leaderboardService.GetUserRank(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

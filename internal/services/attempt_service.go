package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prepstack/scoring-service/internal/cache"
	"github.com/prepstack/scoring-service/internal/events"
	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/repositories"
	"github.com/prepstack/scoring-service/internal/scoring"
	"github.com/prepstack/scoring-service/internal/utils"
)

// AttemptService owns the attempt lifecycle: start, submit, and result reads.
type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, userID string) (*StartAttemptResponse, error)
	Submit(ctx context.Context, req *SubmitAttemptRequest, userID string) (*AttemptResultResponse, error)
	GetResult(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResultResponse, error)
	ListByTest(ctx context.Context, testID uint, filters repositories.AttemptFilters) (*AttemptListResponse, error)
	ListByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) (*AttemptListResponse, error)
}

// ===== REQUEST / RESPONSE STRUCTS =====

type StartAttemptRequest struct {
	TestID    uint `json:"test_id" validate:"required,min=1"`
	Reattempt bool `json:"reattempt"`
}

type StartAttemptResponse struct {
	AttemptID     uint      `json:"attempt_id"`
	TestID        uint      `json:"test_id"`
	AttemptNumber int       `json:"attempt_number"`
	IsReattempt   bool      `json:"is_reattempt"`
	StartedAt     time.Time `json:"started_at"`
}

type SubmittedAnswer struct {
	QuestionID      uint     `json:"question_id" validate:"required,min=1"`
	SelectedOptions []string `json:"selected_options"`
	TimeTakenSec    int      `json:"time_taken_sec" validate:"min=0"`
}

type SubmitAttemptRequest struct {
	TestID       uint              `json:"test_id" validate:"required,min=1"`
	AttemptID    *uint             `json:"attempt_id"` // Set when resuming an active attempt
	Answers      []SubmittedAnswer `json:"answers" validate:"dive"`
	TotalTimeSec int               `json:"total_time_sec" validate:"min=0"`
}

type AnswerResult struct {
	QuestionID      uint     `json:"question_id"`
	QuestionNumber  int      `json:"question_number"`
	QuestionText    string   `json:"question_text"`
	SelectedOptions []string `json:"selected_options"`
	CorrectAnswers  []string `json:"correct_answers"`
	IsCorrect       *bool    `json:"is_correct"` // nil for unattempted
	MarksObtained   float64  `json:"marks_obtained"`
	TimeTakenSec    int      `json:"time_taken_sec"`
	Explanation     *string  `json:"explanation,omitempty"`
}

type AttemptResultResponse struct {
	AttemptID         uint           `json:"attempt_id"`
	TestID            uint           `json:"test_id"`
	TestTitle         string         `json:"test_title"`
	UserID            string         `json:"user_id"`
	AttemptNumber     int            `json:"attempt_number"`
	IsLatest          bool           `json:"is_latest"`
	Score             float64        `json:"score"`
	Percentage        float64        `json:"percentage"` // Rounded to 2 decimals
	CorrectAnswers    int            `json:"correct_answers"`
	WrongAnswers      int            `json:"wrong_answers"`
	Unattempted       int            `json:"unattempted"`
	TotalQuestions    int            `json:"total_questions"`
	TotalTimeSec      int            `json:"total_time_sec"`
	PreviousAttemptID *uint          `json:"previous_attempt_id,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at"`
	Answers           []AnswerResult `json:"answers,omitempty"`
}

type AttemptSummary struct {
	AttemptID     uint       `json:"attempt_id"`
	TestID        uint       `json:"test_id"`
	UserID        string     `json:"user_id"`
	UserName      string     `json:"user_name,omitempty"`
	AttemptNumber int        `json:"attempt_number"`
	IsLatest      bool       `json:"is_latest"`
	Completed     bool       `json:"completed"`
	Score         float64    `json:"score"`
	Percentage    float64    `json:"percentage"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type AttemptListResponse struct {
	Attempts []AttemptSummary `json:"attempts"`
	Total    int64            `json:"total"`
}

// ===== SERVICE IMPLEMENTATION =====

type attemptService struct {
	repo        repositories.Repository
	logger      utils.Logger
	validator   *utils.Validator
	publisher   events.EventPublisher
	leaderboard *cache.LeaderboardStore
}

func NewAttemptService(
	repo repositories.Repository,
	logger utils.Logger,
	validator *utils.Validator,
	publisher events.EventPublisher,
	leaderboard *cache.LeaderboardStore,
) AttemptService {
	return &attemptService{
		repo:        repo,
		logger:      logger,
		validator:   validator,
		publisher:   publisher,
		leaderboard: leaderboard,
	}
}

// Start opens a new attempt. A first attempt needs no flag; once a completed
// attempt exists the caller must ask for a re-attempt explicitly.
func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, userID string) (*StartAttemptResponse, error) {
	s.logger.Info("Starting test attempt", "test_id", req.TestID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Test().ExistsByID(ctx, req.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return nil, ErrTestNotFound
	}

	var attempt *models.TestAttempt
	var isReattempt bool

	err = s.repo.WithTransaction(ctx, func(repo repositories.Repository) error {
		active, err := repo.Attempt().GetActiveAttempt(ctx, req.TestID, userID)
		if err != nil {
			return fmt.Errorf("failed to check active attempt: %w", err)
		}
		if active != nil {
			return ErrDuplicateActiveAttempt
		}

		completed, err := repo.Attempt().HasCompletedAttempt(ctx, req.TestID, userID)
		if err != nil {
			return fmt.Errorf("failed to check completed attempts: %w", err)
		}
		if completed && !req.Reattempt {
			return ErrTestAlreadyCompleted
		}
		isReattempt = completed

		attempt, err = s.createAttempt(ctx, repo, req.TestID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Test attempt started",
		"attempt_id", attempt.ID,
		"test_id", req.TestID,
		"user_id", userID,
		"attempt_number", attempt.AttemptNumber)

	s.publishAttemptStarted(ctx, attempt)

	return &StartAttemptResponse{
		AttemptID:     attempt.ID,
		TestID:        attempt.TestID,
		AttemptNumber: attempt.AttemptNumber,
		IsReattempt:   isReattempt,
		StartedAt:     attempt.StartedAt,
	}, nil
}

// Submit finalizes an attempt. Every question in the test gets exactly one
// answer row, attempted or not; the attempt row and all answer rows commit
// together or not at all.
func (s *attemptService) Submit(ctx context.Context, req *SubmitAttemptRequest, userID string) (*AttemptResultResponse, error) {
	s.logger.Info("Submitting test attempt",
		"test_id", req.TestID,
		"user_id", userID,
		"answer_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByIDWithQuestions(ctx, req.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if len(test.Questions) == 0 {
		return nil, ErrTestHasNoQuestions
	}

	var attempt *models.TestAttempt

	err = s.repo.WithTransaction(ctx, func(repo repositories.Repository) error {
		attempt, err = s.resolveSubmitTarget(ctx, repo, req, userID)
		if err != nil {
			return err
		}

		// Replace any answers from a previous partial submit of this attempt.
		if err := repo.Answer().DeleteByAttempt(ctx, attempt.ID); err != nil {
			return fmt.Errorf("failed to clear previous answers: %w", err)
		}

		answers, summary := s.gradeSubmission(test.Questions, req.Answers, attempt.ID)
		result := scoring.Calculate(summary)

		now := time.Now().UTC()
		attempt.Completed = true
		attempt.CompletedAt = &now
		attempt.Score = result.MarksObtained
		attempt.Percentage = result.Percentage
		attempt.CorrectAnswers = result.Correct
		attempt.WrongAnswers = result.Wrong
		attempt.Unattempted = result.Unattempted
		attempt.TotalQuestions = result.TotalQuestions
		attempt.TotalTimeSec = req.TotalTimeSec

		if err := repo.Attempt().Update(ctx, attempt); err != nil {
			return fmt.Errorf("failed to finalize attempt: %w", err)
		}
		if err := repo.Answer().CreateBatch(ctx, answers); err != nil {
			return fmt.Errorf("failed to store answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Test attempt submitted",
		"attempt_id", attempt.ID,
		"test_id", req.TestID,
		"user_id", userID,
		"score", attempt.Score,
		"percentage", attempt.Percentage)

	s.afterSubmit(ctx, test, attempt)

	return s.GetResult(ctx, attempt.ID, userID, models.RoleStudent)
}

// GetResult returns the scored breakdown of a completed attempt. The score
// is recomputed from the stored answer rows rather than read back from the
// attempt columns.
func (s *attemptService) GetResult(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResultResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID && role != models.RoleAdmin {
		return nil, NewPermissionError(userID, attemptID, "attempt", "view", "attempt belongs to another user")
	}
	if !attempt.Completed {
		return nil, ErrAttemptNotCompleted
	}

	return s.buildResultResponse(attempt), nil
}

func (s *attemptService) ListByTest(ctx context.Context, testID uint, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	exists, err := s.repo.Test().ExistsByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return nil, ErrTestNotFound
	}

	attempts, total, err := s.repo.Attempt().GetByTest(ctx, testID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return buildAttemptList(attempts, total), nil
}

func (s *attemptService) ListByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	attempts, total, err := s.repo.Attempt().GetByUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return buildAttemptList(attempts, total), nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prepstack/scoring-service/internal/cache"
	"github.com/prepstack/scoring-service/internal/events"
	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/repositories"
	"github.com/prepstack/scoring-service/internal/utils"
)

// TestService manages the test catalog.
type TestService interface {
	Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error)
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetWithQuestions(ctx context.Context, id uint, includeAnswers bool) (*TestDetailResponse, error)
	List(ctx context.Context, filters repositories.TestFilters) (*TestListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateTestRequest, userID string) (*models.Test, error)
	Delete(ctx context.Context, id uint, userID string) error
}

// ===== REQUEST / RESPONSE STRUCTS =====

type CreateTestRequest struct {
	Title             string          `json:"title" validate:"required,min=1,max=200"`
	Description       *string         `json:"description" validate:"omitempty,max=1000"`
	Type              models.TestType `json:"type" validate:"omitempty,test_type"`
	KeyTopic          *string         `json:"key_topic" validate:"omitempty,max=200"`
	DurationInMinutes int             `json:"duration_in_minutes" validate:"required,min=1,max=300"`
	IsPremium         bool            `json:"is_premium"`
}

type UpdateTestRequest struct {
	Title             *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description" validate:"omitempty,max=1000"`
	Type              *models.TestType `json:"type" validate:"omitempty,test_type"`
	KeyTopic          *string          `json:"key_topic" validate:"omitempty,max=200"`
	DurationInMinutes *int             `json:"duration_in_minutes" validate:"omitempty,min=1,max=300"`
	IsPremium         *bool            `json:"is_premium"`
}

type QuestionView struct {
	ID             uint                `json:"id"`
	QuestionNumber int                 `json:"question_number"`
	QuestionText   string              `json:"question_text"`
	QuestionType   models.QuestionType `json:"question_type"`
	OptionType     models.OptionType   `json:"option_type,omitempty"`
	Options        []string            `json:"options,omitempty"`
	CorrectAnswers []string            `json:"correct_answers,omitempty"` // Omitted for takers
	PositiveMarks  float64             `json:"positive_marks"`
	NegativeMarks  float64             `json:"negative_marks"`
	Section        *string             `json:"section,omitempty"`
	Explanation    *string             `json:"explanation,omitempty"`
}

type TestDetailResponse struct {
	Test      *models.Test   `json:"test"`
	Questions []QuestionView `json:"questions"`
}

type TestListResponse struct {
	Tests []*models.Test `json:"tests"`
	Total int64          `json:"total"`
}

// ===== SERVICE IMPLEMENTATION =====

type testService struct {
	repo        repositories.Repository
	logger      utils.Logger
	validator   *utils.Validator
	publisher   events.EventPublisher
	leaderboard *cache.LeaderboardStore
	cache       cache.CacheService
}

func NewTestService(
	repo repositories.Repository,
	logger utils.Logger,
	validator *utils.Validator,
	publisher events.EventPublisher,
	leaderboard *cache.LeaderboardStore,
	cacheService cache.CacheService,
) TestService {
	return &testService{
		repo:        repo,
		logger:      logger,
		validator:   validator,
		publisher:   publisher,
		leaderboard: leaderboard,
		cache:       cacheService,
	}
}

const testDetailTTL = 10 * time.Minute

func testDetailCacheKey(id uint, includeAnswers bool) string {
	return fmt.Sprintf("test:%d:detail:answers=%t", id, includeAnswers)
}

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*models.Test, error) {
	s.logger.Info("Creating test", "title", req.Title, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	testType := req.Type
	if testType == "" {
		testType = models.TestTypeMock
	}

	test := &models.Test{
		Title:             req.Title,
		Description:       req.Description,
		Type:              testType,
		KeyTopic:          req.KeyTopic,
		DurationInMinutes: req.DurationInMinutes,
		IsPremium:         req.IsPremium,
		CreatedBy:         creatorID,
	}
	if err := s.repo.Test().Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.logger.Info("Test created", "test_id", test.ID, "title", test.Title)
	return test, nil
}

func (s *testService) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	count, err := s.repo.Test().CountQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	test.QuestionCount = count

	return test, nil
}

// GetWithQuestions returns the test and its questions in order. Correct
// answers and explanations are stripped unless the caller may see them.
func (s *testService) GetWithQuestions(ctx context.Context, id uint, includeAnswers bool) (*TestDetailResponse, error) {
	key := testDetailCacheKey(id, includeAnswers)
	if s.cache != nil {
		var cached TestDetailResponse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Test detail cache read failed", "test_id", id, "error", err)
		}
	}

	test, err := s.repo.Test().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	views := make([]QuestionView, 0, len(test.Questions))
	for i := range test.Questions {
		views = append(views, buildQuestionView(&test.Questions[i], includeAnswers))
	}

	resp := &TestDetailResponse{Test: test, Questions: views}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, testDetailTTL); err != nil {
			s.logger.Warn("Test detail cache write failed", "test_id", id, "error", err)
		}
	}
	return resp, nil
}

func (s *testService) invalidateDetail(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("test:%d:detail:*", id)); err != nil {
		s.logger.Warn("Test detail cache invalidation failed", "test_id", id, "error", err)
	}
}

func (s *testService) List(ctx context.Context, filters repositories.TestFilters) (*TestListResponse, error) {
	tests, total, err := s.repo.Test().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	return &TestListResponse{Tests: tests, Total: total}, nil
}

func (s *testService) Update(ctx context.Context, id uint, req *UpdateTestRequest, userID string) (*models.Test, error) {
	s.logger.Info("Updating test", "test_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = req.Description
	}
	if req.Type != nil {
		test.Type = *req.Type
	}
	if req.KeyTopic != nil {
		test.KeyTopic = req.KeyTopic
	}
	if req.DurationInMinutes != nil {
		test.DurationInMinutes = *req.DurationInMinutes
	}
	if req.IsPremium != nil {
		test.IsPremium = *req.IsPremium
	}

	if err := s.repo.Test().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to update test: %w", err)
	}

	s.invalidateDetail(ctx, id)
	return test, nil
}

// Delete soft-deletes a test. Tests with recorded attempts are kept so
// existing results stay resolvable.
func (s *testService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting test", "test_id", id, "user_id", userID)

	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to get test: %w", err)
	}

	hasAttempts, err := s.repo.Test().HasAttempts(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check attempts: %w", err)
	}
	if hasAttempts {
		return ErrTestNotDeletable
	}

	if err := s.repo.Test().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	s.invalidateDetail(ctx, id)
	if s.leaderboard != nil {
		if err := s.leaderboard.Clear(ctx, id); err != nil {
			s.logger.Warn("Failed to clear leaderboard", "test_id", id, "error", err)
		}
	}

	if s.publisher != nil {
		event := events.NewEvent(events.EventTestDeleted, events.TestDeletedEvent{
			TestID:    id,
			Title:     test.Title,
			DeletedBy: userID,
		})
		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			s.logger.Warn("Failed to publish test deleted event", "test_id", id, "error", err)
		}
	}

	return nil
}

func buildQuestionView(q *models.Question, includeAnswers bool) QuestionView {
	view := QuestionView{
		ID:             q.ID,
		QuestionNumber: q.QuestionNumber,
		QuestionText:   q.QuestionText,
		QuestionType:   q.QuestionType,
		OptionType:     q.OptionType,
		Options:        q.Options,
		PositiveMarks:  q.PositiveMarks,
		NegativeMarks:  q.NegativeMarks,
		Section:        q.Section,
	}
	if includeAnswers {
		view.CorrectAnswers = q.CorrectAnswers
		view.Explanation = q.Explanation
	}
	return view
}

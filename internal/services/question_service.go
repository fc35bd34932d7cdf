package services

import (
	"context"
	"fmt"

	"github.com/prepstack/scoring-service/internal/cache"
	"github.com/prepstack/scoring-service/internal/events"
	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/repositories"
	"github.com/prepstack/scoring-service/internal/utils"
)

// QuestionService manages questions within a test, including the dense
// numbering that survives deletions.
type QuestionService interface {
	Create(ctx context.Context, testID uint, req *CreateQuestionRequest) (*models.Question, error)
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByTest(ctx context.Context, testID uint) ([]*models.Question, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, testID, questionID uint) error
}

// ===== REQUEST STRUCTS =====

type CreateQuestionRequest struct {
	QuestionText   string              `json:"question_text" validate:"required"`
	QuestionType   models.QuestionType `json:"question_type" validate:"required,question_type"`
	OptionType     models.OptionType   `json:"option_type" validate:"omitempty,option_type"`
	Options        []string            `json:"options"`
	CorrectAnswers []string            `json:"correct_answers" validate:"required,min=1"`
	PositiveMarks  *float64            `json:"positive_marks"`
	NegativeMarks  *float64            `json:"negative_marks"`
	Section        *string             `json:"section" validate:"omitempty,max=100"`
	Explanation    *string             `json:"explanation"`
}

type UpdateQuestionRequest struct {
	QuestionText   *string              `json:"question_text"`
	QuestionType   *models.QuestionType `json:"question_type" validate:"omitempty,question_type"`
	OptionType     *models.OptionType   `json:"option_type" validate:"omitempty,option_type"`
	Options        []string             `json:"options"`
	CorrectAnswers []string             `json:"correct_answers"`
	PositiveMarks  *float64             `json:"positive_marks"`
	NegativeMarks  *float64             `json:"negative_marks"`
	Section        *string              `json:"section" validate:"omitempty,max=100"`
	Explanation    *string              `json:"explanation"`
}

// ===== SERVICE IMPLEMENTATION =====

type questionService struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *utils.Validator
	publisher events.EventPublisher
	cache     cache.CacheService
}

func NewQuestionService(
	repo repositories.Repository,
	logger utils.Logger,
	validator *utils.Validator,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		cache:     cacheService,
	}
}

// invalidateTestDetail drops cached test views after a question changes.
func (s *questionService) invalidateTestDetail(ctx context.Context, testID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("test:%d:detail:*", testID)); err != nil {
		s.logger.Warn("Test detail cache invalidation failed", "test_id", testID, "error", err)
	}
}

// Create appends a question at the end of the test's sequence.
func (s *questionService) Create(ctx context.Context, testID uint, req *CreateQuestionRequest) (*models.Question, error) {
	s.logger.Info("Creating question", "test_id", testID, "question_type", req.QuestionType)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Test().ExistsByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return nil, ErrTestNotFound
	}

	question := &models.Question{
		TestID:         testID,
		QuestionText:   req.QuestionText,
		QuestionType:   req.QuestionType,
		OptionType:     req.OptionType,
		Options:        req.Options,
		CorrectAnswers: req.CorrectAnswers,
		PositiveMarks:  models.DefaultPositiveMarks,
		NegativeMarks:  models.DefaultNegativeMarks,
		Section:        req.Section,
		Explanation:    req.Explanation,
	}
	if req.QuestionType == models.QuestionOptions && question.OptionType == "" {
		question.OptionType = models.OptionSingle
	}
	if req.PositiveMarks != nil {
		question.PositiveMarks = *req.PositiveMarks
	}
	if req.NegativeMarks != nil {
		question.NegativeMarks = *req.NegativeMarks
	}

	if err := s.validator.ValidateQuestionContent(question); err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(repo repositories.Repository) error {
		maxNumber, err := repo.Question().GetMaxQuestionNumber(ctx, testID)
		if err != nil {
			return fmt.Errorf("failed to get question number: %w", err)
		}
		question.QuestionNumber = maxNumber + 1

		return repo.Question().Create(ctx, question)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.invalidateTestDetail(ctx, testID)

	s.logger.Info("Question created",
		"question_id", question.ID,
		"test_id", testID,
		"question_number", question.QuestionNumber)
	return question, nil
}

func (s *questionService) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return question, nil
}

func (s *questionService) GetByTest(ctx context.Context, testID uint) ([]*models.Question, error) {
	exists, err := s.repo.Test().ExistsByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return nil, ErrTestNotFound
	}

	questions, err := s.repo.Question().GetByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	return questions, nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest) (*models.Question, error) {
	s.logger.Info("Updating question", "question_id", id)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	if req.QuestionText != nil {
		question.QuestionText = *req.QuestionText
	}
	if req.QuestionType != nil {
		question.QuestionType = *req.QuestionType
	}
	if req.OptionType != nil {
		question.OptionType = *req.OptionType
	}
	if req.Options != nil {
		question.Options = req.Options
	}
	if req.CorrectAnswers != nil {
		question.CorrectAnswers = req.CorrectAnswers
	}
	if req.PositiveMarks != nil {
		question.PositiveMarks = *req.PositiveMarks
	}
	if req.NegativeMarks != nil {
		question.NegativeMarks = *req.NegativeMarks
	}
	if req.Section != nil {
		question.Section = req.Section
	}
	if req.Explanation != nil {
		question.Explanation = req.Explanation
	}

	if err := s.validator.ValidateQuestionContent(question); err != nil {
		return nil, err
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.invalidateTestDetail(ctx, question.TestID)
	return question, nil
}

// Delete removes a question and renumbers the rest of the test in the same
// transaction, so the 1..N sequence never shows a gap.
func (s *questionService) Delete(ctx context.Context, testID, questionID uint) error {
	s.logger.Info("Deleting question", "test_id", testID, "question_id", questionID)

	question, err := s.repo.Question().GetByID(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question.TestID != testID {
		return ErrQuestionTestMismatch
	}

	err = s.repo.WithTransaction(ctx, func(repo repositories.Repository) error {
		if err := repo.Question().Delete(ctx, questionID); err != nil {
			return fmt.Errorf("failed to delete question: %w", err)
		}
		if err := repo.Question().ShiftNumbersAfter(ctx, testID, question.QuestionNumber); err != nil {
			return fmt.Errorf("failed to renumber questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateTestDetail(ctx, testID)

	remaining, err := s.repo.Question().CountByTest(ctx, testID)
	if err != nil {
		s.logger.Warn("Failed to count remaining questions", "test_id", testID, "error", err)
		remaining = 0
	}

	s.logger.Info("Question deleted",
		"question_id", questionID,
		"test_id", testID,
		"remaining", remaining)

	if s.publisher != nil {
		event := events.NewEvent(events.EventQuestionDeleted, events.QuestionDeletedEvent{
			QuestionID:     questionID,
			TestID:         testID,
			QuestionNumber: question.QuestionNumber,
			RemainingCount: remaining,
		})
		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			s.logger.Warn("Failed to publish question deleted event",
				"question_id", questionID,
				"error", err)
		}
	}

	return nil
}

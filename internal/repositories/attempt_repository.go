package repositories

import (
	"context"

	"github.com/prepstack/scoring-service/internal/models"
)

// AttemptRepository interface for test attempt operations
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, attempt *models.TestAttempt) error
	GetByID(ctx context.Context, id uint) (*models.TestAttempt, error)
	GetByIDWithAnswers(ctx context.Context, id uint) (*models.TestAttempt, error) // Include answers and their questions
	Update(ctx context.Context, attempt *models.TestAttempt) error

	// Query operations
	GetByTest(ctx context.Context, testID uint, filters AttemptFilters) ([]*models.TestAttempt, int64, error)
	GetByUser(ctx context.Context, userID string, filters AttemptFilters) ([]*models.TestAttempt, int64, error)
	GetLatestCompletedByTest(ctx context.Context, testID uint) ([]*models.TestAttempt, error)

	// Lifecycle management
	GetActiveAttempt(ctx context.Context, testID uint, userID string) (*models.TestAttempt, error) // nil when none
	HasCompletedAttempt(ctx context.Context, testID uint, userID string) (bool, error)
	GetMaxAttemptNumber(ctx context.Context, testID uint, userID string) (int, error)
	GetLatestAttempt(ctx context.Context, testID uint, userID string) (*models.TestAttempt, error) // nil when none
	ClearLatestFlag(ctx context.Context, testID uint, userID string) error
}

// AnswerRepository interface for per-question response operations
type AnswerRepository interface {
	CreateBatch(ctx context.Context, answers []*models.Answer) error
	DeleteByAttempt(ctx context.Context, attemptID uint) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error) // Ordered by question_number
}

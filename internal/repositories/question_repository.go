package repositories

import (
	"context"

	"github.com/prepstack/scoring-service/internal/models"
)

// QuestionRepository interface for question operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error

	// Query operations
	GetByTest(ctx context.Context, testID uint) ([]*models.Question, error) // Ordered by question_number
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
	CountByTest(ctx context.Context, testID uint) (int, error)

	// Numbering management
	GetMaxQuestionNumber(ctx context.Context, testID uint) (int, error)
	ShiftNumbersAfter(ctx context.Context, testID uint, deletedNumber int) error // Decrement every later number by one
}

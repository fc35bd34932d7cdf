package repositories

import (
	"context"

	"github.com/prepstack/scoring-service/internal/models"
)

// TestRepository interface for test catalog operations
type TestRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Test, error) // Questions ordered by number
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id uint) error // Soft delete

	// Query operations
	List(ctx context.Context, filters TestFilters) ([]*models.Test, int64, error)

	// Validation helpers
	ExistsByID(ctx context.Context, id uint) (bool, error)
	HasAttempts(ctx context.Context, id uint) (bool, error)
	CountQuestions(ctx context.Context, id uint) (int, error)
}

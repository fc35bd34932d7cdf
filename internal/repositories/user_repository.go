package repositories

import (
	"context"

	"github.com/prepstack/scoring-service/internal/models"
)

// UserRepository interface for user operations (this service mirrors the
// identity provider's records, it does not own them)
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
	ExistsByID(ctx context.Context, id string) (bool, error)
}

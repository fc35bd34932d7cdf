package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/prepstack/scoring-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TestFilters struct {
	Type      *models.TestType `json:"type"`
	IsPremium *bool            `json:"is_premium"`
	CreatedBy *string          `json:"created_by"`
	KeyTopic  *string          `json:"key_topic"`
	Search    string           `json:"search"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	SortBy    string           `json:"sort_by"`    // "created_at", "title"
	SortOrder string           `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Completed  *bool   `json:"completed"`
	UserID     *string `json:"user_id"`
	LatestOnly bool    `json:"latest_only"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	SortBy     string  `json:"sort_by"`    // "completed_at", "percentage", "started_at"
	SortOrder  string  `json:"sort_order"` // "asc", "desc"
}

// ===== AGGREGATE =====

// Repository bundles the per-entity repositories behind one handle so
// services depend on a single interface. WithTransaction yields a
// Repository bound to one database transaction; the callback either
// commits as a whole or rolls back as a whole.
type Repository interface {
	Test() TestRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	User() UserRepository

	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
}

// ===== ERROR HELPERS =====

// IsNotFoundError reports whether err is the driver-level missing-row error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyError reports whether err is a unique constraint violation.
// The postgres driver translates these into gorm.ErrDuplicatedKey.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

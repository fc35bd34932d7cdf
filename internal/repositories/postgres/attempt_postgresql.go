package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) Create(ctx context.Context, attempt *models.TestAttempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (a AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, id uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).
		Preload("Test").
		Preload("Answers.Question").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (a AttemptPostgreSQL) Update(ctx context.Context, attempt *models.TestAttempt) error {
	return a.db.WithContext(ctx).Save(attempt).Error
}

func (a AttemptPostgreSQL) GetByTest(ctx context.Context, testID uint, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	query := a.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("test_id = ?", testID)

	return a.listWithFilters(query, filters)
}

func (a AttemptPostgreSQL) GetByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	query := a.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("user_id = ?", userID)

	return a.listWithFilters(query, filters)
}

// GetLatestCompletedByTest returns each user's latest completed attempt,
// best score first. Ties break on earlier completion.
func (a AttemptPostgreSQL) GetLatestCompletedByTest(ctx context.Context, testID uint) ([]*models.TestAttempt, error) {
	var attempts []*models.TestAttempt
	if err := a.db.WithContext(ctx).
		Where("test_id = ? AND completed = ? AND is_latest = ?", testID, true, true).
		Preload("User").
		Order("percentage DESC, completed_at ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	return attempts, nil
}

func (a AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, testID uint, userID string) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).
		Where("test_id = ? AND user_id = ? AND completed = ?", testID, userID, false).
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &attempt, nil
}

func (a AttemptPostgreSQL) HasCompletedAttempt(ctx context.Context, testID uint, userID string) (bool, error) {
	var count int64
	if err := a.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("test_id = ? AND user_id = ? AND completed = ?", testID, userID, true).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (a AttemptPostgreSQL) GetMaxAttemptNumber(ctx context.Context, testID uint, userID string) (int, error) {
	var max int
	if err := a.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("test_id = ? AND user_id = ?", testID, userID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}

	return max, nil
}

func (a AttemptPostgreSQL) GetLatestAttempt(ctx context.Context, testID uint, userID string) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).
		Where("test_id = ? AND user_id = ? AND is_latest = ?", testID, userID, true).
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &attempt, nil
}

func (a AttemptPostgreSQL) ClearLatestFlag(ctx context.Context, testID uint, userID string) error {
	return a.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("test_id = ? AND user_id = ? AND is_latest = ?", testID, userID, true).
		UpdateColumn("is_latest", false).Error
}

func (a AttemptPostgreSQL) listWithFilters(query *gorm.DB, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	var attempts []*models.TestAttempt
	var total int64

	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.applyPaginationAndSort(query, filters)

	if err := query.Preload("User").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Completed != nil {
		query = query.Where("completed = ?", *filters.Completed)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.LatestOnly {
		query = query.Where("is_latest = ?", true)
	}
	return query
}

func (a AttemptPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "percentage", "completed_at", "started_at":
	default:
		sortBy = "started_at"
	}

	order := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		order = "ASC"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}

package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	return q.db.WithContext(ctx).Create(question).Error
}

func (q QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}

	return &question, nil
}

func (q QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	return q.db.WithContext(ctx).Save(question).Error
}

func (q QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	return q.db.WithContext(ctx).Delete(&models.Question{}, id).Error
}

func (q QuestionPostgreSQL) GetByTest(ctx context.Context, testID uint) ([]*models.Question, error) {
	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("question_number ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (q QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	var questions []*models.Question
	if len(ids) == 0 {
		return questions, nil
	}
	if err := q.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (q QuestionPostgreSQL) CountByTest(ctx context.Context, testID uint) (int, error) {
	var count int64
	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("test_id = ?", testID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return int(count), nil
}

func (q QuestionPostgreSQL) GetMaxQuestionNumber(ctx context.Context, testID uint) (int, error) {
	var max int
	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("test_id = ?", testID).
		Select("COALESCE(MAX(question_number), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}

	return max, nil
}

// ShiftNumbersAfter closes the gap left by a deleted question: every
// question numbered above deletedNumber moves down by one. Runs as a single
// UPDATE so the caller's transaction sees no intermediate state.
func (q QuestionPostgreSQL) ShiftNumbersAfter(ctx context.Context, testID uint, deletedNumber int) error {
	return q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("test_id = ? AND question_number > ?", testID, deletedNumber).
		UpdateColumn("question_number", gorm.Expr("question_number - 1")).Error
}

package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/repositories"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a AnswerPostgreSQL) CreateBatch(ctx context.Context, answers []*models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	return a.db.WithContext(ctx).Create(&answers).Error
}

func (a AnswerPostgreSQL) DeleteByAttempt(ctx context.Context, attemptID uint) error {
	return a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Delete(&models.Answer{}).Error
}

func (a AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error) {
	var answers []*models.Answer
	if err := a.db.WithContext(ctx).
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.attempt_id = ?", attemptID).
		Order("questions.question_number ASC").
		Preload("Question").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

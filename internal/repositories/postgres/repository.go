// Package postgres implements the repository interfaces on top of GORM's
// postgres driver.
package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepstack/scoring-service/internal/repositories"
)

type Repository struct {
	db *gorm.DB

	test     repositories.TestRepository
	question repositories.QuestionRepository
	attempt  repositories.AttemptRepository
	answer   repositories.AnswerRepository
	user     repositories.UserRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:       db,
		test:     NewTestPostgreSQL(db),
		question: NewQuestionPostgreSQL(db),
		attempt:  NewAttemptPostgreSQL(db),
		answer:   NewAnswerPostgreSQL(db),
		user:     NewUserPostgreSQL(db),
	}
}

func (r *Repository) Test() repositories.TestRepository         { return r.test }
func (r *Repository) Question() repositories.QuestionRepository { return r.question }
func (r *Repository) Attempt() repositories.AttemptRepository   { return r.attempt }
func (r *Repository) Answer() repositories.AnswerRepository     { return r.answer }
func (r *Repository) User() repositories.UserRepository         { return r.user }

// WithTransaction runs fn against a Repository bound to a single database
// transaction. Returning an error from fn rolls everything back.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repo repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"github.com/prepstack/scoring-service/internal/events"
	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/utils"
)

func newTestQuestionService(repo *MockRepository, publisher events.EventPublisher) QuestionService {
	return NewQuestionService(repo, utils.NewDefaultLogger(), utils.NewValidator(), publisher, nil)
}

func TestCreateQuestion_AppendsAtEndOfSequence(t *testing.T) {
	repo := NewMockRepository()
	service := newTestQuestionService(repo, newTestPublisher())
	ctx := context.Background()

	repo.test.On("ExistsByID", ctx, uint(1)).Return(true, nil)
	repo.question.On("GetMaxQuestionNumber", ctx, uint(1)).Return(7, nil)
	repo.question.On("Create", ctx, mock.AnythingOfType("*models.Question")).Return(nil)

	question, err := service.Create(ctx, 1, &CreateQuestionRequest{
		QuestionText:   "What is 2 + 2?",
		QuestionType:   models.QuestionOptions,
		Options:        []string{"3", "4", "5"},
		CorrectAnswers: []string{"4"},
	})

	assert.NoError(t, err)
	assert.Equal(t, 8, question.QuestionNumber)
	assert.Equal(t, models.OptionSingle, question.OptionType)
	assert.Equal(t, models.DefaultPositiveMarks, question.PositiveMarks)
	assert.Equal(t, models.DefaultNegativeMarks, question.NegativeMarks)
	repo.AssertExpectations(t)
}

func TestCreateQuestion_RejectsInvalidContent(t *testing.T) {
	repo := NewMockRepository()
	service := newTestQuestionService(repo, newTestPublisher())
	ctx := context.Background()

	repo.test.On("ExistsByID", ctx, uint(1)).Return(true, nil)

	cases := []struct {
		name string
		req  *CreateQuestionRequest
	}{
		{
			name: "single choice with two correct answers",
			req: &CreateQuestionRequest{
				QuestionText:   "Pick one",
				QuestionType:   models.QuestionOptions,
				OptionType:     models.OptionSingle,
				Options:        []string{"A", "B", "C"},
				CorrectAnswers: []string{"A", "B"},
			},
		},
		{
			name: "correct answer not among options",
			req: &CreateQuestionRequest{
				QuestionText:   "Pick one",
				QuestionType:   models.QuestionOptions,
				Options:        []string{"A", "B"},
				CorrectAnswers: []string{"Z"},
			},
		},
		{
			name: "options question with a single option",
			req: &CreateQuestionRequest{
				QuestionText:   "Pick one",
				QuestionType:   models.QuestionOptions,
				Options:        []string{"A"},
				CorrectAnswers: []string{"A"},
			},
		},
		{
			name: "input question with blank accepted answer",
			req: &CreateQuestionRequest{
				QuestionText:   "Type the answer",
				QuestionType:   models.QuestionInput,
				CorrectAnswers: []string{"   "},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Create(ctx, 1, tc.req)
			assert.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestDeleteQuestion_RenumbersRemaining(t *testing.T) {
	repo := NewMockRepository()
	publisher := newTestPublisher()
	service := newTestQuestionService(repo, publisher)
	ctx := context.Background()

	question := &models.Question{
		ID:             102,
		TestID:         1,
		QuestionNumber: 2,
		QuestionText:   "to be removed",
		QuestionType:   models.QuestionOptions,
		CorrectAnswers: datatypes.JSONSlice[string]{"A"},
	}

	repo.question.On("GetByID", ctx, uint(102)).Return(question, nil)
	repo.question.On("Delete", ctx, uint(102)).Return(nil)
	repo.question.On("ShiftNumbersAfter", ctx, uint(1), 2).Return(nil)
	repo.question.On("CountByTest", ctx, uint(1)).Return(4, nil)

	err := service.Delete(ctx, 1, 102)

	assert.NoError(t, err)
	published := publisher.GetPublishedEvents()
	if assert.Len(t, published, 1) {
		assert.Equal(t, events.EventQuestionDeleted, published[0].Type)
		payload := published[0].Data.(events.QuestionDeletedEvent)
		assert.Equal(t, uint(102), payload.QuestionID)
		assert.Equal(t, 2, payload.QuestionNumber)
		assert.Equal(t, 4, payload.RemainingCount)
	}
	repo.AssertExpectations(t)
}

func TestDeleteQuestion_WrongTest(t *testing.T) {
	repo := NewMockRepository()
	service := newTestQuestionService(repo, newTestPublisher())
	ctx := context.Background()

	question := &models.Question{ID: 102, TestID: 2, QuestionNumber: 1}
	repo.question.On("GetByID", ctx, uint(102)).Return(question, nil)

	err := service.Delete(ctx, 1, 102)

	assert.ErrorIs(t, err, ErrQuestionTestMismatch)
	repo.AssertExpectations(t)
}

func TestUpdateQuestion_RevalidatesContent(t *testing.T) {
	repo := NewMockRepository()
	service := newTestQuestionService(repo, newTestPublisher())
	ctx := context.Background()

	existing := &models.Question{
		ID:             102,
		TestID:         1,
		QuestionNumber: 1,
		QuestionText:   "Pick one",
		QuestionType:   models.QuestionOptions,
		OptionType:     models.OptionSingle,
		Options:        datatypes.JSONSlice[string]{"A", "B"},
		CorrectAnswers: datatypes.JSONSlice[string]{"A"},
	}
	repo.question.On("GetByID", ctx, uint(102)).Return(existing, nil)

	// Swapping the correct answer to something outside the options must fail
	// before any write happens.
	_, err := service.Update(ctx, 102, &UpdateQuestionRequest{
		CorrectAnswers: []string{"Z"},
	})

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.AssertExpectations(t)
}

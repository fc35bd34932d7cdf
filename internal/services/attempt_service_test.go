package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"github.com/prepstack/scoring-service/internal/events"
	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/utils"
)

func newTestAttemptService(repo *MockRepository, publisher events.EventPublisher) AttemptService {
	return NewAttemptService(repo, utils.NewDefaultLogger(), utils.NewValidator(), publisher, nil)
}

func newTestPublisher() *events.MockEventPublisher {
	return events.NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func singleChoiceQuestion(id uint, number int, correct string) models.Question {
	return models.Question{
		ID:             id,
		TestID:         1,
		QuestionNumber: number,
		QuestionText:   "question",
		QuestionType:   models.QuestionOptions,
		OptionType:     models.OptionSingle,
		Options:        datatypes.JSONSlice[string]{"A", "B", "C", "D"},
		CorrectAnswers: datatypes.JSONSlice[string]{correct},
		PositiveMarks:  models.DefaultPositiveMarks,
		NegativeMarks:  models.DefaultNegativeMarks,
	}
}

func TestStartAttempt_FirstAttempt(t *testing.T) {
	repo := NewMockRepository()
	publisher := newTestPublisher()
	service := newTestAttemptService(repo, publisher)
	ctx := context.Background()

	repo.test.On("ExistsByID", ctx, uint(1)).Return(true, nil)
	repo.attempt.On("GetActiveAttempt", ctx, uint(1), "user-1").Return(nil, nil)
	repo.attempt.On("HasCompletedAttempt", ctx, uint(1), "user-1").Return(false, nil)
	repo.attempt.On("GetMaxAttemptNumber", ctx, uint(1), "user-1").Return(0, nil)
	repo.attempt.On("GetLatestAttempt", ctx, uint(1), "user-1").Return(nil, nil)
	repo.attempt.On("Create", ctx, mock.AnythingOfType("*models.TestAttempt")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.TestAttempt).ID = 10
		}).Return(nil)

	resp, err := service.Start(ctx, &StartAttemptRequest{TestID: 1}, "user-1")

	assert.NoError(t, err)
	assert.Equal(t, uint(10), resp.AttemptID)
	assert.Equal(t, 1, resp.AttemptNumber)
	assert.False(t, resp.IsReattempt)

	published := publisher.GetPublishedEvents()
	assert.Len(t, published, 1)
	assert.Equal(t, events.EventAttemptStarted, published[0].Type)
	repo.AssertExpectations(t)
}

func TestStartAttempt_ReattemptChainsFromPrevious(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	previous := &models.TestAttempt{ID: 7, TestID: 1, UserID: "user-1", AttemptNumber: 2, IsLatest: true, Completed: true}

	var created *models.TestAttempt
	repo.test.On("ExistsByID", ctx, uint(1)).Return(true, nil)
	repo.attempt.On("GetActiveAttempt", ctx, uint(1), "user-1").Return(nil, nil)
	repo.attempt.On("HasCompletedAttempt", ctx, uint(1), "user-1").Return(true, nil)
	repo.attempt.On("GetMaxAttemptNumber", ctx, uint(1), "user-1").Return(2, nil)
	repo.attempt.On("GetLatestAttempt", ctx, uint(1), "user-1").Return(previous, nil)
	repo.attempt.On("ClearLatestFlag", ctx, uint(1), "user-1").Return(nil)
	repo.attempt.On("Create", ctx, mock.AnythingOfType("*models.TestAttempt")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*models.TestAttempt)
			created.ID = 9
		}).Return(nil)

	resp, err := service.Start(ctx, &StartAttemptRequest{TestID: 1, Reattempt: true}, "user-1")

	assert.NoError(t, err)
	assert.Equal(t, 3, resp.AttemptNumber)
	assert.True(t, resp.IsReattempt)
	assert.True(t, created.IsLatest)
	assert.False(t, created.Completed)
	if assert.NotNil(t, created.PreviousAttemptID) {
		assert.Equal(t, uint(7), *created.PreviousAttemptID)
	}
	repo.AssertExpectations(t)
}

func TestStartAttempt_DuplicateActiveAttempt(t *testing.T) {
	repo := NewMockRepository()
	publisher := newTestPublisher()
	service := newTestAttemptService(repo, publisher)
	ctx := context.Background()

	active := &models.TestAttempt{ID: 4, TestID: 1, UserID: "user-1"}
	repo.test.On("ExistsByID", ctx, uint(1)).Return(true, nil)
	repo.attempt.On("GetActiveAttempt", ctx, uint(1), "user-1").Return(active, nil)

	resp, err := service.Start(ctx, &StartAttemptRequest{TestID: 1}, "user-1")

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrDuplicateActiveAttempt)
	assert.Empty(t, publisher.GetPublishedEvents())
	repo.AssertExpectations(t)
}

func TestStartAttempt_CompletedWithoutReattemptFlag(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	repo.test.On("ExistsByID", ctx, uint(1)).Return(true, nil)
	repo.attempt.On("GetActiveAttempt", ctx, uint(1), "user-1").Return(nil, nil)
	repo.attempt.On("HasCompletedAttempt", ctx, uint(1), "user-1").Return(true, nil)

	_, err := service.Start(ctx, &StartAttemptRequest{TestID: 1}, "user-1")

	assert.ErrorIs(t, err, ErrTestAlreadyCompleted)
	repo.AssertExpectations(t)
}

func TestStartAttempt_TestNotFound(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	repo.test.On("ExistsByID", ctx, uint(99)).Return(false, nil)

	_, err := service.Start(ctx, &StartAttemptRequest{TestID: 99}, "user-1")

	assert.ErrorIs(t, err, ErrTestNotFound)
	repo.AssertExpectations(t)
}

func TestSubmitAttempt_GradesAndFinalizes(t *testing.T) {
	repo := NewMockRepository()
	publisher := newTestPublisher()
	service := newTestAttemptService(repo, publisher)
	ctx := context.Background()

	test := &models.Test{
		ID:    1,
		Title: "Quant Mock 1",
		Questions: []models.Question{
			singleChoiceQuestion(101, 1, "A"),
			singleChoiceQuestion(102, 2, "B"),
			singleChoiceQuestion(103, 3, "C"),
			singleChoiceQuestion(104, 4, "D"),
		},
	}
	attemptID := uint(5)
	open := &models.TestAttempt{ID: attemptID, TestID: 1, UserID: "user-1", AttemptNumber: 1, IsLatest: true}

	var finalized *models.TestAttempt
	var storedAnswers []*models.Answer

	repo.test.On("GetByIDWithQuestions", ctx, uint(1)).Return(test, nil)
	repo.attempt.On("GetByID", ctx, attemptID).Return(open, nil)
	repo.answer.On("DeleteByAttempt", ctx, attemptID).Return(nil)
	repo.attempt.On("Update", ctx, mock.AnythingOfType("*models.TestAttempt")).
		Run(func(args mock.Arguments) {
			finalized = args.Get(1).(*models.TestAttempt)
		}).Return(nil)
	repo.answer.On("CreateBatch", ctx, mock.AnythingOfType("[]*models.Answer")).
		Run(func(args mock.Arguments) {
			storedAnswers = args.Get(1).([]*models.Answer)
		}).Return(nil)
	now := time.Now().UTC()
	stored := *open
	stored.Completed = true
	stored.CompletedAt = &now
	stored.TotalQuestions = 4
	stored.Test = *test
	stored.Answers = []models.Answer{
		{AttemptID: attemptID, QuestionID: 101, SelectedOptions: datatypes.JSONSlice[string]{"A"}, IsCorrect: boolPtr(true), MarksObtained: 1.0, TimeTakenSec: 30, Question: test.Questions[0]},
		{AttemptID: attemptID, QuestionID: 102, SelectedOptions: datatypes.JSONSlice[string]{"B"}, IsCorrect: boolPtr(true), MarksObtained: 1.0, TimeTakenSec: 45, Question: test.Questions[1]},
		{AttemptID: attemptID, QuestionID: 103, SelectedOptions: datatypes.JSONSlice[string]{"D"}, IsCorrect: boolPtr(false), MarksObtained: -0.25, TimeTakenSec: 20, Question: test.Questions[2]},
		{AttemptID: attemptID, QuestionID: 104, SelectedOptions: datatypes.JSONSlice[string]{}, Question: test.Questions[3]},
	}
	repo.attempt.On("GetByIDWithAnswers", ctx, attemptID).Return(&stored, nil)

	// Two correct, one wrong, question 104 left unanswered.
	req := &SubmitAttemptRequest{
		TestID: 1,
		AttemptID: &attemptID,
		Answers: []SubmittedAnswer{
			{QuestionID: 101, SelectedOptions: []string{"A"}, TimeTakenSec: 30},
			{QuestionID: 102, SelectedOptions: []string{"B"}, TimeTakenSec: 45},
			{QuestionID: 103, SelectedOptions: []string{"D"}, TimeTakenSec: 20},
		},
		TotalTimeSec: 95,
	}

	resp, err := service.Submit(ctx, req, "user-1")

	assert.NoError(t, err)
	assert.True(t, finalized.Completed)
	assert.NotNil(t, finalized.CompletedAt)
	assert.Equal(t, 1.75, finalized.Score)
	assert.Equal(t, 43.75, finalized.Percentage)
	assert.Equal(t, 2, finalized.CorrectAnswers)
	assert.Equal(t, 1, finalized.WrongAnswers)
	assert.Equal(t, 1, finalized.Unattempted)
	assert.Equal(t, 95, finalized.TotalTimeSec)

	// One row per question, including the unattempted one.
	assert.Len(t, storedAnswers, 4)
	var unattempted *models.Answer
	for _, a := range storedAnswers {
		if a.QuestionID == 104 {
			unattempted = a
		}
	}
	if assert.NotNil(t, unattempted) {
		assert.Nil(t, unattempted.IsCorrect)
		assert.Zero(t, unattempted.MarksObtained)
		assert.Empty(t, unattempted.SelectedOptions)
	}

	assert.Equal(t, 1.75, resp.Score)
	assert.Equal(t, 43.75, resp.Percentage)
	assert.Equal(t, 2, resp.CorrectAnswers)
	assert.Equal(t, 1, resp.WrongAnswers)
	assert.Equal(t, 1, resp.Unattempted)
	assert.Len(t, resp.Answers, 4)

	published := publisher.GetPublishedEvents()
	if assert.Len(t, published, 1) {
		assert.Equal(t, events.EventAttemptCompleted, published[0].Type)
	}
}

func TestSubmitAttempt_FinalizesActiveAttemptWithoutID(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	test := &models.Test{
		ID:        1,
		Title:     "Quant Mock 1",
		Questions: []models.Question{singleChoiceQuestion(101, 1, "A")},
	}
	active := &models.TestAttempt{ID: 3, TestID: 1, UserID: "user-1", AttemptNumber: 1, IsLatest: true}

	repo.test.On("GetByIDWithQuestions", ctx, uint(1)).Return(test, nil)
	repo.attempt.On("GetActiveAttempt", ctx, uint(1), "user-1").Return(active, nil)
	repo.answer.On("DeleteByAttempt", ctx, uint(3)).Return(nil)
	repo.attempt.On("Update", ctx, mock.AnythingOfType("*models.TestAttempt")).Return(nil)
	repo.answer.On("CreateBatch", ctx, mock.AnythingOfType("[]*models.Answer")).Return(nil)

	completed := *active
	now := time.Now().UTC()
	completed.Completed = true
	completed.CompletedAt = &now
	completed.TotalQuestions = 1
	completed.Test = *test
	completed.Answers = []models.Answer{{
		AttemptID:       3,
		QuestionID:      101,
		SelectedOptions: datatypes.JSONSlice[string]{"A"},
		IsCorrect:       boolPtr(true),
		MarksObtained:   1.0,
		Question:        test.Questions[0],
	}}
	repo.attempt.On("GetByIDWithAnswers", ctx, uint(3)).Return(&completed, nil)

	resp, err := service.Submit(ctx, &SubmitAttemptRequest{
		TestID:  1,
		Answers: []SubmittedAnswer{{QuestionID: 101, SelectedOptions: []string{"A"}}},
	}, "user-1")

	assert.NoError(t, err)
	assert.Equal(t, uint(3), resp.AttemptID)
	assert.Equal(t, 1.0, resp.Score)
	assert.Equal(t, 100.0, resp.Percentage)
	repo.AssertExpectations(t)
}

func TestSubmitAttempt_OwnershipMismatch(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	test := &models.Test{ID: 1, Questions: []models.Question{singleChoiceQuestion(101, 1, "A")}}
	attemptID := uint(5)
	other := &models.TestAttempt{ID: attemptID, TestID: 1, UserID: "someone-else"}

	repo.test.On("GetByIDWithQuestions", ctx, uint(1)).Return(test, nil)
	repo.attempt.On("GetByID", ctx, attemptID).Return(other, nil)

	_, err := service.Submit(ctx, &SubmitAttemptRequest{TestID: 1, AttemptID: &attemptID}, "user-1")

	assert.ErrorIs(t, err, ErrAttemptNotFound)
	repo.AssertExpectations(t)
}

func TestSubmitAttempt_WrongTestForAttempt(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	test := &models.Test{ID: 1, Questions: []models.Question{singleChoiceQuestion(101, 1, "A")}}
	attemptID := uint(5)
	otherTest := &models.TestAttempt{ID: attemptID, TestID: 2, UserID: "user-1"}

	repo.test.On("GetByIDWithQuestions", ctx, uint(1)).Return(test, nil)
	repo.attempt.On("GetByID", ctx, attemptID).Return(otherTest, nil)

	_, err := service.Submit(ctx, &SubmitAttemptRequest{TestID: 1, AttemptID: &attemptID}, "user-1")

	assert.ErrorIs(t, err, ErrAttemptNotFound)
	repo.AssertExpectations(t)
}

func TestSubmitAttempt_AlreadyCompleted(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	test := &models.Test{ID: 1, Questions: []models.Question{singleChoiceQuestion(101, 1, "A")}}
	attemptID := uint(5)
	done := &models.TestAttempt{ID: attemptID, TestID: 1, UserID: "user-1", Completed: true}

	repo.test.On("GetByIDWithQuestions", ctx, uint(1)).Return(test, nil)
	repo.attempt.On("GetByID", ctx, attemptID).Return(done, nil)

	_, err := service.Submit(ctx, &SubmitAttemptRequest{TestID: 1, AttemptID: &attemptID}, "user-1")

	assert.ErrorIs(t, err, ErrAttemptAlreadyCompleted)
	repo.AssertExpectations(t)
}

func TestSubmitAttempt_CompletedBlocksImplicitResubmit(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	test := &models.Test{ID: 1, Questions: []models.Question{singleChoiceQuestion(101, 1, "A")}}

	repo.test.On("GetByIDWithQuestions", ctx, uint(1)).Return(test, nil)
	repo.attempt.On("GetActiveAttempt", ctx, uint(1), "user-1").Return(nil, nil)
	repo.attempt.On("HasCompletedAttempt", ctx, uint(1), "user-1").Return(true, nil)

	_, err := service.Submit(ctx, &SubmitAttemptRequest{TestID: 1}, "user-1")

	assert.ErrorIs(t, err, ErrTestAlreadyCompleted)
	repo.AssertExpectations(t)
}

func TestSubmitAttempt_EmptyTest(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	repo.test.On("GetByIDWithQuestions", ctx, uint(1)).Return(&models.Test{ID: 1}, nil)

	_, err := service.Submit(ctx, &SubmitAttemptRequest{TestID: 1}, "user-1")

	assert.ErrorIs(t, err, ErrTestHasNoQuestions)
	repo.AssertExpectations(t)
}

func TestGetResult_RecomputesFromStoredAnswers(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	q1 := singleChoiceQuestion(101, 1, "A")
	q2 := singleChoiceQuestion(102, 2, "B")
	now := time.Now().UTC()
	attempt := &models.TestAttempt{
		ID:          5,
		TestID:      1,
		UserID:      "user-1",
		Completed:   true,
		CompletedAt: &now,
		// Deliberately wrong snapshot columns; the response must not echo them.
		Score:          99,
		Percentage:     99,
		TotalQuestions: 2,
		Test:           models.Test{ID: 1, Title: "Quant Mock 1"},
		Answers: []models.Answer{
			{AttemptID: 5, QuestionID: 101, SelectedOptions: datatypes.JSONSlice[string]{"A"}, IsCorrect: boolPtr(true), MarksObtained: 1.0, Question: q1},
			{AttemptID: 5, QuestionID: 102, SelectedOptions: datatypes.JSONSlice[string]{"C"}, IsCorrect: boolPtr(false), MarksObtained: -0.25, Question: q2},
		},
	}
	repo.attempt.On("GetByIDWithAnswers", ctx, uint(5)).Return(attempt, nil)

	resp, err := service.GetResult(ctx, 5, "user-1", models.RoleStudent)

	assert.NoError(t, err)
	assert.Equal(t, 0.75, resp.Score)
	assert.Equal(t, 37.5, resp.Percentage)
	assert.Equal(t, 1, resp.CorrectAnswers)
	assert.Equal(t, 1, resp.WrongAnswers)
	repo.AssertExpectations(t)
}

func TestGetResult_ForbiddenForOtherUser(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	attempt := &models.TestAttempt{ID: 5, TestID: 1, UserID: "owner", Completed: true}
	repo.attempt.On("GetByIDWithAnswers", ctx, uint(5)).Return(attempt, nil)

	_, err := service.GetResult(ctx, 5, "intruder", models.RoleStudent)

	assert.True(t, IsForbidden(err))
	repo.AssertExpectations(t)
}

func TestGetResult_AdminCanViewAnyAttempt(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	now := time.Now().UTC()
	attempt := &models.TestAttempt{
		ID: 5, TestID: 1, UserID: "owner",
		Completed: true, CompletedAt: &now, TotalQuestions: 0,
		Test: models.Test{ID: 1, Title: "Quant Mock 1"},
	}
	repo.attempt.On("GetByIDWithAnswers", ctx, uint(5)).Return(attempt, nil)

	resp, err := service.GetResult(ctx, 5, "admin-1", models.RoleAdmin)

	assert.NoError(t, err)
	assert.Equal(t, "owner", resp.UserID)
	repo.AssertExpectations(t)
}

func TestGetResult_NotCompleted(t *testing.T) {
	repo := NewMockRepository()
	service := newTestAttemptService(repo, newTestPublisher())
	ctx := context.Background()

	attempt := &models.TestAttempt{ID: 5, TestID: 1, UserID: "user-1", Completed: false}
	repo.attempt.On("GetByIDWithAnswers", ctx, uint(5)).Return(attempt, nil)

	_, err := service.GetResult(ctx, 5, "user-1", models.RoleStudent)

	assert.ErrorIs(t, err, ErrAttemptNotCompleted)
	repo.AssertExpectations(t)
}

func boolPtr(b bool) *bool {
	return &b
}

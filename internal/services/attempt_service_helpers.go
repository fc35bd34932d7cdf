package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prepstack/scoring-service/internal/events"
	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/repositories"
	"github.com/prepstack/scoring-service/internal/scoring"
)

// createAttempt inserts the next attempt for this user+test: number is
// max+1, the previous latest attempt loses its flag, and the new attempt
// carries a weak link back to it. Must run inside a transaction.
func (s *attemptService) createAttempt(ctx context.Context, repo repositories.Repository, testID uint, userID string) (*models.TestAttempt, error) {
	maxNumber, err := repo.Attempt().GetMaxAttemptNumber(ctx, testID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt number: %w", err)
	}

	var previousID *uint
	previous, err := repo.Attempt().GetLatestAttempt(ctx, testID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attempt: %w", err)
	}
	if previous != nil {
		id := previous.ID
		previousID = &id
		if err := repo.Attempt().ClearLatestFlag(ctx, testID, userID); err != nil {
			return nil, fmt.Errorf("failed to clear latest flag: %w", err)
		}
	}

	attempt := &models.TestAttempt{
		TestID:            testID,
		UserID:            userID,
		AttemptNumber:     maxNumber + 1,
		IsLatest:          true,
		Completed:         false,
		PreviousAttemptID: previousID,
		StartedAt:         time.Now().UTC(),
	}
	if err := repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	return attempt, nil
}

// resolveSubmitTarget finds or creates the attempt a submission applies to.
//
// With an explicit attempt id the attempt must belong to the caller and
// still be open. Without one, an open attempt is finalized when present;
// a prior completed attempt forces the re-attempt flow instead.
func (s *attemptService) resolveSubmitTarget(ctx context.Context, repo repositories.Repository, req *SubmitAttemptRequest, userID string) (*models.TestAttempt, error) {
	if req.AttemptID != nil {
		attempt, err := repo.Attempt().GetByID(ctx, *req.AttemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrAttemptNotFound
			}
			return nil, fmt.Errorf("failed to get attempt: %w", err)
		}
		if attempt.UserID != userID || attempt.TestID != req.TestID {
			return nil, ErrAttemptNotFound
		}
		if attempt.Completed {
			return nil, ErrAttemptAlreadyCompleted
		}
		return attempt, nil
	}

	active, err := repo.Attempt().GetActiveAttempt(ctx, req.TestID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}
	if active != nil {
		return active, nil
	}

	completed, err := repo.Attempt().HasCompletedAttempt(ctx, req.TestID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check completed attempts: %w", err)
	}
	if completed {
		return nil, ErrTestAlreadyCompleted
	}

	return s.createAttempt(ctx, repo, req.TestID, userID)
}

// gradeSubmission evaluates the submitted answers against every question in
// the test and returns one answer row per question plus the tally.
func (s *attemptService) gradeSubmission(questions []models.Question, submitted []SubmittedAnswer, attemptID uint) ([]*models.Answer, scoring.Summary) {
	byQuestion := make(map[uint]SubmittedAnswer, len(submitted))
	for _, sa := range submitted {
		byQuestion[sa.QuestionID] = sa
	}

	summary := scoring.Summary{TotalQuestions: len(questions)}
	answers := make([]*models.Answer, 0, len(questions))

	for i := range questions {
		q := &questions[i]
		sa := byQuestion[q.ID]

		eval := scoring.EvaluateAnswer(q, sa.SelectedOptions)
		switch {
		case !eval.Attempted:
			summary.Unattempted++
		case eval.Correct:
			summary.Correct++
		default:
			summary.Wrong++
		}

		selected := sa.SelectedOptions
		if selected == nil {
			selected = []string{}
		}
		answers = append(answers, &models.Answer{
			AttemptID:       attemptID,
			QuestionID:      q.ID,
			SelectedOptions: selected,
			IsCorrect:       eval.IsCorrect(),
			MarksObtained:   eval.Marks(q),
			TimeTakenSec:    sa.TimeTakenSec,
		})
	}

	return answers, summary
}

// buildResultResponse recomputes the score from the stored answer rows so a
// drifted attempt column can never be served back.
func (s *attemptService) buildResultResponse(attempt *models.TestAttempt) *AttemptResultResponse {
	result := scoring.Calculate(scoring.Summarize(attempt.TotalQuestions, toAnswerPtrs(attempt.Answers)))

	resp := &AttemptResultResponse{
		AttemptID:         attempt.ID,
		TestID:            attempt.TestID,
		TestTitle:         attempt.Test.Title,
		UserID:            attempt.UserID,
		AttemptNumber:     attempt.AttemptNumber,
		IsLatest:          attempt.IsLatest,
		Score:             result.MarksObtained,
		Percentage:        result.RoundedPercentage,
		CorrectAnswers:    result.Correct,
		WrongAnswers:      result.Wrong,
		Unattempted:       result.Unattempted,
		TotalQuestions:    result.TotalQuestions,
		TotalTimeSec:      attempt.TotalTimeSec,
		PreviousAttemptID: attempt.PreviousAttemptID,
		CompletedAt:       attempt.CompletedAt,
	}

	for _, a := range attempt.Answers {
		resp.Answers = append(resp.Answers, AnswerResult{
			QuestionID:      a.QuestionID,
			QuestionNumber:  a.Question.QuestionNumber,
			QuestionText:    a.Question.QuestionText,
			SelectedOptions: a.SelectedOptions,
			CorrectAnswers:  a.Question.CorrectAnswers,
			IsCorrect:       a.IsCorrect,
			MarksObtained:   a.MarksObtained,
			TimeTakenSec:    a.TimeTakenSec,
			Explanation:     a.Question.Explanation,
		})
	}

	return resp
}

// afterSubmit handles the post-commit side effects. Failures here are
// logged, never surfaced: the attempt is already durable.
func (s *attemptService) afterSubmit(ctx context.Context, test *models.Test, attempt *models.TestAttempt) {
	if s.leaderboard != nil {
		// Rank on the unrounded percentage.
		if err := s.leaderboard.UpdateScore(ctx, test.ID, attempt.UserID, attempt.Percentage); err != nil {
			s.logger.Warn("Failed to update leaderboard",
				"test_id", test.ID,
				"user_id", attempt.UserID,
				"error", err)
		}
	}

	if s.publisher == nil {
		return
	}
	event := events.NewEvent(events.EventAttemptCompleted, events.AttemptCompletedEvent{
		AttemptID:      attempt.ID,
		TestID:         test.ID,
		TestTitle:      test.Title,
		UserID:         attempt.UserID,
		AttemptNumber:  attempt.AttemptNumber,
		Score:          attempt.Score,
		Percentage:     attempt.Percentage,
		CorrectAnswers: attempt.CorrectAnswers,
		WrongAnswers:   attempt.WrongAnswers,
		Unattempted:    attempt.Unattempted,
		TotalQuestions: attempt.TotalQuestions,
		CompletedAt:    *attempt.CompletedAt,
	})
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish attempt completed event",
			"attempt_id", attempt.ID,
			"error", err)
	}
}

func (s *attemptService) publishAttemptStarted(ctx context.Context, attempt *models.TestAttempt) {
	if s.publisher == nil {
		return
	}
	event := events.NewEvent(events.EventAttemptStarted, events.AttemptStartedEvent{
		AttemptID:     attempt.ID,
		TestID:        attempt.TestID,
		UserID:        attempt.UserID,
		AttemptNumber: attempt.AttemptNumber,
		StartedAt:     attempt.StartedAt,
	})
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish attempt started event",
			"attempt_id", attempt.ID,
			"error", err)
	}
}

func buildAttemptList(attempts []*models.TestAttempt, total int64) *AttemptListResponse {
	resp := &AttemptListResponse{Total: total, Attempts: make([]AttemptSummary, 0, len(attempts))}
	for _, a := range attempts {
		summary := AttemptSummary{
			AttemptID:     a.ID,
			TestID:        a.TestID,
			UserID:        a.UserID,
			UserName:      a.User.FullName,
			AttemptNumber: a.AttemptNumber,
			IsLatest:      a.IsLatest,
			Completed:     a.Completed,
			Score:         a.Score,
			Percentage:    scoring.Round2(a.Percentage),
			StartedAt:     a.StartedAt,
			CompletedAt:   a.CompletedAt,
		}
		resp.Attempts = append(resp.Attempts, summary)
	}
	return resp
}

func toAnswerPtrs(answers []models.Answer) []*models.Answer {
	out := make([]*models.Answer, len(answers))
	for i := range answers {
		out[i] = &answers[i]
	}
	return out
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// TestAttempt tracks one pass of a user through a test. The partial unique
// index idx_active_attempt allows at most one incomplete attempt per
// (user, test) pair; the application-level check in the attempt service is
// a fast path, the index is the guarantee.
type TestAttempt struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	TestID        uint   `json:"test_id" gorm:"not null;index;uniqueIndex:idx_active_attempt,where:completed = false"`
	UserID        string `json:"user_id" gorm:"not null;index;size:255;uniqueIndex:idx_active_attempt,where:completed = false"`
	AttemptNumber int    `json:"attempt_number" gorm:"not null;default:1"`
	IsLatest      bool   `json:"is_latest" gorm:"default:true;index"`
	Completed     bool   `json:"completed" gorm:"default:false;index"`

	// Scoring snapshot. Score and Percentage are derived values; the result
	// read path recomputes them from the stored answers and never trusts
	// these columns verbatim.
	Score          float64 `json:"score"`
	Percentage     float64 `json:"percentage"`
	CorrectAnswers int     `json:"correct_answers"`
	WrongAnswers   int     `json:"wrong_answers"`
	Unattempted    int     `json:"unattempted"`
	TotalQuestions int     `json:"total_questions"`
	TotalTimeSec   int     `json:"total_time_sec"`

	// Weak back-reference to the attempt this one supersedes.
	PreviousAttemptID *uint `json:"previous_attempt_id"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Test    Test     `json:"test" gorm:"foreignKey:TestID"`
	User    User     `json:"user" gorm:"foreignKey:UserID"`
	Answers []Answer `json:"answers" gorm:"foreignKey:AttemptID"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

// Answer records the response to one question within one attempt.
// Exactly one row exists per (attempt, question) pair; resubmitting an
// attempt replaces all of its rows atomically.
type Answer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`

	// Empty slice means the question was left unattempted.
	SelectedOptions datatypes.JSONSlice[string] `json:"selected_options" gorm:"type:jsonb"`

	// nil for unattempted questions: neither correct nor wrong.
	IsCorrect     *bool   `json:"is_correct"`
	MarksObtained float64 `json:"marks_obtained"`
	TimeTakenSec  int     `json:"time_taken_sec"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Attempt  TestAttempt `json:"-" gorm:"foreignKey:AttemptID"`
	Question Question    `json:"question" gorm:"foreignKey:QuestionID"`
}

func (Answer) TableName() string {
	return "answers"
}

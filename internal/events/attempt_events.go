package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

// EventType represents different types of domain events
type EventType string

const (
	// Attempt events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptCompleted EventType = "attempt.completed"

	// Content events
	EventQuestionDeleted EventType = "question.deleted"
	EventTestDeleted     EventType = "test.deleted"
)

// Event is the envelope shared by all published events
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent wraps a payload in the standard envelope
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    "scoring-service",
		Version:   "1.0",
		Data:      data,
	}
}

// Attempt event payloads

type AttemptStartedEvent struct {
	AttemptID     uint      `json:"attempt_id"`
	TestID        uint      `json:"test_id"`
	TestTitle     string    `json:"test_title"`
	UserID        string    `json:"user_id"`
	AttemptNumber int       `json:"attempt_number"`
	StartedAt     time.Time `json:"started_at"`
}

type AttemptCompletedEvent struct {
	AttemptID      uint      `json:"attempt_id"`
	TestID         uint      `json:"test_id"`
	TestTitle      string    `json:"test_title"`
	UserID         string    `json:"user_id"`
	AttemptNumber  int       `json:"attempt_number"`
	Score          float64   `json:"score"`
	Percentage     float64   `json:"percentage"`
	CorrectAnswers int       `json:"correct_answers"`
	WrongAnswers   int       `json:"wrong_answers"`
	Unattempted    int       `json:"unattempted"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Content event payloads

type QuestionDeletedEvent struct {
	QuestionID     uint `json:"question_id"`
	TestID         uint `json:"test_id"`
	QuestionNumber int  `json:"question_number"`
	RemainingCount int  `json:"remaining_count"`
}

type TestDeletedEvent struct {
	TestID    uint   `json:"test_id"`
	Title     string `json:"title"`
	DeletedBy string `json:"deleted_by"`
}

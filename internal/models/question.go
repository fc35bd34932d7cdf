package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionOptions QuestionType = "OPTIONS"
	QuestionInput   QuestionType = "INPUT"
)

type OptionType string

const (
	OptionSingle OptionType = "SINGLE"
	OptionMulti  OptionType = "MULTI"
)

const (
	DefaultPositiveMarks = 1.0
	DefaultNegativeMarks = -0.25
)

// Question carries its own dense, 1-based position within a test.
// Deleting a question shifts every later question down by one so the
// sequence never has gaps. The composite index stays non-unique so the
// shift can run as a single UPDATE regardless of row order.
type Question struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	TestID         uint         `json:"test_id" gorm:"not null;index:idx_test_question_number"`
	QuestionNumber int          `json:"question_number" gorm:"not null;index:idx_test_question_number" validate:"omitempty,min=1"`
	QuestionText   string       `json:"question_text" gorm:"type:text;not null" validate:"required"`
	QuestionType   QuestionType `json:"question_type" gorm:"not null;default:OPTIONS;size:20" validate:"required,question_type"`
	OptionType     OptionType   `json:"option_type" gorm:"default:SINGLE;size:20" validate:"omitempty,option_type"`

	Options        datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb"`
	CorrectAnswers datatypes.JSONSlice[string] `json:"correct_answers" gorm:"type:jsonb;not null"`

	PositiveMarks float64 `json:"positive_marks" gorm:"default:1"`
	NegativeMarks float64 `json:"negative_marks" gorm:"default:-0.25"`

	Section     *string `json:"section" gorm:"size:100"`
	Explanation *string `json:"explanation" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Test Test `json:"-" gorm:"foreignKey:TestID"`
}

func (Question) TableName() string {
	return "questions"
}

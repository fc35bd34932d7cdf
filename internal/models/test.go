package models

import (
	"time"

	"gorm.io/gorm"
)

type TestType string

const (
	TestTypeMock      TestType = "MOCK"
	TestTypeSectional TestType = "SECTIONAL"
	TestTypePractice  TestType = "PRACTICE"
)

type Test struct {
	ID                uint     `json:"id" gorm:"primaryKey"`
	Title             string   `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description       *string  `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Type              TestType `json:"type" gorm:"default:MOCK" validate:"omitempty,oneof=MOCK SECTIONAL PRACTICE"`
	KeyTopic          *string  `json:"key_topic" gorm:"size:200"`
	DurationInMinutes int      `json:"duration_in_minutes" gorm:"not null;default:60" validate:"min=1,max=300"`
	IsPremium         bool     `json:"is_premium" gorm:"default:false"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question    `json:"questions" gorm:"foreignKey:TestID"`
	Attempts  []TestAttempt `json:"attempts" gorm:"foreignKey:TestID"`

	// Computed fields (not stored)
	QuestionCount int `json:"question_count" gorm:"-"`
}

func (Test) TableName() string {
	return "tests"
}

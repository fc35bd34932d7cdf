package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/prepstack/scoring-service/internal/errors"
	"github.com/prepstack/scoring-service/internal/models"
)

// Validator wraps go-playground struct validation together with the
// content rules that tags cannot express.
type Validator struct {
	structValidator *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	RegisterCustomValidators(v)
	return &Validator{structValidator: v}
}

// Validate checks struct tags and returns field-level errors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if verrs := apperrors.ToValidationErrors(err); len(verrs) > 0 {
			return verrs
		}
		return err
	}
	return nil
}

// ValidateQuestionContent enforces the cross-field rules for a question:
// option questions need options and correct answers drawn from them, input
// questions need at least one accepted answer.
func (v *Validator) ValidateQuestionContent(q *models.Question) error {
	var errs apperrors.ValidationErrors

	switch q.QuestionType {
	case models.QuestionOptions:
		if len(q.Options) < 2 {
			errs = append(errs, *apperrors.NewValidationError("options", "must contain at least 2 options", len(q.Options)))
		}
		if len(q.CorrectAnswers) == 0 {
			errs = append(errs, *apperrors.NewValidationError("correct_answers", "must contain at least one correct answer", nil))
		}
		if q.OptionType == models.OptionSingle && len(q.CorrectAnswers) > 1 {
			errs = append(errs, *apperrors.NewValidationError("correct_answers", "single-choice questions allow exactly one correct answer", len(q.CorrectAnswers)))
		}
		for _, answer := range q.CorrectAnswers {
			if !containsString(q.Options, answer) {
				errs = append(errs, *apperrors.NewValidationError("correct_answers", "correct answer must be one of the options", answer))
			}
		}
	case models.QuestionInput:
		if len(q.CorrectAnswers) == 0 {
			errs = append(errs, *apperrors.NewValidationError("correct_answers", "must contain at least one accepted answer", nil))
		}
		for _, answer := range q.CorrectAnswers {
			if strings.TrimSpace(answer) == "" {
				errs = append(errs, *apperrors.NewValidationError("correct_answers", "accepted answers must not be blank", answer))
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Custom validation functions

func ValidateQuestionType(fl validator.FieldLevel) bool {
	switch models.QuestionType(fl.Field().String()) {
	case models.QuestionOptions, models.QuestionInput:
		return true
	}
	return false
}

func ValidateOptionType(fl validator.FieldLevel) bool {
	switch models.OptionType(fl.Field().String()) {
	case models.OptionSingle, models.OptionMulti:
		return true
	}
	return false
}

func ValidateTestType(fl validator.FieldLevel) bool {
	switch models.TestType(fl.Field().String()) {
	case models.TestTypeMock, models.TestTypeSectional, models.TestTypePractice:
		return true
	}
	return false
}

func ValidateUserRole(fl validator.FieldLevel) bool {
	switch models.UserRole(fl.Field().String()) {
	case models.RoleStudent, models.RoleAdmin:
		return true
	}
	return false
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", ValidateQuestionType)
	validate.RegisterValidation("option_type", ValidateOptionType)
	validate.RegisterValidation("test_type", ValidateTestType)
	validate.RegisterValidation("user_role", ValidateUserRole)

	// Report json field names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Package scoring holds the single source of truth for the test scoring
// formula and the per-question correctness rules. Both the submit path and
// the result read path go through Calculate, so a stored score can always be
// re-derived from the stored answers.
package scoring

import (
	"math"
	"strings"

	"github.com/prepstack/scoring-service/internal/models"
)

// Summary is the raw outcome of an attempt: how many questions were answered
// correctly, wrongly, or not at all.
type Summary struct {
	TotalQuestions int `json:"total_questions"`
	Correct        int `json:"correct"`
	Wrong          int `json:"wrong"`
	Unattempted    int `json:"unattempted"`
}

// Result is the scored outcome. Percentage carries the full float precision
// for ranking; RoundedPercentage is the 2-decimal display value.
type Result struct {
	Summary
	MarksObtained     float64 `json:"marks_obtained"`
	TotalMarks        float64 `json:"total_marks"`
	Percentage        float64 `json:"-"`
	RoundedPercentage float64 `json:"percentage"`
}

// Calculate applies the fixed formula:
//
//	marksObtained = correct*1.0 + wrong*(-0.25)
//	totalMarks    = totalQuestions
//	percentage    = marksObtained / totalMarks * 100 (0 when totalMarks is 0)
//
// A negative net score yields a negative percentage; it is intentionally not
// clamped, since clamping would change leaderboard ordering. The function is
// pure and deterministic.
func Calculate(s Summary) Result {
	marks := float64(s.Correct)*models.DefaultPositiveMarks + float64(s.Wrong)*models.DefaultNegativeMarks
	total := float64(s.TotalQuestions)

	var percentage float64
	if s.TotalQuestions > 0 {
		percentage = marks / total * 100
	}

	return Result{
		Summary:           s,
		MarksObtained:     marks,
		TotalMarks:        total,
		Percentage:        percentage,
		RoundedPercentage: Round2(percentage),
	}
}

// Round2 rounds to 2 decimal places for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Evaluation classifies a single response. Correct is only meaningful when
// Attempted is true.
type Evaluation struct {
	Attempted bool
	Correct   bool
}

// IsCorrect returns the tri-state correctness stored on an answer row:
// nil for unattempted, otherwise a pointer to the verdict.
func (e Evaluation) IsCorrect() *bool {
	if !e.Attempted {
		return nil
	}
	v := e.Correct
	return &v
}

// Marks returns the per-question marks for this evaluation.
func (e Evaluation) Marks(q *models.Question) float64 {
	switch {
	case !e.Attempted:
		return 0
	case e.Correct:
		return q.PositiveMarks
	default:
		return q.NegativeMarks
	}
}

// EvaluateAnswer decides correctness of a response against a question:
//
//   - OPTIONS/SINGLE: exactly one selected option, and it is one of the
//     correct answers.
//   - OPTIONS/MULTI: the selected set equals the correct set exactly,
//     regardless of order; subsets and supersets are wrong.
//   - INPUT: the trimmed input matches one of the accepted answers.
//
// A blank selection is unattempted, not wrong.
func EvaluateAnswer(q *models.Question, selected []string) Evaluation {
	cleaned := trimNonEmpty(selected)
	if len(cleaned) == 0 {
		return Evaluation{}
	}

	if q.QuestionType == models.QuestionInput {
		return Evaluation{Attempted: true, Correct: contains(q.CorrectAnswers, cleaned[0])}
	}

	if q.OptionType == models.OptionMulti {
		return Evaluation{Attempted: true, Correct: equalSets(cleaned, q.CorrectAnswers)}
	}

	correct := len(cleaned) == 1 && contains(q.CorrectAnswers, cleaned[0])
	return Evaluation{Attempted: true, Correct: correct}
}

// Summarize re-derives the attempt counts from stored answer rows. Feeding
// the result into Calculate reproduces the submit-time score exactly.
// Questions without an answer row count as unattempted.
func Summarize(totalQuestions int, answers []*models.Answer) Summary {
	s := Summary{TotalQuestions: totalQuestions}
	for _, a := range answers {
		switch {
		case len(a.SelectedOptions) == 0 || a.IsCorrect == nil:
		case *a.IsCorrect:
			s.Correct++
		default:
			s.Wrong++
		}
	}
	if n := totalQuestions - s.Correct - s.Wrong; n > 0 {
		s.Unattempted = n
	}
	return s
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func equalSets(a, b []string) bool {
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	want := make(map[string]struct{}, len(b))
	for _, v := range b {
		want[v] = struct{}{}
	}
	if len(seen) != len(want) {
		return false
	}
	for v := range want {
		if _, ok := seen[v]; !ok {
			return false
		}
	}
	return true
}

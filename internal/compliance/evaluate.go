// Package compliance implements the daily check-in logic gate.
package compliance

import (
	"math"
	"strings"

	"github.com/zaqqye/intervention_engine/internal/apperr"
)

type Verdict string

const (
	Pass Verdict = "Pass"
	Fail Verdict = "Fail"
)

const (
	// Both thresholds are exclusive.
	MinQuizScore    = 7
	MinFocusMinutes = 60

	MaxQuizScore = 10
)

// Evaluate returns Pass iff quizScore > 7 and focusMinutes > 60.
func Evaluate(quizScore, focusMinutes float64) Verdict {
	if quizScore > MinQuizScore && focusMinutes > MinFocusMinutes {
		return Pass
	}
	return Fail
}

// Submission is one daily check-in as reported by the student client.
// Scores are pointers so that an absent field is distinguishable from zero.
type Submission struct {
	StudentID    string
	QuizScore    *float64
	FocusMinutes *float64
	TabSwitches  int
	TimerFailed  bool
}

func (s Submission) Validate() error {
	const op = "compliance.Validate"
	if strings.TrimSpace(s.StudentID) == "" {
		return apperr.Validation(op, "student_id is required")
	}
	if s.QuizScore == nil || s.FocusMinutes == nil {
		return apperr.Validation(op, "quiz_score and focus_minutes are required")
	}
	q, f := *s.QuizScore, *s.FocusMinutes
	if math.IsNaN(q) || math.IsInf(q, 0) || math.IsNaN(f) || math.IsInf(f, 0) {
		return apperr.Validation(op, "scores must be finite numbers")
	}
	if q < 0 || q > MaxQuizScore {
		return apperr.Validation(op, "quiz_score must be between 0 and 10")
	}
	if f < 0 {
		return apperr.Validation(op, "focus_minutes cannot be negative")
	}
	if s.TabSwitches < 0 {
		return apperr.Validation(op, "tab_switches cannot be negative")
	}
	return nil
}

// Verdict validates the submission and evaluates it.
func (s Submission) Verdict() (Verdict, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	return Evaluate(*s.QuizScore, *s.FocusMinutes), nil
}

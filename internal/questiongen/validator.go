package questiongen

import "fmt"

// Validator checks a normalized question before it is accepted.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator (for error messages
	// and logging), e.g. "structural".
	Name() string

	// Validate returns nil if the question passes.
	Validate(q *Question) *ValidationError
}

// ValidationError describes why a question failed validation.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

const (
	maxQuestionTextLen = 2000
	maxExplanationLen  = 3000
)

// StructuralValidator checks that required fields are present, within
// length limits, and that the question type is known.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question) *ValidationError {
	if q.QuestionText == "" {
		return &ValidationError{Validator: v.Name(), Message: "questionText is empty"}
	}
	if len(q.QuestionText) > maxQuestionTextLen {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("questionText exceeds %d characters", maxQuestionTextLen),
		}
	}
	if len(q.Explanation) > maxExplanationLen {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("explanation exceeds %d characters", maxExplanationLen),
		}
	}
	if _, ok := ParseType(string(q.QuestionType)); !ok {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("unknown questionType %q", q.QuestionType),
		}
	}
	if q.Points <= 0 {
		return &ValidationError{Validator: v.Name(), Message: "points must be positive"}
	}
	return nil
}

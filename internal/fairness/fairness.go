// Package fairness hands each student their variant of a question set.
package fairness

import (
	"context"

	"github.com/abhisek/assessgen/internal/questiongen"
)

// Assigner returns the subset or variant of questions a given student
// should receive. Implementations must not modify the input slice.
type Assigner interface {
	Assign(ctx context.Context, studentID string, questions []questiongen.Question) ([]questiongen.Question, error)
}

// Identity gives every student the full question set.
type Identity struct{}

func (Identity) Assign(_ context.Context, _ string, questions []questiongen.Question) ([]questiongen.Question, error) {
	return append([]questiongen.Question(nil), questions...), nil
}

// Func adapts a plain function to an Assigner.
type Func func(ctx context.Context, studentID string, questions []questiongen.Question) ([]questiongen.Question, error)

func (f Func) Assign(ctx context.Context, studentID string, questions []questiongen.Question) ([]questiongen.Question, error) {
	return f(ctx, studentID, questions)
}

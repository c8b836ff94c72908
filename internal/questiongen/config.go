package questiongen

import (
	"time"

	"github.com/abhisek/assessgen/internal/llm"
)

// Config controls the behavior of the Generator.
type Config struct {
	// BatchSize is the number of questions requested per model call.
	BatchSize int

	// MaxAttempts bounds the attempts for one batch, including the first.
	MaxAttempts int

	// BaseDelay is the linear backoff unit: attempt n waits n × BaseDelay.
	BaseDelay time.Duration

	// Sleep waits between attempts. Tests inject a recorder.
	Sleep llm.SleepFunc

	// MaxTopUpBatches is the number of extra batches run to replace
	// duplicates and short batches.
	MaxTopUpBatches int

	// Validators run on every normalized question. A question failing any
	// validator is dropped from its batch.
	Validators []Validator

	// MaxTokens is the token budget for one batch response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxPriorQuestions limits the already-asked list in the prompt.
	// Zero includes every prior question.
	MaxPriorQuestions int
}

// DefaultConfig returns the standard batch and retry settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:       5,
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		Sleep:           llm.SleepContext,
		MaxTopUpBatches: 2,
		Validators: []Validator{
			&StructuralValidator{},
		},
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

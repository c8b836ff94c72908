package questiongen

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const choiceOptions = 4

// numericDistractors fill a numeric question converted to multiple choice.
var numericDistractors = []string{"Cannot be determined", "Insufficient information", "None of the above"}

// Repair runs once over a generated question sequence and returns a
// self-consistent copy, numbered 1..N:
//
//   - numeric questions with a non-numeric answer become mcq with the
//     literal answer as one of four options
//   - choice questions with fewer than 2 options are dropped
//   - options are truncated or padded to exactly 4
//   - a missing or out-of-range answer index is coerced to 1
//   - an answer value missing from the options is appended to them,
//     which may leave more than 4 options
//   - open questions lose their options and keep a text answer as the
//     expected answer
func Repair(questions []Question, logger *zap.Logger) []Question {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		q.Options = append([]string(nil), q.Options...)

		if q.QuestionType.IsNumeric() {
			q = repairNumeric(q, logger)
		}

		switch {
		case q.QuestionType.IsChoice():
			var ok bool
			if q, ok = repairChoice(q, logger); !ok {
				continue
			}
		case q.QuestionType.IsNumeric():
			q.Options = nil
		default:
			q = repairOpen(q)
		}
		out = append(out, q)
	}
	for i := range out {
		out[i].QuestionNumber = i + 1
	}
	return out
}

// repairNumeric keeps numeric answers as numbers and converts a question
// whose answer is not a number into a four-option mcq.
func repairNumeric(q Question, logger *zap.Logger) Question {
	switch q.CorrectAnswer.Kind {
	case AnswerNumber:
		return q
	case AnswerNone:
		return q
	}

	literal := strings.TrimSpace(q.CorrectAnswer.Text)
	if f, err := strconv.ParseFloat(literal, 64); err == nil {
		q.CorrectAnswer = NumberAnswer(f)
		return q
	}
	if literal == "" {
		q.CorrectAnswer = Answer{}
		return q
	}

	logger.Warn("converting numeric question with non-numeric answer to multiple choice",
		zap.Int("question", q.QuestionNumber), zap.String("answer", literal))

	pos := 0
	if q.QuestionNumber > 0 {
		pos = (q.QuestionNumber - 1) % choiceOptions
	}
	opts := make([]string, 0, choiceOptions)
	opts = append(opts, numericDistractors[:pos]...)
	opts = append(opts, literal)
	opts = append(opts, numericDistractors[pos:]...)

	q.QuestionType = TypeMCQ
	q.Options = opts
	q.CorrectAnswer = TextAnswer(literal)
	q.ExpectedAnswer = ""
	q.EvaluationCriteria = nil
	q.ExpectedKeywords = nil
	return q
}

func repairChoice(q Question, logger *zap.Logger) (Question, bool) {
	if len(q.Options) < 2 {
		logger.Warn("dropping choice question with too few options",
			zap.Int("question", q.QuestionNumber), zap.Int("options", len(q.Options)))
		return q, false
	}

	idx, value := answerTarget(q.CorrectAnswer, q.Options)

	if len(q.Options) > choiceOptions {
		// Keep the answer value inside the four options that survive.
		if value != "" {
			if i := indexOf(q.Options, value); i >= choiceOptions {
				q.Options[choiceOptions-1] = q.Options[i]
			}
		}
		q.Options = q.Options[:choiceOptions]
	}
	for len(q.Options) < choiceOptions {
		q.Options = append(q.Options, "Option "+string(rune('A'+len(q.Options))))
	}

	switch {
	case value != "":
		if indexOf(q.Options, value) < 0 {
			logger.Info("appending missing answer value to options",
				zap.Int("question", q.QuestionNumber), zap.String("answer", value))
			q.Options = append(q.Options, value)
		}
		q.CorrectAnswer = TextAnswer(value)
	case idx >= 1 && idx <= choiceOptions:
		q.CorrectAnswer = NumberAnswer(float64(idx))
	default:
		logger.Warn("coercing invalid answer index to 1",
			zap.Int("question", q.QuestionNumber), zap.String("answer", q.CorrectAnswer.String()))
		q.CorrectAnswer = NumberAnswer(1)
	}

	q.ExpectedAnswer = ""
	q.EvaluationCriteria = nil
	q.ExpectedKeywords = nil
	return q, true
}

// answerTarget interprets a choice answer as either a 1-based index or an
// option value. Numeric strings in 1..4 and single option letters are
// indices; other numeric strings are values when an option matches them.
// An index of 0 means the answer is unusable.
func answerTarget(a Answer, options []string) (idx int, value string) {
	switch a.Kind {
	case AnswerNumber:
		if a.Number == math.Trunc(a.Number) {
			return int(a.Number), ""
		}
		return 0, ""
	case AnswerText:
		s := strings.TrimSpace(a.Text)
		if s == "" {
			return 0, ""
		}
		n, err := strconv.Atoi(s)
		if err == nil && n >= 1 && n <= choiceOptions {
			return n, ""
		}
		if i := indexOf(options, s); i >= 0 {
			return 0, options[i]
		}
		if err == nil {
			return n, ""
		}
		if len(s) == 1 {
			c := strings.ToUpper(s)[0]
			if c >= 'A' && c < 'A'+choiceOptions {
				return int(c-'A') + 1, ""
			}
		}
		return 0, s
	}
	return 0, ""
}

func repairOpen(q Question) Question {
	q.Options = nil
	if q.CorrectAnswer.Kind == AnswerText && q.ExpectedAnswer == "" {
		q.ExpectedAnswer = strings.TrimSpace(q.CorrectAnswer.Text)
	}
	q.CorrectAnswer = Answer{}
	return q
}

func indexOf(options []string, value string) int {
	value = strings.TrimSpace(value)
	for i, o := range options {
		if strings.TrimSpace(o) == value {
			return i
		}
	}
	return -1
}

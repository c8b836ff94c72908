package questiongen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRepair_NumericWithNonNumericAnswer(t *testing.T) {
	in := []Question{{
		QuestionNumber: 1,
		QuestionType:   TypeNumerical,
		QuestionText:   "Differentiate x^2 + 3x.",
		CorrectAnswer:  TextAnswer("2x+3"),
		Points:         2,
	}}

	out := Repair(in, nil)

	require.Len(t, out, 1)
	q := out[0]
	assert.Equal(t, TypeMCQ, q.QuestionType)
	assert.Len(t, q.Options, 4)
	assert.Contains(t, q.Options, "2x+3")
	assert.Equal(t, TextAnswer("2x+3"), q.CorrectAnswer)
	assert.Contains(t, q.Options, "None of the above")
}

func TestRepair_NumericAnswerPosition(t *testing.T) {
	for qn := 1; qn <= 5; qn++ {
		q := Repair([]Question{{
			QuestionNumber: qn,
			QuestionType:   TypeCircuitMath,
			QuestionText:   "Find the Thevenin equivalent.",
			CorrectAnswer:  TextAnswer("R1 || R2"),
			Points:         2,
		}}, nil)[0]
		assert.Equal(t, "R1 || R2", q.Options[(qn-1)%4], "question %d", qn)
	}
}

func TestRepair_NumericKeepsNumbers(t *testing.T) {
	out := Repair([]Question{
		{QuestionType: TypeNumerical, QuestionText: "2+2?", CorrectAnswer: NumberAnswer(4), Options: []string{"x"}},
		{QuestionType: TypeNumerical, QuestionText: "3+3?", CorrectAnswer: TextAnswer(" 6.0 ")},
	}, nil)

	require.Len(t, out, 2)
	assert.Equal(t, NumberAnswer(4), out[0].CorrectAnswer)
	assert.Nil(t, out[0].Options)
	assert.Equal(t, NumberAnswer(6), out[1].CorrectAnswer)
	assert.Equal(t, TypeNumerical, out[1].QuestionType)
}

func TestRepair_OptionCounts(t *testing.T) {
	tests := []struct {
		name    string
		options []string
		answer  Answer
		want    []string
		wantAns Answer
	}{
		{
			name:    "exactly four",
			options: []string{"a", "b", "c", "d"},
			answer:  NumberAnswer(3),
			want:    []string{"a", "b", "c", "d"},
			wantAns: NumberAnswer(3),
		},
		{
			name:    "truncated",
			options: []string{"a", "b", "c", "d", "e", "f"},
			answer:  NumberAnswer(2),
			want:    []string{"a", "b", "c", "d"},
			wantAns: NumberAnswer(2),
		},
		{
			name:    "truncation keeps answer value",
			options: []string{"a", "b", "c", "d", "e"},
			answer:  TextAnswer("e"),
			want:    []string{"a", "b", "c", "e"},
			wantAns: TextAnswer("e"),
		},
		{
			name:    "padded",
			options: []string{"yes", "no"},
			answer:  NumberAnswer(1),
			want:    []string{"yes", "no", "Option C", "Option D"},
			wantAns: NumberAnswer(1),
		},
		{
			name:    "letter answer",
			options: []string{"a", "b", "c", "d"},
			answer:  TextAnswer("C"),
			want:    []string{"a", "b", "c", "d"},
			wantAns: NumberAnswer(3),
		},
		{
			name:    "value present",
			options: []string{"O(1)", "O(log n)", "O(n)", "O(n log n)"},
			answer:  TextAnswer("O(log n)"),
			want:    []string{"O(1)", "O(log n)", "O(n)", "O(n log n)"},
			wantAns: TextAnswer("O(log n)"),
		},
		{
			name:    "value appended",
			options: []string{"O(1)", "O(n)", "O(n^2)", "O(2^n)"},
			answer:  TextAnswer("O(log n)"),
			want:    []string{"O(1)", "O(n)", "O(n^2)", "O(2^n)", "O(log n)"},
			wantAns: TextAnswer("O(log n)"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Repair([]Question{{
				QuestionType:  TypeMCQ,
				QuestionText:  "Pick one.",
				Options:       tt.options,
				CorrectAnswer: tt.answer,
				Points:        1,
			}}, nil)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Options)
			assert.Equal(t, tt.wantAns, out[0].CorrectAnswer)
		})
	}
}

func TestRepair_CoercesInvalidIndexToFirst(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	answers := []Answer{NumberAnswer(0), NumberAnswer(5), NumberAnswer(2.5), TextAnswer("7"), {}}
	for _, a := range answers {
		out := Repair([]Question{{
			QuestionType:  TypeReasoning,
			QuestionText:  "Which comes next?",
			Options:       []string{"1", "2", "3", "4"},
			CorrectAnswer: a,
			Points:        1,
		}}, logger)
		require.Len(t, out, 1)
		assert.Equal(t, NumberAnswer(1), out[0].CorrectAnswer, "answer %v", a)
	}
	assert.Equal(t, len(answers), logs.FilterMessage("coercing invalid answer index to 1").Len())
}

func TestRepair_DropsChoiceWithTooFewOptions(t *testing.T) {
	out := Repair([]Question{
		{QuestionNumber: 1, QuestionType: TypeMCQ, QuestionText: "Lonely?", Options: []string{"yes"}, CorrectAnswer: NumberAnswer(1), Points: 1},
		{QuestionNumber: 2, QuestionType: TypeAptitude, QuestionText: "Fine?", Options: []string{"yes", "no"}, CorrectAnswer: NumberAnswer(2), Points: 1},
	}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, "Fine?", out[0].QuestionText)
	assert.Equal(t, 1, out[0].QuestionNumber)
}

func TestRepair_OpenQuestions(t *testing.T) {
	out := Repair([]Question{{
		QuestionType:       TypeDescriptive,
		QuestionText:       "Explain AVL rotations.",
		Options:            []string{"a", "b"},
		CorrectAnswer:      TextAnswer("Rotations restore balance."),
		EvaluationCriteria: []string{"mentions balance factor"},
		Points:             5,
	}}, nil)

	require.Len(t, out, 1)
	q := out[0]
	assert.Nil(t, q.Options)
	assert.True(t, q.CorrectAnswer.IsZero())
	assert.Equal(t, "Rotations restore balance.", q.ExpectedAnswer)
	assert.Equal(t, []string{"mentions balance factor"}, q.EvaluationCriteria)
}

func TestRepair_ChoiceInvariant(t *testing.T) {
	in := []Question{
		{QuestionType: TypeMCQ, QuestionText: "a", Options: []string{"w", "x", "y", "z", "v"}, CorrectAnswer: NumberAnswer(9), Points: 1},
		{QuestionType: TypePseudoMCQ, QuestionText: "b", Options: []string{"w", "x", "y"}, CorrectAnswer: TextAnswer("y"), ExpectedAnswer: "y", Points: 1},
		{QuestionType: TypeAptitude, QuestionText: "c", Options: []string{"w", "x"}, CorrectAnswer: TextAnswer("B"), Points: 1},
		{QuestionType: TypeNumerical, QuestionText: "d", CorrectAnswer: TextAnswer("n/2"), Points: 2},
	}

	for _, q := range Repair(in, nil) {
		require.True(t, q.QuestionType.IsChoice(), q.QuestionText)
		assert.Len(t, q.Options, 4, q.QuestionText)
		assert.Empty(t, q.ExpectedAnswer, q.QuestionText)
		switch q.CorrectAnswer.Kind {
		case AnswerNumber:
			assert.GreaterOrEqual(t, q.CorrectAnswer.Number, 1.0)
			assert.LessOrEqual(t, q.CorrectAnswer.Number, 4.0)
		case AnswerText:
			assert.Contains(t, q.Options, q.CorrectAnswer.Text)
		default:
			t.Errorf("question %q has no answer", q.QuestionText)
		}
	}
}

func TestRepair_DoesNotMutateInput(t *testing.T) {
	in := []Question{{QuestionType: TypeMCQ, QuestionText: "q", Options: []string{"a", "b", "c", "d", "e"}, CorrectAnswer: TextAnswer("e"), Points: 1}}
	Repair(in, nil)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, in[0].Options)
}

func TestRepair_NumericStringMatchingOption(t *testing.T) {
	out := Repair([]Question{{
		QuestionType:  TypeAptitude,
		QuestionText:  "A perfect tree has 15 nodes. How many leaves?",
		Options:       []string{"7", "8", "6", "5"},
		CorrectAnswer: TextAnswer("8"),
		Points:        1,
	}}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, TextAnswer("8"), out[0].CorrectAnswer)
	assert.Equal(t, []string{"7", "8", "6", "5"}, out[0].Options)
}

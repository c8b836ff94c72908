// Package questiongen plans, generates and repairs assessment questions.
package questiongen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/abhisek/assessgen/internal/enrich"
)

// QuestionType is the closed set of question kinds.
type QuestionType string

const (
	TypeMCQ         QuestionType = "mcq"
	TypePseudoMCQ   QuestionType = "pseudo_mcq"
	TypeDescriptive QuestionType = "descriptive"
	TypeAptitude    QuestionType = "aptitude"
	TypeReasoning   QuestionType = "reasoning"
	TypeCircuitMath QuestionType = "circuit_math"
	TypeNumerical   QuestionType = "numerical"
)

// AllTypes lists every QuestionType.
var AllTypes = []QuestionType{
	TypeMCQ, TypePseudoMCQ, TypeDescriptive, TypeAptitude, TypeReasoning, TypeCircuitMath, TypeNumerical,
}

// ParseType normalizes s into a QuestionType.
func ParseType(s string) (QuestionType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	switch s {
	case "multiple_choice", "mcqs":
		s = string(TypeMCQ)
	case "pseudocode", "pseudo_code", "pseudo_code_mcq", "pseudocode_mcq":
		s = string(TypePseudoMCQ)
	}
	for _, t := range AllTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsChoice reports whether questions of this type carry four options.
func (t QuestionType) IsChoice() bool {
	switch t {
	case TypeMCQ, TypePseudoMCQ, TypeAptitude, TypeReasoning:
		return true
	}
	return false
}

// IsNumeric reports whether the answer is a number.
func (t QuestionType) IsNumeric() bool {
	return t == TypeNumerical || t == TypeCircuitMath
}

// DefaultPoints is the score used when the model omits one.
func (t QuestionType) DefaultPoints() int {
	switch t {
	case TypeDescriptive:
		return 5
	case TypeNumerical, TypeCircuitMath:
		return 2
	default:
		return 1
	}
}

// AnswerKind tags the value held by an Answer.
type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerNumber
	AnswerText
)

// Answer is a correct answer: absent, a number (an option index for
// choice questions, the value for numeric ones) or a text value.
type Answer struct {
	Kind   AnswerKind
	Number float64
	Text   string
}

// NumberAnswer returns a numeric Answer.
func NumberAnswer(f float64) Answer { return Answer{Kind: AnswerNumber, Number: f} }

// TextAnswer returns a text Answer.
func TextAnswer(s string) Answer { return Answer{Kind: AnswerText, Text: s} }

// IsZero reports whether no answer is set.
func (a Answer) IsZero() bool { return a.Kind == AnswerNone }

// String renders the answer value.
func (a Answer) String() string {
	switch a.Kind {
	case AnswerNumber:
		return strconv.FormatFloat(a.Number, 'f', -1, 64)
	case AnswerText:
		return a.Text
	}
	return ""
}

// MarshalJSON encodes numbers as JSON numbers and text as strings.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerNumber:
		return []byte(strconv.FormatFloat(a.Number, 'f', -1, 64)), nil
	case AnswerText:
		return json.Marshal(a.Text)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a number, a string or null. Any other JSON value is
// kept as text so a single odd field does not reject the whole batch.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*a = Answer{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
	default:
		if f, err := strconv.ParseFloat(string(data), 64); err == nil {
			*a = NumberAnswer(f)
		} else {
			*a = TextAnswer(string(data))
		}
	}
	return nil
}

// Question is one generated assessment item. A question is either
// choice-like (Options and an index or value CorrectAnswer) or open
// (ExpectedAnswer and EvaluationCriteria, no Options).
type Question struct {
	ID                 string       `json:"id"`
	QuestionNumber     int          `json:"questionNumber"`
	Skill              string       `json:"skill,omitempty"`
	QuestionType       QuestionType `json:"questionType"`
	QuestionText       string       `json:"questionText"`
	Options            []string     `json:"options,omitempty"`
	CorrectAnswer      Answer       `json:"correctAnswer,omitzero"`
	Points             int          `json:"points"`
	Difficulty         string       `json:"difficulty,omitempty"`
	Topic              string       `json:"topic,omitempty"`
	Explanation        string       `json:"explanation,omitempty"`
	ExpectedAnswer     string       `json:"expectedAnswer,omitempty"`
	EvaluationCriteria []string     `json:"evaluationCriteria,omitempty"`
	ExpectedKeywords   []string     `json:"expectedKeywords,omitempty"`
}

// StudentCopy returns the question without answers or grading material.
func (q Question) StudentCopy() Question {
	q.Options = append([]string(nil), q.Options...)
	q.CorrectAnswer = Answer{}
	q.Explanation = ""
	q.ExpectedAnswer = ""
	q.EvaluationCriteria = nil
	q.ExpectedKeywords = nil
	return q
}

// GenerateInput holds everything a generation run needs.
type GenerateInput struct {
	Plan           Plan
	Enrichment     *enrich.EnrichedCurriculum
	Curriculum     string
	Title          string
	SubjectOrRole  string
	Difficulty     string
	CognitiveLevel string

	// Seen pre-populates the session's already-asked set.
	Seen []string
}

// defaultTopic is used when the model omits a question's topic.
func (in GenerateInput) defaultTopic() string {
	if in.Enrichment != nil && len(in.Enrichment.KeyTopics) > 0 {
		return in.Enrichment.KeyTopics[0]
	}
	if in.Title != "" {
		return in.Title
	}
	return in.SubjectOrRole
}

// flexInt decodes a JSON number or numeric string. Anything else decodes
// as zero so the field falls back to its default.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

// flexStrings decodes either a string or an array of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != "" {
			*f = flexStrings{s}
		}
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(flexStrings, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, v)
		case nil:
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	*f = out
	return nil
}

// questionOutput is one raw batch item before normalization.
type questionOutput struct {
	QuestionNumber     flexInt     `json:"questionNumber"`
	Skill              string      `json:"skill"`
	QuestionType       string      `json:"questionType"`
	QuestionText       string      `json:"questionText"`
	Options            flexStrings `json:"options"`
	CorrectAnswer      Answer      `json:"correctAnswer"`
	Points             flexInt     `json:"points"`
	Difficulty         string      `json:"difficulty"`
	Topic              string      `json:"topic"`
	Explanation        string      `json:"explanation"`
	ExpectedAnswer     Answer      `json:"expectedAnswer"`
	EvaluationCriteria flexStrings `json:"evaluationCriteria"`
	ExpectedKeywords   flexStrings `json:"expectedKeywords"`
}

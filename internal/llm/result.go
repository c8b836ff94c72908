package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/assessgen/internal/sanitize"
)

// Kind tags the outcome of a generative call.
type Kind int

const (
	// KindOK means the call succeeded and produced parseable JSON.
	KindOK Kind = iota
	// KindParseError means the call returned text that no cleanup step
	// could turn into the expected JSON shape.
	KindParseError
	// KindTransportError means the provider call itself failed.
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindParseError:
		return "parse_error"
	case KindTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Shape is the top-level JSON structure a caller expects.
type Shape int

const (
	ShapeObject Shape = iota
	ShapeArray
)

// Result is the tagged outcome of GenerateJSON. Exactly one of JSON (for
// KindOK) or Cause (for the error kinds) is meaningful.
type Result struct {
	Kind Kind

	// JSON is the cleaned payload. Set only when Kind is KindOK.
	JSON json.RawMessage

	// Raw is the unmodified model text, kept for logging.
	Raw string

	// Cause is the underlying error for KindParseError and KindTransportError.
	Cause error

	// Usage is the token usage reported by the provider, if any.
	Usage Usage
}

// OK reports whether the result carries parsed JSON.
func (r Result) OK() bool { return r.Kind == KindOK }

// Err returns nil for KindOK and a typed error otherwise. Parse errors are
// reported as *ErrInvalidResponse; transport errors are returned as-is.
func (r Result) Err() error {
	switch r.Kind {
	case KindOK:
		return nil
	case KindParseError:
		var inv *ErrInvalidResponse
		if errors.As(r.Cause, &inv) {
			return r.Cause
		}
		return &ErrInvalidResponse{Content: json.RawMessage(r.Raw), Err: r.Cause}
	default:
		if r.Cause == nil {
			return &ErrProviderUnavailable{}
		}
		return r.Cause
	}
}

// Decode unmarshals the cleaned payload into v.
func (r Result) Decode(v any) error {
	if !r.OK() {
		return r.Err()
	}
	if err := json.Unmarshal(r.JSON, v); err != nil {
		return &ErrInvalidResponse{Content: r.JSON, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// GenerateJSON calls the provider and runs the response through the cleanup
// chain for the requested shape. When check is non-nil the cleaned payload
// must also validate against it. GenerateJSON never returns a Go error;
// callers branch on Result.Kind. A nil provider yields a transport error.
//
// The request is usually sent without a Schema so that the provider returns
// raw text and every recovery step here gets a chance to run.
func GenerateJSON(ctx context.Context, p Provider, req Request, shape Shape, check *Schema) Result {
	if p == nil {
		return Result{Kind: KindTransportError, Cause: &ErrProviderUnavailable{Err: errors.New("no provider configured")}}
	}

	resp, err := p.Generate(ctx, req)
	if err != nil {
		var inv *ErrInvalidResponse
		if errors.As(err, &inv) {
			return Result{Kind: KindParseError, Raw: string(inv.Content), Cause: err}
		}
		// A truncated array may still hold complete leading elements.
		var maxTok *ErrMaxTokensExceeded
		if errors.As(err, &maxTok) {
			if shape == ShapeArray {
				if cleaned, ok := salvageTruncatedArray(string(maxTok.Content)); ok {
					return Result{Kind: KindOK, JSON: cleaned, Raw: string(maxTok.Content)}
				}
			}
			return Result{Kind: KindParseError, Raw: string(maxTok.Content), Cause: err}
		}
		return Result{Kind: KindTransportError, Cause: err}
	}

	raw := resp.Text()
	cleaned, err := CleanJSON(raw, shape)
	if err != nil {
		return Result{Kind: KindParseError, Raw: raw, Cause: err, Usage: resp.Usage}
	}
	if check != nil {
		if err := ValidateJSON(check, cleaned); err != nil {
			return Result{Kind: KindParseError, Raw: raw, Cause: err, Usage: resp.Usage}
		}
	}
	return Result{Kind: KindOK, JSON: cleaned, Raw: raw, Usage: resp.Usage}
}

// CleanJSON turns model text into JSON of the requested shape. It tries, in
// order: a direct parse, isolation of the outermost structure from fenced
// or prose-wrapped text, the same after textual repair, and for arrays a
// bracket-only recovery.
func CleanJSON(raw string, shape Shape) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if matchesShape(trimmed, shape) && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	isolate := sanitize.IsolateObject
	if shape == ShapeArray {
		isolate = sanitize.IsolateArray
	}
	// Well-formed JSON inside fences or prose is returned as written, unless
	// a short escape actually starts a LaTeX command such as \frac.
	unwrapped := sanitize.StripControl(sanitize.StripFences(trimmed))
	if candidate, ok := isolate(unwrapped); ok && json.Valid([]byte(candidate)) &&
		sanitize.EscapeBackslashes(candidate) == candidate {
		return json.RawMessage(candidate), nil
	}

	repaired := sanitize.RepairJSONText(trimmed)
	if candidate, ok := isolate(repaired); ok && json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), nil
	}

	if shape == ShapeArray {
		if candidate, ok := sanitize.RecoverArray(repaired); ok && json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
		// A single object where an array was asked for.
		if candidate, ok := sanitize.IsolateObject(repaired); ok && json.Valid([]byte(candidate)) {
			return json.RawMessage("[" + candidate + "]"), nil
		}
	}

	return nil, fmt.Errorf("no parseable JSON %s in model output (%d bytes)", shape, len(raw))
}

func (s Shape) String() string {
	if s == ShapeArray {
		return "array"
	}
	return "object"
}

func matchesShape(s string, shape Shape) bool {
	if shape == ShapeArray {
		return strings.HasPrefix(s, "[")
	}
	return strings.HasPrefix(s, "{")
}

// salvageTruncatedArray keeps the complete leading elements of an array cut
// off mid-element and closes it. At least one element must survive.
func salvageTruncatedArray(raw string) (json.RawMessage, bool) {
	s := sanitize.RepairJSONText(strings.TrimSpace(raw))
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return nil, false
	}

	depth, lastEnd := 0, -1
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 1 {
				lastEnd = i + 1
			}
			if depth == 0 {
				return nil, false
			}
		}
	}
	if lastEnd < 0 {
		return nil, false
	}
	candidate := s[start:lastEnd] + "]"
	if !json.Valid([]byte(candidate)) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}

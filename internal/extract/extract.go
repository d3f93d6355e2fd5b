// Package extract pulls a single JSON object out of free-form model output
// and checks it against a small field schema before it is trusted.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Mode selects how the object span is located in the cleaned text.
type Mode int

const (
	// ModeGreedy takes everything from the first '{' to the last '}'.
	// Two objects separated by prose yield one unparseable span.
	ModeGreedy Mode = iota
	// ModeBalanced stops at the first '}' that closes the first '{',
	// ignoring braces inside JSON strings.
	ModeBalanced
)

func (m Mode) String() string {
	switch m {
	case ModeGreedy:
		return "greedy"
	case ModeBalanced:
		return "balanced"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

var (
	ErrNoDocument   = errors.New("no structured document found")
	ErrUnterminated = errors.New("structured document is not terminated")
	ErrMalformed    = errors.New("structured document does not parse")
)

// ExtractionError means no usable object could be pulled from the text.
// Raw holds the original model output for diagnosis.
type ExtractionError struct {
	Schema string
	Raw    string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Schema, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SchemaValidationError means the object parsed but does not have the
// required shape.
type SchemaValidationError struct {
	Schema     string
	Missing    []string
	Mismatched []string
}

func (e *SchemaValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Mismatched) > 0 {
		parts = append(parts, "wrong type for "+strings.Join(e.Mismatched, ", "))
	}
	return fmt.Sprintf("%s does not match schema: %s", e.Schema, strings.Join(parts, "; "))
}

// Document is a parsed keyed document.
type Document map[string]any

// Extractor is stateless; the zero value uses ModeGreedy.
type Extractor struct {
	Mode Mode
}

// fences are stripped in order, so the language-tagged form goes first.
var fences = []string{"```json", "```JSON", "```"}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, f := range fences {
		s = strings.ReplaceAll(s, f, "")
	}
	return strings.TrimSpace(s)
}

// Candidate returns the object span the extractor would parse.
func (e Extractor) Candidate(raw string) (string, error) {
	text := stripFences(raw)
	if e.Mode == ModeBalanced {
		return balancedSpan(text)
	}
	return greedySpan(text)
}

func greedySpan(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", ErrNoDocument
	}
	return s[start : end+1], nil
}

func balancedSpan(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoDocument
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrUnterminated
}

func (e Extractor) parse(raw string, schema Schema) (string, Document, error) {
	candidate, err := e.Candidate(raw)
	if err != nil {
		return "", nil, &ExtractionError{Schema: schema.Name, Raw: raw, Err: err}
	}
	var doc Document
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return "", nil, &ExtractionError{Schema: schema.Name, Raw: raw, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	if err := schema.Validate(candidate); err != nil {
		return "", nil, err
	}
	return candidate, doc, nil
}

// Extract locates, parses and validates the object in raw.
func (e Extractor) Extract(raw string, schema Schema) (Document, error) {
	_, doc, err := e.parse(raw, schema)
	return doc, err
}

// Decode is Extract followed by unmarshalling into v. A field whose JSON
// type cannot be stored in v is reported as a SchemaValidationError.
func (e Extractor) Decode(raw string, schema Schema, v any) error {
	candidate, _, err := e.parse(raw, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return &SchemaValidationError{Schema: schema.Name, Mismatched: []string{ute.Field}}
		}
		return &ExtractionError{Schema: schema.Name, Raw: raw, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return nil
}

// Kind is the JSON shape a field must have.
type Kind int

const (
	KindAny Kind = iota
	// KindString accepts any scalar or list, matching session.Text.
	KindString
	KindNumber
	KindArray
	KindObject
)

type Field struct {
	Path     string // gjson path
	Kind     Kind
	Optional bool
}

// Schema is the set of fields a call site relies on.
type Schema struct {
	Name   string
	Fields []Field
}

// Validate checks a JSON object against the schema.
func (s Schema) Validate(candidate string) error {
	var missing, mismatched []string
	for _, f := range s.Fields {
		r := gjson.Get(candidate, f.Path)
		if !r.Exists() || r.Type == gjson.Null {
			if !f.Optional {
				missing = append(missing, f.Path)
			}
			continue
		}
		if !f.Kind.matches(r) {
			mismatched = append(mismatched, f.Path)
		}
	}
	if len(missing) > 0 || len(mismatched) > 0 {
		return &SchemaValidationError{Schema: s.Name, Missing: missing, Mismatched: mismatched}
	}
	return nil
}

func (k Kind) matches(r gjson.Result) bool {
	switch k {
	case KindString:
		return !r.IsObject()
	case KindNumber:
		return r.Type == gjson.Number
	case KindArray:
		return r.IsArray()
	case KindObject:
		return r.IsObject()
	}
	return true
}

// RootCauseSchema requires the keys the daily loop reads back.
var RootCauseSchema = Schema{
	Name: "root_cause",
	Fields: []Field{
		{Path: "emotional_root", Kind: KindString},
		{Path: "risk_level", Kind: KindString},
		{Path: "stress_index", Kind: KindString},
		{Path: "emotional_fragility_score", Kind: KindString},
	},
}

var PlanSchema = Schema{
	Name: "plan",
	Fields: []Field{
		{Path: "summary", Kind: KindString},
		{Path: "daily_plan", Kind: KindArray},
		{Path: "emergency_protocol", Kind: KindArray, Optional: true},
		{Path: "craving_replacement_kit", Kind: KindArray, Optional: true},
	},
}

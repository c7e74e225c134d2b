package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/githubnext/ocsfc/pkg/normalize"
)

// Event is a compiled event class: normalization followed by structural
// validation of its object schema.
type Event struct {
	schema     *Object
	normalizer *normalize.Normalizer
}

// NewEvent wraps schema with the normalization configured by cfg.
func NewEvent(schema *Object, cfg normalize.Config) *Event {
	return &Event{schema: schema, normalizer: normalize.New(cfg)}
}

// Name returns the event's corpus name.
func (e *Event) Name() string {
	return e.schema.Name()
}

// Schema returns the structural validator without normalization.
func (e *Event) Schema() *Object {
	return e.schema
}

// ClassUID returns the compiled class uid.
func (e *Event) ClassUID() int64 {
	return e.normalizer.Config().ClassUID
}

// CategoryUID returns the compiled category uid.
func (e *Event) CategoryUID() int64 {
	return e.normalizer.Config().CategoryUID
}

// Config returns the normalization configuration.
func (e *Event) Config() normalize.Config {
	return e.normalizer.Config()
}

// Parse normalizes input and validates the result. It returns the normalized
// record, or a *ValidationError. The input map is never modified.
func (e *Event) Parse(input map[string]any) (map[string]any, error) {
	normalized, err := e.normalizer.Normalize(input)
	if err != nil {
		var mismatch *normalize.MismatchError
		if !errors.As(err, &mismatch) {
			return nil, err
		}
		return nil, &ValidationError{
			Entity: e.Name(),
			Issues: []Issue{{
				Path:    Path{}.Child(mismatch.LabelField),
				Code:    CodeNormalization,
				Message: mismatch.Error(),
			}},
			cause: mismatch,
		}
	}

	if issues := e.schema.Check(normalized, nil); len(issues) > 0 {
		return nil, &ValidationError{Entity: e.Name(), Issues: issues}
	}
	return normalized, nil
}

// ParseJSON decodes one JSON object and parses it. Numbers are decoded as
// json.Number so 64-bit integers keep their precision.
func (e *Event) ParseJSON(data []byte) (map[string]any, error) {
	record, err := DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	return e.Parse(record)
}

// Result is the outcome of SafeParse.
type Result struct {
	Success bool
	Data    map[string]any
	Error   *ValidationError
}

// SafeParse is Parse returning a Result instead of an error.
func (e *Event) SafeParse(input map[string]any) Result {
	data, err := e.Parse(input)
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			verr = &ValidationError{Entity: e.Name(), Issues: []Issue{{Code: CodeInvalidType, Message: err.Error()}}, cause: err}
		}
		return Result{Error: verr}
	}
	return Result{Success: true, Data: data}
}

// DecodeRecord decodes one JSON object with numbers kept as json.Number.
func DecodeRecord(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("invalid JSON record: %w", err)
	}
	if record == nil {
		return nil, errors.New("invalid JSON record: expected an object")
	}
	return record, nil
}

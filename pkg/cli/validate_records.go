package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/githubnext/ocsfc/pkg/console"
	"github.com/githubnext/ocsfc/pkg/constants"
	"github.com/githubnext/ocsfc/pkg/corpus"
	"github.com/githubnext/ocsfc/pkg/emitter"
	"github.com/githubnext/ocsfc/pkg/logger"
	"github.com/githubnext/ocsfc/pkg/normalize"
	"github.com/githubnext/ocsfc/pkg/resolver"
	"github.com/githubnext/ocsfc/pkg/stringutil"
	"github.com/githubnext/ocsfc/pkg/validator"
)

var validateRecordsLog = logger.New("cli:validate_records")

// maxRecordSize bounds one NDJSON line.
const maxRecordSize = 16 * 1024 * 1024

// maxLoggedRecord bounds the record text in debug logs.
const maxLoggedRecord = 120

// stdinName is the file argument that reads standard input.
const stdinName = "-"

// ValidateConfig holds configuration for a validate run.
type ValidateConfig struct {
	CorpusDir string
	// Class validates every record as this event; empty selects by class_uid.
	Class string
	// Files are NDJSON inputs; empty or "-" reads the provided reader.
	Files      []string
	JSONOutput bool
	// JSONSchema cross-checks accepted records against the emitted documents.
	JSONSchema bool
	Verbose    bool
}

// RecordResult is the outcome of one record.
type RecordResult struct {
	Source   string            `json:"source"`
	Line     int               `json:"line"`
	Class    string            `json:"class,omitempty"`
	Valid    bool              `json:"valid"`
	Issues   []validator.Issue `json:"issues,omitempty"`
	Error    string            `json:"error,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// ValidationSummary counts record outcomes.
type ValidationSummary struct {
	Total   int
	Valid   int
	Invalid int
}

// recordValidator validates records against one compiled corpus.
type recordValidator struct {
	plan     *emitter.Plan
	registry *validator.Registry
	class    *validator.Event
	schemas  *emitter.SchemaSet
}

func newRecordValidator(ctx context.Context, config ValidateConfig) (*recordValidator, error) {
	if config.CorpusDir == "" {
		return nil, errors.New("no corpus directory: use --corpus")
	}
	plan, err := loadPlan(config.CorpusDir, false, config.Verbose)
	if err != nil {
		return nil, err
	}
	reg, err := emitter.Build(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to build validators: %w", err)
	}

	rv := &recordValidator{plan: plan, registry: reg}
	if config.Class != "" {
		event, ok := reg.Event(config.Class)
		if !ok {
			return nil, fmt.Errorf("unknown event class %q (known classes: %s)", config.Class, strings.Join(reg.EventNames(), ", "))
		}
		rv.class = event
	}

	if config.JSONSchema {
		result, err := emitter.Emit(ctx, plan, emitter.Options{Formats: []emitter.Format{emitter.FormatJSONSchema}})
		if err != nil {
			return nil, err
		}
		if rv.schemas, err = emitter.CompileJSONSchemas(result.Artifacts); err != nil {
			return nil, err
		}
	}
	return rv, nil
}

// validate checks one NDJSON line.
func (rv *recordValidator) validate(line []byte) RecordResult {
	var result RecordResult
	record, err := validator.DecodeRecord(line)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	event := rv.class
	if event == nil {
		event, err = rv.eventFor(record)
		if err != nil {
			result.Error = err.Error()
			return result
		}
	}
	result.Class = event.Name()
	if warning := recordVersionWarning(rv.registry.Version(), record); warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	parsed := event.SafeParse(record)
	if !parsed.Success {
		result.Issues = parsed.Error.Issues
		return result
	}

	if rv.schemas != nil {
		unit, ok := rv.plan.Unit(resolver.NodeKey{Type: corpus.EventEntity, Name: event.Name()})
		if ok {
			if err := rv.schemas.Validate(emitter.SchemaURL(emitter.DefaultSchemaBaseURL, unit), parsed.Data); err != nil {
				result.Error = "JSON Schema cross-check failed: " + err.Error()
				return result
			}
		}
	}
	result.Valid = true
	return result
}

func (rv *recordValidator) eventFor(record map[string]any) (*validator.Event, error) {
	raw, ok := record[constants.ClassUIDField]
	if !ok || raw == nil {
		return nil, fmt.Errorf("record has no %s; use --class to name the event class", constants.ClassUIDField)
	}
	uid, ok := normalize.Int64(raw)
	if !ok {
		return nil, fmt.Errorf("%s must be an integer, got %v", constants.ClassUIDField, raw)
	}
	event, ok := rv.registry.EventByClassUID(uid)
	if !ok {
		return nil, fmt.Errorf("unknown %s %d", constants.ClassUIDField, uid)
	}
	return event, nil
}

// ValidateRecords validates every record of the configured inputs, writing
// one outcome per record to out. It returns an error when any record failed;
// a failing record never stops the remaining ones.
func ValidateRecords(ctx context.Context, config ValidateConfig, stdin io.Reader, out io.Writer) (*ValidationSummary, error) {
	rv, err := newRecordValidator(ctx, config)
	if err != nil {
		return nil, err
	}

	files := config.Files
	if len(files) == 0 {
		files = []string{stdinName}
	}

	summary := &ValidationSummary{}
	enc := json.NewEncoder(out)
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		err := forEachRecord(name, stdin, func(line int, data []byte) error {
			result := rv.validate(data)
			result.Source = name
			result.Line = line

			summary.Total++
			if result.Valid {
				summary.Valid++
			} else {
				summary.Invalid++
			}
			if !result.Valid && validateRecordsLog.Enabled() {
				validateRecordsLog.Printf("Rejected %s:%d: %s", name, line, stringutil.Truncate(string(data), maxLoggedRecord))
			}
			if config.JSONOutput {
				return enc.Encode(result)
			}
			_, err := fmt.Fprintln(out, formatRecordResult(result))
			return err
		})
		if err != nil {
			return summary, err
		}
	}

	validateRecordsLog.Printf("Validated %d records: valid=%d, invalid=%d", summary.Total, summary.Valid, summary.Invalid)
	if !config.JSONOutput {
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("%d records: %d valid, %d invalid", summary.Total, summary.Valid, summary.Invalid)))
	}
	if summary.Invalid > 0 {
		return summary, fmt.Errorf("%d of %d records failed validation", summary.Invalid, summary.Total)
	}
	return summary, nil
}

// forEachRecord calls fn for every non-blank line of the named input.
func forEachRecord(name string, stdin io.Reader, fn func(line int, data []byte) error) error {
	var r io.Reader = stdin
	if name != stdinName {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}
		if err := fn(line, data); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	return nil
}

func formatRecordResult(r RecordResult) string {
	location := fmt.Sprintf("%s:%d", r.Source, r.Line)
	var sb strings.Builder
	switch {
	case r.Valid:
		sb.WriteString(console.FormatSuccessMessage(fmt.Sprintf("%s: valid %s", location, r.Class)))
	case r.Error != "":
		sb.WriteString(console.FormatErrorMessage(fmt.Sprintf("%s: %s", location, r.Error)))
	default:
		sb.WriteString(console.FormatErrorMessage(fmt.Sprintf("%s: invalid %s", location, r.Class)))
		for _, issue := range r.Issues {
			fmt.Fprintf(&sb, "\n  • %s", issue)
		}
	}
	for _, w := range r.Warnings {
		sb.WriteString("\n")
		sb.WriteString(console.FormatWarningMessage(fmt.Sprintf("%s: %s", location, w)))
	}
	return sb.String()
}

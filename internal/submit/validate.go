package submit

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"pkt.systems/codecanvas/schema"
)

//go:embed submission.schema.json
var submissionSchema []byte

const schemaURL = "mem://codecanvas/submission.schema.json"

// Validator checks submissions against the embedded JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the submission schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(submissionSchema)); err != nil {
		return nil, fmt.Errorf("load submission schema: %w", err)
	}
	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile submission schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate reports whether doc matches the schema. Failures wrap
// schema.ErrSubmissionInvalid.
func (v *Validator) Validate(doc schema.Submission) error {
	if doc.Files == nil {
		doc.Files = []schema.SubmittedFile{}
	}
	if doc.TerminalContent == nil {
		doc.TerminalContent = []string{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	if err := v.schema.Validate(value); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrSubmissionInvalid, err)
	}
	return nil
}

// Validated wraps next so that only valid documents reach it.
func Validated(next Sink, v *Validator) Sink {
	return validatedSink{next: next, validator: v}
}

type validatedSink struct {
	next      Sink
	validator *Validator
}

func (s validatedSink) Submit(ctx context.Context, doc schema.Submission) error {
	if s.validator != nil {
		if err := s.validator.Validate(doc); err != nil {
			return err
		}
	}
	if s.next == nil {
		return nil
	}
	return s.next.Submit(ctx, doc)
}

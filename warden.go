package warden

import (
	"fmt"
	"os"

	"github.com/zero-day-ai/warden/document"
	"github.com/zero-day-ai/warden/schema"
	"github.com/zero-day-ai/warden/validate"
)

// Version is the warden build version. Release builds override it:
//
//	go build -ldflags "-X github.com/zero-day-ai/warden.Version=v1.2.0"
var Version = "dev"

// Verify compiles a YAML schema definition, decodes a JSON document, and
// validates the document against the definition. It is the one-call entry
// point; callers that validate many documents against the same definition
// should compile once with schema.Parse and reuse a validate.Validator.
//
// The returned report lists every violation, not just the first. A non-nil
// error means one of the inputs could not be used at all: errors.Is matches
// ErrInvalidDefinition for definitions that do not compile and
// ErrInvalidDocument for documents that are not valid JSON.
//
// Example:
//
//	report, err := warden.Verify(definition, doc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !report.OK() {
//	    fmt.Println(report)
//	}
func Verify(definition, doc []byte, opts ...validate.Option) (*validate.Report, error) {
	root, err := schema.Parse(definition)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	value, err := document.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return validate.New(opts...).Validate(root, value), nil
}

// VerifyFiles is Verify for on-disk inputs: a YAML definition file and a
// JSON document file.
func VerifyFiles(definitionPath, documentPath string, opts ...validate.Option) (*validate.Report, error) {
	root, err := schema.ParseFile(definitionPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	data, err := os.ReadFile(documentPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	value, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return validate.New(opts...).Validate(root, value), nil
}

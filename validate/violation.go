package validate

import (
	"fmt"
	"strings"
)

// Violation is one schema rule the document broke. Violations are recorded
// with the path where they occurred and never mutated afterwards.
type Violation struct {
	Path   Path   `json:"path"`
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail"`
}

// String renders the violation as one report line.
func (v Violation) String() string {
	return fmt.Sprintf("%s [%s] %s", v.Path, v.Kind, v.Detail)
}

// Report is the outcome of validating one document against one schema. A
// report with no violations means the document conforms.
type Report struct {
	Violations []Violation `json:"violations,omitempty"`
}

// OK reports whether the document conforms to the schema.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Len returns the number of violations.
func (r *Report) Len() int {
	return len(r.Violations)
}

// String renders the report: "valid", or a header plus one line per
// violation.
func (r *Report) String() string {
	if r.OK() {
		return "valid"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "invalid: %d violation(s)", len(r.Violations))
	for _, v := range r.Violations {
		b.WriteString("\n  ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Package expr compiles and evaluates CEL predicates attached to schema nodes.
//
// An expression constrains a single scalar value. It is compiled and
// type-checked once when the schema is built, and evaluated many times during
// validation. The expression sees one variable, "value", typed according to
// the node it is attached to, and must produce a bool.
//
// Example expressions:
//
//	value % 2 == 0
//	value.startsWith("urn:")
//	value >= 0.0 && value < 1.0
package expr

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"
)

// Type is the declared CEL type of the value variable.
type Type string

// Supported variable types. Each maps to the corresponding CEL primitive.
const (
	String Type = "string"
	Int    Type = "int"
	Double Type = "double"
	Bool   Type = "bool"
)

// celType returns the CEL declaration type for t.
func (t Type) celType() *cel.Type {
	switch t {
	case Int:
		return cel.IntType
	case Double:
		return cel.DoubleType
	case Bool:
		return cel.BoolType
	default:
		return cel.StringType
	}
}

// Program is a compiled boolean expression over a single typed value.
// A Program is immutable and safe for concurrent evaluation.
type Program struct {
	src string
	prg cel.Program
}

// Compile parses and type-checks src against an environment containing a
// single variable named "value" of the given type. The expression must
// evaluate to bool.
func Compile(src string, t Type) (*Program, error) {
	env, err := cel.NewEnv(cel.Variable("value", t.celType()))
	if err != nil {
		return nil, fmt.Errorf("create expression environment: %w", err)
	}

	ast, iss := env.Compile(src)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile expression %q: %w", src, iss.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("expression %q must produce bool, got %s", src, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build expression program %q: %w", src, err)
	}

	return &Program{src: src, prg: prg}, nil
}

// Source returns the original expression text.
func (p *Program) Source() string {
	return p.src
}

// Eval runs the program with the given value bound to the "value" variable.
// The value's Go type must match the Type the program was compiled with
// (string, int64, float64, or bool).
func (p *Program) Eval(value any) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{"value": value})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", p.src, err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q produced %T, want bool", p.src, out.Value())
	}
	return b, nil
}

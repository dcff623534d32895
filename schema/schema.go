package schema

import (
	"regexp"

	"github.com/zero-day-ai/warden/expr"
)

// Kind identifies the type of value a Node accepts.
type Kind string

// Supported node kinds.
const (
	KindObject  Kind = "Object"
	KindString  Kind = "String"
	KindInteger Kind = "Integer"
	KindDecimal Kind = "Decimal"
	KindBool    Kind = "Bool"
	KindDate    Kind = "Date"
	KindMap     Kind = "Map"
	KindList    Kind = "List"
)

// IsValid reports whether k is a supported kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindObject, KindString, KindInteger, KindDecimal, KindBool, KindDate, KindMap, KindList:
		return true
	}
	return false
}

// String returns the kind name as it appears in definitions.
func (k Kind) String() string {
	return string(k)
}

// AllKinds returns every supported kind.
func AllKinds() []Kind {
	return []Kind{KindObject, KindString, KindInteger, KindDecimal, KindBool, KindDate, KindMap, KindList}
}

// KeyType constrains the keys of a Map node. JSON object keys are always
// strings on the wire; the key type says what each key must convert to.
// Key types are a closed enumeration, not full schema nodes.
type KeyType string

// Supported map key types.
const (
	KeyString  KeyType = "String"
	KeyBool    KeyType = "Bool"
	KeyDate    KeyType = "Date"
	KeyInteger KeyType = "Integer"
	KeyDouble  KeyType = "Double"
)

// IsValid reports whether k is a supported key type.
func (k KeyType) IsValid() bool {
	switch k {
	case KeyString, KeyBool, KeyDate, KeyInteger, KeyDouble:
		return true
	}
	return false
}

// String returns the key type name.
func (k KeyType) String() string {
	return string(k)
}

// AllKeyTypes returns every supported map key type.
func AllKeyTypes() []KeyType {
	return []KeyType{KeyString, KeyBool, KeyDate, KeyInteger, KeyDouble}
}

// ParseKeyType normalizes a key type spelling. Bool/Boolean and
// Double/Decimal/Float collapse to one key type each.
func ParseKeyType(s string) (KeyType, bool) {
	switch s {
	case "String":
		return KeyString, true
	case "Bool", "Boolean":
		return KeyBool, true
	case "Date":
		return KeyDate, true
	case "Integer":
		return KeyInteger, true
	case "Double", "Decimal", "Float":
		return KeyDouble, true
	}
	return "", false
}

// Field is one named member of an Object node. Field order is significant:
// validation visits fields in declaration order, which makes violation
// reports deterministic.
type Field struct {
	Name string
	Node *Node
}

// Node is one vertex of a schema tree. Exactly the fields relevant to its
// Kind are set; the rest stay zero. Nodes are immutable once built and safe
// for concurrent use by any number of validators.
type Node struct {
	Kind Kind

	// Nullable admits JSON null in place of the declared kind. Spelled with
	// a ? suffix in definitions (String?).
	Nullable bool

	// Fields holds the ordered members of an Object node.
	Fields []Field

	// String constraints. Lengths count Unicode code points. Pattern is the
	// compiled full-string form of PatternSource.
	MinLength     *int
	MaxLength     *int
	Pattern       *regexp.Regexp
	PatternSource string
	Enum          []string

	// Integer bounds, inclusive.
	Min *int64
	Max *int64

	// Decimal bounds, inclusive.
	MinDec *float64
	MaxDec *float64

	// Expr is an optional compiled predicate over the scalar value.
	Expr *expr.Program

	// KeyType and Value describe a Map node.
	KeyType KeyType
	Value   *Node

	// Elem is the element schema of a List node.
	Elem *Node
}

// Object returns an Object node with the given fields, in order.
func Object(fields ...Field) *Node {
	return &Node{Kind: KindObject, Fields: fields}
}

// String returns an unconstrained String node.
func String() *Node {
	return &Node{Kind: KindString}
}

// Integer returns an unconstrained Integer node.
func Integer() *Node {
	return &Node{Kind: KindInteger}
}

// Decimal returns an unconstrained Decimal node.
func Decimal() *Node {
	return &Node{Kind: KindDecimal}
}

// Bool returns a Bool node.
func Bool() *Node {
	return &Node{Kind: KindBool}
}

// Date returns a Date node. Values must be YYYY-MM-DD strings.
func Date() *Node {
	return &Node{Kind: KindDate}
}

// List returns a List node whose elements validate against elem.
func List(elem *Node) *Node {
	return &Node{Kind: KindList, Elem: elem}
}

// Map returns a Map node with the given key type and value schema.
func Map(key KeyType, value *Node) *Node {
	return &Node{Kind: KindMap, KeyType: key, Value: value}
}

// Nullable marks n as accepting JSON null and returns it.
func Nullable(n *Node) *Node {
	n.Nullable = true
	return n
}

// WithMinLength sets the minimum string length and returns n.
func (n *Node) WithMinLength(v int) *Node {
	n.MinLength = &v
	return n
}

// WithMaxLength sets the maximum string length and returns n.
func (n *Node) WithMaxLength(v int) *Node {
	n.MaxLength = &v
	return n
}

// WithEnum restricts a String node to the given values and returns n.
func (n *Node) WithEnum(values ...string) *Node {
	n.Enum = values
	return n
}

// WithPattern compiles pat as a full-string match and attaches it to n.
func (n *Node) WithPattern(pat string) (*Node, error) {
	re, err := compilePattern(pat)
	if err != nil {
		return nil, err
	}
	n.Pattern = re
	n.PatternSource = pat
	return n, nil
}

// WithMin sets the inclusive integer minimum and returns n.
func (n *Node) WithMin(v int64) *Node {
	n.Min = &v
	return n
}

// WithMax sets the inclusive integer maximum and returns n.
func (n *Node) WithMax(v int64) *Node {
	n.Max = &v
	return n
}

// WithMinDecimal sets the inclusive decimal minimum and returns n.
func (n *Node) WithMinDecimal(v float64) *Node {
	n.MinDec = &v
	return n
}

// WithMaxDecimal sets the inclusive decimal maximum and returns n.
func (n *Node) WithMaxDecimal(v float64) *Node {
	n.MaxDec = &v
	return n
}

// WithExpr compiles a CEL predicate for n's kind and attaches it. Only
// scalar kinds (String, Integer, Decimal, Bool) accept expressions.
func (n *Node) WithExpr(src string) (*Node, error) {
	t, ok := exprTypeFor(n.Kind)
	if !ok {
		return nil, newConfigError("$", CodeInvalidExpr, "expressions are not supported on %s nodes", n.Kind)
	}
	prg, err := expr.Compile(src, t)
	if err != nil {
		return nil, &ConfigError{Path: "$", Code: CodeInvalidExpr, Message: "invalid expression", Err: err}
	}
	n.Expr = prg
	return n, nil
}

// exprTypeFor maps a scalar kind to its expression variable type.
func exprTypeFor(k Kind) (expr.Type, bool) {
	switch k {
	case KindString:
		return expr.String, true
	case KindInteger:
		return expr.Int, true
	case KindDecimal:
		return expr.Double, true
	case KindBool:
		return expr.Bool, true
	}
	return "", false
}

// compilePattern anchors pat so matches must cover the whole string, then
// compiles it.
func compilePattern(pat string) (*regexp.Regexp, error) {
	return regexp.Compile(`\A(?:` + pat + `)\z`)
}

// Check verifies the structural invariants of a programmatically built tree:
// valid kinds, ordered bounds, non-negative lengths, unique field names,
// present Map/List children, and the absence of self-references. Trees
// produced by Parse already satisfy these.
func (n *Node) Check() error {
	if err := n.check("$", map[*Node]bool{}); err != nil {
		return err
	}
	return nil
}

func (n *Node) check(path string, ancestors map[*Node]bool) *ConfigError {
	if n == nil {
		return newConfigError(path, CodeInvalidType, "nil schema node")
	}
	if ancestors[n] {
		return newConfigError(path, CodeCyclicSchema, "schema node references one of its ancestors")
	}
	if !n.Kind.IsValid() {
		return newConfigError(path, CodeInvalidType, "unknown kind %q", string(n.Kind))
	}

	ancestors[n] = true
	defer delete(ancestors, n)

	switch n.Kind {
	case KindObject:
		seen := make(map[string]bool, len(n.Fields))
		for _, f := range n.Fields {
			if f.Name == "" {
				return newConfigError(path, CodeInvalidType, "object field with empty name")
			}
			if seen[f.Name] {
				return newConfigError(path, CodeDuplicateField, "field %q is declared more than once", f.Name)
			}
			seen[f.Name] = true
			if err := f.Node.check(path+"."+f.Name, ancestors); err != nil {
				return err
			}
		}

	case KindString:
		if n.MinLength != nil && *n.MinLength < 0 {
			return newConfigError(path, CodeInvalidConstraint, "min_length must be non-negative, got %d", *n.MinLength)
		}
		if n.MaxLength != nil && *n.MaxLength < 0 {
			return newConfigError(path, CodeInvalidConstraint, "max_length must be non-negative, got %d", *n.MaxLength)
		}
		if n.MinLength != nil && n.MaxLength != nil && *n.MinLength > *n.MaxLength {
			return newConfigError(path, CodeInvalidBounds, "min_length %d exceeds max_length %d", *n.MinLength, *n.MaxLength)
		}

	case KindInteger:
		if n.Min != nil && n.Max != nil && *n.Min > *n.Max {
			return newConfigError(path, CodeInvalidBounds, "min %d exceeds max %d", *n.Min, *n.Max)
		}

	case KindDecimal:
		if n.MinDec != nil && n.MaxDec != nil && *n.MinDec > *n.MaxDec {
			return newConfigError(path, CodeInvalidBounds, "min %v exceeds max %v", *n.MinDec, *n.MaxDec)
		}

	case KindMap:
		if !n.KeyType.IsValid() {
			return newConfigError(path, CodeInvalidKeyType, "unknown key type %q", string(n.KeyType))
		}
		if n.Value == nil {
			return newConfigError(path, CodeMissingValueType, "map without a value schema")
		}
		if err := n.Value.check(path+".+ValueType", ancestors); err != nil {
			return err
		}

	case KindList:
		if n.Elem == nil {
			return newConfigError(path, CodeMissingValueType, "list without an element schema")
		}
		if err := n.Elem.check(path+".+ValueType", ancestors); err != nil {
			return err
		}
	}

	return nil
}

package schema

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/warden/expr"
)

// maxBuildDepth bounds definition nesting. Deeper definitions fail with
// SCHEMA_TOO_DEEP rather than exhausting the stack.
const maxBuildDepth = 256

// rootKey is the required top-level key of a definition.
const rootKey = "Root"

// Parse builds a schema tree from a YAML definition. The definition must be
// a mapping whose Root key holds the root node. Every node is either a
// mapping with a +type discriminator or, for leaf kinds, a bare type name
// (name: String). A ? suffix on a type name marks the node nullable.
//
// Parse fails fast on the first configuration error: unknown or duplicate
// constraint keys, missing +type, invalid bounds, a List without +ValueType,
// a Map without +KeyType or +ValueType, malformed patterns or expressions.
// The returned error is always a *ConfigError carrying the schema path and a
// stable code.
func Parse(definition []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(definition, &doc); err != nil {
		return nil, &ConfigError{Path: "$", Code: CodeInvalidDefinition, Message: "definition is not valid YAML", Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, newConfigError("$", CodeMissingRoot, "definition is empty")
	}

	top := deref(doc.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, newConfigError("$", CodeMissingRoot, "definition must be a mapping with a %q key", rootKey)
	}

	var root *yaml.Node
	for _, p := range mappingPairs(top) {
		if p.key.Value == rootKey {
			root = p.val
			break
		}
	}
	if root == nil {
		return nil, newConfigError("$", CodeMissingRoot, "definition must declare the top-level %q key", rootKey)
	}

	n, cerr := build(root, "$", 1)
	if cerr != nil {
		return nil, cerr
	}
	return n, nil
}

// ParseFile reads and parses a definition file.
func ParseFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: "$", Code: CodeInvalidDefinition, Message: "read definition", Err: err}
	}
	return Parse(data)
}

// pair is one key/value entry of a YAML mapping.
type pair struct {
	key *yaml.Node
	val *yaml.Node
}

// deref follows YAML anchor aliases to the target node. The YAML parser
// rejects self-referential anchors, so this terminates.
func deref(y *yaml.Node) *yaml.Node {
	for y != nil && y.Kind == yaml.AliasNode && y.Alias != nil {
		y = y.Alias
	}
	return y
}

// mappingPairs returns the entries of a mapping node in declaration order.
func mappingPairs(y *yaml.Node) []pair {
	pairs := make([]pair, 0, len(y.Content)/2)
	for i := 0; i+1 < len(y.Content); i += 2 {
		pairs = append(pairs, pair{key: deref(y.Content[i]), val: y.Content[i+1]})
	}
	return pairs
}

// entry is a constraint value together with the spelling that introduced it.
type entry struct {
	spelling string
	val      *yaml.Node
}

// resolveConstraints normalizes the +-prefixed keys of one node. It rejects
// spellings outside the reserved set and two spellings that resolve to the
// same canonical constraint.
func resolveConstraints(plus []pair, path string) (map[string]entry, *ConfigError) {
	out := make(map[string]entry, len(plus))
	for _, p := range plus {
		key := p.key.Value
		canon, ok := ResolveAlias(key)
		if !ok {
			return nil, newConfigError(path, CodeUnknownConstraint, "unknown constraint key %q", key)
		}
		if prev, dup := out[canon]; dup {
			return nil, newConfigError(path, CodeDuplicateConstraint,
				"constraint %q conflicts with %q; both set %s", key, prev.spelling, canon)
		}
		out[canon] = entry{spelling: key, val: p.val}
	}
	return out, nil
}

func build(y *yaml.Node, path string, depth int) (*Node, *ConfigError) {
	if depth > maxBuildDepth {
		return nil, newConfigError(path, CodeTooDeep, "definition nesting exceeds %d levels", maxBuildDepth)
	}

	y = deref(y)
	switch {
	case y == nil:
		return nil, newConfigError(path, CodeInvalidType, "empty type definition")
	case y.Kind == yaml.ScalarNode:
		return buildScalar(y, path)
	case y.Kind == yaml.MappingNode:
		return buildMapping(y, path, depth)
	default:
		return nil, newConfigError(path, CodeInvalidType, "type definition must be a mapping or a type name")
	}
}

// buildScalar handles the abbreviated form: a bare type name in place of a
// mapping. Only leaf kinds may be abbreviated.
func buildScalar(y *yaml.Node, path string) (*Node, *ConfigError) {
	kind, nullable, ok := parseTypeName(y.Value)
	if !ok {
		return nil, newConfigError(path, CodeInvalidType, "unknown type %q", y.Value)
	}
	switch kind {
	case KindObject, KindMap, KindList:
		return nil, newConfigError(path, CodeInvalidType, "%s requires a mapping with %q", kind, "+type")
	}
	return &Node{Kind: kind, Nullable: nullable}, nil
}

// parseTypeName resolves a type name, honoring the ? nullability suffix and
// the accepted spelling variants (Decimal/Float, Bool/Boolean).
func parseTypeName(s string) (Kind, bool, bool) {
	nullable := strings.HasSuffix(s, "?")
	switch strings.TrimSuffix(s, "?") {
	case "Object":
		return KindObject, nullable, true
	case "String":
		return KindString, nullable, true
	case "Integer":
		return KindInteger, nullable, true
	case "Decimal", "Float":
		return KindDecimal, nullable, true
	case "Bool", "Boolean":
		return KindBool, nullable, true
	case "Date":
		return KindDate, nullable, true
	case "Map":
		return KindMap, nullable, true
	case "List":
		return KindList, nullable, true
	}
	return "", false, false
}

func buildMapping(y *yaml.Node, path string, depth int) (*Node, *ConfigError) {
	var plus, fields []pair
	for _, p := range mappingPairs(y) {
		if p.key.Kind != yaml.ScalarNode {
			return nil, newConfigError(path, CodeInvalidDefinition, "mapping keys must be strings")
		}
		if strings.HasPrefix(p.key.Value, "+") {
			plus = append(plus, p)
		} else {
			fields = append(fields, p)
		}
	}

	resolved, cerr := resolveConstraints(plus, path)
	if cerr != nil {
		return nil, cerr
	}

	typeEntry, ok := resolved[ConstraintType]
	if !ok {
		return nil, newConfigError(path, CodeMissingType, "type definition is missing the %q property", "+type")
	}
	typeName, cerr := scalarValue(typeEntry, path)
	if cerr != nil {
		return nil, cerr
	}
	kind, nullable, ok := parseTypeName(typeName)
	if !ok {
		return nil, newConfigError(path, CodeInvalidType, "unknown type %q", typeName)
	}

	// Reserved keys must apply to the declared kind; report in declaration
	// order so the first offending key wins.
	allowed := kindConstraints[kind]
	for _, p := range plus {
		canon, _ := ResolveAlias(p.key.Value)
		if !allowed[canon] {
			return nil, newConfigError(path, CodeUnknownConstraint,
				"constraint %q does not apply to %s", p.key.Value, kind)
		}
	}
	if kind != KindObject && len(fields) > 0 {
		return nil, newConfigError(path, CodeUnknownConstraint,
			"unexpected key %q on a %s node", fields[0].key.Value, kind)
	}

	n := &Node{Kind: kind, Nullable: nullable}

	switch kind {
	case KindObject:
		seen := make(map[string]bool, len(fields))
		for _, f := range fields {
			name := f.key.Value
			if name == "" {
				return nil, newConfigError(path, CodeInvalidType, "object field with empty name")
			}
			if seen[name] {
				return nil, newConfigError(path, CodeDuplicateField, "field %q is declared more than once", name)
			}
			seen[name] = true
			child, cerr := build(f.val, path+"."+name, depth+1)
			if cerr != nil {
				return nil, cerr
			}
			n.Fields = append(n.Fields, Field{Name: name, Node: child})
		}

	case KindString:
		if cerr := applyStringConstraints(n, resolved, path); cerr != nil {
			return nil, cerr
		}

	case KindInteger:
		if cerr := applyIntegerConstraints(n, resolved, path); cerr != nil {
			return nil, cerr
		}

	case KindDecimal:
		if cerr := applyDecimalConstraints(n, resolved, path); cerr != nil {
			return nil, cerr
		}

	case KindMap:
		kt, ok := resolved[ConstraintKeyType]
		if !ok {
			return nil, newConfigError(path, CodeMissingKeyType, "Map requires the %q property", "+KeyType")
		}
		vt, ok := resolved[ConstraintValueType]
		if !ok {
			return nil, newConfigError(path, CodeMissingValueType, "Map requires the %q property", "+ValueType")
		}
		keyType, cerr := buildKeyType(kt, path)
		if cerr != nil {
			return nil, cerr
		}
		value, cerr := build(vt.val, path+"."+vt.spelling, depth+1)
		if cerr != nil {
			return nil, cerr
		}
		n.KeyType = keyType
		n.Value = value

	case KindList:
		vt, ok := resolved[ConstraintValueType]
		if !ok {
			return nil, newConfigError(path, CodeMissingValueType, "List requires the %q property", "+ValueType")
		}
		elem, cerr := build(vt.val, path+"."+vt.spelling, depth+1)
		if cerr != nil {
			return nil, cerr
		}
		n.Elem = elem
	}

	if e, ok := resolved[ConstraintExpr]; ok {
		src, cerr := scalarValue(e, path)
		if cerr != nil {
			return nil, cerr
		}
		t, scalar := exprTypeFor(kind)
		if !scalar {
			return nil, newConfigError(path, CodeInvalidExpr, "expressions are not supported on %s nodes", kind)
		}
		prg, err := expr.Compile(src, t)
		if err != nil {
			return nil, &ConfigError{Path: path, Code: CodeInvalidExpr, Message: "invalid expression", Err: err}
		}
		n.Expr = prg
	}

	return n, nil
}

// buildKeyType resolves a +KeyType value: a bare key type name, or a mapping
// carrying only +type. Constraints on key types are not supported; map keys
// are primitives, not nested schemas.
func buildKeyType(e entry, path string) (KeyType, *ConfigError) {
	kpath := path + "." + e.spelling
	y := deref(e.val)

	var name string
	switch {
	case y == nil:
		return "", newConfigError(kpath, CodeInvalidKeyType, "empty key type")
	case y.Kind == yaml.ScalarNode:
		name = y.Value
	case y.Kind == yaml.MappingNode:
		pairs := mappingPairs(y)
		if len(pairs) != 1 || pairs[0].key.Value != "+type" {
			return "", newConfigError(kpath, CodeInvalidKeyType, "key types accept only a %q property", "+type")
		}
		inner := deref(pairs[0].val)
		if inner == nil || inner.Kind != yaml.ScalarNode {
			return "", newConfigError(kpath, CodeInvalidKeyType, "key type name must be a string")
		}
		name = inner.Value
	default:
		return "", newConfigError(kpath, CodeInvalidKeyType, "key type must be a type name")
	}

	kt, ok := ParseKeyType(name)
	if !ok {
		return "", newConfigError(kpath, CodeInvalidKeyType,
			"unsupported key type %q; keys must be one of %v", name, AllKeyTypes())
	}
	return kt, nil
}

func applyStringConstraints(n *Node, resolved map[string]entry, path string) *ConfigError {
	if e, ok := resolved[ConstraintMinLength]; ok {
		v, cerr := lengthValue(e, path)
		if cerr != nil {
			return cerr
		}
		n.MinLength = &v
	}
	if e, ok := resolved[ConstraintMaxLength]; ok {
		v, cerr := lengthValue(e, path)
		if cerr != nil {
			return cerr
		}
		n.MaxLength = &v
	}
	if n.MinLength != nil && n.MaxLength != nil && *n.MinLength > *n.MaxLength {
		return newConfigError(path, CodeInvalidBounds, "min_length %d exceeds max_length %d", *n.MinLength, *n.MaxLength)
	}

	if e, ok := resolved[ConstraintRegex]; ok {
		src, cerr := scalarValue(e, path)
		if cerr != nil {
			return cerr
		}
		re, err := compilePattern(src)
		if err != nil {
			return &ConfigError{Path: path, Code: CodeInvalidPattern, Message: "invalid pattern " + strconv.Quote(src), Err: err}
		}
		n.Pattern = re
		n.PatternSource = src
	}

	if e, ok := resolved[ConstraintEnum]; ok {
		y := deref(e.val)
		if y == nil || y.Kind != yaml.SequenceNode {
			return newConfigError(path, CodeInvalidConstraint, "%s must be a list of strings", e.spelling)
		}
		if len(y.Content) == 0 {
			return newConfigError(path, CodeInvalidConstraint, "%s requires at least one value", e.spelling)
		}
		for _, item := range y.Content {
			item = deref(item)
			if item == nil || item.Kind != yaml.ScalarNode {
				return newConfigError(path, CodeInvalidConstraint, "%s must be a list of strings", e.spelling)
			}
			n.Enum = append(n.Enum, item.Value)
		}
	}

	return nil
}

func applyIntegerConstraints(n *Node, resolved map[string]entry, path string) *ConfigError {
	if e, ok := resolved[ConstraintMin]; ok {
		v, cerr := int64Value(e, path)
		if cerr != nil {
			return cerr
		}
		n.Min = &v
	}
	if e, ok := resolved[ConstraintMax]; ok {
		v, cerr := int64Value(e, path)
		if cerr != nil {
			return cerr
		}
		n.Max = &v
	}
	if n.Min != nil && n.Max != nil && *n.Min > *n.Max {
		return newConfigError(path, CodeInvalidBounds, "min %d exceeds max %d", *n.Min, *n.Max)
	}
	return nil
}

func applyDecimalConstraints(n *Node, resolved map[string]entry, path string) *ConfigError {
	if e, ok := resolved[ConstraintMin]; ok {
		v, cerr := float64Value(e, path)
		if cerr != nil {
			return cerr
		}
		n.MinDec = &v
	}
	if e, ok := resolved[ConstraintMax]; ok {
		v, cerr := float64Value(e, path)
		if cerr != nil {
			return cerr
		}
		n.MaxDec = &v
	}
	if n.MinDec != nil && n.MaxDec != nil && *n.MinDec > *n.MaxDec {
		return newConfigError(path, CodeInvalidBounds, "min %v exceeds max %v", *n.MinDec, *n.MaxDec)
	}
	return nil
}

// scalarValue returns the string content of a scalar constraint value.
func scalarValue(e entry, path string) (string, *ConfigError) {
	y := deref(e.val)
	if y == nil || y.Kind != yaml.ScalarNode {
		return "", newConfigError(path, CodeInvalidConstraint, "%s must be a scalar value", e.spelling)
	}
	return y.Value, nil
}

// lengthValue parses a non-negative integer constraint value.
func lengthValue(e entry, path string) (int, *ConfigError) {
	s, cerr := scalarValue(e, path)
	if cerr != nil {
		return 0, cerr
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, newConfigError(path, CodeInvalidConstraint, "%s must be an integer, got %q", e.spelling, s)
	}
	if v < 0 {
		return 0, newConfigError(path, CodeInvalidConstraint, "%s must be non-negative, got %d", e.spelling, v)
	}
	return v, nil
}

// int64Value parses an integer constraint value.
func int64Value(e entry, path string) (int64, *ConfigError) {
	s, cerr := scalarValue(e, path)
	if cerr != nil {
		return 0, cerr
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, newConfigError(path, CodeInvalidConstraint, "%s must be an integer, got %q", e.spelling, s)
	}
	return v, nil
}

// float64Value parses a numeric constraint value.
func float64Value(e entry, path string) (float64, *ConfigError) {
	s, cerr := scalarValue(e, path)
	if cerr != nil {
		return 0, cerr
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, newConfigError(path, CodeInvalidConstraint, "%s must be a number, got %q", e.spelling, s)
	}
	return v, nil
}

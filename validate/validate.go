package validate

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zero-day-ai/warden/document"
	"github.com/zero-day-ai/warden/schema"
)

// DefaultMaxDepth bounds the recursive walk when no option overrides it.
const DefaultMaxDepth = 256

// dateRe is the accepted Date shape: YYYY-MM-DD with month 01-12 and day
// 01-31. Also applied to Date map keys.
var dateRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)

// Option configures a Validator.
type Option func(*Validator)

// WithMaxDepth sets the recursion limit. Values below one are ignored.
func WithMaxDepth(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxDepth = n
		}
	}
}

// WithStrictIntegers rejects any fractional-typed number against Integer
// nodes, including 2.0. The default accepts numbers whose fractional part is
// exactly zero.
func WithStrictIntegers() Option {
	return func(v *Validator) {
		v.strictInts = true
	}
}

// WithAllowMissingFields treats declared Object fields absent from the
// document as permitted instead of recording missing_field violations.
func WithAllowMissingFields() Option {
	return func(v *Validator) {
		v.allowMissing = true
	}
}

// Validator checks documents against schema trees. It holds only matching
// policy, performs no I/O, and is safe for concurrent use; equal inputs
// always produce equal reports.
type Validator struct {
	maxDepth     int
	strictInts   bool
	allowMissing bool
}

// New returns a Validator with the given options applied.
func New(opts ...Option) *Validator {
	v := &Validator{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Document validates doc against root with default options.
func Document(root *schema.Node, doc document.Value) *Report {
	return New().Validate(root, doc)
}

// Validate walks the schema tree and the document together and collects
// every violation; it never stops at the first. Violations appear in
// deterministic order: object fields in schema declaration order, list
// elements by index, map entries in document order.
//
// The schema tree must be well formed (built by schema.Parse or checked with
// Node.Check).
func (v *Validator) Validate(root *schema.Node, doc document.Value) *Report {
	w := &walker{v: v}
	w.walk(root, doc, 0)
	return &Report{Violations: w.out}
}

// walker carries the state of one validation pass. The path slice is a
// scratch stack; recorded violations get their own copy.
type walker struct {
	v    *Validator
	path []Segment
	out  []Violation
}

func (w *walker) push(s Segment) {
	w.path = append(w.path, s)
}

func (w *walker) pop() {
	w.path = w.path[:len(w.path)-1]
}

func (w *walker) record(kind Kind, format string, args ...any) {
	p := make(Path, len(w.path))
	copy(p, w.path)
	w.out = append(w.out, Violation{Path: p, Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

func (w *walker) mismatch(want schema.Kind, got document.Value) {
	w.record(KindTypeMismatch, "expected %s, got %s", want, got.Kind())
}

func (w *walker) walk(n *schema.Node, val document.Value, depth int) {
	if depth > w.v.maxDepth {
		w.record(KindDepthExceeded, "nesting depth %d exceeds limit %d", depth, w.v.maxDepth)
		return
	}

	if _, isNull := val.(document.Null); isNull {
		if !n.Nullable {
			w.record(KindNullDisallowed, "null value for non-nullable %s", n.Kind)
		}
		return
	}

	switch n.Kind {
	case schema.KindObject:
		w.walkObject(n, val, depth)
	case schema.KindString:
		w.walkString(n, val)
	case schema.KindInteger:
		w.walkInteger(n, val)
	case schema.KindDecimal:
		w.walkDecimal(n, val)
	case schema.KindBool:
		w.walkBool(n, val)
	case schema.KindDate:
		w.walkDate(n, val)
	case schema.KindList:
		w.walkList(n, val, depth)
	case schema.KindMap:
		w.walkMap(n, val, depth)
	}
}

func (w *walker) walkObject(n *schema.Node, val document.Value, depth int) {
	obj, ok := val.(document.Object)
	if !ok {
		w.mismatch(n.Kind, val)
		return
	}

	// Fields the schema does not declare are ignored: adding unrelated
	// fields never invalidates a conforming document.
	for _, f := range n.Fields {
		w.push(FieldSegment(f.Name))
		child, present := obj.Get(f.Name)
		switch {
		case !present && !w.v.allowMissing:
			w.record(KindMissingField, "required field %q is missing", f.Name)
		case present:
			w.walk(f.Node, child, depth+1)
		}
		w.pop()
	}
}

func (w *walker) walkString(n *schema.Node, val document.Value) {
	s, ok := val.(document.String)
	if !ok {
		w.mismatch(n.Kind, val)
		return
	}

	str := string(s)
	length := utf8.RuneCountInString(str)

	if n.MinLength != nil && length < *n.MinLength {
		w.record(KindConstraintFailed, "min_length: length %d is below minimum %d", length, *n.MinLength)
	}
	if n.MaxLength != nil && length > *n.MaxLength {
		w.record(KindConstraintFailed, "max_length: length %d exceeds maximum %d", length, *n.MaxLength)
	}
	if n.Pattern != nil && !n.Pattern.MatchString(str) {
		w.record(KindConstraintFailed, "regex: %q does not match %s", str, n.PatternSource)
	}
	if len(n.Enum) > 0 && !slices.Contains(n.Enum, str) {
		w.record(KindConstraintFailed, "enum: %q is not one of %v", str, n.Enum)
	}
	w.exprCheck(n, str)
}

func (w *walker) walkInteger(n *schema.Node, val document.Value) {
	var iv int64
	switch t := val.(type) {
	case document.Integer:
		iv = int64(t)
	case document.Decimal:
		if w.v.strictInts {
			w.mismatch(n.Kind, val)
			return
		}
		f := float64(t)
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			w.mismatch(n.Kind, val)
			return
		}
		iv = int64(f)
	default:
		w.mismatch(n.Kind, val)
		return
	}

	if n.Min != nil && iv < *n.Min {
		w.record(KindConstraintFailed, "min: %d is below minimum %d", iv, *n.Min)
	}
	if n.Max != nil && iv > *n.Max {
		w.record(KindConstraintFailed, "max: %d exceeds maximum %d", iv, *n.Max)
	}
	w.exprCheck(n, iv)
}

func (w *walker) walkDecimal(n *schema.Node, val document.Value) {
	var f float64
	switch t := val.(type) {
	case document.Decimal:
		f = float64(t)
	case document.Integer:
		// Whole numbers widen; a decimal range naturally covers them.
		f = float64(int64(t))
	default:
		w.mismatch(n.Kind, val)
		return
	}

	if n.MinDec != nil && f < *n.MinDec {
		w.record(KindConstraintFailed, "min: %v is below minimum %v", f, *n.MinDec)
	}
	if n.MaxDec != nil && f > *n.MaxDec {
		w.record(KindConstraintFailed, "max: %v exceeds maximum %v", f, *n.MaxDec)
	}
	w.exprCheck(n, f)
}

func (w *walker) walkBool(n *schema.Node, val document.Value) {
	b, ok := val.(document.Bool)
	if !ok {
		w.mismatch(n.Kind, val)
		return
	}
	w.exprCheck(n, bool(b))
}

func (w *walker) walkDate(n *schema.Node, val document.Value) {
	s, ok := val.(document.String)
	if !ok {
		w.mismatch(n.Kind, val)
		return
	}
	if !dateRe.MatchString(string(s)) {
		w.record(KindConstraintFailed, "date: %q is not a YYYY-MM-DD date", string(s))
	}
}

func (w *walker) walkList(n *schema.Node, val document.Value, depth int) {
	list, ok := val.(document.List)
	if !ok {
		w.mismatch(n.Kind, val)
		return
	}

	for i, elem := range list {
		w.push(IndexSegment(i))
		w.walk(n.Elem, elem, depth+1)
		w.pop()
	}
}

func (w *walker) walkMap(n *schema.Node, val document.Value, depth int) {
	obj, ok := val.(document.Object)
	if !ok {
		w.mismatch(n.Kind, val)
		return
	}

	for _, m := range obj {
		w.push(KeySegment(m.Key))
		if !keyConverts(n.KeyType, m.Key) {
			w.record(KindKeyTypeMismatch, "key %q does not convert to %s", m.Key, n.KeyType)
		}
		w.walk(n.Value, m.Value, depth+1)
		w.pop()
	}
}

// exprCheck evaluates an attached expression constraint against a scalar
// value. Evaluation errors count as failed constraints, not as crashes.
func (w *walker) exprCheck(n *schema.Node, value any) {
	if n.Expr == nil {
		return
	}
	ok, err := n.Expr.Eval(value)
	if err != nil {
		w.record(KindConstraintFailed, "expr: %v", err)
		return
	}
	if !ok {
		w.record(KindConstraintFailed, "expr: %q is not satisfied by %v", n.Expr.Source(), value)
	}
}

// keyConverts reports whether a map key converts to the declared key type.
func keyConverts(kt schema.KeyType, key string) bool {
	switch kt {
	case schema.KeyString:
		return true
	case schema.KeyInteger:
		_, err := strconv.ParseInt(key, 10, 64)
		return err == nil
	case schema.KeyDouble:
		_, err := strconv.ParseFloat(key, 64)
		return err == nil
	case schema.KeyBool:
		switch strings.ToLower(key) {
		case "true", "false", "1", "0":
			return true
		}
		return false
	case schema.KeyDate:
		return dateRe.MatchString(key)
	}
	return false
}

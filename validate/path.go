package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// segmentKind discriminates the three path step types.
type segmentKind uint8

const (
	segField segmentKind = iota
	segIndex
	segKey
)

// Segment is one step of a path: an object field, a list index, or a map
// key. Segments are immutable values.
type Segment struct {
	kind  segmentKind
	name  string
	index int
}

// FieldSegment returns a step through an object field.
func FieldSegment(name string) Segment {
	return Segment{kind: segField, name: name}
}

// IndexSegment returns a step through a list element.
func IndexSegment(i int) Segment {
	return Segment{kind: segIndex, index: i}
}

// KeySegment returns a step through a map entry.
func KeySegment(key string) Segment {
	return Segment{kind: segKey, name: key}
}

// String renders a single segment the way it appears within a path.
func (s Segment) String() string {
	switch s.kind {
	case segIndex:
		return "[" + strconv.Itoa(s.index) + "]"
	case segKey:
		if !bareKey(s.name) {
			return "[" + strconv.Quote(s.name) + "]"
		}
		return "." + s.name
	default:
		return "." + s.name
	}
}

// bareKeyRe matches map keys that render dotted; anything else renders
// bracket-quoted.
var bareKeyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

func bareKey(s string) bool {
	return bareKeyRe.MatchString(s)
}

// Path locates a value within a document, rooted at $. A nil Path is the
// document root.
type Path []Segment

// String renders the path in JSONPath style: $.vehicles.list[2].year,
// $.people["New York"].
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, s := range p {
		b.WriteString(s.String())
	}
	return b.String()
}

// MarshalJSON encodes the path as its rendered string.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses a rendered path string. Dotted segments parse as
// field steps; the field/key distinction of dotted map keys does not survive
// a round trip.
func (p *Path) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePath(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePath parses a rendered path back into segments.
func ParsePath(s string) (Path, error) {
	if s == "" || s[0] != '$' {
		return nil, fmt.Errorf("path %q must start with $", s)
	}

	var p Path
	i := 1
	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			start := i
			for i < len(s) && s[i] != '.' && s[i] != '[' {
				i++
			}
			if start == i {
				return nil, fmt.Errorf("path %q: empty segment at offset %d", s, start)
			}
			p = append(p, FieldSegment(s[start:i]))

		case '[':
			i++
			if i >= len(s) {
				return nil, fmt.Errorf("path %q: unterminated bracket", s)
			}
			if s[i] == '"' {
				end, err := scanQuoted(s, i)
				if err != nil {
					return nil, fmt.Errorf("path %q: %w", s, err)
				}
				var key string
				if err := json.Unmarshal([]byte(s[i:end+1]), &key); err != nil {
					return nil, fmt.Errorf("path %q: %w", s, err)
				}
				i = end + 1
				if i >= len(s) || s[i] != ']' {
					return nil, fmt.Errorf("path %q: unterminated bracket", s)
				}
				i++
				p = append(p, KeySegment(key))
			} else {
				start := i
				for i < len(s) && s[i] != ']' {
					i++
				}
				if i >= len(s) {
					return nil, fmt.Errorf("path %q: unterminated bracket", s)
				}
				idx, err := strconv.Atoi(s[start:i])
				if err != nil {
					return nil, fmt.Errorf("path %q: invalid index %q", s, s[start:i])
				}
				i++
				p = append(p, IndexSegment(idx))
			}

		default:
			return nil, fmt.Errorf("path %q: unexpected character %q at offset %d", s, s[i], i)
		}
	}
	return p, nil
}

// scanQuoted returns the offset of the closing quote of the JSON string
// starting at s[start].
func scanQuoted(s string, start int) (int, error) {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i, nil
		}
	}
	return 0, fmt.Errorf("unterminated string at offset %d", start)
}

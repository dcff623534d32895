package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Decode parses a single JSON document into a Value, preserving object
// member order. Input with trailing content after the first value is
// rejected.
func Decode(data []byte) (Value, error) {
	return DecodeReader(bytes.NewReader(data))
}

// DecodeReader parses a single JSON document from r.
func DecodeReader(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("decode: empty input")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode: trailing content after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeList(dec)
		default:
			return nil, fmt.Errorf("unexpected %q", t.String())
		}
	case string:
		return String(t), nil
	case json.Number:
		return fromNumber(t)
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, want string", tok)
		}

		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj = append(obj, Member{Key: key, Value: val})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeList(dec *json.Decoder) (Value, error) {
	list := List{}
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		list = append(list, val)
	}

	// Consume the closing bracket.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return list, nil
}

// fromNumber classifies a JSON number literal. Integer literals within int64
// range become Integer; fractional or exponent literals, and integers beyond
// int64 range, become Decimal.
func fromNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Integer(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("number %q: %w", s, err)
	}
	return Decimal(f), nil
}

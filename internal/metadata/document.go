package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"unicode/utf8"
)

// Document is a loosely typed view over a decoded JSON value. Every lookup
// reports absence instead of failing, so callers decide the default.
type Document struct {
	value any
}

var (
	errInvalidUTF8 = errors.New("invalid UTF-8 in document")
	errSurrogate   = errors.New("unpaired surrogate escape in string")
)

// Decode parses data as exactly one JSON value. Numbers keep their literal
// form so that 64-bit identifiers survive intact. Text that is not valid
// UTF-8, including lone surrogate escapes, is rejected rather than replaced.
func Decode(data []byte) (Document, error) {
	if !utf8.Valid(data) {
		return Document{}, errInvalidUTF8
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return Document{}, err
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return Document{}, err
	}
	if err := checkSurrogates(data); err != nil {
		return Document{}, err
	}
	return Document{value: value}, nil
}

// checkSurrogates walks the escapes of an already well-formed document and
// requires every \uD800-\uDBFF escape to be followed by a \uDC00-\uDFFF one.
// Backslashes only occur inside strings in valid JSON.
func checkSurrogates(data []byte) error {
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			continue
		}
		if data[i+1] != 'u' {
			i++
			continue
		}
		r := hexRune(data[i+2 : i+6])
		switch {
		case r >= 0xD800 && r <= 0xDBFF:
			next := i + 6
			if next+6 > len(data) || data[next] != '\\' || data[next+1] != 'u' {
				return errSurrogate
			}
			if lo := hexRune(data[next+2 : next+6]); lo < 0xDC00 || lo > 0xDFFF {
				return errSurrogate
			}
			i = next + 5
		case r >= 0xDC00 && r <= 0xDFFF:
			return errSurrogate
		default:
			i += 5
		}
	}
	return nil
}

func hexRune(b []byte) rune {
	n, err := strconv.ParseUint(string(b), 16, 32)
	if err != nil {
		return -1
	}
	return rune(n)
}

func (d Document) field(key string) (any, bool) {
	obj, ok := d.value.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[key]
	return v, ok
}

// Object returns the nested value stored under key.
func (d Document) Object(key string) (Document, bool) {
	v, ok := d.field(key)
	if !ok {
		return Document{}, false
	}
	return Document{value: v}, true
}

// String returns the string stored under key.
func (d Document) String(key string) (string, bool) {
	v, ok := d.field(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Uint64 returns the value under key when it is a non-negative integer.
func (d Document) Uint64(key string) (uint64, bool) {
	v, ok := d.field(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	u, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return u, true
}

// Uint32 is Uint64 restricted to values that fit in 32 bits.
func (d Document) Uint32(key string) (uint32, bool) {
	u, ok := d.Uint64(key)
	if !ok || u > math.MaxUint32 {
		return 0, false
	}
	return uint32(u), true
}

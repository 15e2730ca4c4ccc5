package ir

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for a Value.
// Stored payloads and content hashes both use it, so it is byte-exact:
// strings are written as given and decode back to the same bytes.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping, and U+2028/U+2029 are emitted literally
//  3. Invalid UTF-8 is an error, never replaced with U+FFFD
//  4. Two keys of one document that are equal under NFC are an error
//  5. No insignificant whitespace
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustMarshalCanonical is like MarshalCanonical but panics on error.
// Use only in tests or when the value is known to be well formed.
func MustMarshalCanonical(v Value) []byte {
	data, err := MarshalCanonical(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Validate reports whether v can be serialized: no nil values, only valid
// UTF-8, and no two keys of a document equal under NFC.
func Validate(v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("nil Value cannot be serialized")
	case String:
		if !utf8.ValidString(string(val)) {
			return fmt.Errorf("string %q is not valid UTF-8", string(val))
		}
	case Array:
		for i, elem := range val {
			if err := Validate(elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
	case Document:
		keys := val.SortedKeys()
		if err := checkKeys(keys); err != nil {
			return err
		}
		for _, k := range keys {
			if !utf8.ValidString(k) {
				return fmt.Errorf("key: string %q is not valid UTF-8", k)
			}
			if err := Validate(val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
	}
	return nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("nil Value cannot be serialized")
	case Null:
		buf.WriteString("null")
	case String:
		if err := writeCanonicalString(buf, string(val)); err != nil {
			return err
		}
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Document:
		keys := val.SortedKeys()
		if err := checkKeys(keys); err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key: %w", err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// checkKeys rejects keys that differ only in Unicode normalization.
func checkKeys(keys []string) error {
	if len(keys) < 2 {
		return nil
	}
	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		nk := norm.NFC.String(k)
		if other, ok := seen[nk]; ok {
			return fmt.Errorf("keys %q and %q are equal under NFC normalization", other, k)
		}
		seen[nk] = k
	}
	return nil
}

// writeCanonicalString escapes only what RFC 8785 requires: quote,
// backslash and control characters below U+0020.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("string %q is not valid UTF-8", s)
	}

	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0xF])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return nil
}

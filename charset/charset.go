/*
Package charset resolves character encodings by name and converts between bytes and
text with them.

Conversions are exact for the encodings bodies are expected to use: UTF-8 text is
kept byte-for-byte (Go strings may hold invalid sequences), and single byte charsets
such as ISO-8859-1 map every byte to a rune and back. Characters an encoding cannot
represent are replaced with "?" when encoding, and bytes US-ASCII cannot represent
are replaced with "?" when decoding.
*/
package charset

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/xerrors"
)

// ErrUnknownCharset is wrapped by Lookup when no encoding is known for a name.
var ErrUnknownCharset = xerrors.New("unknown charset")

// Replacement used for bytes / runes a charset cannot represent.
const replacementChar = '?'

// Charset converts between bytes and text for a single named character encoding.
type Charset struct {
	name   string
	decode func(content []byte) (string, error)
	encode func(text string) ([]byte, error)
}

// UTF8 keeps bytes as-is in both directions.
var UTF8 = &Charset{
	name: "utf-8",
	decode: func(content []byte) (string, error) {
		return string(content), nil
	},
	encode: func(text string) ([]byte, error) {
		return []byte(text), nil
	},
}

// ASCII is US-ASCII. Bytes above 0x7F decode to "?" and non-ASCII runes encode to "?".
var ASCII = &Charset{
	name:   "us-ascii",
	decode: decodeASCII,
	encode: encodeASCII,
}

var builtinCharsets = map[string]*Charset{
	"utf-8":             UTF8,
	"utf8":              UTF8,
	"unicode-1-1-utf-8": UTF8,
	"us-ascii":          ASCII,
	"ascii":             ASCII,
	"ansi_x3.4-1968":    ASCII,
}

func decodeASCII(content []byte) (string, error) {
	builder := strings.Builder{}
	builder.Grow(len(content))
	for _, value := range content {
		if value > 0x7F {
			value = replacementChar
		}
		builder.WriteByte(value)
	}
	return builder.String(), nil
}

func encodeASCII(text string) ([]byte, error) {
	encoded := make([]byte, 0, len(text))
	for _, char := range text {
		if char > 0x7F {
			char = replacementChar
		}
		encoded = append(encoded, byte(char))
	}
	return encoded, nil
}

// fromTextEncoding adapts a golang.org/x/text encoding.
func fromTextEncoding(name string, textEncoding encoding.Encoding) *Charset {
	return &Charset{
		name: name,
		decode: func(content []byte) (string, error) {
			decoded, err := textEncoding.NewDecoder().Bytes(content)
			if err != nil {
				return "", xerrors.Errorf("error decoding %s content: %w", name, err)
			}
			return string(decoded), nil
		},
		encode: func(text string) ([]byte, error) {
			encoded, err := textEncoding.NewEncoder().Bytes([]byte(text))
			if err == nil {
				return encoded, nil
			}
			return encodeReplacing(textEncoding, text), nil
		},
	}
}

// encodeReplacing encodes text a rune at a time, writing "?" for runes the encoding
// cannot represent.
func encodeReplacing(textEncoding encoding.Encoding, text string) []byte {
	encoder := textEncoding.NewEncoder()
	encoded := make([]byte, 0, len(text))

	for _, char := range text {
		runeBytes, err := encoder.Bytes([]byte(string(char)))
		if err != nil {
			runeBytes = []byte{replacementChar}
		}
		encoded = append(encoded, runeBytes...)
		encoder.Reset()
	}
	return encoded
}

/*
Lookup resolves a charset by name, ignoring case and surrounding whitespace or quotes.
IANA names and aliases are tried first, then WHATWG labels, so "iso-8859-1" maps to
ISO-8859-1 exactly rather than the windows-1252 superset browsers use for it.
*/
func Lookup(name string) (*Charset, error) {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(name), `"`))
	if normalized == "" {
		return nil, xerrors.Errorf("blank charset name: %w", ErrUnknownCharset)
	}

	if builtin, ok := builtinCharsets[normalized]; ok {
		return builtin, nil
	}

	textEncoding, err := ianaindex.IANA.Encoding(normalized)
	if err != nil || textEncoding == nil {
		textEncoding, err = htmlindex.Get(normalized)
		if err != nil || textEncoding == nil {
			return nil, xerrors.Errorf("'%s': %w", name, ErrUnknownCharset)
		}
	}

	canonical, err := ianaindex.IANA.Name(textEncoding)
	if err != nil || canonical == "" {
		canonical = normalized
	}

	return fromTextEncoding(strings.ToLower(canonical), textEncoding), nil
}

// MustLookup is like Lookup but panics if the charset is unknown. Intended for
// package-level variables.
func MustLookup(name string) *Charset {
	charset, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return charset
}

// Name is the canonical lower-case name of the charset, suitable for a Content-Type
// charset parameter.
func (charset *Charset) Name() string {
	return charset.name
}

// Decode converts content in this charset to text.
func (charset *Charset) Decode(content []byte) (string, error) {
	return charset.decode(content)
}

// Encode converts text to bytes in this charset.
func (charset *Charset) Encode(text string) ([]byte, error) {
	return charset.encode(text)
}

func (charset *Charset) String() string {
	return charset.name
}

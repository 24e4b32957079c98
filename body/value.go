package body

import (
	"io"

	"golang.org/x/xerrors"
)

/*
Value is the logical form of a body: the representation matching logic and
application code inspect. It is a closed set of variants:

• Bytes: a raw byte buffer.

• Text: a string. For binary bodies built from wire bytes this holds base64 text.

• JSON: a parsed or to-be-serialized JSON document.

• Stream: a sized reader that is read fully and eagerly when a body is built from it.

Use ValueOf() to wrap plain Go values.
*/
type Value interface {
	isBodyValue()
}

// Bytes is a raw byte buffer value.
type Bytes []byte

// Text is a string value.
type Text string

// JSON holds a JSON document such as a map[string]interface{}, []interface{}, a
// struct, or a scalar.
type JSON struct {
	Doc interface{}
}

// SizedReader is a reader that knows how many bytes it holds. *bytes.Reader,
// *bytes.Buffer and *strings.Reader all satisfy it.
type SizedReader interface {
	io.Reader
	Len() int
}

// Stream is a value backed by a SizedReader. Building a body consumes the reader.
type Stream struct {
	Reader SizedReader
}

func (Bytes) isBodyValue()  {}
func (Text) isBodyValue()   {}
func (JSON) isBodyValue()   {}
func (Stream) isBodyValue() {}

// NewJSON wraps doc as a JSON value.
func NewJSON(doc interface{}) JSON {
	return JSON{Doc: doc}
}

// NewStream wraps reader as a Stream value.
func NewStream(reader SizedReader) Stream {
	return Stream{Reader: reader}
}

/*
ValueOf wraps a plain Go value in the matching Value variant:

• A Value is returned unchanged.

• []byte becomes Bytes.

• string becomes Text.

• A SizedReader becomes Stream.

• nil stays nil.

• Anything else becomes JSON.
*/
func ValueOf(value interface{}) Value {
	switch typed := value.(type) {
	case nil:
		return nil
	case Value:
		return typed
	case []byte:
		return Bytes(typed)
	case string:
		return Text(typed)
	case SizedReader:
		return Stream{Reader: typed}
	default:
		return JSON{Doc: typed}
	}
}

// readStream reads exactly Len() bytes from the stream.
func readStream(stream Stream) ([]byte, error) {
	length := stream.Reader.Len()
	if length < 0 {
		return nil, xerrors.Errorf("stream reported negative length %d", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(stream.Reader, data); err != nil {
		return nil, err
	}
	return data, nil
}

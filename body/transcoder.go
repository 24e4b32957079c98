package body

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/illuscio-dev/spanbody-go/charset"
	"github.com/illuscio-dev/spanbody-go/encoding"
	"github.com/illuscio-dev/spanbody-go/metrics"
	"github.com/illuscio-dev/spanbody-go/mimetype"
	"github.com/illuscio-dev/spanbody-go/spanerrors"
)

/*
Transcoder builds Bodies from wire bytes or logical values. The transcoding strategy
is picked from the descriptor's mimetype family:

• JSON: content is JSON text, the value is the JSON document.

• Binary: the value is base64 text when built from bytes, and the raw bytes are
base64 framed when built from a Bytes value.

• Text: content and value are the same text.

A Transcoder holds no mutable state and is safe for concurrent use. Create one with
NewTranscoder(). The zero value works too, using a shared default SpanEngine and no
logging or metrics.
*/
type Transcoder struct {
	serializer encoding.Serializer
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Option configures a Transcoder.
type Option func(transcoder *Transcoder)

// WithLogger sets the logger successful transcodes are reported to at debug level.
// Failures are returned, never logged.
func WithLogger(logger *zap.Logger) Option {
	return func(transcoder *Transcoder) {
		if logger != nil {
			transcoder.logger = logger
		}
	}
}

// WithMetrics sets the collectors transcodes are recorded with.
func WithMetrics(collectors *metrics.Metrics) Option {
	return func(transcoder *Transcoder) {
		transcoder.metrics = collectors
	}
}

// NewTranscoder creates a Transcoder that serializes JSON with serializer. A nil
// serializer uses a SpanEngine with default settings.
func NewTranscoder(
	serializer encoding.Serializer, options ...Option,
) (*Transcoder, error) {
	if serializer == nil {
		engine, err := encoding.NewSpanEngine(nil)
		if err != nil {
			return nil, xerrors.Errorf("error creating default serializer: %w", err)
		}
		serializer = engine
	}

	transcoder := &Transcoder{
		serializer: serializer,
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		option(transcoder)
	}

	return transcoder, nil
}

// Serializers that can reject content trailing a single JSON value while parsing it
// only once, such as *encoding.SpanEngine.
type singleDecoder interface {
	DecodeSingle(content []byte, contentReceiver interface{}) error
}

var (
	sharedEngineOnce sync.Once
	sharedEngine     *encoding.SpanEngine
	sharedEngineErr  error
)

// Default engine for transcoders that were not built with NewTranscoder.
func defaultSerializer() (encoding.Serializer, error) {
	sharedEngineOnce.Do(func() {
		sharedEngine, sharedEngineErr = encoding.NewSpanEngine(nil)
	})
	if sharedEngineErr != nil {
		return nil, xerrors.Errorf("error creating default serializer: %w", sharedEngineErr)
	}
	return sharedEngine, nil
}

func (transcoder *Transcoder) jsonSerializer() (encoding.Serializer, error) {
	if transcoder.serializer != nil {
		return transcoder.serializer, nil
	}
	return defaultSerializer()
}

// The JSON serializer the transcoder was created with, or the shared default engine
// for a zero value Transcoder.
func (transcoder *Transcoder) Serializer() encoding.Serializer {
	serializer, err := transcoder.jsonSerializer()
	if err != nil {
		return nil
	}
	return serializer
}

// Empty returns a body that has a descriptor but no content.
func (transcoder *Transcoder) Empty(descriptor *mimetype.Descriptor) (*Body, error) {
	if descriptor == nil {
		return nil, errNoDescriptor()
	}
	return &Body{descriptor: descriptor}, nil
}

/*
FromBytes builds a body from its wire bytes. content is decoded with the descriptor's
charset, then:

• JSON: the text is parsed into a JSON value. Blank text parses to a nil document.

• Binary: the value is the base64 encoding of content.

• Text: the value is the decoded text.

Returns an InvalidArgumentError if content or descriptor is nil, and a
MalformedBodyError if the text cannot be decoded or is not valid JSON.
*/
func (transcoder *Transcoder) FromBytes(
	content []byte, descriptor *mimetype.Descriptor,
) (*Body, error) {
	body, err := transcoder.fromBytes(content, descriptor)
	return transcoder.finish(metrics.DirectionFromBytes, body, err)
}

func (transcoder *Transcoder) fromBytes(
	content []byte, descriptor *mimetype.Descriptor,
) (*Body, error) {
	if descriptor == nil {
		return nil, errNoDescriptor()
	}
	if content == nil {
		return nil, spanerrors.InvalidArgumentError.New(
			"content must be supplied", nil, nil,
		)
	}

	text, err := descriptor.Charset().Decode(content)
	if err != nil {
		return nil, spanerrors.MalformedBodyError.New(
			"content could not be decoded",
			map[string]interface{}{"charset": descriptor.Charset().Name()},
			err,
		)
	}

	switch descriptor.Family() {
	case mimetype.JSONFamily:
		doc, err := transcoder.parseJSON(text)
		if err != nil {
			return nil, spanerrors.MalformedBodyError.New(
				"content is not valid JSON",
				map[string]interface{}{"mimetype": string(descriptor.MediaType())},
				err,
			)
		}
		return newBody(descriptor, text, JSON{Doc: doc}, false), nil
	case mimetype.BinaryFamily:
		encoded := base64.StdEncoding.EncodeToString(content)
		return binaryBody(descriptor, text, Text(encoded), content), nil
	default:
		return newBody(descriptor, text, Text(text), false), nil
	}
}

// Blank text is a nil document. Anything else must be exactly one JSON value when the
// serializer can check for trailing content.
func (transcoder *Transcoder) parseJSON(text string) (interface{}, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	serializer, err := transcoder.jsonSerializer()
	if err != nil {
		return nil, err
	}

	var doc interface{}
	if strict, ok := serializer.(singleDecoder); ok {
		err = strict.DecodeSingle([]byte(text), &doc)
	} else {
		err = serializer.Decode(strings.NewReader(text), &doc)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

/*
FromValue builds a body from its logical form.

• JSON: the value is serialized with the transcoder's serializer and kept as is.

• Binary: Bytes are base64 framed. Text is taken to be base64, so it is decoded and
the resulting bytes decoded with the descriptor's charset, while the value stays the
base64 text.

• Text: Bytes and Streams are decoded as US-ASCII and the value becomes that text.
Text is used unchanged.

Streams are read fully before anything else happens; outside of text bodies the value
becomes the Bytes read.

Returns an InvalidArgumentError for a nil value or descriptor, an
UnsupportedBodyTypeError when the value cannot be represented in the descriptor's
family (such as JSON{Doc: 42} for a text body) and a MalformedBodyError for bad
base64 text or an unreadable stream.
*/
func (transcoder *Transcoder) FromValue(
	value Value, descriptor *mimetype.Descriptor,
) (*Body, error) {
	body, err := transcoder.fromValue(value, descriptor)
	return transcoder.finish(metrics.DirectionFromValue, body, err)
}

func (transcoder *Transcoder) fromValue(
	value Value, descriptor *mimetype.Descriptor,
) (*Body, error) {
	if descriptor == nil {
		return nil, errNoDescriptor()
	}
	if err := checkValue(value); err != nil {
		return nil, err
	}

	switch descriptor.Family() {
	case mimetype.JSONFamily:
		return transcoder.jsonFromValue(value, descriptor)
	case mimetype.BinaryFamily:
		return binaryFromValue(value, descriptor)
	default:
		return textFromValue(value, descriptor)
	}
}

func (transcoder *Transcoder) jsonFromValue(
	value Value, descriptor *mimetype.Descriptor,
) (*Body, error) {
	var doc interface{}
	kept := value

	switch typed := value.(type) {
	case JSON:
		doc = typed.Doc
	case Text:
		doc = string(typed)
	case Bytes:
		doc = []byte(typed)
	case Stream:
		data, err := readStream(typed)
		if err != nil {
			return nil, errStreamRead(err)
		}
		doc = data
		kept = Bytes(data)
	default:
		return nil, errUnsupported(value, descriptor)
	}

	serializer, err := transcoder.jsonSerializer()
	if err != nil {
		return nil, spanerrors.BodyError.New("no JSON serializer available", nil, err)
	}

	buffer := bytes.Buffer{}
	if err := serializer.Encode(&buffer, doc); err != nil {
		return nil, spanerrors.UnsupportedBodyTypeError.New(
			"value could not be serialized as JSON",
			map[string]interface{}{"type": fmt.Sprintf("%T", doc)},
			err,
		)
	}

	return newBody(descriptor, buffer.String(), kept, false), nil
}

func binaryFromValue(value Value, descriptor *mimetype.Descriptor) (*Body, error) {
	switch typed := value.(type) {
	case Bytes:
		return framedBody(descriptor, typed), nil
	case Stream:
		data, err := readStream(typed)
		if err != nil {
			return nil, errStreamRead(err)
		}
		return framedBody(descriptor, Bytes(data)), nil
	case Text:
		return binaryFromBase64(descriptor, typed)
	case JSON:
		// Fixtures deserialized from JSON carry binary bodies as base64 strings.
		switch doc := typed.Doc.(type) {
		case string:
			return binaryFromBase64(descriptor, Text(doc))
		case []byte:
			return framedBody(descriptor, Bytes(doc)), nil
		}
	}
	return nil, errUnsupported(value, descriptor)
}

// The content of a framed body is base64 text and is decoded again by Body.Bytes().
func framedBody(descriptor *mimetype.Descriptor, data Bytes) *Body {
	encoded := base64.StdEncoding.EncodeToString(data)
	return newBody(descriptor, encoded, data, true)
}

// The content is the charset-decoded payload; the value stays the base64 text and the
// decoded bytes are kept as the wire form.
func binaryFromBase64(descriptor *mimetype.Descriptor, encoded Text) (*Body, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, spanerrors.MalformedBodyError.New(
			"binary value is not valid base64", nil, err,
		)
	}

	text, err := descriptor.Charset().Decode(decoded)
	if err != nil {
		return nil, spanerrors.MalformedBodyError.New(
			"binary value could not be decoded",
			map[string]interface{}{"charset": descriptor.Charset().Name()},
			err,
		)
	}

	return binaryBody(descriptor, text, encoded, decoded), nil
}

func textFromValue(value Value, descriptor *mimetype.Descriptor) (*Body, error) {
	switch typed := value.(type) {
	case Text:
		return newBody(descriptor, string(typed), typed, false), nil
	case Bytes:
		return asciiBody(descriptor, typed), nil
	case Stream:
		// The stream is replaced by the text read from it.
		data, err := readStream(typed)
		if err != nil {
			return nil, errStreamRead(err)
		}
		return asciiBody(descriptor, data), nil
	case JSON:
		switch doc := typed.Doc.(type) {
		case string:
			return newBody(descriptor, doc, Text(doc), false), nil
		case []byte:
			return asciiBody(descriptor, doc), nil
		}
	}
	return nil, errUnsupported(value, descriptor)
}

func asciiBody(descriptor *mimetype.Descriptor, data []byte) *Body {
	// US-ASCII decoding replaces invalid bytes and cannot fail.
	text, _ := charset.ASCII.Decode(data)
	return newBody(descriptor, text, Text(text), false)
}

/*
ToBytes returns body.Bytes(), recording the call with the transcoder's logger and
metrics. Returns an InvalidArgumentError for a nil body.
*/
func (transcoder *Transcoder) ToBytes(body *Body) ([]byte, error) {
	if body == nil {
		err := spanerrors.InvalidArgumentError.New("body must be supplied", nil, nil)
		transcoder.metrics.ObserveFailure(metrics.DirectionToBytes, errorName(err))
		return nil, err
	}

	data, err := body.Bytes()
	if err != nil {
		transcoder.metrics.ObserveFailure(metrics.DirectionToBytes, errorName(err))
		return nil, err
	}

	transcoder.observe(metrics.DirectionToBytes, body, len(data))
	return data, nil
}

// Records the outcome of a transcode. Errors are passed through untouched.
func (transcoder *Transcoder) finish(
	direction string, body *Body, err error,
) (*Body, error) {
	if err != nil {
		transcoder.metrics.ObserveFailure(direction, errorName(err))
		return nil, err
	}

	transcoder.observe(direction, body, len(body.content))
	return body, nil
}

func (transcoder *Transcoder) observe(direction string, body *Body, size int) {
	family := body.Family().String()
	transcoder.metrics.ObserveTranscode(direction, family, size)

	if transcoder.logger == nil {
		return
	}
	if checked := transcoder.logger.Check(zap.DebugLevel, "body transcoded"); checked != nil {
		checked.Write(
			zap.String("direction", direction),
			zap.String("mimetype", string(body.descriptor.MediaType())),
			zap.String("charset", body.descriptor.Charset().Name()),
			zap.Stringer("family", body.Family()),
			zap.Int("size", size),
			zap.Bool("base64_framed", body.base64Framed),
		)
	}
}

// Unframed binary body that hands back exactly wire from Bytes(), whatever the charset
// made of it when decoding.
func binaryBody(
	descriptor *mimetype.Descriptor, content string, value Value, wire []byte,
) *Body {
	body := newBody(descriptor, content, value, false)
	body.wire = append([]byte{}, wire...)
	return body
}

func newBody(
	descriptor *mimetype.Descriptor, content string, value Value, framed bool,
) *Body {
	return &Body{
		descriptor:   descriptor,
		content:      content,
		hasContent:   true,
		value:        value,
		base64Framed: framed,
	}
}

// Rejects absent values, including variants wrapping nothing.
func checkValue(value Value) error {
	missing := false
	switch typed := value.(type) {
	case nil:
		missing = true
	case Bytes:
		missing = typed == nil
	case JSON:
		missing = typed.Doc == nil
	case Stream:
		missing = typed.Reader == nil
	}

	if missing {
		return spanerrors.InvalidArgumentError.New("value must be supplied", nil, nil)
	}
	return nil
}

func errNoDescriptor() error {
	return spanerrors.InvalidArgumentError.New("descriptor must be supplied", nil, nil)
}

func errStreamRead(err error) error {
	return spanerrors.MalformedBodyError.New("stream value could not be read", nil, err)
}

func errUnsupported(value Value, descriptor *mimetype.Descriptor) error {
	valueType := fmt.Sprintf("%T", value)
	if jsonValue, ok := value.(JSON); ok {
		valueType = fmt.Sprintf("%T", jsonValue.Doc)
	}

	return spanerrors.UnsupportedBodyTypeError.New(
		"value type is not supported for mimetype",
		map[string]interface{}{
			"type":     valueType,
			"mimetype": string(descriptor.MediaType()),
		},
		nil,
	)
}

// Name of the SpanErrorType behind err, used as a metric label.
func errorName(err error) string {
	var spanError *spanerrors.SpanError
	if xerrors.As(err, &spanError) {
		return spanError.Name()
	}
	return "unknown"
}

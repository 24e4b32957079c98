package encoding

import (
	"bytes"
	"io"
	"reflect"

	"github.com/ugorji/go/codec"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"golang.org/x/xerrors"
)

/*
Serializer details the contract for the JSON serialization policy a body transcoder
is handed. The transcoder treats the policy as opaque: key ordering, indentation,
number handling and type extensions are all decided by the implementation.
*/
type Serializer interface {
	// Encode content as JSON to writer.
	Encode(writer io.Writer, content interface{}) error

	// Decode JSON content from reader into contentReceiver, which must be a pointer.
	Decode(reader io.Reader, contentReceiver interface{}) error
}

/*
Settings holds the options applied to the JSON handle of a SpanEngine.

Canonical

When true, map keys are written in sorted order so the same document always
serializes to the same bytes.

Indent

Number of spaces to indent nested values with. Negative values indent with tabs, and
zero writes compact JSON.

PreferFloat

When true, numbers decoded into an interface{} are always float64, so integers past
2^53 lose precision. Otherwise numbers without a fraction or exponent are decoded as
integers.

SignedInteger

When true, integers decoded into an interface{} are int64. Otherwise positive
integers are uint64.

HTMLCharsAsIs

When false, "<", ">" and "&" are escaped as unicode sequences.
*/
type Settings struct {
	Canonical     bool `yaml:"canonical" env:"CANONICAL"`
	Indent        int8 `yaml:"indent" env:"INDENT"`
	PreferFloat   bool `yaml:"prefer_float" env:"PREFER_FLOAT"`
	SignedInteger bool `yaml:"signed_integer" env:"SIGNED_INTEGER"`
	HTMLCharsAsIs bool `yaml:"html_chars_as_is" env:"HTML_CHARS_AS_IS"`
}

// DefaultSettings returns the settings used when none are supplied: canonical,
// compact JSON where integers decode as int64 and keep their exact value.
func DefaultSettings() Settings {
	return Settings{
		Canonical:     true,
		Indent:        0,
		PreferFloat:   false,
		SignedInteger: true,
		HTMLCharsAsIs: true,
	}
}

/*
SpanEngine is the default implementation of the Serializer interface.

Instantiation

Use NewSpanEngine() to create a new SpanEngine.

Default JSON Extensions

SpanEngine uses the codec library to encode/decode json
(https://godoc.org/github.com/ugorji/go/codec), which allows the definition of
extensions. SpanEngine ships with the following types handled, so contract fixtures
loaded from BSON stores can be used as logical JSON values directly:

• BSON primitive.Binary data will be encoded as a UUID string for 0x3 and 0x4
subtypes (UUID) and a base64 string for 0x0 subtype (arbitrary binary data). Other
subtypes return an error.

• BSON raw is converted to a map and THEN encoded to a json object.

Additional json extensions can be registered through the AddJSONExtensions() by passing
a slice of JSONExtensionOpts objects.

Default BSON Codecs

The registry used to unpack bson.Raw values is built from the default bson codecs and
a codec that decodes UUID binaries into uuid.UUID values. More codecs can be added
with AddBSONCodecs().

Panics

If the codec library panics during execution, that panic is caught and returned as an
error.
*/
type SpanEngine struct {
	// Settings the JSON handle was built from.
	settings Settings

	// JSON handle for the JSON encoder
	jsonHandle *codec.JsonHandle
	// BSON registry used when unpacking bson.Raw values
	bsonRegistry *bsoncodec.Registry
	// BSON codecs
	bsonCodecs []*BsonCodecOpts
}

// Settings the engine was created with.
func (engine *SpanEngine) Settings() Settings {
	return engine.settings
}

// Uses the encoder while catching panics to return as errors
func (engine *SpanEngine) safeEncode(
	writer io.Writer, content interface{},
) (err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			err = xerrors.Errorf("panic during encode: %v", recovered)
		}
	}()

	jsonEncoder := codec.NewEncoder(writer, engine.jsonHandle)
	err = jsonEncoder.Encode(content)
	return err
}

// Uses the decoder while catching panics to return as errors
func (engine *SpanEngine) safeDecode(
	reader io.Reader, contentReceiver interface{},
) (err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			err = xerrors.Errorf("panic during decode: %v", recovered)
		}
	}()

	jsonDecoder := codec.NewDecoder(reader, engine.jsonHandle)
	err = jsonDecoder.Decode(contentReceiver)

	return err
}

func (engine *SpanEngine) Encode(writer io.Writer, content interface{}) error {
	err := engine.safeEncode(writer, content)
	if err != nil {
		return xerrors.Errorf("encode err: %w", err)
	}
	return nil
}

func (engine *SpanEngine) Decode(reader io.Reader, contentReceiver interface{}) error {
	// Close the reader if it's a closer.
	if readCloser, ok := reader.(io.ReadCloser); ok {
		defer func() {
			_ = readCloser.Close()
		}()
	}

	if contentReceiver == nil {
		return xerrors.New("decode err: content receiver is nil")
	}

	err := engine.safeDecode(reader, contentReceiver)
	if err != nil {
		return xerrors.Errorf("decode err: %w", err)
	}

	return nil
}

/*
DecodeSingle decodes exactly one JSON value from content into contentReceiver.
Anything but whitespace after the value is an error. The value is parsed once and
the decoder's read position tells where it ended.
*/
func (engine *SpanEngine) DecodeSingle(
	content []byte, contentReceiver interface{},
) error {
	if contentReceiver == nil {
		return xerrors.New("decode err: content receiver is nil")
	}

	err := engine.safeDecodeSingle(content, contentReceiver)
	if err != nil {
		return xerrors.Errorf("decode err: %w", err)
	}
	return nil
}

func (engine *SpanEngine) safeDecodeSingle(
	content []byte, contentReceiver interface{},
) (err error) {
	defer func() {
		recovered := recover()
		if recovered != nil {
			err = xerrors.Errorf("panic during decode: %v", recovered)
		}
	}()

	jsonDecoder := codec.NewDecoderBytes(content, engine.jsonHandle)
	if err = jsonDecoder.Decode(contentReceiver); err != nil {
		return err
	}

	trailing := bytes.TrimLeft(content[jsonDecoder.NumBytesRead():], " \t\r\n")
	if len(trailing) > 0 {
		return xerrors.Errorf(
			"unexpected content after JSON value at offset %d",
			len(content)-len(trailing),
		)
	}
	return nil
}

// Marshal is a convenience wrapper around Encode that returns the encoded bytes.
func (engine *SpanEngine) Marshal(content interface{}) ([]byte, error) {
	buffer := bytes.Buffer{}
	if err := engine.Encode(&buffer, content); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Returns the internal codec.JsonHandle used by the json encoder/decoder.
func (engine *SpanEngine) JSONHandle() *codec.JsonHandle {
	return engine.jsonHandle
}

// Returns the internal bsoncodec.Registry used to unpack bson.Raw values.
func (engine *SpanEngine) BSONRegistry() *bsoncodec.Registry {
	return engine.bsonRegistry
}

// Adds JSON extensions to handle. Must be called before the engine is shared between
// goroutines.
func (engine *SpanEngine) AddJSONExtensions(extensions []*JSONExtensionOpts) error {
	for _, extOpts := range extensions {
		err := engine.jsonHandle.SetInterfaceExt(
			extOpts.ValueType, 1, extOpts.ExtInterface,
		)
		if err != nil {
			return xerrors.Errorf(
				"error adding json extension to content engine: %w", err,
			)
		}
	}
	return nil
}

// Adds BSON codecs to the registry used for bson.Raw values. Must be called before the
// engine is shared between goroutines.
func (engine *SpanEngine) AddBSONCodecs(codecs []*BsonCodecOpts) error {
	// Store these codecs for later in case more are added by the end user and we need
	// to declare a new registry.
	engine.bsonCodecs = append(engine.bsonCodecs, codecs...)

	builder := bsoncodec.NewRegistryBuilder()
	bsoncodec.DefaultValueEncoders{}.RegisterDefaultEncoders(builder)
	bsoncodec.DefaultValueDecoders{}.RegisterDefaultDecoders(builder)

	for _, codecOpts := range engine.bsonCodecs {
		builder.RegisterCodec(codecOpts.ValueType, codecOpts.Codec)
	}

	// Build the bson registry.
	engine.bsonRegistry = builder.Build()

	// Now redeclare the json extension for bson raw with this registry so it has access
	// to any additional codecs
	err := engine.jsonHandle.SetInterfaceExt(
		reflect.TypeOf(bson.Raw{}),
		1,
		fixtureRawExt{registry: engine.bsonRegistry},
	)
	if err != nil {
		return xerrors.Errorf(
			"error building bson extension for json handle: %w", err,
		)
	}

	return nil
}

// newJSONHandle builds a codec.JsonHandle from settings. Maps and lists decoded into
// an interface{} come back as map[string]interface{} and []interface{}.
func newJSONHandle(settings Settings) *codec.JsonHandle {
	jsonHandle := &codec.JsonHandle{}
	jsonHandle.Canonical = settings.Canonical
	jsonHandle.Indent = settings.Indent
	jsonHandle.PreferFloat = settings.PreferFloat
	jsonHandle.SignedInteger = settings.SignedInteger
	jsonHandle.HTMLCharsAsIs = settings.HTMLCharsAsIs
	jsonHandle.MapType = reflect.TypeOf(map[string]interface{}(nil))
	jsonHandle.SliceType = reflect.TypeOf([]interface{}(nil))
	return jsonHandle
}

// NewSpanEngine creates a SpanEngine configured from settings. A nil settings uses
// DefaultSettings().
func NewSpanEngine(settings *Settings) (*SpanEngine, error) {
	if settings == nil {
		defaults := DefaultSettings()
		settings = &defaults
	}

	engine := &SpanEngine{
		settings:     *settings,
		jsonHandle:   newJSONHandle(*settings),
		bsonRegistry: nil,
	}

	// Add the default json extensions to the engine.
	if err := engine.AddJSONExtensions(defaultJSONExtensions); err != nil {
		err = xerrors.Errorf("error adding default json extensions: %w", err)
		return nil, err
	}

	// Add the default bson codecs to the engine.
	if err := engine.AddBSONCodecs(defaultBsonCodecs); err != nil {
		err = xerrors.Errorf("error adding default bson codecs: %w", err)
		return nil, err
	}

	return engine, nil
}

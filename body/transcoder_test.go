package body_test

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/illuscio-dev/spanbody-go/body"
	"github.com/illuscio-dev/spanbody-go/mimetype"
	"github.com/illuscio-dev/spanbody-go/spanerrors"
)

func createTranscoder(test *testing.T, options ...body.Option) *body.Transcoder {
	transcoder, err := body.NewTranscoder(nil, options...)
	require.NoError(test, err)
	return transcoder
}

func createDescriptor(
	test *testing.T, mediaType string, charsetName string,
) *mimetype.Descriptor {
	descriptor, err := mimetype.NewDescriptor(mediaType, charsetName)
	require.NoError(test, err)
	return descriptor
}

func jsonDescriptor(test *testing.T) *mimetype.Descriptor {
	return createDescriptor(test, "application/json", "utf-8")
}

func binaryDescriptor(test *testing.T) *mimetype.Descriptor {
	return createDescriptor(test, "application/octet-stream", "utf-8")
}

func textDescriptor(test *testing.T) *mimetype.Descriptor {
	return createDescriptor(test, "text/plain", "utf-8")
}

// Bytes that are not valid UTF-8, so charset handling has to be exact to survive.
var binaryPayload = []byte{0x00, 0x01, 0x7f, 0x80, 0xfe, 0xff, 'P', 'K', 0xc3, 0x28}

func assertIsType(test *testing.T, err error, errorType *spanerrors.SpanErrorType) {
	test.Helper()
	require.Error(test, err)
	assert.True(
		test, xerrors.Is(err, errorType), "expected %s, got %v", errorType, err,
	)
}

func content(test *testing.T, transcoded *body.Body) string {
	test.Helper()
	text, ok := transcoded.Content()
	require.True(test, ok)
	return text
}

func wireBytes(test *testing.T, transcoded *body.Body) []byte {
	test.Helper()
	data, err := transcoded.Bytes()
	require.NoError(test, err)
	return data
}

// JSON

func TestJSONFromBytes(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	wire := []byte(`{"name":"Harry","age":17,"houses":["gryffindor"],"wand":null}`)

	transcoded, err := transcoder.FromBytes(wire, jsonDescriptor(test))
	require.NoError(test, err)

	assert.Equal(string(wire), content(test, transcoded))
	assert.False(transcoded.IsBase64Framed())
	assert.Equal(mimetype.JSONFamily, transcoded.Family())

	expected := body.JSON{Doc: map[string]interface{}{
		"name":   "Harry",
		"age":    int64(17),
		"houses": []interface{}{"gryffindor"},
		"wand":   nil,
	}}
	assert.Equal(expected, transcoded.Value())
	assert.Equal(wire, wireBytes(test, transcoded))
}

func TestJSONFromBytesVendorType(test *testing.T) {
	transcoder := createTranscoder(test)
	descriptor := createDescriptor(test, "application/vnd.custom+json", "utf-8")

	transcoded, err := transcoder.FromBytes([]byte(`[1,2]`), descriptor)
	require.NoError(test, err)

	assert.Equal(
		test,
		body.JSON{Doc: []interface{}{int64(1), int64(2)}},
		transcoded.Value(),
	)
}

func TestJSONFromBytesMalformed(test *testing.T) {
	transcoder := createTranscoder(test)

	malformed := []string{
		`{"name":`,
		`not json`,
		`{"a":1} trailing`,
		`{"a":1} {"b":2}`,
		`[1,2]]`,
	}

	for _, wire := range malformed {
		transcoded, err := transcoder.FromBytes([]byte(wire), jsonDescriptor(test))
		assert.Nil(test, transcoded, wire)
		assertIsType(test, err, spanerrors.MalformedBodyError)
	}
}

func TestJSONFromBytesTrailingWhitespace(test *testing.T) {
	transcoder := createTranscoder(test)
	wire := []byte("\n {\"a\":1} \r\n\t")

	transcoded, err := transcoder.FromBytes(wire, jsonDescriptor(test))
	require.NoError(test, err)

	assert.Equal(
		test, body.JSON{Doc: map[string]interface{}{"a": int64(1)}}, transcoded.Value(),
	)
	assert.Equal(test, wire, wireBytes(test, transcoded))
}

func TestJSONFromBytesBlank(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromBytes([]byte("  \n"), jsonDescriptor(test))
	require.NoError(test, err)

	assert.Equal(body.JSON{Doc: nil}, transcoded.Value())
	assert.Equal([]byte("  \n"), wireBytes(test, transcoded))
}

func TestJSONFromValueRoundTrip(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)
	descriptor := jsonDescriptor(test)

	doc := map[string]interface{}{
		"name":     "Hermione",
		"year":     int64(3),
		"subjects": []interface{}{"arithmancy", "runes"},
		"prefect":  true,
		"nested":   map[string]interface{}{"owl": nil},
	}

	transcoded, err := transcoder.FromValue(body.NewJSON(doc), descriptor)
	require.NoError(test, err)
	assert.Equal(body.JSON{Doc: doc}, transcoded.Value())
	assert.False(transcoded.IsBase64Framed())

	wire := wireBytes(test, transcoded)
	assert.Equal(content(test, transcoded), string(wire))

	reparsed, err := transcoder.FromBytes(wire, descriptor)
	require.NoError(test, err)
	assert.Equal(body.JSON{Doc: doc}, reparsed.Value())
}

func TestJSONLargeIntegerRoundTrip(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)
	descriptor := jsonDescriptor(test)

	// 2^53 + 1, the first integer a float64 cannot hold.
	doc := map[string]interface{}{
		"id":       int64(9007199254740993),
		"neighbor": int64(9007199254740992),
		"negative": int64(-9007199254740993),
	}

	transcoded, err := transcoder.FromValue(body.NewJSON(doc), descriptor)
	require.NoError(test, err)
	assert.Contains(content(test, transcoded), `"id":9007199254740993`)

	reparsed, err := transcoder.FromBytes(wireBytes(test, transcoded), descriptor)
	require.NoError(test, err)
	assert.Equal(body.JSON{Doc: doc}, reparsed.Value())

	reparsedDoc := reparsed.Value().(body.JSON).Doc.(map[string]interface{})
	assert.NotEqual(reparsedDoc["id"], reparsedDoc["neighbor"])
}

func TestJSONFromBytesNumbers(test *testing.T) {
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromBytes(
		[]byte(`[9007199254740993,-4,1.5,2e3]`), jsonDescriptor(test),
	)
	require.NoError(test, err)

	expected := []interface{}{int64(9007199254740993), int64(-4), 1.5, 2000.0}
	assert.Equal(test, body.JSON{Doc: expected}, transcoded.Value())
}

func TestJSONFromValueCanonical(test *testing.T) {
	transcoder := createTranscoder(test)

	doc := map[string]interface{}{"b": "2", "a": "1", "c": "3"}

	transcoded, err := transcoder.FromValue(body.NewJSON(doc), jsonDescriptor(test))
	require.NoError(test, err)

	assert.Equal(test, `{"a":"1","b":"2","c":"3"}`, content(test, transcoded))
}

func TestJSONFromValueStruct(test *testing.T) {
	type Name struct {
		First string `json:"first"`
		Last  string `json:"last"`
	}

	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromValue(
		body.ValueOf(Name{First: "Ron", Last: "Weasley"}), jsonDescriptor(test),
	)
	require.NoError(test, err)

	assert.JSONEq(test, `{"first":"Ron","last":"Weasley"}`, content(test, transcoded))
}

func TestJSONFromValueText(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromValue(body.Text("hello"), jsonDescriptor(test))
	require.NoError(test, err)

	assert.Equal(`"hello"`, content(test, transcoded))
	assert.Equal(body.Text("hello"), transcoded.Value())
}

func TestJSONFromValueStream(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	stream := body.NewStream(bytes.NewReader([]byte("data")))
	transcoded, err := transcoder.FromValue(stream, jsonDescriptor(test))
	require.NoError(test, err)

	encoded := base64.StdEncoding.EncodeToString([]byte("data"))
	assert.Equal(`"`+encoded+`"`, content(test, transcoded))
	assert.Equal(body.Bytes("data"), transcoded.Value())
}

// Binary

func TestBinaryFromBytesRoundTrip(test *testing.T) {
	for _, charsetName := range []string{"utf-8", "iso-8859-1"} {
		thisCharset := charsetName
		test.Run(thisCharset, func(subTest *testing.T) {
			assert := assert.New(subTest)
			transcoder := createTranscoder(subTest)
			descriptor := createDescriptor(
				subTest, "application/octet-stream", thisCharset,
			)

			transcoded, err := transcoder.FromBytes(binaryPayload, descriptor)
			require.NoError(subTest, err)

			assert.False(transcoded.IsBase64Framed())
			assert.Equal(
				body.Text(base64.StdEncoding.EncodeToString(binaryPayload)),
				transcoded.Value(),
			)
			assert.Equal(binaryPayload, wireBytes(subTest, transcoded))
		})
	}
}

// Bytes these charsets cannot all decode losslessly.
var lossyPayload = []byte{0x00, 0x7f, 0x80, 0xff, 0xc3, 0x28, 0x01}

func TestBinaryRoundTripIsByteExactForEveryCharset(test *testing.T) {
	charsets := []string{
		"utf-8", "iso-8859-1", "windows-1252", "us-ascii", "utf-16", "shift_jis",
	}

	for _, charsetName := range charsets {
		thisCharset := charsetName
		test.Run(thisCharset, func(subTest *testing.T) {
			assert := assert.New(subTest)
			transcoder := createTranscoder(subTest)
			descriptor := createDescriptor(
				subTest, "application/octet-stream", thisCharset,
			)
			encoded := base64.StdEncoding.EncodeToString(lossyPayload)

			fromBytes, err := transcoder.FromBytes(lossyPayload, descriptor)
			require.NoError(subTest, err)
			assert.Equal(body.Text(encoded), fromBytes.Value())
			assert.Equal(lossyPayload, wireBytes(subTest, fromBytes))

			fromBase64, err := transcoder.FromValue(body.Text(encoded), descriptor)
			require.NoError(subTest, err)
			assert.Equal(lossyPayload, wireBytes(subTest, fromBase64))

			wire, err := transcoder.ToBytes(fromBytes)
			require.NoError(subTest, err)
			assert.Equal(lossyPayload, wire)
		})
	}
}

func TestBinaryBytesAreCopied(test *testing.T) {
	transcoder := createTranscoder(test)

	payload := []byte{0x01, 0x02, 0x03}
	transcoded, err := transcoder.FromBytes(payload, binaryDescriptor(test))
	require.NoError(test, err)

	payload[0] = 0xff
	returned := wireBytes(test, transcoded)
	returned[1] = 0xff

	assert.Equal(test, []byte{0x01, 0x02, 0x03}, wireBytes(test, transcoded))
}

func TestBinaryFromBytesContentIsDecodedText(test *testing.T) {
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromBytes([]byte("plain bytes"), binaryDescriptor(test))
	require.NoError(test, err)

	assert.Equal(test, "plain bytes", content(test, transcoded))
}

func TestBinaryFromValueBytesRoundTrip(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromValue(body.Bytes(binaryPayload), binaryDescriptor(test))
	require.NoError(test, err)

	assert.True(transcoded.IsBase64Framed())
	assert.Equal(
		base64.StdEncoding.EncodeToString(binaryPayload), content(test, transcoded),
	)
	assert.Equal(body.Bytes(binaryPayload), transcoded.Value())
	assert.Equal(binaryPayload, wireBytes(test, transcoded))
}

func TestBinaryPathsInvertIdentically(test *testing.T) {
	transcoder := createTranscoder(test)
	descriptor := binaryDescriptor(test)

	fromBytes, err := transcoder.FromBytes(binaryPayload, descriptor)
	require.NoError(test, err)
	fromValue, err := transcoder.FromValue(body.Bytes(binaryPayload), descriptor)
	require.NoError(test, err)

	assert.NotEqual(test, content(test, fromBytes), content(test, fromValue))
	assert.Equal(test, wireBytes(test, fromBytes), wireBytes(test, fromValue))
}

func TestBinaryFromValueBase64Text(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	encoded := body.Text(base64.StdEncoding.EncodeToString([]byte("fixture payload")))

	transcoded, err := transcoder.FromValue(encoded, binaryDescriptor(test))
	require.NoError(test, err)

	assert.False(transcoded.IsBase64Framed())
	assert.Equal("fixture payload", content(test, transcoded))
	assert.Equal(encoded, transcoded.Value())
	assert.Equal([]byte("fixture payload"), wireBytes(test, transcoded))
}

func TestBinaryFromValueFixtureString(test *testing.T) {
	transcoder := createTranscoder(test)

	encoded := base64.StdEncoding.EncodeToString(binaryPayload)

	transcoded, err := transcoder.FromValue(
		body.NewJSON(encoded), binaryDescriptor(test),
	)
	require.NoError(test, err)

	assert.Equal(test, body.Text(encoded), transcoded.Value())
	assert.Equal(test, binaryPayload, wireBytes(test, transcoded))
}

func TestBinaryFromValueBadBase64(test *testing.T) {
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromValue(body.Text("%%%"), binaryDescriptor(test))
	assert.Nil(test, transcoded)
	assertIsType(test, err, spanerrors.MalformedBodyError)
}

func TestBinaryFromValueStream(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	stream := body.NewStream(bytes.NewReader(binaryPayload))
	transcoded, err := transcoder.FromValue(stream, binaryDescriptor(test))
	require.NoError(test, err)

	assert.True(transcoded.IsBase64Framed())
	assert.Equal(body.Bytes(binaryPayload), transcoded.Value())
	assert.Equal(binaryPayload, wireBytes(test, transcoded))
}

func TestBinaryFromValueUnsupported(test *testing.T) {
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromValue(
		body.NewJSON(map[string]interface{}{"a": 1}), binaryDescriptor(test),
	)
	assert.Nil(test, transcoded)
	assertIsType(test, err, spanerrors.UnsupportedBodyTypeError)
}

// Text

func TestTextFromBytes(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	wire := []byte("Mischief managed. ✓")

	transcoded, err := transcoder.FromBytes(wire, textDescriptor(test))
	require.NoError(test, err)

	assert.Equal(string(wire), content(test, transcoded))
	assert.Equal(body.Text(wire), transcoded.Value())
	assert.Equal(wire, wireBytes(test, transcoded))
}

func TestTextFromBytesLatin1(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)
	descriptor := createDescriptor(test, "text/plain", "iso-8859-1")

	wire := []byte{'c', 'a', 'f', 0xe9}

	transcoded, err := transcoder.FromBytes(wire, descriptor)
	require.NoError(test, err)

	assert.Equal("café", content(test, transcoded))
	assert.Equal(wire, wireBytes(test, transcoded))
}

func TestTextFromValueIdentity(test *testing.T) {
	testCases := []string{"", "plain", "unicode ✓ é", "line\nbreaks\r\n"}

	for _, text := range testCases {
		assert := assert.New(test)
		transcoder := createTranscoder(test)

		transcoded, err := transcoder.FromValue(body.Text(text), textDescriptor(test))
		require.NoError(test, err)

		assert.Equal(body.Text(text), transcoded.Value())
		assert.Equal(text, string(wireBytes(test, transcoded)))
	}
}

func TestTextFromValueBytesIsASCII(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromValue(
		body.Bytes{'o', 'k', 0xe9}, textDescriptor(test),
	)
	require.NoError(test, err)

	assert.Equal("ok?", content(test, transcoded))
	assert.Equal(body.Text("ok?"), transcoded.Value())
}

func TestTextFromValueStream(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	stream := body.NewStream(strings.NewReader("streamed body"))
	transcoded, err := transcoder.FromValue(stream, textDescriptor(test))
	require.NoError(test, err)

	assert.Equal("streamed body", content(test, transcoded))
	assert.Equal(body.Text("streamed body"), transcoded.Value())
}

// Reports more bytes than it can deliver.
type shortReader struct {
	*strings.Reader
}

func (reader shortReader) Len() int {
	return reader.Reader.Len() + 10
}

func TestTextFromValueStreamShort(test *testing.T) {
	transcoder := createTranscoder(test)

	stream := body.NewStream(shortReader{strings.NewReader("short")})
	transcoded, err := transcoder.FromValue(stream, textDescriptor(test))

	assert.Nil(test, transcoded)
	assertIsType(test, err, spanerrors.MalformedBodyError)
}

// Reports a length no reader can have.
type negativeReader struct {
	*strings.Reader
}

func (reader negativeReader) Len() int {
	return -1
}

func TestStreamNegativeLength(test *testing.T) {
	transcoder := createTranscoder(test)
	stream := body.NewStream(negativeReader{strings.NewReader("data")})

	for _, descriptor := range []*mimetype.Descriptor{
		jsonDescriptor(test),
		binaryDescriptor(test),
		textDescriptor(test),
	} {
		var transcoded *body.Body
		var err error

		assert.NotPanics(test, func() {
			transcoded, err = transcoder.FromValue(stream, descriptor)
		})
		assert.Nil(test, transcoded)
		assertIsType(test, err, spanerrors.MalformedBodyError)
	}
}

func TestTextFromValueUnsupported(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromValue(body.ValueOf(42), textDescriptor(test))
	assert.Nil(transcoded)
	assertIsType(test, err, spanerrors.UnsupportedBodyTypeError)

	var spanError *spanerrors.SpanError
	require.True(test, xerrors.As(err, &spanError))
	assert.Equal("int", spanError.ErrorData["type"])
	assert.Equal("text/plain", spanError.ErrorData["mimetype"])
}

func TestTextFromValueFixtureString(test *testing.T) {
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromValue(body.NewJSON("fixture"), textDescriptor(test))
	require.NoError(test, err)

	assert.Equal(test, body.Text("fixture"), transcoded.Value())
}

func TestUnknownMimetypeIsText(test *testing.T) {
	transcoder := createTranscoder(test)
	descriptor := createDescriptor(test, "application/x-www-form-urlencoded", "utf-8")

	transcoded, err := transcoder.FromBytes([]byte("a=1&b=2"), descriptor)
	require.NoError(test, err)

	assert.Equal(test, mimetype.TextFamily, transcoded.Family())
	assert.Equal(test, body.Text("a=1&b=2"), transcoded.Value())
}

// Guards

func TestFromBytesGuards(test *testing.T) {
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromBytes(nil, textDescriptor(test))
	assert.Nil(test, transcoded)
	assertIsType(test, err, spanerrors.InvalidArgumentError)

	transcoded, err = transcoder.FromBytes([]byte("x"), nil)
	assert.Nil(test, transcoded)
	assertIsType(test, err, spanerrors.InvalidArgumentError)
}

func TestFromBytesEmptyIsValid(test *testing.T) {
	transcoder := createTranscoder(test)

	transcoded, err := transcoder.FromBytes([]byte{}, binaryDescriptor(test))
	require.NoError(test, err)

	assert.Equal(test, []byte{}, wireBytes(test, transcoded))
}

func TestFromValueGuards(test *testing.T) {
	testCases := map[string]body.Value{
		"nil":         nil,
		"nil bytes":   body.Bytes(nil),
		"nil json":    body.JSON{},
		"nil stream":  body.Stream{},
		"nil wrapped": body.ValueOf(nil),
	}

	for name, value := range testCases {
		thisValue := value
		test.Run(name, func(subTest *testing.T) {
			transcoder := createTranscoder(subTest)

			for _, descriptor := range []*mimetype.Descriptor{
				jsonDescriptor(subTest),
				binaryDescriptor(subTest),
				textDescriptor(subTest),
			} {
				transcoded, err := transcoder.FromValue(thisValue, descriptor)
				assert.Nil(subTest, transcoded)
				assertIsType(subTest, err, spanerrors.InvalidArgumentError)
			}
		})
	}

	transcoder := createTranscoder(test)
	transcoded, err := transcoder.FromValue(body.Text("x"), nil)
	assert.Nil(test, transcoded)
	assertIsType(test, err, spanerrors.InvalidArgumentError)
}

func TestEmpty(test *testing.T) {
	assert := assert.New(test)
	transcoder := createTranscoder(test)
	descriptor := jsonDescriptor(test)

	empty, err := transcoder.Empty(descriptor)
	require.NoError(test, err)

	text, ok := empty.Content()
	assert.False(ok)
	assert.Equal("", text)
	assert.False(empty.HasContent())
	assert.Nil(empty.Value())
	assert.Same(descriptor, empty.Descriptor())

	data, err := empty.Bytes()
	assert.NoError(err)
	assert.Nil(data)

	empty, err = transcoder.Empty(nil)
	assert.Nil(empty)
	assertIsType(test, err, spanerrors.InvalidArgumentError)
}

func TestZeroValueTranscoder(test *testing.T) {
	assert := assert.New(test)
	transcoder := &body.Transcoder{}

	assert.NotNil(transcoder.Serializer())

	transcoded, err := transcoder.FromValue(
		body.NewJSON(map[string]interface{}{"b": "2", "a": "1"}), jsonDescriptor(test),
	)
	require.NoError(test, err)
	assert.Equal(`{"a":"1","b":"2"}`, content(test, transcoded))

	reparsed, err := transcoder.FromBytes(
		wireBytes(test, transcoded), jsonDescriptor(test),
	)
	require.NoError(test, err)
	assert.Equal(transcoded.Value(), reparsed.Value())

	wire, err := transcoder.ToBytes(reparsed)
	require.NoError(test, err)
	assert.Equal(`{"a":"1","b":"2"}`, string(wire))

	_, err = transcoder.FromBytes([]byte("{"), jsonDescriptor(test))
	assertIsType(test, err, spanerrors.MalformedBodyError)
}

func TestToBytesNilBody(test *testing.T) {
	transcoder := createTranscoder(test)

	data, err := transcoder.ToBytes(nil)
	assert.Nil(test, data)
	assertIsType(test, err, spanerrors.InvalidArgumentError)
}

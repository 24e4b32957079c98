package spanerrors

// Base Error. Used when transcoding fails for a reason not covered by a more specific
// type, such as text that cannot be encoded back to bytes.
var BodyError = NewSpanErrorType(
	"BodyError",
	2000,
	500,
)

// A required argument such as the content, logical value, descriptor, mimetype or
// charset was missing or could not be resolved.
var InvalidArgumentError = NewSpanErrorType(
	"InvalidArgumentError",
	2001,
	400,
)

// The logical value's shape is not one the body's mimetype family can represent.
var UnsupportedBodyTypeError = NewSpanErrorType(
	"UnsupportedBodyTypeError",
	2002,
	415,
)

// Content could not be parsed for its declared mimetype: malformed JSON, bad base64
// or bytes the charset cannot decode.
var MalformedBodyError = NewSpanErrorType(
	"MalformedBodyError",
	2003,
	400,
)

// List of default SpanError definitions.
var ErrorList = [4]*SpanErrorType{
	BodyError,
	InvalidArgumentError,
	UnsupportedBodyTypeError,
	MalformedBodyError,
}

// Used to make ErrorTypeCodeIndex.
func makeDefaultErrorCodeIndex() map[int]*SpanErrorType {
	index := make(map[int]*SpanErrorType)
	for _, errorType := range ErrorList {
		index[errorType.apiCode] = errorType
	}
	return index
}

// ApiCode:*ErrorType indexing of default errors.
var ErrorTypeCodeIndex = makeDefaultErrorCodeIndex()

package spanerrors

import (
	"bytes"
	"strconv"
	"strings"

	uuid "github.com/satori/go.uuid"
	"golang.org/x/xerrors"

	"github.com/illuscio-dev/spanbody-go/encoding"
)

// Headers a SpanError is carried in.
const (
	HeaderErrorName    = "error-name"
	HeaderErrorCode    = "error-code"
	HeaderErrorMessage = "error-message"
	HeaderErrorID      = "error-id"
	HeaderErrorData    = "error-data"
)

// Interface for object that can set header information, like http.Header.
type headerSetter interface {
	Set(key string, value string)
}

type headerFetcher interface {
	Get(key string) string
}

// Writes error to an object which implements a Set(key string, value string) method
// like http.Header. ErrorData is serialized as JSON with serializer and the header is
// left unset when there is no data.
func (spanError *SpanError) ToHeader(
	setter headerSetter, serializer encoding.Serializer,
) error {
	setter.Set(HeaderErrorName, spanError.name)
	setter.Set(HeaderErrorCode, strconv.Itoa(spanError.apiCode))
	setter.Set(HeaderErrorMessage, spanError.Message)
	setter.Set(HeaderErrorID, spanError.Id.String())

	if spanError.ErrorData == nil {
		return nil
	}

	encoded := bytes.Buffer{}
	if err := serializer.Encode(&encoded, spanError.ErrorData); err != nil {
		return xerrors.Errorf("error encoding %s: %w", HeaderErrorData, err)
	}
	setter.Set(HeaderErrorData, encoded.String())
	return nil
}

/*
ErrorFromHeaders loads a SpanError written by SpanError.ToHeader. The error type is
looked up by code in errorTypeCodeIndex, usually ErrorTypeCodeIndex.

hasError is false, with a non-nil err, when the headers carry no usable error code.
When a code is present but the rest of the header data cannot be loaded, hasError is
true and err describes the problem.
*/
func ErrorFromHeaders(
	headers headerFetcher,
	serializer encoding.Serializer,
	errorTypeCodeIndex map[int]*SpanErrorType,
) (spanError *SpanError, hasError bool, err error) {
	codeText := headers.Get(HeaderErrorCode)
	if codeText == "" {
		return nil, false, xerrors.New("no error in headers")
	}

	code, err := strconv.Atoi(codeText)
	if err != nil {
		return nil, false, xerrors.New("error-code not int")
	}

	errorType, err := lookupErrorType(code, errorTypeCodeIndex)
	if err != nil {
		return nil, true, err
	}

	errorID, err := uuid.FromString(headers.Get(HeaderErrorID))
	if err != nil {
		return nil, true, xerrors.New("error Id is not valid UUID")
	}

	errorData, err := decodeErrorData(headers.Get(HeaderErrorData), serializer)
	if err != nil {
		return nil, true, err
	}

	spanError = errorType.New(headers.Get(HeaderErrorMessage), errorData, nil)
	spanError.Id = errorID

	return spanError, true, nil
}

func lookupErrorType(
	code int, errorTypeCodeIndex map[int]*SpanErrorType,
) (*SpanErrorType, error) {
	if errorTypeCodeIndex == nil {
		return nil, xerrors.New("no error index provided")
	}

	errorType, ok := errorTypeCodeIndex[code]
	if !ok {
		return nil, xerrors.Errorf("no known error for code %d", code)
	}
	return errorType, nil
}

// Blank data decodes to an empty map.
func decodeErrorData(
	encoded string, serializer encoding.Serializer,
) (map[string]interface{}, error) {
	errorData := make(map[string]interface{})
	if encoded == "" {
		return errorData, nil
	}

	if err := serializer.Decode(strings.NewReader(encoded), &errorData); err != nil {
		return nil, xerrors.New("error data could not be parsed as JSON")
	}
	return errorData, nil
}

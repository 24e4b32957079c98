package spanerrors

import (
	"fmt"
	"runtime/debug"
	"strconv"

	uuid "github.com/satori/go.uuid"
	"golang.org/x/xerrors"
)

/*
SpanErrorType is a kind of error the transcoder can return. Name and ApiCode are unique
per type.

Types are shared as pointers, so the fields are private and read through methods.
Declare new types once, at package level, with NewSpanErrorType().
*/
type SpanErrorType struct {
	name     string
	apiCode  int
	httpCode int
}

// NewSpanErrorType declares an error type.
func NewSpanErrorType(name string, apiCode int, httpCode int) *SpanErrorType {
	return &SpanErrorType{
		name:     name,
		apiCode:  apiCode,
		httpCode: httpCode,
	}
}

// New creates an error of this type. source is the error that caused it, if any.
func (errorType *SpanErrorType) New(
	message string,
	errorData map[string]interface{},
	source error,
) *SpanError {
	return &SpanError{
		SpanErrorType: errorType,
		Message:       message,
		Id:            uuid.NewV4(),
		ErrorData:     errorData,
		sourceErr:     source,
		sourceStack:   debug.Stack(),
		frame:         xerrors.Caller(1),
	}
}

// Unique human-readable name of the error type.
func (errorType *SpanErrorType) Name() string {
	return errorType.name
}

// Unique number identifying the error type.
func (errorType *SpanErrorType) ApiCode() int {
	return errorType.apiCode
}

// Status a mock server answers with when this error type is returned.
func (errorType *SpanErrorType) HttpCode() int {
	return errorType.httpCode
}

// Error lets a SpanErrorType be the target of xerrors.Is.
func (errorType *SpanErrorType) Error() string {
	return errorType.name + " (" + strconv.Itoa(errorType.apiCode) + ")"
}

// SpanError is a single occurrence of a SpanErrorType.
type SpanError struct {
	*SpanErrorType

	// What went wrong, for humans.
	Message string

	// Unique per occurrence, so client and server logs can be matched up.
	Id uuid.UUID

	// Values related to the error, such as the offending mimetype. Must serialize to a
	// JSON object.
	ErrorData map[string]interface{}

	sourceErr   error
	sourceStack []byte
	frame       xerrors.Frame
}

// IsType reports whether the error is of errorType.
func (spanError *SpanError) IsType(errorType *SpanErrorType) bool {
	return spanError.SpanErrorType.Error() == errorType.Error()
}

// Is matches a SpanError against its SpanErrorType for xerrors.Is and errors.Is.
func (spanError *SpanError) Is(target error) bool {
	errorType, ok := target.(*SpanErrorType)
	if !ok {
		return false
	}
	return spanError.IsType(errorType)
}

func (spanError *SpanError) Error() string {
	return spanError.SpanErrorType.Error() + " - " + spanError.Message
}

// Unwrap returns the source error.
func (spanError *SpanError) Unwrap() error {
	return spanError.sourceErr
}

// Format prints the frame the error was created at with "%+v".
func (spanError *SpanError) Format(state fmt.State, verb rune) {
	xerrors.FormatError(spanError, state, verb)
}

// FormatError implements xerrors.Formatter.
func (spanError *SpanError) FormatError(printer xerrors.Printer) (next error) {
	printer.Print(spanError.Error())
	spanError.frame.Format(printer)
	return spanError.sourceErr
}

// LogMessage is a verbose description including the source error and the stack the
// error was created on.
func (spanError *SpanError) LogMessage() string {
	return fmt.Sprint(
		"\nMESSAGE: ",
		spanError.Error(),
		"\nORIGINAL: ",
		spanError.sourceErr,
		"\nPANIC STACK:\n",
		string(spanError.sourceStack),
	)
}

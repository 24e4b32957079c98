// Package httpbody adapts net/http requests and responses to transcoded bodies, so a
// mock server can read request bodies and write response bodies through a
// body.Transcoder.
package httpbody

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/illuscio-dev/spanbody-go/body"
	"github.com/illuscio-dev/spanbody-go/mimetype"
	"github.com/illuscio-dev/spanbody-go/spanerrors"
)

// Reads the whole of reader and closes it. A nil reader reads as empty.
func readAll(reader io.ReadCloser) ([]byte, error) {
	if reader == nil {
		return []byte{}, nil
	}
	defer func() {
		_ = reader.Close()
	}()

	buffer := bytes.Buffer{}
	if _, err := buffer.ReadFrom(reader); err != nil {
		return nil, xerrors.Errorf("error reading body: %w", err)
	}
	return buffer.Bytes(), nil
}

func fromMessage(
	transcoder *body.Transcoder,
	headers http.Header,
	reader io.ReadCloser,
	defaultCharset string,
) (*body.Body, error) {
	descriptor, err := mimetype.DescriptorFromHeader(headers, defaultCharset)
	if err != nil {
		return nil, err
	}

	content, err := readAll(reader)
	if err != nil {
		return nil, spanerrors.MalformedBodyError.New(
			"message body could not be read", nil, err,
		)
	}

	return transcoder.FromBytes(content, descriptor)
}

// FromRequest reads and closes the body of request, transcoding it with the
// request's Content-Type. See mimetype.ParseContentType for defaultCharset.
func FromRequest(
	transcoder *body.Transcoder, request *http.Request, defaultCharset string,
) (*body.Body, error) {
	return fromMessage(transcoder, request.Header, request.Body, defaultCharset)
}

// FromResponse reads and closes the body of response, transcoding it with the
// response's Content-Type. See mimetype.ParseContentType for defaultCharset.
func FromResponse(
	transcoder *body.Transcoder, response *http.Response, defaultCharset string,
) (*body.Body, error) {
	return fromMessage(transcoder, response.Header, response.Body, defaultCharset)
}

// Write sends a body with status. Content-Type is set from the body's descriptor and
// Content-Length from its wire bytes. Bodies with no content send only the headers.
func Write(
	writer http.ResponseWriter,
	transcoder *body.Transcoder,
	status int,
	responseBody *body.Body,
) error {
	content, err := transcoder.ToBytes(responseBody)
	if err != nil {
		return err
	}

	headers := writer.Header()
	headers.Set("Content-Type", responseBody.Descriptor().ContentType())
	headers.Set("Content-Length", strconv.Itoa(len(content)))
	writer.WriteHeader(status)

	if len(content) == 0 {
		return nil
	}
	if _, err := writer.Write(content); err != nil {
		return xerrors.Errorf("error writing body: %w", err)
	}
	return nil
}

/*
WriteError reports a transcoding error to the client. SpanErrors are written to the
error-* headers with the HTTP code of their type. Any other error is wrapped in a
BodyError first.
*/
func WriteError(
	writer http.ResponseWriter, transcoder *body.Transcoder, err error,
) error {
	var spanError *spanerrors.SpanError
	if !xerrors.As(err, &spanError) {
		spanError = spanerrors.BodyError.New(err.Error(), nil, err)
	}

	if headerErr := spanError.ToHeader(writer.Header(), transcoder.Serializer()); headerErr != nil {
		return headerErr
	}
	writer.WriteHeader(spanError.HttpCode())
	return nil
}

// ErrorFromResponse loads a SpanError written by WriteError from response headers.
// hasError is false when the headers carry no error.
func ErrorFromResponse(
	transcoder *body.Transcoder, response *http.Response,
) (spanError *spanerrors.SpanError, hasError bool, err error) {
	return spanerrors.ErrorFromHeaders(
		response.Header, transcoder.Serializer(), spanerrors.ErrorTypeCodeIndex,
	)
}

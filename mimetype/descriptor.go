package mimetype

import (
	"mime"
	"strings"

	"github.com/illuscio-dev/spanbody-go/charset"
	"github.com/illuscio-dev/spanbody-go/spanerrors"
)

// Descriptor is the declared content type of a body: a mimetype and the charset used
// to move between its bytes and text. Descriptors are immutable once created.
type Descriptor struct {
	mediaType MimeType
	charset   *charset.Charset
}

/*
NewDescriptor creates a descriptor for mediaType using the charset named charsetName.
The mediaType is lower-cased and kept as given otherwise, so "application/x-json" is
not rewritten to "application/json". Shorthand names such as "json" are not expanded
and classify as text; use FromString first if that is wanted.

Returns an InvalidArgumentError if mediaType or charsetName is blank, or if the
charset is unknown.
*/
func NewDescriptor(mediaType string, charsetName string) (*Descriptor, error) {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return nil, spanerrors.InvalidArgumentError.New(
			"mimetype must be supplied", nil, nil,
		)
	}

	if strings.TrimSpace(charsetName) == "" {
		return nil, spanerrors.InvalidArgumentError.New(
			"charset must be supplied",
			map[string]interface{}{"mimetype": mediaType},
			nil,
		)
	}

	resolved, err := charset.Lookup(charsetName)
	if err != nil {
		return nil, spanerrors.InvalidArgumentError.New(
			"charset could not be resolved",
			map[string]interface{}{"charset": charsetName},
			err,
		)
	}

	return NewDescriptorWithCharset(MimeType(mediaType), resolved)
}

// NewDescriptorWithCharset creates a descriptor from an already resolved charset.
// Returns an InvalidArgumentError if mediaType is UNKNOWN or resolved is nil.
func NewDescriptorWithCharset(
	mediaType MimeType, resolved *charset.Charset,
) (*Descriptor, error) {
	if mediaType == UNKNOWN {
		return nil, spanerrors.InvalidArgumentError.New(
			"mimetype must be supplied", nil, nil,
		)
	}
	if resolved == nil {
		return nil, spanerrors.InvalidArgumentError.New(
			"charset must be supplied",
			map[string]interface{}{"mimetype": string(mediaType)},
			nil,
		)
	}

	descriptor := &Descriptor{
		mediaType: MimeType(strings.ToLower(string(mediaType))),
		charset:   resolved,
	}
	return descriptor, nil
}

/*
ParseContentType creates a descriptor from a Content-Type header value such as
"application/json; charset=utf-8". When the header has no charset parameter,
defaultCharset is used. Callers that want the wire header to decide must pass a blank
defaultCharset, in which case a missing charset is an InvalidArgumentError.
*/
func ParseContentType(header string, defaultCharset string) (*Descriptor, error) {
	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		return nil, spanerrors.InvalidArgumentError.New(
			"content type could not be parsed",
			map[string]interface{}{"content-type": header},
			err,
		)
	}

	charsetName, ok := params["charset"]
	if !ok || charsetName == "" {
		charsetName = defaultCharset
	}

	return NewDescriptor(mediaType, charsetName)
}

// DescriptorFromHeader creates a descriptor from the Content-Type of a message /
// request header. See ParseContentType.
func DescriptorFromHeader(
	headers headerFetcher, defaultCharset string,
) (*Descriptor, error) {
	return ParseContentType(headers.Get("Content-Type"), defaultCharset)
}

// The mimetype of the body.
func (descriptor *Descriptor) MediaType() MimeType {
	return descriptor.mediaType
}

// The charset used for the body's text.
func (descriptor *Descriptor) Charset() *charset.Charset {
	return descriptor.charset
}

// Transcoding family of the body's mimetype.
func (descriptor *Descriptor) Family() Family {
	return descriptor.mediaType.Classify()
}

// ContentType renders the descriptor as a Content-Type header value.
func (descriptor *Descriptor) ContentType() string {
	return mime.FormatMediaType(
		string(descriptor.mediaType),
		map[string]string{"charset": descriptor.charset.Name()},
	)
}

func (descriptor *Descriptor) String() string {
	return descriptor.ContentType()
}

// Enumeration-like type for content mimetypes and body family classification.
package mimetype

import (
	"strings"
)

/*
MimeType is used to enumerate the default representation for content encoding types.
Non default MimeTypes can be used by wrapping a custom string:

	MimeType("text/csv")
*/
type MimeType string

const (
	JSON   = MimeType("application/json")
	BINARY = MimeType("application/octet-stream")
	TEXT   = MimeType("text/plain")
	// UNKNOWN is used when the incoming string is blank
	UNKNOWN = MimeType("")
)

// Prefix every object and binary mimetype must start with to be classified as
// anything other than text.
const applicationPrefix = "application/"

// Family is the transcoding strategy a body uses, derived from its mimetype.
type Family int

const (
	// TextFamily bodies are stored as charset-decoded text. Any mimetype that is not
	// JSON or binary falls back to this family.
	TextFamily Family = iota
	// JSONFamily bodies are parsed into / serialized from a JSON document.
	JSONFamily
	// BinaryFamily bodies carry raw bytes, represented logically as base64 text.
	BinaryFamily
)

func (family Family) String() string {
	switch family {
	case JSONFamily:
		return "json"
	case BinaryFamily:
		return "binary"
	default:
		return "text"
	}
}

// Interface for object used to read headers such as http.Request.Header or
// http.Response.Header
type headerFetcher interface {
	Get(string) string
}

// Extract content type from a message / request header. Parameters such as charset
// are dropped.
func FromHeader(headers headerFetcher) MimeType {
	return FromString(headers.Get("Content-Type"))
}

/*
Convert MimeType from a string. Ignores case and any parameters after ";". Shorthand
names are expanded to their default types, so all of the following will yield
"mimetype.JSON":

• "application/json"

• "application/JSON"

• "json"

And "octet-stream" / "binary" yield "mimetype.BINARY". Full mimetypes that are not a
default are returned lower-cased, so "application/vnd.api+json" is kept as is and
still classifies as JSON through Classify.
*/
func FromString(incoming string) MimeType {
	if index := strings.Index(incoming, ";"); index >= 0 {
		incoming = incoming[:index]
	}
	incoming = strings.ToLower(strings.TrimSpace(incoming))

	switch incoming {
	case "":
		return UNKNOWN
	case "text", "text/plain":
		return TEXT
	case "json", "x-json":
		return JSON
	case "octet-stream", "binary":
		return BINARY
	}

	return MimeType(incoming)
}

// containsAfterPrefix reports whether mimeType starts with "application/" and holds
// token somewhere after that prefix.
func containsAfterPrefix(mimeType MimeType, token string) bool {
	lowered := strings.ToLower(string(mimeType))
	if !strings.HasPrefix(lowered, applicationPrefix) {
		return false
	}
	return strings.Contains(lowered[len(applicationPrefix):], token)
}

// IsJSON reports whether mimeType is an "application/" type mentioning json, such as
// "application/json" or "application/vnd.custom+json".
func (mimeType MimeType) IsJSON() bool {
	return containsAfterPrefix(mimeType, "json")
}

// IsBinary reports whether mimeType is an "application/" type mentioning
// octet-stream.
func (mimeType MimeType) IsBinary() bool {
	return containsAfterPrefix(mimeType, "octet-stream")
}

// Classify picks the transcoding family for mimeType. JSON is checked before binary,
// and anything else is text; unrecognized mimetypes never fail.
func (mimeType MimeType) Classify() Family {
	if mimeType.IsJSON() {
		return JSONFamily
	}
	if mimeType.IsBinary() {
		return BinaryFamily
	}
	return TextFamily
}

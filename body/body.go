package body

import (
	"encoding/base64"

	"github.com/illuscio-dev/spanbody-go/mimetype"
	"github.com/illuscio-dev/spanbody-go/spanerrors"
)

/*
Body is an HTTP message body held in both its wire and logical forms. Bodies are
created by a Transcoder and are immutable afterwards, so they may be read from
multiple goroutines.

Content is the canonical text of the body: serialized JSON for JSON bodies, the text
itself for text bodies, and for binary bodies either the charset-decoded bytes (built
from wire bytes) or base64 text (built from a Bytes value). IsBase64Framed is the only
thing telling those two binary shapes apart, and Bytes() relies on it.

Unframed binary bodies also keep the exact bytes they were built from. Charsets such
as us-ascii or shift_jis cannot decode arbitrary bytes losslessly, and a binary
payload must come back from Bytes() unchanged.
*/
type Body struct {
	descriptor   *mimetype.Descriptor
	content      string
	hasContent   bool
	value        Value
	base64Framed bool
	wire         []byte
}

// Descriptor the body was created with.
func (body *Body) Descriptor() *mimetype.Descriptor {
	return body.descriptor
}

// Content returns the canonical text of the body. ok is false if no content was set.
func (body *Body) Content() (content string, ok bool) {
	return body.content, body.hasContent
}

// HasContent is false only for bodies created with Transcoder.Empty().
func (body *Body) HasContent() bool {
	return body.hasContent
}

// Value returns the logical form of the body, or nil if no content was set.
func (body *Body) Value() Value {
	return body.value
}

// IsBase64Framed reports whether Content holds base64 text for binary bytes.
func (body *Body) IsBase64Framed() bool {
	return body.base64Framed
}

// Family of the body's mimetype.
func (body *Body) Family() mimetype.Family {
	return body.descriptor.Family()
}

/*
Bytes returns the wire form of the body. Returns nil with no error if the body has
no content.

Base64 framed content is decoded from base64. Unframed binary bodies return the bytes
they were built from. Anything else is encoded with the descriptor's charset.
*/
func (body *Body) Bytes() ([]byte, error) {
	if !body.hasContent {
		return nil, nil
	}

	if body.wire != nil {
		return append([]byte{}, body.wire...), nil
	}

	if body.base64Framed {
		decoded, err := base64.StdEncoding.DecodeString(body.content)
		if err != nil {
			return nil, spanerrors.BodyError.New(
				"base64 framed content could not be decoded", nil, err,
			)
		}
		return decoded, nil
	}

	encoded, err := body.descriptor.Charset().Encode(body.content)
	if err != nil {
		return nil, spanerrors.BodyError.New(
			"content could not be encoded",
			map[string]interface{}{"charset": body.descriptor.Charset().Name()},
			err,
		)
	}
	return encoded, nil
}

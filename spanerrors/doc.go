/*
Package spanerrors holds the typed errors returned by body transcoding.

A SpanErrorType names a kind of error and carries its API and HTTP codes. A SpanError
is one occurrence of a type, with a unique Id, a message, optional data and the error
that caused it.

Codes 2000-2999 are reserved for body transcoding. Check the type of a returned error
with xerrors.Is(err, spanerrors.MalformedBodyError).

Errors travel between a mock server and its client in error-* headers, written by
SpanError.ToHeader and read back by ErrorFromHeaders.
*/
package spanerrors

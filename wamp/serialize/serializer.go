// Package serialize implements the two WAMP wire serializers described in
// spec.md §4.2: JSON (text, with a base64+NUL-sentinel binary convention)
// and MessagePack (binary, carrying []byte natively).
package serialize

import "github.com/rexlunae/tornwamp/wamp"

// Serializer converts between a wamp.Message and the bytes that cross the
// wire for it.  Decoding is total: an unrecognized message kind decodes to
// a *wamp.Unsupported rather than failing, per spec.md §4.2.
type Serializer interface {
	Serialize(wamp.Message) ([]byte, error)
	Deserialize([]byte) (wamp.Message, error)
}

// Binary marks a value that must be preserved through a text serializer
// using the base64, NUL-prefixed convention of spec.md §3: "Binary
// payloads are preserved through JSON by base64-encoding prefixed with
// \0."  MessagePack carries []byte natively and does not need this.
type Binary []byte

// binarySentinel is the leading byte that flags a base64-encoded binary
// payload inside an otherwise-text JSON string value.
const binarySentinel = '\x00'

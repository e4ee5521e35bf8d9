package wamp

import "fmt"

var errInvalidPath = fmt.Errorf("wamp: empty dict path")

func errKeyNotFound(key string) error {
	return fmt.Errorf("wamp: key not found: %s", key)
}

// URIError is the tagged error value a processor raises on failure, per
// spec.md §4.7/§7: it carries enough of the original request to let the
// session translate it into a wire-format ERROR message without needing to
// keep the inbound message around.
type URIError struct {
	// Err is the error URI to report, e.g. wamp.error.no_such_procedure.
	Err URI
	// RequestType is the message type code of the request that failed.
	RequestType MessageType
	// Request is the request id of the message that failed, if any.
	Request ID
	// Args and Kwargs are additional detail to attach to the ERROR message.
	Args   List
	Kwargs Dict
}

func (e *URIError) Error() string {
	return fmt.Sprintf("%s (request %s %d)", e.Err, e.RequestType, e.Request)
}

// ToError converts a URIError into the wire ERROR message that reports it
// to the peer that sent the failing request.
func (e *URIError) ToError() *Error {
	return &Error{
		Type:    e.RequestType,
		Request: e.Request,
		Details: Dict{},
		Error:   e.Err,
		Arguments:   e.Args,
		ArgumentsKw: e.Kwargs,
	}
}

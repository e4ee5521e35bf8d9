package serialize

import (
	"fmt"

	"github.com/rexlunae/tornwamp/wamp"
)

// toTuple flattens msg into the positional tuple spec.md §3/§4.2
// describes: [code, ...fixed fields..., args?, kwargs?].  args is appended
// only when present; kwargs only when non-empty — callers must never emit
// a stray empty list in the kwargs position.
func toTuple(msg wamp.Message) ([]interface{}, error) {
	code := msg.MessageType()
	switch m := msg.(type) {
	case *wamp.Hello:
		return []interface{}{code, m.Realm, dictOrEmpty(m.Details)}, nil
	case *wamp.Welcome:
		return []interface{}{code, m.ID, dictOrEmpty(m.Details)}, nil
	case *wamp.Abort:
		return []interface{}{code, dictOrEmpty(m.Details), m.Reason}, nil
	case *wamp.Goodbye:
		return []interface{}{code, dictOrEmpty(m.Details), m.Reason}, nil
	case *wamp.Error:
		t := []interface{}{code, m.Type, m.Request, dictOrEmpty(m.Details), m.Error}
		return appendArgsKwargs(t, m.Arguments, m.ArgumentsKw), nil
	case *wamp.Publish:
		t := []interface{}{code, m.Request, dictOrEmpty(m.Options), m.Topic}
		return appendArgsKwargs(t, m.Arguments, m.ArgumentsKw), nil
	case *wamp.Published:
		return []interface{}{code, m.Request, m.Publication}, nil
	case *wamp.Subscribe:
		return []interface{}{code, m.Request, dictOrEmpty(m.Options), m.Topic}, nil
	case *wamp.Subscribed:
		return []interface{}{code, m.Request, m.Subscription}, nil
	case *wamp.Unsubscribe:
		return []interface{}{code, m.Request, m.Subscription}, nil
	case *wamp.Unsubscribed:
		return []interface{}{code, m.Request}, nil
	case *wamp.Event:
		t := []interface{}{code, m.Subscription, m.Publication, dictOrEmpty(m.Details)}
		return appendArgsKwargs(t, m.Arguments, m.ArgumentsKw), nil
	case *wamp.Call:
		t := []interface{}{code, m.Request, dictOrEmpty(m.Options), m.Procedure}
		return appendArgsKwargs(t, m.Arguments, m.ArgumentsKw), nil
	case *wamp.Cancel:
		return []interface{}{code, m.Request, dictOrEmpty(m.Options)}, nil
	case *wamp.Result:
		t := []interface{}{code, m.Request, dictOrEmpty(m.Details)}
		return appendArgsKwargs(t, m.Arguments, m.ArgumentsKw), nil
	case *wamp.Register:
		return []interface{}{code, m.Request, dictOrEmpty(m.Options), m.Procedure}, nil
	case *wamp.Registered:
		return []interface{}{code, m.Request, m.Registration}, nil
	case *wamp.Unregister:
		return []interface{}{code, m.Request, m.Registration}, nil
	case *wamp.Unregistered:
		return []interface{}{code, m.Request}, nil
	case *wamp.Invocation:
		t := []interface{}{code, m.Request, m.Registration, dictOrEmpty(m.Details)}
		return appendArgsKwargs(t, m.Arguments, m.ArgumentsKw), nil
	case *wamp.Interrupt:
		return []interface{}{code, m.Request, dictOrEmpty(m.Options)}, nil
	case *wamp.Yield:
		t := []interface{}{code, m.Request, dictOrEmpty(m.Options)}
		return appendArgsKwargs(t, m.Arguments, m.ArgumentsKw), nil
	case *wamp.Unsupported:
		return append([]interface{}{code}, toIfaceSlice(m.Tuple)...), nil
	default:
		return nil, fmt.Errorf("serialize: unknown message type %T", msg)
	}
}

func dictOrEmpty(d wamp.Dict) wamp.Dict {
	if d == nil {
		return wamp.Dict{}
	}
	return d
}

func toIfaceSlice(l wamp.List) []interface{} {
	out := make([]interface{}, len(l))
	copy(out, l)
	return out
}

// appendArgsKwargs appends args only if non-empty, and kwargs only if
// non-empty, per spec.md §4.2.
func appendArgsKwargs(t []interface{}, args wamp.List, kwargs wamp.Dict) []interface{} {
	if len(kwargs) > 0 {
		if args == nil {
			args = wamp.List{}
		}
		return append(t, args, kwargs)
	}
	if len(args) > 0 {
		return append(t, args)
	}
	return t
}

// tuplePart is a minimal accessor over a decoded tuple: it lets
// fromTuple pull fixed fields out positionally regardless of whether the
// underlying decoder produced []interface{}, []byte-backed strings, or
// serializer-specific numeric types.
type tuplePart struct {
	tuple []interface{}
}

func (p tuplePart) len() int { return len(p.tuple) }

func (p tuplePart) at(i int) interface{} {
	if i < 0 || i >= len(p.tuple) {
		return nil
	}
	return p.tuple[i]
}

func (p tuplePart) id(i int) wamp.ID {
	return wamp.ID(toUint64(p.at(i)))
}

func (p tuplePart) uri(i int) wamp.URI {
	s, _ := p.at(i).(string)
	return wamp.URI(s)
}

func (p tuplePart) messageType(i int) wamp.MessageType {
	return wamp.MessageType(toInt64(p.at(i)))
}

func (p tuplePart) dict(i int) wamp.Dict {
	d, _ := wamp.AsDict(p.at(i))
	return d
}

// argsKwargs pulls an optional trailing [args][, kwargs] pair starting at
// index i out of the tuple.
func (p tuplePart) argsKwargs(i int) (wamp.List, wamp.Dict) {
	var args wamp.List
	var kwargs wamp.Dict
	if p.len() > i {
		if l, ok := p.at(i).([]interface{}); ok {
			args = wamp.List(l)
		}
	}
	if p.len() > i+1 {
		kwargs, _ = wamp.AsDict(p.at(i + 1))
	}
	return args, kwargs
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	case int:
		return uint64(n)
	case float64:
		return uint64(n)
	default:
		return 0
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// fromTuple rebuilds a wamp.Message from a decoded positional tuple whose
// first element (the kind code) has already been read by the caller.
// Decoding is total: an unrecognized code produces *wamp.Unsupported
// instead of an error, per spec.md §4.2.
func fromTuple(code wamp.MessageType, rest []interface{}) (wamp.Message, error) {
	// p indexes rest as if index 0 of the original tuple; shift by one.
	p := tuplePart{tuple: append([]interface{}{code}, rest...)}
	switch code {
	case wamp.HELLO:
		return &wamp.Hello{Realm: p.uri(1), Details: p.dict(2)}, nil
	case wamp.WELCOME:
		return &wamp.Welcome{ID: p.id(1), Details: p.dict(2)}, nil
	case wamp.ABORT:
		return &wamp.Abort{Details: p.dict(1), Reason: p.uri(2)}, nil
	case wamp.GOODBYE:
		return &wamp.Goodbye{Details: p.dict(1), Reason: p.uri(2)}, nil
	case wamp.ERROR:
		args, kwargs := p.argsKwargs(5)
		return &wamp.Error{
			Type: p.messageType(1), Request: p.id(2), Details: p.dict(3),
			Error: p.uri(4), Arguments: args, ArgumentsKw: kwargs,
		}, nil
	case wamp.PUBLISH:
		args, kwargs := p.argsKwargs(4)
		return &wamp.Publish{
			Request: p.id(1), Options: p.dict(2), Topic: p.uri(3),
			Arguments: args, ArgumentsKw: kwargs,
		}, nil
	case wamp.PUBLISHED:
		return &wamp.Published{Request: p.id(1), Publication: p.id(2)}, nil
	case wamp.SUBSCRIBE:
		return &wamp.Subscribe{Request: p.id(1), Options: p.dict(2), Topic: p.uri(3)}, nil
	case wamp.SUBSCRIBED:
		return &wamp.Subscribed{Request: p.id(1), Subscription: p.id(2)}, nil
	case wamp.UNSUBSCRIBE:
		return &wamp.Unsubscribe{Request: p.id(1), Subscription: p.id(2)}, nil
	case wamp.UNSUBSCRIBED:
		return &wamp.Unsubscribed{Request: p.id(1)}, nil
	case wamp.EVENT:
		args, kwargs := p.argsKwargs(4)
		return &wamp.Event{
			Subscription: p.id(1), Publication: p.id(2), Details: p.dict(3),
			Arguments: args, ArgumentsKw: kwargs,
		}, nil
	case wamp.CALL:
		args, kwargs := p.argsKwargs(4)
		return &wamp.Call{
			Request: p.id(1), Options: p.dict(2), Procedure: p.uri(3),
			Arguments: args, ArgumentsKw: kwargs,
		}, nil
	case wamp.CANCEL:
		return &wamp.Cancel{Request: p.id(1), Options: p.dict(2)}, nil
	case wamp.RESULT:
		args, kwargs := p.argsKwargs(3)
		return &wamp.Result{Request: p.id(1), Details: p.dict(2), Arguments: args, ArgumentsKw: kwargs}, nil
	case wamp.REGISTER:
		return &wamp.Register{Request: p.id(1), Options: p.dict(2), Procedure: p.uri(3)}, nil
	case wamp.REGISTERED:
		return &wamp.Registered{Request: p.id(1), Registration: p.id(2)}, nil
	case wamp.UNREGISTER:
		return &wamp.Unregister{Request: p.id(1), Registration: p.id(2)}, nil
	case wamp.UNREGISTERED:
		return &wamp.Unregistered{Request: p.id(1)}, nil
	case wamp.INVOCATION:
		args, kwargs := p.argsKwargs(4)
		return &wamp.Invocation{
			Request: p.id(1), Registration: p.id(2), Details: p.dict(3),
			Arguments: args, ArgumentsKw: kwargs,
		}, nil
	case wamp.INTERRUPT:
		return &wamp.Interrupt{Request: p.id(1), Options: p.dict(2)}, nil
	case wamp.YIELD:
		args, kwargs := p.argsKwargs(3)
		return &wamp.Yield{Request: p.id(1), Options: p.dict(2), Arguments: args, ArgumentsKw: kwargs}, nil
	default:
		return &wamp.Unsupported{Type: code, Tuple: wamp.List(rest)}, nil
	}
}

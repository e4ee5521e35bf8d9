package serialize

import (
	"fmt"

	"github.com/rexlunae/tornwamp/wamp"
	"github.com/ugorji/go/codec"
)

// MsgpackSerializer implements the binary WAMP serializer of spec.md
// §4.2.  Binary payloads need no base64 sentinel here: MessagePack
// carries []byte natively.  Grounded on the teacher's go.mod dependency
// github.com/ugorji/go/codec.
type MsgpackSerializer struct{}

var mh = &codec.MsgpackHandle{}

func init() {
	mh.RawToString = false
	mh.WriteExt = true
}

func (MsgpackSerializer) Serialize(msg wamp.Message) ([]byte, error) {
	tuple, err := toTuple(msg)
	if err != nil {
		return nil, err
	}
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, mh)
	if err := enc.Encode(tuple); err != nil {
		return nil, fmt.Errorf("serialize: msgpack encode: %w", err)
	}
	return buf, nil
}

func (MsgpackSerializer) Deserialize(data []byte) (wamp.Message, error) {
	var raw []interface{}
	dec := codec.NewDecoderBytes(data, mh)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("serialize: msgpack decode: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("serialize: empty message")
	}
	code := wamp.MessageType(toInt64(raw[0]))
	rest := normalizeMsgpackTuple(raw[1:])
	return fromTuple(code, rest)
}

// normalizeMsgpackTuple converts codec's nested map[interface{}]interface{}
// decode results into wamp.Dict/[]interface{} shapes the rest of the
// package expects, mirroring decodeBinaries' role for the JSON path
// (msgpack needs no base64 unwrap, only map-shape normalization).
func normalizeMsgpackTuple(v []interface{}) []interface{} {
	out := make([]interface{}, len(v))
	for i, e := range v {
		out[i] = normalizeMsgpackValue(e)
	}
	return out
}

func normalizeMsgpackValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		return wamp.NormalizeDict(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = normalizeMsgpackValue(e)
		}
		return out
	default:
		return v
	}
}

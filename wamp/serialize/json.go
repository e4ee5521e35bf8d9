package serialize

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/rexlunae/tornwamp/wamp"
)

// JSONSerializer implements the text WAMP serializer of spec.md §4.2.
// Grounded on the teacher's own wamp/serialize/json.go, which likewise
// uses stdlib encoding/json rather than a third-party JSON library (see
// DESIGN.md).
type JSONSerializer struct{}

func (JSONSerializer) Serialize(msg wamp.Message) ([]byte, error) {
	tuple, err := toTuple(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encodeBinaries(tuple))
}

func (JSONSerializer) Deserialize(data []byte) (wamp.Message, error) {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("serialize: invalid JSON message: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("serialize: empty message")
	}
	code := wamp.MessageType(toInt64(raw[0]))
	rest := decodeBinaries(raw[1:]).([]interface{})
	return fromTuple(code, rest)
}

// encodeBinaries walks v, replacing any Binary or []byte value with its
// base64 text form prefixed by the NUL sentinel byte, per spec.md §3.
func encodeBinaries(v interface{}) interface{} {
	switch val := v.(type) {
	case Binary:
		return encodeBinaryString([]byte(val))
	case []byte:
		return encodeBinaryString(val)
	case wamp.List:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = encodeBinaries(e)
		}
		return out
	case wamp.Dict:
		out := make(wamp.Dict, len(val))
		for k, e := range val {
			out[k] = encodeBinaries(e)
		}
		return out
	default:
		return v
	}
}

func encodeBinaryString(b []byte) string {
	return string(binarySentinel) + base64.StdEncoding.EncodeToString(b)
}

// decodeBinaries is the inverse of encodeBinaries, run over a value freshly
// decoded from JSON (so strings, not Binary, are what need checking).
func decodeBinaries(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if len(val) > 0 && val[0] == binarySentinel {
			if b, err := base64.StdEncoding.DecodeString(val[1:]); err == nil {
				return []byte(b)
			}
		}
		return val
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = decodeBinaries(e)
		}
		return out
	case map[string]interface{}:
		out := make(wamp.Dict, len(val))
		for k, e := range val {
			out[k] = decodeBinaries(e)
		}
		return out
	default:
		return v
	}
}

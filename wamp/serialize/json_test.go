package serialize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/rexlunae/tornwamp/wamp"
)

func roundTrip(t *testing.T, s Serializer, msg wamp.Message) wamp.Message {
	t.Helper()
	data, err := s.Serialize(msg)
	if err != nil {
		t.Fatalf("Serialize(%T) error: %v", msg, err)
	}
	out, err := s.Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize error: %v (from %s)", err, data)
	}
	return out
}

func TestJSONRoundTripCall(t *testing.T) {
	msg := &wamp.Call{
		Request:   wamp.ID(123),
		Options:   wamp.Dict{},
		Procedure: wamp.URI("com.example.add"),
		Arguments: wamp.List{float64(1), float64(2)},
	}
	out := roundTrip(t, JSONSerializer{}, msg)
	got, ok := out.(*wamp.Call)
	if !ok {
		t.Fatalf("expected *wamp.Call, got %T", out)
	}
	if got.Request != msg.Request || got.Procedure != msg.Procedure {
		t.Errorf("round-trip mismatch: got %s want %s", spew.Sdump(got), spew.Sdump(msg))
	}
	if !reflect.DeepEqual(got.Arguments, msg.Arguments) {
		t.Errorf("arguments mismatch: got %s want %s", spew.Sdump(got.Arguments), spew.Sdump(msg.Arguments))
	}
}

func TestJSONRoundTripNoArgsNoKwargs(t *testing.T) {
	msg := &wamp.Subscribed{Request: wamp.ID(1), Subscription: wamp.ID(2)}
	data, err := JSONSerializer{}.Serialize(msg)
	if err != nil {
		t.Fatal(err)
	}
	// No stray empty list should appear: exactly 3 elements.
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if len(raw) != 3 {
		t.Fatalf("expected 3-element tuple, got %d: %s", len(raw), data)
	}
}

func TestJSONRoundTripBinaryArg(t *testing.T) {
	payload := []byte{0x01, 0x02, 0xff, 0x00}
	msg := &wamp.Call{
		Request:   wamp.ID(1),
		Procedure: wamp.URI("com.example.echo"),
		Arguments: wamp.List{Binary(payload)},
	}
	out := roundTrip(t, JSONSerializer{}, msg).(*wamp.Call)
	got, ok := out.Arguments[0].([]byte)
	if !ok {
		t.Fatalf("expected []byte, got %T: %v", out.Arguments[0], out.Arguments[0])
	}
	if !reflect.DeepEqual(got, payload) {
		t.Errorf("binary payload mismatch: got %x want %x", got, payload)
	}
}

func TestJSONRoundTripUnsupported(t *testing.T) {
	msg := &wamp.Unsupported{Type: wamp.MessageType(999), Tuple: wamp.List{float64(1), float64(2)}}
	out := roundTrip(t, JSONSerializer{}, msg)
	if out.MessageType() != wamp.MessageType(999) {
		t.Fatalf("expected unsupported type to survive round trip, got %v", out.MessageType())
	}
}

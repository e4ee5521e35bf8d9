package router

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fortytw2/leaktest"
	"github.com/rexlunae/tornwamp/wamp"
)

const (
	testRealm     = wamp.URI("tornwamp.test.realm")
	testProcedure = wamp.URI("tornwamp.test.endpoint")
	testTopic     = wamp.URI("tornwamp.test.topic")
)

func init() {
	DebugEnabled = true
}

func newTestRouter() Router {
	r := NewRouter(false)
	if _, err := r.AddRealm(&RealmConfig{URI: testRealm}); err != nil {
		panic(err)
	}
	return r
}

func handshake(r Router, client, server wamp.Peer) (wamp.ID, error) {
	client.Send(&wamp.Hello{Realm: testRealm, Details: wamp.Dict{}})
	if err := r.Attach(server, "", ""); err != nil {
		return 0, err
	}
	select {
	case <-time.After(time.Second):
		return 0, errors.New("timed out waiting for WELCOME")
	case msg := <-client.Recv():
		welcome, ok := msg.(*wamp.Welcome)
		if !ok {
			return 0, fmt.Errorf("expected WELCOME, got %s", msg.MessageType())
		}
		return welcome.ID, nil
	}
}

func TestHandshake(t *testing.T) {
	defer leaktest.Check(t)()
	client, server := wamp.LinkedPeers()
	r := newTestRouter()
	defer r.Close()
	if _, err := handshake(r, client, server); err != nil {
		t.Fatal(err)
	}

	client.Send(&wamp.Goodbye{})
	select {
	case <-time.After(time.Second):
		t.Fatal("no GOODBYE echoed back")
	case msg := <-client.Recv():
		if _, ok := msg.(*wamp.Goodbye); !ok {
			t.Fatal("expected GOODBYE, got", msg.MessageType())
		}
	}
}

func TestHandshakeBadRealm(t *testing.T) {
	defer leaktest.Check(t)()
	r := NewRouter(true)
	defer r.Close()

	client, server := wamp.LinkedPeers()
	client.Send(&wamp.Hello{Realm: "not a valid uri!!"})
	if err := r.Attach(server, "", ""); err == nil {
		t.Fatal("expected Attach to fail for an invalid realm URI")
	}

	select {
	case <-time.After(time.Second):
		t.Fatal("no ABORT after bad realm")
	case msg := <-client.Recv():
		if _, ok := msg.(*wamp.Abort); !ok {
			t.Fatal("expected ABORT, got", msg.MessageType())
		}
	}
}

func TestRealmCreatedOnDemand(t *testing.T) {
	defer leaktest.Check(t)()
	r := NewRouter(false)
	defer r.Close()

	client, server := wamp.LinkedPeers()
	client.Send(&wamp.Hello{Realm: "brand.new.realm", Details: wamp.Dict{}})
	if err := r.Attach(server, "", ""); err != nil {
		t.Fatal(err)
	}
	if msg := <-client.Recv(); msg.MessageType() != wamp.WELCOME {
		t.Fatal("expected WELCOME for an on-demand realm, got", msg.MessageType())
	}
}

func TestSubscribePublish(t *testing.T) {
	defer leaktest.Check(t)()
	sub, subServer := wamp.LinkedPeers()
	r := newTestRouter()
	defer r.Close()
	if _, err := handshake(r, sub, subServer); err != nil {
		t.Fatal(err)
	}

	subscribeID := wamp.GlobalID()
	sub.Send(&wamp.Subscribe{Request: subscribeID, Topic: testTopic})

	var subscriptionID wamp.ID
	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SUBSCRIBED")
	case msg := <-sub.Recv():
		subMsg, ok := msg.(*wamp.Subscribed)
		if !ok {
			t.Fatal("expected SUBSCRIBED, got", msg.MessageType())
		}
		if subMsg.Request != subscribeID {
			t.Fatal("wrong request id")
		}
		subscriptionID = subMsg.Subscription
	}

	pub, pubServer := wamp.LinkedPeers()
	if _, err := handshake(r, pub, pubServer); err != nil {
		t.Fatal(err)
	}
	pubID := wamp.GlobalID()
	pub.Send(&wamp.Publish{Request: pubID, Topic: testTopic})

	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for EVENT")
	case msg := <-sub.Recv():
		event, ok := msg.(*wamp.Event)
		if !ok {
			t.Fatal("expected EVENT, got", msg.MessageType())
		}
		if event.Subscription != subscriptionID {
			t.Fatal("wrong subscription id")
		}
	}
}

func TestPublishExcludesPublisher(t *testing.T) {
	defer leaktest.Check(t)()
	client, server := wamp.LinkedPeers()
	r := newTestRouter()
	defer r.Close()
	if _, err := handshake(r, client, server); err != nil {
		t.Fatal(err)
	}

	client.Send(&wamp.Subscribe{Request: wamp.GlobalID(), Topic: testTopic})
	<-client.Recv() // SUBSCRIBED

	client.Send(&wamp.Publish{Request: wamp.GlobalID(), Topic: testTopic})
	select {
	case <-time.After(200 * time.Millisecond):
		// No EVENT should arrive: the subscriber is also the publisher.
	case msg := <-client.Recv():
		t.Fatal("publisher should not receive its own EVENT, got", msg.MessageType())
	}
}

func TestPublishAcknowledge(t *testing.T) {
	defer leaktest.Check(t)()
	client, server := wamp.LinkedPeers()
	r := newTestRouter()
	defer r.Close()
	if _, err := handshake(r, client, server); err != nil {
		t.Fatal(err)
	}

	id := wamp.GlobalID()
	client.Send(&wamp.Publish{
		Request: id,
		Options: wamp.Dict{"acknowledge": true},
		Topic:   testTopic,
	})

	select {
	case <-time.After(time.Second):
		t.Fatal("acknowledge=true, timed out waiting for PUBLISHED")
	case msg := <-client.Recv():
		pub, ok := msg.(*wamp.Published)
		if !ok {
			t.Fatal("expected PUBLISHED, got", msg.MessageType())
		}
		if pub.Request != id {
			t.Fatal("wrong request id")
		}
	}
}

func TestPublishNoAcknowledge(t *testing.T) {
	defer leaktest.Check(t)()
	client, server := wamp.LinkedPeers()
	r := newTestRouter()
	defer r.Close()
	if _, err := handshake(r, client, server); err != nil {
		t.Fatal(err)
	}

	client.Send(&wamp.Publish{Request: wamp.GlobalID(), Topic: testTopic})
	select {
	case <-time.After(200 * time.Millisecond):
	case msg := <-client.Recv():
		if _, ok := msg.(*wamp.Published); ok {
			t.Fatal("acknowledge=false, but received PUBLISHED")
		}
	}
}

func TestRegisterCall(t *testing.T) {
	defer leaktest.Check(t)()
	callee, calleeServer := wamp.LinkedPeers()
	r := newTestRouter()
	defer r.Close()
	if _, err := handshake(r, callee, calleeServer); err != nil {
		t.Fatal(err)
	}

	registerID := wamp.GlobalID()
	callee.Send(&wamp.Register{Request: registerID, Procedure: testProcedure})

	var registrationID wamp.ID
	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for REGISTERED")
	case msg := <-callee.Recv():
		registered, ok := msg.(*wamp.Registered)
		if !ok {
			t.Fatal("expected REGISTERED, got", msg.MessageType())
		}
		if registered.Request != registerID {
			t.Fatal("wrong request id")
		}
		registrationID = registered.Registration
	}

	caller, callerServer := wamp.LinkedPeers()
	if _, err := handshake(r, caller, callerServer); err != nil {
		t.Fatal(err)
	}
	callID := wamp.GlobalID()
	caller.Send(&wamp.Call{Request: callID, Procedure: testProcedure})

	var invocationID wamp.ID
	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for INVOCATION")
	case msg := <-callee.Recv():
		invocation, ok := msg.(*wamp.Invocation)
		if !ok {
			t.Fatal("expected INVOCATION, got", msg.MessageType())
		}
		if invocation.Registration != registrationID {
			t.Fatal("wrong registration id")
		}
		invocationID = invocation.Request
	}

	callee.Send(&wamp.Yield{Request: invocationID, Arguments: wamp.List{"ok"}})

	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for RESULT")
	case msg := <-caller.Recv():
		result, ok := msg.(*wamp.Result)
		if !ok {
			t.Fatal("expected RESULT, got", msg.MessageType())
		}
		if result.Request != callID {
			t.Fatal("wrong result id")
		}
		if len(result.Arguments) != 1 || result.Arguments[0] != "ok" {
			t.Fatalf("wrong result arguments:\n%s", spew.Sdump(result))
		}
	}
}

func TestCallNoSuchProcedure(t *testing.T) {
	defer leaktest.Check(t)()
	client, server := wamp.LinkedPeers()
	r := newTestRouter()
	defer r.Close()
	if _, err := handshake(r, client, server); err != nil {
		t.Fatal(err)
	}

	callID := wamp.GlobalID()
	client.Send(&wamp.Call{Request: callID, Procedure: "no.such.procedure"})

	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ERROR")
	case msg := <-client.Recv():
		errMsg, ok := msg.(*wamp.Error)
		if !ok {
			t.Fatal("expected ERROR, got", msg.MessageType())
		}
		if errMsg.Error != wamp.ErrNoSuchProcedure {
			t.Fatal("wrong error uri:", errMsg.Error)
		}
	}
}

func TestProviderDisconnectFailsPendingCall(t *testing.T) {
	defer leaktest.Check(t)()
	callee, calleeServer := wamp.LinkedPeers()
	r := newTestRouter()
	defer r.Close()
	if _, err := handshake(r, callee, calleeServer); err != nil {
		t.Fatal(err)
	}

	callee.Send(&wamp.Register{Request: wamp.GlobalID(), Procedure: testProcedure})
	<-callee.Recv() // REGISTERED

	caller, callerServer := wamp.LinkedPeers()
	if _, err := handshake(r, caller, callerServer); err != nil {
		t.Fatal(err)
	}
	callID := wamp.GlobalID()
	caller.Send(&wamp.Call{Request: callID, Procedure: testProcedure})
	<-callee.Recv() // INVOCATION

	// Provider vanishes before yielding a result.
	callee.Send(&wamp.Goodbye{})
	<-callee.Recv() // GOODBYE echo

	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ERROR after provider disconnect")
	case msg := <-caller.Recv():
		errMsg, ok := msg.(*wamp.Error)
		if !ok {
			t.Fatal("expected ERROR, got", msg.MessageType())
		}
		if errMsg.Request != callID {
			t.Fatal("wrong request id")
		}
		if errMsg.Error != wamp.ErrNoSuchProcedure {
			t.Fatal("wrong error uri:", errMsg.Error)
		}
	}
}

func TestSessionMetaProcedures(t *testing.T) {
	defer leaktest.Check(t)()
	r := newTestRouter()
	defer r.Close()

	caller, callerServer := wamp.LinkedPeers()
	sessID, err := handshake(r, caller, callerServer)
	if err != nil {
		t.Fatal(err)
	}

	callID := wamp.GlobalID()
	caller.Send(&wamp.Call{Request: callID, Procedure: wamp.MetaProcSessionCount})
	var result *wamp.Result
	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for RESULT")
	case msg := <-caller.Recv():
		var ok bool
		result, ok = msg.(*wamp.Result)
		if !ok {
			t.Fatal("expected RESULT, got", msg.MessageType())
		}
	}
	count, ok := result.Arguments[0].(int)
	if !ok || count != 1 {
		t.Fatal("expected session count 1, got", result.Arguments[0])
	}

	callID = wamp.GlobalID()
	caller.Send(&wamp.Call{
		Request:   callID,
		Procedure: wamp.MetaProcSessionGet,
		Arguments: wamp.List{sessID},
	})
	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for RESULT")
	case msg := <-caller.Recv():
		result, ok = msg.(*wamp.Result)
		if !ok {
			t.Fatal("expected RESULT, got", msg.MessageType())
		}
	}
	dict, ok := result.Arguments[0].(wamp.Dict)
	if !ok {
		t.Fatal("expected a dict argument")
	}
	if dict["session"] != sessID {
		t.Fatal("wrong session id in wamp.session.get result")
	}
}

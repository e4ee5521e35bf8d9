package router

import (
	"errors"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/rexlunae/tornwamp/wamp"
)

func TestServeDispatchesAndAnswers(t *testing.T) {
	defer leaktest.Check(t)()
	r := newRunningRealm(t, &RealmConfig{URI: testRealm})

	client, server := wamp.LinkedPeers()
	defer client.Close()
	wampSess := wamp.NewSession(server, wamp.GlobalID(), wamp.Dict{}, wamp.Dict{})
	done := make(chan struct{})
	go func() {
		serve(r, wampSess)
		close(done)
	}()

	client.Send(&wamp.Subscribe{Request: 1, Topic: testTopic})
	select {
	case msg := <-client.Recv():
		if _, ok := msg.(*wamp.Subscribed); !ok {
			t.Fatalf("expected SUBSCRIBED, got %s", msg.MessageType())
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SUBSCRIBED")
	}

	wampSess.End(nil)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serve did not return once the session ended")
	}
}

func TestServeStopsWhenSessionEnds(t *testing.T) {
	defer leaktest.Check(t)()
	r := newRunningRealm(t, &RealmConfig{URI: testRealm})

	client, server := wamp.LinkedPeers()
	defer client.Close()
	wampSess := wamp.NewSession(server, wamp.GlobalID(), wamp.Dict{}, wamp.Dict{})
	done := make(chan struct{})
	go func() {
		serve(r, wampSess)
		close(done)
	}()

	// Give serve a moment to register the session before ending it.
	deadline := time.Now().Add(time.Second)
	for r.isEmpty() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	wampSess.End(nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serve did not return once the session ended")
	}

	if !r.isEmpty() {
		t.Fatal("the session should be torn down from the realm once serve returns")
	}
}

func TestDeliverSkipsNilSessionAndFailedSend(t *testing.T) {
	client, server := wamp.LinkedPeers()
	sess := wamp.NewSession(server, 1, wamp.Dict{}, wamp.Dict{})
	client.Close()
	server.Close()

	// Delivering to a nil session and to a closed one must not panic.
	deliver([]Broadcast{
		{Session: nil, Msg: &wamp.Event{}},
		{Session: sess, Msg: &wamp.Event{}},
	})
}

func TestDeliverSendsToLiveSession(t *testing.T) {
	client, server := wamp.LinkedPeers()
	defer client.Close()
	sess := wamp.NewSession(server, 1, wamp.Dict{}, wamp.Dict{})

	deliver([]Broadcast{{Session: sess, Msg: &wamp.Event{Subscription: 5}}})

	select {
	case msg := <-client.Recv():
		ev, ok := msg.(*wamp.Event)
		if !ok || ev.Subscription != 5 {
			t.Fatal("expected the EVENT to be delivered to the session's peer")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the delivered EVENT")
	}
}

func TestErrorAnswerURIError(t *testing.T) {
	answer := errorAnswer(&wamp.URIError{Err: wamp.ErrNoSuchProcedure, RequestType: wamp.CALL, Request: 7})
	wireErr, ok := answer.(*wamp.Error)
	if !ok || wireErr.Error != wamp.ErrNoSuchProcedure || wireErr.Request != 7 {
		t.Fatal("expected a wire ERROR carrying the URIError's details")
	}
}

func TestErrorAnswerGenericErrorDoesNotLeakMessage(t *testing.T) {
	answer := errorAnswer(errors.New("some internal detail"))
	wireErr, ok := answer.(*wamp.Error)
	if !ok || wireErr.Error != wamp.ErrGeneralError {
		t.Fatal("expected a general_error for a non-URIError failure")
	}
}

func TestTeardownDeliversOrphanedCallerErrors(t *testing.T) {
	r := newRunningRealm(t, &RealmConfig{URI: testRealm})

	callerClient, callerServer := wamp.LinkedPeers()
	defer callerClient.Close()
	callerSess := wamp.NewSession(callerServer, 1, wamp.Dict{}, wamp.Dict{})

	_, providerServer := wamp.LinkedPeers()
	providerSess := wamp.NewSession(providerServer, 2, wamp.Dict{}, wamp.Dict{})
	r.addSession(&session{wampSession: providerSess, realm: r})
	r.pending.Add(10, 100, callerSess, providerSess.ID, wamp.Dict{})

	r.teardown(providerSess.ID)

	select {
	case msg := <-callerClient.Recv():
		wireErr, ok := msg.(*wamp.Error)
		if !ok || wireErr.Error != wamp.ErrNoSuchProcedure {
			t.Fatal("expected a no_such_procedure ERROR delivered to the caller")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the orphaned caller's ERROR")
	}
}

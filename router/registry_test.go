package router

import (
	"testing"

	"github.com/rexlunae/tornwamp/wamp"
)

func TestRegistryCreateTopicIdempotent(t *testing.T) {
	r := NewRegistry()
	t1, err := r.CreateTopic("a.b.c")
	if err != nil {
		t.Fatal(err)
	}
	t2, err := r.CreateTopic("a.b.c")
	if err != nil {
		t.Fatal(err)
	}
	if t1 != t2 {
		t.Fatal("CreateTopic should return the same Topic for the same name")
	}
}

func TestRegistryCreateProcedureNotIdempotent(t *testing.T) {
	r := NewRegistry()
	if _, err := r.CreateProcedure("a.b.c", Provider{}); err != nil {
		t.Fatal(err)
	}
	_, err := r.CreateProcedure("a.b.c", Provider{})
	ue, ok := err.(*wamp.URIError)
	if !ok || ue.Err != wamp.ErrProcedureAlreadyExists {
		t.Fatal("expected procedure_already_exists, got", err)
	}
}

func TestRegistryTopicProcedureCollision(t *testing.T) {
	r := NewRegistry()
	if _, err := r.CreateProcedure("a.b.c", Provider{}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateTopic("a.b.c"); err == nil {
		t.Fatal("expected CreateTopic to fail on a name already bound to a procedure")
	}
}

func TestRegistryPredefinedErrorsPresent(t *testing.T) {
	r := NewRegistry()
	for _, name := range wamp.PredefinedErrors {
		kind, _, _, ok := r.Get(name)
		if !ok || kind != kindError {
			t.Fatalf("predefined error %s missing from a fresh registry", name)
		}
	}
}

func TestRegistryRemoveSubscriberByID(t *testing.T) {
	r := NewRegistry()
	subID, err := r.AddSubscriber("a.b.c", Subscriber{SessionID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !r.RemoveSubscriberByID(subID) {
		t.Fatal("expected RemoveSubscriberByID to find the subscription")
	}
	if _, _, _, ok := r.Get("a.b.c"); ok {
		t.Fatal("topic should be removed once its last subscriber leaves")
	}
	if r.RemoveSubscriberByID(subID) {
		t.Fatal("removing an already-removed subscription should report false")
	}
}

func TestRegistryRemoveProcedureChecksOwner(t *testing.T) {
	r := NewRegistry()
	proc, err := r.CreateProcedure("a.b.c", Provider{SessionID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.RemoveProcedure(proc.RegistrationID, 2); err == nil {
		t.Fatal("expected RemoveProcedure to reject a non-owning session")
	}
	if _, err := r.RemoveProcedure(proc.RegistrationID, 1); err != nil {
		t.Fatal(err)
	}
	if _, _, _, ok := r.Get("a.b.c"); ok {
		t.Fatal("procedure should be gone after a successful RemoveProcedure")
	}
}

func TestRegistryDisconnectCleansUpSubscriptionsAndProcedures(t *testing.T) {
	r := NewRegistry()
	if _, err := r.AddSubscriber("a.topic", Subscriber{SessionID: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateProcedure("a.proc", Provider{SessionID: 1}); err != nil {
		t.Fatal(err)
	}

	r.Disconnect(1)

	if _, _, _, ok := r.Get("a.topic"); ok {
		t.Fatal("topic with only the disconnecting subscriber should be removed")
	}
	if _, _, _, ok := r.Get("a.proc"); ok {
		t.Fatal("procedure owned by the disconnecting session should be removed")
	}
}

func TestRegistryDisconnectLeavesOtherSubscribers(t *testing.T) {
	r := NewRegistry()
	if _, err := r.AddSubscriber("a.topic", Subscriber{SessionID: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.AddSubscriber("a.topic", Subscriber{SessionID: 2}); err != nil {
		t.Fatal(err)
	}

	r.Disconnect(1)

	kind, topic, _, ok := r.Get("a.topic")
	if !ok || kind != kindTopic {
		t.Fatal("topic should still exist: another session is still subscribed")
	}
	if !topic.Live() {
		t.Fatal("topic should still be live")
	}
}

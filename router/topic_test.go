package router

import (
	"testing"

	"github.com/rexlunae/tornwamp/wamp"
)

func newTopic(name wamp.URI) *Topic {
	r := NewRegistry()
	topic, err := r.CreateTopic(name)
	if err != nil {
		panic(err)
	}
	return topic
}

func TestTopicLive(t *testing.T) {
	topic := newTopic("a.b.c")
	if topic.Live() {
		t.Fatal("a fresh topic with no subscribers should not be live")
	}
	subID := topic.addSubscriber(Subscriber{SessionID: 1})
	if !topic.Live() {
		t.Fatal("a topic with a subscriber should be live")
	}
	if !topic.removeSubscription(subID) {
		t.Fatal("expected removeSubscription to succeed")
	}
	if topic.Live() {
		t.Fatal("topic should no longer be live after its only subscriber leaves")
	}
}

func TestTopicPublishExcludesPublisher(t *testing.T) {
	topic := newTopic("a.b.c")
	publisherSess := &wamp.Session{ID: 1}
	otherSess := &wamp.Session{ID: 2}
	topic.addSubscriber(Subscriber{SessionID: 1, Session: publisherSess})
	topic.addSubscriber(Subscriber{SessionID: 2, Session: otherSess})

	_, broadcasts := topic.Publish(1, nil, nil, false)
	if len(broadcasts) != 1 {
		t.Fatalf("expected exactly 1 broadcast (publisher excluded), got %d", len(broadcasts))
	}
	if broadcasts[0].Session != otherSess {
		t.Fatal("broadcast should go to the non-publishing subscriber")
	}
}

func TestTopicPublishDiscloseCaller(t *testing.T) {
	topic := newTopic("a.b.c")
	otherSess := &wamp.Session{ID: 2}
	topic.addSubscriber(Subscriber{SessionID: 2, Session: otherSess})

	_, broadcasts := topic.Publish(1, nil, nil, true)
	if len(broadcasts) != 1 {
		t.Fatal("expected one broadcast")
	}
	event := broadcasts[0].Msg.(*wamp.Event)
	if event.Details["publisher"] != wamp.ID(1) {
		t.Fatal("disclose_me should set the publisher detail to the origin session id")
	}
}

func TestTopicPublishLocalSubscriberSynchronous(t *testing.T) {
	topic := newTopic("a.b.c")
	var called bool
	topic.addSubscriber(Subscriber{Local: func(args wamp.List, kwargs wamp.Dict, details wamp.Dict) {
		called = true
	}})

	_, broadcasts := topic.Publish(1, nil, nil, false)
	if !called {
		t.Fatal("expected the local subscriber callback to run synchronously")
	}
	if len(broadcasts) != 0 {
		t.Fatal("a pseudo-subscriber should not produce a broadcast")
	}
}

func TestTopicPublishAssignsFreshPublicationID(t *testing.T) {
	topic := newTopic("a.b.c")
	topic.addSubscriber(Subscriber{SessionID: 2, Session: &wamp.Session{ID: 2}})

	pub1, _ := topic.Publish(1, nil, nil, false)
	pub2, _ := topic.Publish(1, nil, nil, false)
	if pub1 == pub2 {
		t.Fatal("each publish should be assigned a distinct publication id")
	}
}

package router

import "github.com/rexlunae/tornwamp/wamp"

// EventHandler is a pseudo-subscriber's callback: a local, in-process
// substitute for a remote session's Peer.Send, invoked synchronously by
// Topic.Publish (spec.md §9 — "pseudo-subscribers... modeled as a tagged
// variant, not two parallel types").
type EventHandler func(args wamp.List, kwargs wamp.Dict, details wamp.Dict)

// Subscriber is either a remote session or a local callback, per spec.md
// §3's "A Subscriber is either a session handle or a local callback."
type Subscriber struct {
	SessionID wamp.ID
	Session   *wamp.Session
	Local     EventHandler
}

func (s Subscriber) IsLocal() bool { return s.Local != nil }

type subscriberEntry struct {
	sub Subscriber
}

// Topic is the pub/sub entity of spec.md §4.4: a URI with zero or more
// subscribers, the recipient of PUBLISHed events.
type Topic struct {
	Name           wamp.URI
	RegistrationID wamp.ID

	subscribers map[wamp.ID]*subscriberEntry
}

// Live reports whether the Topic has at least one subscriber, per
// spec.md §4.4.
func (t *Topic) Live() bool { return len(t.subscribers) > 0 }

func (t *Topic) addSubscriber(sub Subscriber) wamp.ID {
	subID := wamp.GlobalID()
	t.subscribers[subID] = &subscriberEntry{sub: sub}
	return subID
}

// removeSubscription removes by subscription id (used by UNSUBSCRIBE).
func (t *Topic) removeSubscription(subscriptionID wamp.ID) bool {
	if _, ok := t.subscribers[subscriptionID]; !ok {
		return false
	}
	delete(t.subscribers, subscriptionID)
	return true
}

// removeSubscriberSession removes every subscription belonging to
// sessionID (used by the registry's disconnect walk).
func (t *Topic) removeSubscriberSession(sessionID wamp.ID) {
	for subID, e := range t.subscribers {
		if !e.sub.IsLocal() && e.sub.SessionID == sessionID {
			delete(t.subscribers, subID)
		}
	}
}

// Broadcast pairs an outbound message with the remote session it must be
// delivered to. Processors return a list of these instead of calling
// Peer.Send themselves, per spec.md §9's "must_close and broadcast_list
// outputs are part of its return, not side effects" — the session handler
// performs the actual I/O.
type Broadcast struct {
	Session *wamp.Session
	Msg     wamp.Message
}

// Publish fans out an event to every current subscriber except the
// publisher itself (publisher exclusion, spec.md §4.4/§8), collecting
// subscribers into a local snapshot first so delivery is unaffected by a
// concurrent unsubscribe (spec.md §5). Pseudo-subscribers are invoked
// synchronously in place, since that is an in-process function call, not
// the I/O side effect the broadcast-descriptor design targets. Returns the
// fresh publication id plus the broadcasts to remote sessions.
func (t *Topic) Publish(originSessionID wamp.ID, args wamp.List, kwargs wamp.Dict, discloseCaller bool) (wamp.ID, []Broadcast) {
	type delivery struct {
		subID wamp.ID
		sub   Subscriber
	}
	snapshot := make([]delivery, 0, len(t.subscribers))
	for subID, e := range t.subscribers {
		snapshot = append(snapshot, delivery{subID, e.sub})
	}

	pubID := wamp.GlobalID()
	details := wamp.Dict{}
	if discloseCaller {
		details["publisher"] = originSessionID
	}
	var broadcasts []Broadcast
	for _, d := range snapshot {
		if d.sub.IsLocal() {
			d.sub.Local(args, kwargs, wamp.Dict{})
			continue
		}
		if d.sub.SessionID == originSessionID {
			continue // publisher exclusion
		}
		broadcasts = append(broadcasts, Broadcast{
			Session: d.sub.Session,
			Msg: &wamp.Event{
				Subscription: d.subID,
				Publication:  pubID,
				Details:      details,
				Arguments:    args,
				ArgumentsKw:  kwargs,
			},
		})
	}
	return pubID, broadcasts
}

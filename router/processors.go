package router

import (
	"time"

	"github.com/rexlunae/tornwamp/wamp"
)

// processorFunc is a processor of spec.md §4.7/§9: a function from an
// inbound message and its session to an optional direct answer, zero or
// more broadcasts to other sessions, and a close flag. Failures are
// reported via err (almost always a *wamp.URIError); the session dispatch
// loop is the single place that turns err into a wire ERROR frame.
type processorFunc func(r *Realm, sess *wamp.Session, msg wamp.Message) (answer wamp.Message, broadcasts []Broadcast, mustClose bool, err error)

// processors is the dispatch table of spec.md §9: "a mapping from
// message-kind code to a processor capability." HELLO is handled directly
// by Router.Attach, before a session exists to dispatch through, so it has
// no entry here.
var processors = map[wamp.MessageType]processorFunc{
	wamp.GOODBYE:     processGoodbye,
	wamp.ABORT:       processAbort,
	wamp.SUBSCRIBE:   processSubscribe,
	wamp.UNSUBSCRIBE: processUnsubscribe,
	wamp.PUBLISH:     processPublish,
	wamp.REGISTER:    processRegister,
	wamp.UNREGISTER:  processUnregister,
	wamp.CALL:        processCall,
	wamp.CANCEL:      processCancel,
	wamp.YIELD:       processYield,
	wamp.ERROR:       processError,
}

// dispatch selects and runs the processor for msg, or the unsupported-kind
// processor if none is registered for its type (spec.md §4.7's final
// bullet).
func dispatch(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	if u, ok := msg.(*wamp.Unsupported); ok {
		return processUnsupported(r, sess, u)
	}
	proc, ok := processors[msg.MessageType()]
	if !ok {
		return processUnsupported(r, sess, &wamp.Unsupported{Type: msg.MessageType()})
	}
	return proc(r, sess, msg)
}

func processGoodbye(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	goodbye := msg.(*wamp.Goodbye)
	sess.End(goodbye)
	return &wamp.Goodbye{Reason: wamp.ErrGoodbyeAndOut, Details: wamp.Dict{}}, nil, true, nil
}

func processAbort(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	sess.End(nil)
	return nil, nil, true, nil
}

func processSubscribe(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	sub := msg.(*wamp.Subscribe)
	if !sub.Topic.ValidURI(r.strictURI, "") {
		return nil, nil, false, &wamp.URIError{Err: wamp.ErrInvalidURI, RequestType: wamp.SUBSCRIBE, Request: sub.Request}
	}
	if err := r.roles.Authorize("subscribe", sess); err != nil {
		return nil, nil, false, asURIError(err, wamp.SUBSCRIBE, sub.Request)
	}
	if sess.HasAnnouncedRoles() && !sess.HasRole("subscriber") {
		return nil, nil, false, &wamp.URIError{Err: wamp.ErrNotAuthorized, RequestType: wamp.SUBSCRIBE, Request: sub.Request}
	}
	subID, err := r.registry.AddSubscriber(sub.Topic, Subscriber{SessionID: sess.ID, Session: sess})
	if err != nil {
		return nil, nil, false, asURIError(err, wamp.SUBSCRIBE, sub.Request)
	}
	if r.metrics != nil {
		r.metrics.ActiveSubscribers.Inc()
	}
	return &wamp.Subscribed{Request: sub.Request, Subscription: subID}, nil, false, nil
}

func processUnsubscribe(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	uns := msg.(*wamp.Unsubscribe)
	if !r.registry.RemoveSubscriberByID(uns.Subscription) {
		return nil, nil, false, &wamp.URIError{Err: wamp.ErrNoSuchSubscription, RequestType: wamp.UNSUBSCRIBE, Request: uns.Request}
	}
	if r.metrics != nil {
		r.metrics.ActiveSubscribers.Dec()
	}
	return &wamp.Unsubscribed{Request: uns.Request}, nil, false, nil
}

func processPublish(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	pub := msg.(*wamp.Publish)
	if err := r.roles.Authorize("publish", sess); err != nil {
		return nil, nil, false, asURIError(err, wamp.PUBLISH, pub.Request)
	}
	if sess.HasAnnouncedRoles() && !sess.HasRole("publisher") {
		return nil, nil, false, &wamp.URIError{Err: wamp.ErrNotAuthorized, RequestType: wamp.PUBLISH, Request: pub.Request}
	}
	acknowledge := wamp.OptionBool(pub.Options, "acknowledge")
	kind, topic, _, ok := r.registry.Get(pub.Topic)
	if !ok || kind != kindTopic {
		if acknowledge {
			return nil, nil, false, &wamp.URIError{Err: wamp.ErrNoSuchSubscription, RequestType: wamp.PUBLISH, Request: pub.Request}
		}
		return nil, nil, false, nil
	}
	discloseCaller := wamp.OptionBool(pub.Options, "disclose_me")
	pubID, broadcasts := topic.Publish(sess.ID, pub.Arguments, pub.ArgumentsKw, discloseCaller)
	if r.metrics != nil && len(broadcasts) > 0 {
		r.metrics.MessagesTotal.WithLabelValues("EVENT").Add(float64(len(broadcasts)))
	}
	if acknowledge {
		return &wamp.Published{Request: pub.Request, Publication: pubID}, broadcasts, false, nil
	}
	return nil, broadcasts, false, nil
}

func processRegister(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	reg := msg.(*wamp.Register)
	if !reg.Procedure.ValidURI(r.strictURI, "") {
		return nil, nil, false, &wamp.URIError{Err: wamp.ErrInvalidURI, RequestType: wamp.REGISTER, Request: reg.Request}
	}
	if err := r.roles.Authorize("register", sess); err != nil {
		return nil, nil, false, asURIError(err, wamp.REGISTER, reg.Request)
	}
	if sess.HasAnnouncedRoles() && !sess.HasRole("callee") {
		return nil, nil, false, &wamp.URIError{Err: wamp.ErrNotAuthorized, RequestType: wamp.REGISTER, Request: reg.Request}
	}
	proc, err := r.registry.CreateProcedure(reg.Procedure, Provider{SessionID: sess.ID, Session: sess})
	if err != nil {
		return nil, nil, false, asURIError(err, wamp.REGISTER, reg.Request)
	}
	if r.metrics != nil {
		r.metrics.RegisteredProcs.Inc()
	}
	return &wamp.Registered{Request: reg.Request, Registration: proc.RegistrationID}, nil, false, nil
}

func processUnregister(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	unr := msg.(*wamp.Unregister)
	if _, err := r.registry.RemoveProcedure(unr.Registration, sess.ID); err != nil {
		return nil, nil, false, asURIError(err, wamp.UNREGISTER, unr.Request)
	}
	if r.metrics != nil {
		r.metrics.RegisteredProcs.Dec()
	}
	return &wamp.Unregistered{Request: unr.Request}, nil, false, nil
}

func processCall(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	call := msg.(*wamp.Call)
	if err := r.roles.Authorize("call", sess); err != nil {
		return nil, nil, false, asURIError(err, wamp.CALL, call.Request)
	}
	if sess.HasAnnouncedRoles() && !sess.HasRole("caller") {
		return nil, nil, false, &wamp.URIError{Err: wamp.ErrNotAuthorized, RequestType: wamp.CALL, Request: call.Request}
	}
	kind, _, proc, ok := r.registry.Get(call.Procedure)
	if !ok || kind != kindProcedure || !proc.Live() {
		return nil, nil, false, &wamp.URIError{Err: wamp.ErrNoSuchProcedure, RequestType: wamp.CALL, Request: call.Request}
	}
	options := call.Options
	if sess.HasAnnouncedRoles() && wamp.OptionBool(options, "receive_progress") && !sess.HasFeature("caller", "progressive_call_results") {
		options = stripOption(options, "receive_progress")
	}
	result, invocation, err := proc.Invoke(r.pending, sess, call.Request, call.Arguments, call.ArgumentsKw, options)
	if err != nil {
		return nil, nil, false, err
	}
	if r.metrics != nil {
		r.metrics.CallsTotal.WithLabelValues("dispatched").Inc()
	}
	if invocation != nil {
		return nil, []Broadcast{*invocation}, false, nil
	}
	return result, nil, false, nil
}

func processCancel(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	cancel := msg.(*wamp.Cancel)
	interrupt, providerID := CancelCall(r.pending, sess.ID, cancel.Request)
	if interrupt == nil {
		return nil, nil, false, nil
	}
	provider, ok := r.sessions[providerID]
	if !ok {
		return nil, nil, false, nil
	}
	return nil, []Broadcast{{Session: provider.wampSession, Msg: interrupt}}, false, nil
}

func processYield(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	yield := msg.(*wamp.Yield)
	if err := r.roles.Authorize("yield", sess); err != nil {
		return nil, nil, false, asURIError(err, wamp.YIELD, yield.Request)
	}
	entry, hadEntry := r.pending.Get(yield.Request)
	caller, result, interrupt, wireErr := Yield(r.pending, yield)
	if r.metrics != nil && result != nil {
		r.metrics.CallsTotal.WithLabelValues("completed").Inc()
		terminal := hadEntry && !(wamp.OptionBool(yield.Options, "progress") && wamp.OptionBool(entry.Options, "receive_progress"))
		if terminal {
			r.metrics.CallDuration.Observe(time.Since(entry.Submitted).Seconds())
		}
	}
	var broadcasts []Broadcast
	if result != nil && caller != nil {
		broadcasts = append(broadcasts, Broadcast{Session: caller, Msg: result})
	}
	if interrupt != nil {
		broadcasts = append(broadcasts, Broadcast{Session: sess, Msg: interrupt})
	}
	if wireErr != nil {
		broadcasts = append(broadcasts, Broadcast{Session: sess, Msg: wireErr})
	}
	return nil, broadcasts, false, nil
}

func processError(r *Realm, sess *wamp.Session, msg wamp.Message) (wamp.Message, []Broadcast, bool, error) {
	e := msg.(*wamp.Error)
	if e.Type != wamp.CALL {
		log.Printf("unexpected ERROR from session %s for request type %s", sess, e.Type)
		return nil, nil, false, nil
	}
	entry, ok := r.pending.Get(e.Request)
	if !ok {
		log.Printf("ERROR from session %s for unknown invocation %d", sess, e.Request)
		return nil, nil, false, nil
	}
	r.pending.Remove(e.Request)
	if r.metrics != nil {
		r.metrics.CallDuration.Observe(time.Since(entry.Submitted).Seconds())
	}
	forward := &wamp.Error{
		Type: wamp.CALL, Request: entry.CallRequest, Details: e.Details,
		Error: e.Error, Arguments: e.Arguments, ArgumentsKw: e.ArgumentsKw,
	}
	return nil, []Broadcast{{Session: entry.Caller, Msg: forward}}, false, nil
}

func processUnsupported(r *Realm, sess *wamp.Session, msg *wamp.Unsupported) (wamp.Message, []Broadcast, bool, error) {
	return nil, nil, false, &wamp.URIError{Err: wamp.ErrUnsupported, RequestType: msg.Type}
}

// stripOption returns a copy of d with key removed, used to drop a CALL
// option a caller isn't entitled to (e.g. receive_progress without having
// announced the progressive_call_results feature) rather than trusting the
// wire value as-is.
func stripOption(d wamp.Dict, key string) wamp.Dict {
	out := make(wamp.Dict, len(d))
	for k, v := range d {
		if k == key {
			continue
		}
		out[k] = v
	}
	return out
}

// asURIError normalizes an error returned by a collaborator (Registry,
// RoleTable) into a *wamp.URIError carrying the failing request's type and
// id, since those collaborators don't know which request they're serving.
func asURIError(err error, requestType wamp.MessageType, request wamp.ID) error {
	if ue, ok := err.(*wamp.URIError); ok {
		ue.RequestType = requestType
		ue.Request = request
		return ue
	}
	return &wamp.URIError{Err: wamp.ErrGeneralError, RequestType: requestType, Request: request}
}

package router

import (
	"github.com/rexlunae/tornwamp/wamp"
)

// session is a realm's bookkeeping record for one attached connection: the
// shared wamp.Session plus the realm it has joined. Lower-case because
// only the router package's own dispatch loop ever needs it — everything
// else (processors, Topic, Procedure) deals in *wamp.Session.
type session struct {
	wampSession *wamp.Session
	realm       *Realm
}

// serve is the per-connection dispatch loop of spec.md §4's
// "Session/handler", run in its own goroutine by Router.Attach once HELLO
// handling has produced a Welcome and joined sess to realm. It reads
// decoded inbound messages, runs them through the realm's single
// serialization goroutine (spec.md §5), writes the processor's answer, and
// performs any broadcasts the processor produced. It returns once the
// peer's Recv channel closes or a processor signals must_close.
func serve(r *Realm, wampSess *wamp.Session) {
	sess := &session{wampSession: wampSess, realm: r}
	r.addSession(sess)

	for {
		select {
		case msg, ok := <-wampSess.Recv():
			if !ok {
				r.teardown(wampSess.ID)
				return
			}
			if DebugEnabled {
				log.Printf("session %s: received %s", wampSess, msg.MessageType())
			}
			answer, broadcasts, mustClose, err := r.do2(func() (wamp.Message, []Broadcast, bool, error) {
				return dispatch(r, wampSess, msg)
			})
			if err != nil {
				answer = errorAnswer(err)
			}
			if answer != nil {
				if sendErr := wampSess.Send(answer); sendErr != nil {
					r.teardown(wampSess.ID)
					return
				}
			}
			deliver(broadcasts)
			if mustClose {
				wampSess.Close()
				r.teardown(wampSess.ID)
				return
			}
		case <-wampSess.Done():
			r.teardown(wampSess.ID)
			return
		}
	}
}

// deliver writes each broadcast to its target session, dropping (and
// logging) any that fail: a broadcast target that has already gone away is
// not this session's problem to recover from, per spec.md §5's "suspension
// points" note — sends never block the realm's serialization goroutine,
// since dispatch has already returned by the time deliver runs.
func deliver(broadcasts []Broadcast) {
	for _, b := range broadcasts {
		if b.Session == nil {
			continue
		}
		if err := b.Session.Send(b.Msg); err != nil {
			log.Printf("delivery to session %s failed: %v", b.Session, err)
		}
	}
}

// errorAnswer converts a processor failure into the wire ERROR frame it
// describes, per spec.md §7. A non-URIError is a programmer error: it is
// logged and reported as general_error without leaking its message.
func errorAnswer(err error) wamp.Message {
	if ue, ok := err.(*wamp.URIError); ok {
		return ue.ToError()
	}
	log.Printf("internal error: %v", err)
	return &wamp.Error{Type: wamp.CALL, Error: wamp.ErrGeneralError, Details: wamp.Dict{}}
}

// teardown removes a departed session from its realm and delivers the
// resulting outbound messages (ERRORs to callers whose provider vanished),
// per spec.md §5's provider-disconnect rule.
func (r *Realm) teardown(sessionID wamp.ID) {
	for _, out := range r.removeSession(sessionID) {
		if out.to == nil {
			continue
		}
		if err := out.to.Send(out.msg); err != nil {
			log.Printf("delivery to session %s failed: %v", out.to, err)
		}
	}
}

// do2 is do's generic counterpart: it submits fn to the realm's
// serialization goroutine and returns its four results once fn has run.
func (r *Realm) do2(fn func() (wamp.Message, []Broadcast, bool, error)) (wamp.Message, []Broadcast, bool, error) {
	var answer wamp.Message
	var broadcasts []Broadcast
	var mustClose bool
	var err error
	r.do(func() {
		answer, broadcasts, mustClose, err = fn()
	})
	return answer, broadcasts, mustClose, err
}

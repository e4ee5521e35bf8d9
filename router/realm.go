package router

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rexlunae/tornwamp/wamp"
)

// RealmConfig configures a Realm at creation time (spec.md §4.6/§9:
// "initialize at startup, tear down explicitly on shutdown").
type RealmConfig struct {
	URI       wamp.URI
	StrictURI bool
	// Roles seeds the realm's role table; nil uses DefaultRoleTable().
	Roles RoleTable
	// Registerer, if non-nil, registers the realm's Prometheus metrics.
	// Left nil, the realm runs without instrumentation (tests).
	Registerer prometheus.Registerer
}

// Realm is the scoped container of spec.md §3/§4.6: sessions, the URI
// registry, the role table, and the realm's pending-call table. Mutation
// of all of these is serialized through a single goroutine consuming
// actionChan, matching spec.md §5's "all mutation of a given realm's
// registry, session table, and pending-call table is serialized within
// one worker" and the teacher's own actionChan pattern in router.go.
type Realm struct {
	Name wamp.URI

	registry  *Registry
	sessions  map[wamp.ID]*session
	roles     RoleTable
	pending   *PendingCalls
	metrics   *Metrics
	strictURI bool

	actionChan chan func()
	waitDone   sync.WaitGroup
	closed     bool
	closeOnce  sync.Once
}

// NewRealm creates a Realm from config, pre-registering the meta
// procedures of spec.md §4.6.
func NewRealm(config *RealmConfig) *Realm {
	roles := config.Roles
	if roles == nil {
		roles = DefaultRoleTable()
	}
	r := &Realm{
		Name:       config.URI,
		registry:   NewRegistry(),
		sessions:   make(map[wamp.ID]*session),
		roles:      roles,
		pending:    NewPendingCalls(),
		actionChan: make(chan func()),
		strictURI:  config.StrictURI,
	}
	if config.Registerer != nil {
		r.metrics = NewMetrics(config.Registerer, string(config.URI))
	}
	r.registerMetaProcedures()
	return r
}

func (r *Realm) registerMetaProcedures() {
	sessionCount := func(args wamp.List, kwargs wamp.Dict, details wamp.Dict) (wamp.List, wamp.Dict, error) {
		return wamp.List{len(r.sessions)}, nil, nil
	}
	sessionList := func(args wamp.List, kwargs wamp.Dict, details wamp.Dict) (wamp.List, wamp.Dict, error) {
		ids := make([]wamp.ID, 0, len(r.sessions))
		for id := range r.sessions {
			ids = append(ids, id)
		}
		return wamp.List{ids}, nil, nil
	}
	sessionGet := func(args wamp.List, kwargs wamp.Dict, details wamp.Dict) (wamp.List, wamp.Dict, error) {
		if len(args) == 0 {
			return nil, nil, fmt.Errorf("missing session id argument")
		}
		id, ok := toID(args[0])
		if !ok {
			return nil, nil, fmt.Errorf("invalid session id argument")
		}
		sess, ok := r.sessions[id]
		if !ok {
			return nil, nil, &wamp.URIError{Err: wamp.ErrNoSuchSession}
		}
		safe := sess.wampSession.SafeSession()
		return wamp.List{wamp.Dict{
			"session":  safe.ID,
			"authid":   safe.AuthID,
			"authrole": safe.AuthRole,
			"zombie":   sess.wampSession.Zombie(),
		}}, nil, nil
	}

	for _, spec := range []struct {
		name wamp.URI
		fn   InvokeHandler
	}{
		{wamp.MetaProcSessionCount, sessionCount},
		{wamp.MetaProcSessionList, sessionList},
		{wamp.MetaProcSessionGet, sessionGet},
	} {
		r.registry.CreateProcedure(spec.name, Provider{Local: spec.fn})
	}
}

func toID(v interface{}) (wamp.ID, bool) {
	switch n := v.(type) {
	case wamp.ID:
		return n, true
	case int:
		return wamp.ID(n), true
	case int64:
		return wamp.ID(n), true
	case float64:
		return wamp.ID(n), true
	default:
		return 0, false
	}
}

// run is the realm's single serialization goroutine: every mutation of
// realm state is submitted here as a closure and executed in order.
func (r *Realm) run() {
	for action := range r.actionChan {
		action()
	}
}

// do submits fn to the realm's serialization goroutine and blocks until
// it has run.
func (r *Realm) do(fn func()) {
	done := make(chan struct{})
	r.actionChan <- func() {
		fn()
		close(done)
	}
	<-done
}

// addSession registers sess in the realm's session table, per spec.md
// §4.6's register_handler.
func (r *Realm) addSession(sess *session) {
	r.do(func() {
		r.sessions[sess.wampSession.ID] = sess
		if r.metrics != nil {
			r.metrics.ActiveSessions.Inc()
		}
	})
}

// removeSession deregisters sess and walks the registry/pending-call
// table to remove every trace of it, per spec.md §4.3's disconnect
// contract and §5's caller/provider disconnect rules. Returns the
// messages that must be delivered as a result (ERROR to callers whose
// provider just vanished).
func (r *Realm) removeSession(sessionID wamp.ID) []outboundMsg {
	var out []outboundMsg
	r.do(func() {
		delete(r.sessions, sessionID)
		if r.metrics != nil {
			for _, e := range r.registry.byName {
				switch e.kind {
				case kindTopic:
					for _, se := range e.topic.subscribers {
						if !se.sub.IsLocal() && se.sub.SessionID == sessionID {
							r.metrics.ActiveSubscribers.Dec()
						}
					}
				case kindProcedure:
					if e.proc.Provider.SessionID == sessionID && !e.proc.Provider.IsLocal() {
						r.metrics.RegisteredProcs.Dec()
					}
				}
			}
		}
		r.registry.Disconnect(sessionID)

		r.pending.RemoveByCaller(sessionID)

		for _, entry := range r.pending.RemoveByProvider(sessionID) {
			out = append(out, outboundMsg{
				to: entry.Caller,
				msg: &wamp.Error{
					Type: wamp.CALL, Request: entry.CallRequest, Details: wamp.Dict{},
					Error: wamp.ErrNoSuchProcedure,
				},
			})
		}
		if r.metrics != nil {
			r.metrics.ActiveSessions.Dec()
		}
	})
	return out
}

// outboundMsg pairs a message with the session it must be delivered to,
// used when realm-internal bookkeeping (like provider disconnect) needs to
// notify a session other than the one that triggered the action.
type outboundMsg struct {
	to  *wamp.Session
	msg wamp.Message
}

// isEmpty reports whether the realm has no sessions left. The router does
// not remove a realm from its realm map when it becomes empty; realms stay
// until Router.Close.
func (r *Realm) isEmpty() bool {
	done := make(chan bool)
	r.actionChan <- func() { done <- len(r.sessions) == 0 }
	return <-done
}

// close shuts down the realm's serialization goroutine. Safe to call more
// than once; only the first call tears anything down.
func (r *Realm) close() {
	r.closeOnce.Do(func() {
		r.do(func() {
			r.closed = true
			for _, sess := range r.sessions {
				sess.wampSession.End(nil)
				sess.wampSession.Close()
			}
		})
		close(r.actionChan)
	})
}

package router

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rexlunae/tornwamp/wamp"
)

const helloTimeout = 5 * time.Second

// Router handles new Peers and routes requests to the requested Realm.
// Generalized from the teacher's router.go: the actionChan serialization
// pattern is unchanged, but realm creation is always on-demand per spec.md
// §4.6 ("get_realm(name) creates on demand") rather than gated behind an
// opt-in auto-realm template, and there is no WAMP-CRA authClient step —
// identity is whatever the transport already determined (spec.md §1's
// non-goal: "authentication beyond a role/identity tag supplied by the
// transport").
type Router interface {
	// AddRealm pre-configures a Realm (e.g. with a non-default role table)
	// before any client attaches to it.
	AddRealm(*RealmConfig) (*Realm, error)

	// Attach performs the HELLO/WELCOME handshake on client, joins it to
	// the requested realm (creating the realm if this is the first
	// session to reference it), and then starts serving the session in its
	// own goroutine and returns. authID/authRole is the identity tag the transport has
	// already established for this connection (both empty for anonymous).
	Attach(client wamp.Peer, authID, authRole string) error

	// Close stops the router and waits for every realm to finish closing.
	Close()
}

type router struct {
	realms    map[wamp.URI]*Realm
	strictURI bool

	actionChan chan func()
	waitRealms sync.WaitGroup
	closed     bool
}

// NewRouter creates a WAMP router. strictURI enables strict URI validation
// for realm names and SUBSCRIBE/REGISTER targets; PUBLISH and CALL targets
// are not validated.
func NewRouter(strictURI bool) Router {
	r := &router{
		realms:     make(map[wamp.URI]*Realm),
		actionChan: make(chan func()),
		strictURI:  strictURI,
	}
	go r.run()
	return r
}

func (r *router) run() {
	for action := range r.actionChan {
		action()
	}
}

func (r *router) AddRealm(config *RealmConfig) (*Realm, error) {
	if !config.URI.ValidURI(r.strictURI, "") {
		return nil, fmt.Errorf("invalid realm URI %q", config.URI)
	}
	var realm *Realm
	sync := make(chan error, 1)
	r.actionChan <- func() {
		if r.closed {
			sync <- errors.New("router closed")
			return
		}
		if _, ok := r.realms[config.URI]; ok {
			sync <- fmt.Errorf("realm already exists: %s", config.URI)
			return
		}
		realm = NewRealm(config)
		r.realms[config.URI] = realm
		sync <- nil
	}
	if err := <-sync; err != nil {
		return nil, fmt.Errorf("error adding realm: %w", err)
	}
	r.waitRealms.Add(1)
	go func() {
		realm.run()
		r.waitRealms.Done()
	}()
	log.Printf("added realm: %s", config.URI)
	return realm, nil
}

// getOrCreateRealm returns the realm named name, creating it with a
// default role table if this is the first reference to it (spec.md §4.6).
func (r *router) getOrCreateRealm(name wamp.URI) (*Realm, error) {
	var realm *Realm
	sync := make(chan error, 1)
	r.actionChan <- func() {
		if r.closed {
			sync <- errors.New("router is closing, not accepting new clients")
			return
		}
		if existing, ok := r.realms[name]; ok {
			realm = existing
			sync <- nil
			return
		}
		realm = NewRealm(&RealmConfig{URI: name, StrictURI: r.strictURI})
		r.realms[name] = realm
		r.waitRealms.Add(1)
		go func(rl *Realm) {
			rl.run()
			r.waitRealms.Done()
		}(realm)
		log.Printf("auto-added realm: %s", name)
		sync <- nil
	}
	return realm, <-sync
}

func (r *router) Attach(client wamp.Peer, authID, authRole string) error {
	abort := func(reason wamp.URI, cause error) {
		details := wamp.Dict{}
		if cause != nil {
			details["error"] = cause.Error()
			log.Printf("aborting client connection: %v", cause)
		}
		client.Send(&wamp.Abort{Reason: reason, Details: details})
		client.Close()
	}

	msg, err := recvTimeout(client, helloTimeout)
	if err != nil {
		return fmt.Errorf("did not receive HELLO: %w", err)
	}
	hello, ok := msg.(*wamp.Hello)
	if !ok {
		err = fmt.Errorf("protocol error: expected HELLO, received %s", msg.MessageType())
		abort(wamp.ErrProtocolViolation, err)
		return err
	}
	if hello.Realm == "" || !hello.Realm.ValidURI(r.strictURI, "") {
		err = errors.New("no realm requested")
		abort(wamp.ErrNoSuchRealm, err)
		return err
	}

	realm, err := r.getOrCreateRealm(hello.Realm)
	if err != nil {
		abort(wamp.ErrSystemShutdown, nil)
		return err
	}

	hello.Details = wamp.NormalizeDict(hello.Details)
	sess := wamp.NewSession(client, wamp.GlobalID(), hello.Details, hello.Details)
	sess.Realm = hello.Realm
	sess.AuthID = authID
	sess.AuthRole = authRole
	sess.SetState(wamp.Attached)

	welcome := &wamp.Welcome{
		ID: sess.ID,
		Details: wamp.Dict{
			"realm": string(hello.Realm),
			"roles": wamp.Dict{
				"broker": wamp.Dict{},
				"dealer": wamp.Dict{},
			},
			"authid":   authID,
			"authrole": authRole,
		},
	}
	if err := client.Send(welcome); err != nil {
		return fmt.Errorf("sending WELCOME: %w", err)
	}
	agent := wamp.OptionString(hello.Details, "agent")
	if agent != "" {
		log.Printf("created session %s on realm %s (agent=%q)", sess, hello.Realm, agent)
	} else {
		log.Printf("created session %s on realm %s", sess, hello.Realm)
	}
	go serve(realm, sess)
	return nil
}

func (r *router) Close() {
	sync := make(chan struct{})
	r.actionChan <- func() {
		r.closed = true
		for uri, realm := range r.realms {
			realm.close()
			delete(r.realms, uri)
		}
		sync <- struct{}{}
	}
	<-sync
	r.waitRealms.Wait()
}

// recvTimeout waits up to timeout for the next message on peer, used only
// during the HELLO handshake before a session's normal dispatch loop takes
// over (spec.md §4.8's handshake suspension point).
func recvTimeout(peer wamp.Peer, timeout time.Duration) (wamp.Message, error) {
	select {
	case msg, ok := <-peer.Recv():
		if !ok {
			return nil, errors.New("peer closed")
		}
		return msg, nil
	case <-time.After(timeout):
		return nil, errors.New("timeout waiting for message")
	}
}

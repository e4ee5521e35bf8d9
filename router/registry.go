package router

import "github.com/rexlunae/tornwamp/wamp"

// entryKind tags what kind of URI an entry refers to, per spec.md §3's
// three URI variants.
type entryKind int

const (
	kindTopic entryKind = iota
	kindProcedure
	kindError
)

// entry is the registry's unit of bookkeeping: every name present in
// byName has exactly one entry, and that entry's registrationID is present
// in byRegID pointing back to the same name (spec.md §3's registry
// invariant (a)).
type entry struct {
	kind  entryKind
	name  wamp.URI
	regID wamp.ID
	topic *Topic
	proc  *Procedure
}

// Registry is the per-realm URI registry of spec.md §4.3: two indices over
// Topics, Procedures, and Errors, kept consistent with each other.
// Registry is not internally synchronized: callers (the realm's single
// action goroutine) are expected to serialize access to it, per spec.md
// §5's single-threaded-per-realm concurrency model.
type Registry struct {
	byName  map[wamp.URI]*entry
	byRegID map[wamp.ID]*entry
}

// NewRegistry creates an empty registry and pre-registers the predefined
// error URIs of spec.md §6, which must be present from realm creation and
// can never be shadowed (spec.md §3 invariant (c)).
func NewRegistry() *Registry {
	r := &Registry{
		byName:  make(map[wamp.URI]*entry),
		byRegID: make(map[wamp.ID]*entry),
	}
	for _, name := range wamp.PredefinedErrors {
		r.createError(name)
	}
	return r
}

func (r *Registry) insert(e *entry) {
	r.byName[e.name] = e
	r.byRegID[e.regID] = e
}

// Get looks up name, reporting whether it exists.
func (r *Registry) Get(name wamp.URI) (kind entryKind, topic *Topic, proc *Procedure, ok bool) {
	e, found := r.byName[name]
	if !found {
		return 0, nil, nil, false
	}
	return e.kind, e.topic, e.proc, true
}

// CreateTopic returns the Topic named name, creating it if absent
// (idempotent per spec.md §4.3). Fails if name already resolves to a
// non-Topic URI.
func (r *Registry) CreateTopic(name wamp.URI) (*Topic, error) {
	if e, ok := r.byName[name]; ok {
		if e.kind != kindTopic {
			return nil, &wamp.URIError{Err: wamp.ErrNoSuchSubscription}
		}
		return e.topic, nil
	}
	t := &Topic{Name: name, RegistrationID: wamp.GlobalID(), subscribers: make(map[wamp.ID]*subscriberEntry)}
	r.insert(&entry{kind: kindTopic, name: name, regID: t.RegistrationID, topic: t})
	return t, nil
}

// CreateProcedure registers provider as the sole provider of name, failing
// with procedure_already_exists if any URI already exists with that name
// (spec.md §4.3 — registration is not idempotent, unlike topics).
func (r *Registry) CreateProcedure(name wamp.URI, provider Provider) (*Procedure, error) {
	if _, ok := r.byName[name]; ok {
		return nil, &wamp.URIError{Err: wamp.ErrProcedureAlreadyExists}
	}
	p := &Procedure{Name: name, RegistrationID: wamp.GlobalID(), Provider: provider}
	r.insert(&entry{kind: kindProcedure, name: name, regID: p.RegistrationID, proc: p})
	return p, nil
}

// createError registers name as a stateless Error URI, idempotently.
func (r *Registry) createError(name wamp.URI) wamp.ID {
	if e, ok := r.byName[name]; ok {
		return e.regID
	}
	id := wamp.GlobalID()
	r.insert(&entry{kind: kindError, name: name, regID: id})
	return id
}

// Remove deletes the URI registered under regID, returning its name.
func (r *Registry) Remove(regID wamp.ID) (wamp.URI, bool) {
	e, ok := r.byRegID[regID]
	if !ok {
		return "", false
	}
	delete(r.byName, e.name)
	delete(r.byRegID, regID)
	return e.name, true
}

// removeByName deletes whatever URI is registered under name, if any.
func (r *Registry) removeByName(name wamp.URI) {
	if e, ok := r.byName[name]; ok {
		delete(r.byName, name)
		delete(r.byRegID, e.regID)
	}
}

// AddSubscriber creates the Topic named name if absent and adds sub as a
// subscriber, returning the subscription id.
func (r *Registry) AddSubscriber(name wamp.URI, sub Subscriber) (wamp.ID, error) {
	t, err := r.CreateTopic(name)
	if err != nil {
		return 0, err
	}
	return t.addSubscriber(sub), nil
}

// RemoveSubscriber removes sess's subscription from the Topic named name
// by subscription id, removing the Topic itself once it has no
// subscribers left (spec.md §4.3).
func (r *Registry) RemoveSubscriber(name wamp.URI, subscriptionID wamp.ID) bool {
	e, ok := r.byName[name]
	if !ok || e.kind != kindTopic {
		return false
	}
	removed := e.topic.removeSubscription(subscriptionID)
	if removed && !e.topic.Live() {
		r.removeByName(name)
	}
	return removed
}

// RemoveSubscriberByID removes a subscription known only by its
// subscription id (as carried on UNSUBSCRIBE, which does not repeat the
// topic name), searching every Topic for it. Removes the Topic itself once
// it has no subscribers left. Returns false if no such subscription exists.
func (r *Registry) RemoveSubscriberByID(subscriptionID wamp.ID) bool {
	for name, e := range r.byName {
		if e.kind != kindTopic {
			continue
		}
		if e.topic.removeSubscription(subscriptionID) {
			if !e.topic.Live() {
				r.removeByName(name)
			}
			return true
		}
	}
	return false
}

// RemoveProcedure is the inverse of CreateProcedure (spec.md §9's open
// question about remove_rpc), invoked by the UNREGISTER processor.
func (r *Registry) RemoveProcedure(regID wamp.ID, sessionID wamp.ID) (wamp.URI, error) {
	e, ok := r.byRegID[regID]
	if !ok || e.kind != kindProcedure {
		return "", &wamp.URIError{Err: wamp.ErrNoSuchRegistration}
	}
	if e.proc.Provider.SessionID != sessionID {
		return "", &wamp.URIError{Err: wamp.ErrNoSuchRegistration}
	}
	delete(r.byName, e.name)
	delete(r.byRegID, regID)
	return e.name, nil
}

// Disconnect walks every URI in the registry, removing sessionID as
// subscriber or provider, and deletes any URI left non-live, per spec.md
// §4.3's disconnect cleanup contract.
func (r *Registry) Disconnect(sessionID wamp.ID) {
	var deadNames []wamp.URI
	for name, e := range r.byName {
		switch e.kind {
		case kindTopic:
			e.topic.removeSubscriberSession(sessionID)
			if !e.topic.Live() {
				deadNames = append(deadNames, name)
			}
		case kindProcedure:
			if e.proc.Provider.SessionID == sessionID && !e.proc.Provider.IsLocal() {
				e.proc.Provider = Provider{}
				deadNames = append(deadNames, name)
			}
		}
	}
	for _, name := range deadNames {
		r.removeByName(name)
	}
}

package router

import (
	"time"

	"github.com/rexlunae/tornwamp/wamp"
)

// PendingEntry is the pending-call table row of spec.md §3: the invoking
// session, when the call was submitted, and the call's options (consulted
// for receive_progress on a progressive YIELD).
type PendingEntry struct {
	InvocationID      wamp.ID
	CallRequest       wamp.ID
	Caller            *wamp.Session
	ProviderSessionID wamp.ID
	Submitted         time.Time
	Options           wamp.Dict
}

// PendingCalls is the pending-call table of spec.md §3/§4.5: process-wide
// in the spec's description, kept per-realm here since a CALL's caller and
// provider are always in the same realm (see DESIGN.md). Keyed by the
// router-generated invocation id, the same id a provider's YIELD/ERROR
// correlates against — not by the caller's original CALL request id, which
// is only unique per session.
type PendingCalls struct {
	byInvocation map[wamp.ID]*PendingEntry
	// tombstones marks invocation ids whose pending entry was removed
	// because the caller cancelled or disconnected, so that a YIELD which
	// arrives afterward gets an INTERRUPT(killnowait) rather than a plain
	// not_pending error (spec.md §4.5's cancellation paragraph).
	tombstones map[wamp.ID]struct{}
}

// NewPendingCalls creates an empty pending-call table.
func NewPendingCalls() *PendingCalls {
	return &PendingCalls{
		byInvocation: make(map[wamp.ID]*PendingEntry),
		tombstones:   make(map[wamp.ID]struct{}),
	}
}

// Add inserts a new pending entry for the freshly generated invocationID.
func (t *PendingCalls) Add(invocationID, callRequest wamp.ID, caller *wamp.Session, providerSessionID wamp.ID, options wamp.Dict) {
	t.byInvocation[invocationID] = &PendingEntry{
		InvocationID: invocationID, CallRequest: callRequest, Caller: caller,
		ProviderSessionID: providerSessionID, Submitted: time.Now(), Options: options,
	}
}

// Get looks up a pending entry by invocation id.
func (t *PendingCalls) Get(invocationID wamp.ID) (*PendingEntry, bool) {
	e, ok := t.byInvocation[invocationID]
	return e, ok
}

// Remove deletes a pending entry, e.g. on a terminal non-progressive
// YIELD/ERROR.
func (t *PendingCalls) Remove(invocationID wamp.ID) {
	delete(t.byInvocation, invocationID)
}

// Cancel removes a pending entry and marks it tombstoned, so a later
// stray YIELD for it is answered with INTERRUPT(killnowait) instead of
// not_pending.
func (t *PendingCalls) Cancel(invocationID wamp.ID) {
	delete(t.byInvocation, invocationID)
	t.tombstones[invocationID] = struct{}{}
}

// Tombstoned reports (and consumes) whether invocationID was recently
// cancelled — consulted exactly once by the YIELD processor.
func (t *PendingCalls) Tombstoned(invocationID wamp.ID) bool {
	if _, ok := t.tombstones[invocationID]; ok {
		delete(t.tombstones, invocationID)
		return true
	}
	return false
}

// FindByCallRequest locates the pending entry for the caller's original
// CALL request id — needed by CANCEL, which only carries that id, not the
// router-generated invocation id.
func (t *PendingCalls) FindByCallRequest(callerSessionID, callRequest wamp.ID) (*PendingEntry, bool) {
	for _, e := range t.byInvocation {
		if e.Caller.ID == callerSessionID && e.CallRequest == callRequest {
			return e, true
		}
	}
	return nil, false
}

// RemoveByCaller removes and tombstones every pending entry whose caller
// is sessionID, returning them so the caller's session cleanup can decide
// whether anything further is needed (spec.md §5: caller disconnect).
func (t *PendingCalls) RemoveByCaller(sessionID wamp.ID) []*PendingEntry {
	var out []*PendingEntry
	for id, e := range t.byInvocation {
		if e.Caller.ID == sessionID {
			out = append(out, e)
			delete(t.byInvocation, id)
			t.tombstones[id] = struct{}{}
		}
	}
	return out
}

// RemoveByProvider removes every pending entry whose provider is
// sessionID, returning them so the caller of each can be sent
// no_such_procedure (spec.md §5: provider disconnect).
func (t *PendingCalls) RemoveByProvider(sessionID wamp.ID) []*PendingEntry {
	var out []*PendingEntry
	for id, e := range t.byInvocation {
		if e.ProviderSessionID == sessionID {
			out = append(out, e)
			delete(t.byInvocation, id)
		}
	}
	return out
}

// CancelCall (package-level) builds the INTERRUPT to send to a provider in
// response to a caller's CANCEL message, per spec.md §4.5, returning the
// provider's session id alongside it so the caller (which only has access
// to the realm's session table, not this package's PendingEntry) can
// resolve the actual session to deliver it to.
func CancelCall(table *PendingCalls, callerSessionID, callRequest wamp.ID) (*wamp.Interrupt, wamp.ID) {
	entry, ok := table.FindByCallRequest(callerSessionID, callRequest)
	if !ok {
		return nil, 0
	}
	table.Cancel(entry.InvocationID)
	return &wamp.Interrupt{Request: entry.InvocationID, Options: wamp.Dict{"mode": "killnowait"}}, entry.ProviderSessionID
}

// Yield correlates a provider's YIELD with its pending entry, per spec.md
// §4.5: returns the caller to deliver the RESULT to and the RESULT itself
// (nil/nil if there is none — e.g. the provider must instead be sent an
// INTERRUPT or ERROR, also returned). The pending entry is removed unless
// the yield is progressive and the original call asked for progressive
// results.
func Yield(table *PendingCalls, msg *wamp.Yield) (caller *wamp.Session, callerResult *wamp.Result, providerInterrupt *wamp.Interrupt, providerError *wamp.Error) {
	entry, ok := table.Get(msg.Request)
	if !ok {
		if table.Tombstoned(msg.Request) {
			return nil, nil, &wamp.Interrupt{Request: msg.Request, Options: wamp.Dict{"mode": "killnowait"}}, nil
		}
		return nil, nil, nil, &wamp.Error{
			Type: wamp.YIELD, Request: msg.Request, Details: wamp.Dict{}, Error: wamp.ErrNotPending,
		}
	}

	progressive := wamp.OptionBool(msg.Options, "progress") && wamp.OptionBool(entry.Options, "receive_progress")
	if !progressive {
		table.Remove(msg.Request)
	}

	details := wamp.Dict{}
	if wamp.OptionBool(msg.Options, "progress") {
		details["progress"] = true
	}
	return entry.Caller, &wamp.Result{
		Request: entry.CallRequest, Details: details,
		Arguments: msg.Arguments, ArgumentsKw: msg.ArgumentsKw,
	}, nil, nil
}

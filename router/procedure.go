package router

import "github.com/rexlunae/tornwamp/wamp"

// InvokeHandler is a pseudo-procedure's callback: a local, in-process
// substitute for a remote provider's Peer.Send/Recv round trip (spec.md
// §4.5's "If pseudo (local callback), call it synchronously").
type InvokeHandler func(args wamp.List, kwargs wamp.Dict, details wamp.Dict) (wamp.List, wamp.Dict, error)

// Provider is either a remote session or a local callback, per spec.md
// §3's "provider (session handle or local callback)".
type Provider struct {
	SessionID wamp.ID
	Session   *wamp.Session
	Local     InvokeHandler
}

func (p Provider) IsLocal() bool { return p.Local != nil }

// IsSet reports whether a provider has actually been assigned: either a
// remote session or a local callback.
func (p Provider) IsSet() bool { return p.Local != nil || p.Session != nil }

// Procedure is the RPC entity of spec.md §4.5: a URI with at most one
// provider, the recipient of CALLs by way of INVOCATION.
type Procedure struct {
	Name           wamp.URI
	RegistrationID wamp.ID
	Provider       Provider
}

// Live reports whether the Procedure has a provider or is pseudo, per
// spec.md §4.5.
func (p *Procedure) Live() bool { return p.Provider.IsSet() }

// Invoke correlates an inbound CALL with this procedure's provider. For a
// pseudo-procedure it calls the local callback synchronously and returns
// the RESULT to send directly to the caller. For a remote provider it
// records an entry in table and returns an INVOCATION broadcast for the
// provider; there is no direct answer to the caller at this point
// (spec.md §4.5).
func (p *Procedure) Invoke(table *PendingCalls, caller *wamp.Session, callRequest wamp.ID, args wamp.List, kwargs wamp.Dict, options wamp.Dict) (result *wamp.Result, invocation *Broadcast, err error) {
	if p.Provider.IsLocal() {
		outArgs, outKwargs, cbErr := p.Provider.Local(args, kwargs, wamp.Dict{})
		if cbErr != nil {
			if ue, ok := cbErr.(*wamp.URIError); ok {
				return nil, nil, &wamp.URIError{Err: ue.Err, RequestType: wamp.CALL, Request: callRequest, Args: ue.Args, Kwargs: ue.Kwargs}
			}
			return nil, nil, &wamp.URIError{Err: wamp.ErrGeneralError, RequestType: wamp.CALL, Request: callRequest}
		}
		return &wamp.Result{Request: callRequest, Details: wamp.Dict{}, Arguments: outArgs, ArgumentsKw: outKwargs}, nil, nil
	}

	invocationID := wamp.GlobalID()
	details := wamp.Dict{}
	if wamp.OptionBool(options, "disclose_me") {
		details["caller"] = caller.ID
	}
	if wamp.OptionBool(options, "receive_progress") {
		details["receive_progress"] = true
	}
	inv := &wamp.Invocation{
		Request:      invocationID,
		Registration: p.RegistrationID,
		Details:      details,
		Arguments:    args,
		ArgumentsKw:  kwargs,
	}
	table.Add(invocationID, callRequest, caller, p.Provider.SessionID, options)
	return nil, &Broadcast{Session: p.Provider.Session, Msg: inv}, nil
}

package wamp

import "regexp"

// URI is a WAMP URI: a dotted name used to identify realms, topics,
// procedures, and errors.
type URI string

// strictURIPattern is the pattern from spec.md §3: dot-separated
// lower-case/digit/underscore components.  looseURIPattern additionally
// allows empty components, which WAMP calls "wildcard" URIs and which the
// teacher's router.go plumbs a strictURI flag through to allow or reject.
var (
	strictURIPattern = regexp.MustCompile(`^([0-9a-z_]+\.)*[0-9a-z_]+$`)
	looseURIPattern  = regexp.MustCompile(`^(([0-9a-z_]+\.)|\.)*([0-9a-z_]+)?$`)
)

// ValidURI reports whether u matches the URI grammar.  When strict is
// true, every component must be non-empty (spec.md §3's canonical
// pattern); when false, empty components are tolerated, mirroring the
// teacher's optional relaxed-URI router mode.  knownRoles is accepted for
// parity with the teacher's call signature but is unused: this router does
// not implement per-role URI namespacing.
func (u URI) ValidURI(strict bool, knownRoles string) bool {
	_ = knownRoles
	if u == "" {
		return false
	}
	if strict {
		return strictURIPattern.MatchString(string(u))
	}
	return looseURIPattern.MatchString(string(u))
}

func (u URI) String() string { return string(u) }

// Predefined error URIs, registered in every realm at creation time
// (spec.md §6) and immune to shadowing by REGISTER/SUBSCRIBE (spec.md
// §3's URI Registry invariant (c)).
const (
	ErrCloseRealm              = URI("wamp.close.close_realm")
	ErrGoodbyeAndOut           = URI("wamp.close.goodbye_and_out")
	ErrSystemShutdown          = URI("wamp.close.system_shutdown")
	ErrInvalidURI              = URI("wamp.error.invalid_uri")
	ErrNoSuchProcedure         = URI("wamp.error.no_such_procedure")
	ErrProcedureAlreadyExists  = URI("wamp.error.procedure_already_exists")
	ErrNoSuchRegistration      = URI("wamp.error.no_such_registration")
	ErrNoSuchSubscription      = URI("wamp.error.no_such_subscription")
	ErrInvalidArgument         = URI("wamp.error.invalid_argument")
	ErrProtocolViolation       = URI("wamp.error.protocol_violation")
	ErrNotAuthorized           = URI("wamp.error.not_authorized")
	ErrAuthorizationFailed     = URI("wamp.error.authorization_failed")
	ErrNoSuchRealm             = URI("wamp.error.no_such_realm")
	ErrNoSuchRole              = URI("wamp.error.no_such_role")
	ErrCanceled                = URI("wamp.error.canceled")
	ErrOptionNotAllowed        = URI("wamp.error.option_not_allowed")
	ErrNoEligibleCallee        = URI("wamp.error.no_eligible_callee")
	ErrOptionDisallowedDiscloseMe = URI("wamp.error.option_disallowed.disclose_me")
	ErrNetworkFailure          = URI("wamp.error.network_failure")
	ErrNotPending              = URI("wamp.error.not_pending")
	ErrUnsupported             = URI("wamp.error.unsupported")
	ErrGeneralError            = URI("wamp.error.general_error")

	// ErrNoSuchSession is not in spec.md §6's predefined list but is
	// required by the wamp.session.get meta-procedure supplemented from
	// original_source per SPEC_FULL.md.
	ErrNoSuchSession = URI("wamp.error.no_such_session")
)

// PredefinedErrors lists every error URI that must exist in a realm from
// the moment it is created, per spec.md §3's registry invariant (c).
var PredefinedErrors = []URI{
	ErrCloseRealm, ErrGoodbyeAndOut, ErrSystemShutdown,
	ErrInvalidURI, ErrNoSuchProcedure, ErrProcedureAlreadyExists,
	ErrNoSuchRegistration, ErrNoSuchSubscription, ErrInvalidArgument,
	ErrProtocolViolation, ErrNotAuthorized, ErrAuthorizationFailed,
	ErrNoSuchRealm, ErrNoSuchRole, ErrCanceled, ErrOptionNotAllowed,
	ErrNoEligibleCallee, ErrOptionDisallowedDiscloseMe, ErrNetworkFailure,
	ErrNotPending, ErrUnsupported, ErrGeneralError, ErrNoSuchSession,
}

// Meta-procedure URIs exposed by every realm, per spec.md §4.6.
const (
	MetaProcSessionCount = URI("wamp.session.count")
	MetaProcSessionList  = URI("wamp.session.list")
	MetaProcSessionGet   = URI("wamp.session.get")
)

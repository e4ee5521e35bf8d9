package wamp

import (
	"fmt"
	"sync"
)

// SessionState is the session lifecycle of spec.md §3: Unattached ->
// Attached(realm) -> Closing -> Closed.
type SessionState int

const (
	Unattached SessionState = iota
	Attached
	Closing
	Closed
)

// Session is an active WAMP session.  It associates a session ID and
// details with a connected Peer, which is the remote side of the session.
// Generalized from the teacher's wamp/session.go: HasRole/HasFeature/
// Done/End/SafeSession are carried over unchanged in spirit, with
// AuthID/AuthRole (the role/identity tag spec.md §3 calls for) and an
// explicit lifecycle state added.
type Session struct {
	// Interface for communicating with connected peer.
	Peer
	// Unique session ID.
	ID ID
	// Realm this session is attached to; empty until Attached.
	Realm URI
	// Details about session (merged HELLO/WELCOME detail dict).
	Details Dict
	// AuthID and AuthRole are the identity tag supplied by the transport.
	AuthID   string
	AuthRole string

	// Roles and features supported by peer.
	roles map[string]map[string]struct{}

	mu      sync.Mutex
	state   SessionState
	done    chan struct{}
	goodbye *Goodbye
	zombie  bool
}

var (
	// NoGoodbye indicates that no Goodbye message was sent out.
	NoGoodbye = &Goodbye{}
	// closedchan is a reusable closed channel.
	closedchan = make(chan struct{})
)

func init() {
	close(closedchan)
}

func NewSession(peer Peer, id ID, details Dict, greetDetails Dict) *Session {
	s := &Session{
		Peer:    peer,
		ID:      id,
		Details: details,
		state:   Unattached,
	}
	s.setRoles(greetDetails)
	return s
}

func (s *Session) SafeSession() *Session {
	return &Session{
		ID:       s.ID,
		Details:  s.Details,
		roles:    s.roles,
		AuthID:   s.AuthID,
		AuthRole: s.AuthRole,
	}
}

// setRoles extracts the specified roles from HELLO or WELCOME details, and
// configures the session with the roles and features for each role. Walks
// the nested details["roles"][role]["features"] shape with DictValue rather
// than a hand-rolled chain of type assertions per level.
func (s *Session) setRoles(details Dict) {
	rolesVal, err := DictValue(details, []string{"roles"})
	if err != nil {
		s.roles = nil // no roles
		return
	}
	roles, ok := AsDict(rolesVal)
	if !ok || len(roles) == 0 {
		s.roles = nil // no roles
		return
	}

	roleMap := make(map[string]map[string]struct{})
	for role := range roles {
		roleMap[role] = nil
		featuresVal, err := DictValue(details, []string{"roles", role, "features"})
		if err != nil {
			continue
		}
		features, ok := AsDict(featuresVal)
		if !ok {
			continue
		}
		featMap := make(map[string]struct{})
		for feature, iface := range features {
			if b, _ := iface.(bool); !b {
				continue
			}
			featMap[feature] = struct{}{}
		}
		roleMap[role] = featMap
	}
	s.roles = roleMap
}

// String returns the session ID as a string.
func (s *Session) String() string { return fmt.Sprintf("%d", s.ID) }

// HasRole returns true if the session supports the specified role.
func (s *Session) HasRole(role string) bool {
	_, ok := s.roles[role]
	return ok
}

// HasFeature returns true if the session has the specified feature for the
// specified role.
func (s *Session) HasFeature(role, feature string) bool {
	features, ok := s.roles[role]
	if !ok {
		return false
	}
	_, ok = features[feature]
	return ok
}

// HasAnnouncedRoles reports whether the session's HELLO/WELCOME details
// declared any roles at all. Callers gating on HasRole/HasFeature check this
// first, so a peer that never announces a "roles" dict (most test clients,
// and any client speaking to a realm that doesn't care) isn't penalized for
// silence the way it would be if the absence of a role were itself refused.
func (s *Session) HasAnnouncedRoles() bool { return len(s.roles) > 0 }

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session to state.
func (s *Session) SetState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	if s.done == nil {
		s.done = make(chan struct{})
	}
	d := s.done
	s.mu.Unlock()
	return d
}

func (s *Session) Goodbye() *Goodbye {
	s.mu.Lock()
	g := s.goodbye
	s.mu.Unlock()
	return g
}

func (s *Session) End(goodbye *Goodbye) bool {
	s.mu.Lock()
	if s.goodbye != nil {
		s.mu.Unlock()
		return false // already ended
	}

	if goodbye == nil {
		s.goodbye = NoGoodbye
	} else {
		s.goodbye = goodbye
	}
	s.zombie = true
	s.state = Closed

	if s.done == nil {
		s.done = closedchan
	} else {
		close(s.done)
	}
	s.mu.Unlock()
	return true
}

// Zombie reports whether the session has ended but may still be
// referenced by in-flight cleanup code (spec.md §3).
func (s *Session) Zombie() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zombie
}

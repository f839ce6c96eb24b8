// Package session tracks per-connection authentication state: a connection is
// either fresh (no username) or authenticated. Pure bookkeeping, no I/O.
package session

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// ConnId identifies one accepted connection for its whole lifetime.
type ConnId uint32

type DuplicateSessionError struct {
	Id ConnId
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("Attempted to create session with duplicate connection id %d", e.Id)
}

type MissingSessionError struct {
	Id ConnId
}

func (e *MissingSessionError) Error() string {
	return fmt.Sprintf("Missing session for connection id %d", e.Id)
}

type AlreadyAuthenticatedError struct {
	Id       ConnId
	Username string
}

func (e *AlreadyAuthenticatedError) Error() string {
	return fmt.Sprintf("Connection %d is already authenticated as '%s'", e.Id, e.Username)
}

// Session is a snapshot of one connection's state.
type Session struct {
	Id            ConnId
	RemoteAddr    string
	Username      string
	Authenticated bool
}

// Table maps connection ids to sessions. State transitions all happen on the
// dispatch goroutine; the lock exists because transport goroutines read the
// table for logging.
type Table struct {
	nextId atomic.Uint32

	mut      sync.RWMutex
	sessions map[ConnId]*Session
}

func NewTable() *Table {
	return &Table{
		sessions: make(map[ConnId]*Session),
	}
}

// NextId issues a fresh connection id. Safe to call from any goroutine.
func (t *Table) NextId() ConnId {
	return ConnId(t.nextId.Add(1))
}

func (t *Table) Add(id ConnId, remoteAddr string) error {
	t.mut.Lock()
	defer t.mut.Unlock()

	if _, has := t.sessions[id]; has {
		return &DuplicateSessionError{Id: id}
	}
	t.sessions[id] = &Session{Id: id, RemoteAddr: remoteAddr}
	return nil
}

func (t *Table) Remove(id ConnId) {
	t.mut.Lock()
	defer t.mut.Unlock()
	delete(t.sessions, id)
}

func (t *Table) Get(id ConnId) (Session, bool) {
	t.mut.RLock()
	defer t.mut.RUnlock()

	s, has := t.sessions[id]
	if !has {
		return Session{}, false
	}
	return *s, true
}

// Authenticate transitions a session to the authenticated state. Only valid
// from the unauthenticated state.
func (t *Table) Authenticate(id ConnId, username string) error {
	t.mut.Lock()
	defer t.mut.Unlock()

	s, has := t.sessions[id]
	if !has {
		return &MissingSessionError{Id: id}
	}
	if s.Authenticated {
		return &AlreadyAuthenticatedError{Id: id, Username: s.Username}
	}
	s.Username = username
	s.Authenticated = true
	return nil
}

func (t *Table) IsAuthenticated(id ConnId) bool {
	t.mut.RLock()
	defer t.mut.RUnlock()

	s, has := t.sessions[id]
	return has && s.Authenticated
}

func (t *Table) Username(id ConnId) (string, bool) {
	t.mut.RLock()
	defer t.mut.RUnlock()

	s, has := t.sessions[id]
	if !has || !s.Authenticated {
		return "", false
	}
	return s.Username, true
}

// LoggedUsernames returns every authenticated username, sorted so listings
// are deterministic.
func (t *Table) LoggedUsernames() []string {
	t.mut.RLock()
	defer t.mut.RUnlock()

	names := make([]string, 0, len(t.sessions))
	for _, s := range t.sessions {
		if s.Authenticated {
			names = append(names, s.Username)
		}
	}
	sort.Strings(names)
	return names
}

func (t *Table) Len() int {
	t.mut.RLock()
	defer t.mut.RUnlock()
	return len(t.sessions)
}

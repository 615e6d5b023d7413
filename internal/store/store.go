package store

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"chaintable/internal/game"
)

var (
	ErrNotFound = errors.New("session_not_found")
	ErrConflict = errors.New("session_id_in_use")
)

// Store is the authoritative registry of live sessions. Each session gets its
// own lock: mutations on one id serialize, different ids run in parallel.
type Store struct {
	timeout time.Duration

	mu       sync.Mutex
	sessions map[string]*entry

	codeMu  sync.Mutex
	codeRNG *rand.Rand
}

type entry struct {
	mu   sync.Mutex
	sess *game.Session
}

func New(inactivityTimeout time.Duration) *Store {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Store{
		timeout:  inactivityTimeout,
		sessions: map[string]*entry{},
		codeRNG:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Put registers a session. At most one live session may hold an id; a
// terminal leftover is replaced.
func (st *Store) Put(s *game.Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if old, ok := st.sessions[s.ID]; ok {
		old.mu.Lock()
		live := !old.sess.Phase.Terminal()
		old.mu.Unlock()
		if live {
			return ErrConflict
		}
	}
	st.sessions[s.ID] = &entry{sess: s}
	return nil
}

// WithSession is the only sanctioned read-modify-write path. fn runs under
// the session's lock; no two calls for the same id ever interleave.
func (st *Store) WithSession(id string, fn func(*game.Session) ([]game.Event, error)) ([]game.Event, error) {
	st.mu.Lock()
	e, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sess)
}

// View returns the caller's filtered snapshot, taken atomically under the
// same lock writes use, so a polling client always reads its own writes.
func (st *Store) View(id, addr string) (game.View, error) {
	st.mu.Lock()
	e, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return game.View{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.ViewFor(addr), nil
}

// Sweep expires sessions idle past the inactivity deadline and returns copies
// of the sessions it transitioned. Run by the janitor, never by requests.
func (st *Store) Sweep(now time.Time) []game.View {
	st.mu.Lock()
	entries := make([]*entry, 0, len(st.sessions))
	for _, e := range st.sessions {
		entries = append(entries, e)
	}
	st.mu.Unlock()

	expired := make([]game.View, 0)
	for _, e := range entries {
		e.mu.Lock()
		if !e.sess.Phase.Terminal() && now.Sub(e.sess.LastActivityAt) > st.timeout {
			game.Expire(e.sess)
			expired = append(expired, e.sess.ViewFor(""))
		}
		e.mu.Unlock()
	}
	return expired
}

// DropTerminal removes terminal sessions whose last activity is older than
// the inactivity deadline. Completed sessions stay queryable for one window
// so clients can fetch the final state, then the memory goes back.
func (st *Store) DropTerminal(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	dropped := 0
	for id, e := range st.sessions {
		e.mu.Lock()
		stale := e.sess.Phase.Terminal() && now.Sub(e.sess.LastActivityAt) > st.timeout
		e.mu.Unlock()
		if stale {
			delete(st.sessions, id)
			dropped++
		}
	}
	return dropped
}

// NewRoomCode allocates a 6-digit room code not held by a live session.
func (st *Store) NewRoomCode() string {
	for {
		st.codeMu.Lock()
		code := fmt.Sprintf("%06d", st.codeRNG.Intn(900000)+100000)
		st.codeMu.Unlock()

		st.mu.Lock()
		e, taken := st.sessions[code]
		st.mu.Unlock()
		if !taken {
			return code
		}
		e.mu.Lock()
		terminal := e.sess.Phase.Terminal()
		e.mu.Unlock()
		if terminal {
			return code
		}
	}
}

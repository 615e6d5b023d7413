package game

import (
	"math/rand"
	"time"
)

type Kind string

const (
	KindBlackjack Kind = "blackjack"
	KindDuel      Kind = "duel"
)

type Phase string

const (
	PhaseCreated      Phase = "created"
	PhaseWaiting      Phase = "waiting"
	PhaseReadyToStart Phase = "ready_to_start"
	PhasePlaying      Phase = "playing"
	PhaseCompleted    Phase = "completed"
	PhaseCancelled    Phase = "cancelled"
	PhaseExpired      Phase = "expired"
)

// Terminal reports whether no further mutation is accepted in this phase.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseCancelled, PhaseExpired:
		return true
	default:
		return false
	}
}

// Outcome is the single immutable result of a session, produced exactly once
// when it reaches a terminal game condition.
type Outcome struct {
	SessionID string `json:"session_id"`
	Winner    string `json:"winner,omitempty"`
	Payout    int64  `json:"payout"`
	Reason    string `json:"reason"`
}

type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Session is the authoritative state of one game. All mutation goes through
// the reducer funcs in this package, under the store's per-id lock.
type Session struct {
	ID           string
	Kind         Kind
	Phase        Phase
	Creator      string
	Participants []string
	Capacity     int
	Stake        int64
	Seed         int64

	Blackjack *BlackjackState
	Duel      *DuelState
	Outcome   *Outcome

	CreatedAt      time.Time
	LastActivityAt time.Time

	rng *rand.Rand
}

type ActionType string

const (
	ActionHit   ActionType = "hit"
	ActionStand ActionType = "stand"
	ActionJoin  ActionType = "join"
	ActionReady ActionType = "ready"
	ActionRoll  ActionType = "roll"
)

type Action struct {
	Actor string
	Type  ActionType
}

// Apply runs one action through the session's rule set. It is deterministic
// for a fixed (seed, action sequence) and never emits a second Outcome.
func Apply(s *Session, act Action) ([]Event, error) {
	if s.Phase == PhaseExpired {
		return nil, ErrSessionExpired
	}
	if s.Phase.Terminal() {
		return nil, ErrSessionClosed
	}
	switch s.Kind {
	case KindBlackjack:
		return applyBlackjack(s, act)
	case KindDuel:
		return applyDuel(s, act)
	default:
		return nil, ErrIllegalTransition
	}
}

// Cancel terminates a pre-play session. Only the creator may cancel.
func Cancel(s *Session, actor string) ([]Event, error) {
	if s.Phase == PhaseExpired {
		return nil, ErrSessionExpired
	}
	if s.Phase.Terminal() {
		return nil, ErrSessionClosed
	}
	if actor != s.Creator {
		return nil, ErrNotCreator
	}
	if s.Phase == PhasePlaying {
		return nil, ErrIllegalTransition
	}
	s.Phase = PhaseCancelled
	return []Event{{Type: "session_cancelled", Data: map[string]any{"session_id": s.ID}}}, nil
}

// Expire marks an idle session terminal. Driven by the store sweep, never by
// a client action.
func Expire(s *Session) {
	if !s.Phase.Terminal() {
		s.Phase = PhaseExpired
	}
}

func (s *Session) isParticipant(addr string) bool {
	for _, p := range s.Participants {
		if p == addr {
			return true
		}
	}
	return false
}

// finish records the session outcome and completes it. The nil check is the
// single-outcome guarantee: once set, an outcome is never replaced.
func finish(s *Session, winner string, payout int64, reason string) []Event {
	if s.Outcome != nil {
		return nil
	}
	s.Outcome = &Outcome{SessionID: s.ID, Winner: winner, Payout: payout, Reason: reason}
	s.Phase = PhaseCompleted
	return []Event{{Type: "outcome", Data: map[string]any{
		"session_id": s.ID,
		"winner":     winner,
		"payout":     payout,
		"reason":     reason,
	}}}
}

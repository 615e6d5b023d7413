package game

import (
	"math/rand"
	"time"
)

type DuelState struct {
	Ready      map[string]bool
	Round      int
	Rolls      map[string]int
	Wins       map[string]int
	TargetWins int
}

// NewDuel creates a two-player room open for an opponent to join.
func NewDuel(id, creator string, stake, seed int64, capacity, targetWins int, now time.Time) *Session {
	if capacity < 2 {
		capacity = 2
	}
	if targetWins < 1 {
		targetWins = 2
	}
	return &Session{
		ID:           id,
		Kind:         KindDuel,
		Phase:        PhaseWaiting,
		Creator:      creator,
		Participants: []string{creator},
		Capacity:     capacity,
		Stake:        stake,
		Seed:         seed,
		Duel: &DuelState{
			Ready:      map[string]bool{},
			Rolls:      map[string]int{},
			Wins:       map[string]int{},
			TargetWins: targetWins,
		},
		CreatedAt:      now,
		LastActivityAt: now,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

func applyDuel(s *Session, act Action) ([]Event, error) {
	d := s.Duel
	switch act.Type {
	case ActionJoin:
		if s.Phase != PhaseCreated && s.Phase != PhaseWaiting {
			return nil, ErrRoomUnavailable
		}
		if s.isParticipant(act.Actor) {
			return nil, ErrRoomUnavailable
		}
		if len(s.Participants) >= s.Capacity {
			return nil, ErrRoomUnavailable
		}
		s.Participants = append(s.Participants, act.Actor)
		events := []Event{{Type: "participant_joined", Data: map[string]any{
			"session_id": s.ID,
			"address":    act.Actor,
		}}}
		if len(s.Participants) == s.Capacity {
			s.Phase = PhaseReadyToStart
			events = append(events, Event{Type: "room_full", Data: map[string]any{"session_id": s.ID}})
		}
		return events, nil

	case ActionReady:
		if s.Phase != PhaseReadyToStart {
			return nil, ErrIllegalTransition
		}
		if !s.isParticipant(act.Actor) {
			return nil, ErrNotParticipant
		}
		d.Ready[act.Actor] = true
		events := []Event{{Type: "participant_ready", Data: map[string]any{
			"session_id": s.ID,
			"address":    act.Actor,
		}}}
		if len(d.Ready) == s.Capacity {
			s.Phase = PhasePlaying
			d.Round = 1
			events = append(events, Event{Type: "playing_started", Data: map[string]any{"session_id": s.ID}})
		}
		return events, nil

	case ActionRoll:
		if s.Phase != PhasePlaying {
			return nil, ErrIllegalTransition
		}
		if !s.isParticipant(act.Actor) {
			return nil, ErrNotParticipant
		}
		if _, rolled := d.Rolls[act.Actor]; rolled {
			return nil, ErrNotYourTurn
		}
		roll := s.rng.Intn(6) + s.rng.Intn(6) + 2
		d.Rolls[act.Actor] = roll
		events := []Event{{Type: "rolled", Data: map[string]any{
			"session_id": s.ID,
			"address":    act.Actor,
			"round":      d.Round,
		}}}
		if len(d.Rolls) < len(s.Participants) {
			return events, nil
		}
		events = append(events, settleRound(s)...)
		return events, nil

	default:
		return nil, ErrIllegalTransition
	}
}

// settleRound compares the round's rolls once every participant has rolled.
// Ties replay the round with fresh rolls.
func settleRound(s *Session) []Event {
	d := s.Duel
	best, winner, tied := 0, "", false
	for addr, roll := range d.Rolls {
		switch {
		case roll > best:
			best, winner, tied = roll, addr, false
		case roll == best:
			tied = true
		}
	}
	rolls := map[string]any{}
	for addr, roll := range d.Rolls {
		rolls[addr] = roll
	}
	d.Rolls = map[string]int{}
	if tied {
		return []Event{{Type: "round_tied", Data: map[string]any{
			"session_id": s.ID,
			"round":      d.Round,
			"rolls":      rolls,
		}}}
	}
	d.Wins[winner]++
	events := []Event{{Type: "round_won", Data: map[string]any{
		"session_id": s.ID,
		"round":      d.Round,
		"winner":     winner,
		"rolls":      rolls,
	}}}
	if d.Wins[winner] >= d.TargetWins {
		return append(events, finish(s, winner, s.Stake*int64(len(s.Participants)), "duel won")...)
	}
	d.Round++
	return events
}

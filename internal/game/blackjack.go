package game

import (
	"math/rand"
	"time"
)

// DealerWins marks house wins in an Outcome; the house has no wallet address
// and settlement skips it.
const DealerWins = "dealer"

const dealerStandsAt = 17

type BlackjackState struct {
	Shoe   []Card
	Player []Card
	Dealer []Card
}

// NewBlackjack creates a solitaire-vs-house table and deals the opening
// hands. Naturals can complete the session immediately.
func NewBlackjack(id, creator string, stake, seed int64, now time.Time) (*Session, []Event, error) {
	rng := rand.New(rand.NewSource(seed))
	s := &Session{
		ID:             id,
		Kind:           KindBlackjack,
		Phase:          PhaseCreated,
		Creator:        creator,
		Participants:   []string{creator},
		Capacity:       1,
		Stake:          stake,
		Seed:           seed,
		Blackjack:      &BlackjackState{Shoe: newShoe(rng)},
		CreatedAt:      now,
		LastActivityAt: now,
		rng:            rng,
	}
	events, err := dealOpening(s)
	return s, events, err
}

// dealOpening deals the opening hands and resolves naturals. Precedence:
// both at 21 push, then player natural, then dealer blackjack.
func dealOpening(s *Session) ([]Event, error) {
	b := s.Blackjack
	for i := 0; i < 2; i++ {
		card, err := b.draw()
		if err != nil {
			return nil, err
		}
		b.Player = append(b.Player, card)
	}
	for i := 0; i < 2; i++ {
		card, err := b.draw()
		if err != nil {
			return nil, err
		}
		b.Dealer = append(b.Dealer, card)
	}

	events := []Event{{Type: "hand_dealt", Data: map[string]any{
		"session_id": s.ID,
		"player":     cardStrings(b.Player),
	}}}

	playerTotal := HandTotal(b.Player)
	dealerTotal := HandTotal(b.Dealer)
	switch {
	case playerTotal == 21 && dealerTotal == 21:
		events = append(events, finish(s, "", s.Stake, "push")...)
	case playerTotal == 21:
		events = append(events, finish(s, s.Creator, s.Stake*5/2, "natural blackjack")...)
	case dealerTotal == 21:
		events = append(events, finish(s, DealerWins, 0, "dealer blackjack")...)
	default:
		s.Phase = PhasePlaying
	}
	return events, nil
}

func applyBlackjack(s *Session, act Action) ([]Event, error) {
	if act.Actor != s.Creator {
		return nil, ErrNotParticipant
	}
	if s.Phase != PhasePlaying {
		return nil, ErrIllegalTransition
	}
	b := s.Blackjack
	switch act.Type {
	case ActionHit:
		card, err := b.draw()
		if err != nil {
			return nil, err
		}
		b.Player = append(b.Player, card)
		events := []Event{{Type: "card_drawn", Data: map[string]any{
			"session_id": s.ID,
			"card":       card.String(),
			"total":      HandTotal(b.Player),
		}}}
		// A bust loses on the draw that causes it, not on stand.
		if HandTotal(b.Player) > 21 {
			events = append(events, finish(s, DealerWins, 0, "bust")...)
		}
		return events, nil
	case ActionStand:
		for HandTotal(b.Dealer) < dealerStandsAt {
			card, err := b.draw()
			if err != nil {
				return nil, err
			}
			b.Dealer = append(b.Dealer, card)
		}
		playerTotal := HandTotal(b.Player)
		dealerTotal := HandTotal(b.Dealer)
		events := []Event{{Type: "dealer_revealed", Data: map[string]any{
			"session_id": s.ID,
			"dealer":     cardStrings(b.Dealer),
			"total":      dealerTotal,
		}}}
		switch {
		case dealerTotal > 21:
			events = append(events, finish(s, s.Creator, s.Stake*2, "dealer bust")...)
		case playerTotal > dealerTotal:
			events = append(events, finish(s, s.Creator, s.Stake*2, "higher total")...)
		case playerTotal < dealerTotal:
			events = append(events, finish(s, DealerWins, 0, "lower total")...)
		default:
			events = append(events, finish(s, "", s.Stake, "push")...)
		}
		return events, nil
	default:
		return nil, ErrIllegalTransition
	}
}

// draw takes the next card without replacement. An empty shoe is a malformed
// state and reported as an error, never a panic.
func (b *BlackjackState) draw() (Card, error) {
	if len(b.Shoe) == 0 {
		return Card{}, ErrShoeExhausted
	}
	c := b.Shoe[0]
	b.Shoe = b.Shoe[1:]
	return c, nil
}

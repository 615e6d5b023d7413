package game

import "time"

// View is the caller-facing projection of a session, filtered by role so a
// participant never sees information the rules still hide.
type View struct {
	SessionID    string    `json:"session_id"`
	Kind         Kind      `json:"kind"`
	Phase        Phase     `json:"phase"`
	Creator      string    `json:"creator"`
	Participants []string  `json:"participants"`
	Capacity     int       `json:"capacity"`
	Stake        int64     `json:"stake"`
	CreatedAt    time.Time `json:"created_at"`

	Blackjack *BlackjackView `json:"blackjack,omitempty"`
	Duel      *DuelView      `json:"duel,omitempty"`
	Outcome   *Outcome       `json:"outcome,omitempty"`
}

type BlackjackView struct {
	Player      []string `json:"player"`
	PlayerTotal int      `json:"player_total"`
	Dealer      []string `json:"dealer"`
	DealerTotal int      `json:"dealer_total,omitempty"`
}

type DuelView struct {
	Round      int             `json:"round"`
	TargetWins int             `json:"target_wins"`
	Ready      map[string]bool `json:"ready"`
	Rolled     map[string]bool `json:"rolled"`
	YourRoll   int             `json:"your_roll,omitempty"`
	Wins       map[string]int  `json:"wins"`
}

// ViewFor builds the view addr is entitled to. The dealer hole card stays
// hidden until the session is terminal; opponents' pending rolls stay hidden
// until the round resolves.
func (s *Session) ViewFor(addr string) View {
	v := View{
		SessionID:    s.ID,
		Kind:         s.Kind,
		Phase:        s.Phase,
		Creator:      s.Creator,
		Participants: append([]string(nil), s.Participants...),
		Capacity:     s.Capacity,
		Stake:        s.Stake,
		CreatedAt:    s.CreatedAt,
	}
	if s.Outcome != nil {
		out := *s.Outcome
		v.Outcome = &out
	}
	if b := s.Blackjack; b != nil {
		bv := &BlackjackView{
			Player:      cardStrings(b.Player),
			PlayerTotal: HandTotal(b.Player),
		}
		if s.Phase.Terminal() {
			bv.Dealer = cardStrings(b.Dealer)
			bv.DealerTotal = HandTotal(b.Dealer)
		} else if len(b.Dealer) > 0 {
			bv.Dealer = []string{b.Dealer[0].String(), "??"}
		}
		v.Blackjack = bv
	}
	if d := s.Duel; d != nil {
		dv := &DuelView{
			Round:      d.Round,
			TargetWins: d.TargetWins,
			Ready:      map[string]bool{},
			Rolled:     map[string]bool{},
			Wins:       map[string]int{},
		}
		for a, ok := range d.Ready {
			dv.Ready[a] = ok
		}
		for a, w := range d.Wins {
			dv.Wins[a] = w
		}
		for a, roll := range d.Rolls {
			dv.Rolled[a] = true
			if a == addr {
				dv.YourRoll = roll
			}
		}
		v.Duel = dv
	}
	return v
}

package game

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

const (
	player = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	rival  = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// stackedBlackjack builds a session whose shoe deals the given cards in
// order: player, player, dealer, dealer, then hits.
func stackedBlackjack(t *testing.T, shoe []Card) (*Session, []Event) {
	t.Helper()
	s := &Session{
		ID:             "S1",
		Kind:           KindBlackjack,
		Phase:          PhaseCreated,
		Creator:        player,
		Participants:   []string{player},
		Capacity:       1,
		Stake:          100,
		Blackjack:      &BlackjackState{Shoe: shoe},
		CreatedAt:      time.Now(),
		LastActivityAt: time.Now(),
	}
	events, err := dealOpening(s)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}
	return s, events
}

func TestHandTotalAceDemotion(t *testing.T) {
	cases := []struct {
		hand []Card
		want int
	}{
		{[]Card{{Rank: Ace}, {Rank: King}}, 21},
		{[]Card{{Rank: Ace}, {Rank: Ace}}, 12},
		{[]Card{{Rank: Ace}, {Rank: Nine}, {Rank: Five}}, 15},
		{[]Card{{Rank: Ace}, {Rank: Ace}, {Rank: Nine}}, 21},
		{[]Card{{Rank: King}, {Rank: Queen}, {Rank: Two}}, 22},
	}
	for _, c := range cases {
		if got := HandTotal(c.hand); got != c.want {
			t.Fatalf("hand %v: expected %d, got %d", c.hand, c.want, got)
		}
	}
}

func TestNaturalBlackjackWinsImmediately(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ace}, {Rank: King}, // player
		{Rank: Ten}, {Rank: Nine}, // dealer
	})
	if s.Phase != PhaseCompleted {
		t.Fatalf("expected completed, got %s", s.Phase)
	}
	if s.Outcome == nil || s.Outcome.Winner != player || s.Outcome.Reason != "natural blackjack" {
		t.Fatalf("unexpected outcome %+v", s.Outcome)
	}
	if _, err := Apply(s, Action{Actor: player, Type: ActionHit}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed after natural, got %v", err)
	}
}

func TestBothNaturalsPush(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ace}, {Rank: King},
		{Rank: Ace}, {Rank: Queen},
	})
	if s.Outcome == nil || s.Outcome.Winner != "" || s.Outcome.Reason != "push" {
		t.Fatalf("unexpected outcome %+v", s.Outcome)
	}
	if s.Outcome.Payout != s.Stake {
		t.Fatalf("expected push to refund the stake, got %d", s.Outcome.Payout)
	}
}

func TestDealerNatural(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ten}, {Rank: Nine},
		{Rank: Ace}, {Rank: King},
	})
	if s.Outcome == nil || s.Outcome.Winner != DealerWins || s.Outcome.Payout != 0 {
		t.Fatalf("unexpected outcome %+v", s.Outcome)
	}
}

func TestBustLosesOnTheDraw(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ten}, {Rank: Six}, // player 16
		{Rank: Nine}, {Rank: Five}, // dealer
		{Rank: Eight}, // hit -> 24
	})
	events, err := Apply(s, Action{Actor: player, Type: ActionHit})
	if err != nil {
		t.Fatalf("hit: %v", err)
	}
	if s.Phase != PhaseCompleted || s.Outcome == nil {
		t.Fatal("expected bust to complete the session on the hit itself")
	}
	if s.Outcome.Winner != DealerWins || s.Outcome.Reason != "bust" {
		t.Fatalf("unexpected outcome %+v", s.Outcome)
	}
	found := false
	for _, ev := range events {
		if ev.Type == "outcome" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the hit to emit the outcome event")
	}
}

func TestStandDealerDrawsToSeventeen(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ten}, {Rank: Nine}, // player 19
		{Rank: Ten}, {Rank: Two}, // dealer 12
		{Rank: Five}, // dealer draws to 17
	})
	if _, err := Apply(s, Action{Actor: player, Type: ActionStand}); err != nil {
		t.Fatalf("stand: %v", err)
	}
	if got := HandTotal(s.Blackjack.Dealer); got != 17 {
		t.Fatalf("expected dealer to stop at 17, got %d", got)
	}
	if s.Outcome == nil || s.Outcome.Winner != player || s.Outcome.Payout != 200 {
		t.Fatalf("unexpected outcome %+v", s.Outcome)
	}
}

func TestStandDealerBust(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ten}, {Rank: Eight},
		{Rank: Ten}, {Rank: Six}, // dealer 16
		{Rank: King}, // dealer busts at 26
	})
	if _, err := Apply(s, Action{Actor: player, Type: ActionStand}); err != nil {
		t.Fatalf("stand: %v", err)
	}
	if s.Outcome == nil || s.Outcome.Winner != player || s.Outcome.Reason != "dealer bust" {
		t.Fatalf("unexpected outcome %+v", s.Outcome)
	}
}

func TestOnlyCreatorMayAct(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ten}, {Rank: Six},
		{Rank: Nine}, {Rank: Five},
	})
	if _, err := Apply(s, Action{Actor: rival, Type: ActionHit}); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestBlackjackDeterminism(t *testing.T) {
	now := time.Now()
	run := func() *Session {
		s, _, err := NewBlackjack("S1", player, 100, 42, now)
		if err != nil {
			t.Fatalf("new blackjack: %v", err)
		}
		for s.Phase == PhasePlaying && HandTotal(s.Blackjack.Player) < 17 {
			if _, err := Apply(s, Action{Actor: player, Type: ActionHit}); err != nil {
				t.Fatalf("hit: %v", err)
			}
		}
		if s.Phase == PhasePlaying {
			if _, err := Apply(s, Action{Actor: player, Type: ActionStand}); err != nil {
				t.Fatalf("stand: %v", err)
			}
		}
		return s
	}
	a, b := run(), run()
	if !reflect.DeepEqual(a.Blackjack, b.Blackjack) {
		t.Fatal("expected identical hands for identical seed and action sequence")
	}
	if !reflect.DeepEqual(a.Outcome, b.Outcome) {
		t.Fatalf("expected identical outcome, got %+v vs %+v", a.Outcome, b.Outcome)
	}
}

func TestSingleOutcomeGuard(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ace}, {Rank: King},
		{Rank: Ten}, {Rank: Nine},
	})
	first := *s.Outcome
	if ev := finish(s, rival, 999, "duplicate"); ev != nil {
		t.Fatal("expected second finish to emit nothing")
	}
	if *s.Outcome != first {
		t.Fatal("expected the recorded outcome to be immutable")
	}
}

func TestExhaustedShoeErrsInsteadOfPanicking(t *testing.T) {
	// One card short for the dealer's second draw on stand.
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ten}, {Rank: Six}, // player 16
		{Rank: Nine}, {Rank: Five}, // dealer 14
		{Rank: Two}, // dealer reaches 16, then the shoe is empty
	})
	if _, err := Apply(s, Action{Actor: player, Type: ActionStand}); !errors.Is(err, ErrShoeExhausted) {
		t.Fatalf("expected ErrShoeExhausted, got %v", err)
	}
	if s.Phase.Terminal() || s.Outcome != nil {
		t.Fatalf("expected no outcome from a malformed shoe, got phase %s", s.Phase)
	}

	empty := &BlackjackState{}
	if _, err := empty.draw(); !errors.Is(err, ErrShoeExhausted) {
		t.Fatalf("expected draw on empty shoe to error, got %v", err)
	}
}

func TestExpiredSessionRejectsActionsDistinctly(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ten}, {Rank: Six},
		{Rank: Nine}, {Rank: Five},
	})
	Expire(s)
	if _, err := Apply(s, Action{Actor: player, Type: ActionHit}); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := Cancel(s, player); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired on cancel, got %v", err)
	}
}

func TestDealerHoleCardHiddenUntilTerminal(t *testing.T) {
	s, _ := stackedBlackjack(t, []Card{
		{Rank: Ten}, {Rank: Six},
		{Rank: Nine, Suit: Hearts}, {Rank: Five, Suit: Clubs},
		{Rank: Two}, {Rank: Three}, // dealer draws 14 -> 16 -> 19
	})
	v := s.ViewFor(player)
	if len(v.Blackjack.Dealer) != 2 || v.Blackjack.Dealer[1] != "??" {
		t.Fatalf("expected hole card hidden, got %v", v.Blackjack.Dealer)
	}
	if v.Blackjack.DealerTotal != 0 {
		t.Fatal("expected dealer total withheld pre-terminal")
	}
	if _, err := Apply(s, Action{Actor: player, Type: ActionStand}); err != nil {
		t.Fatalf("stand: %v", err)
	}
	v = s.ViewFor(player)
	if v.Blackjack.Dealer[1] == "??" {
		t.Fatal("expected hole card revealed after terminal")
	}
}

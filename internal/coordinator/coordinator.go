package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"

	"chaintable/internal/audit"
	"chaintable/internal/config"
	"chaintable/internal/game"
	"chaintable/internal/settle"
	"chaintable/internal/store"
	"chaintable/internal/token"
	"chaintable/internal/wallet"

	"github.com/rs/zerolog/log"
)

var (
	ErrSignatureMismatch = errors.New("signature_mismatch")
	ErrBadRequest        = errors.New("bad_request")
)

// Coordinator owns the request path: it authenticates callers, checks
// sessions out of the store one mutation at a time, runs the rule engine and
// hands terminal outcomes to the settlement bridge.
type Coordinator struct {
	store  *store.Store
	issuer *token.Issuer
	bridge *settle.Bridge
	audit  *audit.Log

	loginMessage string
	roomCapacity int
	duelTarget   int
	retention    time.Duration

	now  func() time.Time
	seed func() int64
}

func New(st *store.Store, issuer *token.Issuer, bridge *settle.Bridge, aud *audit.Log, cfg config.ServerConfig) *Coordinator {
	retention := cfg.SessionTimeout
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	return &Coordinator{
		store:        st,
		issuer:       issuer,
		bridge:       bridge,
		audit:        aud,
		loginMessage: cfg.LoginMessage,
		roomCapacity: cfg.RoomCapacity,
		duelTarget:   cfg.DuelTargetWins,
		retention:    retention,
		now:          time.Now,
		seed:         func() int64 { return time.Now().UnixNano() },
	}
}

// Authenticate proves control of a wallet address via an EIP-191 signature
// over the login message and mints a session token for it.
func (c *Coordinator) Authenticate(address, message, signature string) (string, error) {
	addr, err := wallet.Canonical(address)
	if err != nil {
		return "", ErrSignatureMismatch
	}
	if !strings.HasPrefix(message, c.loginMessage) {
		return "", ErrSignatureMismatch
	}
	sig, err := wallet.DecodeSignature(signature)
	if err != nil {
		return "", ErrSignatureMismatch
	}
	if !wallet.Verify(addr, message, sig) {
		return "", ErrSignatureMismatch
	}
	return c.issuer.Issue(addr)
}

// ValidateToken resolves a bearer token to the address it was issued for.
func (c *Coordinator) ValidateToken(tok string) (string, error) {
	return c.issuer.Validate(tok)
}

// CreateSession opens a new game for the authenticated address. Blackjack
// tables get a ULID and can complete on the opening deal; duel rooms get a
// 6-digit code and wait for an opponent.
func (c *Coordinator) CreateSession(ctx context.Context, addr string, kind game.Kind, stake int64) (game.View, error) {
	if stake <= 0 {
		return game.View{}, ErrBadRequest
	}
	now := c.now()
	switch kind {
	case game.KindBlackjack:
		s, events, err := game.NewBlackjack(store.NewID(), addr, stake, c.seed(), now)
		if err != nil {
			return game.View{}, err
		}
		if err := c.store.Put(s); err != nil {
			return game.View{}, err
		}
		view := s.ViewFor(addr)
		c.recordEvents(ctx, s.ID, events)
		if view.Outcome != nil {
			c.bridge.Settle(*view.Outcome)
		}
		return view, nil
	case game.KindDuel:
		for i := 0; i < 5; i++ {
			s := game.NewDuel(c.store.NewRoomCode(), addr, stake, c.seed(), c.roomCapacity, c.duelTarget, now)
			err := c.store.Put(s)
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			if err != nil {
				return game.View{}, err
			}
			c.recordEvents(ctx, s.ID, []game.Event{{Type: "room_created", Data: map[string]any{
				"session_id": s.ID,
				"creator":    addr,
				"stake":      stake,
			}}})
			return s.ViewFor(addr), nil
		}
		return game.View{}, store.ErrConflict
	default:
		return game.View{}, ErrBadRequest
	}
}

// Act applies one game action under the session's lock. On a terminal
// transition the outcome is handed to the bridge after the lock is released,
// so settlement latency never blocks gameplay.
func (c *Coordinator) Act(ctx context.Context, addr, sessionID string, action game.ActionType) (game.View, error) {
	var view game.View
	var outcome *game.Outcome
	events, err := c.store.WithSession(sessionID, func(s *game.Session) ([]game.Event, error) {
		hadOutcome := s.Outcome != nil
		events, err := game.Apply(s, game.Action{Actor: addr, Type: action})
		if err != nil {
			return nil, err
		}
		s.LastActivityAt = c.now()
		if !hadOutcome && s.Outcome != nil {
			out := *s.Outcome
			outcome = &out
		}
		view = s.ViewFor(addr)
		return events, nil
	})
	if err != nil {
		return game.View{}, err
	}
	c.recordEvents(ctx, sessionID, events)
	if outcome != nil {
		c.bridge.Settle(*outcome)
	}
	return view, nil
}

// ViewSession returns the caller's snapshot, consistent with any write that
// completed before this read.
func (c *Coordinator) ViewSession(addr, sessionID string) (game.View, error) {
	return c.store.View(sessionID, addr)
}

// CancelSession terminates a pre-play session on the creator's request.
func (c *Coordinator) CancelSession(ctx context.Context, addr, sessionID string) error {
	events, err := c.store.WithSession(sessionID, func(s *game.Session) ([]game.Event, error) {
		return game.Cancel(s, addr)
	})
	if err != nil {
		return err
	}
	c.recordEvents(ctx, sessionID, events)
	return nil
}

// Settlement exposes a session's settlement record for the payout-pending UI
// and the operator tooling.
func (c *Coordinator) Settlement(sessionID string) (settle.Record, bool) {
	return c.bridge.Record(sessionID)
}

func (c *Coordinator) PendingSettlements() []settle.Record {
	return c.bridge.Pending()
}

// StartJanitor runs the background expiry sweep. Sessions idle past the
// configured window go terminal here, never on a request path.
func (c *Coordinator) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				for _, v := range c.store.Sweep(now) {
					log.Info().Str("session_id", v.SessionID).Msg("session expired")
					c.audit.Event(ctx, v.SessionID, "session_expired", map[string]any{"phase": string(v.Phase)})
				}
				if n := c.store.DropTerminal(now); n > 0 {
					log.Debug().Int("dropped", n).Msg("terminal sessions released")
				}
				if n := c.bridge.DropConfirmed(now.Add(-c.retention)); n > 0 {
					log.Debug().Int("dropped", n).Msg("confirmed settlement records released")
				}
			}
		}
	}()
}

func (c *Coordinator) recordEvents(ctx context.Context, sessionID string, events []game.Event) {
	for _, ev := range events {
		c.audit.Event(ctx, sessionID, ev.Type, ev.Data)
	}
}

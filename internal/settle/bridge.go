package settle

import (
	"context"
	"errors"
	"expvar"
	"sync"
	"time"

	"chaintable/internal/audit"
	"chaintable/internal/game"
	"chaintable/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

var ErrRetriesExhausted = errors.New("settlement_retries_exhausted")

var (
	settleSubmitted = expvar.NewInt("settle_submitted_total")
	settleConfirmed = expvar.NewInt("settle_confirmed_total")
	settleExhausted = expvar.NewInt("settle_exhausted_total")
)

// Ledger is the external settlement contract seen as a black box: one
// hash-returning call and a confirmable receipt.
type Ledger interface {
	SubmitPayout(ctx context.Context, sessionID, winner string, amount int64) (txHash string, err error)
	Receipt(ctx context.Context, txHash string) (mined, success bool, err error)
}

// Record tracks one outcome's settlement. Created pending, updated until
// confirmed or the attempt ceiling is hit; never re-created for a session.
type Record struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Outcome   game.Outcome `json:"outcome"`
	TxHash    string       `json:"tx_hash,omitempty"`
	Confirmed bool         `json:"confirmed"`
	Attempts  int          `json:"attempts"`
	LastError string       `json:"last_error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type Bridge struct {
	ledger      Ledger
	audit       *audit.Log
	maxAttempts int
	backoff     time.Duration

	mu      sync.Mutex
	records map[string]*Record
}

func NewBridge(led Ledger, aud *audit.Log, maxAttempts int, backoff time.Duration) *Bridge {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Bridge{
		ledger:      led,
		audit:       aud,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		records:     map[string]*Record{},
	}
}

// Settle records an outcome and starts its on-chain submission. Idempotent:
// the session id is the key, and a second call returns the existing record
// without a second submission sequence.
func (b *Bridge) Settle(out game.Outcome) Record {
	b.mu.Lock()
	if rec, ok := b.records[out.SessionID]; ok {
		snapshot := *rec
		b.mu.Unlock()
		return snapshot
	}
	rec := &Record{
		ID:        store.NewID(),
		SessionID: out.SessionID,
		Outcome:   out,
		UpdatedAt: time.Now(),
	}
	b.records[out.SessionID] = rec

	// House wins and pushes have no payable winner: nothing goes on chain,
	// the record is the off-chain ledger entry itself.
	if out.Payout == 0 || !common.IsHexAddress(out.Winner) {
		rec.Confirmed = true
		snapshot := *rec
		b.mu.Unlock()
		b.audit.Settlement(context.Background(), snapshot.SessionID, "", true, 0)
		return snapshot
	}
	snapshot := *rec
	b.mu.Unlock()

	go b.submit(rec)
	return snapshot
}

// Record returns the settlement state for a session, if any.
func (b *Bridge) Record(sessionID string) (Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[sessionID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Pending lists unconfirmed records whose retries are exhausted: the operator
// queue for manual resubmission.
func (b *Bridge) Pending() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, 0)
	for _, rec := range b.records {
		if !rec.Confirmed && rec.Attempts >= b.maxAttempts {
			out = append(out, *rec)
		}
	}
	return out
}

// DropConfirmed removes confirmed records last touched before cutoff, so the
// map does not grow for the life of the process. Unconfirmed records are
// never evicted: exhausted ones are the operator queue.
func (b *Bridge) DropConfirmed(cutoff time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for id, rec := range b.records {
		if rec.Confirmed && rec.UpdatedAt.Before(cutoff) {
			delete(b.records, id)
			dropped++
		}
	}
	return dropped
}

// submit drives one record to confirmation with bounded retry and exponential
// backoff. Runs outside any session lock; a slow chain never blocks gameplay.
func (b *Bridge) submit(rec *Record) {
	ctx := context.Background()
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		b.update(rec, func(r *Record) { r.Attempts = attempt })

		if b.txHash(rec) == "" {
			hash, err := b.ledger.SubmitPayout(ctx, rec.Outcome.SessionID, rec.Outcome.Winner, rec.Outcome.Payout)
			if err != nil {
				b.update(rec, func(r *Record) { r.LastError = err.Error() })
				b.sleep(attempt)
				continue
			}
			settleSubmitted.Add(1)
			// Persist the hash as soon as it is known so a restart never
			// double-submits.
			b.update(rec, func(r *Record) { r.TxHash = hash; r.LastError = "" })
			b.audit.Settlement(ctx, rec.SessionID, hash, false, attempt)
		}

		mined, success, err := b.ledger.Receipt(ctx, b.txHash(rec))
		switch {
		case err != nil:
			b.update(rec, func(r *Record) { r.LastError = err.Error() })
		case mined && success:
			settleConfirmed.Add(1)
			b.update(rec, func(r *Record) { r.Confirmed = true; r.LastError = "" })
			b.audit.Settlement(ctx, rec.SessionID, b.txHash(rec), true, attempt)
			return
		case mined && !success:
			// Reverted on chain: clear the hash and submit fresh.
			b.update(rec, func(r *Record) { r.TxHash = ""; r.LastError = "transaction_reverted" })
		}
		b.sleep(attempt)
	}

	settleExhausted.Add(1)
	b.update(rec, func(r *Record) {
		if r.LastError == "" {
			r.LastError = ErrRetriesExhausted.Error()
		}
	})
	log.Error().
		Str("session_id", rec.SessionID).
		Str("tx_hash", b.txHash(rec)).
		Int("attempts", b.maxAttempts).
		Msg("settlement retries exhausted; queued for operator")
	b.audit.Settlement(ctx, rec.SessionID, b.txHash(rec), false, b.maxAttempts)
}

func (b *Bridge) update(rec *Record, fn func(*Record)) {
	b.mu.Lock()
	fn(rec)
	rec.UpdatedAt = time.Now()
	b.mu.Unlock()
}

func (b *Bridge) txHash(rec *Record) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return rec.TxHash
}

func (b *Bridge) sleep(attempt int) {
	time.Sleep(b.backoff << (attempt - 1))
}

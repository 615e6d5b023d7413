package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Log is an append-only audit trail in Postgres. It is a collaborator, not
// the source of truth: a nil pool makes every write a no-op so the server
// runs without a database.
type Log struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	details JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_events_session_idx ON audit_events (session_id);
`

func New(ctx context.Context, dsn string) (*Log, error) {
	if dsn == "" {
		return &Log{}, nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}
	return &Log{pool: pool}, nil
}

func (l *Log) Close() {
	if l != nil && l.pool != nil {
		l.pool.Close()
	}
}

// Event records a session transition or emitted game event.
func (l *Log) Event(ctx context.Context, sessionID, kind string, details map[string]any) {
	l.insert(ctx, sessionID, kind, details)
}

// Settlement records one settlement attempt's visible state.
func (l *Log) Settlement(ctx context.Context, sessionID, txHash string, confirmed bool, attempts int) {
	l.insert(ctx, sessionID, "settlement", map[string]any{
		"tx_hash":   txHash,
		"confirmed": confirmed,
		"attempts":  attempts,
	})
}

func (l *Log) insert(ctx context.Context, sessionID, kind string, details map[string]any) {
	if l == nil || l.pool == nil {
		return
	}
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	if _, err := l.pool.Exec(ctx, `
		INSERT INTO audit_events (session_id, kind, details)
		VALUES ($1, $2, $3)
	`, sessionID, kind, payload); err != nil {
		// Audit writes never fail a request.
		log.Warn().Err(err).Str("session_id", sessionID).Str("kind", kind).Msg("audit insert failed")
	}
}

package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/veritas-review/tribunal/internal/tribunal"
)

// Ledger appends an integrity hash of each verdict to Postgres. The hash
// binds the reviewed document excerpt, the session id, and the score, so a
// later reader can detect tampering with any of the three.
type Ledger struct {
	db *sql.DB
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS verdict_ledger (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	verdict_hash TEXT NOT NULL,
	decision TEXT NOT NULL,
	score INT NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verdict_ledger_session ON verdict_ledger(session_id);
`

func NewLedger(dsn string) (*Ledger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger open: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Init creates the ledger table.
func (l *Ledger) Init(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, ledgerSchema)
	return err
}

func (l *Ledger) Name() string { return "ledger" }

func (l *Ledger) Put(ctx context.Context, record tribunal.VerdictRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO verdict_ledger (session_id, verdict_hash, decision, score, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, record.SessionID, VerdictHash(record), record.Verdict.Decision, record.Verdict.Score, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ledger put: %w", err)
	}
	return nil
}

// VerdictHash computes the integrity hash recorded in the ledger.
func VerdictHash(record tribunal.VerdictRecord) string {
	h := sha256.New()
	h.Write([]byte(record.DocumentExcerpt))
	h.Write([]byte(record.SessionID))
	fmt.Fprintf(h, "%d", record.Verdict.Score)
	return hex.EncodeToString(h.Sum(nil))
}

func (l *Ledger) Close() error { return l.db.Close() }

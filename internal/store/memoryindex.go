package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/veritas-review/tribunal/internal/tribunal"
)

const memoryIndexSet = "tribunal:verdicts"

// MemoryIndex stores a searchable verdict summary in Redis, one hash per
// session, plus a set of all session ids for enumeration.
type MemoryIndex struct {
	client *redis.Client
}

type MemoryIndexConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewMemoryIndex(cfg MemoryIndexConfig) *MemoryIndex {
	return &MemoryIndex{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (m *MemoryIndex) Name() string { return "memory" }

func (m *MemoryIndex) Put(ctx context.Context, record tribunal.VerdictRecord) error {
	key := fmt.Sprintf("tribunal:verdict:%s", record.SessionID)

	pipe := m.client.TxPipeline()
	pipe.HSet(ctx, key,
		"content", memoryText(record),
		"paper_title", record.Title,
		"score", record.Verdict.Score,
		"decision", record.Verdict.Decision,
		"summary", record.Verdict.Summary,
		"critical_issue_count", len(record.Verdict.CriticalIssues),
		"debate_rounds", record.DebateRounds,
	)
	pipe.SAdd(ctx, memoryIndexSet, record.SessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("memory index put: %w", err)
	}
	return nil
}

// Get reads back one stored verdict summary. Returns redis.Nil semantics as
// an empty map when nothing is stored.
func (m *MemoryIndex) Get(ctx context.Context, sessionID string) (map[string]string, error) {
	fields, err := m.client.HGetAll(ctx, fmt.Sprintf("tribunal:verdict:%s", sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("memory index get: %w", err)
	}
	return fields, nil
}

func (m *MemoryIndex) Close() error { return m.client.Close() }

// Package store provides the best-effort verdict persistence sinks: a
// Redis-backed semantic memory index, a Postgres ledger of verdict hashes,
// and an S3-compatible blob archive. Each sink is independent; failures are
// reported to the caller as per-sink flags, never as fatal errors.
package store

import (
	"fmt"
	"strings"

	"github.com/veritas-review/tribunal/internal/tribunal"
)

// memoryText renders the searchable summary line stored in the memory
// index, one verdict per entry.
func memoryText(record tribunal.VerdictRecord) string {
	issues := "None identified"
	if len(record.Verdict.CriticalIssues) > 0 {
		top := record.Verdict.CriticalIssues
		if len(top) > 5 {
			top = top[:5]
		}
		issues = strings.Join(top, ", ")
	}
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Tribunal Review: %s\n", record.Title))
	builder.WriteString(fmt.Sprintf("Score: %d/100\n", record.Verdict.Score))
	builder.WriteString(fmt.Sprintf("Verdict: %s\n", record.Verdict.Summary))
	builder.WriteString(fmt.Sprintf("Critical Issues: %s\n", issues))
	builder.WriteString(fmt.Sprintf("Debate Rounds: %d\n", record.DebateRounds))
	builder.WriteString(fmt.Sprintf("Tribunal ID: %s", record.SessionID))
	return builder.String()
}

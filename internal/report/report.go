// Package report renders a review session into a markdown document: the
// panel's severities, the full transcript with interruption markers, and
// the verdict when one exists.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/veritas-review/tribunal/internal/tribunal"
)

// Render builds the markdown review report for a session snapshot.
func Render(snap tribunal.Snapshot) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("# Tribunal Review: %s\n\n", snap.Title))
	builder.WriteString(fmt.Sprintf("- Session: %s\n", snap.ID))
	builder.WriteString(fmt.Sprintf("- State: %s\n", snap.State))
	builder.WriteString(fmt.Sprintf("- Generated: %s\n", time.Now().UTC().Format("2006-01-02")))

	builder.WriteString("\n## Panel Assessment\n\n")
	builder.WriteString("| Reviewer | Severity |\n|---|---|\n")
	for _, role := range tribunal.AgentOrder {
		severity := snap.Severities[role]
		if severity == "" {
			severity = tribunal.SeverityUnknown
		}
		builder.WriteString(fmt.Sprintf("| %s | %s |\n", role.DisplayName(), severity))
	}

	builder.WriteString("\n## Transcript\n\n")
	if len(snap.Messages) == 0 {
		builder.WriteString("_No conversation recorded._\n")
	}
	for _, msg := range snap.Messages {
		line := msg.Content
		if msg.WasInterrupted {
			line = fmt.Sprintf("%s _(interrupted)_", msg.InterruptedAt)
		}
		builder.WriteString(fmt.Sprintf("**%s**: %s\n\n", msg.Participant.DisplayName(), line))
	}

	builder.WriteString("## Verdict\n\n")
	if snap.Verdict == nil {
		builder.WriteString("_Not yet delivered._\n")
		return builder.String()
	}
	builder.WriteString(fmt.Sprintf("- Decision: %s\n", snap.Verdict.Decision))
	builder.WriteString(fmt.Sprintf("- Score: %d/100\n", snap.Verdict.Score))
	builder.WriteString(fmt.Sprintf("- Summary: %s\n", snap.Verdict.Summary))
	if len(snap.Verdict.CriticalIssues) > 0 {
		builder.WriteString("\n### Critical Issues\n\n")
		for i, issue := range snap.Verdict.CriticalIssues {
			builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue))
		}
	}
	return builder.String()
}

// Generate renders a snapshot and writes it to outPath, creating parent
// directories as needed.
func Generate(outPath string, snap tribunal.Snapshot) error {
	if outPath == "" {
		return fmt.Errorf("output path is required")
	}
	content := Render(snap)
	if err := ValidateRequiredSections(content); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Package tribunal implements the adversarial review panel: session
// lifecycle, conversation log, routing of human messages to reviewer
// agents, turn coordination, and final verdict synthesis.
//
// Architecture notes:
//   - A Session owns all mutable review state behind one mutex. Accessor
//     methods take the lock for short critical sections only; no lock is
//     ever held across a model completion.
//   - The initial analysis and opening statements fan out in parallel,
//     one goroutine per agent. A failed analysis degrades to a placeholder
//     with UNKNOWN severity; a failed opening is simply omitted.
//   - Interactive rounds are strictly sequential so each agent sees what
//     earlier agents said in the same round.
//   - The Router asks the model to pick respondents and falls back to
//     keyword matching whenever the model call or its JSON output fails.
//     Routing never returns an error.
//   - Verdict parsing is line oriented and total: missing or malformed
//     fields get defaults, never errors. Persistence fans out to every
//     configured sink and records a per-sink ok/error flag on the verdict.
package tribunal

// Package persona implements the four reviewer agents on top of the LLM
// client. The roles share one implementation; what differs between them is
// the system prompt and the role identity carried in the results.
package persona

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/veritas-review/tribunal/internal/llm"
	"github.com/veritas-review/tribunal/internal/tribunal"
)

const (
	analyzeDocumentLimit = 10000
	analysisPromptLimit  = 1000
	openingPromptLimit   = 800
	defaultTemperature   = 0.3
)

// Persona is one reviewer seat on the panel.
type Persona struct {
	role         tribunal.ParticipantType
	client       llm.Client
	model        string
	temperature  float32
	systemPrompt string
}

func New(role tribunal.ParticipantType, client llm.Client, model string, temperature float32) (*Persona, error) {
	prompt, ok := systemPrompts[role]
	if !ok {
		return nil, fmt.Errorf("new persona: no reviewer role %q", role)
	}
	if client == nil {
		return nil, fmt.Errorf("new persona: client is required")
	}
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &Persona{
		role:         role,
		client:       client,
		model:        model,
		temperature:  temperature,
		systemPrompt: prompt,
	}, nil
}

// NewPanel builds all four reviewer personas sharing one client and model.
func NewPanel(client llm.Client, model string, temperature float32) (map[tribunal.ParticipantType]tribunal.Agent, error) {
	panel := make(map[tribunal.ParticipantType]tribunal.Agent, len(tribunal.AgentOrder))
	for _, role := range tribunal.AgentOrder {
		p, err := New(role, client, model, temperature)
		if err != nil {
			return nil, err
		}
		panel[role] = p
	}
	return panel, nil
}

func (p *Persona) Role() tribunal.ParticipantType { return p.role }

// Analyze reads the document through this reviewer's lens and returns the
// parsed result. Completion errors propagate so the caller can degrade.
func (p *Persona) Analyze(ctx context.Context, documentText string, metadata map[string]string) (tribunal.AnalysisResult, error) {
	resp, err := p.chat(ctx, p.buildAnalyzePrompt(documentText, metadata))
	if err != nil {
		return tribunal.AnalysisResult{}, fmt.Errorf("%s analysis: %w", p.role, err)
	}
	result := ParseAnalysis(resp)
	result.Agent = p.role
	return result, nil
}

// Respond produces either an opening statement or an interactive turn,
// depending on input.Mode.
func (p *Persona) Respond(ctx context.Context, input tribunal.TurnInput) (string, error) {
	var prompt string
	switch input.Mode {
	case tribunal.TurnModeOpening:
		prompt = p.buildOpeningPrompt(input)
	case tribunal.TurnModeRespond:
		prompt = p.buildTurnPrompt(input)
	default:
		return "", fmt.Errorf("%s respond: unknown turn mode %q", p.role, input.Mode)
	}
	resp, err := p.chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s respond: %w", p.role, err)
	}
	return strings.TrimSpace(resp), nil
}

func (p *Persona) chat(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat(ctx, llm.ChatRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Messages: []llm.Message{
			{Role: "system", Content: p.systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (p *Persona) buildAnalyzePrompt(documentText string, metadata map[string]string) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Analyze this research paper from your perspective as %s.\n\n", p.role.DisplayName()))
	builder.WriteString("Paper content:\n")
	builder.WriteString(head(documentText, analyzeDocumentLimit))
	builder.WriteString("\n\nMetadata:\n")
	builder.WriteString(formatMetadata(metadata))
	builder.WriteString("\n\nProvide your analysis with:\n")
	builder.WriteString("1. Key concerns from your expertise area\n")
	builder.WriteString("2. Specific evidence/quotes supporting each concern\n")
	builder.WriteString("3. Severity rating: FATAL_FLAW / SERIOUS_CONCERN / MINOR_ISSUE / ACCEPTABLE\n")
	builder.WriteString("4. Overall confidence in your assessment (0-100)\n")
	return builder.String()
}

func (p *Persona) buildOpeningPrompt(input tribunal.TurnInput) string {
	builder := strings.Builder{}
	builder.WriteString("Based on your analysis, give a 1-2 sentence opening statement. Be direct and punchy.\n\n")
	builder.WriteString(fmt.Sprintf("Severity: %s\n", input.OwnAnalysis.Severity))
	builder.WriteString(fmt.Sprintf("Key findings: %s\n\n", head(input.OwnAnalysis.RawText, openingPromptLimit)))
	builder.WriteString("Your opening statement (1-2 sentences only):")
	return builder.String()
}

func (p *Persona) buildTurnPrompt(input tribunal.TurnInput) string {
	others := make([]string, 0, len(tribunal.AgentOrder)-1)
	for _, role := range tribunal.AgentOrder {
		if role != p.role {
			others = append(others, role.DisplayName())
		}
	}

	ownAnalysis := input.OwnAnalysis.RawText
	if ownAnalysis == "" {
		ownAnalysis = "No analysis yet."
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("You are %s in an interactive scientific tribunal.\n\n", p.role.DisplayName()))
	builder.WriteString("IMPORTANT CONTEXT:\n")
	builder.WriteString("- You are ONE of 4 tribunal members: The Skeptic, The Statistician, The Methodologist, The Ethicist\n")
	builder.WriteString(fmt.Sprintf("- The other agents are: %s\n", strings.Join(others, ", ")))
	builder.WriteString("- A human researcher/reviewer is participating in this tribunal\n")
	builder.WriteString("- You should ONLY speak about your area of expertise\n")
	builder.WriteString("- Do NOT repeat points other agents have already made\n")
	builder.WriteString("- Keep responses conversational and focused (2-4 sentences unless asked for detail)\n\n")
	builder.WriteString("YOUR ANALYSIS OF THE PAPER:\n")
	builder.WriteString(head(ownAnalysis, analysisPromptLimit))
	builder.WriteString("\n\nCONVERSATION SO FAR:\n")
	builder.WriteString(input.Summary)
	if input.PriorRound != "" {
		builder.WriteString("\n\nOTHER AGENTS HAVE ALREADY RESPONDED TO THIS:")
		builder.WriteString(input.PriorRound)
	}
	builder.WriteString("\n\nTHE HUMAN JUST SAID:\n")
	builder.WriteString(fmt.Sprintf("%q\n\n", input.HumanMessage))
	builder.WriteString(fmt.Sprintf("Respond naturally as %s. If this question is clearly not for you, respond with an empty string.\n\n", p.role.DisplayName()))
	builder.WriteString("Your response:")
	return builder.String()
}

func formatMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	builder := strings.Builder{}
	for _, k := range keys {
		builder.WriteString(fmt.Sprintf("- %s: %s\n", k, metadata[k]))
	}
	return strings.TrimRight(builder.String(), "\n")
}

func head(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

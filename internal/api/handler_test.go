package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-review/tribunal/internal/llm"
	"github.com/veritas-review/tribunal/internal/tribunal"
)

type fakeClient struct{ content string }

func (f fakeClient) Chat(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
	return llm.ChatResponse{Content: f.content}, nil
}

type fakeAgent struct{ role tribunal.ParticipantType }

func (a fakeAgent) Analyze(_ context.Context, _ string, _ map[string]string) (tribunal.AnalysisResult, error) {
	return tribunal.AnalysisResult{Agent: a.role, Severity: tribunal.SeverityMinorIssue, RawText: "fine"}, nil
}

func (a fakeAgent) Respond(_ context.Context, input tribunal.TurnInput) (string, error) {
	if input.Mode == tribunal.TurnModeOpening {
		return fmt.Sprintf("%s opening", a.role), nil
	}
	return fmt.Sprintf("%s reply", a.role), nil
}

func newTestApp(t *testing.T) *fiber.App {
	return newTestAppWithReportDir(t, "")
}

func newTestAppWithReportDir(t *testing.T, reportDir string) *fiber.App {
	t.Helper()

	agents := make(map[tribunal.ParticipantType]tribunal.Agent)
	for _, role := range tribunal.AgentOrder {
		agents[role] = fakeAgent{role: role}
	}
	registry, err := tribunal.NewRegistry(agents)
	require.NoError(t, err)

	coordinator, err := tribunal.NewTurnCoordinator(registry, &tribunal.Router{}, 10, nil)
	require.NoError(t, err)

	synthesizer := &tribunal.Synthesizer{
		Client: fakeClient{content: "DECISION: PASS\nSCORE: 80\nSUMMARY: Fine."},
	}

	service, err := tribunal.NewService(coordinator, synthesizer, tribunal.ServiceOptions{})
	require.NoError(t, err)

	app := fiber.New()
	handler := NewHandler(service, nil)
	handler.ReportDir = reportDir
	handler.Register(app)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

func startedSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, body := postJSON(t, app, "/api/tribunal/start", map[string]any{
		"text":  strings.Repeat("A study of memory and sleep. ", 10),
		"title": "Sleep Study",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestStartSessionTooShort(t *testing.T) {
	app := newTestApp(t)
	resp, body := postJSON(t, app, "/api/tribunal/start", map[string]any{"text": "short"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "document too short")
}

func TestStartSessionReturnsOpenings(t *testing.T) {
	app := newTestApp(t)
	resp, body := postJSON(t, app, "/api/tribunal/start", map[string]any{
		"text":  strings.Repeat("A study of memory and sleep. ", 10),
		"title": "Sleep Study",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Sleep Study", body["paper_title"])
	openings, ok := body["opening_statements"].([]any)
	require.True(t, ok)
	assert.Len(t, openings, 4)
}

func TestSendMessageUnknownSession(t *testing.T) {
	app := newTestApp(t)
	resp, body := postJSON(t, app, "/api/tribunal/nope/message", map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Session not found", body["error"])
}

func TestSendMessageRoutesAndFlagsVerdictRequests(t *testing.T) {
	app := newTestApp(t)
	id := startedSession(t, app)

	resp, body := postJSON(t, app, "/api/tribunal/"+id+"/message", map[string]any{
		"message": "Statistician, is the sample adequate?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	responses, ok := body["responses"].([]any)
	require.True(t, ok)
	require.Len(t, responses, 1)
	assert.Equal(t, false, body["verdict_requested"])

	_, body = postJSON(t, app, "/api/tribunal/"+id+"/message", map[string]any{
		"message": "ok, ready for verdict?",
	})
	assert.Equal(t, true, body["verdict_requested"])
}

func TestInterruptWithoutSpeaker(t *testing.T) {
	app := newTestApp(t)
	id := startedSession(t, app)

	resp, body := postJSON(t, app, "/api/tribunal/"+id+"/interrupt", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no_speaker", body["status"])
}

func TestVerdictFlowAndStateMapping(t *testing.T) {
	app := newTestApp(t)
	id := startedSession(t, app)

	resp, body := postJSON(t, app, "/api/tribunal/"+id+"/request-verdict", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	verdict, ok := body["verdict"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "PASS", verdict["decision"])
	assert.Equal(t, float64(80), verdict["score"])

	// Closed sessions reject further discussion.
	resp, _ = postJSON(t, app, "/api/tribunal/"+id+"/message", map[string]any{"message": "one more?"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/tribunal/"+id+"/state", nil)
	stateResp, err := app.Test(req, -1)
	require.NoError(t, err)
	state := decodeBody(t, stateResp)
	assert.Equal(t, "closed", state["state"])
}

func TestReportEndpoint(t *testing.T) {
	app := newTestApp(t)
	id := startedSession(t, app)

	req := httptest.NewRequest(http.MethodGet, "/api/tribunal/"+id+"/report", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# Tribunal Review: Sleep Study")
	assert.Contains(t, string(raw), "## Panel Assessment")
}

func TestExportReportWritesFile(t *testing.T) {
	dir := t.TempDir()
	app := newTestAppWithReportDir(t, dir)
	id := startedSession(t, app)

	resp, body := postJSON(t, app, "/api/tribunal/"+id+"/export", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	path, _ := body["path"].(string)
	require.Equal(t, filepath.Join(dir, id+".md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Tribunal Review: Sleep Study")
	assert.Contains(t, string(data), "## Transcript")
}

func TestExportReportUnconfigured(t *testing.T) {
	app := newTestApp(t)
	id := startedSession(t, app)

	resp, body := postJSON(t, app, "/api/tribunal/"+id+"/export", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "not configured")
}

package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hylla/ctrain/internal/adapters/server/common"
	"github.com/hylla/ctrain/internal/app"
	"github.com/hylla/ctrain/internal/domain"
	"github.com/hylla/ctrain/internal/submission"
	"github.com/mark3labs/mcp-go/mcp"
)

// memRepo keeps the last saved form in memory.
type memRepo struct {
	state *app.FormState
}

func (m *memRepo) LoadForm(_ context.Context) (app.FormState, error) {
	if m.state == nil {
		return app.FormState{}, app.ErrNotFound
	}
	return m.state.Clone(), nil
}

func (m *memRepo) SaveForm(_ context.Context, state app.FormState) error {
	clone := state.Clone()
	m.state = &clone
	return nil
}

// memSink accepts every package.
type memSink struct {
	delivered []submission.Package
}

func (s *memSink) Name() string { return "memory" }

func (s *memSink) Deliver(_ context.Context, pkg submission.Package) (submission.Receipt, error) {
	s.delivered = append(s.delivered, pkg)
	return submission.Receipt{Sink: "memory", Location: "mem://" + pkg.Root, Files: len(pkg.Files) + 1, DeliveredAt: pkg.CreatedAt}, nil
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

type testEnv struct {
	server *httptest.Server
	repo   *memRepo
	sink   *memSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := &memRepo{}
	sink := &memSink{}
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := app.NewService(repo, nil, domain.GoalTable{}, func() string { return "rec-1" }, func() time.Time { return now }, app.ServiceConfig{
		ResetAfterSubmit: true,
		Sinks:            []app.Sink{sink},
	})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	handler, err := NewHandler(Config{}, common.NewAppServiceAdapter(svc))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return &testEnv{server: server, repo: repo, sink: sink}
}

// call invokes one tool and returns the decoded result map.
func (e *testEnv) call(t *testing.T, id int, tool string, args map[string]any) map[string]any {
	t.Helper()
	_, resp := postJSONRPC(t, e.server.Client(), e.server.URL, callToolRequest(id, tool, args))
	if resp.Result == nil {
		t.Fatalf("%s returned no result", tool)
	}
	return resp.Result
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()
	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// decodeToolJSON decodes the JSON text payload of one successful tool result.
func decodeToolJSON[T any](t *testing.T, result map[string]any) T {
	t.Helper()
	if isError, _ := result["isError"].(bool); isError {
		t.Fatalf("unexpected tool error: %s", toolResultText(t, result))
	}
	var out T
	if err := json.Unmarshal([]byte(toolResultText(t, result)), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return out
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "ctrain-test",
				"version": "1.0.0",
			},
		},
	}
}

func TestNewHandlerRequiresService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestNormalizeConfigDefaults(t *testing.T) {
	cfg := normalizeConfig(Config{EndpointPath: "tools/"})
	if cfg.ServerName != "ctrain" || cfg.ServerVersion != "dev" || cfg.EndpointPath != "/tools" {
		t.Fatalf("unexpected config %#v", cfg)
	}
}

func TestHandlerUsesStatelessTransport(t *testing.T) {
	env := newTestEnv(t)
	resp, decoded := postJSONRPC(t, env.server.Client(), env.server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

func TestHandlerRegistersTools(t *testing.T) {
	env := newTestEnv(t)
	_, toolsResp := postJSONRPC(t, env.server.Client(), env.server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, required := range []string{
		"ctrain.compute_credits",
		"ctrain.resolve_goal",
		"ctrain.get_catalog",
		"ctrain.get_form",
		"ctrain.set_profile",
		"ctrain.add_activity",
		"ctrain.update_activity",
		"ctrain.remove_activity",
		"ctrain.submit",
	} {
		if !slices.Contains(toolNames, required) {
			t.Fatalf("tool list missing %s: %#v", required, toolNames)
		}
	}
}

func TestComputeCreditsAndResolveGoalTools(t *testing.T) {
	env := newTestEnv(t)

	quote := decodeToolJSON[common.CreditQuote](t, env.call(t, 3, "ctrain.compute_credits", map[string]any{
		"activity": "Professional License or Certification",
		"value":    50,
	}))
	if quote.Credits != 40 {
		t.Fatalf("credits = %v, want 40", quote.Credits)
	}

	goal := decodeToolJSON[common.GoalView](t, env.call(t, 4, "ctrain.resolve_goal", map[string]any{
		"qualification": "Something Else",
	}))
	if goal.Goal != domain.DefaultGoal {
		t.Fatalf("goal = %v, want %v", goal.Goal, domain.DefaultGoal)
	}

	missing := env.call(t, 5, "ctrain.compute_credits", map[string]any{"activity": "Mentoring"})
	if isError, _ := missing["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", missing["isError"])
	}
}

func TestFormToolsAttributeAgentAndSubmit(t *testing.T) {
	env := newTestEnv(t)

	profile := decodeToolJSON[common.ProfileView](t, env.call(t, 3, "ctrain.set_profile", map[string]any{
		"name":       "Jane Doe",
		"agent_name": "planner-bot",
	}))
	if profile.Name != "Jane Doe" || profile.Period != domain.DefaultPeriod {
		t.Fatalf("unexpected profile %#v", profile)
	}
	if env.repo.state == nil || env.repo.state.UpdatedBy != "planner-bot" || env.repo.state.UpdatedByType != app.ActorTypeAgent {
		t.Fatalf("expected agent attribution, got %#v", env.repo.state)
	}

	rec := decodeToolJSON[common.RecordView](t, env.call(t, 4, "ctrain.add_activity", map[string]any{}))
	if rec.ID != "rec-1" {
		t.Fatalf("record id = %q, want rec-1", rec.ID)
	}
	if env.repo.state.UpdatedBy != defaultAgentName {
		t.Fatalf("expected default agent attribution, got %q", env.repo.state.UpdatedBy)
	}

	updated := decodeToolJSON[common.RecordView](t, env.call(t, 5, "ctrain.update_activity", map[string]any{
		"id":       "rec-1",
		"activity": "Facility Representative Delta Qualification",
	}))
	if updated.Credits != 80 {
		t.Fatalf("credits = %v, want 80", updated.Credits)
	}

	form := decodeToolJSON[common.FormView](t, env.call(t, 6, "ctrain.get_form", map[string]any{}))
	if !form.Progress.Complete || len(form.Records) != 1 {
		t.Fatalf("unexpected form %#v", form)
	}

	resp := decodeToolJSON[common.SubmitResponse](t, env.call(t, 7, "ctrain.submit", map[string]any{}))
	if resp.Sink != "memory" || !resp.Reset || resp.TotalCredits != 80 {
		t.Fatalf("unexpected submit response %#v", resp)
	}
	if len(env.sink.delivered) != 1 {
		t.Fatalf("expected one delivery, got %d", len(env.sink.delivered))
	}
}

func TestToolErrorsAreMapped(t *testing.T) {
	env := newTestEnv(t)

	notFound := env.call(t, 3, "ctrain.remove_activity", map[string]any{"id": "nope"})
	if isError, _ := notFound["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", notFound["isError"])
	}
	if text := toolResultText(t, notFound); !strings.HasPrefix(text, "not_found:") {
		t.Fatalf("unexpected error text %q", text)
	}

	invalid := env.call(t, 4, "ctrain.submit", map[string]any{})
	if text := toolResultText(t, invalid); !strings.HasPrefix(text, "submission_invalid: Name & 5-Year Period are required.") {
		t.Fatalf("unexpected error text %q", text)
	}

	unknownSink := env.call(t, 5, "ctrain.submit", map[string]any{"sink": "ftp"})
	if text := toolResultText(t, unknownSink); !strings.HasPrefix(text, "invalid_request:") {
		t.Fatalf("unexpected error text %q", text)
	}

	emptyPatch := env.call(t, 6, "ctrain.update_activity", map[string]any{"id": "rec-1"})
	if text := toolResultText(t, emptyPatch); !strings.HasPrefix(text, "invalid_request:") {
		t.Fatalf("unexpected error text %q", text)
	}
}

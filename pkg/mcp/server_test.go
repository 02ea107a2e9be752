package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lumicast-ai/lumicast/pkg/config"
	"github.com/lumicast-ai/lumicast/pkg/cost"
	costsqlite "github.com/lumicast-ai/lumicast/pkg/cost/sqlite"
	"github.com/lumicast-ai/lumicast/pkg/models"
)

// fakeCache implements CacheStatter for testing.
type fakeCache struct {
	stats models.CacheStats
}

func (f *fakeCache) Stats(_ context.Context) (models.CacheStats, error) { return f.stats, nil }

func testGovernor(t *testing.T) *cost.Governor {
	t.Helper()
	store, err := costsqlite.New(filepath.Join(t.TempDir(), "mcp_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return cost.New(store, cost.Rates{"svc": {"m": {PerSecond: decimal.NewFromInt(1)}}},
		config.Default().Budget)
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name string, args any) ToolCallResult {
	t.Helper()
	rawArgs, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	params, err := json.Marshal(ToolCallParams{Name: name, Arguments: rawArgs})
	if err != nil {
		t.Fatal(err)
	}

	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := New(testGovernor(t), nil, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "lumicast" {
		t.Errorf("server name = %s, want lumicast", result.ServerInfo.Name)
	}
}

func TestToolsList(t *testing.T) {
	srv := New(testGovernor(t), nil, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != 6 {
		t.Errorf("got %d tools, want 6", len(result.Tools))
	}

	names := make(map[string]bool)
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"lumicast_budget", "lumicast_pending_approvals",
		"lumicast_approve", "lumicast_reject", "lumicast_cache_stats", "lumicast_health"} {
		if !names[want] {
			t.Errorf("missing tool %s", want)
		}
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := New(testGovernor(t), nil, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`3`),
		Method:  "bogus/method",
	})
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Errorf("expected method-not-found, got %+v", resp.Error)
	}
}

func TestUnknownTool(t *testing.T) {
	srv := New(testGovernor(t), nil, nil, "test")
	result := callTool(t, srv, "lumicast_bogus", map[string]any{})
	if !result.IsError {
		t.Error("unknown tool must report an error result")
	}
}

func TestBudgetTool(t *testing.T) {
	srv := New(testGovernor(t), nil, nil, "test")

	result := callTool(t, srv, "lumicast_budget", map[string]any{"creator_id": "alice"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "alice") || !strings.Contains(text, "50.00") {
		t.Errorf("budget output missing expected fields:\n%s", text)
	}
}

func TestBudgetToolRequiresCreator(t *testing.T) {
	srv := New(testGovernor(t), nil, nil, "test")
	result := callTool(t, srv, "lumicast_budget", map[string]any{})
	if !result.IsError {
		t.Error("missing creator_id must be an error result")
	}
}

func TestApprovalTools(t *testing.T) {
	g := testGovernor(t)
	srv := New(g, nil, nil, "test")
	ctx := context.Background()

	// $8: under the approval ceiling but outside the low tier, so it parks
	// as pending.
	d, err := g.RequestApproval(ctx, "svc", "m", "generate_video",
		models.Params{"duration": 8}, "alice")
	if err != nil {
		t.Fatal(err)
	}

	result := callTool(t, srv, "lumicast_pending_approvals", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}
	if !strings.Contains(result.Content[0].Text, d.Approval.ID) {
		t.Errorf("pending list missing request:\n%s", result.Content[0].Text)
	}

	result = callTool(t, srv, "lumicast_approve", map[string]any{
		"approval_id": d.Approval.ID,
		"approved_by": "admin",
	})
	if result.IsError {
		t.Fatalf("approve failed: %+v", result.Content)
	}

	ok, err := g.IsApproved(ctx, d.Entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("entry should be approved after tool call")
	}
}

func TestCacheStatsTool(t *testing.T) {
	srv := New(testGovernor(t), &fakeCache{stats: models.CacheStats{
		Entries:       10,
		ActiveEntries: 8,
		Hits:          6,
		Misses:        2,
	}}, nil, "test")

	result := callTool(t, srv, "lumicast_cache_stats", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "75.0%") {
		t.Errorf("expected 75%% hit rate in output:\n%s", text)
	}
}

func TestCacheStatsToolUnconfigured(t *testing.T) {
	srv := New(testGovernor(t), nil, nil, "test")
	result := callTool(t, srv, "lumicast_cache_stats", map[string]any{})
	if result.IsError {
		t.Error("unconfigured cache is informational, not an error")
	}
	if !strings.Contains(result.Content[0].Text, "not configured") {
		t.Errorf("unexpected output: %s", result.Content[0].Text)
	}
}

func TestParseError(t *testing.T) {
	srv := New(testGovernor(t), nil, nil, "test")
	var out bytes.Buffer
	if err := srv.Run(context.Background(), strings.NewReader("{not json}\n"), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("expected parse error, got %+v", resp.Error)
	}
}

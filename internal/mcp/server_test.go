package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lifestats/lifestats/internal/catalog"
	"github.com/lifestats/lifestats/internal/storage/memstore"
	"github.com/lifestats/lifestats/internal/tracker"
)

// TestUserIDFromContextDefault verifies the zero user ID when no value is
// set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	if id := UserIDFromContext(context.Background()); id != 0 {
		t.Errorf("UserIDFromContext(empty) = %d, want 0", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestParseFlexTime verifies both accepted timestamp layouts and rejection
// of anything else.
func TestParseFlexTime(t *testing.T) {
	ts, err := parseFlexTime("2024-06-15T10:30:00Z")
	if err != nil || ts.Hour() != 10 || ts.Minute() != 30 {
		t.Errorf("RFC3339 = %v, %v", ts, err)
	}
	ts, err = parseFlexTime("2024-01-31")
	if err != nil || ts.Day() != 31 {
		t.Errorf("date = %v, %v", ts, err)
	}
	if _, err := parseFlexTime("not-a-date"); err == nil {
		t.Error("expected error for invalid date")
	}
}

type rpcResult struct {
	Result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) (*server.MCPServer, context.Context) {
	t.Helper()
	store := memstore.New()
	u, err := store.CreateUser(context.Background(), "alice", catalog.Default().Definitions())
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	trk := tracker.New(store, time.UTC, log)
	s := New(trk, time.UTC, "test", log)
	ctx := WithUserID(context.Background(), u.ID)

	call(t, s, ctx, "initialize", `{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}`)
	return s, ctx
}

var rpcID int

func call(t *testing.T, s *server.MCPServer, ctx context.Context, method, params string) rpcResult {
	t.Helper()
	rpcID++
	msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":%q,"params":%s}`, rpcID, method, params)
	resp := s.HandleMessage(ctx, json.RawMessage(msg))
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var out rpcResult
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal response %s: %v", data, err)
	}
	if out.Error != nil {
		t.Fatalf("%s: rpc error %s", method, out.Error.Message)
	}
	return out
}

func callTool(t *testing.T, s *server.MCPServer, ctx context.Context, name string, args map[string]any) (string, bool) {
	t.Helper()
	params, _ := json.Marshal(map[string]any{"name": name, "arguments": args})
	out := call(t, s, ctx, "tools/call", string(params))
	if len(out.Result.Content) == 0 {
		t.Fatalf("%s: empty content", name)
	}
	return out.Result.Content[0].Text, out.Result.IsError
}

// TestRecordEntryThenSummary verifies an entry recorded through the tool
// shows up in today's summary.
func TestRecordEntryThenSummary(t *testing.T) {
	s, ctx := newTestServer(t)

	text, isErr := callTool(t, s, ctx, "record_entry", map[string]any{"metric_key": "water_litres", "value": 2.5})
	if isErr {
		t.Fatalf("record_entry failed: %s", text)
	}

	text, isErr = callTool(t, s, ctx, "get_summary", map[string]any{"period": "daily"})
	if isErr {
		t.Fatalf("get_summary failed: %s", text)
	}
	var daily struct {
		Averages    map[string]*float64 `json:"average_values"`
		GoalReached map[string]int      `json:"goalReached"`
	}
	if err := json.Unmarshal([]byte(text), &daily); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if v := daily.Averages["water_litres"]; v == nil || *v != 2.5 {
		t.Errorf("water average = %v, want 2.5", v)
	}
	if v := daily.Averages["sleep_hours"]; v != nil {
		t.Errorf("sleep average = %v, want null", *v)
	}
	if daily.GoalReached["water_litres"] != 1 {
		t.Errorf("water goalReached = %d, want 1", daily.GoalReached["water_litres"])
	}
}

// TestRecordEntryUnknownKey verifies invalid keys come back as tool errors
// naming the valid keys.
func TestRecordEntryUnknownKey(t *testing.T) {
	s, ctx := newTestServer(t)
	text, isErr := callTool(t, s, ctx, "record_entry", map[string]any{"metric_key": "steps", "value": 1})
	if !isErr {
		t.Fatalf("expected tool error, got %s", text)
	}
	if !strings.Contains(text, "water_litres") {
		t.Errorf("error %q does not list valid keys", text)
	}
}

// TestGetSummaryUnknownPeriod verifies the period argument is checked.
func TestGetSummaryUnknownPeriod(t *testing.T) {
	s, ctx := newTestServer(t)
	if _, isErr := callTool(t, s, ctx, "get_summary", map[string]any{"period": "hourly"}); !isErr {
		t.Error("expected tool error for unknown period")
	}
}

// TestListMetricsAndGoals verifies the catalog and default goals are exposed.
func TestListMetricsAndGoals(t *testing.T) {
	s, ctx := newTestServer(t)

	text, _ := callTool(t, s, ctx, "list_metrics", nil)
	var metrics []tracker.MetricView
	if err := json.Unmarshal([]byte(text), &metrics); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if len(metrics) != catalog.Default().Len() {
		t.Errorf("got %d metrics, want %d", len(metrics), catalog.Default().Len())
	}

	text, _ = callTool(t, s, ctx, "list_goals", nil)
	var goals []tracker.EffectiveGoal
	if err := json.Unmarshal([]byte(text), &goals); err != nil {
		t.Fatalf("decode goals: %v", err)
	}
	if len(goals) != catalog.Default().Len() {
		t.Errorf("got %d goals, want %d", len(goals), catalog.Default().Len())
	}
}

// TestTodayResource verifies the today resource lists today's entries.
func TestTodayResource(t *testing.T) {
	s, ctx := newTestServer(t)
	callTool(t, s, ctx, "record_entry", map[string]any{"metric_key": "sleep_hours", "value": 7})

	out := call(t, s, ctx, "resources/read", `{"uri":"lifestats://today"}`)
	if len(out.Result.Contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(out.Result.Contents))
	}
	var today struct {
		Date    string            `json:"date"`
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out.Result.Contents[0].Text), &today); err != nil {
		t.Fatalf("decode today: %v", err)
	}
	if today.Date != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("date = %s", today.Date)
	}
	if len(today.Entries) != 1 {
		t.Errorf("got %d entries, want 1", len(today.Entries))
	}
}

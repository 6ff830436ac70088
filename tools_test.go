package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func executeEnvelope(body string) Request {
	return Request{
		Method: http.MethodPost,
		Path:   "/api/mcp/execute",
		Body:   body,
		Query:  sessionQuery(),
	}
}

func TestLocalToolsShadowUpstream(t *testing.T) {
	proxy, calls := newTestProxy(t, nil)

	bodies := []string{
		`{"tool":"health_check"}`,
		`{"tool":"search_info","params":{"query":"go"}}`,
		`{"tool":"process_image","params":{"url":"https://img.example/a.jpg"}}`,
		`{"tool":"chat_completion","params":{"prompt":"hi"}}`,
	}
	for _, body := range bodies {
		resp := proxy.HandleRequest(context.Background(), executeEnvelope(body))
		if resp.Status != http.StatusOK {
			t.Fatalf("body %s: status = %d, want 200", body, resp.Status)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("local tools must not reach upstream, got %d calls", calls.Load())
	}
}

func TestExecuteHealthCheck(t *testing.T) {
	proxy, _ := newTestProxy(t, nil)

	resp := proxy.HandleRequest(context.Background(), executeEnvelope(`{"tool":"health_check"}`))
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if resp.Body != healthyBody {
		t.Fatalf("body = %q, want %q", resp.Body, healthyBody)
	}
}

func TestExecuteSearchInfo(t *testing.T) {
	proxy, _ := newTestProxy(t, nil)

	resp := proxy.HandleRequest(context.Background(), executeEnvelope(`{"tool":"search_info","params":{"query":"golang"}}`))
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	const prefix = "Results for 'golang': found 3 relevant documents at "
	if !strings.HasPrefix(resp.Body, prefix) || !strings.HasSuffix(resp.Body, ".") {
		t.Fatalf("body = %q, want prefix %q and trailing period", resp.Body, prefix)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(resp.Body, prefix), ".")
	if _, err := time.Parse(time.RFC3339, stamp); err != nil {
		t.Fatalf("timestamp %q does not parse: %v", stamp, err)
	}
}

func TestExecuteSearchInfoParamValidation(t *testing.T) {
	proxy, _ := newTestProxy(t, nil)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"missing params", `{"tool":"search_info"}`, http.StatusBadRequest},
		{"empty params", `{"tool":"search_info","params":{}}`, http.StatusBadRequest},
		{"non-string query", `{"tool":"search_info","params":{"query":42}}`, http.StatusBadRequest},
		{"null params", `{"tool":"search_info","params":null}`, http.StatusBadRequest},
		{"empty string query", `{"tool":"search_info","params":{"query":""}}`, http.StatusOK},
	}
	for _, tc := range cases {
		resp := proxy.HandleRequest(context.Background(), executeEnvelope(tc.body))
		if resp.Status != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.name, resp.Status, tc.status)
		}
		if tc.status == http.StatusBadRequest {
			if msg := decodeErrorBody(t, resp.Body); msg != "Parameter 'query' not provided" {
				t.Fatalf("%s: error = %q", tc.name, msg)
			}
		}
	}
}

func TestExecuteProcessImage(t *testing.T) {
	proxy, _ := newTestProxy(t, nil)

	resp := proxy.HandleRequest(context.Background(), executeEnvelope(`{"tool":"process_image","params":{"url":"https://img.example/cat.jpg"}}`))
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	var analysis imageAnalysis
	if err := json.Unmarshal([]byte(resp.Body), &analysis); err != nil {
		t.Fatalf("parse analysis: %v", err)
	}
	if analysis.Width != 800 || analysis.Height != 600 || analysis.Format != "jpeg" {
		t.Fatalf("unexpected dimensions: %+v", analysis)
	}
	if !analysis.HasFaces {
		t.Fatalf("expected has_faces true")
	}
	if analysis.Description != "Image at https://img.example/cat.jpg processed successfully" {
		t.Fatalf("description = %q", analysis.Description)
	}
	if len(analysis.Tags) != 3 || analysis.Tags[0] != "image" || analysis.Tags[1] != "processed" || analysis.Tags[2] != "simulated" {
		t.Fatalf("tags = %v", analysis.Tags)
	}
}

func TestExecuteProcessImageMissingURL(t *testing.T) {
	proxy, _ := newTestProxy(t, nil)

	resp := proxy.HandleRequest(context.Background(), executeEnvelope(`{"tool":"process_image","params":{"uri":"x"}}`))
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Status)
	}
	if msg := decodeErrorBody(t, resp.Body); msg != "Parameter 'url' not provided" {
		t.Fatalf("error = %q", msg)
	}
}

func TestExecuteChatCompletion(t *testing.T) {
	proxy, _ := newTestProxy(t, nil)

	resp := proxy.HandleRequest(context.Background(), executeEnvelope(`{"tool":"chat_completion","params":{"prompt":"hello there","history":["earlier"]}}`))
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	if !strings.HasPrefix(resp.Body, "Reply to: hello there... (generated at ") || !strings.HasSuffix(resp.Body, ")") {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestExecuteChatCompletionTruncatesPrompt(t *testing.T) {
	proxy, _ := newTestProxy(t, nil)

	prompt := strings.Repeat("a", 80)
	resp := proxy.HandleRequest(context.Background(), executeEnvelope(`{"tool":"chat_completion","params":{"prompt":"`+prompt+`"}}`))
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Status)
	}
	want := "Reply to: " + strings.Repeat("a", 50) + "... (generated at "
	if !strings.HasPrefix(resp.Body, want) {
		t.Fatalf("body = %q, want prefix with 50-char prompt", resp.Body)
	}

	// a multibyte rune at the cut must stay whole
	multibyte := strings.Repeat("a", 49) + "世界"
	resp = proxy.HandleRequest(context.Background(), executeEnvelope(`{"tool":"chat_completion","params":{"prompt":"`+multibyte+`"}}`))
	if resp.Status != http.StatusOK {
		t.Fatalf("multibyte status = %d, want 200", resp.Status)
	}
	if !utf8.ValidString(resp.Body) {
		t.Fatalf("body is not valid utf-8: %q", resp.Body)
	}
	want = "Reply to: " + strings.Repeat("a", 49) + "世... (generated at "
	if !strings.HasPrefix(resp.Body, want) {
		t.Fatalf("body = %q, want truncation on the rune boundary", resp.Body)
	}
}

func TestExecuteChatCompletionRejects(t *testing.T) {
	proxy, _ := newTestProxy(t, nil)

	for _, body := range []string{
		`{"tool":"chat_completion"}`,
		`{"tool":"chat_completion","params":{}}`,
		`{"tool":"chat_completion","params":{"prompt":""}}`,
		`{"tool":"chat_completion","params":{"history":["x"]}}`,
	} {
		resp := proxy.HandleRequest(context.Background(), executeEnvelope(body))
		if resp.Status != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, resp.Status)
		}
		if msg := decodeErrorBody(t, resp.Body); msg != "Invalid parameters for chat completion" {
			t.Fatalf("body %s: error = %q", body, msg)
		}
	}
}

func TestRepeatedExecutionStable(t *testing.T) {
	proxy, _ := newTestProxy(t, nil)

	first := proxy.HandleRequest(context.Background(), Request{Method: http.MethodGet, Path: "/health"})
	second := proxy.HandleRequest(context.Background(), Request{Method: http.MethodGet, Path: "/health"})
	if first.Status != second.Status || first.Body != second.Body {
		t.Fatalf("health responses differ: %+v vs %+v", first, second)
	}

	image := executeEnvelope(`{"tool":"process_image","params":{"url":"https://img.example/a.jpg"}}`)
	first = proxy.HandleRequest(context.Background(), image)
	second = proxy.HandleRequest(context.Background(), image)
	if first.Body != second.Body {
		t.Fatalf("image analysis not stable: %q vs %q", first.Body, second.Body)
	}
}

func TestExecuteForwardsUnknownTool(t *testing.T) {
	var forwarded map[string]string
	proxy, calls := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/mcp/tool-call" {
			t.Errorf("upstream got %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read forwarded body: %v", err)
		}
		if err := json.Unmarshal(raw, &forwarded); err != nil {
			t.Errorf("parse forwarded body: %v", err)
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	resp := proxy.HandleRequest(context.Background(), executeEnvelope(`{"tool":"remote_thing","params":{ "a" : 1 }}`))
	if resp.Status != http.StatusTeapot {
		t.Fatalf("status = %d, want upstream status relayed", resp.Status)
	}
	if resp.Body != `{"ok":true}` {
		t.Fatalf("body = %q, want upstream body relayed", resp.Body)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", calls.Load())
	}
	if forwarded["session_id"] != "sess-1" || forwarded["tool"] != "remote_thing" {
		t.Fatalf("forwarded payload = %v", forwarded)
	}
	if forwarded["params"] != `{"a":1}` {
		t.Fatalf("params not compacted: %q", forwarded["params"])
	}
}

func TestExecuteForwardOmitsAbsentParams(t *testing.T) {
	var forwarded map[string]string
	proxy, _ := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &forwarded)
		_, _ = w.Write([]byte(`{}`))
	})

	for _, body := range []string{`{"tool":"remote_thing"}`, `{"tool":"remote_thing","params":null}`} {
		forwarded = nil
		resp := proxy.HandleRequest(context.Background(), executeEnvelope(body))
		if resp.Status != http.StatusOK {
			t.Fatalf("body %s: status = %d", body, resp.Status)
		}
		if _, ok := forwarded["params"]; ok {
			t.Fatalf("body %s: params key must be omitted, got %v", body, forwarded)
		}
		if forwarded["tool"] != "remote_thing" {
			t.Fatalf("body %s: forwarded payload = %v", body, forwarded)
		}
	}
}

func TestStringParam(t *testing.T) {
	cases := []struct {
		name   string
		params string
		key    string
		want   string
		ok     bool
	}{
		{"present", `{"query":"go"}`, "query", "go", true},
		{"empty value", `{"query":""}`, "query", "", true},
		{"missing key", `{"other":"x"}`, "query", "", false},
		{"non-string", `{"query":7}`, "query", "", false},
		{"null params", `null`, "query", "", false},
		{"empty raw", ``, "query", "", false},
		{"not an object", `[1,2]`, "query", "", false},
	}
	for _, tc := range cases {
		got, ok := stringParam(json.RawMessage(tc.params), tc.key)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s: stringParam = (%q, %v), want (%q, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

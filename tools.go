package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Local tool names. The set is closed on purpose: dispatch switches over
// these exact names and anything else is forwarded upstream, so a local name
// always shadows a remote one.
const (
	toolHealthCheck    = "health_check"
	toolSearchInfo     = "search_info"
	toolProcessImage   = "process_image"
	toolChatCompletion = "chat_completion"
)

const (
	livenessBody = `{"status":"ok","message":"TESS proxy server is running"}`
	healthyBody  = `{"status":"ok","message":"TESS backend is healthy"}`
)

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// executeTool runs a tool by name. Known names are handled locally and never
// reach the upstream; unknown names are forwarded as-is.
func (p *Proxy) executeTool(ctx context.Context, sessionID, name string, params json.RawMessage) (Response, error) {
	switch name {
	case toolHealthCheck:
		return jsonResponse(http.StatusOK, healthyBody), nil
	case toolSearchInfo:
		return runSearchInfo(params), nil
	case toolProcessImage:
		return runProcessImage(params), nil
	case toolChatCompletion:
		return runChatCompletion(params), nil
	default:
		return p.forwardTool(ctx, sessionID, name, params)
	}
}

func runSearchInfo(params json.RawMessage) Response {
	query, ok := stringParam(params, "query")
	if !ok {
		return jsonResponse(http.StatusBadRequest, `{"error":"Parameter 'query' not provided"}`)
	}
	body := fmt.Sprintf("Results for '%s': found 3 relevant documents at %s.", query, nowRFC3339())
	return jsonResponse(http.StatusOK, body)
}

func runProcessImage(params json.RawMessage) Response {
	imageURL, ok := stringParam(params, "url")
	if !ok {
		return jsonResponse(http.StatusBadRequest, `{"error":"Parameter 'url' not provided"}`)
	}
	analysis := imageAnalysis{
		Width:       800,
		Height:      600,
		Format:      "jpeg",
		HasFaces:    true,
		Description: fmt.Sprintf("Image at %s processed successfully", imageURL),
		Tags:        []string{"image", "processed", "simulated"},
	}
	body, _ := json.Marshal(analysis)
	return jsonResponse(http.StatusOK, string(body))
}

func runChatCompletion(params json.RawMessage) Response {
	var req chatCompletionParams
	if !decodeParams(params, &req) || req.Prompt == "" {
		return jsonResponse(http.StatusBadRequest, `{"error":"Invalid parameters for chat completion"}`)
	}
	prompt := req.Prompt
	if runes := []rune(prompt); len(runes) > 50 {
		prompt = string(runes[:50])
	}
	body := fmt.Sprintf("Reply to: %s... (generated at %s)", prompt, nowRFC3339())
	return jsonResponse(http.StatusOK, body)
}

// forwardTool relays an unknown tool name upstream. Params travel as a
// compact JSON string inside the flat forwarding payload; the key is left
// out entirely when the caller sent none.
func (p *Proxy) forwardTool(ctx context.Context, sessionID, name string, params json.RawMessage) (Response, error) {
	payload := map[string]string{
		"session_id": sessionID,
		"tool":       name,
	}
	if paramsPresent(params) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, params); err != nil {
			return Response{}, badRequest("Invalid tool params")
		}
		payload["params"] = compact.String()
	}
	result, err := p.upstream.ExecuteTool(ctx, payload)
	if err != nil {
		return Response{}, err
	}
	return jsonResponse(result.Status, result.Body), nil
}

// stringParam extracts a required string member from a raw params object.
// A present-but-non-string value counts as missing.
func stringParam(params json.RawMessage, key string) (string, bool) {
	var fields map[string]json.RawMessage
	if !decodeParams(params, &fields) {
		return "", false
	}
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

func decodeParams(params json.RawMessage, dst any) bool {
	if !paramsPresent(params) {
		return false
	}
	return json.Unmarshal(params, dst) == nil
}

func paramsPresent(params json.RawMessage) bool {
	return len(params) > 0 && !bytes.Equal(params, []byte("null"))
}

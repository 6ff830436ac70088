package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// requestError marks a failure caused by the caller's input. The router
// reports it with the carried status; everything else becomes a 502.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(message string) *requestError {
	return &requestError{status: http.StatusBadRequest, message: message}
}

// Proxy routes request envelopes between local handlers and the upstream
// tool service.
type Proxy struct {
	upstream  *UpstreamClient
	snapshots *catalogSnapshotWriter
	log       *logrus.Entry
}

func newProxy(upstream *UpstreamClient, snapshots *catalogSnapshotWriter) *Proxy {
	return &Proxy{
		upstream:  upstream,
		snapshots: snapshots,
		log:       logComponent("proxy"),
	}
}

// HandleRequest routes one envelope and translates failures at the boundary.
// Caller mistakes keep their 4xx status; upstream transport failures all
// surface as a single 502 message so internals never leak to clients.
func (p *Proxy) HandleRequest(ctx context.Context, req Request) Response {
	resp, err := p.route(ctx, req)
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			p.log.Infof("%s %s rejected: %s", req.Method, req.Path, reqErr.message)
			return jsonResponse(reqErr.status, errorBody(reqErr.message))
		}
		p.log.Errorf("%s %s failed: %v", req.Method, req.Path, err)
		return jsonResponse(http.StatusBadGateway, errorBody("Upstream request failed"))
	}
	return resp
}

func (p *Proxy) route(ctx context.Context, req Request) (Response, error) {
	switch {
	case req.Method == http.MethodGet && req.Path == "/health":
		return jsonResponse(http.StatusOK, livenessBody), nil
	case req.Method == http.MethodGet && req.Path == "/api/mcp/tools":
		return p.handleTools(ctx, req)
	case req.Method == http.MethodPost && req.Path == "/api/mcp/execute":
		return p.handleExecute(ctx, req)
	default:
		return jsonResponse(http.StatusNotFound, errorBody("Endpoint not found")), nil
	}
}

func (p *Proxy) handleTools(ctx context.Context, req Request) (Response, error) {
	sessionID, err := requiredSession(req)
	if err != nil {
		return Response{}, err
	}
	if resource, ok := req.Query["resource"]; ok {
		return resolveResource(resource), nil
	}
	result, err := p.upstream.FetchTools(ctx, sessionID)
	if err != nil {
		return Response{}, fmt.Errorf("tool catalog: %w", err)
	}
	if result.Status == http.StatusOK {
		p.snapshots.record(sessionID, result.Body)
	}
	return jsonResponse(result.Status, result.Body), nil
}

func (p *Proxy) handleExecute(ctx context.Context, req Request) (Response, error) {
	sessionID, err := requiredSession(req)
	if err != nil {
		return Response{}, err
	}
	var exec executeRequest
	if err := json.Unmarshal([]byte(req.Body), &exec); err != nil {
		return Response{}, badRequest("Invalid request body")
	}
	if exec.Tool == "" {
		return Response{}, badRequest("Tool name not provided")
	}
	return p.executeTool(ctx, sessionID, exec.Tool, exec.Params)
}

// requiredSession checks that the session_id query key is present. An empty
// value is accepted; only a missing key is an error.
func requiredSession(req Request) (string, error) {
	sessionID, ok := req.Query["session_id"]
	if !ok {
		return "", badRequest("session_id not provided")
	}
	return sessionID, nil
}

func jsonResponse(status int, body string) Response {
	return Response{
		Status:  status,
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
	}
}

func errorBody(message string) string {
	body, _ := json.Marshal(map[string]string{"error": message})
	return string(body)
}

package main

import "encoding/json"

// Request is the envelope handed to the proxy by the hosting harness. Query
// and headers are flat single-valued maps, body is the raw payload text.
type Request struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Body    string            `json:"body"`
	Query   map[string]string `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Response is the envelope produced for every request, built fresh each time.
type Response struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// MCPTool is one catalog entry as the upstream service advertises it. The
// parameters schema is kept raw so the catalog relays byte for byte.
type MCPTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type toolCatalog struct {
	Tools []MCPTool `json:"tools"`
}

// executeRequest is the body of POST /api/mcp/execute.
type executeRequest struct {
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params,omitempty"`
}

type chatCompletionParams struct {
	Prompt  string   `json:"prompt"`
	History []string `json:"history,omitempty"`
}

type imageAnalysis struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Format      string   `json:"format"`
	HasFaces    bool     `json:"has_faces"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

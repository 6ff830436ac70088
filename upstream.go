package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// upstreamResult carries the status and raw body of one upstream exchange.
// Bodies are relayed to callers without reinterpretation.
type upstreamResult struct {
	Status int
	Body   string
}

// UpstreamClient talks to the remote tool-execution service. It is safe for
// concurrent use; the embedded http.Client pools connections across requests.
type UpstreamClient struct {
	baseURL string
	client  *http.Client
	log     *logrus.Entry
}

func newUpstreamClient(cfg *UpstreamConfig) *UpstreamClient {
	baseURL := defaultUpstreamBaseURL
	timeout := defaultUpstreamTimeout
	if cfg != nil {
		if cfg.BaseURL != "" {
			baseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		timeout = cfg.TimeoutSeconds.OrElse(defaultUpstreamTimeout)
	}
	return &UpstreamClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
		log:     logComponent("upstream"),
	}
}

// FetchTools retrieves the remote tool catalog for a session. A non-2xx
// upstream status is relayed untouched; on success the catalog array is
// re-serialized under a "tools" wrapper key.
func (c *UpstreamClient) FetchTools(ctx context.Context, sessionID string) (*upstreamResult, error) {
	query := url.Values{"session_id": {sessionID}}
	endpoint := fmt.Sprintf("%s/api/mcp/get-tools?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tool catalog: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warnf("catalog fetch returned %d", resp.StatusCode)
		return &upstreamResult{Status: resp.StatusCode, Body: string(raw)}, nil
	}

	var tools []MCPTool
	if err := json.Unmarshal(raw, &tools); err != nil {
		return nil, fmt.Errorf("parse tool catalog: %w", err)
	}
	if tools == nil {
		tools = []MCPTool{}
	}
	body, err := json.Marshal(toolCatalog{Tools: tools})
	if err != nil {
		return nil, fmt.Errorf("encode tool catalog: %w", err)
	}
	c.log.Debugf("catalog fetch returned %d tools", len(tools))
	return &upstreamResult{Status: http.StatusOK, Body: string(body)}, nil
}

// ExecuteTool relays a forwarding payload to the remote execution endpoint
// and returns whatever status and body the upstream produced.
func (c *UpstreamClient) ExecuteTool(ctx context.Context, payload map[string]string) (*upstreamResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode forwarding payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/mcp/tool-call", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build execution request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute tool upstream: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read execution response: %w", err)
	}
	c.log.Debugf("tool-call returned %d", resp.StatusCode)
	return &upstreamResult{Status: resp.StatusCode, Body: string(raw)}, nil
}

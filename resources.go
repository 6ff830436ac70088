package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const chatHistoryScheme = "chat_history://"

// resolveResource serves resource URIs locally. Only the chat_history scheme
// is known; anything else is reported back as missing together with the URI
// the caller asked for.
func resolveResource(resource string) Response {
	if strings.HasPrefix(resource, chatHistoryScheme) {
		chatID := strings.TrimPrefix(resource, chatHistoryScheme)
		body := fmt.Sprintf("Chat history %s: retrieved at %s", chatID, nowRFC3339())
		return jsonResponse(http.StatusOK, body)
	}
	body, _ := json.Marshal(map[string]string{
		"error":    "Resource not found",
		"resource": resource,
	})
	return jsonResponse(http.StatusNotFound, string(body))
}

// chatHistoryTemplate describes the chat_history scheme for manifest clients.
func chatHistoryTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		chatHistoryScheme+"{chat_id}",
		"Chat History",
		mcp.WithTemplateDescription("Recorded conversation transcript for one chat session"),
		mcp.WithTemplateMIMEType("text/plain"),
	)
}

package main

import (
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// localTools declares the tools served without leaving the process. Order
// mirrors the dispatch switch; manifest output is sorted by name instead.
func localTools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(toolHealthCheck,
			mcp.WithDescription("Checks server health"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{
				ReadOnlyHint:   boolPtr(true),
				IdempotentHint: boolPtr(true),
				OpenWorldHint:  boolPtr(false),
			}),
		),
		mcp.NewTool(toolSearchInfo,
			mcp.WithDescription("Searches for information about a topic"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search term")),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{
				ReadOnlyHint:  boolPtr(true),
				OpenWorldHint: boolPtr(true),
			}),
		),
		mcp.NewTool(toolProcessImage,
			mcp.WithDescription("Processes an image and returns information"),
			mcp.WithString("url", mcp.Required(), mcp.Description("URL of the image to process")),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{
				ReadOnlyHint:   boolPtr(true),
				IdempotentHint: boolPtr(true),
				OpenWorldHint:  boolPtr(false),
			}),
		),
		mcp.NewTool(toolChatCompletion,
			mcp.WithDescription("Generates a reply for a prompt"),
			mcp.WithString("prompt", mcp.Required(), mcp.Description("Prompt text")),
			mcp.WithArray("history",
				mcp.Description("Prior conversation turns"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{
				ReadOnlyHint:  boolPtr(true),
				OpenWorldHint: boolPtr(false),
			}),
		),
	}
}

func toolDescriptor(tool mcp.Tool) map[string]any {
	parameters := tool.InputSchema.Properties
	if parameters == nil {
		parameters = map[string]any{}
	}
	descriptor := map[string]any{
		"name":       tool.Name,
		"parameters": parameters,
	}
	if tool.Description != "" {
		descriptor["description"] = tool.Description
	}
	descriptor["annotations"] = normalizeToolAnnotations(tool)
	return descriptor
}

func resourceTemplateEntry(tpl mcp.ResourceTemplate) map[string]any {
	entry := map[string]any{
		"name": tpl.Name,
	}
	if tpl.Description != "" {
		entry["description"] = tpl.Description
	}
	if tpl.MIMEType != "" {
		entry["mimeType"] = tpl.MIMEType
	}
	if tpl.URITemplate != nil {
		entry["uriTemplate"] = tpl.URITemplate
	}
	return entry
}

func buildManifestDocument(
	manifestCfg *ManifestConfig,
	baseURL *url.URL,
	r *http.Request,
	overrides *ToolOverrideSet,
) map[string]any {
	if manifestCfg == nil {
		manifestCfg = &ManifestConfig{}
	}
	if baseURL == nil {
		baseURL = &url.URL{}
	}

	endpointPath := path.Join(baseURL.Path, "api/mcp")
	if !strings.HasPrefix(endpointPath, "/") {
		endpointPath = "/" + endpointPath
	}

	requestScheme := "https"
	if r != nil {
		if r.TLS == nil {
			requestScheme = "http"
			if baseURL.Scheme != "" {
				requestScheme = baseURL.Scheme
			}
		}
	} else if baseURL.Scheme != "" {
		requestScheme = baseURL.Scheme
	}

	requestHost := baseURL.Host
	if r != nil && r.Host != "" {
		requestHost = r.Host
	}

	endpointURL := (&url.URL{Scheme: requestScheme, Host: requestHost, Path: endpointPath}).String()

	available := localTools()
	descriptors := make(map[string]map[string]any, len(available))
	for _, tool := range available {
		if !toolEnabled(overrides, tool.Name) {
			continue
		}
		descriptors[tool.Name] = applyToolOverride(tool.Name, toolDescriptor(tool), overrides)
	}

	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	toolEntries := make([]any, 0, len(names))
	for _, name := range names {
		toolEntries = append(toolEntries, descriptors[name])
	}

	return map[string]any{
		"name":              manifestCfg.Name,
		"version":           manifestCfg.Version,
		"description":       manifestCfg.Description,
		"tools":             toolEntries,
		"resourceTemplates": []any{resourceTemplateEntry(chatHistoryTemplate())},
		"endpoint":          endpointPath,
		"endpointURL":       endpointURL,
	}
}

func boolPtr(b bool) *bool {
	return &b
}

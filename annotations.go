package main

import "github.com/mark3labs/mcp-go/mcp"

// normalizeToolAnnotations flattens a tool's annotations into the manifest
// wire shape. Unset hints are published as false so clients never see a
// missing key, while the title is only present when one was set.
func normalizeToolAnnotations(tool mcp.Tool) map[string]any {
	existing := tool.Annotations
	annotations := map[string]any{
		"readOnlyHint":    hintValue(existing.ReadOnlyHint),
		"destructiveHint": hintValue(existing.DestructiveHint),
		"idempotentHint":  hintValue(existing.IdempotentHint),
		"openWorldHint":   hintValue(existing.OpenWorldHint),
	}
	if existing.Title != "" {
		annotations["title"] = existing.Title
	}
	return annotations
}

func hintValue(hint *bool) bool {
	if hint == nil {
		return false
	}
	return *hint
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ToolOverrideSet adjusts how local tools are presented in the manifest.
// Overrides never affect dispatch; the local tool set is fixed at build time.
type ToolOverrideSet struct {
	Master *MasterOverrideConfig          `json:"master,omitempty"`
	Tools  map[string]*ToolOverrideConfig `json:"tools,omitempty"`
}

type MasterOverrideConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
}

type ToolOverrideConfig struct {
	Enabled     *bool                     `json:"enabled,omitempty"`
	Description *string                   `json:"description,omitempty"`
	Annotations *AnnotationOverrideConfig `json:"annotations,omitempty"`
}

type AnnotationOverrideConfig struct {
	Title           *string `json:"title,omitempty"`
	ReadOnlyHint    *bool   `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool   `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool   `json:"openWorldHint,omitempty"`
}

func loadToolOverridesFromPath(path string) (*ToolOverrideSet, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	normalized, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve override path: %w", err)
	}
	data, err := os.ReadFile(normalized)
	if err != nil {
		return nil, err
	}
	var set ToolOverrideSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse override file %s: %w", normalized, err)
	}
	if set.Master == nil && len(set.Tools) == 0 {
		return nil, nil
	}
	return &set, nil
}

// toolEnabled resolves visibility for one tool. Precedence is the master
// flag, then the "*" wildcard entry, then the tool's own entry.
func toolEnabled(set *ToolOverrideSet, toolName string) bool {
	if set == nil {
		return true
	}
	enabled := true
	if set.Master != nil && set.Master.Enabled != nil {
		enabled = *set.Master.Enabled
	}
	if cfg := set.Tools["*"]; cfg != nil && cfg.Enabled != nil {
		enabled = *cfg.Enabled
	}
	if cfg := set.Tools[toolName]; cfg != nil && cfg.Enabled != nil {
		enabled = *cfg.Enabled
	}
	return enabled
}

func applyToolOverride(name string, descriptor map[string]any, set *ToolOverrideSet) map[string]any {
	if descriptor == nil || set == nil {
		return descriptor
	}
	if wildcard := set.Tools["*"]; wildcard != nil {
		descriptor = applySingleOverride(descriptor, wildcard)
	}
	if override := set.Tools[name]; override != nil {
		descriptor = applySingleOverride(descriptor, override)
	}
	return descriptor
}

func applySingleOverride(descriptor map[string]any, override *ToolOverrideConfig) map[string]any {
	if descriptor == nil || override == nil {
		return descriptor
	}
	if override.Description != nil {
		descriptor["description"] = *override.Description
	}
	if override.Annotations != nil {
		descriptor["annotations"] = applyAnnotationOverride(descriptor["annotations"], override.Annotations)
	}
	return descriptor
}

func applyAnnotationOverride(existing any, override *AnnotationOverrideConfig) map[string]any {
	annotations, _ := existing.(map[string]any)
	if annotations == nil {
		annotations = make(map[string]any)
	}
	if override.Title != nil {
		annotations["title"] = *override.Title
	}
	if override.ReadOnlyHint != nil {
		annotations["readOnlyHint"] = *override.ReadOnlyHint
	}
	if override.DestructiveHint != nil {
		annotations["destructiveHint"] = *override.DestructiveHint
	}
	if override.IdempotentHint != nil {
		annotations["idempotentHint"] = *override.IdempotentHint
	}
	if override.OpenWorldHint != nil {
		annotations["openWorldHint"] = *override.OpenWorldHint
	}
	return annotations
}

package main

import (
	"fmt"
	"strings"

	optional "github.com/TBXark/optional-go"
	"github.com/go-sphere/confstore"
	"github.com/go-sphere/confstore/codec"
	"github.com/go-sphere/confstore/provider"
)

const (
	defaultListenAddr      = ":3000"
	defaultUpstreamBaseURL = "https://www.mcp.run"
	defaultUpstreamTimeout = 30
)

type Config struct {
	TessProxy *TessProxyConfig `json:"tessProxy,omitempty"`
	Upstream  *UpstreamConfig  `json:"upstream,omitempty"`
	Manifest  *ManifestConfig  `json:"manifest,omitempty"`
	Log       *LogConfig       `json:"log,omitempty"`
}

// TessProxyConfig describes the listening surface of the proxy itself.
type TessProxyConfig struct {
	Addr    string        `json:"addr,omitempty"`
	BaseURL string        `json:"baseURL,omitempty"`
	Name    string        `json:"name,omitempty"`
	Version string        `json:"version,omitempty"`
	Options *ProxyOptions `json:"options,omitempty"`
}

type ProxyOptions struct {
	LogEnabled  optional.Field[bool] `json:"logEnabled,omitempty"`
	CORSEnabled optional.Field[bool] `json:"corsEnabled,omitempty"`
}

// UpstreamConfig points the relay at the remote tool-execution service.
type UpstreamConfig struct {
	BaseURL        string              `json:"baseURL,omitempty"`
	TimeoutSeconds optional.Field[int] `json:"timeoutSeconds,omitempty"`
}

// ManifestConfig controls the advertised manifest document and the optional
// diagnostics attached to it.
type ManifestConfig struct {
	Name                   string `json:"name,omitempty"`
	Version                string `json:"version,omitempty"`
	Description            string `json:"description,omitempty"`
	ToolOverridesPath      string `json:"toolOverridesPath,omitempty"`
	CatalogSnapshotPath    string `json:"catalogSnapshotPath,omitempty"`
	CatalogSnapshotHistory int    `json:"catalogSnapshotHistory,omitempty"`
}

type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

// loadConfig reads a JSON config from a local path or a http(s) URL. An empty
// path yields the built-in defaults.
func loadConfig(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg, nil
	}
	cfg, err := confstore.Load[Config](provider.NewAutoProvider(path), codec.JsonCodec())
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TessProxy == nil {
		c.TessProxy = &TessProxyConfig{}
	}
	if c.TessProxy.Options == nil {
		c.TessProxy.Options = &ProxyOptions{}
	}
	if c.TessProxy.Name == "" {
		c.TessProxy.Name = "tess-proxy"
	}
	if c.TessProxy.Version == "" {
		c.TessProxy.Version = BuildVersion
	}
	if c.TessProxy.Addr == "" {
		c.TessProxy.Addr = defaultListenAddr
	}
	// the hosting environment hands the port down as PORT
	if port := envInt("PORT", 0); port > 0 {
		c.TessProxy.Addr = fmt.Sprintf(":%d", port)
	}
	if c.Upstream == nil {
		c.Upstream = &UpstreamConfig{}
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = defaultUpstreamBaseURL
	}
	if c.Manifest == nil {
		c.Manifest = &ManifestConfig{}
	}
	if c.Manifest.Name == "" {
		c.Manifest.Name = c.TessProxy.Name
	}
	if c.Manifest.Version == "" {
		c.Manifest.Version = c.TessProxy.Version
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
}

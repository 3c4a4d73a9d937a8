// Package config loads the two YAML documents spec.md §6 names: the
// pipeline configuration file (pipeline name -> pipeline block, decoded
// into pipelineconfig.File) and the server configuration file (ssl,
// keystore paths, serverPort, metricsRegistries, decoded into
// ServerConfig). Defaults are applied after unmarshal, the way the
// teacher's config.applyDefaults does: a zero-valued field is filled in,
// so an explicit "serverPort: 0" is treated the same as an omitted key.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dataprepper-go/pipeline/internal/pipelineconfig"
)

// ServerConfig is the control API's server configuration file (spec.md
// §6): TLS material and the port the control API listens on.
type ServerConfig struct {
	SSL                bool     `yaml:"ssl"`
	KeyStoreFilePath   string   `yaml:"keyStoreFilePath"`
	KeyStorePassword   string   `yaml:"keyStorePassword"`
	PrivateKeyPassword string   `yaml:"privateKeyPassword"`
	ServerPort         int      `yaml:"serverPort"`
	MetricsRegistries  []string `yaml:"metricsRegistries"`
}

// DefaultServerPort is used when serverPort is omitted or zero.
const DefaultServerPort = 4900

// LoadServerConfig reads and decodes the server configuration file at
// path, applying defaults to omitted fields.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read server config: %w", err)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse server config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.ServerPort == 0 {
		c.ServerPort = DefaultServerPort
	}
}

// HasPrometheusRegistry reports whether "Prometheus" appears in
// metricsRegistries, gating the /metrics/prometheus and /metrics/sys
// control API endpoints (spec.md §6).
func (c *ServerConfig) HasPrometheusRegistry() bool {
	for _, r := range c.MetricsRegistries {
		if r == "Prometheus" {
			return true
		}
	}
	return false
}

// LoadPipelineFile reads and decodes the pipeline configuration file at
// path into a pipelineconfig.File, ready for pipelineconfig.Builder.Build.
func LoadPipelineFile(path string) (pipelineconfig.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}

	var file pipelineconfig.File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	return file, nil
}

package instances

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
)

// FileLoader reads a static endpoint list from a YAML file.
// No health filtering happens: the operator vouches for the list.
type FileLoader struct {
	filePath string
}

// NewFileLoader creates a loader for filePath.
func NewFileLoader(filePath string) *FileLoader {
	return &FileLoader{
		filePath: filePath,
	}
}

// Load reads and parses the file.
func (l *FileLoader) Load() (StaticConfig, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return StaticConfig{}, fmt.Errorf("failed to read endpoints file: %w", err)
	}

	var config StaticConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return StaticConfig{}, fmt.Errorf("failed to parse endpoints yaml: %w", err)
	}

	return config, nil
}

// Candidates re-reads the file on every call so edits apply on the next refresh.
func (l *FileLoader) Candidates(_ context.Context) ([]domain.Endpoint, error) {
	config, err := l.Load()
	if err != nil {
		return nil, err
	}

	endpoints := make([]domain.Endpoint, 0, len(config.Endpoints))
	for _, raw := range config.Endpoints {
		if ep := domain.ParseEndpoint(raw); ep != "" {
			endpoints = append(endpoints, ep)
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints found in %s", l.filePath)
	}
	return endpoints, nil
}

// Name identifies the source in logs.
func (l *FileLoader) Name() string { return l.filePath }

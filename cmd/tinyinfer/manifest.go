package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ModelEntry describes one deployable model in the manifest.
type ModelEntry struct {
	Name      string `yaml:"name"`
	Param     string `yaml:"param"`
	Bin       string `yaml:"bin"`
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
	InputSize struct {
		Channels int `yaml:"channels"`
		Height   int `yaml:"height"`
		Width    int `yaml:"width"`
	} `yaml:"input_size"`
	Mean   []float32 `yaml:"mean"`
	Std    []float32 `yaml:"std"`
	Labels string    `yaml:"labels"`
}

// Manifest is the model registry the CLI works from.
type Manifest struct {
	Models []ModelEntry `yaml:"models"`
}

// LoadManifest reads a yaml manifest. Relative model paths are resolved
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i := range m.Models {
		m.Models[i].Param = resolve(dir, m.Models[i].Param)
		m.Models[i].Bin = resolve(dir, m.Models[i].Bin)
		m.Models[i].Labels = resolve(dir, m.Models[i].Labels)
	}
	return &m, nil
}

// Find returns the entry with the given name.
func (m *Manifest) Find(name string) (ModelEntry, error) {
	for _, entry := range m.Models {
		if entry.Name == name {
			return entry, nil
		}
	}
	return ModelEntry{}, fmt.Errorf("manifest: model %q not found", name)
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

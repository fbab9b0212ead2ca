// Package prefs stores layer tables as JSON documents.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jask/layerdesk/internal/layer"
)

// layerRecord is the on-disk shape of one layer.
type layerRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
	Locked  bool   `json:"locked"`
	Active  bool   `json:"active,omitempty"`
}

type layerFile struct {
	Layers []layerRecord `json:"layers"`
}

// SaveLayers writes every layer except the default one to path. The default
// layer is rebuilt from configuration on load.
func SaveLayers(path string, layers []*layer.Layer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var f layerFile
	for _, l := range layers {
		if l == nil || l.Default {
			continue
		}
		f.Layers = append(f.Layers, layerRecord{
			ID: l.ID, Name: l.Name, Color: l.Color,
			Visible: l.Visible, Locked: l.Locked, Active: l.Active,
		})
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadLayers reads import candidates from path in document order. A missing
// file yields no candidates.
func LoadLayers(path string) ([]*layer.Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var f layerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]*layer.Layer, 0, len(f.Layers))
	for _, r := range f.Layers {
		out = append(out, &layer.Layer{
			ID: r.ID, Name: r.Name, Color: r.Color,
			Visible: r.Visible, Locked: r.Locked, Active: r.Active,
		})
	}
	return out, nil
}

// Package spool keeps unflushed simulation writes on disk, one JSON file per
// business.
package spool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shopsim/internal/sim"
)

type Dir struct {
	path string
}

var _ sim.Spool = (*Dir)(nil)

func New(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Dir{path: path}, nil
}

func (d *Dir) file(businessID string) (string, error) {
	if businessID == "" || businessID == ".." || filepath.Base(businessID) != businessID || strings.ContainsRune(businessID, '\\') {
		return "", fmt.Errorf("bad business id %q", businessID)
	}
	return filepath.Join(d.path, businessID+".json"), nil
}

// Save replaces the spooled batch of a business. The file is written beside
// the target and renamed over it.
func (d *Dir) Save(businessID string, batch sim.Batch) error {
	path, err := d.file(businessID)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (d *Dir) Load(businessID string) (sim.Batch, bool, error) {
	path, err := d.file(businessID)
	if err != nil {
		return sim.Batch{}, false, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sim.Batch{}, false, nil
		}
		return sim.Batch{}, false, err
	}
	if len(raw) == 0 {
		return sim.Batch{}, false, nil
	}
	var out sim.Batch
	if err := json.Unmarshal(raw, &out); err != nil {
		return sim.Batch{}, false, fmt.Errorf("decode spool %s: %w", businessID, err)
	}
	return out, true, nil
}

func (d *Dir) Remove(businessID string) error {
	path, err := d.file(businessID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Pending lists business ids that have spooled writes waiting.
func (d *Dir) Pending() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok && !e.IsDir() {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

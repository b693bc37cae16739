// Package preset stores rack state blobs on disk and reloads them when the
// file changes.
package preset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-rack/dsp/rack"
)

// Load restores r from the blob stored at path. A blob that cannot be
// restored leaves r unchanged.
func Load(r *rack.Rack, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read preset: %w", err)
	}
	if err := r.SetStateBlob(data); err != nil {
		return fmt.Errorf("load preset %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Save writes the state of r to path. The file is replaced atomically.
func Save(r *rack.Rack, path string) error {
	data, err := r.StateBlob()
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save preset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	return nil
}

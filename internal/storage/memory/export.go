package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	v1 "github.com/OCAP2/demo/internal/storage/memory/export/v1"
)

// exportName is catalog_<run start>.json, with .gz appended when compressed.
func (b *Backend) exportName() string {
	name := "catalog_" + b.started.Format("20060102_150405") + ".json"
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return name
}

// exportJSON writes the catalog next to a temp name and renames it into
// place, so a reader never sees a half-written export.
func (b *Backend) exportJSON() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(b.cfg.OutputDir, ".catalog-*")
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	tmpPath := tmp.Name()

	err = b.encode(tmp, v1.Build(b.started, b.demos, b.playbacks))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	path := filepath.Join(b.cfg.OutputDir, b.exportName())
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move export into place: %w", err)
	}
	b.lastExportPath = path
	return nil
}

func (b *Backend) encode(w io.Writer, export v1.Export) error {
	if !b.cfg.CompressOutput {
		if err := json.NewEncoder(w).Encode(export); err != nil {
			return fmt.Errorf("encode export: %w", err)
		}
		return nil
	}

	gw := gzip.NewWriter(w)
	gw.Name = b.exportName()
	gw.ModTime = b.started
	err := json.NewEncoder(gw).Encode(export)
	return errors.Join(wrap("encode export", err), wrap("finish gzip", gw.Close()))
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/2beens/fittrack/pkg"

	"go.uber.org/multierr"
)

// DocumentFileName is the name of the state file inside the data directory.
const DocumentFileName = "fittrack-data.json"

// DiskBackend keeps the document in a single file. Writes go to a temp file
// in the same directory which is then renamed over the old one, so a crash
// mid-write leaves the previous document intact.
type DiskBackend struct {
	dir  string
	path string
}

func NewDiskBackend(dir string) (*DiskBackend, error) {
	if err := pkg.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	return &DiskBackend{
		dir:  dir,
		path: filepath.Join(dir, DocumentFileName),
	}, nil
}

func (b *DiskBackend) Name() string {
	return "disk"
}

func (b *DiskBackend) Path() string {
	return b.path
}

func (b *DiskBackend) Read(_ context.Context) ([]byte, error) {
	doc, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *DiskBackend) Write(_ context.Context, doc []byte) (err error) {
	tmp, err := os.CreateTemp(b.dir, ".fittrack-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err := tmp.Write(doc); err != nil {
		return multierr.Append(fmt.Errorf("write temp file: %w", err), tmp.Close())
	}
	if err := tmp.Sync(); err != nil {
		return multierr.Append(fmt.Errorf("sync temp file: %w", err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

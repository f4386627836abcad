package storage

import (
	"io"
	"os"
	"path/filepath"
)

// Paths describes the on-disk layout under a single storage root. Every
// batch-scoped path is namespaced by batch id inside each subtree.
type Paths struct {
	Root string
}

func NewPaths(root string) *Paths {
	return &Paths{Root: root}
}

func (p *Paths) ProcessingDir() string { return filepath.Join(p.Root, "processing") }
func (p *Paths) ResultsDir() string    { return filepath.Join(p.Root, "results") }
func (p *Paths) ExportsDir() string    { return filepath.Join(p.Root, "exports") }
func (p *Paths) PublicDir() string     { return filepath.Join(p.Root, "public") }

func (p *Paths) BatchResultsDir(batchID string) string {
	return filepath.Join(p.ResultsDir(), batchID)
}

func (p *Paths) BatchExportsDir(batchID string) string {
	return filepath.Join(p.ExportsDir(), batchID)
}

func (p *Paths) BatchPublicDir(batchID string) string {
	return filepath.Join(p.PublicDir(), batchID)
}

// EnsureDirs creates the storage root and all subtrees.
func (p *Paths) EnsureDirs() error {
	for _, dir := range []string{
		p.Root,
		p.ProcessingDir(),
		p.ResultsDir(),
		p.ExportsDir(),
		p.PublicDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// RemoveBatchDirs deletes every batch-scoped directory that exists and
// reports which ones were actually removed.
func (p *Paths) RemoveBatchDirs(batchID string) ([]string, error) {
	targets := []string{
		p.BatchResultsDir(batchID),
		p.BatchExportsDir(batchID),
		p.BatchPublicDir(batchID),
	}

	var removed []string
	for _, dir := range targets {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, err
		}
		removed = append(removed, dir)
	}
	return removed, nil
}

// RemoveExportDir deletes the batch's export directory, tolerating absence.
func (p *Paths) RemoveExportDir(batchID string) error {
	return os.RemoveAll(p.BatchExportsDir(batchID))
}

// CopyFile copies src to dest, creating parent directories as needed.
func CopyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyIfExists copies src to dest when src is present, returning whether a
// copy happened.
func CopyIfExists(src, dest string) (bool, error) {
	if src == "" {
		return false, nil
	}
	if _, err := os.Stat(src); err != nil {
		return false, nil
	}
	if err := CopyFile(src, dest); err != nil {
		return false, err
	}
	return true, nil
}

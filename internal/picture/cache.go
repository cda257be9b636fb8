package picture

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DerivativeCache decides whether a derivative must be generated and stores
// it when it is.
type DerivativeCache interface {
	Exists(dest string) (bool, error)
	Write(dest string, write func(io.Writer) error) error
}

// FSCache is a DerivativeCache keyed on destination presence. A file at the
// destination path counts as fresh regardless of its content or age.
type FSCache struct{}

// Exists reports whether dest is present on disk.
func (FSCache) Exists(dest string) (bool, error) {
	_, err := os.Stat(dest)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write creates parent directories and writes dest through a temporary file
// in the same directory, renamed into place once complete.
func (FSCache) Write(dest string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(dest)
	if err = os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", dest, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

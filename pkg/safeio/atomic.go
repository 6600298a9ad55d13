package safeio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// ErrExists is returned by WriteNewFile when the target path is already taken.
var ErrExists = errors.New("path already exists")

// RootFS returns a filesystem rooted at dir on local disk. Paths may not
// escape dir, and Chmod reaches the OS.
func RootFS(dir string) billy.Filesystem {
	return osfs.New(dir, osfs.WithBoundOS())
}

// WriteNewFile creates name on fsys with data. The content is written to a
// temp file in the same directory and renamed into place, so readers never
// observe a partially written file. An existing entry at name (of any kind)
// is never replaced.
func WriteNewFile(fsys billy.Filesystem, name string, data []byte, perm os.FileMode) error {
	if _, err := fsys.Lstat(name); err == nil {
		return fmt.Errorf("%s: %w", name, ErrExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	dir := filepath.Dir(name)
	tmp, err := fsys.TempFile(dir, ".forge-tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = fsys.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	setMode(fsys, tmpName, perm)

	// Re-check right before the rename.
	if _, err := fsys.Lstat(name); err == nil {
		cleanup()
		return fmt.Errorf("%s: %w", name, ErrExists)
	}
	if err := fsys.Rename(tmpName, name); err != nil {
		cleanup()
		return err
	}
	return nil
}

// setMode applies perm to a file that is not yet visible under its final
// name. The chroot wrappers in billy satisfy billy.Chmod even when the
// wrapped filesystem cannot chmod, so a failure leaves the temp file mode
// in place rather than failing the write.
func setMode(fsys billy.Filesystem, name string, perm os.FileMode) {
	ch, ok := fsys.(billy.Chmod)
	if !ok {
		return
	}
	_ = ch.Chmod(name, perm)
}

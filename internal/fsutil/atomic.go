// Package fsutil holds file-system helpers shared by the build pipeline and
// the index codec.
package fsutil

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
)

// WriteFileAtomic streams write into a temporary file next to path and
// renames it into place, so readers never observe a partial artifact.
// The parent directory is created if needed.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}

	buf := bufio.NewWriter(tempFile)
	if err := write(buf); err != nil {
		cleanup()
		return err
	}
	if err := buf.Flush(); err != nil {
		cleanup()
		return errors.WrapIO("write", path, err)
	}
	if err := tempFile.Chmod(constants.FilePermissions); err != nil {
		cleanup()
		return errors.WrapIO("chmod", path, err)
	}
	if err := tempFile.Sync(); err != nil {
		cleanup()
		return errors.WrapIO("sync", path, err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return errors.WrapIO("close", path, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.WrapIO("move", path, err)
	}
	return nil
}

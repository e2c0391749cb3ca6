// Package atomicfile saves output files so that they either appear complete
// or not at all.
package atomicfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Write calls fill with a writer backed by a temporary file in the same
// directory as path, and renames it over path when fill succeeds. On any
// error the temporary file is removed and path is left untouched.
func Write(path string, fill func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "create temporary file for %s", path)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = fill(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	if err = tmp.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return eris.Wrapf(err, "chmod %s", path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "rename to %s", path)
	}
	return nil
}

// WriteBytes saves data to path atomically.
func WriteBytes(path string, data []byte) error {
	return Write(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

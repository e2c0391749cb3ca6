// Package archive writes zip files from files on disk.
package archive

import (
	"archive/zip"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmharper/pdfconvert/internal/atomicfile"
	"github.com/rotisserie/eris"
)

// Entry is one file to archive. Name is the path stored in the zip.
type Entry struct {
	Name   string
	Path   string
	Method uint16
}

// MethodFor returns zip.Store for already compressed image formats and
// zip.Deflate for everything else.
func MethodFor(name string) uint16 {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return zip.Store
	}
	return zip.Deflate
}

// EntriesFor builds entries for paths, naming each relative to root with
// forward slashes.
func EntriesFor(root string, paths []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil, eris.Wrapf(err, "relative path of %s", p)
		}
		name := filepath.ToSlash(rel)
		entries = append(entries, Entry{Name: name, Path: p, Method: MethodFor(name)})
	}
	return entries, nil
}

func prepareHeader(entry Entry) (*zip.FileHeader, error) {
	info, err := os.Stat(entry.Path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, eris.Errorf("%s is a directory", entry.Path)
	}
	header := &zip.FileHeader{
		Name:   entry.Name,
		Method: entry.Method,
	}
	header.Modified = info.ModTime()
	header.UncompressedSize64 = uint64(info.Size())
	header.SetMode(info.Mode())
	if entry.Method == zip.Store {
		f, err := os.Open(entry.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		hash := crc32.NewIEEE()
		if _, err := io.Copy(hash, f); err != nil {
			return nil, err
		}
		header.CRC32 = hash.Sum32()
	}
	return header, nil
}

// Write creates the zip at archivePath with entries in the given order. An
// empty entry list still produces a valid, empty archive. The file only
// appears once it is complete.
func Write(archivePath string, entries []Entry, progress func(done, total int, name string)) error {
	return atomicfile.Write(archivePath, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for i, entry := range entries {
			header, err := prepareHeader(entry)
			if err != nil {
				return eris.Wrapf(err, "archive %s", entry.Name)
			}
			dst, err := zw.CreateHeader(header)
			if err != nil {
				return err
			}
			src, err := os.Open(entry.Path)
			if err != nil {
				return err
			}
			_, err = io.Copy(dst, src)
			src.Close()
			if err != nil {
				return eris.Wrapf(err, "archive %s", entry.Name)
			}
			if progress != nil {
				progress(i+1, len(entries), entry.Name)
			}
		}
		return zw.Close()
	})
}

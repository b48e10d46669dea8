// Package fileutil reads configuration spread over several files.
package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
)

// Separator is written between the contents of consecutive files, so that each
// file is read as its own YAML document.
const Separator = "\n---\n"

// MultiFileReader implements [io.ReadCloser] over the contents of multiple
// files. Directories are replaced by the YAML files they contain, in lexical
// order.
type MultiFileReader struct {
	names  []string
	f      *os.File
	sep    string
	opened bool
}

// NewMultiFileReader returns a new [MultiFileReader] that reads from the given files.
func NewMultiFileReader(name ...string) *MultiFileReader {
	return &MultiFileReader{names: slices.Clone(name)}
}

// IsYAML reports whether name has a YAML extension.
func IsYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (r *MultiFileReader) openNext() error {
	if len(r.names) == 0 {
		return io.EOF
	}
	name := r.names[0]
	r.names = r.names[1:]
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	entries, err := f.Readdirnames(-1)
	if errors.Is(err, syscall.ENOTDIR) {
		if r.opened {
			r.sep = Separator
		}
		r.f = f
		r.opened = true
		return nil
	}
	f.Close()
	if err != nil {
		return err
	}
	slices.Sort(entries)
	files := entries[:0]
	for _, e := range entries {
		if IsYAML(e) {
			files = append(files, filepath.Join(name, e))
		}
	}
	r.names = append(files, r.names...)
	return r.openNext()
}

// Read implements [io.Reader]. Once a file reaches EOF the next call to Read
// opens the following file. Errors opening a file are returned as-is, and
// [io.EOF] is returned once every file has been read.
func (r *MultiFileReader) Read(p []byte) (n int, err error) {
	if r.f == nil {
		if err = r.openNext(); err != nil {
			return
		}
	}
	if r.sep != "" {
		n = copy(p, r.sep)
		r.sep = r.sep[n:]
		return
	}
	n, err = r.f.Read(p)
	if err == io.EOF {
		r.f.Close()
		r.f = nil
		if len(r.names) > 0 || n > 0 {
			err = nil
		}
	}
	return
}

// Close closes the currently open file.
func (r *MultiFileReader) Close() (err error) {
	if r.f != nil {
		err = r.f.Close()
		r.f = nil
	}
	return
}

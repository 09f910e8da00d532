// Package storage holds the file helpers the compiler reads assets and
// writes outputs through. Everything goes through an afero.Fs so tests can
// run the whole pipeline against an in-memory tree.
package storage

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/conneroisu/htmlc/internal/errors"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store reads and writes files on one file system.
type Store struct {
	fs afero.Fs
}

// New returns a Store over fsys.
func New(fsys afero.Fs) *Store {
	return &Store{fs: fsys}
}

// OS returns a Store over the host file system.
func OS() *Store {
	return New(afero.NewOsFs())
}

// Fs exposes the underlying file system.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Read returns the content of path as a string.
func (s *Store) Read(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", errors.WrapIO(err, "READ_FAILED", "cannot read file", path)
	}
	return string(data), nil
}

// ReadBase64 returns the content of path, base64 encoded.
func (s *Store) ReadBase64(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", errors.WrapIO(err, "READ_FAILED", "cannot read file", path)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Write stores data at path, creating parent directories as needed.
func (s *Store) Write(path string, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return errors.WrapIO(err, "MKDIR_FAILED", "cannot create directory", filepath.Dir(path))
	}
	if err := afero.WriteFile(s.fs, path, data, filePerm); err != nil {
		return errors.WrapIO(err, "WRITE_FAILED", "cannot write file", path)
	}
	return nil
}

// Copy streams src to dst, creating dst's parent directories.
func (s *Store) Copy(src, dst string) (err error) {
	in, err := s.fs.Open(src)
	if err != nil {
		return errors.WrapIO(err, "READ_FAILED", "cannot open file", src)
	}
	defer in.Close()

	if err := s.fs.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return errors.WrapIO(err, "MKDIR_FAILED", "cannot create directory", filepath.Dir(dst))
	}

	out, err := s.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return errors.WrapIO(err, "WRITE_FAILED", "cannot create file", dst)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.WrapIO(cerr, "WRITE_FAILED", "cannot close file", dst)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return errors.WrapIO(err, "COPY_FAILED", "cannot copy file", dst)
	}
	return nil
}

// Exists reports whether path exists.
func (s *Store) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

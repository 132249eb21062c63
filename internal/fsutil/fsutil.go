// Package fsutil provides the filesystem seam every component builds on:
// an afero.Fs so tests can swap in an in-memory filesystem, plus the small
// set of tree operations (copy, hash, atomic rename) the cache and workspace
// builder both need. Modeled on the teacher's internal/config.FileOps
// interface, generalized to whole directory trees.
package fsutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// OS is the real, on-disk filesystem. Every production constructor defaults
// to this; tests pass afero.NewMemMapFs() instead.
var OS afero.Fs = afero.NewOsFs()

// CopyTree copies every regular file, directory, and symlink-as-file under
// src into dst, creating dst if necessary. It does not follow symlinks.
func CopyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}
		return copyFile(fs, path, target, info)
	})
}

func copyFile(fs afero.Fs, src, dst string, info os.FileInfo) error {
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// AtomicPublish writes the contents produced by fill into a temporary
// sibling of dst, then renames it into place, so concurrent readers never
// observe a partially written entry. Mirrors the "<entry>.tmp/ -> rename"
// contract from the two-tier cache spec.
func AtomicPublish(fs afero.Fs, dst string, fill func(tmp string) error) error {
	tmp := dst + ".tmp"
	if err := fs.RemoveAll(tmp); err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := fill(tmp); err != nil {
		_ = fs.RemoveAll(tmp)
		return err
	}
	_ = fs.RemoveAll(dst)
	return fs.Rename(tmp, dst)
}

// TreeDigest returns a stable hash over the relative paths and contents of
// every regular file under root, used by the cache to detect corruption and
// by tests to assert byte-identical artifacts across a cached vs from-scratch
// build (property 5 in spec.md §8).
func TreeDigest(fs afero.Fs, root string) (string, error) {
	var paths []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, rel := range paths {
		data, err := afero.ReadFile(fs, filepath.Join(root, rel))
		if err != nil {
			return "", err
		}
		h.Write([]byte(rel))
		h.Write([]byte{0})
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DirNonEmpty reports whether path exists and contains at least one entry.
func DirNonEmpty(fs afero.Fs, path string) bool {
	entries, err := afero.ReadDir(fs, path)
	return err == nil && len(entries) > 0
}

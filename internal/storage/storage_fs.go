package storage

import (
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ije/gox/utils"
)

// NewFSStorage creates a storage that keeps every key as a file under root.
func NewFSStorage(root string) (Storage, error) {
	if root == "" {
		return nil, errors.New("root is required")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(root); err != nil {
		return nil, err
	}
	return &fsStorage{root: root}, nil
}

type fsDriver struct{}

func (fsDriver) Open(root string, options url.Values) (Storage, error) {
	return NewFSStorage(root)
}

type fsStorage struct {
	root string
}

// keyPath maps the key to a file path and rejects keys escaping the root.
func (fs *fsStorage) keyPath(key string) (string, error) {
	filename := filepath.Join(fs.root, filepath.FromSlash(key))
	if filename != fs.root && !strings.HasPrefix(filename, fs.root+string(os.PathSeparator)) {
		return "", errors.New("invalid key: " + key)
	}
	return filename, nil
}

func (fs *fsStorage) Stat(key string) (Stat, error) {
	filename, err := fs.keyPath(key)
	if err != nil {
		return nil, ErrNotFound
	}
	fi, err := os.Lstat(filename)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fi, nil
}

func (fs *fsStorage) Get(key string) (io.ReadCloser, Stat, error) {
	filename, err := fs.keyPath(key)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	file, err := os.Open(filename)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	if stat.IsDir() {
		file.Close()
		return nil, nil, ErrNotFound
	}
	return file, stat, nil
}

func (fs *fsStorage) List(prefix string) ([]string, error) {
	dir := strings.TrimSuffix(utils.NormalizePathname(prefix)[1:], "/")
	absDir, err := fs.keyPath(dir)
	if err != nil {
		return nil, err
	}
	return findFiles(absDir, dir)
}

func (fs *fsStorage) Put(key string, content io.Reader) error {
	filename, err := fs.keyPath(key)
	if err != nil || filename == fs.root {
		return errors.New("invalid key: " + key)
	}
	if err := ensureDir(filepath.Dir(filename)); err != nil {
		return err
	}

	// write to a temp file first so readers never see a partial shim
	tmp := filename + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = io.Copy(file, content)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filename)
}

func (fs *fsStorage) Delete(key string) error {
	filename, err := fs.keyPath(key)
	if err != nil {
		return ErrNotFound
	}
	if err := os.Remove(filename); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (fs *fsStorage) DeleteAll(prefix string) ([]string, error) {
	dir := strings.TrimSuffix(utils.NormalizePathname(prefix)[1:], "/")
	if dir == "" {
		return nil, errors.New("prefix is required")
	}
	absDir, err := fs.keyPath(dir)
	if err != nil {
		return nil, ErrNotFound
	}
	keys, err := fs.List(prefix)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(absDir); err != nil {
		return nil, err
	}
	return keys, nil
}

func isNotFound(err error) bool {
	return os.IsNotExist(err) || strings.HasSuffix(err.Error(), "not a directory")
}

func ensureDir(dir string) error {
	_, err := os.Lstat(dir)
	if err != nil && os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return err
}

// findFiles returns the keys of all files under root.
func findFiles(root string, parentDir string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	files := []string{}
	for _, entry := range entries {
		name := entry.Name()
		key := name
		if parentDir != "" {
			key = parentDir + "/" + name
		}
		if entry.IsDir() {
			subFiles, err := findFiles(filepath.Join(root, name), key)
			if err != nil {
				return nil, err
			}
			files = append(files, subFiles...)
		} else if !strings.HasSuffix(name, ".tmp") {
			files = append(files, key)
		}
	}
	return files, nil
}

func init() {
	Register("fs", fsDriver{})
}

// Package storage persists generated build outputs (shims, app re-exports) by key.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	logx "github.com/ije/gox/log"
	"github.com/ije/gox/utils"
)

var log = &logx.Logger{}

var ErrNotFound = errors.New("record not found")

// SetLogger sets the logger of the storage package.
func SetLogger(logger *logx.Logger) {
	log = logger
}

// Storage is a flat key space of files.
type Storage interface {
	Stat(key string) (Stat, error)
	Get(key string) (io.ReadCloser, Stat, error)
	List(prefix string) ([]string, error)
	Put(key string, content io.Reader) error
	Delete(key string) error
	DeleteAll(prefix string) ([]string, error)
}

type Stat interface {
	Size() int64
	ModTime() time.Time
}

// Driver opens a storage at the given root.
type Driver interface {
	Open(root string, options url.Values) (Storage, error)
}

var drivers = sync.Map{}

// Open opens a storage from a url like `fs:/path/to/dir`.
func Open(storageUrl string) (Storage, error) {
	name, addr := utils.SplitByFirstByte(storageUrl, ':')
	driver, ok := drivers.Load(name)
	if !ok {
		return nil, fmt.Errorf("unregistered storage '%s'", name)
	}
	root, options, err := parseConfigUrl(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid storage url '%s': %w", storageUrl, err)
	}
	return driver.(Driver).Open(root, options)
}

// Register makes a storage driver available by name.
func Register(name string, driver Driver) error {
	if _, ok := drivers.Load(name); ok {
		return fmt.Errorf("storage driver '%s' has been registered", name)
	}
	drivers.Store(name, driver)
	return nil
}

// PutIfChanged writes data to key unless the stored content is identical. It reports
// whether a write happened.
func PutIfChanged(s Storage, key string, data []byte) (bool, error) {
	r, stat, err := s.Get(key)
	if err == nil {
		same := false
		if stat.Size() == int64(len(data)) {
			current, err := io.ReadAll(r)
			same = err == nil && bytes.Equal(current, data)
		}
		r.Close()
		if same {
			return false, nil
		}
	} else if err != ErrNotFound {
		return false, err
	}
	if err := s.Put(key, bytes.NewReader(data)); err != nil {
		return false, err
	}
	log.Debugf("storage: wrote %s (%d bytes)", key, len(data))
	return true, nil
}

func parseConfigUrl(configUrl string) (root string, options url.Values, err error) {
	root, query := utils.SplitByFirstByte(configUrl, '?')
	if query != "" {
		options, err = url.ParseQuery(query)
		if err != nil {
			return root, nil, err
		}
	}
	return root, options, nil
}

package shim

import (
	"strings"

	"github.com/esm-dev/ember-resolver/internal/storage"
)

// Writer emits shims for external modules into a storage, one `<name>.js` file per
// module name.
type Writer struct {
	storage storage.Storage
	cache   *Cache
}

// NewWriter creates a writer backed by the storage. The cache may be nil.
func NewWriter(s storage.Storage, cache *Cache) *Writer {
	return &Writer{storage: s, cache: cache}
}

// Key returns the storage key of the shim for moduleName.
func Key(moduleName string) string {
	return strings.TrimPrefix(moduleName, "/") + ".js"
}

// Write stores the shim for moduleName unless an identical one is already there. It
// returns the key and whether the file was written.
func (w *Writer) Write(moduleName string) (key string, written bool, err error) {
	var code string
	if w.cache != nil {
		code, err = w.cache.Get(moduleName)
		if err != nil {
			return "", false, err
		}
	} else {
		code = Generate(moduleName)
	}
	key = Key(moduleName)
	written, err = storage.PutIfChanged(w.storage, key, []byte(code))
	return key, written, err
}

// List returns the module names of every shim in the storage.
func (w *Writer) List() ([]string, error) {
	keys, err := w.storage.List("")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, ".js") {
			names = append(names, strings.TrimSuffix(key, ".js"))
		}
	}
	return names, nil
}

package pkgcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/esm-dev/ember-resolver/internal/npm"
	syncx "github.com/ije/gox/sync"
)

// ErrModuleNotFound is returned when a package can not be found on disk relative to
// the requesting package.
var ErrModuleNotFound = errors.New("module not found")

// Cache maps file paths to owning packages and resolves package names relative to a
// requesting package. One Cache is created per build and shared by every resolver of
// that build; it is populated lazily and is safe for concurrent use.
type Cache struct {
	appRoot string

	loadMutex syncx.KeyedMutex

	lock     sync.RWMutex
	packages map[string]*Package
	owners   map[string]string
	resolved map[string]string
}

// New creates a package cache for the build rooted at appRoot.
func New(appRoot string) *Cache {
	if abs, err := filepath.Abs(appRoot); err == nil {
		appRoot = abs
	}
	return &Cache{
		appRoot:  appRoot,
		packages: map[string]*Package{},
		owners:   map[string]string{},
		resolved: map[string]string{},
	}
}

// AppRoot returns the application root of the build.
func (c *Cache) AppRoot() string {
	return c.appRoot
}

// App returns the package at the application root.
func (c *Cache) App() (*Package, error) {
	return c.Get(c.appRoot)
}

// Get returns the package whose package.json lives in root.
func (c *Cache) Get(root string) (*Package, error) {
	root = filepath.Clean(root)

	c.lock.RLock()
	pkg, ok := c.packages[root]
	c.lock.RUnlock()
	if ok {
		return pkg, nil
	}

	unlock := c.loadMutex.Lock(root)
	defer unlock()

	// check again after lock
	c.lock.RLock()
	pkg, ok = c.packages[root]
	c.lock.RUnlock()
	if ok {
		return pkg, nil
	}

	pkgJson, err := npm.ParsePackageJSONFile(filepath.Join(root, "package.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no package.json in %s", ErrModuleNotFound, root)
		}
		return nil, err
	}

	pkg = &Package{
		Name:    pkgJson.Name,
		Version: pkgJson.Version,
		Root:    root,
		JSON:    pkgJson,
		isApp:   root == c.appRoot,
		cache:   c,
	}
	c.lock.Lock()
	c.packages[root] = pkg
	c.lock.Unlock()
	return pkg, nil
}

// OwnerOfFile returns the package that contains the given file, or nil when the file
// is not inside any package.
func (c *Cache) OwnerOfFile(filename string) (*Package, error) {
	var (
		dir     = filepath.Dir(filepath.Clean(filename))
		visited []string
		root    string
	)
	for {
		c.lock.RLock()
		cached, ok := c.owners[dir]
		c.lock.RUnlock()
		if ok {
			root = cached
			break
		}
		visited = append(visited, dir)
		if filepath.Base(dir) != "node_modules" && existsFile(filepath.Join(dir, "package.json")) {
			root = dir
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	c.lock.Lock()
	for _, d := range visited {
		c.owners[d] = root
	}
	c.lock.Unlock()

	if root == "" {
		return nil, nil
	}
	return c.Get(root)
}

// Resolve finds the package with the given name from the point of view of the `from`
// package, walking up its `node_modules` directories. It returns an error wrapping
// ErrModuleNotFound when nothing matches.
func (c *Cache) Resolve(name string, from *Package) (*Package, error) {
	if !npm.ValidatePackageName(name) {
		return nil, fmt.Errorf("%w: invalid package name %q", ErrModuleNotFound, name)
	}

	key := from.Root + "\x00" + name
	c.lock.RLock()
	root, ok := c.resolved[key]
	c.lock.RUnlock()
	if ok {
		if root == "" {
			return nil, notFound(name, from)
		}
		return c.Get(root)
	}

	for dir := from.Root; ; {
		if filepath.Base(dir) != "node_modules" {
			candidate := filepath.Join(dir, "node_modules", name)
			if existsFile(filepath.Join(candidate, "package.json")) {
				if real, err := filepath.EvalSymlinks(candidate); err == nil {
					candidate = real
				}
				root = candidate
				break
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	c.lock.Lock()
	c.resolved[key] = root
	c.lock.Unlock()

	if root == "" {
		return nil, notFound(name, from)
	}
	return c.Get(root)
}

func notFound(name string, from *Package) error {
	return fmt.Errorf("%w: can not resolve %s from %s", ErrModuleNotFound, name, from.Root)
}

func existsFile(filename string) bool {
	fi, err := os.Stat(filename)
	return err == nil && !fi.IsDir()
}

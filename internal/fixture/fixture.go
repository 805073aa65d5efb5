// Package fixture lays out on-disk package trees for tests.
package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

// Project is a temporary directory holding package.json trees.
type Project struct {
	t    testing.TB
	Root string
}

// Manifest is a package.json document.
type Manifest map[string]any

// New creates an empty project in a temporary directory.
func New(t testing.TB) *Project {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &Project{t: t, Root: root}
}

// Path returns the absolute path of the given project-relative path.
func (p *Project) Path(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// Package writes a package.json into the given directory and returns its absolute path.
func (p *Project) Package(dir string, manifest Manifest) string {
	p.t.Helper()
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		p.t.Fatal(err)
	}
	p.File(filepath.Join(dir, "package.json"), string(data))
	return p.Path(dir)
}

// File writes a file and returns its absolute path.
func (p *Project) File(rel string, content string) string {
	p.t.Helper()
	filename := p.Path(rel)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		p.t.Fatal(err)
	}
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		p.t.Fatal(err)
	}
	return filename
}

// Symlink creates a symlink at rel pointing to the project-relative target.
func (p *Project) Symlink(target string, rel string) string {
	p.t.Helper()
	link := p.Path(rel)
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		p.t.Fatal(err)
	}
	if err := os.Symlink(p.Path(target), link); err != nil {
		p.t.Fatal(err)
	}
	return link
}

// V2Addon returns a manifest for a v2 ember addon.
func V2Addon(name string, meta Manifest, deps ...string) Manifest {
	if meta == nil {
		meta = Manifest{}
	}
	meta["version"] = 2
	meta["type"] = "addon"
	m := Manifest{
		"name":        name,
		"version":     "1.0.0",
		"keywords":    []string{"ember-addon"},
		"ember-addon": meta,
	}
	if len(deps) > 0 {
		m["dependencies"] = Deps(deps...)
	}
	return m
}

// V2App returns a manifest for a v2 ember app.
func V2App(name string, deps ...string) Manifest {
	m := Manifest{
		"name":        name,
		"version":     "0.0.0",
		"ember-addon": Manifest{"version": 2, "type": "app"},
	}
	if len(deps) > 0 {
		m["dependencies"] = Deps(deps...)
	}
	return m
}

// Plain returns a manifest for a non-ember package.
func Plain(name string, deps ...string) Manifest {
	m := Manifest{"name": name, "version": "1.0.0"}
	if len(deps) > 0 {
		m["dependencies"] = Deps(deps...)
	}
	return m
}

// Deps builds a dependency section with "*" ranges.
func Deps(names ...string) map[string]string {
	deps := make(map[string]string, len(names))
	for _, name := range names {
		deps[name] = "*"
	}
	return deps
}

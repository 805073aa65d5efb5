package pkgcache

import (
	"errors"
	"sort"
	"sync"

	"github.com/esm-dev/ember-resolver/internal/npm"
)

// Package is a package loaded from its package.json. It is immutable once loaded.
type Package struct {
	Name    string
	Version string
	Root    string
	JSON    *npm.PackageJSON

	isApp bool
	cache *Cache

	depsOnce sync.Once
	deps     []*Package
	depsErr  error
}

// Meta returns the `ember-addon` metadata, or nil when the package has none.
func (p *Package) Meta() *npm.AddonMeta {
	return p.JSON.EmberAddon
}

// IsApp reports whether the package lives at the application root of the build.
func (p *Package) IsApp() bool {
	return p.isApp
}

// IsEmberPackage reports whether the package belongs to the ember ecosystem.
func (p *Package) IsEmberPackage() bool {
	if p.JSON.HasKeyword("ember-addon") {
		return true
	}
	meta := p.Meta()
	return meta != nil && meta.Type == "app"
}

// IsEngine reports whether the package is an ember engine.
func (p *Package) IsEngine() bool {
	return p.JSON.HasKeyword("ember-engine")
}

// IsV2Ember reports whether the package is an ember package in the v2 format.
func (p *Package) IsV2Ember() bool {
	meta := p.Meta()
	return p.IsEmberPackage() && meta != nil && meta.Version == 2
}

// IsV2Addon reports whether the package is a v2 ember addon.
func (p *Package) IsV2Addon() bool {
	return p.IsV2Ember() && p.Meta().Type == "addon"
}

// IsV2App reports whether the package is a v2 ember app.
func (p *Package) IsV2App() bool {
	return p.IsV2Ember() && p.Meta().Type == "app"
}

// IsAutoUpgraded reports whether the package was mechanically converted from the
// legacy format instead of being authored as v2.
func (p *Package) IsAutoUpgraded() bool {
	meta := p.Meta()
	return meta != nil && meta.AutoUpgraded
}

// HasDependency reports whether the package declares the name in its dependencies,
// devDependencies or peerDependencies.
func (p *Package) HasDependency(name string) bool {
	return p.JSON.DependsOn(name)
}

// HasExports reports whether the package.json has a non-empty `exports` field.
func (p *Package) HasExports() bool {
	switch exports := p.JSON.Exports.(type) {
	case nil:
		return false
	case string:
		return exports != ""
	}
	return true
}

// OrderIndex returns the v2 `order-index` of the package, 0 for anything else.
func (p *Package) OrderIndex() int {
	if p.IsV2Addon() {
		return p.Meta().OrderIndex
	}
	return 0
}

// Dependencies returns the resolved dependencies and peer dependencies of the package,
// plus the dev dependencies for the app. Names that can not be found on disk are
// skipped.
func (p *Package) Dependencies() ([]*Package, error) {
	p.depsOnce.Do(func() {
		names := make([]string, 0, len(p.JSON.Dependencies)+len(p.JSON.PeerDependencies))
		seen := map[string]bool{}
		sections := []map[string]string{p.JSON.Dependencies, p.JSON.PeerDependencies}
		if p.isApp {
			sections = append(sections, p.JSON.DevDependencies)
		}
		for _, section := range sections {
			keys := make([]string, 0, len(section))
			for name := range section {
				keys = append(keys, name)
			}
			sort.Strings(keys)
			for _, name := range keys {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
		for _, name := range names {
			dep, err := p.cache.Resolve(name, p)
			if err != nil {
				if errors.Is(err, ErrModuleNotFound) {
					continue
				}
				p.depsErr = err
				return
			}
			p.deps = append(p.deps, dep)
		}
	})
	return p.deps, p.depsErr
}

// FindDescendants walks the dependency graph breadth first and returns every package
// reachable through packages accepted by the filter. A nil filter accepts everything.
func (p *Package) FindDescendants(filter func(*Package) bool) ([]*Package, error) {
	var (
		result []*Package
		seen   = map[*Package]bool{}
		queue  = []*Package{p}
	)
	for len(queue) > 0 {
		pkg := queue[0]
		queue = queue[1:]
		if seen[pkg] {
			continue
		}
		seen[pkg] = true
		if pkg != p {
			result = append(result, pkg)
		}
		deps, err := pkg.Dependencies()
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			if filter == nil || filter(dep) {
				queue = append(queue, dep)
			}
		}
	}
	return result, nil
}

func (p *Package) String() string {
	if p.Version != "" {
		return p.Name + "@" + p.Version
	}
	return p.Name
}

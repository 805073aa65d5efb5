// Package compat assembles resolver options for an app from its installed addons.
package compat

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/esm-dev/ember-resolver/internal/pkgcache"
	"github.com/esm-dev/ember-resolver/internal/resolver"
)

// Engine is one compilation target: the app itself or a lazy engine.
type Engine struct {
	Package *pkgcache.Package
	// DestPath is where the engine's app tree is assembled.
	DestPath string
	// Addons are the engine's addons in the legacy run order, last one wins.
	Addons []*pkgcache.Package
	// RelocatedFiles maps paths relative to DestPath to their original file.
	RelocatedFiles map[string]string
}

// App computes build configuration for an app package.
type App struct {
	Package *pkgcache.Package
	// Extras are synthesized packages (vendor, styles) that act as app dependencies.
	Extras          []*pkgcache.Package
	ModulePrefix    string
	PodModulePrefix string

	allActive []*pkgcache.Package
}

// NewApp creates the compat view of the app package.
func NewApp(app *pkgcache.Package, extras ...*pkgcache.Package) *App {
	return &App{Package: app, Extras: extras}
}

func isActiveAddon(pkg *pkgcache.Package) bool {
	return pkg.IsEmberPackage()
}

// AllActiveAddons returns every ember package reachable from the app and its extras,
// ordered by `order-index`.
func (a *App) AllActiveAddons() ([]*pkgcache.Package, error) {
	if a.allActive != nil {
		return a.allActive, nil
	}
	result, err := a.Package.FindDescendants(isActiveAddon)
	if err != nil {
		return nil, err
	}
	var extras []*pkgcache.Package
	for _, extra := range a.Extras {
		if isActiveAddon(extra) {
			extras = append(extras, extra)
		}
	}
	result = append(result, extras...)
	for _, extra := range extras {
		descendants, err := extra.FindDescendants(isActiveAddon)
		if err != nil {
			return nil, err
		}
		result = append(result, descendants...)
	}
	orderAddons(result)
	a.allActive = result
	return result, nil
}

// ActiveAddonChildren returns the direct addon dependencies of pkg, ignoring peer
// dependencies the way ember-cli does. A nil pkg means the app.
func (a *App) ActiveAddonChildren(pkg *pkgcache.Package) ([]*pkgcache.Package, error) {
	if pkg == nil {
		pkg = a.Package
	}
	deps, err := pkg.Dependencies()
	if err != nil {
		return nil, err
	}
	var result []*pkgcache.Package
	for _, dep := range deps {
		if !isActiveAddon(dep) {
			continue
		}
		if _, ok := pkg.JSON.Dependencies[dep.Name]; ok {
			result = append(result, dep)
		} else if _, ok := pkg.JSON.DevDependencies[dep.Name]; ok {
			result = append(result, dep)
		}
	}
	if pkg == a.Package {
		for _, extra := range a.Extras {
			if isActiveAddon(extra) {
				result = append(result, extra)
			}
		}
	}
	orderAddons(result)
	return result, nil
}

// orderAddons sorts by `order-index`, keeping the discovery order for ties.
func orderAddons(addons []*pkgcache.Package) {
	sort.SliceStable(addons, func(i, j int) bool {
		return addons[i].OrderIndex() < addons[j].OrderIndex()
	})
}

// EmberVersion returns the version of the app's `ember-source`.
func (a *App) EmberVersion() (string, error) {
	children, err := a.ActiveAddonChildren(nil)
	if err != nil {
		return "", err
	}
	for _, child := range children {
		if child.Name == "ember-source" {
			if _, err := semver.NewVersion(child.Version); err != nil {
				return "", fmt.Errorf("ember-source has an invalid version %q: %w", child.Version, err)
			}
			return child.Version, nil
		}
	}
	return "", errors.New("the app does not depend on ember-source")
}

// ResolverConfig builds the resolver options shared by every file of the app.
func (a *App) ResolverConfig(engines []Engine) (*resolver.Options, error) {
	addons, err := a.AllActiveAddons()
	if err != nil {
		return nil, err
	}

	opts := &resolver.Options{
		RenamePackages:       map[string]string{},
		RenameModules:        map[string]string{},
		ExtraImports:         []resolver.ExtraImport{},
		ActiveAddons:         map[string]string{},
		RelocatedFiles:       map[string]string{},
		ResolvableExtensions: append([]string(nil), resolver.DefaultResolvableExtensions...),
		AppRoot:              a.Package.Root,
		ModulePrefix:         a.ModulePrefix,
		PodModulePrefix:      a.PodModulePrefix,
	}
	// later addons override earlier ones
	for _, addon := range addons {
		if meta := addon.Meta(); meta != nil {
			for from, to := range meta.RenamedPackages {
				opts.RenamePackages[from] = to
			}
			for from, to := range meta.RenamedModules {
				opts.RenameModules[from] = to
			}
		}
		opts.ActiveAddons[addon.Name] = addon.Root
	}

	for _, engine := range engines {
		for relativePath, originalPath := range engine.RelocatedFiles {
			opts.RelocatedFiles[filepath.Join(engine.DestPath, filepath.FromSlash(relativePath))] = originalPath
		}
		config := resolver.EngineConfig{
			PackageName:  engine.Package.Name,
			Root:         engine.Package.Root,
			ActiveAddons: make([]resolver.ActiveAddon, 0, len(engine.Addons)),
		}
		// legacy order is run order (last wins), the resolver searches first to last
		for i := len(engine.Addons) - 1; i >= 0; i-- {
			addon := engine.Addons[i]
			config.ActiveAddons = append(config.ActiveAddons, resolver.ActiveAddon{Name: addon.Name, Root: addon.Root})
		}
		opts.Engines = append(opts.Engines, config)
	}

	opts.EmberVersion, err = a.EmberVersion()
	if err != nil {
		return nil, err
	}
	return opts, nil
}

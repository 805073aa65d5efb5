package resolver

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/esm-dev/ember-resolver/internal/macros"
	"github.com/esm-dev/ember-resolver/internal/npm"
	"github.com/esm-dev/ember-resolver/internal/pkgcache"
	logx "github.com/ije/gox/log"
)

var log = &logx.Logger{}

// SetLogger sets the logger used to trace resolution decisions.
func SetLogger(logger *logx.Logger) {
	log = logger
}

// Resolver decides the fate of every import in one source file. A Resolver is cheap
// and must not be shared between files; it is not safe for concurrent use.
type Resolver struct {
	// Filename is the current on-disk path of the file, used to resolve relative imports.
	Filename string
	// OriginalFilename is the path the file had before any relocation, used to find
	// the package that owns the code.
	OriginalFilename string

	opts  *Options
	cache *pkgcache.Cache

	ownerLoaded bool
	owner       *pkgcache.Package
	ownerErr    error

	destLoaded bool
	dest       *pkgcache.Package
	destErr    error
}

// New creates a resolver for the file at filename.
func New(filename string, opts *Options, cache *pkgcache.Cache) *Resolver {
	filename = filepath.Clean(filename)
	return &Resolver{
		Filename:         filename,
		OriginalFilename: originalFilename(filename, opts.RelocatedFiles),
		opts:             opts,
		cache:            cache,
	}
}

// originalFilename follows relocation hops until it reaches a file that was not
// relocated. A file relocated twice is owned by the package it started in.
func originalFilename(filename string, relocated map[string]string) string {
	seen := map[string]bool{filename: true}
	for {
		original, ok := relocated[filename]
		if !ok || seen[original] {
			return filename
		}
		seen[original] = true
		filename = original
	}
}

// Resolve classifies the import specifier.
func (r *Resolver) Resolve(specifier string) (Resolution, error) {
	// the macros package is compiled away before this point
	if specifier == macros.MacrosPackage {
		return continueResolution(), nil
	}

	renamed, err := r.applyRenaming(specifier)
	if err != nil {
		return Resolution{}, err
	}
	res, err := r.classifyExternal(renamed)
	if err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			log.Errorf("resolve(%s in %s): %v", specifier, r.Filename, err)
		}
		return Resolution{}, err
	}
	if res.Kind == Continue && renamed != specifier {
		res = redirectTo(renamed)
	}
	log.Debugf("resolve(%s in %s): %s", specifier, r.Filename, res)
	return res, nil
}

// Owner returns the package that owns the file's original path, or nil.
func (r *Resolver) Owner() (*pkgcache.Package, error) {
	if !r.ownerLoaded {
		r.owner, r.ownerErr = r.cache.OwnerOfFile(r.OriginalFilename)
		if r.ownerErr != nil {
			r.ownerErr = fmt.Errorf("can not find the owner of %s: %w", r.OriginalFilename, r.ownerErr)
		}
		r.ownerLoaded = true
	}
	return r.owner, r.ownerErr
}

// RelocatedInto returns the package a relocated file was moved into, or nil when
// the file sits in its own package.
func (r *Resolver) RelocatedInto() (*pkgcache.Package, error) {
	if !r.destLoaded {
		r.destLoaded = true
		if r.OriginalFilename == r.Filename {
			return nil, nil
		}
		owner, err := r.Owner()
		if err != nil {
			r.destErr = err
			return nil, err
		}
		dest, err := r.cache.OwnerOfFile(r.Filename)
		if err != nil {
			r.destErr = fmt.Errorf("can not find the owner of %s: %w", r.Filename, err)
			return nil, r.destErr
		}
		if dest != nil && !dest.IsV2Ember() {
			r.destErr = fmt.Errorf("%s was relocated into %s which is not a v2 ember package", r.OriginalFilename, dest)
			return nil, r.destErr
		}
		if dest != owner {
			r.dest = dest
		}
	}
	return r.dest, r.destErr
}

func (r *Resolver) applyRenaming(specifier string) (string, error) {
	pkgName := npm.PackageName(specifier)
	if pkgName == "" {
		return specifier, nil
	}

	if replacement, ok := r.matchRenamedModule(specifier); ok {
		return replacement, nil
	}

	if renamed := r.opts.RenamePackages[pkgName]; renamed != "" {
		return npm.ReplacePackageName(specifier, pkgName, renamed), nil
	}

	pkg, err := r.Owner()
	if err != nil {
		return "", err
	}
	if pkg == nil || !pkg.IsV2Ember() {
		return specifier, nil
	}

	// only auto-upgraded packages get their self-imports resolved, native packages
	// must use relative imports
	if pkg.IsAutoUpgraded() && pkg.Name == pkgName {
		return npm.ReplacePackageName(specifier, pkgName, pkg.Root), nil
	}

	dest, err := r.RelocatedInto()
	if err != nil {
		return "", err
	}
	if dest != nil && pkg.IsAutoUpgraded() && dest.Name == pkgName {
		return npm.ReplacePackageName(specifier, pkgName, dest.Root), nil
	}
	return specifier, nil
}

func (r *Resolver) matchRenamedModule(specifier string) (string, bool) {
	if replacement, ok := r.opts.RenameModules[specifier]; ok {
		return replacement, true
	}
	for _, ext := range r.opts.ResolvableExtensions {
		if replacement, ok := r.opts.RenameModules[specifier+"/index"+ext]; ok {
			return replacement, true
		}
		if replacement, ok := r.opts.RenameModules[specifier+ext]; ok {
			return replacement, true
		}
	}
	return "", false
}

func (r *Resolver) classifyExternal(specifier string) (Resolution, error) {
	pkg, err := r.Owner()
	if err != nil {
		return Resolution{}, err
	}
	if pkg == nil || !pkg.IsV2Ember() {
		return continueResolution(), nil
	}

	pkgName := npm.PackageName(specifier)
	if pkgName == "" {
		// relative imports are only external when the package lists them
		absSpecifier := r.absolute(specifier)
		if isExplicitlyExternal(ExplicitRelative(pkg.Root, absSpecifier), pkg) {
			publicSpecifier := strings.Replace(filepath.ToSlash(absSpecifier), filepath.ToSlash(pkg.Root), pkg.Name, 1)
			return external(publicSpecifier), nil
		}
		return continueResolution(), nil
	}

	if isExplicitlyExternal(specifier, pkg) {
		return external(specifier), nil
	}

	// native packages must see the app's copies of the virtual peer deps, never
	// whatever v1 copies happen to be resolvable from their own location
	if !pkg.IsAutoUpgraded() && VirtualPeerDeps.Has(pkgName) {
		root := r.opts.ActiveAddons[pkgName]
		if root == "" {
			return Resolution{}, &ConfigError{Package: pkg.Name, Dependency: pkgName, Reason: MissingVirtualPeer}
		}
		return redirectTo(npm.ReplacePackageName(specifier, pkgName, root)), nil
	}

	dest, err := r.RelocatedInto()
	if err != nil {
		return Resolution{}, err
	}
	if dest != nil {
		target, err := r.isResolvable(pkgName, dest)
		if err != nil {
			return Resolution{}, err
		}
		if target != nil {
			if !pkg.IsAutoUpgraded() && pkgName != pkg.Name {
				return Resolution{}, &ConfigError{Package: pkg.Name, Dependency: pkgName, Reason: UnsafeAppTreeImport}
			}
			return continueResolution(), nil
		}
		target, err = r.isResolvable(pkgName, pkg)
		if err != nil {
			return Resolution{}, err
		}
		if target != nil {
			if !pkg.IsAutoUpgraded() && pkgName != pkg.Name {
				return Resolution{}, &ConfigError{Package: pkg.Name, Dependency: pkgName, Reason: UnsafeAppTreeImport}
			}
			// resolvable, but not from where the file sits now
			return redirectTo(npm.ReplacePackageName(specifier, pkgName, target.Root)), nil
		}
	} else {
		target, err := r.isResolvable(pkgName, pkg)
		if err != nil {
			return Resolution{}, err
		}
		if target != nil {
			if !pkg.IsAutoUpgraded() && !reliablyResolvable(pkg, pkgName) {
				return Resolution{}, &ConfigError{Package: pkg.Name, Dependency: pkgName, Reason: UndeclaredDependency}
			}
			return continueResolution(), nil
		}
	}

	// native packages may only use the active addons to find themselves
	if pkg.IsAutoUpgraded() || pkgName == pkg.Name {
		if root := r.opts.ActiveAddons[pkgName]; root != "" {
			return redirectTo(npm.ReplacePackageName(specifier, pkgName, root)), nil
		}
	}

	if pkg.IsAutoUpgraded() {
		return external(specifier), nil
	}
	if VirtualPackages.Has(pkgName) {
		return external(specifier), nil
	}

	// unresolvable, the bundler reports it
	return continueResolution(), nil
}

// isResolvable returns the package that name resolves to from the `from` package,
// or nil when it can not be statically resolved.
func (r *Resolver) isResolvable(name string, from *pkgcache.Package) (*pkgcache.Package, error) {
	dep, err := r.cache.Resolve(name, from)
	if err != nil {
		if errors.Is(err, pkgcache.ErrModuleNotFound) {
			return nil, nil
		}
		return nil, err
	}
	// classic addons can only import non-ember packages through ember-auto-import
	if !dep.IsEmberPackage() && from.IsAutoUpgraded() && !from.HasDependency("ember-auto-import") {
		return nil, nil
	}
	return dep, nil
}

func (r *Resolver) absolute(specifier string) string {
	if filepath.IsAbs(specifier) {
		return filepath.Clean(specifier)
	}
	return filepath.Join(filepath.Dir(r.Filename), filepath.FromSlash(specifier))
}

// reliablyResolvable rejects imports that only work by accident, like importing a
// dependency's dependency or the package's own name through monorepo symlinks.
func reliablyResolvable(pkg *pkgcache.Package, name string) bool {
	if pkg.HasDependency(name) {
		return true
	}
	if pkg.Name == name && pkg.HasExports() {
		return true
	}
	return VirtualPeerDeps.Has(name)
}

func isExplicitlyExternal(specifier string, pkg *pkgcache.Package) bool {
	return pkg.IsV2Addon() && pkg.Meta().HasExternal(specifier)
}

// ExplicitRelative returns the path of toFile relative to fromDir, always starting
// with `.` so it can never be mistaken for a package name.
func ExplicitRelative(fromDir string, toFile string) string {
	rel, err := filepath.Rel(fromDir, toFile)
	if err != nil {
		return filepath.ToSlash(toFile)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") && !strings.HasPrefix(rel, "/") {
		rel = "./" + rel
	}
	return rel
}

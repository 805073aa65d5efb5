// Package macros implements the build-time queries behind `moduleExists` and
// `dependencySatisfies`.
package macros

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/esm-dev/ember-resolver/internal/exports"
	"github.com/esm-dev/ember-resolver/internal/npm"
	"github.com/esm-dev/ember-resolver/internal/pkgcache"
)

// MacrosPackage is the package whose imports are consumed before module resolution.
const MacrosPackage = "@embroider/macros"

// ErrInvalidRange is returned by DependencySatisfies for a malformed version range.
var ErrInvalidRange = errors.New("invalid version range")

// moduleExtensions are tried in order when a specifier has no extension.
var moduleExtensions = []string{".js", ".json"}

// ModuleExists reports whether the specifier can be resolved from the file. A
// specifier that can not be found yields false; any other failure is returned.
func ModuleExists(cache *pkgcache.Cache, specifier string, fromFile string) (bool, error) {
	pkgName := npm.PackageName(specifier)
	if pkgName == "" {
		target := specifier
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(specifier))
		}
		return fileExists(target), nil
	}

	owner, err := cache.OwnerOfFile(fromFile)
	if err != nil {
		return false, err
	}
	if owner == nil {
		return false, nil
	}
	pkg, err := cache.Resolve(pkgName, owner)
	if err != nil {
		if errors.Is(err, pkgcache.ErrModuleNotFound) {
			return false, nil
		}
		return false, err
	}

	subPath := npm.SubPath(specifier)
	if pkg.HasExports() {
		target, ok := exports.Resolve(pkg.JSON.Exports, subPath, nil)
		if !ok {
			return false, nil
		}
		return fileExists(filepath.Join(pkg.Root, filepath.FromSlash(target))), nil
	}
	if subPath == "" {
		main := pkg.JSON.Main
		if main == "" {
			main = "index"
		}
		return fileExists(filepath.Join(pkg.Root, filepath.FromSlash(main))), nil
	}
	return fileExists(filepath.Join(pkg.Root, filepath.FromSlash(subPath))), nil
}

// DependencySatisfies reports whether the owner of fromFile declares packageName as a
// dependency and the installed version matches the range.
func DependencySatisfies(cache *pkgcache.Cache, packageName string, versionRange string, fromFile string) (bool, error) {
	constraint, err := semver.NewConstraint(versionRange)
	if err != nil {
		return false, fmt.Errorf("%w %q: %v", ErrInvalidRange, versionRange, err)
	}
	owner, err := cache.OwnerOfFile(fromFile)
	if err != nil {
		return false, err
	}
	if owner == nil || !owner.HasDependency(packageName) {
		return false, nil
	}
	dep, err := cache.Resolve(packageName, owner)
	if err != nil {
		if errors.Is(err, pkgcache.ErrModuleNotFound) {
			return false, nil
		}
		return false, err
	}
	version, err := semver.NewVersion(dep.Version)
	if err != nil {
		return false, fmt.Errorf("%s has an invalid version %q: %w", dep.Name, dep.Version, err)
	}
	return constraint.Check(version), nil
}

func fileExists(filename string) bool {
	candidates := []string{filename}
	for _, ext := range moduleExtensions {
		candidates = append(candidates, filename+ext)
	}
	for _, ext := range moduleExtensions {
		candidates = append(candidates, filepath.Join(filename, "index"+ext))
	}
	for _, candidate := range candidates {
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return true
		}
	}
	return false
}

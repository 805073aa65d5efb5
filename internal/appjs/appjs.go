// Package appjs emits the `_app_` re-export modules of a v2 addon and keeps the
// `ember-addon.app-js` table of its package.json in sync with them.
package appjs

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/esm-dev/ember-resolver/internal/npm"
	"github.com/esm-dev/ember-resolver/internal/storage"
	"github.com/goccy/go-json"
	logx "github.com/ije/gox/log"
)

var log = &logx.Logger{}

// SetLogger sets the logger of the appjs package.
func SetLogger(logger *logx.Logger) {
	log = logger
}

// Options configures re-export generation for one addon.
type Options struct {
	// PackageDir holds the addon's package.json.
	PackageDir string
	// Include lists globs of bundle filenames that get an app re-export.
	Include []string
	// MapFilename optionally renames a bundle file inside the app tree.
	MapFilename func(filename string) string
}

// Result is the outcome of one generation pass.
type Result struct {
	// Files maps `_app_/<file>` keys to module bodies, relative to the dist directory.
	Files map[string]string
	// AppJS is the new `app-js` table.
	AppJS map[string]string
	// Removed lists stale `_app_` files deleted from dist.
	Removed []string
	// Changed reports whether package.json was rewritten.
	Changed bool
}

// Generate computes the re-export modules for the given bundle filenames, writes
// them to dist, removes `_app_` files no bundle file maps to any more, and updates
// package.json when its `app-js` table changed.
func Generate(opts Options, bundle []string, dist storage.Storage) (*Result, error) {
	pkgFile := filepath.Join(opts.PackageDir, "package.json")
	data, err := os.ReadFile(pkgFile)
	if err != nil {
		return nil, err
	}
	var pkg npm.JSONObject
	if err := pkg.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%s: %w", pkgFile, err)
	}
	nameValue, _ := pkg.Get("name")
	name, _ := nameValue.(string)
	if name == "" {
		return nil, fmt.Errorf("%s: missing package name", pkgFile)
	}

	result := &Result{Files: map[string]string{}, AppJS: map[string]string{}}
	var appJS npm.JSONObject
	for _, addonFilename := range bundle {
		if !included(addonFilename, opts.Include) {
			continue
		}
		appFilename := addonFilename
		if opts.MapFilename != nil {
			appFilename = opts.MapFilename(addonFilename)
		}
		key := "_app_/" + appFilename
		result.Files[key] = "export { default } from \"" + name + "/" + stripExt(addonFilename) + "\";\n"
		result.AppJS["./"+appFilename] = "./dist/" + key
		appJS.Set("./"+appFilename, "./dist/"+key)
	}

	for _, key := range result.Keys() {
		if _, err := storage.PutIfChanged(dist, key, []byte(result.Files[key])); err != nil {
			return nil, err
		}
	}
	existing, err := dist.List("_app_/")
	if err != nil {
		return nil, err
	}
	for _, key := range existing {
		if _, ok := result.Files[key]; ok {
			continue
		}
		if err := dist.Delete(key); err != nil && err != storage.ErrNotFound {
			return nil, err
		}
		result.Removed = append(result.Removed, key)
	}

	var meta npm.JSONObject
	if v, ok := pkg.Get("ember-addon"); ok {
		if obj, ok := v.(npm.JSONObject); ok {
			meta = obj
		}
	}
	current, _ := meta.Get("app-js")
	if !hasChanges(current, result.AppJS) {
		return result, nil
	}

	meta.Set("app-js", appJS)
	pkg.Set("ember-addon", meta)
	out, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return nil, err
	}
	out = append(out, '\n')
	if err := os.WriteFile(pkgFile, out, 0644); err != nil {
		return nil, err
	}
	result.Changed = true
	log.Infof("appjs: updated app-js of %s (%d modules)", name, len(result.AppJS))
	return result, nil
}

func included(filename string, globs []string) bool {
	if ok, _ := doublestar.Match("**/*.d.ts", filename); ok {
		return false
	}
	for _, glob := range globs {
		if ok, _ := doublestar.Match(glob, filename); ok {
			return true
		}
	}
	return false
}

func stripExt(filename string) string {
	return filename[:len(filename)-len(path.Ext(filename))]
}

func hasChanges(current any, next map[string]string) bool {
	obj, ok := current.(npm.JSONObject)
	if !ok {
		return current != nil || len(next) > 0
	}
	if obj.Len() != len(next) {
		return true
	}
	for _, key := range obj.Keys() {
		v, _ := obj.Get(key)
		if s, ok := v.(string); !ok || next[key] != s {
			return true
		}
	}
	return false
}

// Keys returns the sorted `_app_` keys of the result.
func (r *Result) Keys() []string {
	keys := make([]string, 0, len(r.Files))
	for key := range r.Files {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

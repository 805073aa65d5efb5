// Package exports matches paths against the `exports` field of a package.json, in both
// directions: subpath to file, and file back to public specifier.
package exports

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/esm-dev/ember-resolver/internal/npm"
	"github.com/ije/gox/utils"
)

// DefaultConditions are the export conditions honored when none are given.
var DefaultConditions = []string{"browser", "import", "module", "default"}

// FindPathRecursively searches the exports value for a target path accepted by the
// matcher. It returns the closest enclosing `./` key, "." when the value is not
// nested under one.
func FindPathRecursively(exports any, matcher func(string) bool) (key string, value string, found bool, err error) {
	return findPath(exports, matcher, ".")
}

func findPath(exports any, matcher func(string) bool, key string) (string, string, bool, error) {
	switch v := exports.(type) {
	case string:
		if matcher(v) {
			return key, v, true, nil
		}
		return "", "", false, nil
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && matcher(s) {
				return key, s, true, nil
			}
		}
		return "", "", false, nil
	case npm.JSONObject:
		for _, candidateKey := range v.Keys() {
			candidate, _ := v.Get(candidateKey)
			nextKey := key
			if strings.HasPrefix(candidateKey, "./") {
				if key != "." {
					return "", "", false, fmt.Errorf("exports contains doubly nested path keys: %q and %q", key, candidateKey)
				}
				nextKey = candidateKey
			}
			k, value, ok, err := findPath(candidate, matcher, nextKey)
			if err != nil {
				return "", "", false, err
			}
			if ok {
				return k, value, true, nil
			}
		}
		return "", "", false, nil
	case nil:
		return "", "", false, nil
	}
	return "", "", false, fmt.Errorf("unexpected type of exports: %T", exports)
}

// Reverse maps a package-relative file path (like `./dist/foo.js`) back to the public
// specifier other packages import it by.
func Reverse(name string, exports any, relativePath string) (string, error) {
	if exports == nil {
		return path.Join(name, relativePath), nil
	}
	relativePath = normalizeSubpath(relativePath)

	key, value, ok, err := FindPathRecursively(exports, func(candidate string) bool {
		// a directory target stands for everything in it
		if strings.HasSuffix(candidate, "/") {
			candidate += "**"
		}
		matched, _ := doublestar.Match(candidate, relativePath)
		return matched
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return path.Join(name, relativePath), nil
	}

	inverted := npm.NewJSONObject([]string{value}, map[string]any{value: key})
	resolved, ok := Resolve(inverted, relativePath, nil)
	if !ok {
		return "", fmt.Errorf("%s: %s matches %q but can not be mapped back to %q", name, relativePath, value, key)
	}
	return name + strings.TrimPrefix(resolved, "."), nil
}

// Resolve maps a subpath (".", "./foo") to its target through the exports value,
// supporting exact keys, single `*` patterns, directory keys and condition objects.
func Resolve(exports any, subpath string, conditions []string) (string, bool) {
	if len(conditions) == 0 {
		conditions = DefaultConditions
	}
	subpath = normalizeSubpath(subpath)

	obj, isObject := exports.(npm.JSONObject)
	if !isObject || !hasSubpathKeys(obj) {
		// sugar form, the whole value is the "." entry
		if subpath != "." {
			return "", false
		}
		return resolveTarget(exports, "", conditions)
	}

	if target, ok := obj.Get(subpath); ok {
		return resolveTarget(target, "", conditions)
	}

	var (
		bestKey  string
		bestDiff string
	)
	for _, key := range obj.Keys() {
		if diff, ok := matchPattern(key, subpath); ok && len(key) > len(bestKey) {
			bestKey = key
			bestDiff = diff
		}
	}
	if bestKey == "" {
		return "", false
	}
	target, _ := obj.Get(bestKey)
	return resolveTarget(target, bestDiff, conditions)
}

func resolveTarget(target any, diff string, conditions []string) (string, bool) {
	switch v := target.(type) {
	case string:
		if strings.HasSuffix(v, "/") {
			return v + diff, true
		}
		return strings.ReplaceAll(v, "*", diff), true
	case []any:
		for _, item := range v {
			if s, ok := resolveTarget(item, diff, conditions); ok {
				return s, true
			}
		}
	case npm.JSONObject:
		for _, condition := range v.Keys() {
			if condition != "default" && !contains(conditions, condition) {
				continue
			}
			next, _ := v.Get(condition)
			if s, ok := resolveTarget(next, diff, conditions); ok {
				return s, true
			}
		}
	}
	return "", false
}

func matchPattern(key string, subpath string) (diff string, ok bool) {
	if strings.ContainsRune(key, '*') {
		prefix, suffix := utils.SplitByLastByte(key, '*')
		if strings.HasPrefix(subpath, prefix) && strings.HasSuffix(subpath, suffix) && len(subpath) >= len(prefix)+len(suffix) {
			return subpath[len(prefix) : len(subpath)-len(suffix)], true
		}
		return "", false
	}
	if strings.HasSuffix(key, "/") && strings.HasPrefix(subpath, key) {
		return strings.TrimPrefix(subpath, key), true
	}
	return "", false
}

func hasSubpathKeys(obj npm.JSONObject) bool {
	for _, key := range obj.Keys() {
		if strings.HasPrefix(key, ".") {
			return true
		}
	}
	return false
}

func normalizeSubpath(subpath string) string {
	if subpath == "" || subpath == "." {
		return "."
	}
	if !strings.HasPrefix(subpath, "./") {
		return "./" + strings.TrimPrefix(subpath, "/")
	}
	return subpath
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

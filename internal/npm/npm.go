package npm

import (
	"path/filepath"
	"strings"

	"github.com/ije/gox/utils"
	"github.com/ije/gox/valid"
)

var (
	Naming = valid.Validator{valid.Range{'a', 'z'}, valid.Range{'A', 'Z'}, valid.Range{'0', '9'}, valid.Eq('_'), valid.Eq('.'), valid.Eq('-'), valid.Eq('+'), valid.Eq('$'), valid.Eq('!')}
)

// ValidatePackageName validates the package name.
// based on https://github.com/npm/validate-npm-package-name
func ValidatePackageName(pkgName string) bool {
	if l := len(pkgName); l == 0 || l > 214 {
		return false
	}
	if strings.HasPrefix(pkgName, "@") {
		scope, name := utils.SplitByFirstByte(pkgName, '/')
		return Naming.Match(scope[1:]) && Naming.Match(name)
	}
	return Naming.Match(pkgName)
}

// PackageName returns the package name portion of the given import specifier.
// It returns an empty string for relative and absolute specifiers.
//
//	"lodash/get"       -> "lodash"
//	"@ember/component" -> "@ember/component"
//	"@ember/object/computed" -> "@ember/object"
//	"./util"           -> ""
func PackageName(specifier string) string {
	if specifier == "" || specifier[0] == '.' || isAbsPath(specifier) {
		return ""
	}
	if specifier[0] == '@' {
		scope, rest := utils.SplitByFirstByte(specifier, '/')
		name, _ := utils.SplitByFirstByte(rest, '/')
		if name == "" {
			return scope
		}
		return scope + "/" + name
	}
	name, _ := utils.SplitByFirstByte(specifier, '/')
	return name
}

// SubPath returns the specifier with its package name stripped, e.g. "lodash/get" -> "get".
func SubPath(specifier string) string {
	pkgName := PackageName(specifier)
	if pkgName == "" {
		return ""
	}
	return strings.TrimPrefix(strings.TrimPrefix(specifier, pkgName), "/")
}

// ReplacePackageName swaps the package name prefix of the specifier with the given replacement.
func ReplacePackageName(specifier string, pkgName string, replacement string) string {
	if !strings.HasPrefix(specifier, pkgName) {
		return specifier
	}
	return replacement + specifier[len(pkgName):]
}

func isAbsPath(s string) bool {
	return strings.HasPrefix(s, "/") || filepath.IsAbs(s)
}

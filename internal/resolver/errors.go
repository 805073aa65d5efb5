package resolver

import "fmt"

// Reason identifies which configuration rule an import broke.
type Reason uint8

const (
	// MissingVirtualPeer means the app does not supply a virtual peer dependency.
	MissingVirtualPeer Reason = iota + 1
	// UnsafeAppTreeImport means a relocated native package imports something it does
	// not control from the app tree.
	UnsafeAppTreeImport
	// UndeclaredDependency means a native package imports a dependency it does not
	// declare.
	UndeclaredDependency
)

func (r Reason) String() string {
	switch r {
	case MissingVirtualPeer:
		return "missing-virtual-peer"
	case UnsafeAppTreeImport:
		return "unsafe-app-tree-import"
	case UndeclaredDependency:
		return "undeclared-dependency"
	}
	return "unknown"
}

// ConfigError is a fatal build configuration error. It names the importing package
// and the offending dependency.
type ConfigError struct {
	Package    string
	Dependency string
	Reason     Reason
}

func (e *ConfigError) Error() string {
	switch e.Reason {
	case MissingVirtualPeer:
		return fmt.Sprintf("%s is trying to import the app's %s package, but it seems to be missing", e.Package, e.Dependency)
	case UnsafeAppTreeImport:
		return fmt.Sprintf("%s is trying to import %s from within its app tree. This is unsafe, because %s can't control which dependencies are resolvable from the app", e.Package, e.Dependency, e.Package)
	case UndeclaredDependency:
		return fmt.Sprintf("%s is trying to import from %s but that is not one of its explicit dependencies", e.Package, e.Dependency)
	}
	return fmt.Sprintf("%s: invalid import of %s", e.Package, e.Dependency)
}

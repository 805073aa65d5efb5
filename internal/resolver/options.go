package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/jsonc"
)

// DefaultResolvableExtensions is the extension list used when none is configured.
var DefaultResolvableExtensions = []string{".wasm", ".mjs", ".js", ".json", ".ts", ".hbs", ".hbs.js"}

// Options is the build-wide configuration snapshot handed to every Resolver of one
// compilation target. It must not be mutated once resolvers have been created.
type Options struct {
	RenamePackages       map[string]string `json:"renamePackages"`
	RenameModules        map[string]string `json:"renameModules"`
	ExtraImports         []ExtraImport     `json:"extraImports"`
	ExternalsDir         string            `json:"externalsDir"`
	ActiveAddons         map[string]string `json:"activeAddons"`
	RelocatedFiles       map[string]string `json:"relocatedFiles"`
	ResolvableExtensions []string          `json:"resolvableExtensions"`
	AppRoot              string            `json:"appRoot"`
	Engines              []EngineConfig    `json:"engines,omitempty"`
	EmberVersion         string            `json:"emberVersion,omitempty"`
	ModulePrefix         string            `json:"modulePrefix,omitempty"`
	PodModulePrefix      string            `json:"podModulePrefix,omitempty"`
}

// ExtraImport is an import forced into the file at AbsPath.
type ExtraImport struct {
	AbsPath     string `json:"absPath"`
	Target      string `json:"target"`
	RuntimeName string `json:"runtimeName,omitempty"`
}

// EngineConfig lists the addons visible to one engine, first listed wins.
type EngineConfig struct {
	PackageName  string        `json:"packageName"`
	Root         string        `json:"root"`
	ActiveAddons []ActiveAddon `json:"activeAddons"`
}

type ActiveAddon struct {
	Name string `json:"name"`
	Root string `json:"root"`
}

// LoadOptions reads resolver options from a JSON file. Comments and trailing commas
// are tolerated.
func LoadOptions(filename string) (*Options, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("fail to read resolver options: %w", err)
	}
	var opts Options
	if err := json.Unmarshal(jsonc.ToJSON(data), &opts); err != nil {
		return nil, fmt.Errorf("fail to parse resolver options: %w", err)
	}
	if err := opts.Normalize(filepath.Dir(filename)); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Normalize fills empty tables and makes every path absolute, relative to baseDir.
func (opts *Options) Normalize(baseDir string) error {
	if opts.RenamePackages == nil {
		opts.RenamePackages = map[string]string{}
	}
	if opts.RenameModules == nil {
		opts.RenameModules = map[string]string{}
	}
	if opts.ActiveAddons == nil {
		opts.ActiveAddons = map[string]string{}
	}
	if len(opts.ResolvableExtensions) == 0 {
		opts.ResolvableExtensions = DefaultResolvableExtensions
	}
	if opts.AppRoot == "" {
		return fmt.Errorf("resolver options: appRoot is required")
	}
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(baseDir, p)
	}
	opts.AppRoot = abs(opts.AppRoot)
	if opts.ExternalsDir != "" {
		opts.ExternalsDir = abs(opts.ExternalsDir)
	}
	relocated := make(map[string]string, len(opts.RelocatedFiles))
	for current, original := range opts.RelocatedFiles {
		relocated[abs(current)] = abs(original)
	}
	opts.RelocatedFiles = relocated
	for i := range opts.ExtraImports {
		opts.ExtraImports[i].AbsPath = abs(opts.ExtraImports[i].AbsPath)
	}
	for name, root := range opts.ActiveAddons {
		opts.ActiveAddons[name] = abs(root)
	}
	for i := range opts.Engines {
		e := &opts.Engines[i]
		e.Root = abs(e.Root)
		for j := range e.ActiveAddons {
			e.ActiveAddons[j].Root = abs(e.ActiveAddons[j].Root)
		}
	}
	return nil
}

// EngineFor returns the engine whose root most closely contains filename.
func (opts *Options) EngineFor(filename string) (*EngineConfig, bool) {
	var found *EngineConfig
	for i := range opts.Engines {
		e := &opts.Engines[i]
		if isWithin(filename, e.Root) && (found == nil || len(e.Root) > len(found.Root)) {
			found = e
		}
	}
	return found, found != nil
}

// ExtraImportsFor returns the forced imports registered for filename.
func (opts *Options) ExtraImportsFor(filename string) []ExtraImport {
	var imports []ExtraImport
	for _, imp := range opts.ExtraImports {
		if imp.AbsPath == filename {
			imports = append(imports, imp)
		}
	}
	return imports
}

// FindAddon returns the root of the first listed addon with the given name.
func (e *EngineConfig) FindAddon(name string) (string, bool) {
	for _, addon := range e.ActiveAddons {
		if addon.Name == name {
			return addon.Root, true
		}
	}
	return "", false
}

func isWithin(filename string, dir string) bool {
	dir = filepath.Clean(dir)
	return filename == dir || strings.HasPrefix(filename, dir+string(filepath.Separator))
}

// Package bundler plugs the resolver into esbuild so that external imports are served
// from runtime shims and redirects are resolved by esbuild itself.
package bundler

import (
	"errors"
	"path/filepath"

	"github.com/esm-dev/ember-resolver/internal/pkgcache"
	"github.com/esm-dev/ember-resolver/internal/resolver"
	"github.com/esm-dev/ember-resolver/internal/rewrite"
	"github.com/esm-dev/ember-resolver/internal/shim"
	"github.com/evanw/esbuild/pkg/api"
	logx "github.com/ije/gox/log"
)

// ExternalNamespace is the esbuild namespace of generated shim modules.
const ExternalNamespace = "ember-external"

var log = &logx.Logger{}

// SetLogger sets the logger of the bundler package.
func SetLogger(logger *logx.Logger) {
	log = logger
}

// resolving marks the nested esbuild resolve of a redirect so it is not resolved again.
type resolving struct{}

// Plugin returns an esbuild plugin resolving every import of the build through the
// resolver. The auditor may be nil.
func Plugin(opts *resolver.Options, cache *pkgcache.Cache, shims *shim.Cache, auditor rewrite.Auditor) api.Plugin {
	return api.Plugin{
		Name: "ember-resolver",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if _, ok := args.PluginData.(resolving); ok {
					return api.OnResolveResult{}, nil
				}
				if args.Kind == api.ResolveEntryPoint || args.Importer == "" || args.Namespace != "file" {
					return api.OnResolveResult{}, nil
				}
				res, err := resolver.New(args.Importer, opts, cache).Resolve(args.Path)
				if auditor != nil {
					auditor.Record(args.Importer, args.Path, res, err)
				}
				if err != nil {
					return api.OnResolveResult{}, err
				}
				switch res.Kind {
				case resolver.External:
					return api.OnResolveResult{Path: res.Specifier, Namespace: ExternalNamespace}, nil
				case resolver.RedirectTo:
					resolveDir := args.ResolveDir
					if resolveDir == "" {
						resolveDir = filepath.Dir(args.Importer)
					}
					ret := build.Resolve(res.Specifier, api.ResolveOptions{
						Importer:   args.Importer,
						ResolveDir: resolveDir,
						Kind:       args.Kind,
						PluginData: resolving{},
					})
					if len(ret.Errors) > 0 {
						return api.OnResolveResult{}, errors.New(ret.Errors[0].Text)
					}
					return api.OnResolveResult{
						Path:      ret.Path,
						Namespace: ret.Namespace,
						External:  ret.External,
						Suffix:    ret.Suffix,
					}, nil
				}
				return api.OnResolveResult{}, nil
			})
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: ExternalNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				code, err := shims.Get(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				return api.OnLoadResult{Contents: &code, Loader: api.LoaderJS}, nil
			})
		},
	}
}

// Options configures a bundle.
type Options struct {
	EntryPoints []string
	Outdir      string
	Minify      bool
	Sourcemap   bool
	// Write puts the output files on disk instead of only returning them.
	Write bool
}

// BuildError carries the esbuild error messages of a failed bundle.
type BuildError struct {
	Messages []api.Message
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 0 {
		return "bundle failed"
	}
	msg := e.Messages[0]
	if msg.Location != nil {
		return msg.Location.File + ": " + msg.Text
	}
	return msg.Text
}

// Bundle builds the entry points with the resolver plugin.
func Bundle(o Options, plugin api.Plugin) ([]api.OutputFile, error) {
	sourcemap := api.SourceMapNone
	if o.Sourcemap {
		sourcemap = api.SourceMapLinked
	}
	result := api.Build(api.BuildOptions{
		EntryPoints:       o.EntryPoints,
		Outdir:            o.Outdir,
		Bundle:            true,
		Write:             o.Write,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		Target:            api.ES2020,
		MinifyWhitespace:  o.Minify,
		MinifyIdentifiers: o.Minify,
		MinifySyntax:      o.Minify,
		Sourcemap:         sourcemap,
		LogLevel:          api.LogLevelSilent,
		Loader: map[string]api.Loader{
			".hbs": api.LoaderText,
		},
		Plugins: []api.Plugin{plugin},
	})
	if len(result.Errors) > 0 {
		return nil, &BuildError{Messages: result.Errors}
	}
	for _, w := range result.Warnings {
		log.Warnf("bundle: %s", w.Text)
	}
	return result.OutputFiles, nil
}

package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/esm-dev/ember-resolver/internal/appjs"
	"github.com/esm-dev/ember-resolver/internal/audit"
	"github.com/esm-dev/ember-resolver/internal/bundler"
	"github.com/esm-dev/ember-resolver/internal/compat"
	"github.com/esm-dev/ember-resolver/internal/config"
	"github.com/esm-dev/ember-resolver/internal/pkgcache"
	"github.com/esm-dev/ember-resolver/internal/resolver"
	"github.com/esm-dev/ember-resolver/internal/rewrite"
	"github.com/esm-dev/ember-resolver/internal/storage"
	"github.com/ije/gox/log"
	"github.com/ije/gox/term"
)

const defaultConfigFile = "resolver.config.json"

var configFile = flag.String("config", "", "the config file path")

// parseCommandFlags parses the flags after the command name. Flags and positional
// arguments may be mixed.
func parseCommandFlags() (args []string, help bool) {
	var flags []string
	rawArgs := os.Args[2:]
	for i := 0; i < len(rawArgs); i++ {
		arg := rawArgs[i]
		if arg == "-h" || arg == "--help" {
			help = true
			continue
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			args = append(args, arg)
			continue
		}
		flags = append(flags, arg)
		if !strings.Contains(arg, "=") && !isBoolFlag(arg) && i+1 < len(rawArgs) {
			i++
			flags = append(flags, rawArgs[i])
		}
	}
	if err := flag.CommandLine.Parse(flags); err != nil {
		help = true
	}
	return
}

func isBoolFlag(arg string) bool {
	f := flag.CommandLine.Lookup(strings.TrimLeft(arg, "-"))
	if f == nil {
		return true
	}
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// project is the state shared by the commands of one app.
type project struct {
	cfg    *config.Config
	opts   *resolver.Options
	cache  *pkgcache.Cache
	logger *log.Logger
}

func loadConfig() (*config.Config, error) {
	filename := *configFile
	if filename == "" {
		if fi, err := os.Stat(defaultConfigFile); err == nil && !fi.IsDir() {
			filename = defaultConfigFile
		}
	}
	if filename != "" {
		return config.Load(filename)
	}
	return config.Default()
}

func newLogger(level string) *log.Logger {
	logger := &log.Logger{}
	logger.SetLevelByName(level)
	resolver.SetLogger(logger)
	rewrite.SetLogger(logger)
	bundler.SetLogger(logger)
	appjs.SetLogger(logger)
	audit.SetLogger(logger)
	storage.SetLogger(logger)
	return logger
}

func loadProject() (*project, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	p := &project{
		cfg:    cfg,
		cache:  pkgcache.New(cfg.AppRoot),
		logger: newLogger(cfg.LogLevel),
	}
	if cfg.ResolverOptions != "" {
		p.opts, err = resolver.LoadOptions(cfg.ResolverOptions)
	} else {
		p.opts, err = compatOptions(p.cache)
	}
	if err != nil {
		return nil, err
	}
	if p.opts.ExternalsDir == "" {
		p.opts.ExternalsDir = cfg.ExternalsDir
	}
	return p, nil
}

// compatOptions computes the resolver options of an app without lazy engines.
func compatOptions(cache *pkgcache.Cache) (*resolver.Options, error) {
	pkg, err := cache.App()
	if err != nil {
		return nil, err
	}
	app := compat.NewApp(pkg)
	app.ModulePrefix = pkg.Name
	addons, err := app.AllActiveAddons()
	if err != nil {
		return nil, err
	}
	opts, err := app.ResolverConfig([]compat.Engine{{
		Package:  pkg,
		DestPath: pkg.Root,
		Addons:   addons,
	}})
	if err != nil {
		return nil, err
	}
	return opts, opts.Normalize(pkg.Root)
}

func (p *project) openAudit() (*audit.DB, error) {
	if err := os.MkdirAll(p.cfg.WorkDir, 0755); err != nil {
		return nil, err
	}
	return audit.Open(p.cfg.AuditDB)
}

func (p *project) externals() (storage.Storage, error) {
	return storage.Open("fs:" + p.opts.ExternalsDir)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, term.Red("✖︎"), err.Error())
	os.Exit(1)
}

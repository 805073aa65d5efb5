package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/esm-dev/ember-resolver/internal/bundler"
	"github.com/esm-dev/ember-resolver/internal/rewrite"
	"github.com/esm-dev/ember-resolver/internal/shim"
	"github.com/ije/gox/term"
)

const bundleHelpMessage = `Bundle entries with esbuild, resolving imports like embroider does

Usage: ember-resolver bundle [...entries] [options]

Arguments:
  ...entries     Entry point files

Options:
  --outdir       Output directory, default is "dist"
  --minify       Minify the output
  --sourcemap    Emit linked source maps
  --audit        Record every resolution in the audit database
  --help, -h     Show help message
`

// Bundle bundles the entry points.
func Bundle() {
	outdir := flag.String("outdir", "dist", "the output directory")
	minify := flag.Bool("minify", false, "minify the output")
	sourcemap := flag.Bool("sourcemap", false, "emit source maps")
	withAudit := flag.Bool("audit", false, "record every resolution")
	entries, help := parseCommandFlags()
	if help || len(entries) == 0 {
		fmt.Print(bundleHelpMessage)
		return
	}

	p, err := loadProject()
	if err != nil {
		fail(err)
	}
	for i, entry := range entries {
		entries[i], err = filepath.Abs(entry)
		if err != nil {
			fail(err)
		}
	}
	shims, err := shim.NewCache(p.cfg.ShimCacheSize, *minify)
	if err != nil {
		fail(err)
	}
	var auditor rewrite.Auditor
	if *withAudit {
		db, err := p.openAudit()
		if err != nil {
			fail(err)
		}
		defer db.Close()
		auditor = db
	}

	files, err := bundler.Bundle(bundler.Options{
		EntryPoints: entries,
		Outdir:      *outdir,
		Minify:      *minify,
		Sourcemap:   *sourcemap,
		Write:       true,
	}, bundler.Plugin(p.opts, p.cache, shims, auditor))
	if err != nil {
		fmt.Fprintln(os.Stderr, term.Red("✖︎"), err.Error())
		os.Exit(1)
	}
	for _, file := range files {
		fmt.Println(term.Green("✔"), file.Path, term.Dim(fmt.Sprintf("(%d bytes)", len(file.Contents))))
	}
	if shims.Len() > 0 {
		fmt.Println(term.Dim(fmt.Sprintf("%d external modules", shims.Len())))
	}
}

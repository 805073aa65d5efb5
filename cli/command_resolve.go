package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/esm-dev/ember-resolver/internal/npm"
	"github.com/esm-dev/ember-resolver/internal/resolver"
	"github.com/goccy/go-json"
	"github.com/ije/gox/term"
)

const resolveHelpMessage = `Print how an import of a file is resolved

Usage: ember-resolver resolve [file] [specifier] [options]

Arguments:
  file         The importing file
  specifier    The import specifier

Options:
  --json       Print the resolution as JSON
  --help, -h   Show help message
`

// Resolve prints the resolution of one import.
func Resolve() {
	asJSON := flag.Bool("json", false, "print the resolution as JSON")
	args, help := parseCommandFlags()
	if help || len(args) != 2 {
		fmt.Print(resolveHelpMessage)
		return
	}

	p, err := loadProject()
	if err != nil {
		fail(err)
	}
	filename, err := filepath.Abs(args[0])
	if err != nil {
		fail(err)
	}
	r := resolver.New(filename, p.opts, p.cache)
	res, err := r.Resolve(args[1])
	if err != nil {
		var cerr *resolver.ConfigError
		if errors.As(err, &cerr) {
			fmt.Fprintln(os.Stderr, term.Red("✖︎"), term.Dim("["+cerr.Reason.String()+"]"), err.Error())
			os.Exit(1)
		}
		fail(err)
	}

	if *asJSON {
		data, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(data))
		return
	}
	owner, _ := r.Owner()
	if owner != nil {
		fmt.Println(term.Dim("owner: " + owner.String()))
	}
	if dest, _ := r.RelocatedInto(); dest != nil {
		fmt.Println(term.Dim("relocated into: " + dest.String()))
	}
	if engine, ok := p.opts.EngineFor(filename); ok {
		line := "engine: " + engine.PackageName
		if root, ok := engine.FindAddon(npm.PackageName(args[1])); ok {
			line += " (addon at " + root + ")"
		}
		fmt.Println(term.Dim(line))
	}
	switch res.Kind {
	case resolver.Continue:
		fmt.Println(term.Green("continue"))
	case resolver.RedirectTo:
		fmt.Println(term.Cyan("redirect-to"), res.Specifier)
	case resolver.External:
		fmt.Println(term.Yellow("external"), res.Specifier)
	}
}

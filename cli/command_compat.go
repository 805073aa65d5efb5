package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/esm-dev/ember-resolver/internal/pkgcache"
	"github.com/goccy/go-json"
	"github.com/ije/gox/term"
)

const compatHelpMessage = `Compute the resolver options from the addons installed in the app

Usage: ember-resolver compat [options]

Options:
  --out          Write the options to the given file instead of stdout
  --help, -h     Show help message
`

// Compat prints the resolver options computed from the installed addons.
func Compat() {
	out := flag.String("out", "", "the output file")
	_, help := parseCommandFlags()
	if help {
		fmt.Print(compatHelpMessage)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fail(err)
	}
	newLogger(cfg.LogLevel)
	opts, err := compatOptions(pkgcache.New(cfg.AppRoot))
	if err != nil {
		fail(err)
	}
	opts.ExternalsDir = cfg.ExternalsDir

	data, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		fail(err)
	}
	data = append(data, '\n')
	if *out == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		fail(err)
	}
	fmt.Println(term.Green("✔"), "Resolver options written to", *out, term.Dim(fmt.Sprintf("(%d active addons)", len(opts.ActiveAddons))))
}

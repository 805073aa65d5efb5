package cli

import (
	"flag"
	"fmt"

	"github.com/esm-dev/ember-resolver/internal/shim"
	"github.com/ije/gox/term"
)

const shimHelpMessage = `Print or write the shims of external modules

Usage: ember-resolver shim [...names] [options]

Examples:
  ember-resolver shim @ember/component         ` + "\033[30m # print the shim \033[0m" + `
  ember-resolver shim --write rsvp jquery      ` + "\033[30m # write to the externals directory \033[0m" + `
  ember-resolver shim                          ` + "\033[30m # list written shims \033[0m" + `

Arguments:
  ...names       Runtime module names

Options:
  --write        Write the shims to the externals directory
  --minify       Minify the shims
  --help, -h     Show help message
`

// Shim prints, writes or lists external shims.
func Shim() {
	write := flag.Bool("write", false, "write the shims")
	minify := flag.Bool("minify", false, "minify the shims")
	names, help := parseCommandFlags()
	if help {
		fmt.Print(shimHelpMessage)
		return
	}

	if len(names) > 0 && !*write {
		for _, name := range names {
			code := shim.Generate(name)
			if *minify {
				var err error
				code, err = shim.Minify(code)
				if err != nil {
					fail(err)
				}
			}
			fmt.Print(code)
		}
		return
	}

	p, err := loadProject()
	if err != nil {
		fail(err)
	}
	s, err := p.externals()
	if err != nil {
		fail(err)
	}
	cache, err := shim.NewCache(p.cfg.ShimCacheSize, *minify || p.cfg.MinifyShims)
	if err != nil {
		fail(err)
	}
	w := shim.NewWriter(s, cache)

	if len(names) == 0 {
		list, err := w.List()
		if err != nil {
			fail(err)
		}
		for _, name := range list {
			fmt.Println(name)
		}
		return
	}
	for _, name := range names {
		key, written, err := w.Write(name)
		if err != nil {
			fail(err)
		}
		if written {
			fmt.Println(term.Green("✔"), key)
		} else {
			fmt.Println(term.Dim("✔ " + key + " (unchanged)"))
		}
	}
}

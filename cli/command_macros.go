package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/esm-dev/ember-resolver/internal/macros"
	"github.com/goccy/go-json"
	"github.com/ije/gox/term"
)

const macrosHelpMessage = `Evaluate a build-time macro as seen from a file

Usage: ember-resolver macros [file] module-exists [specifier] [options]
       ember-resolver macros [file] dependency-satisfies [package] [range] [options]

Options:
  --json       Print the result as JSON
  --help, -h   Show help message
`

// Macros evaluates `moduleExists` or `dependencySatisfies` for a file.
func Macros() {
	asJSON := flag.Bool("json", false, "print the result as JSON")
	args, help := parseCommandFlags()
	if help || len(args) < 3 {
		fmt.Print(macrosHelpMessage)
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

	var ok bool
	switch args[1] {
	case "module-exists":
		ok, err = macros.ModuleExists(p.cache, args[2], filename)
	case "dependency-satisfies":
		if len(args) != 4 {
			fmt.Print(macrosHelpMessage)
			os.Exit(1)
		}
		ok, err = macros.DependencySatisfies(p.cache, args[2], args[3], filename)
	default:
		fmt.Print(macrosHelpMessage)
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}

	if *asJSON {
		data, _ := json.Marshal(map[string]bool{"result": ok})
		fmt.Println(string(data))
		return
	}
	if ok {
		fmt.Println(term.Green("true"))
	} else {
		fmt.Println(term.Red("false"))
	}
}

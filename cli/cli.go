package cli

import (
	"fmt"
	"os"
)

const VERSION = "v0.4.0"

const helpMessage = "\033[30member-resolver - Module resolution for embroider builds.\033[0m" + `

Usage: ember-resolver [command] [options]

Commands:
  resolve [file] [specifier]  Print how an import of the file is resolved
  rewrite [...files]          Rewrite the imports of the given files
  bundle [...entries]         Bundle entries with esbuild and the resolver
  shim [...names]             Print or write external shims
  compat                      Compute the resolver options from installed addons
  appjs [addon-dir]           Generate the app re-exports of a v2 addon
  macros [file] [macro] ...   Evaluate module-exists or dependency-satisfies
  audit [summary|list|reset]  Inspect recorded resolver decisions
  serve                       Start the resolver debug server

Options:
  --config       Config file, default is "resolver.config.json" if present
  --version, -v  Show the version
  --help, -h     Display this help message
`

// Run dispatches the command line.
func Run() {
	if len(os.Args) < 2 {
		fmt.Print(helpMessage)
		return
	}
	switch command := os.Args[1]; command {
	case "resolve":
		Resolve()
	case "rewrite":
		Rewrite()
	case "bundle":
		Bundle()
	case "shim":
		Shim()
	case "compat":
		Compat()
	case "appjs":
		AppJS()
	case "macros":
		Macros()
	case "audit":
		Audit()
	case "serve":
		Serve()
	case "version":
		fmt.Println("ember-resolver " + VERSION)
	default:
		for _, arg := range os.Args[1:] {
			if arg == "--version" {
				fmt.Println("ember-resolver " + VERSION)
				return
			}
			if arg == "-v" {
				fmt.Println(VERSION)
				return
			}
		}
		fmt.Print(helpMessage)
	}
}

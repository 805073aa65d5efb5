package cli

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/esm-dev/ember-resolver/internal/appjs"
	"github.com/esm-dev/ember-resolver/internal/storage"
	"github.com/ije/gox/term"
)

const appjsHelpMessage = `Generate the app re-exports of a v2 addon from its built files

Usage: ember-resolver appjs [addon-dir] [options]

Arguments:
  addon-dir      Directory of the addon, default is current directory

Options:
  --dist         Build output directory inside the addon, default is "dist"
  --include      Comma separated globs of files to re-export,
                 default is "components/**/*.js,helpers/**/*.js,modifiers/**/*.js,services/**/*.js"
  --help, -h     Show help message
`

// AppJS writes the `_app_` re-exports of an addon and updates its package.json.
func AppJS() {
	dist := flag.String("dist", "dist", "the build output directory")
	include := flag.String("include", "components/**/*.js,helpers/**/*.js,modifiers/**/*.js,services/**/*.js", "globs of files to re-export")
	args, help := parseCommandFlags()
	if help {
		fmt.Print(appjsHelpMessage)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fail(err)
	}
	newLogger(cfg.LogLevel)

	addonDir := "."
	if len(args) > 0 {
		addonDir = args[0]
	}
	addonDir, err = filepath.Abs(addonDir)
	if err != nil {
		fail(err)
	}
	s, err := storage.Open("fs:" + filepath.Join(addonDir, *dist))
	if err != nil {
		fail(err)
	}
	files, err := s.List("")
	if err != nil {
		fail(err)
	}
	// previous re-exports are not part of the bundle
	bundle := make([]string, 0, len(files))
	for _, file := range files {
		if !strings.HasPrefix(file, "_app_/") {
			bundle = append(bundle, file)
		}
	}

	res, err := appjs.Generate(appjs.Options{
		PackageDir: addonDir,
		Include:    strings.Split(*include, ","),
	}, bundle, s)
	if err != nil {
		fail(err)
	}
	fmt.Println(term.Green("✔"), fmt.Sprintf("%d app re-exports", len(res.Files)))
	if len(res.Removed) > 0 {
		fmt.Println(term.Green("✔"), fmt.Sprintf("%d stale re-exports removed", len(res.Removed)))
	}
	if res.Changed {
		fmt.Println(term.Green("✔"), "package.json updated")
	}
}

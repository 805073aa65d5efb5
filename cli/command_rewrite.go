package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/esm-dev/ember-resolver/internal/rewrite"
	"github.com/esm-dev/ember-resolver/internal/shim"
	"github.com/ije/gox/set"
	"github.com/ije/gox/term"
)

const rewriteHelpMessage = `Rewrite the imports of the given files

Usage: ember-resolver rewrite [...files] [options]

Examples:
  ember-resolver rewrite src/app.js          ` + "\033[30m # print the rewritten code \033[0m" + `
  ember-resolver rewrite --write src/**/*.js ` + "\033[30m # rewrite in place \033[0m" + `

Arguments:
  ...files       Files to rewrite

Options:
  --write        Write the rewritten files and their shims
  --audit        Record every resolution in the audit database
  --help, -h     Show help message
`

type rewriteResult struct {
	filename string
	result   *rewrite.Result
	err      error
}

// Rewrite rewrites the imports of the given files.
func Rewrite() {
	write := flag.Bool("write", false, "write the rewritten files")
	withAudit := flag.Bool("audit", false, "record every resolution")
	files, help := parseCommandFlags()
	if help || len(files) == 0 {
		fmt.Print(rewriteHelpMessage)
		return
	}

	p, err := loadProject()
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
	rw := rewrite.New(p.opts, p.cache, auditor)

	results := make([]rewriteResult, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file string) {
			defer wg.Done()
			filename, err := filepath.Abs(file)
			if err != nil {
				results[i] = rewriteResult{filename: file, err: err}
				return
			}
			code, err := os.ReadFile(filename)
			if err != nil {
				results[i] = rewriteResult{filename: filename, err: err}
				return
			}
			res, err := rw.Rewrite(filename, string(code))
			results[i] = rewriteResult{filename: filename, result: res, err: err}
		}(i, file)
	}
	wg.Wait()

	externals := set.New[string]()
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintln(os.Stderr, term.Red("✖︎"), r.err.Error())
			continue
		}
		for _, name := range r.result.Externals {
			externals.Add(name)
		}
		if !*write {
			if len(files) > 1 {
				fmt.Println(term.Dim("// " + r.filename))
			}
			fmt.Print(r.result.Code)
			continue
		}
		if r.result.Changed {
			if err := os.WriteFile(r.filename, []byte(r.result.Code), 0644); err != nil {
				fail(err)
			}
			fmt.Println(term.Green("✔"), r.filename)
		}
	}

	if *write && externals.Len() > 0 {
		s, err := p.externals()
		if err != nil {
			fail(err)
		}
		cache, err := shim.NewCache(p.cfg.ShimCacheSize, p.cfg.MinifyShims)
		if err != nil {
			fail(err)
		}
		w := shim.NewWriter(s, cache)
		names := externals.Values()
		sort.Strings(names)
		for _, name := range names {
			if _, written, err := w.Write(name); err != nil {
				fail(err)
			} else if written {
				fmt.Println(term.Green("✔"), term.Dim("shim"), name)
			}
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

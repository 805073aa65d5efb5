package cli

import (
	"fmt"
	"sort"

	"github.com/esm-dev/ember-resolver/internal/resolver"
	"github.com/ije/gox/term"
)

const auditHelpMessage = `Inspect the resolver decisions recorded with --audit

Usage: ember-resolver audit [summary|list|reset] [prefix] [options]

Commands:
  summary        Count the recorded imports (default)
  list [prefix]  List the recorded imports of files under prefix
  reset          Remove every record

Options:
  --help, -h     Show help message
`

// Audit inspects the audit database.
func Audit() {
	args, help := parseCommandFlags()
	if help {
		fmt.Print(auditHelpMessage)
		return
	}

	p, err := loadProject()
	if err != nil {
		fail(err)
	}
	db, err := p.openAudit()
	if err != nil {
		fail(err)
	}
	defer db.Close()

	command := "summary"
	if len(args) > 0 {
		command = args[0]
	}
	switch command {
	case "summary":
		s, err := db.Summary()
		if err != nil {
			fail(err)
		}
		fmt.Printf("%d imports in %d files\n", s.Imports, s.Files)
		kinds := make([]resolver.Kind, 0, len(s.ByKind))
		for kind := range s.ByKind {
			kinds = append(kinds, kind)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, kind := range kinds {
			fmt.Printf("  %-12s %d\n", kind, s.ByKind[kind])
		}
		if s.Errors > 0 {
			fmt.Println(term.Red(fmt.Sprintf("  %-12s %d", "errors", s.Errors)))
		}
		if len(s.Externals) > 0 {
			fmt.Println(term.Dim("externals:"))
			for _, name := range s.Externals {
				fmt.Println("  " + name)
			}
		}
	case "list":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		records, err := db.List(prefix)
		if err != nil {
			fail(err)
		}
		for _, rec := range records {
			if rec.Error != "" {
				fmt.Println(rec.File, rec.Specifier, term.Red(rec.Error))
			} else if rec.Target != "" {
				fmt.Println(rec.File, rec.Specifier, term.Dim(rec.Kind.String()), rec.Target)
			} else {
				fmt.Println(rec.File, rec.Specifier, term.Dim(rec.Kind.String()))
			}
		}
	case "reset":
		if err := db.Reset(); err != nil {
			fail(err)
		}
		fmt.Println(term.Green("✔"), "Audit records removed")
	default:
		fmt.Print(auditHelpMessage)
	}
}

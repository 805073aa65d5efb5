// Package rewrite applies resolver decisions to the import statements of a source
// file.
package rewrite

import (
	"errors"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/esm-dev/ember-resolver/internal/pkgcache"
	"github.com/esm-dev/ember-resolver/internal/resolver"
	"github.com/goccy/go-json"
	"github.com/ije/esbuild-internal/ast"
	esbConfig "github.com/ije/esbuild-internal/config"
	"github.com/ije/esbuild-internal/js_parser"
	"github.com/ije/esbuild-internal/logger"
	logx "github.com/ije/gox/log"
)

var log = &logx.Logger{}

// SetLogger sets the logger of the rewrite package.
func SetLogger(logger *logx.Logger) {
	log = logger
}

// Auditor receives one call per resolved import.
type Auditor interface {
	Record(filename string, specifier string, res resolver.Resolution, err error)
}

// Rewriter rewrites the imports of the files of one compilation target.
type Rewriter struct {
	opts    *resolver.Options
	cache   *pkgcache.Cache
	auditor Auditor
}

// New creates a rewriter. The auditor may be nil.
func New(opts *resolver.Options, cache *pkgcache.Cache, auditor Auditor) *Rewriter {
	return &Rewriter{opts: opts, cache: cache, auditor: auditor}
}

// Result is a rewritten file.
type Result struct {
	Code string
	// Externals are the runtime module names the file now imports through shims.
	Externals []string
	Changed   bool
}

type edit struct {
	start int
	end   int
	text  string
}

// Rewrite resolves every import of the file and returns the rewritten code.
func (rw *Rewriter) Rewrite(filename string, code string) (*Result, error) {
	filename = filepath.Clean(filename)
	records, err := parseImports(filename, code)
	if err != nil {
		return nil, err
	}

	r := resolver.New(filename, rw.opts, rw.cache)
	externals := map[string]bool{}
	resolve := func(specifier string) (string, error) {
		res, err := r.Resolve(specifier)
		if rw.auditor != nil {
			rw.auditor.Record(filename, specifier, res, err)
		}
		if err != nil {
			return "", err
		}
		switch res.Kind {
		case resolver.External:
			externals[res.Specifier] = true
			return rw.externalPath(filename, res.Specifier), nil
		case resolver.RedirectTo:
			if filepath.IsAbs(res.Specifier) {
				return resolver.ExplicitRelative(filepath.Dir(filename), res.Specifier), nil
			}
			return res.Specifier, nil
		}
		return specifier, nil
	}

	var edits []edit
	for _, record := range records {
		specifier := record.Path.Text
		replacement, err := resolve(specifier)
		if err != nil {
			return nil, err
		}
		if replacement != specifier {
			edits = append(edits, edit{
				start: int(record.Range.Loc.Start),
				end:   int(record.Range.End()),
				text:  jsString(replacement),
			})
		}
	}

	var prelude strings.Builder
	for i, imp := range rw.opts.ExtraImportsFor(filename) {
		target, err := resolve(imp.Target)
		if err != nil {
			return nil, err
		}
		if imp.RuntimeName == "" {
			prelude.WriteString("import " + jsString(target) + ";\n")
		} else {
			local := "__extra_" + strconv.Itoa(i) + "__"
			prelude.WriteString("import * as " + local + " from " + jsString(target) + ";\n")
			prelude.WriteString("window.define(" + jsString(imp.RuntimeName) + ", function () { return " + local + "; });\n")
		}
	}

	result := &Result{Code: code}
	if len(edits) > 0 || prelude.Len() > 0 {
		result.Code = prelude.String() + applyEdits(code, edits)
		result.Changed = true
	}
	for name := range externals {
		result.Externals = append(result.Externals, name)
	}
	sort.Strings(result.Externals)
	log.Debugf("rewrite(%s): %d edits, %d externals", filename, len(edits), len(result.Externals))
	return result, nil
}

func (rw *Rewriter) externalPath(filename string, specifier string) string {
	dir := rw.opts.ExternalsDir
	if dir == "" {
		dir = filepath.Join(rw.opts.AppRoot, "node_modules", ".embroider", "externals")
	}
	return resolver.ExplicitRelative(filepath.Dir(filename), filepath.Join(dir, filepath.FromSlash(specifier)))
}

func parseImports(filename string, code string) ([]ast.ImportRecord, error) {
	log := logger.NewDeferLog(logger.DeferLogNoVerboseOrDebug, nil)
	parserOpts := js_parser.OptionsFromConfig(&esbConfig.Options{
		JSX: esbConfig.JSXOptions{
			Parse: endsWith(filename, ".jsx", ".tsx"),
		},
		TS: esbConfig.TSOptions{
			Parse: endsWith(filename, ".ts", ".mts", ".cts", ".tsx"),
		},
	})
	tree, pass := js_parser.Parse(log, logger.Source{
		Index:          0,
		KeyPath:        logger.Path{Text: filename},
		PrettyPath:     filepath.Base(filename),
		Contents:       code,
		IdentifierName: "stdin",
	}, parserOpts)
	if !pass {
		msg := "invalid syntax"
		if msgs := log.Done(); len(msgs) > 0 {
			msg = msgs[0].Data.Text
		}
		return nil, &SyntaxError{Filename: filename, Message: msg}
	}

	records := make([]ast.ImportRecord, 0, len(tree.ImportRecords))
	for _, record := range tree.ImportRecords {
		switch record.Kind {
		case ast.ImportStmt, ast.ImportDynamic, ast.ImportRequire:
		default:
			continue
		}
		start, end := int(record.Range.Loc.Start), int(record.Range.End())
		// records injected by the parser have no source text
		if end-start < 2 || end > len(code) || !isQuote(code[start]) {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Range.Loc.Start < records[j].Range.Loc.Start
	})
	return records, nil
}

// SyntaxError is returned when the file can not be parsed.
type SyntaxError struct {
	Filename string
	Message  string
}

func (e *SyntaxError) Error() string {
	return "rewrite " + e.Filename + ": " + e.Message
}

// IsSyntaxError reports whether err is a parse failure.
func IsSyntaxError(err error) bool {
	var serr *SyntaxError
	return errors.As(err, &serr)
}

func applyEdits(code string, edits []edit) string {
	var b strings.Builder
	last := 0
	for _, e := range edits {
		b.WriteString(code[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.WriteString(code[last:])
	return b.String()
}

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}

func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func endsWith(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

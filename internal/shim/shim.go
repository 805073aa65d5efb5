// Package shim generates the modules that stand in for external imports. Each shim
// looks its module up in the runtime AMD loader and re-exports it.
package shim

import (
	"bytes"
	"text/template"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
)

var shimTemplate = template.Must(template.New("external").Funcs(template.FuncMap{
	"jsString": jsString,
}).Parse(`{{if eq .ModuleName "require"}}const m = window.requirejs;
{{else}}const m = window.require({{jsString .ModuleName}});
{{end}}if (m.default && !m.__esModule) {
  m.__esModule = true;
}
module.exports = m;
`))

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// Generate returns the shim module body for the runtime module name.
func Generate(moduleName string) string {
	var buf bytes.Buffer
	// the template only fails on write errors, which bytes.Buffer never returns
	shimTemplate.Execute(&buf, struct{ ModuleName string }{moduleName})
	return buf.String()
}

// Minify returns the minified form of a generated shim.
func Minify(code string) (string, error) {
	ret := api.Transform(code, api.TransformOptions{
		Loader:            api.LoaderJS,
		Format:            api.FormatCommonJS,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: false,
		Target:            api.ES2020,
	})
	if len(ret.Errors) > 0 {
		return "", &TransformError{Message: ret.Errors[0].Text}
	}
	return string(ret.Code), nil
}

type TransformError struct {
	Message string
}

func (e *TransformError) Error() string {
	return "esbuild: " + e.Message
}

// Cache keeps recently generated shim bodies.
type Cache struct {
	minify bool
	lru    *lru.Cache[string, string]
}

// NewCache creates a cache holding at most size shims.
func NewCache(size int, minify bool) (*Cache, error) {
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cache{minify: minify, lru: c}, nil
}

// Get returns the shim for the module name, generating it on a miss.
func (c *Cache) Get(moduleName string) (string, error) {
	if code, ok := c.lru.Get(moduleName); ok {
		return code, nil
	}
	code := Generate(moduleName)
	if c.minify {
		var err error
		code, err = Minify(code)
		if err != nil {
			return "", err
		}
	}
	c.lru.Add(moduleName, code)
	return code, nil
}

// Len returns the number of cached shims.
func (c *Cache) Len() int {
	return c.lru.Len()
}

package shim

import (
	"strings"
	"testing"

	"github.com/esm-dev/ember-resolver/internal/storage"
)

func TestGenerate(t *testing.T) {
	code := Generate("@ember/component")
	want := `const m = window.require("@ember/component");
if (m.default && !m.__esModule) {
  m.__esModule = true;
}
module.exports = m;
`
	if code != want {
		t.Fatalf("unexpected shim:\n%s", code)
	}

	code = Generate("require")
	if !strings.HasPrefix(code, "const m = window.requirejs;\n") || strings.Contains(code, "window.require(") {
		t.Fatalf("the require shim should alias the loader itself:\n%s", code)
	}

	code = Generate(`we"ird\name`)
	if !strings.Contains(code, `window.require("we\"ird\\name")`) {
		t.Fatalf("module names should be escaped:\n%s", code)
	}
}

func TestMinify(t *testing.T) {
	code, err := Minify(Generate("rsvp"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(code, "\n") > 1 || !strings.Contains(code, `window.require("rsvp")`) || !strings.Contains(code, "module.exports") {
		t.Fatalf("unexpected minified shim: %s", code)
	}
	if _, err := Minify("const = ;"); err == nil {
		t.Fatal("invalid code should fail")
	}
}

func TestCache(t *testing.T) {
	c, err := NewCache(2, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b", "a", "c"} {
		code, err := c.Get(name)
		if err != nil {
			t.Fatal(err)
		}
		if code != Generate(name) {
			t.Fatalf("unexpected shim for %s", name)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("cache should be bounded, got %d entries", c.Len())
	}
}

func TestWriter(t *testing.T) {
	s, err := storage.NewFSStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	w := NewWriter(s, nil)

	key, written, err := w.Write("@ember/component")
	if err != nil || !written || key != "@ember/component.js" {
		t.Fatalf("unexpected write result %s %v %v", key, written, err)
	}
	if _, written, _ = w.Write("@ember/component"); written {
		t.Fatal("an unchanged shim should not be rewritten")
	}
	if _, _, err := w.Write("jquery"); err != nil {
		t.Fatal(err)
	}

	names, err := w.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("unexpected shims %v", names)
	}
}

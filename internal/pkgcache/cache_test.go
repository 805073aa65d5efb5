package pkgcache

import (
	"errors"
	"sync"
	"testing"

	"github.com/esm-dev/ember-resolver/internal/fixture"
)

func TestOwnerOfFile(t *testing.T) {
	p := fixture.New(t)
	p.Package("app", fixture.V2App("my-app", "foo"))
	p.Package("app/node_modules/foo", fixture.V2Addon("foo", nil))
	p.Package("app/node_modules/@scope/bar", fixture.Plain("@scope/bar"))

	cache := New(p.Path("app"))

	tests := []struct {
		file string
		want string
	}{
		{"app/src/components/a.js", "my-app"},
		{"app/index.js", "my-app"},
		{"app/node_modules/foo/dist/deep/b.js", "foo"},
		{"app/node_modules/@scope/bar/index.js", "@scope/bar"},
	}
	for _, tt := range tests {
		pkg, err := cache.OwnerOfFile(p.Path(tt.file))
		if err != nil {
			t.Fatal(err)
		}
		if pkg == nil || pkg.Name != tt.want {
			t.Fatalf("owner of %s should be %s, got %v", tt.file, tt.want, pkg)
		}
	}

	// cached lookups return the very same package
	a, _ := cache.OwnerOfFile(p.Path("app/src/x.js"))
	b, _ := cache.OwnerOfFile(p.Path("app/src/y.js"))
	if a != b {
		t.Fatal("owner lookups should share the cached package")
	}
	if !a.IsApp() || !a.IsV2App() || !a.IsEmberPackage() {
		t.Fatal("app predicates are wrong")
	}

	none, err := cache.OwnerOfFile("/definitely/not/a/package/file.js")
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatalf("expected no owner, got %v", none)
	}
}

func TestResolve(t *testing.T) {
	p := fixture.New(t)
	p.Package("app", fixture.V2App("my-app", "foo", "lodash"))
	p.Package("app/node_modules/foo", fixture.V2Addon("foo", fixture.Manifest{"auto-upgraded": true}, "lodash"))
	p.Package("app/node_modules/foo/node_modules/lodash", fixture.Plain("lodash"))
	p.Package("app/node_modules/lodash", fixture.Plain("lodash"))

	cache := New(p.Path("app"))
	app, err := cache.App()
	if err != nil {
		t.Fatal(err)
	}
	foo, err := cache.Resolve("foo", app)
	if err != nil {
		t.Fatal(err)
	}
	if foo.Root != p.Path("app/node_modules/foo") || !foo.IsV2Addon() || !foo.IsAutoUpgraded() {
		t.Fatalf("unexpected foo %+v", foo)
	}

	nested, err := cache.Resolve("lodash", foo)
	if err != nil {
		t.Fatal(err)
	}
	if nested.Root != p.Path("app/node_modules/foo/node_modules/lodash") {
		t.Fatalf("nearest node_modules should win, got %s", nested.Root)
	}
	top, _ := cache.Resolve("lodash", app)
	if top.Root != p.Path("app/node_modules/lodash") {
		t.Fatalf("unexpected lodash root %s", top.Root)
	}
	if top.IsEmberPackage() {
		t.Fatal("lodash is not an ember package")
	}

	_, err = cache.Resolve("missing", foo)
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
	// the negative result is cached too
	_, err = cache.Resolve("missing", foo)
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestResolveMalformedManifest(t *testing.T) {
	p := fixture.New(t)
	p.Package("app", fixture.V2App("my-app", "broken"))
	p.File("app/node_modules/broken/package.json", `{"name": "broken", `)

	cache := New(p.Path("app"))
	app, err := cache.App()
	if err != nil {
		t.Fatal(err)
	}
	_, err = cache.Resolve("broken", app)
	if err == nil || errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("a malformed manifest must not look like a missing module, got %v", err)
	}
}

func TestResolveSymlinked(t *testing.T) {
	p := fixture.New(t)
	p.Package("app", fixture.V2App("my-app", "shared"))
	p.Package("packages/shared", fixture.V2Addon("shared", nil))
	p.Symlink("packages/shared", "app/node_modules/shared")

	cache := New(p.Path("app"))
	app, _ := cache.App()
	shared, err := cache.Resolve("shared", app)
	if err != nil {
		t.Fatal(err)
	}
	if shared.Root != p.Path("packages/shared") {
		t.Fatalf("symlinked packages should be identified by their real root, got %s", shared.Root)
	}
	owner, _ := cache.OwnerOfFile(p.Path("packages/shared/index.js"))
	if owner != shared {
		t.Fatal("real path owner lookups should share the resolved package")
	}
}

func TestDependenciesAndDescendants(t *testing.T) {
	p := fixture.New(t)
	app := fixture.V2App("my-app", "a", "lodash")
	app["devDependencies"] = fixture.Deps("dev-addon", "not-installed")
	p.Package("app", app)
	p.Package("app/node_modules/a", fixture.V2Addon("a", nil, "b"))
	p.Package("app/node_modules/b", fixture.V2Addon("b", nil, "c"))
	p.Package("app/node_modules/c", fixture.Plain("c", "d"))
	p.Package("app/node_modules/d", fixture.V2Addon("d", nil))
	p.Package("app/node_modules/lodash", fixture.Plain("lodash"))
	p.Package("app/node_modules/dev-addon", fixture.V2Addon("dev-addon", nil))

	cache := New(p.Path("app"))
	root, _ := cache.App()

	deps, err := root.Dependencies()
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, d := range deps {
		names[d.Name] = true
	}
	if !names["a"] || !names["lodash"] || !names["dev-addon"] || len(deps) != 3 {
		t.Fatalf("unexpected app dependencies %v", names)
	}

	a, _ := cache.Resolve("a", root)
	aDeps, _ := a.Dependencies()
	if len(aDeps) != 1 || aDeps[0].Name != "b" {
		t.Fatalf("non-app packages do not include dev dependencies, got %v", aDeps)
	}

	descendants, err := root.FindDescendants(func(p *Package) bool { return p.IsEmberPackage() })
	if err != nil {
		t.Fatal(err)
	}
	found := map[string]bool{}
	for _, d := range descendants {
		found[d.Name] = true
	}
	// "d" is only reachable through the non-ember package "c"
	if !found["a"] || !found["b"] || !found["dev-addon"] || found["c"] || found["d"] || found["lodash"] {
		t.Fatalf("unexpected descendants %v", found)
	}
}

func TestConcurrentLookups(t *testing.T) {
	p := fixture.New(t)
	p.Package("app", fixture.V2App("my-app", "foo"))
	p.Package("app/node_modules/foo", fixture.V2Addon("foo", nil))

	cache := New(p.Path("app"))
	app, _ := cache.App()

	var wg sync.WaitGroup
	results := make([]*Package, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results[i], _ = cache.Resolve("foo", app)
			} else {
				results[i], _ = cache.OwnerOfFile(p.Path("app/node_modules/foo/index.js"))
			}
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		if r == nil || r != results[0] {
			t.Fatal("concurrent lookups should converge to one cached package")
		}
	}
}

func TestHasExports(t *testing.T) {
	p := fixture.New(t)
	tests := []struct {
		dir     string
		exports any
		want    bool
	}{
		{"none", nil, false},
		{"empty", "", false},
		{"sugar", "./index.js", true},
		{"map", fixture.Manifest{".": "./index.js"}, true},
	}
	cache := New(p.Path("app"))
	for _, tt := range tests {
		manifest := fixture.Plain(tt.dir)
		if tt.exports != nil {
			manifest["exports"] = tt.exports
		}
		pkg, err := cache.Get(p.Package(tt.dir, manifest))
		if err != nil {
			t.Fatal(err)
		}
		if got := pkg.HasExports(); got != tt.want {
			t.Errorf("HasExports(%s) = %v, want %v", tt.dir, got, tt.want)
		}
	}
}

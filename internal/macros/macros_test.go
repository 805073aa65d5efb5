package macros

import (
	"errors"
	"testing"

	"github.com/esm-dev/ember-resolver/internal/fixture"
	"github.com/esm-dev/ember-resolver/internal/pkgcache"
)

func TestModuleExists(t *testing.T) {
	p := fixture.New(t)
	p.Package("app", fixture.V2App("my-app", "lodash", "exported", "broken"))
	lodash := fixture.Plain("lodash")
	lodash["main"] = "lib/index.js"
	p.Package("app/node_modules/lodash", lodash)
	p.File("app/node_modules/lodash/lib/index.js", "")
	p.File("app/node_modules/lodash/get.js", "")
	exported := fixture.V2Addon("exported", nil)
	exported["exports"] = fixture.Manifest{".": "./dist/index.js", "./*": "./dist/*.js"}
	p.Package("app/node_modules/exported", exported)
	p.File("app/node_modules/exported/dist/index.js", "")
	p.File("app/node_modules/exported/dist/thing.js", "")
	p.File("app/node_modules/exported/secret.js", "")
	p.File("app/node_modules/broken/package.json", "{")
	p.File("app/src/util/index.js", "")
	from := p.File("app/src/app.js", "")

	cache := pkgcache.New(p.Path("app"))
	tests := []struct {
		specifier string
		want      bool
	}{
		{"lodash", true},
		{"lodash/get", true},
		{"lodash/set", false},
		{"exported", true},
		{"exported/thing", true},
		{"exported/secret", false},
		{"missing-package", false},
		{"./util", true},
		{"./app.js", true},
		{"./nope", false},
	}
	for _, tt := range tests {
		got, err := ModuleExists(cache, tt.specifier, from)
		if err != nil {
			t.Fatalf("ModuleExists(%s): %v", tt.specifier, err)
		}
		if got != tt.want {
			t.Errorf("ModuleExists(%s) = %v, want %v", tt.specifier, got, tt.want)
		}
	}

	if _, err := ModuleExists(cache, "broken", from); err == nil {
		t.Fatal("a malformed manifest should be reported")
	}
}

func TestDependencySatisfies(t *testing.T) {
	p := fixture.New(t)
	app := fixture.V2App("my-app", "ember-source", "lodash")
	app["devDependencies"] = fixture.Deps("ember-beta")
	p.Package("app", app)
	source := fixture.Plain("ember-source")
	source["version"] = "3.28.4"
	p.Package("app/node_modules/ember-source", source)
	beta := fixture.Plain("ember-beta")
	beta["version"] = "3.24.0-beta.2"
	p.Package("app/node_modules/ember-beta", beta)
	old := fixture.Plain("old-thing")
	old["version"] = "1.0.0"
	p.Package("app/node_modules/old-thing", old)
	from := p.File("app/src/app.js", "")

	cache := pkgcache.New(p.Path("app"))
	tests := []struct {
		name string
		rng  string
		want bool
	}{
		{"ember-source", ">=3.24.0-canary || >=3.24.0-beta", true},
		{"ember-source", "^3.28.0", true},
		{"ember-source", "<3.0.0", false},
		{"ember-beta", ">=3.24.0-canary || >=3.24.0-beta", true},
		// installed but not a declared dependency
		{"old-thing", "*", false},
		{"lodash", "*", false},
	}
	for _, tt := range tests {
		got, err := DependencySatisfies(cache, tt.name, tt.rng, from)
		if err != nil {
			t.Fatalf("DependencySatisfies(%s, %s): %v", tt.name, tt.rng, err)
		}
		if got != tt.want {
			t.Errorf("DependencySatisfies(%s, %s) = %v, want %v", tt.name, tt.rng, got, tt.want)
		}
	}

	if _, err := DependencySatisfies(cache, "ember-source", "not a range", from); !errors.Is(err, ErrInvalidRange) {
		t.Fatal("should fail on an invalid range")
	}
}

package npm

import (
	"encoding/json"
	"testing"
)

func TestPackageName(t *testing.T) {
	tests := []struct {
		specifier string
		want      string
	}{
		{"lodash", "lodash"},
		{"lodash/get", "lodash"},
		{"@ember/component", "@ember/component"},
		{"@ember/object/computed", "@ember/object"},
		{"@scope", "@scope"},
		{"./util", ""},
		{"../util", ""},
		{".", ""},
		{"/pkgs/foo/thing", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := PackageName(tt.specifier); got != tt.want {
			t.Errorf("PackageName(%q) = %q, want %q", tt.specifier, got, tt.want)
		}
	}
}

func TestReplacePackageName(t *testing.T) {
	if s := ReplacePackageName("foo/thing", "foo", "/pkgs/foo"); s != "/pkgs/foo/thing" {
		t.Fatalf("unexpected %q", s)
	}
	if s := ReplacePackageName("@a/b/c", "@a/b", "@x/y"); s != "@x/y/c" {
		t.Fatalf("unexpected %q", s)
	}
	if s := ReplacePackageName("bar", "foo", "/pkgs/foo"); s != "bar" {
		t.Fatalf("unexpected %q", s)
	}
	if s := SubPath("@a/b/c/d"); s != "c/d" {
		t.Fatalf("unexpected %q", s)
	}
}

func TestValidatePackageName(t *testing.T) {
	for _, name := range []string{"react", "@ember/component", "ember-cli-fastboot", "a.b"} {
		if !ValidatePackageName(name) {
			t.Errorf("%q should be valid", name)
		}
	}
	for _, name := range []string{"", "a b", "@scope/a b", "ä"} {
		if ValidatePackageName(name) {
			t.Errorf("%q should be invalid", name)
		}
	}
}

func TestPackageJSON(t *testing.T) {
	data := []byte(`{
		"name": "my-addon",
		"version": "1.2.3",
		"keywords": ["ember-addon"],
		"dependencies": {"lodash": "^4.0.0", "broken": 1},
		"devDependencies": {"ember-source": "~4.12.0"},
		"peerDependencies": {"@glimmer/component": "*"},
		"exports": {
			"./*": "./dist/*.js",
			".": "./dist/index.js",
			"./addon-main.js": "./addon-main.js"
		},
		"ember-addon": {
			"version": 2,
			"type": "addon",
			"auto-upgraded": true,
			"renamed-packages": {"old-name": "my-addon"},
			"renamed-modules": {"old-name/index.js": "my-addon/index.js"},
			"externals": ["./util", "jquery"],
			"order-index": 3
		}
	}`)

	var p PackageJSON
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "my-addon" || p.Version != "1.2.3" {
		t.Fatalf("unexpected name/version %s@%s", p.Name, p.Version)
	}
	if !p.HasKeyword("ember-addon") {
		t.Fatal("missing ember-addon keyword")
	}
	if len(p.Dependencies) != 1 || p.Dependencies["lodash"] != "^4.0.0" {
		t.Fatalf("unexpected dependencies %v", p.Dependencies)
	}
	if !p.DependsOn("ember-source") || !p.DependsOn("@glimmer/component") || p.DependsOn("broken") {
		t.Fatal("unexpected DependsOn result")
	}
	exports, ok := p.Exports.(JSONObject)
	if !ok {
		t.Fatalf("exports should be an object, got %T", p.Exports)
	}
	keys := exports.Keys()
	if len(keys) != 3 || keys[0] != "./*" || keys[1] != "." || keys[2] != "./addon-main.js" {
		t.Fatalf("exports keys should keep their order, got %v", keys)
	}
	meta := p.EmberAddon
	if meta == nil || meta.Version != 2 || meta.Type != "addon" || !meta.AutoUpgraded || meta.OrderIndex != 3 {
		t.Fatalf("unexpected ember-addon meta %+v", meta)
	}
	if meta.RenamedPackages["old-name"] != "my-addon" || meta.RenamedModules["old-name/index.js"] != "my-addon/index.js" {
		t.Fatalf("unexpected rename tables %+v", meta)
	}
	if !meta.HasExternal("./util") || meta.HasExternal("./other") {
		t.Fatal("unexpected externals")
	}
}

func TestPackageJSONExportsSugar(t *testing.T) {
	var p PackageJSON
	if err := json.Unmarshal([]byte(`{"name":"a","exports":"./index.js"}`), &p); err != nil {
		t.Fatal(err)
	}
	if s, ok := p.Exports.(string); !ok || s != "./index.js" {
		t.Fatalf("unexpected exports %v", p.Exports)
	}

	var q PackageJSON
	if err := json.Unmarshal([]byte(`{"name":"b"}`), &q); err != nil {
		t.Fatal(err)
	}
	if q.Exports != nil || q.EmberAddon != nil {
		t.Fatal("exports and ember-addon should be nil")
	}

	var r PackageJSON
	if err := json.Unmarshal([]byte(`{"name":"c","ember-addon":{"version":"two"}}`), &r); err == nil {
		t.Fatal("should fail on a malformed ember-addon block")
	}
}

func TestJSONObjectKeyOrder(t *testing.T) {
	var obj JSONObject
	err := json.Unmarshal([]byte(`{"./b":"./b.js","./a":{"import":"./a.mjs","default":"./a.js"}}`), &obj)
	if err != nil {
		t.Fatal(err)
	}
	if keys := obj.Keys(); len(keys) != 2 || keys[0] != "./b" || keys[1] != "./a" {
		t.Fatalf("unexpected keys %v", keys)
	}
	obj.Set("./c", "./c.js")
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"./b":"./b.js","./a":{"import":"./a.mjs","default":"./a.js"},"./c":"./c.js"}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

package resolver

import "github.com/ije/gox/set"

// VirtualPeerDeps are ecosystem packages always supplied by the host app rather than
// installed as ordinary dependencies.
var VirtualPeerDeps = set.NewReadOnly(
	"@glimmer/component",
	"ember-cli-fastboot",
)

// VirtualPackages are packages the runtime loader always provides.
var VirtualPackages = set.NewReadOnly(
	"@ember/application",
	"@ember/array",
	"@ember/canary-features",
	"@ember/component",
	"@ember/controller",
	"@ember/debug",
	"@ember/destroyable",
	"@ember/engine",
	"@ember/enumerable",
	"@ember/error",
	"@ember/helper",
	"@ember/instrumentation",
	"@ember/modifier",
	"@ember/object",
	"@ember/owner",
	"@ember/polyfills",
	"@ember/routing",
	"@ember/runloop",
	"@ember/service",
	"@ember/string",
	"@ember/template",
	"@ember/template-compilation",
	"@ember/template-factory",
	"@ember/test",
	"@ember/utils",
	"@ember/version",
	"@ember/-internals",
	"@glimmer/env",
	"@glimmer/manager",
	"@glimmer/reference",
	"@glimmer/runtime",
	"@glimmer/tracking",
	"@glimmer/validator",
	"@embroider/macros",
	"ember",
	"ember-testing",
	"jquery",
	"require",
	"rsvp",
)

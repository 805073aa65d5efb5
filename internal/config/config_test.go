package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "resolver.config.json")
	err := os.WriteFile(filename, []byte(`{
  // the app lives next to the config
  "appRoot": "./app",
  "port": 9000,
  "resolverOptions": "node_modules/.embroider/resolver.json",
  "externalsDir": "externals",
}`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORK_DIR", "")
	t.Setenv("AUDIT_DB", "")

	cfg, err := Load(filename)
	if err != nil {
		t.Fatal(err)
	}
	app := filepath.Join(dir, "app")
	if cfg.AppRoot != app || cfg.Port != 9000 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ResolverOptions != filepath.Join(app, "node_modules", ".embroider", "resolver.json") {
		t.Fatalf("unexpected resolver options path %s", cfg.ResolverOptions)
	}
	if cfg.ExternalsDir != filepath.Join(app, "externals") {
		t.Fatalf("unexpected externals dir %s", cfg.ExternalsDir)
	}
	if cfg.WorkDir != filepath.Join(app, "node_modules", ".embroider") || cfg.AuditDB != filepath.Join(cfg.WorkDir, "audit.db") {
		t.Fatalf("unexpected work dir %+v", cfg)
	}
	if cfg.LogLevel != "debug" || cfg.ShimCacheSize != DefaultShimCacheSize {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("a missing file should fail")
	}
	filename := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(filename, []byte(`{"port": "nope"}`), 0644)
	if _, err := Load(filename); err == nil {
		t.Fatal("a malformed config should fail")
	}
}

func TestDefaultFromEnv(t *testing.T) {
	app := t.TempDir()
	work := t.TempDir()
	t.Setenv("APP_ROOT", app)
	t.Setenv("WORK_DIR", work)
	t.Setenv("PORT", "9100")
	t.Setenv("AUDIT_DB", filepath.Join(work, "decisions.db"))
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_DIR", "")
	t.Setenv("EXTERNALS_DIR", "")

	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AppRoot != app || cfg.WorkDir != work || cfg.Port != 9100 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.AuditDB != filepath.Join(work, "decisions.db") || cfg.ExternalsDir != filepath.Join(work, "externals") {
		t.Fatalf("unexpected paths %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.LogDir != filepath.Join(work, "log") {
		t.Fatalf("unexpected log settings %+v", cfg)
	}

	t.Setenv("PORT", "not-a-port")
	if _, err := Default(); err == nil {
		t.Fatal("an invalid PORT should fail")
	}
}

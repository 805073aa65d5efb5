package audit

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/esm-dev/ember-resolver/internal/resolver"
)

func openTestDB(t *testing.T) *DB {
	db, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndGet(t *testing.T) {
	db := openTestDB(t)
	db.Record("/app/src/a.js", "@ember/component", resolver.Resolution{Kind: resolver.External, Specifier: "@ember/component"}, nil)
	db.Record("/app/src/a.js", "dep-b", resolver.Resolution{}, errors.New("undeclared"))
	if err := db.Err(); err != nil {
		t.Fatal(err)
	}

	rec, err := db.Get("/app/src/a.js", "@ember/component")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.Kind != resolver.External || rec.Target != "@ember/component" || rec.Time.IsZero() {
		t.Fatalf("unexpected record %+v", rec)
	}
	rec, _ = db.Get("/app/src/a.js", "dep-b")
	if rec == nil || rec.Error != "undeclared" {
		t.Fatalf("unexpected record %+v", rec)
	}
	rec, err = db.Get("/app/src/a.js", "missing")
	if err != nil || rec != nil {
		t.Fatalf("a missing record should be nil, got %+v %v", rec, err)
	}

	// a second decision for the same import replaces the first
	db.Record("/app/src/a.js", "dep-b", resolver.Resolution{Kind: resolver.Continue}, nil)
	rec, _ = db.Get("/app/src/a.js", "dep-b")
	if rec.Error != "" {
		t.Fatalf("the record should have been replaced: %+v", rec)
	}
}

func TestListAndSummary(t *testing.T) {
	db := openTestDB(t)
	puts := []Record{
		{File: "/app/src/b.js", Specifier: "./x", Kind: resolver.Continue},
		{File: "/app/src/a.js", Specifier: "rsvp", Kind: resolver.External, Target: "rsvp"},
		{File: "/app/src/a.js", Specifier: "@ember/debug", Kind: resolver.External, Target: "@ember/debug"},
		{File: "/app/src/b.js", Specifier: "rsvp", Kind: resolver.External, Target: "rsvp"},
		{File: "/app/node_modules/foo/index.js", Specifier: "old", Kind: resolver.RedirectTo, Target: "new"},
		{File: "/app/node_modules/foo/index.js", Specifier: "bad", Error: "boom"},
	}
	for _, rec := range puts {
		if err := db.Put(rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := db.List("/app/src/")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if records[0].File != "/app/src/a.js" || records[0].Specifier != "@ember/debug" || records[3].Specifier != "rsvp" {
		t.Fatalf("records should be ordered by file then specifier: %+v", records)
	}

	s, err := db.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if s.Files != 3 || s.Imports != 6 || s.Errors != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.ByKind[resolver.External] != 3 || s.ByKind[resolver.RedirectTo] != 1 || s.ByKind[resolver.Continue] != 1 {
		t.Fatalf("unexpected counts %v", s.ByKind)
	}
	if len(s.Externals) != 2 || s.Externals[0] != "@ember/debug" || s.Externals[1] != "rsvp" {
		t.Fatalf("unexpected externals %v", s.Externals)
	}

	if err := db.Reset(); err != nil {
		t.Fatal(err)
	}
	records, _ = db.List("")
	if len(records) != 0 {
		t.Fatalf("reset should remove every record, got %d", len(records))
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	db.Record("/app/a.js", "rsvp", resolver.Resolution{Kind: resolver.External, Specifier: "rsvp"}, nil)
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	rec, _ := db.Get("/app/a.js", "rsvp")
	if rec == nil {
		t.Fatal("records should survive a reopen")
	}
}

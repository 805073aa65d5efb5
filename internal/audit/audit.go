// Package audit persists resolver decisions in a bolt database so a build can be
// inspected after the fact.
package audit

import (
	"bytes"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/esm-dev/ember-resolver/internal/resolver"
	"github.com/goccy/go-json"
	logx "github.com/ije/gox/log"
	bolt "go.etcd.io/bbolt"
)

var recordsBucket = []byte("records")

var log = &logx.Logger{}

// SetLogger sets the logger of the audit package.
func SetLogger(logger *logx.Logger) {
	log = logger
}

// Record is one resolved import.
type Record struct {
	File      string        `json:"file"`
	Specifier string        `json:"specifier"`
	Kind      resolver.Kind `json:"kind"`
	Target    string        `json:"target,omitempty"`
	Error     string        `json:"error,omitempty"`
	Time      time.Time     `json:"time"`
}

// Summary counts the records of a database.
type Summary struct {
	Files     int                   `json:"files"`
	Imports   int                   `json:"imports"`
	Errors    int                   `json:"errors"`
	ByKind    map[resolver.Kind]int `json:"byKind"`
	Externals []string              `json:"externals"`
}

// DB is an audit database.
type DB struct {
	db *bolt.DB

	lock sync.Mutex
	err  error
}

// Open opens or creates the audit database at path.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func recordKey(file string, specifier string) []byte {
	return []byte(filepath.ToSlash(file) + "\x00" + specifier)
}

// Record stores a resolver decision. Write failures are kept and returned by Err.
func (d *DB) Record(filename string, specifier string, res resolver.Resolution, err error) {
	rec := Record{
		File:      filename,
		Specifier: specifier,
		Kind:      res.Kind,
		Target:    res.Specifier,
		Time:      time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if perr := d.Put(rec); perr != nil {
		log.Errorf("audit: %v", perr)
		d.lock.Lock()
		if d.err == nil {
			d.err = perr
		}
		d.lock.Unlock()
	}
}

// Err returns the first failure of Record.
func (d *DB) Err() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.err
}

// Put stores rec, replacing any record for the same import.
func (d *DB) Put(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put(recordKey(rec.File, rec.Specifier), data)
	})
}

// Get returns the record of one import, or nil.
func (d *DB) Get(file string, specifier string) (rec *Record, err error) {
	err = d.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get(recordKey(file, specifier))
		if data == nil {
			return nil
		}
		rec = &Record{}
		return json.Unmarshal(data, rec)
	})
	return
}

// List returns the records of files whose path starts with prefix, ordered by file
// then specifier.
func (d *DB) List(prefix string) (records []Record, err error) {
	p := []byte(filepath.ToSlash(prefix))
	err = d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	return
}

// Summary counts every record of the database.
func (d *DB) Summary() (*Summary, error) {
	records, err := d.List("")
	if err != nil {
		return nil, err
	}
	s := &Summary{ByKind: map[resolver.Kind]int{}, Externals: []string{}}
	var (
		lastFile  string
		externals = map[string]bool{}
	)
	for _, rec := range records {
		if rec.File != lastFile {
			s.Files++
			lastFile = rec.File
		}
		s.Imports++
		if rec.Error != "" {
			s.Errors++
			continue
		}
		s.ByKind[rec.Kind]++
		if rec.Kind == resolver.External && !externals[rec.Target] {
			externals[rec.Target] = true
			s.Externals = append(s.Externals, rec.Target)
		}
	}
	sort.Strings(s.Externals)
	return s, nil
}

// Reset removes every record.
func (d *DB) Reset() error {
	return d.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(recordsBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(recordsBucket)
		return err
	})
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

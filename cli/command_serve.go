package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/esm-dev/ember-resolver/internal/shim"
	"github.com/esm-dev/ember-resolver/server"
	"github.com/ije/gox/log"
)

const serveHelpMessage = `Start a debug server answering resolver queries for the app

Usage: ember-resolver serve [options]

Routes:
  GET /resolve?file=&specifier=  The resolution of one import
  GET /externals/<name>.js       The shim of an external module
  GET /engine?file=              The engine a file belongs to
  GET /macros/module-exists?file=&specifier=
  GET /macros/dependency-satisfies?file=&package=&range=
  GET /audit                     The audit summary
  GET /status                    The server status

Options:
  --port         Port to serve on, default is 8089
  --help, -h     Show help message
`

// Serve starts the debug server.
func Serve() {
	port := flag.Int("port", 0, "port to serve on")
	_, help := parseCommandFlags()
	if help {
		fmt.Print(serveHelpMessage)
		return
	}

	p, err := loadProject()
	if err != nil {
		fail(err)
	}
	if *port > 0 {
		p.cfg.Port = uint16(*port)
	}

	logger, err := log.New(fmt.Sprintf("file:%s?buffer=32k&fileDateFormat=20060102", filepath.Join(p.cfg.LogDir, "resolver.log")))
	if err != nil {
		fail(fmt.Errorf("failed to initialize logger: %w", err))
	}
	logger.SetLevelByName(p.cfg.LogLevel)

	shims, err := shim.NewCache(p.cfg.ShimCacheSize, p.cfg.MinifyShims)
	if err != nil {
		fail(err)
	}
	db, err := p.openAudit()
	if err != nil {
		logger.Fatalf("init audit db: %v", err)
	}
	defer db.Close()

	fmt.Printf("Server is ready on http://localhost:%d\n", p.cfg.Port)
	s := &server.Server{
		Config:  p.cfg,
		Options: p.opts,
		Cache:   p.cache,
		Shims:   shims,
		Audit:   db,
	}
	if err := s.Serve(logger); err != nil {
		os.Exit(1)
	}
}

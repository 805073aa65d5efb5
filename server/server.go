package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/esm-dev/ember-resolver/internal/audit"
	"github.com/esm-dev/ember-resolver/internal/config"
	"github.com/esm-dev/ember-resolver/internal/macros"
	"github.com/esm-dev/ember-resolver/internal/pkgcache"
	"github.com/esm-dev/ember-resolver/internal/resolver"
	"github.com/esm-dev/ember-resolver/internal/shim"
	"github.com/ije/gox/log"
	"github.com/ije/gox/utils"
	"github.com/ije/rex"
)

const (
	ctJavaScript     = "application/javascript; charset=utf-8"
	ccMustRevalidate = "public, max-age=0, must-revalidate"
)

// Server answers resolver queries for one app.
type Server struct {
	Config   *config.Config
	Options  *resolver.Options
	Cache    *pkgcache.Cache
	Shims    *shim.Cache
	Audit    *audit.DB
	started  time.Time
	resolved atomic.Int64
}

// ErrBadRequest wraps query errors that are the caller's fault.
var ErrBadRequest = errors.New("bad request")

// Resolve resolves the specifier as imported from file. A relative file is taken
// relative to the app root.
func (s *Server) Resolve(file string, specifier string) (resolver.Resolution, error) {
	if file == "" || specifier == "" {
		return resolver.Resolution{}, fmt.Errorf("%w: file and specifier are required", ErrBadRequest)
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(s.Options.AppRoot, filepath.FromSlash(file))
	}
	res, err := resolver.New(file, s.Options, s.Cache).Resolve(specifier)
	if s.Audit != nil {
		s.Audit.Record(file, specifier, res, err)
	}
	if err == nil {
		s.resolved.Add(1)
	}
	return res, err
}

func (s *Server) absFile(file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("%w: file is required", ErrBadRequest)
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(s.Options.AppRoot, filepath.FromSlash(file))
	}
	return file, nil
}

// Engine returns the engine the file belongs to, or nil.
func (s *Server) Engine(file string) (*resolver.EngineConfig, error) {
	file, err := s.absFile(file)
	if err != nil {
		return nil, err
	}
	engine, _ := s.Options.EngineFor(file)
	return engine, nil
}

// Macro answers `module-exists` (query `specifier`) and `dependency-satisfies`
// (queries `package` and `range`) as evaluated from file.
func (s *Server) Macro(name string, file string, query map[string]string) (bool, error) {
	file, err := s.absFile(file)
	if err != nil {
		return false, err
	}
	switch name {
	case "module-exists":
		if query["specifier"] == "" {
			return false, fmt.Errorf("%w: specifier is required", ErrBadRequest)
		}
		return macros.ModuleExists(s.Cache, query["specifier"], file)
	case "dependency-satisfies":
		if query["package"] == "" || query["range"] == "" {
			return false, fmt.Errorf("%w: package and range are required", ErrBadRequest)
		}
		return macros.DependencySatisfies(s.Cache, query["package"], query["range"], file)
	}
	return false, fmt.Errorf("%w: unknown macro %q", ErrBadRequest, name)
}

// Shim returns the shim served at `/externals/<name>.js`.
func (s *Server) Shim(pathname string) (string, error) {
	name, ok := strings.CutPrefix(pathname, "/externals/")
	if !ok || !strings.HasSuffix(name, ".js") {
		return "", fmt.Errorf("%w: not a shim path", ErrBadRequest)
	}
	name = strings.TrimSuffix(name, ".js")
	if name == "" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: invalid module name", ErrBadRequest)
	}
	return s.Shims.Get(name)
}

// Status reports the state of the server.
func (s *Server) Status() map[string]any {
	status := map[string]any{
		"appRoot":      s.Options.AppRoot,
		"emberVersion": s.Options.EmberVersion,
		"activeAddons": len(s.Options.ActiveAddons),
		"shims":        s.Shims.Len(),
		"resolved":     s.resolved.Load(),
	}
	if !s.started.IsZero() {
		status["uptime"] = time.Since(s.started).Round(time.Second).String()
	}
	return status
}

func errorStatus(err error) int {
	var cerr *resolver.ConfigError
	if errors.Is(err, ErrBadRequest) || errors.Is(err, macros.ErrInvalidRange) || errors.As(err, &cerr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) router() rex.Handle {
	return func(ctx *rex.Context) any {
		if ctx.R.Method != "GET" && ctx.R.Method != "HEAD" {
			return rex.Status(405, "Method Not Allowed")
		}
		pathname := utils.NormalizePathname(ctx.R.URL.Path)
		switch {
		case pathname == "/status":
			ctx.SetHeader("Cache-Control", ccMustRevalidate)
			return s.Status()
		case pathname == "/resolve":
			query := ctx.Query()
			res, err := s.Resolve(query.Get("file"), query.Get("specifier"))
			if err != nil {
				return rex.Err(errorStatus(err), err.Error())
			}
			ctx.SetHeader("Cache-Control", ccMustRevalidate)
			return res
		case pathname == "/engine":
			engine, err := s.Engine(ctx.Query().Get("file"))
			if err != nil {
				return rex.Err(errorStatus(err), err.Error())
			}
			if engine == nil {
				return rex.Status(404, "no engine")
			}
			return engine
		case strings.HasPrefix(pathname, "/macros/"):
			query := ctx.Query()
			ok, err := s.Macro(strings.TrimPrefix(pathname, "/macros/"), query.Get("file"), map[string]string{
				"specifier": query.Get("specifier"),
				"package":   query.Get("package"),
				"range":     query.Get("range"),
			})
			if err != nil {
				return rex.Err(errorStatus(err), err.Error())
			}
			ctx.SetHeader("Cache-Control", ccMustRevalidate)
			return map[string]bool{"result": ok}
		case pathname == "/audit":
			if s.Audit == nil {
				return rex.Status(404, "audit is disabled")
			}
			summary, err := s.Audit.Summary()
			if err != nil {
				return rex.Err(500, err.Error())
			}
			return summary
		case strings.HasPrefix(pathname, "/externals/"):
			code, err := s.Shim(pathname)
			if err != nil {
				return rex.Err(errorStatus(err), err.Error())
			}
			ctx.SetHeader("Content-Type", ctJavaScript)
			ctx.SetHeader("Cache-Control", ccMustRevalidate)
			return code
		}
		return rex.Status(404, "not found")
	}
}

// Serve starts the debug server and blocks until it fails or the process is signaled.
func (s *Server) Serve(logger *log.Logger) error {
	s.started = time.Now()
	rex.Use(
		rex.Header("Server", "ember-resolver"),
		rex.Logger(logger),
		s.router(),
	)

	C := rex.Serve(rex.ServerConfig{
		Port: s.Config.Port,
	})
	logger.Infof("Server is ready on http://localhost:%d", s.Config.Port)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP)
	var err error
	select {
	case <-c:
	case err = <-C:
		logger.Error(err)
	}
	logger.FlushBuffer()
	return err
}

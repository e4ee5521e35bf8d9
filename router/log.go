package router

import (
	stdlog "log"
	"os"

	"github.com/rexlunae/tornwamp/logger"
)

// log is the router package's logger instance; a stdlib logger is assigned
// by default but may be reassigned with SetLogger.
var log logger.Logger = stdlog.New(os.Stdout, "", stdlog.LstdFlags)

// SetLogger assigns a logger instance to the router package. Use this to
// plug in any logging package satisfying logger.Logger before using the
// router package.
func SetLogger(l logger.Logger) { log = l }

// Logger returns the logger the router package is currently set to use.
func Logger() logger.Logger { return log }

// DebugEnabled gates verbose per-message tracing in the session dispatch
// loop.
var DebugEnabled bool

package transport

import (
	stdlog "log"
	"os"

	"github.com/rexlunae/tornwamp/logger"
)

// log is the transport package's logger instance; see router.SetLogger for
// the equivalent on the router package.
var log logger.Logger = stdlog.New(os.Stdout, "", stdlog.LstdFlags)

// SetLogger assigns a logger instance to the transport package.
func SetLogger(l logger.Logger) { log = l }

/*
Package logging implements application log instrumentation and Apache
combined access log.

# Application Log

The application log uses the logrus package:

https://github.com/sirupsen/logrus

To send messages to the application log, import this package and use its
methods. Example:

	import log "github.com/sirupsen/logrus"

	func doSomething() {
	    log.Errorf("nothing to do")
	}

Components that accept a custom logger take a Logger. DefaultLog forwards
to the application log.

During startup initialization, it is possible to redirect the log output
from the default /dev/stderr to another file, to set a common prefix for
each log entry, and to switch to JSON output.

# Access Log

The access log prints HTTP access information in the Apache combined
access log format, extended with the request duration, the requested
host, the id of the matched route, the serving path (fast, slow or none)
and the request id. The server logs every request with LogAccess, using
LoggingWriter to capture the status and the response size.

During initialization, it is possible to redirect the access log output
from the default /dev/stderr to another file, or completely disable the
access log.
*/
package logging

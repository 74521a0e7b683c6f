package logging

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	dateFormat      = "02/Jan/2006:15:04:05 -0700"
	commonLogFormat = `%s - - [%s] "%s %s %s" %d %d`
	// format:
	// remote_host - - [date] "method uri protocol" status response_size "referer" "user_agent"
	combinedLogFormat = commonLogFormat + ` "%s" "%s"`
	// duration in ms, requested host, route id, serving path and request id
	accessLogFormat = combinedLogFormat + " %d %s %s %s %s\n"
)

var accessLogKeys = []string{
	"host", "timestamp", "method", "uri", "proto",
	"status", "response-size", "referer", "user-agent",
	"duration", "requested-host", "route-id", "dispatch", "request-id",
}

type accessLogFormatter struct {
	format string
}

// Access log entry.
type AccessEntry struct {

	// The client request.
	Request *http.Request

	// The status code of the response.
	StatusCode int

	// The size of the response in bytes.
	ResponseSize int64

	// The time spent processing request.
	Duration time.Duration

	// The time that the request was received.
	RequestTime time.Time

	// The id of the matched route, empty when no route matched.
	RouteID string

	// The serving path of the request: fast, slow or none.
	Dispatch string

	// The value of the X-Request-Id header.
	RequestID string
}

var accessLog *logrus.Logger

// remoteHost returns the client host without the port. The
// X-Forwarded-For header takes precedence over the remote address.
func remoteHost(r *http.Request) string {
	a := r.Header.Get("X-Forwarded-For")
	if a == "" {
		a = r.RemoteAddr
	}

	if h, _, err := net.SplitHostPort(a); err == nil {
		a = h
	}

	return orDash(a)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func (f *accessLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	values := make([]interface{}, len(accessLogKeys))
	for i, key := range accessLogKeys {
		values[i] = e.Data[key]
	}

	return []byte(fmt.Sprintf(f.format, values...)), nil
}

func requestFields(r *http.Request) logrus.Fields {
	if r == nil {
		return logrus.Fields{
			"host":           "-",
			"method":         "",
			"uri":            "",
			"proto":          "",
			"referer":        "",
			"user-agent":     "",
			"requested-host": "",
		}
	}

	return logrus.Fields{
		"host":           remoteHost(r),
		"method":         r.Method,
		"uri":            r.RequestURI,
		"proto":          r.Proto,
		"referer":        r.Referer(),
		"user-agent":     r.UserAgent(),
		"requested-host": r.Host,
	}
}

// LogAccess logs an access event in Apache combined log format, extended
// with the duration, the requested host, the route id, the serving path
// and the request id.
func LogAccess(entry *AccessEntry) {
	if accessLog == nil || entry == nil {
		return
	}

	fields := requestFields(entry.Request)
	fields["timestamp"] = entry.RequestTime.Format(dateFormat)
	fields["status"] = entry.StatusCode
	fields["response-size"] = entry.ResponseSize
	fields["duration"] = entry.Duration.Milliseconds()
	fields["route-id"] = orDash(entry.RouteID)
	fields["dispatch"] = orDash(entry.Dispatch)
	fields["request-id"] = orDash(entry.RequestID)
	accessLog.WithFields(fields).Infoln()
}

package metrics

import (
	"net/http"
	"time"

	"github.com/zalando/fastlane/mediatype"
)

// CodaHaleJSON is the media type selecting the CodaHale format from the
// combined metrics handler.
var CodaHaleJSON = mediatype.New("application", "codahale+json")

// All combines the Prometheus and the CodaHale backends. The metrics
// are served in the Prometheus format, unless the request explicitly
// accepts application/codahale+json.
type All struct {
	prometheus *Prometheus
	codaHale   *CodaHale
}

func NewAll(o Options) *All {
	return &All{
		prometheus: NewPrometheus(o),
		codaHale:   NewCodaHale(o),
	}
}

func (a *All) each(f func(Metrics)) {
	f(a.prometheus)
	f(a.codaHale)
}

func (a *All) MeasureSince(key string, start time.Time) {
	a.each(func(m Metrics) { m.MeasureSince(key, start) })
}

func (a *All) IncCounter(key string) {
	a.each(func(m Metrics) { m.IncCounter(key) })
}

func (a *All) UpdateGauge(key string, v float64) {
	a.each(func(m Metrics) { m.UpdateGauge(key, v) })
}

func (a *All) MeasureRouteLookup(start time.Time) {
	a.each(func(m Metrics) { m.MeasureRouteLookup(start) })
}

func (a *All) IncDispatch(path string) {
	a.each(func(m Metrics) { m.IncDispatch(path) })
}

func (a *All) IncBinderFallback(routeID string) {
	a.each(func(m Metrics) { m.IncBinderFallback(routeID) })
}

func (a *All) MeasureServe(routeID, method string, code int, start time.Time) {
	a.each(func(m Metrics) { m.MeasureServe(routeID, method, code, start) })
}

func (a *All) SetInvalidRoute(routeID, reason string) {
	a.each(func(m Metrics) { m.SetInvalidRoute(routeID, reason) })
}

func (a *All) DeleteInvalidRoute(routeID string) {
	a.each(func(m Metrics) { m.DeleteInvalidRoute(routeID) })
}

func (a *All) Close() {
	a.each(func(m Metrics) { m.Close() })
}

func (a *All) RegisterHandler(path string, mux *http.ServeMux) {
	prometheusHandler := a.prometheus.getHandler()
	codaHaleHandler := a.codaHale.getHandler(path)
	mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := mediatype.ParseAccept(r.Header.Values("Accept")...)
		if mediatype.Contains(accept, CodaHaleJSON) {
			codaHaleHandler.ServeHTTP(w, r)
			return
		}

		prometheusHandler.ServeHTTP(w, r)
	}))
}

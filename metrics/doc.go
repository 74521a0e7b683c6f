/*
Package metrics implements collection of the fastlane performance
metrics.

Two backends are supported, and they can be used together:

  - the Go implementation of the Coda Hale metrics library, exposing the
    metrics as JSON:

    https://github.com/dropwizard/metrics

  - Prometheus, exposing the metrics in the Prometheus text format.

The collected metrics include the time of looking up routes, the
number of requests served by the short-circuit fast path and by the
general router, the number of fast path matches that fell back to the
general argument binding, the time of serving the requests, and the
routes rejected because of invalid definitions.

For the keys used for the different metrics by the Coda Hale backend,
see the Key* constants.

The metrics are served by the support listener, when it is enabled.
*/
package metrics

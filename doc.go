/*
Package fastlane provides an HTTP request router that answers most of
the requests from a precompiled short-circuit plan, and falls back to a
general router for the rest.

# Quickstart

fastlane is 'go get' compatible. If needed, create a 'go workspace' first:

	mkdir ws
	cd ws
	export GOPATH=$(pwd)
	export PATH=$PATH:$GOPATH/bin

Get the fastlane packages:

	go get github.com/zalando/fastlane/...

Create a file with a route:

	cat > routes.yaml <<EOF
	routes:
	- id: search
	  path: /search
	  method: GET
	  parameters:
	  - name: q
	    source: query
	    required: true
	  backend:
	    type: echo
	EOF

Start fastlane and make an HTTP request:

	fastlane -routes-file routes.yaml &
	curl 'localhost:9090/search?q=fastlane'

# Routes

Every route has a unique id, and it is selected by the request path, the
HTTP method, the content type of the request, and the media types accepted
by the client. The path can be exact, or a template with named segments,
like /users/:id, and an optional trailing free wildcard, like /files/*path.
Routes can require exact header values, too.

When more routes match a request, the one with the higher priority, and
then the one with more conditions wins.

The parameters of a route describe the arguments passed to its backend,
bound from the query, the headers, the cookies, the path parameters, or
the request body.

# Fast path

The routes with exact paths are compiled into a short-circuit plan: a
decision tree keyed by the path, the method, the content type and the
accepted media types. For the requests where the plan selects a single
route, and all the parameters of the route can be bound by the
short-circuit binders, the general router is skipped.

Whenever the plan cannot decide, the request is routed by the general
router. The plan never selects a different route than the general router
would.

The current plan is served by the support listener on the /plan path.

# Route sources

The routes are loaded from route files, in YAML or JSON format, optionally
polled for changes, from remote route files over HTTP, or from custom data
clients. See the routesfile package.

# Backends

Routes are served by backends. The builtin backends are:

	static: responds with a fixed status, body and content type
	echo: responds with the bound arguments as a JSON object
	status: responds with a fixed status and no body

Custom backends can be registered with the CustomBackends option.

# Metrics

The route lookup times, the number of requests served by the fast and the
slow path, the binder fallbacks and the serve times are measured, and
exposed in CodaHale or Prometheus format by the support listener on the
/metrics path.
*/
package fastlane

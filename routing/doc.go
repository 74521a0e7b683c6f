/*
Package routing implements matching of http requests to a continuously
updatable set of routes.

# Request Evaluation

Every lookup tries the fast path first. The fast path is a compiled plan
of the short-circuit planner, see the shortcircuit package, built from the
routes with an exact path condition. When the plan selects a route, and
the arguments of the route can be bound by the short-circuit binders, the
lookup returns without evaluating the general router.

Otherwise the general router evaluates the request:

1. The cleaned request path, ignoring the trailing slash, is used to find
the routes with an exact path condition. When none of them match, the
path templates are tried, from the most specific one, and finally the
routes without a path condition.

2. The rest of the request attributes is matched against the non-path
conditions of the routes found for the path, from the most to the least
strict one. The result is the first route where every condition is met.
The strictness is the number of conditions, increased by the priority of
the route.

The two paths agree: when the plan selects a route, the general router
would select the same one. The planner doesn't evaluate header
conditions, so the exact paths with any route carrying header conditions
are left to the general router.

# Matching Conditions

- Path: exact path, or a template with wildcards.

- Method: the HTTP method that the request must match.

- ContentType: the media type in the Content-Type header, or "none" for
requests without a Content-Type header.

- Produces: the media types that the route can respond with. The Accept
header of the request needs to allow one of them.

- Headers: exact header values that must be present in the request.

# Wildcards

Path templates support two kinds of wildcards:

- simple wildcard: e.g. /some/:wildcard/path. Simple wildcards are
matching a single name in the request path.

- freeform wildcard: e.g. /some/path/*wildcard. Freeform wildcards are
matching any number of names at the end of the request path, including
none. The value of the parameter starts with a slash.

# Data Clients

Routing definitions are not directly passed to the routing instance, but
they are loaded from clients that implement the DataClient interface.
The router initially loads the complete set of the routes from each
client, retrying with an exponential backoff, merges the different sets
based on the route id, and converts them into their runtime
representation, with backend instances created from the backend
registry. Invalid definitions are logged, reported to the metrics, and
left out of the route table.

During operation, the router regularly polls the data clients for
updates, and, if an update is received, generates a new route table. In
case of communication failure during polling, it reloads the whole set
of routes from the failing client.

The active set of routes from the last successful update are used until
the next successful update happens. The route tables are immutable, and
published atomically.
*/
package routing

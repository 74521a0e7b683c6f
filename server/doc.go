/*
Package server implements the http.Handler serving the requests with the
route backends.

For every request, the server buffers the body up to a configured limit,
looks up the route with the routing, binds the route parameters, and calls
the backend of the route. The requests matched and bound by the fast path
are served without the general binding. The requests that no route
matches are answered with 404 Not Found, and the requests whose parameters
cannot be bound with 400 Bad Request.

Every request gets an X-Request-Id header, generated when the client
didn't send one, and returned in the response. The requests are recorded
in the access log and the metrics, with the id of the route and the
serving path: fast, slow or none.
*/
package server

/*
Package shortcircuit implements a compiled fast path for matching http
requests to routes with exact paths.

The package receives a set of candidates, where every candidate carries
a conjunction of rules, and compiles them into a plan: a decision tree
that, for a request, returns either the single candidate that the
request matches, or Indeterminate, meaning that the general router needs
to resolve the request.

# Stages

The plan discriminates the requests in the following, fixed order:

1. PATH: the undecoded request path, with a single trailing slash
removed. The path "/" is kept as is.

2. METHOD: the request method, compared case sensitively.

3. CONTENT_TYPE: the value of the Content-Type header, compared as an
exact string. A candidate may require that the header is absent.

4. ACCEPT: the media ranges of the Accept header, ordered by quality,
checked against the media types that the candidates produce. If more
than one candidate could serve the request, the result is Indeterminate.

5. SERVER_PORT: reserved. Plans that need to discriminate by the server
port always return Indeterminate.

A candidate without a rule for a stage is not constrained at that stage,
and it stays in every branch of the stage. When the stages are exhausted,
a branch with a single remaining candidate becomes a match, any other
branch becomes Indeterminate.

# Evaluation

Compiled plans are immutable and can be shared between any number of
goroutines. Evaluating a plan doesn't block, doesn't do any I/O, and it
never fails: every problem with the request, like a malformed request
target, results in Indeterminate.

# Argument Binding

Once a candidate is matched, its parameters can be bound directly from
the request with the binders registered in a BinderRegistry. The binders
are prepared once, when the plan is compiled. When any of the parameters
of a candidate cannot be bound this way, the candidate must be served by
the general router and the general binding instead.
*/
package shortcircuit

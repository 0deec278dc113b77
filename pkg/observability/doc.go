/*
Package observability exposes editor activity as Prometheus metrics.

The metrics plugin attaches through the editor's lifecycle hooks and commit
listeners, so it sees rollbacks as well as published snapshots. It keeps its
own registry; serve it with promhttp.HandlerFor(m.Registry(), ...).
*/
package observability

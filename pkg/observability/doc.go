/*
Package observability turns navigation lifecycle events into Prometheus
metrics and structured log lines. Both are plain domain.LifecycleHooks and
can be chained with domain.ChainHooks.
*/
package observability

// Package sse implements server-sent events on top of internal/httpserver:
// the EventSource wire format (id/event/data/retry lines), a queued,
// serialized writer so concurrent sse_event calls never interleave their
// bytes, and the Init/Started/Ending/Ended/Closed stream lifecycle from
// spec.md §4.4.
package sse

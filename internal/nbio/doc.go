// Package nbio implements a single-threaded, proactor-style non-blocking I/O
// event loop. Every operation is submitted once and dispatches its callback
// exactly one time, whether the underlying syscall completed on the OS's
// readiness notification (sockets) or was executed synchronously and
// deferred to the following tick for uniformity (files, socket creation).
//
// The loop itself never blocks a goroutine waiting on a single connection;
// callers schedule operations and return, resuming through the supplied
// callback. All callbacks run on the goroutine that calls Loop.Tick or
// Loop.Run — there is no implicit parallelism across connections.
package nbio

/*
Package systematic ties scarce Linux OS resources to the lifetime of Go values,
releasing them automatically and exactly once.

The resource types live in the sub packages:

  - [github.com/thediveo/systematic/posix.Handle] owns an open file descriptor.
  - [github.com/thediveo/systematic/posix.Mapping] owns a memory mapping.
  - [github.com/thediveo/systematic/pthread] names OS-level threads; it does
    not own anything.

All resource-acquiring operations report failures as [*OsError], tagging the
failing operation (“open”, “mmap”, “setThreadName”) and carrying the OS error
number. Releasing resources never fails loudly: close(2) and munmap(2) errors
are swallowed, and only logged at debug level using the default [log/slog]
logger.

# Ownership

An owning value is either the sole owner of its resource or “empty”. Ownership
moves wholesale between values using Move, Swap and Reset, never duplicating a
resource: after a move the source is empty and closing it is a no-op. Always
pass owning values around by pointer; copying them is flagged by “go vet”.

Callers should explicitly Close owning values, typically using defer. As a
safety net an owning value still holding its resource when it becomes
unreachable releases it during garbage collection, much like [os.File] does.

# Retries

Nothing is ever retried, not even on EINTR. Callers needing retries must wrap
these operations themselves.
*/
package systematic

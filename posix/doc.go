/*
Package posix provides owning wrappers for open file descriptors and memory
mappings.

A [Handle] owns an open file descriptor, closing it exactly once. A [Mapping]
owns a memory-mapped region, unmapping it exactly once. Both can be empty,
owning nothing, and ownership only ever moves between them, never gets
duplicated:

	h, err := posix.Open("/tmp/canary", unix.O_RDWR|unix.O_CLOEXEC)
	if err != nil {
		return err
	}
	defer h.Close()

	m, err := posix.Map(4096, unix.PROT_READ, unix.MAP_SHARED, h.Fd(), 0)
	if err != nil {
		return err
	}
	defer m.Close()

Please note that a Mapping doesn't own the file descriptor it was mapped from;
as mmap(2) keeps its own reference to the mapped file, the Handle may even be
closed before the Mapping.

Mapping zero bytes always fails with EINVAL.
*/
package posix

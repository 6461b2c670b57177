/*
Package pthread names OS-level threads of this process, so that they show up
with human-readable names in tools such as top(1) and ps(1), as well as in
“/proc/[PID]/task/[TID]/comm”.

Threads are referenced by their Linux thread IDs (TIDs). As Go schedules go
routines onto arbitrary OS-level threads, a go routine wanting to name “its”
thread must first lock itself to its current OS-level thread:

	runtime.LockOSThread()
	_ = pthread.SetCurrentName("wurker")

Names are limited to [MaxNameLen] bytes. Setting a name is idempotent, but
concurrently naming the same thread leaves it up to the OS which name wins.
*/
package pthread

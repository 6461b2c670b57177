/*
mmapcat writes a region of a file to stdout, using a read-only
[github.com/thediveo/systematic/posix.Mapping] of the file. The file is read
from a separate OS-level thread that is named using
[github.com/thediveo/systematic/pthread.SetCurrentName].

	mmapcat [--offset N] [--length N] [--thread-name NAME] [-v] FILE

When not told otherwise, the worker thread gets a random pet name.
*/
package main

// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/spf13/cobra"
	"github.com/thediveo/systematic"
	"github.com/thediveo/systematic/posix"
	"github.com/thediveo/systematic/pthread"
	"golang.org/x/sys/unix"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		offset     int64
		length     int64
		threadName string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:          "mmapcat [flags] FILE",
		Short:        "writes a memory-mapped region of a file to stdout",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
				&slog.HandlerOptions{Level: level})))
			if threadName == "" {
				threadName = defaultThreadName()
			}
			return onWorkerThread(threadName, func() error {
				return cat(cmd.OutOrStdout(), args[0], offset, length)
			})
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "offset into FILE in bytes")
	cmd.Flags().Int64Var(&length, "length", 0, "number of bytes to write, or 0 for the remainder of FILE")
	cmd.Flags().StringVar(&threadName, "thread-name", "",
		fmt.Sprintf("name of the worker thread, at most %d bytes (default: a random pet name)", pthread.MaxNameLen))
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug information to stderr")
	return cmd
}

// defaultThreadName returns a random pet name that fits into a thread name.
func defaultThreadName() string {
	name := petname.Generate(1, "")
	if len(name) > pthread.MaxNameLen {
		name = name[:pthread.MaxNameLen]
	}
	return name
}

// onWorkerThread runs fn on a separate go routine locked to its own, named
// OS-level thread, returning fn's result. The named thread is thrown away
// afterwards, as the go routine terminates while still being locked.
func onWorkerThread(name string, fn func() error) error {
	errch := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		if err := pthread.SetCurrentName(name); err != nil {
			errch <- err
			return
		}
		slog.Debug("worker thread named",
			slog.Int("tid", unix.Gettid()),
			slog.String("name", name))
		errch <- fn()
	}()
	return <-errch
}

// cat writes length bytes from the file at path, starting at offset, to w. A
// zero length writes the remainder of the file.
func cat(w io.Writer, path string, offset int64, length int64) error {
	f, err := posix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC)
	if err != nil {
		return err
	}
	defer f.Close()

	var stat unix.Stat_t
	if err := unix.Fstat(f.Fd(), &stat); err != nil {
		return systematic.NewOsError("fstat", path, err)
	}
	if offset < 0 || offset > stat.Size {
		return fmt.Errorf("offset %d outside of %s with size %d", offset, path, stat.Size)
	}
	if length < 0 || length > stat.Size-offset {
		return fmt.Errorf("length %d exceeds %s with size %d at offset %d", length, path, stat.Size, offset)
	}
	if length == 0 {
		length = stat.Size - offset
	}
	if length == 0 {
		slog.Debug("nothing to write", slog.String("path", path))
		return nil
	}

	// mmap(2) wants page-aligned offsets, so map from the start of the page
	// containing offset and skip the leading bytes.
	skip := offset % int64(os.Getpagesize())
	m, err := posix.Map(int(skip+length), unix.PROT_READ, unix.MAP_PRIVATE, f.Fd(), offset-skip)
	if err != nil {
		return err
	}
	defer m.Close()
	_ = m.Advise(unix.MADV_SEQUENTIAL)
	slog.Debug("mapped",
		slog.String("path", path),
		slog.Int64("offset", offset-skip),
		slog.Int("length", m.Len()))

	_, err = w.Write(m.Bytes()[skip:])
	return err
}

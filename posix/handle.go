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

package posix

import (
	"log/slog"
	"runtime"

	"github.com/thediveo/systematic"
	"golang.org/x/sys/unix"
)

// Empty is the file descriptor number reported by a [Handle] that doesn't own
// any file descriptor (anymore).
const Empty = -1

// Handle owns an open file descriptor. A Handle is either the sole owner of
// its file descriptor or empty; the zero value is an empty Handle.
//
// Handles must not be copied; pass *Handle instead. Use [Handle.Move],
// [Handle.Swap] and [Handle.Reset] to transfer ownership between handles.
//
// A Handle is not safe for concurrent mutation.
type Handle struct {
	_       noCopy
	fd      int
	owned   bool
	cleanup runtime.Cleanup
}

// Open opens the file at path using the specified open(2) flags, such as
// [unix.O_RDONLY], and returns a Handle owning the new file descriptor. When
// creating a file, its permissions are 0666 (before umask). Open does not add
// any flags on its own, so pass [unix.O_CLOEXEC] where necessary.
//
// On failure, Open returns an [*systematic.OsError] tagged “open”.
func Open(path string, flags int) (*Handle, error) {
	return OpenFile(path, flags, 0o666)
}

// OpenFile is like [Open], but additionally takes the permissions to use when
// creating a new file.
func OpenFile(path string, flags int, perm uint32) (*Handle, error) {
	fd, err := unix.Open(path, flags, perm)
	if err != nil {
		return nil, systematic.NewOsError("open", path, err)
	}
	return Adopt(fd), nil
}

// Adopt returns a new Handle taking ownership of the passed open file
// descriptor. The caller must not close the passed fd itself anymore. Adopting
// a negative fd returns an empty Handle.
func Adopt(fd int) *Handle {
	h := &Handle{}
	h.own(fd)
	return h
}

// Fd returns the owned file descriptor number without transferring
// ownership, or [Empty]. The returned fd must not be closed by the caller.
//
// Similar to [os.File.Fd], keep the Handle reachable while using the returned
// fd, such as by deferring Close or by [runtime.KeepAlive].
func (h *Handle) Fd() int {
	if h == nil || !h.owned {
		return Empty
	}
	return h.fd
}

// Valid returns true if this Handle owns a file descriptor.
func (h *Handle) Valid() bool {
	return h != nil && h.owned
}

// Move returns a new Handle that now owns the file descriptor previously owned
// by h, leaving h empty.
func (h *Handle) Move() *Handle {
	nh := &Handle{}
	if h != nil {
		nh.own(h.disown())
	}
	return nh
}

// Swap exchanges the file descriptors owned by h and other. Swapping with nil
// is a no-op.
func (h *Handle) Swap(other *Handle) {
	if h == other || h == nil || other == nil {
		return
	}
	fd, otherfd := h.disown(), other.disown()
	h.own(otherfd)
	other.own(fd)
}

// Reset takes over the file descriptor owned by src, closing the file
// descriptor h owned before. src is left empty. Resetting from nil simply
// closes h, while resetting a nil Handle closes src.
func (h *Handle) Reset(src *Handle) {
	if h == src {
		return
	}
	if h == nil {
		src.Close()
		return
	}
	if src == nil {
		h.Close()
		return
	}
	h.Swap(src)
	src.Close()
}

// Release gives up ownership of the file descriptor, returning it without
// closing it, or returning [Empty] if there was none. The caller is now
// responsible for closing the returned fd.
func (h *Handle) Release() int {
	if h == nil {
		return Empty
	}
	return h.disown()
}

// Close closes the owned file descriptor, if any, leaving h empty. Closing an
// empty Handle is a no-op. Failing to close the file descriptor is never
// reported back to the caller, but logged at debug level.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	if fd := h.disown(); fd >= 0 {
		closeFd(fd)
	}
}

// own makes h the owner of fd, registering fd to be closed in case h becomes
// unreachable without having been closed. h must be empty.
func (h *Handle) own(fd int) {
	if fd < 0 {
		return
	}
	h.fd = fd
	h.owned = true
	h.cleanup = runtime.AddCleanup(h, closeFd, fd)
}

// disown empties h, returning the file descriptor it owned or Empty.
func (h *Handle) disown() int {
	if !h.owned {
		return Empty
	}
	h.cleanup.Stop()
	fd := h.fd
	h.fd, h.owned, h.cleanup = 0, false, runtime.Cleanup{}
	return fd
}

func closeFd(fd int) {
	if err := unix.Close(fd); err != nil {
		slog.Debug("cannot close file descriptor",
			slog.Int("fd", fd),
			slog.String("err", err.Error()))
	}
}

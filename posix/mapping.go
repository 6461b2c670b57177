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
	"errors"
	"io"
	"log/slog"
	"runtime"
	"unsafe"

	"github.com/thediveo/systematic"
	"golang.org/x/sys/unix"
)

// Mapping owns a memory mapping created by mmap(2). A Mapping is either the
// sole owner of its mapped region or empty; the zero value is an empty Mapping.
// The base address and length of the mapped region always travel together.
//
// Mappings must not be copied; pass *Mapping instead. Use [Mapping.Move],
// [Mapping.Swap] and [Mapping.Reset] to transfer ownership between mappings.
//
// A Mapping is not safe for concurrent mutation.
type Mapping struct {
	_       noCopy
	data    []byte
	cleanup runtime.Cleanup
}

// Map maps length bytes of the file referenced by fd, starting at offset, with
// the specified protection (such as [unix.PROT_READ]) and flags (such as
// [unix.MAP_SHARED]), returning a Mapping owning the mapped region.
//
// The offset must be a multiple of the page size and the fd must refer to a
// file open in a mode compatible with prot; Map doesn't check. Map does not
// take ownership of fd, and closing fd does not unmap the region.
//
// On failure, including a zero length, Map returns an [*systematic.OsError]
// tagged “mmap”.
func Map(length int, prot int, flags int, fd int, offset int64) (*Mapping, error) {
	data, err := unix.Mmap(fd, offset, length, prot, flags)
	if err != nil {
		return nil, systematic.NewOsError("mmap", "", err)
	}
	m := &Mapping{}
	m.own(data)
	return m, nil
}

// MapAnonymous maps length bytes of memory not backed by any file.
func MapAnonymous(length int, prot int, flags int) (*Mapping, error) {
	return Map(length, prot, flags|unix.MAP_ANONYMOUS, -1, 0)
}

// Bytes returns the mapped region, or nil for an empty Mapping. Writing to
// the returned slice requires the region to be mapped with [unix.PROT_WRITE],
// otherwise the process crashes. The returned slice must not be used after the
// Mapping has been closed, moved from, or become unreachable.
func (m *Mapping) Bytes() []byte {
	if m == nil {
		return nil
	}
	return m.data
}

// Pointer returns the base address of the mapped region, or nil.
func (m *Mapping) Pointer() unsafe.Pointer {
	if m == nil {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(m.data))
}

// Len returns the length of the mapped region in bytes.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.data)
}

// Valid returns true if this Mapping owns a mapped region.
func (m *Mapping) Valid() bool {
	return m != nil && m.data != nil
}

// ReadAt implements [io.ReaderAt] as a read-only view onto the mapped region.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("posix.Mapping.ReadAt: negative offset")
	}
	data := m.Bytes()
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Sync flushes changes to the mapped region back to the underlying file using
// msync(2) with the specified flags, such as [unix.MS_SYNC]. Syncing an empty
// Mapping is a no-op.
func (m *Mapping) Sync(flags int) error {
	if !m.Valid() {
		return nil
	}
	if err := unix.Msync(m.data, flags); err != nil {
		return systematic.NewOsError("msync", "", err)
	}
	return nil
}

// Advise tells the kernel about the expected access pattern of the mapped
// region, such as [unix.MADV_SEQUENTIAL], using madvise(2).
func (m *Mapping) Advise(advice int) error {
	if !m.Valid() {
		return nil
	}
	if err := unix.Madvise(m.data, advice); err != nil {
		return systematic.NewOsError("madvise", "", err)
	}
	return nil
}

// Move returns a new Mapping that now owns the region previously owned by m,
// leaving m empty.
func (m *Mapping) Move() *Mapping {
	nm := &Mapping{}
	if m != nil {
		nm.own(m.disown())
	}
	return nm
}

// Swap exchanges the regions owned by m and other. Swapping with nil is a
// no-op.
func (m *Mapping) Swap(other *Mapping) {
	if m == other || m == nil || other == nil {
		return
	}
	data, otherdata := m.disown(), other.disown()
	m.own(otherdata)
	other.own(data)
}

// Reset takes over the region owned by src, unmapping the region m owned
// before. src is left empty. Resetting from nil simply closes m, while
// resetting a nil Mapping closes src.
func (m *Mapping) Reset(src *Mapping) {
	if m == src {
		return
	}
	if m == nil {
		src.Close()
		return
	}
	if src == nil {
		m.Close()
		return
	}
	m.Swap(src)
	src.Close()
}

// Close unmaps the owned region, if any, leaving m empty. Closing an empty
// Mapping is a no-op. Failing to unmap is never reported back to the caller,
// but logged at debug level.
func (m *Mapping) Close() {
	if m == nil {
		return
	}
	if data := m.disown(); data != nil {
		unmap(data)
	}
}

// own makes m the owner of the mapped region data, registering it to be
// unmapped in case m becomes unreachable without having been closed. m must be
// empty.
func (m *Mapping) own(data []byte) {
	if data == nil {
		return
	}
	m.data = data
	m.cleanup = runtime.AddCleanup(m, unmap, data)
}

// disown empties m, returning the region it owned or nil.
func (m *Mapping) disown() []byte {
	if m.data == nil {
		return nil
	}
	m.cleanup.Stop()
	data := m.data
	m.data, m.cleanup = nil, runtime.Cleanup{}
	return data
}

func unmap(data []byte) {
	if err := unix.Munmap(data); err != nil {
		slog.Debug("cannot unmap memory",
			slog.Uint64("addr", uint64(uintptr(unsafe.Pointer(unsafe.SliceData(data))))),
			slog.Int("length", len(data)),
			slog.String("err", err.Error()))
	}
}

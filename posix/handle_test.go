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
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/thediveo/safe"
	"github.com/thediveo/systematic"
	"golang.org/x/sys/unix"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/fdooze"
	. "github.com/thediveo/success"
)

// isOpen returns true if fd is an open file descriptor.
func isOpen(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}

var _ = Describe("file descriptor handles", func() {

	BeforeEach(func() {
		goodfds := Filedescriptors()
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).Within(2 * time.Second).ProbeEvery(100 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
			Eventually(Filedescriptors).Within(2 * time.Second).ProbeEvery(100 * time.Millisecond).
				ShouldNot(HaveLeakedFds(goodfds))
		})
	})

	When("opening", func() {

		It("opens an existing file", func() {
			h := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
			defer h.Close()
			Expect(h.Valid()).To(BeTrue())
			Expect(h.Fd()).To(BeNumerically(">=", 0))
			Expect(isOpen(h.Fd())).To(BeTrue())
		})

		It("creates a new file with the specified permissions", func() {
			path := filepath.Join(GinkgoT().TempDir(), "canary")
			h := Successful(OpenFile(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o600))
			defer h.Close()
			Expect(Successful(os.Stat(path)).Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("reports an open error for a non-existing path", func() {
			h, err := Open("/nonexisting-canary", unix.O_RDONLY)
			Expect(h).To(BeNil())
			var oserr *systematic.OsError
			Expect(errors.As(err, &oserr)).To(BeTrue())
			Expect(oserr.Op).To(Equal("open"))
			Expect(oserr.Path).To(Equal("/nonexisting-canary"))
			Expect(err).To(MatchError(unix.ENOENT))
			Expect(err).To(MatchError("open /nonexisting-canary: no such file or directory"))
		})

		It("doesn't leak across many open/close cycles", func() {
			for range 10_000 {
				h := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
				h.Close()
			}
		})

	})

	When("adopting", func() {

		It("takes ownership of an open fd", func() {
			fd := Successful(unix.Open(".", unix.O_RDONLY|unix.O_CLOEXEC, 0))
			h := Adopt(fd)
			Expect(h.Fd()).To(Equal(fd))
			h.Close()
			Expect(isOpen(fd)).To(BeFalse())
		})

		It("returns an empty handle for a negative fd", func() {
			h := Adopt(-42)
			Expect(h.Valid()).To(BeFalse())
			Expect(h.Fd()).To(Equal(Empty))
			h.Close()
		})

	})

	It("treats the zero value and nil as empty", func() {
		var h Handle
		Expect(h.Valid()).To(BeFalse())
		Expect(h.Fd()).To(Equal(Empty))
		h.Close()

		var nilh *Handle
		Expect(nilh.Valid()).To(BeFalse())
		Expect(nilh.Fd()).To(Equal(Empty))
		Expect(nilh.Release()).To(Equal(Empty))
		Expect(nilh.Move().Valid()).To(BeFalse())
		nilh.Close()
	})

	It("closes idempotently", func() {
		h := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
		fd := h.Fd()
		h.Close()
		Expect(h.Valid()).To(BeFalse())
		Expect(isOpen(fd)).To(BeFalse())
		Expect(h.Close).NotTo(Panic())
	})

	When("transferring ownership", func() {

		It("moves the same fd and leaves the source empty", func() {
			src := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
			fd := src.Fd()
			dst := src.Move()
			defer dst.Close()
			Expect(dst.Fd()).To(Equal(fd))
			Expect(src.Valid()).To(BeFalse())
			Expect(src.Fd()).To(Equal(Empty))

			src.Close()
			Expect(isOpen(fd)).To(BeTrue(), "moved-from handle closed the fd")
			dst.Close()
			Expect(isOpen(fd)).To(BeFalse())
		})

		It("swaps", func() {
			h1 := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
			defer h1.Close()
			h2 := Successful(Open("/", unix.O_RDONLY|unix.O_CLOEXEC))
			defer h2.Close()
			fd1, fd2 := h1.Fd(), h2.Fd()
			h1.Swap(h2)
			Expect(h1.Fd()).To(Equal(fd2))
			Expect(h2.Fd()).To(Equal(fd1))
			h1.Swap(h1)
			Expect(h1.Fd()).To(Equal(fd2))
		})

		It("resets, closing the previously owned fd exactly once", func() {
			dst := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
			defer dst.Close()
			src := Successful(Open("/", unix.O_RDONLY|unix.O_CLOEXEC))
			olddstfd, srcfd := dst.Fd(), src.Fd()

			dst.Reset(src)
			Expect(dst.Fd()).To(Equal(srcfd))
			Expect(src.Valid()).To(BeFalse())
			Expect(isOpen(olddstfd)).To(BeFalse())
			Expect(isOpen(srcfd)).To(BeTrue())

			dst.Reset(dst)
			Expect(dst.Fd()).To(Equal(srcfd))
		})

		It("resets an empty handle and from nil", func() {
			var dst Handle
			src := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
			fd := src.Fd()
			dst.Reset(src)
			Expect(dst.Fd()).To(Equal(fd))

			dst.Reset(nil)
			Expect(dst.Valid()).To(BeFalse())
			Expect(isOpen(fd)).To(BeFalse())
		})

		DescribeTable("swapping and resetting with nil",
			func(op func(h *Handle), wantOpen bool) {
				h := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
				defer h.Close()
				fd := h.Fd()
				Expect(func() { op(h) }).NotTo(Panic())
				Expect(isOpen(fd)).To(Equal(wantOpen))
			},
			Entry("swapping with nil", func(h *Handle) { h.Swap(nil) }, true),
			Entry("swapping nil with a handle", func(h *Handle) { (*Handle)(nil).Swap(h) }, true),
			Entry("resetting a nil handle closes the source", func(h *Handle) { (*Handle)(nil).Reset(h) }, false),
			Entry("resetting from nil closes the handle", func(h *Handle) { h.Reset(nil) }, false),
		)

		It("releases ownership without closing", func() {
			h := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
			fd := h.Release()
			defer func() { _ = unix.Close(fd) }()
			Expect(h.Valid()).To(BeFalse())
			h.Close()
			Expect(isOpen(fd)).To(BeTrue())
		})

	})

	When("becoming unreachable", func() {

		It("closes the owned fd", func() {
			fd := func() int {
				h := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
				return h.Fd()
			}()
			Eventually(func() bool {
				runtime.GC()
				return isOpen(fd)
			}).Within(2 * time.Second).ProbeEvery(50 * time.Millisecond).
				Should(BeFalse())
		})

		It("doesn't close a released fd", func() {
			fd := func() int {
				h := Successful(Open(".", unix.O_RDONLY|unix.O_CLOEXEC))
				return h.Release()
			}()
			defer func() { _ = unix.Close(fd) }()
			runtime.GC()
			runtime.GC()
			Consistently(func() bool { return isOpen(fd) }).
				Within(250 * time.Millisecond).ProbeEvery(50 * time.Millisecond).
				Should(BeTrue())
		})

	})

	It("logs, but doesn't report, close failures", func() {
		var out safe.Buffer
		oldDefault := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
		DeferCleanup(func() { slog.SetDefault(oldDefault) })

		h := Adopt(666_666)
		Expect(h.Close).NotTo(Panic())
		Expect(h.Valid()).To(BeFalse())
		Expect(out.String()).To(And(
			ContainSubstring("cannot close file descriptor"),
			ContainSubstring("fd=666666"),
			ContainSubstring("bad file descriptor")))
	})

})

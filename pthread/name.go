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

package pthread

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"unsafe"

	"github.com/thediveo/systematic"
	"golang.org/x/sys/unix"
)

// MaxNameLen is the maximum length of a thread name in bytes, as the Linux
// kernel allows 16 bytes including the terminating zero.
const MaxNameLen = 15

// SetName sets the name of the OS-level thread with the specified TID, which
// must belong to this process. Use [unix.Gettid] to learn the TID of the
// calling thread.
//
// On failure, SetName returns an [*systematic.OsError] tagged “setThreadName”.
// In particular, names longer than [MaxNameLen] fail with [unix.ERANGE] and
// leave the thread name unchanged.
func SetName(tid int, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if tid == unix.Gettid() {
		return setCurrentName(name)
	}
	commpath := commPath(tid)
	fd, err := unix.Open(commpath, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return systematic.NewOsError("setThreadName", commpath, err)
	}
	defer func() { _ = unix.Close(fd) }()
	if _, err := unix.Write(fd, []byte(name)); err != nil {
		return systematic.NewOsError("setThreadName", commpath, err)
	}
	return nil
}

// SetCurrentName sets the name of the calling OS-level thread. The caller's go
// routine should be locked to its OS-level thread using
// [runtime.LockOSThread], as otherwise the name ends up on whatever thread the
// go routine happens to be scheduled on.
func SetCurrentName(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return setCurrentName(name)
}

// Name returns the name of the OS-level thread with the specified TID, which
// must belong to this process.
//
// On failure, Name returns an [*systematic.OsError] tagged “getThreadName”.
func Name(tid int) (string, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if tid == unix.Gettid() {
		return CurrentName()
	}
	commpath := commPath(tid)
	comm, err := os.ReadFile(commpath)
	if err != nil {
		return "", systematic.NewOsError("getThreadName", commpath, err)
	}
	return strings.TrimSuffix(string(comm), "\n"), nil
}

// CurrentName returns the name of the calling OS-level thread.
func CurrentName() (string, error) {
	var name [MaxNameLen + 1]byte
	if err := unix.Prctl(unix.PR_GET_NAME, uintptr(unsafe.Pointer(&name[0])), 0, 0, 0); err != nil {
		return "", systematic.NewOsError("getThreadName", "", err)
	}
	return unix.ByteSliceToString(name[:]), nil
}

func checkName(name string) error {
	if len(name) > MaxNameLen {
		return &systematic.OsError{Op: "setThreadName", Errno: unix.ERANGE}
	}
	if strings.IndexByte(name, 0) >= 0 {
		return &systematic.OsError{Op: "setThreadName", Errno: unix.EINVAL}
	}
	return nil
}

func setCurrentName(name string) error {
	cname, err := unix.BytePtrFromString(name)
	if err != nil {
		return systematic.NewOsError("setThreadName", "", err)
	}
	if err := unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(cname)), 0, 0, 0); err != nil {
		return systematic.NewOsError("setThreadName", "", err)
	}
	return nil
}

func commPath(tid int) string {
	return "/proc/self/task/" + strconv.Itoa(tid) + "/comm"
}

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

package systematic

import (
	"errors"

	"golang.org/x/sys/unix"
)

// OsError reports a failed resource-acquiring operation, such as opening a
// file, mapping memory, or naming a thread. It carries the OS error number as
// well as a short tag naming the failing operation, such as “open”, “mmap”, or
// “setThreadName”.
//
// OsError unwraps into its [unix.Errno], so callers can simply check for
// specific OS errors using [errors.Is], for instance:
//
//	if errors.Is(err, unix.ENOENT) { ... }
type OsError struct {
	Op    string     // failing operation, such as “open”.
	Path  string     // optional path the operation was carried out on.
	Errno unix.Errno // OS error number.
}

// NewOsError returns a new *OsError for the failed operation op, optionally
// carried out on the specified path. If err does not carry an OS error number,
// then EINVAL is used instead.
func NewOsError(op string, path string, err error) *OsError {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		errno = unix.EINVAL
	}
	return &OsError{Op: op, Path: path, Errno: errno}
}

func (e *OsError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Errno.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Errno.Error()
}

// Unwrap returns the OS error number.
func (e *OsError) Unwrap() error { return e.Errno }

// Copyright 2026 The Meridian Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// withLock runs fn while holding an advisory flock of the given kind
// (unix.LOCK_SH or unix.LOCK_EX) on file. The lock is released when fn
// returns; closing the file would release it as well.
func withLock(file *os.File, how int, fn func() error) error {
	for {
		err := unix.Flock(int(file.Fd()), how)
		if err == nil {
			break
		}
		if err == unix.EINTR {
			continue
		}
		return fmt.Errorf("locking %s: %w", file.Name(), err)
	}
	defer unix.Flock(int(file.Fd()), unix.LOCK_UN)
	return fn()
}

// appendLine appends line plus a newline to path under an exclusive
// lock, creating the file with mode 0600 if needed. If the file does
// not end in a newline (hand-edited), one is inserted first so the new
// entry never joins the previous line.
func appendLine(path, line string) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	return withLock(file, unix.LOCK_EX, func() error {
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		prefix := ""
		if size := info.Size(); size > 0 {
			last := make([]byte, 1)
			if _, err := file.ReadAt(last, size-1); err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if last[0] != '\n' {
				prefix = "\n"
			}
		}
		if _, err := file.WriteString(prefix + line + "\n"); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	})
}

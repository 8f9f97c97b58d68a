//go:build windows || js

package utils

import "os"

// Advisory locking is only implemented with flock(2); elsewhere the lock file
// is still written so a stale PID can be inspected by hand.
func tryLock(*os.File) error { return nil }

func unlock(*os.File) error { return nil }

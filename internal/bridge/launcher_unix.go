//go:build !windows

package bridge

import "syscall"

// detachedAttr puts the child in its own session so closing the UI's
// terminal does not take the loop down with it.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

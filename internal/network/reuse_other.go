//go:build (!unix && !windows) || solaris

package network

import "syscall"

func reuseAddr(_, _ string, _ syscall.RawConn) error { return nil }

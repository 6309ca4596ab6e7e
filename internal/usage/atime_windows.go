//go:build windows

package usage

import (
	"os"
	"syscall"
	"time"
)

func accessTime(st os.FileInfo) time.Time {
	sys, ok := st.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return st.ModTime()
	}
	return time.Unix(0, sys.LastAccessTime.Nanoseconds())
}

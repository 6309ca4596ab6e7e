//go:build darwin

package usage

import (
	"os"
	"syscall"
	"time"
)

func accessTime(st os.FileInfo) time.Time {
	sys, ok := st.Sys().(*syscall.Stat_t)
	if !ok {
		return st.ModTime()
	}
	return time.Unix(sys.Atimespec.Sec, sys.Atimespec.Nsec)
}

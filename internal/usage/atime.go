package usage

import (
	"os"
	"time"
)

// FileAccessTime returns the atime of a path. This is the weakest signal:
// backup tools and indexers touch atimes, and many volumes mount noatime.
func FileAccessTime(path string) (time.Time, error) {
	st, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return accessTime(st).UTC(), nil
}

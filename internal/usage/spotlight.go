package usage

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// mdls prints kMDItemLastUsedDate in this layout.
const mdlsLayout = "2006-01-02 15:04:05 -0700"

// SpotlightLastUsed asks Spotlight when an app bundle was last opened.
// The second return is false when Spotlight has no record for the path,
// which is common for freshly indexed or never-launched apps.
func SpotlightLastUsed(ctx context.Context, path string) (time.Time, bool, error) {
	out, err := exec.CommandContext(ctx, "mdls", "-name", "kMDItemLastUsedDate", "-raw", path).Output()
	if err != nil {
		if ctx.Err() != nil {
			return time.Time{}, false, ctx.Err()
		}
		return time.Time{}, false, fmt.Errorf("mdls %s: %w", path, err)
	}
	return parseMdlsDate(string(out))
}

func parseMdlsDate(out string) (time.Time, bool, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "(null)" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(mdlsLayout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse mdls date %q: %w", s, err)
	}
	return t.UTC(), true, nil
}

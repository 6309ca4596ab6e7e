package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ApplicationsHandler inventories macOS .app bundles in /Applications and
// ~/Applications. Removal moves the bundle to the Trash through Finder so
// the operation stays reversible; restore moves it back out.
type ApplicationsHandler struct {
	dirs []string
}

func NewApplicationsHandler() *ApplicationsHandler {
	dirs := []string{"/Applications"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "Applications"))
	}
	return &ApplicationsHandler{dirs: dirs}
}

func (h *ApplicationsHandler) Source() Source { return Applications }

func (h *ApplicationsHandler) Available() bool {
	for _, dir := range h.dirs {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return true
		}
	}
	return false
}

func (h *ApplicationsHandler) Scan(ctx context.Context) ([]Record, error) {
	var records []Record
	for _, dir := range h.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !strings.HasSuffix(e.Name(), ".app") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			rec := Record{
				Name:       strings.TrimSuffix(e.Name(), ".app"),
				Source:     Applications,
				Version:    h.bundleVersion(ctx, path),
				BinaryPath: path,
			}
			if info, err := e.Info(); err == nil {
				rec.InstallDate = info.ModTime().UTC()
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// bundleVersion reads CFBundleShortVersionString from the bundle's
// Info.plist; apps without one report an empty version.
func (h *ApplicationsHandler) bundleVersion(ctx context.Context, appPath string) string {
	plist := filepath.Join(appPath, "Contents", "Info")
	out, err := runCommand(ctx, "defaults", "read", plist, "CFBundleShortVersionString")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (h *ApplicationsHandler) Remove(ctx context.Context, name, path string) error {
	if path == "" {
		path = filepath.Join("/Applications", name+".app")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("application bundle not found: %s", path)
	}
	script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, path)
	return runQuiet(ctx, "osascript", "-e", script)
}

func (h *ApplicationsHandler) Restore(ctx context.Context, name, _, path string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	trashed := filepath.Join(home, ".Trash", name+".app")
	if _, err := os.Stat(trashed); err != nil {
		return fmt.Errorf("%s not found in Trash; reinstall it manually", name)
	}
	if path == "" {
		path = filepath.Join("/Applications", name+".app")
	}
	return os.Rename(trashed, path)
}

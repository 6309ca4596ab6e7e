package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NpmHandler scans global npm packages via `npm list -g --depth=0 --json`.
type NpmHandler struct{}

func NewNpmHandler() *NpmHandler { return &NpmHandler{} }

func (h *NpmHandler) Source() Source  { return Npm }
func (h *NpmHandler) Available() bool { return commandExists("npm") }

type npmList struct {
	Dependencies map[string]struct {
		Version string `json:"version"`
	} `json:"dependencies"`
}

func (h *NpmHandler) Scan(ctx context.Context) ([]Record, error) {
	// npm exits nonzero on peer-dependency problems while still emitting
	// valid JSON, so parse errors trump exit status.
	out, err := runCommand(ctx, "npm", "list", "-g", "--depth=0", "--json")
	var list npmList
	if jerr := json.Unmarshal(out, &list); jerr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse npm list JSON: %w", jerr)
	}

	prefix := npmGlobalPrefix(ctx)
	records := make([]Record, 0, len(list.Dependencies))
	for name, dep := range list.Dependencies {
		if name == "npm" || name == "corepack" {
			continue
		}
		rec := Record{
			Name:    name,
			Source:  Npm,
			Version: dep.Version,
		}
		if prefix != "" {
			p := filepath.Join(prefix, "lib", "node_modules", name)
			if st, err := os.Stat(p); err == nil {
				rec.BinaryPath = p
				rec.InstallDate = st.ModTime().UTC()
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func npmGlobalPrefix(ctx context.Context) string {
	out, err := runCommand(ctx, "npm", "prefix", "-g")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (h *NpmHandler) Remove(ctx context.Context, name, _ string) error {
	return runQuiet(ctx, "npm", "uninstall", "-g", name)
}

func (h *NpmHandler) Restore(ctx context.Context, name, version, _ string) error {
	spec := name
	if version != "" {
		spec = name + "@" + version
	}
	return runQuiet(ctx, "npm", "install", "-g", spec)
}

package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// PipxHandler scans isolated Python applications via `pipx list --short`,
// which emits one "name version" pair per line.
type PipxHandler struct{}

func NewPipxHandler() *PipxHandler { return &PipxHandler{} }

func (h *PipxHandler) Source() Source  { return Pipx }
func (h *PipxHandler) Available() bool { return commandExists("pipx") }

func (h *PipxHandler) Scan(ctx context.Context) ([]Record, error) {
	out, err := runCommand(ctx, "pipx", "list", "--short")
	if err != nil {
		return nil, err
	}

	home, _ := os.UserHomeDir()
	var records []Record
	for _, rec := range parsePipxList(string(out)) {
		if home != "" {
			venv := filepath.Join(home, ".local", "pipx", "venvs", rec.Name)
			if st, err := os.Stat(venv); err == nil {
				rec.BinaryPath = venv
				rec.InstallDate = st.ModTime().UTC()
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parsePipxList(out string) []Record {
	var records []Record
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		records = append(records, Record{
			Name:    fields[0],
			Source:  Pipx,
			Version: fields[1],
		})
	}
	return records
}

func (h *PipxHandler) Remove(ctx context.Context, name, _ string) error {
	return runQuiet(ctx, "pipx", "uninstall", name)
}

func (h *PipxHandler) Restore(ctx context.Context, name, version, _ string) error {
	spec := name
	if version != "" {
		spec = name + "==" + version
	}
	return runQuiet(ctx, "pipx", "install", spec)
}

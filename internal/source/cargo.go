package source

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// CargoHandler scans `cargo install --list`, whose output alternates
// "name vX.Y.Z:" headers with indented binary lines.
type CargoHandler struct{}

func NewCargoHandler() *CargoHandler { return &CargoHandler{} }

func (h *CargoHandler) Source() Source  { return Cargo }
func (h *CargoHandler) Available() bool { return commandExists("cargo") }

var cargoHeaderRe = regexp.MustCompile(`^(\S+) v([0-9][^\s:]*)`)

func (h *CargoHandler) Scan(ctx context.Context) ([]Record, error) {
	out, err := runCommand(ctx, "cargo", "install", "--list")
	if err != nil {
		return nil, err
	}

	home, _ := os.UserHomeDir()
	var records []Record
	for _, rec := range parseCargoList(string(out)) {
		if home != "" && rec.BinaryPath != "" {
			bin := filepath.Join(home, ".cargo", "bin", rec.BinaryPath)
			if st, err := os.Stat(bin); err == nil {
				rec.BinaryPath = bin
				rec.InstallDate = st.ModTime().UTC()
			} else {
				rec.BinaryPath = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseCargoList returns records whose BinaryPath holds the bare binary
// name from the first indented line; Scan resolves it under ~/.cargo/bin.
func parseCargoList(out string) []Record {
	var records []Record
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if len(records) > 0 && records[len(records)-1].BinaryPath == "" {
				records[len(records)-1].BinaryPath = strings.TrimSpace(line)
			}
			continue
		}
		m := cargoHeaderRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		records = append(records, Record{
			Name:    m[1],
			Source:  Cargo,
			Version: m[2],
		})
	}
	return records
}

func (h *CargoHandler) Remove(ctx context.Context, name, _ string) error {
	return runQuiet(ctx, "cargo", "uninstall", name)
}

func (h *CargoHandler) Restore(ctx context.Context, name, version, _ string) error {
	args := []string{"install", name}
	if version != "" {
		args = append(args, "--version", version)
	}
	return runQuiet(ctx, "cargo", args...)
}

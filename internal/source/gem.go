package source

import (
	"context"
	"strings"
)

// GemHandler scans installed Ruby gems via `gem list --local`, which
// emits "name (version[, version...])" lines. Default gems shipped with
// the interpreter are marked "default: v" and skipped.
type GemHandler struct{}

func NewGemHandler() *GemHandler { return &GemHandler{} }

func (h *GemHandler) Source() Source  { return Gem }
func (h *GemHandler) Available() bool { return commandExists("gem") }

func (h *GemHandler) Scan(ctx context.Context) ([]Record, error) {
	out, err := runCommand(ctx, "gem", "list", "--local")
	if err != nil {
		return nil, err
	}
	return parseGemList(string(out)), nil
}

func parseGemList(out string) []Record {
	var records []Record
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		open := strings.Index(line, " (")
		if open < 0 || !strings.HasSuffix(line, ")") {
			continue
		}
		name := line[:open]
		versions := line[open+2 : len(line)-1]
		if strings.Contains(versions, "default:") {
			continue
		}
		// Multiple installed versions are comma separated; the newest
		// is listed first.
		version := versions
		if i := strings.Index(versions, ","); i >= 0 {
			version = versions[:i]
		}
		records = append(records, Record{
			Name:    name,
			Source:  Gem,
			Version: strings.TrimSpace(version),
		})
	}
	return records
}

func (h *GemHandler) Remove(ctx context.Context, name, _ string) error {
	return runQuiet(ctx, "gem", "uninstall", "-x", name)
}

func (h *GemHandler) Restore(ctx context.Context, name, version, _ string) error {
	args := []string{"install", name}
	if version != "" {
		args = append(args, "--version", version)
	}
	return runQuiet(ctx, "gem", args...)
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// PipHandler scans user-visible pip packages via `pip3 list --format=json`.
// Bootstrap packages (pip, setuptools, wheel) are excluded because
// removing them breaks the interpreter's own package management.
type PipHandler struct{}

func NewPipHandler() *PipHandler { return &PipHandler{} }

func (h *PipHandler) Source() Source { return Pip }

func (h *PipHandler) Available() bool {
	return commandExists("pip3") || commandExists("pip")
}

func (h *PipHandler) pip() string {
	if commandExists("pip3") {
		return "pip3"
	}
	return "pip"
}

type pipPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

var pipBootstrap = map[string]bool{
	"pip":        true,
	"setuptools": true,
	"wheel":      true,
}

func (h *PipHandler) Scan(ctx context.Context) ([]Record, error) {
	out, err := runCommand(ctx, h.pip(), "list", "--format=json")
	if err != nil {
		return nil, err
	}
	var pkgs []pipPackage
	if err := json.Unmarshal(out, &pkgs); err != nil {
		return nil, fmt.Errorf("failed to parse pip list JSON: %w", err)
	}

	records := make([]Record, 0, len(pkgs))
	for _, p := range pkgs {
		if pipBootstrap[strings.ToLower(p.Name)] {
			continue
		}
		records = append(records, Record{
			Name:    p.Name,
			Source:  Pip,
			Version: p.Version,
		})
	}
	return records, nil
}

func (h *PipHandler) Remove(ctx context.Context, name, _ string) error {
	return runQuiet(ctx, h.pip(), "uninstall", "-y", name)
}

func (h *PipHandler) Restore(ctx context.Context, name, version, _ string) error {
	spec := name
	if version != "" {
		spec = name + "==" + version
	}
	return runQuiet(ctx, h.pip(), "install", spec)
}

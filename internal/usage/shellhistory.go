package usage

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// HistoryEntry is one timestamped command from a shell history file.
// Entries without a timestamp are dropped; a command with no date cannot
// anchor a last-used estimate.
type HistoryEntry struct {
	Command   string
	Timestamp time.Time
}

// CollectShellHistory reads zsh, bash, and fish history under home and
// returns every timestamped entry. Missing files are skipped silently;
// most hosts only have one or two of them.
func CollectShellHistory(home string) []HistoryEntry {
	var entries []HistoryEntry
	if f, err := os.Open(filepath.Join(home, ".zsh_history")); err == nil {
		entries = append(entries, ParseZshHistory(f)...)
		f.Close()
	}
	if f, err := os.Open(filepath.Join(home, ".bash_history")); err == nil {
		entries = append(entries, ParseBashHistory(f)...)
		f.Close()
	}
	if f, err := os.Open(filepath.Join(home, ".local", "share", "fish", "fish_history")); err == nil {
		entries = append(entries, ParseFishHistory(f)...)
		f.Close()
	}
	return entries
}

// ParseZshHistory parses EXTENDED_HISTORY format:
//
//	: 1700000000:0;git status
//
// Multiline commands continue with a trailing backslash and are folded
// into the entry's first line; matching works on command names, so the
// continuation text is irrelevant.
func ParseZshHistory(f io.Reader) []HistoryEntry {
	var entries []HistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, ": ") {
			continue
		}
		rest := line[2:]
		colon := strings.Index(rest, ":")
		semi := strings.Index(rest, ";")
		if colon < 0 || semi < colon {
			continue
		}
		epoch, err := strconv.ParseInt(rest[:colon], 10, 64)
		if err != nil {
			continue
		}
		cmd := strings.TrimSuffix(rest[semi+1:], "\\")
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		entries = append(entries, HistoryEntry{
			Command:   cmd,
			Timestamp: time.Unix(epoch, 0).UTC(),
		})
	}
	return entries
}

// ParseBashHistory parses history written with HISTTIMEFORMAT, where a
// "#<epoch>" comment line precedes each command.
func ParseBashHistory(f io.Reader) []HistoryEntry {
	var entries []HistoryEntry
	var pending time.Time
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			if epoch, err := strconv.ParseInt(strings.TrimPrefix(line, "#"), 10, 64); err == nil {
				pending = time.Unix(epoch, 0).UTC()
			}
			continue
		}
		if pending.IsZero() || strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, HistoryEntry{
			Command:   strings.TrimSpace(line),
			Timestamp: pending,
		})
		pending = time.Time{}
	}
	return entries
}

// ParseFishHistory parses fish's YAML-ish history:
//
//	- cmd: git status
//	  when: 1700000000
func ParseFishHistory(f io.Reader) []HistoryEntry {
	var entries []HistoryEntry
	var pendingCmd string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "- cmd: ") {
			pendingCmd = strings.TrimPrefix(line, "- cmd: ")
			continue
		}
		trimmed := strings.TrimSpace(line)
		if pendingCmd != "" && strings.HasPrefix(trimmed, "when: ") {
			if epoch, err := strconv.ParseInt(strings.TrimPrefix(trimmed, "when: "), 10, 64); err == nil {
				entries = append(entries, HistoryEntry{
					Command:   pendingCmd,
					Timestamp: time.Unix(epoch, 0).UTC(),
				})
			}
			pendingCmd = ""
		}
	}
	return entries
}

// InvokesBinary reports whether a history command runs the named binary,
// looking past sudo, env, and env-var prefixes and pipelines.
func InvokesBinary(command, binary string) bool {
	for _, segment := range splitPipeline(command) {
		fields := strings.Fields(segment)
		for len(fields) > 0 {
			head := fields[0]
			if head == "sudo" || head == "env" || head == "exec" ||
				head == "nohup" || strings.Contains(head, "=") {
				fields = fields[1:]
				continue
			}
			if filepath.Base(head) == binary {
				return true
			}
			break
		}
	}
	return false
}

func splitPipeline(command string) []string {
	return strings.FieldsFunc(command, func(r rune) bool {
		return r == '|' || r == ';' || r == '&'
	})
}

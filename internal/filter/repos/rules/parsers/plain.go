package parsers

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/sinkhole/internal/filter/common/log"
)

// ParseList parses a newline-delimited hostname list into canonical
// entries.
//
// Behavior:
//   - Supports comments starting with '#' (inline or whole-line)
//   - Trims surrounding whitespace, lower-cases, removes trailing dots
//   - Strips leading "*." / "." wildcard markers; matching is implicit
//     suffix, so the marker carries no extra meaning
//   - Lines whose first field is an IP address are treated as
//     /etc/hosts entries: the IP is ignored and every following field
//     is taken as a hostname (single-label names like "localhost" are
//     skipped in this mode)
//   - Skips empty lines; de-duplicates while preserving first-seen
//     order
//
// A bare public suffix (e.g. "com") is accepted as written. It blocks
// the entire TLD; the loader warns about such entries.
func ParseList(r io.Reader, source string, logger logpkg.Logger) ([]string, error) {
	scanner := bufio.NewScanner(r)

	seen := make(map[string]struct{})
	out := make([]string, 0, 256)
	logger.Debug(map[string]any{"source": source}, "parse_list_start")

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())

		// Detect empty or full-line comment before stripping inline comments
		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}

		line = stripInlineComment(line)

		for _, name := range hostnamesInLine(line) {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				logger.Debug(map[string]any{"line": lineNum, "name": name}, "skip_duplicate")
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_list_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_list_done")
	return out, nil
}

// hostnamesInLine extracts canonical hostnames from one comment-free
// line, handling both plain and hosts-file formats.
func hostnamesInLine(line string) []string {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 0:
		return nil
	case len(fields) >= 2 && isIPField(fields[0]):
		// hosts-file form: drop the IP, keep multi-label hostnames
		names := make([]string, 0, len(fields)-1)
		for _, raw := range fields[1:] {
			name := normalizeEntry(raw)
			if name == "" || !strings.Contains(name, ".") {
				continue
			}
			names = append(names, name)
		}
		return names
	default:
		// plain form: the whole first field is the hostname
		if name := normalizeEntry(fields[0]); name != "" {
			return []string{name}
		}
		return nil
	}
}

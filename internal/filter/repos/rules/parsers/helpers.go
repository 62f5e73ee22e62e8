package parsers

import (
	"net/netip"
	"strings"

	"github.com/haukened/sinkhole/internal/filter/common/utils"
)

// stripLineBOM removes a UTF-8 byte-order mark from the start of a line.
func stripLineBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

// classifyLine reports whether the line is empty or a whole-line comment.
func classifyLine(line string) (isEmpty, isComment bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true, false
	}
	if strings.HasPrefix(trimmed, "#") {
		return false, true
	}
	return false, false
}

// stripInlineComment drops everything from the first '#' onward.
func stripInlineComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

// normalizeEntry strips wildcard markers and canonicalizes one raw
// list token. Returns "" for tokens that normalize away to nothing.
func normalizeEntry(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "*.")
	raw = strings.TrimPrefix(raw, ".")
	return utils.CanonicalHostname(raw)
}

// isIPField reports whether a token is an IPv4/IPv6 address, which
// marks a hosts-file formatted line.
func isIPField(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

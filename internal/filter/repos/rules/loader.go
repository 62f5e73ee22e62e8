// Package rules loads RuleSet snapshots from plain-text list files.
package rules

import (
	"os"

	logpkg "github.com/haukened/sinkhole/internal/filter/common/log"
	"github.com/haukened/sinkhole/internal/filter/common/metrics"
	"github.com/haukened/sinkhole/internal/filter/common/utils"
	"github.com/haukened/sinkhole/internal/filter/domain"
	"github.com/haukened/sinkhole/internal/filter/repos/rules/parsers"
)

// Loader builds RuleSet snapshots from a block source and an allow
// source. Loading never fails: an unreadable source degrades to an
// empty set for that side, so the worst outcome is "block nothing
// new", never a dead filter.
type Loader struct {
	blockPath string
	allowPath string
	logger    logpkg.Logger
}

// New constructs a Loader over the two source paths.
func New(blockPath, allowPath string, logger logpkg.Logger) *Loader {
	return &Loader{blockPath: blockPath, allowPath: allowPath, logger: logger}
}

// Load reads both sources and returns a fresh immutable RuleSet.
func (l *Loader) Load() *domain.RuleSet {
	blocked := l.loadSide(l.blockPath, "blocklist")
	allowed := l.loadSide(l.allowPath, "allowlist")

	for _, name := range blocked {
		if utils.IsBarePublicSuffix(name) {
			// Legal per the matching algorithm, but it blackholes the
			// entire TLD. Almost certainly an operator mistake.
			l.logger.Warn(map[string]any{
				"entry":  name,
				"source": l.blockPath,
			}, "blocklist entry is a bare public suffix; it will match every hostname under it")
		}
	}

	rs := domain.NewRuleSet(blocked, allowed)
	l.logger.Info(map[string]any{
		"blocked": rs.BlockedCount(),
		"allowed": rs.AllowedCount(),
	}, "rule set loaded")
	return rs
}

// loadSide reads and parses one source file. Any failure is recorded
// and recovered as an empty side.
func (l *Loader) loadSide(path, which string) []string {
	f, err := os.Open(path)
	if err != nil {
		l.logger.Warn(map[string]any{
			"source": path,
			"side":   which,
			"error":  err.Error(),
		}, "rule source unavailable; side degrades to empty")
		metrics.ObserveLoadError(which)
		return nil
	}
	defer f.Close()

	entries, err := parsers.ParseList(f, path, l.logger)
	if err != nil {
		l.logger.Warn(map[string]any{
			"source": path,
			"side":   which,
			"error":  err.Error(),
		}, "rule source unreadable; side degrades to empty")
		metrics.ObserveLoadError(which)
		return nil
	}

	l.logger.Info(map[string]any{
		"source":  path,
		"side":    which,
		"entries": len(entries),
	}, "rule source parsed")
	return entries
}

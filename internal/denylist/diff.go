package denylist

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/pmezard/go-difflib/difflib"
)

func (s *Store) logDiff(prev, next map[string]struct{}) {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	diff, err := entriesDiff(prev, next)
	if err != nil {
		s.logger.Debug("failed to diff denylist entries", "path", s.path, "error", err)
		return
	}
	if diff == "" {
		return
	}
	s.logger.Debug("denylist entries changed", "path", s.path, "diff", diff)
}

// entriesDiff returns a unified diff of two entry sets, or "" when they are
// equal.
func entriesDiff(prev, next map[string]struct{}) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        sortedLines(prev),
		B:        sortedLines(next),
		FromFile: "previous",
		ToFile:   "current",
		Context:  0,
	})
}

func sortedLines(entries map[string]struct{}) []string {
	lines := slices.Sorted(maps.Keys(entries))
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}

// Package moderation runs the two-tier content check: a keyword
// prefilter over the request text, then the per-profile classifier.
// Every smart-tier decision is written back to the profile's sample
// store, which feeds the next training round.
package moderation

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/guardianbridge/guardianbridge/guard"
)

// KeywordFilter a case-insensitive literal matcher loaded from a
// keyword file: one pattern per line, blank lines and #-comments
// skipped. The file is reloaded when its mtime changes.
type KeywordFilter struct {
	mu       sync.Mutex
	path     string
	mtime    time.Time
	patterns []keywordPattern
}

type keywordPattern struct {
	lowered  string
	original string
}

// filterCache caches filters per keyword file, oldest evicted first
type filterCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*KeywordFilter
	order   []string
}

var filters = &filterCache{max: 100, entries: map[string]*KeywordFilter{}}

func init() {
	guard.Register(filters)
}

// OpenKeywordFilter the filter for a keyword file, cached per path
func OpenKeywordFilter(path string) *KeywordFilter {
	filters.mu.Lock()
	defer filters.mu.Unlock()

	if filter, has := filters.entries[path]; has {
		return filter
	}

	if len(filters.order) >= filters.max {
		oldest := filters.order[0]
		filters.order = filters.order[1:]
		delete(filters.entries, oldest)
	}

	filter := &KeywordFilter{path: path}
	filters.entries[path] = filter
	filters.order = append(filters.order, path)
	return filter
}

// Match the first pattern contained in the text, in file order.
// Returns the pattern as written in the file, or "" when none match.
// A missing or unreadable keyword file matches nothing.
func (filter *KeywordFilter) Match(text string) string {
	filter.mu.Lock()
	defer filter.mu.Unlock()

	filter.reload()
	if len(filter.patterns) == 0 {
		return ""
	}

	lowered := strings.ToLower(text)
	for _, pattern := range filter.patterns {
		if strings.Contains(lowered, pattern.lowered) {
			return pattern.original
		}
	}
	return ""
}

// reload re-read the keyword file when its mtime changed. Caller holds
// the lock.
func (filter *KeywordFilter) reload() {
	stat, err := os.Stat(filter.path)
	if err != nil {
		filter.patterns = nil
		filter.mtime = time.Time{}
		return
	}
	if stat.ModTime().Equal(filter.mtime) {
		return
	}

	data, err := os.ReadFile(filter.path)
	if err != nil {
		filter.patterns = nil
		filter.mtime = time.Time{}
		return
	}

	patterns := []keywordPattern{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, keywordPattern{
			lowered:  strings.ToLower(line),
			original: line,
		})
	}

	filter.patterns = patterns
	filter.mtime = stat.ModTime()
}

// Name implements guard.Cache
func (filters *filterCache) Name() string { return "moderation.keywords" }

// SizeHint implements guard.Cache
func (filters *filterCache) SizeHint() int64 {
	filters.mu.Lock()
	defer filters.mu.Unlock()

	size := int64(0)
	for path, filter := range filters.entries {
		size += int64(len(path))
		filter.mu.Lock()
		for _, pattern := range filter.patterns {
			size += int64(len(pattern.lowered) + len(pattern.original))
		}
		filter.mu.Unlock()
	}
	return size
}

// Clear implements guard.Cache
func (filters *filterCache) Clear() {
	filters.mu.Lock()
	defer filters.mu.Unlock()
	filters.entries = map[string]*KeywordFilter{}
	filters.order = nil
}

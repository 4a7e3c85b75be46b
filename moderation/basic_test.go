package moderation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeKeywords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keywords.txt")
	err := os.WriteFile(path, []byte(content), 0o644)
	assert.Nil(t, err)
	return path
}

func TestBasicBlocksKeyword(t *testing.T) {
	path := writeKeywords(t, "# comment line\n\nforbidden\nbanned phrase\n")

	result := Basic("this is Forbidden stuff", path, "BASIC_MODERATION_BLOCKED")
	assert.True(t, result.Violation)
	assert.Equal(t, "keyword", result.Source)
	assert.Equal(t, "[BASIC_MODERATION_BLOCKED] Matched keyword: forbidden", result.Reason)

	result = Basic("totally fine", path, "BASIC_MODERATION_BLOCKED")
	assert.False(t, result.Violation)
}

func TestBasicCommentAndBlankLines(t *testing.T) {
	path := writeKeywords(t, "# not a pattern\n\n   \nreal\n")

	assert.False(t, Basic("# not a pattern", path, "X").Violation)
	assert.True(t, Basic("the real thing", path, "X").Violation)
}

func TestBasicReloadOnChange(t *testing.T) {
	path := writeKeywords(t, "old\n")

	assert.True(t, Basic("the old one", path, "X").Violation)
	assert.False(t, Basic("the new one", path, "X").Violation)

	err := os.WriteFile(path, []byte("new\n"), 0o644)
	assert.Nil(t, err)
	// mtime resolution can swallow a quick rewrite
	err = os.Chtimes(path, time.Now(), time.Now().Add(time.Second))
	assert.Nil(t, err)

	assert.True(t, Basic("the new one", path, "X").Violation)
	assert.False(t, Basic("the old one", path, "X").Violation)
}

func TestBasicMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")
	result := Basic("anything at all", path, "X")
	assert.False(t, result.Violation)
}

func TestKeywordFilterCached(t *testing.T) {
	path := writeKeywords(t, "x\n")
	assert.Same(t, OpenKeywordFilter(path), OpenKeywordFilter(path))
}

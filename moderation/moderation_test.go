package moderation

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guardianbridge/guardianbridge/moderation/classifier"
	"github.com/guardianbridge/guardianbridge/moderation/profile"
	"github.com/guardianbridge/guardianbridge/moderation/store"
)

const testProfileJSON = `{
	"probability": {"low_risk_threshold": 0.3, "high_risk_threshold": 0.7},
	"bow_training": {
		"min_samples": 20,
		"max_samples": 20000,
		"batch_size": 16,
		"max_seconds": 30,
		"max_db_items": 100000,
		"max_features": 50000,
		"use_char_ngram": true,
		"retrain_interval_minutes": 60
	}
}`

func setupProfile(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "default")
	assert.Nil(t, os.MkdirAll(root, 0o755))
	assert.Nil(t, os.WriteFile(filepath.Join(root, "profile.json"), []byte(testProfileJSON), 0o644))
	t.Cleanup(store.CloseAll)
	t.Cleanup(classifier.ResetCache)
	return base, "default"
}

func trainProfile(t *testing.T, base string, name string) {
	t.Helper()
	p, err := profile.Load(base, name)
	assert.Nil(t, err)

	samples, err := store.Open(p.DBPath())
	assert.Nil(t, err)
	for i := 0; i < 30; i++ {
		assert.Nil(t, samples.Save(fmt.Sprintf("weapon attack harm violence %d", i), 1, "seed"))
		assert.Nil(t, samples.Save(fmt.Sprintf("flower garden peace sunshine %d", i), 0, "seed"))
	}
	assert.Nil(t, classifier.Train(p))
}

func TestSmartWithoutModel(t *testing.T) {
	base, name := setupProfile(t)

	result, err := Smart(base, name, "anything")
	assert.Nil(t, err)
	assert.False(t, result.Violation)
	assert.Equal(t, "bow", result.Source)

	// a fresh profile records the pass so live traffic builds the
	// first training corpus
	p, _ := profile.Load(base, name)
	samples, _ := store.Open(p.DBPath())
	row, err := samples.FindByText("anything")
	assert.Nil(t, err)
	assert.NotNil(t, row)
	assert.Equal(t, 0, row.Label)
	assert.Equal(t, "bow:pass", row.Category)
}

func TestSmartBlocksAndRecords(t *testing.T) {
	base, name := setupProfile(t)
	trainProfile(t, base, name)

	result, err := Smart(base, name, "weapon attack harm violence")
	assert.Nil(t, err)
	assert.True(t, result.Violation)
	assert.Contains(t, result.Reason, "0.7")
	assert.Greater(t, result.Confidence, 0.7)

	p, _ := profile.Load(base, name)
	samples, _ := store.Open(p.DBPath())
	row, err := samples.FindByText("weapon attack harm violence")
	assert.Nil(t, err)
	assert.NotNil(t, row)
	assert.Equal(t, 1, row.Label)
	assert.Equal(t, "bow:block", row.Category)
}

func TestSmartPassesAndRecords(t *testing.T) {
	base, name := setupProfile(t)
	trainProfile(t, base, name)

	result, err := Smart(base, name, "flower garden peace sunshine")
	assert.Nil(t, err)
	assert.False(t, result.Violation)
	assert.Less(t, result.Confidence, 0.7)

	p, _ := profile.Load(base, name)
	samples, _ := store.Open(p.DBPath())
	row, err := samples.FindByText("flower garden peace sunshine")
	assert.Nil(t, err)
	assert.NotNil(t, row)
	assert.Equal(t, 0, row.Label)
	assert.Equal(t, "bow:pass", row.Category)
}

func TestSmartDeterministic(t *testing.T) {
	base, name := setupProfile(t)
	trainProfile(t, base, name)

	first, err := Smart(base, name, "some borderline text")
	assert.Nil(t, err)
	second, err := Smart(base, name, "some borderline text")
	assert.Nil(t, err)
	assert.Equal(t, first.Violation, second.Violation)
	assert.Equal(t, first.Confidence, second.Confidence)
}

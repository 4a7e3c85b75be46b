package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	base := t.TempDir()

	p, err := Load(base, "default")
	assert.Nil(t, err)
	assert.Equal(t, "default", p.Name)
	assert.Equal(t, 0.3, p.Settings.Probability.LowRiskThreshold)
	assert.Equal(t, 100, p.Settings.Training.MinSamples)
	assert.True(t, p.Settings.Training.UseCharNgram)
	assert.Equal(t, filepath.Join(base, "default", "history.db"), p.DBPath())
	assert.Equal(t, filepath.Join(base, "default", "model.bin"), p.ModelPath())
	assert.False(t, p.ModelExists())
}

func TestLoadOverrides(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "strict")
	assert.Nil(t, os.MkdirAll(root, 0o755))
	assert.Nil(t, os.WriteFile(filepath.Join(root, "profile.json"), []byte(`{
		"probability": {"low_risk_threshold": 0.1, "high_risk_threshold": 0.9},
		"bow_training": {"min_samples": 50, "max_seconds": 10}
	}`), 0o644))

	p, err := Load(base, "strict")
	assert.Nil(t, err)
	assert.Equal(t, 0.1, p.Settings.Probability.LowRiskThreshold)
	assert.Equal(t, 0.9, p.Settings.Probability.HighRiskThreshold)
	assert.Equal(t, 50, p.Settings.Training.MinSamples)
	assert.Equal(t, 10, p.Settings.Training.MaxSeconds)
	// untouched values keep their defaults
	assert.Equal(t, 20000, p.Settings.Training.MaxSamples)
}

func TestLoadInvalid(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "broken")
	assert.Nil(t, os.MkdirAll(root, 0o755))
	assert.Nil(t, os.WriteFile(filepath.Join(root, "profile.json"), []byte(`nope`), 0o644))

	_, err := Load(base, "broken")
	assert.NotNil(t, err)

	_, err = Load(base, "")
	assert.NotNil(t, err)
}

func TestList(t *testing.T) {
	base := t.TempDir()

	names, err := List(base)
	assert.Nil(t, err)
	assert.Len(t, names, 0)

	for _, name := range []string{"a", "b"} {
		root := filepath.Join(base, name)
		assert.Nil(t, os.MkdirAll(root, 0o755))
		assert.Nil(t, os.WriteFile(filepath.Join(root, "profile.json"), []byte(`{}`), 0o644))
	}
	// a directory without profile.json is not a profile
	assert.Nil(t, os.MkdirAll(filepath.Join(base, "c"), 0o755))

	names, err = List(base)
	assert.Nil(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	names, err = List(filepath.Join(base, "missing"))
	assert.Nil(t, err)
	assert.Len(t, names, 0)
}

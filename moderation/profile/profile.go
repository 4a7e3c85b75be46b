// Package profile defines the per-profile moderation layout: a named
// directory holding profile.json, the sample database and the trained
// classifier artifacts.
package profile

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// Probability the decision thresholds of the smart tier
type Probability struct {
	LowRiskThreshold  float64 `json:"low_risk_threshold"`
	HighRiskThreshold float64 `json:"high_risk_threshold"`
}

// Training the classifier training settings
type Training struct {
	MinSamples             int     `json:"min_samples"`
	MaxSamples             int     `json:"max_samples"`
	BatchSize              int     `json:"batch_size"`
	MaxSeconds             int     `json:"max_seconds"`
	MaxDBItems             int     `json:"max_db_items"`
	MaxFeatures            int     `json:"max_features"`
	UseCharNgram           bool    `json:"use_char_ngram"`
	UseWordNgram           bool    `json:"use_word_ngram"`
	WordNgramRange         [2]int  `json:"word_ngram_range"`
	RetrainIntervalMinutes float64 `json:"retrain_interval_minutes"`
}

// Settings the content of profile.json
type Settings struct {
	Probability Probability `json:"probability"`
	Training    Training    `json:"bow_training"`
}

// Profile a named moderation profile
type Profile struct {
	Name     string
	Root     string // the profile directory
	Settings Settings
}

// DefaultSettings the settings applied when profile.json omits a value
func DefaultSettings() Settings {
	return Settings{
		Probability: Probability{LowRiskThreshold: 0.3, HighRiskThreshold: 0.7},
		Training: Training{
			MinSamples:             100,
			MaxSamples:             20000,
			BatchSize:              1000,
			MaxSeconds:             300,
			MaxDBItems:             100000,
			MaxFeatures:            50000,
			UseCharNgram:           true,
			UseWordNgram:           false,
			WordNgramRange:         [2]int{1, 1},
			RetrainIntervalMinutes: 60,
		},
	}
}

// Load a profile from <base>/<name>. profile.json is optional; missing
// or partial settings fall back to the defaults.
func Load(base string, name string) (*Profile, error) {
	if name == "" {
		return nil, fmt.Errorf("profile name is required")
	}

	root := filepath.Join(base, name)
	settings := DefaultSettings()

	data, err := os.ReadFile(filepath.Join(root, "profile.json"))
	if err == nil {
		if err := jsoniter.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("profile %s: %s", name, err.Error())
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return &Profile{Name: name, Root: root, Settings: settings}, nil
}

// List the profile names under base. A directory is a profile when it
// contains a profile.json.
func List(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		config := filepath.Join(base, entry.Name(), "profile.json")
		if _, err := os.Stat(config); err == nil {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// DBPath the sample database path
func (profile *Profile) DBPath() string {
	return filepath.Join(profile.Root, "history.db")
}

// ModelPath the classifier model path
func (profile *Profile) ModelPath() string {
	return filepath.Join(profile.Root, "model.bin")
}

// VectorizerPath the vectorizer path
func (profile *Profile) VectorizerPath() string {
	return filepath.Join(profile.Root, "vectorizer.bin")
}

// ModelExists reports whether both classifier artifacts exist
func (profile *Profile) ModelExists() bool {
	if _, err := os.Stat(profile.ModelPath()); err != nil {
		return false
	}
	if _, err := os.Stat(profile.VectorizerPath()); err != nil {
		return false
	}
	return true
}

// EnsureRoot create the profile directory when missing
func (profile *Profile) EnsureRoot() error {
	return os.MkdirAll(profile.Root, 0o755)
}

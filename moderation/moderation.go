package moderation

import (
	"fmt"

	"github.com/yaoapp/kun/log"

	"github.com/guardianbridge/guardianbridge/moderation/classifier"
	"github.com/guardianbridge/guardianbridge/moderation/profile"
	"github.com/guardianbridge/guardianbridge/moderation/store"
)

// Result one moderation decision
type Result struct {
	Violation  bool    `json:"violation"`
	Uncertain  bool    `json:"uncertain"`
	Reason     string  `json:"reason,omitempty"`
	Source     string  `json:"source"` // "keyword" or "bow"
	Confidence float64 `json:"confidence,omitempty"`
}

// Basic run the keyword tier against the text. errorCode is echoed in
// the block reason.
func Basic(text string, keywordsFile string, errorCode string) Result {
	matched := OpenKeywordFilter(keywordsFile).Match(text)
	if matched == "" {
		return Result{Source: "keyword"}
	}
	return Result{
		Violation: true,
		Source:    "keyword",
		Reason:    fmt.Sprintf("[%s] Matched keyword: %s", errorCode, matched),
	}
}

// Smart run the classifier tier for a profile. Without a trained model
// the text passes. Every scored outcome is appended to the profile's
// sample store before the result is returned, so the decision is
// durable before the response is finalized.
func Smart(base string, profileName string, text string) (Result, error) {
	p, err := profile.Load(base, profileName)
	if err != nil {
		return Result{Source: "bow"}, err
	}

	loaded, err := classifier.Load(p)
	if err != nil {
		return Result{Source: "bow"}, err
	}
	if loaded == nil {
		// nothing trained yet, pass through; the outcome is still
		// recorded so live traffic builds the first training corpus
		result := Result{Source: "bow"}
		if err := record(p, text, result); err != nil {
			return result, err
		}
		return result, nil
	}

	confidence := loaded.Score(text)
	thresholds := p.Settings.Probability

	result := Result{Source: "bow", Confidence: confidence}
	switch {
	case confidence > thresholds.HighRiskThreshold:
		result.Violation = true
		result.Reason = fmt.Sprintf("Classifier probability %.4f exceeds %.2f", confidence, thresholds.HighRiskThreshold)
	case confidence >= thresholds.LowRiskThreshold:
		// uncertain band passes, the outcome is still recorded
		result.Uncertain = true
	}

	if err := record(p, text, result); err != nil {
		return result, err
	}
	return result, nil
}

// record append the scored outcome to the profile's sample store
func record(p *profile.Profile, text string, result Result) error {
	if err := p.EnsureRoot(); err != nil {
		return err
	}
	samples, err := store.Open(p.DBPath())
	if err != nil {
		return err
	}

	// the category keeps the decision band for the retraining corpus
	label := 0
	category := result.Source + ":pass"
	if result.Violation {
		label = 1
		category = result.Source + ":block"
	} else if result.Uncertain {
		category = result.Source + ":uncertain"
	}
	if err := samples.Save(text, label, category); err != nil {
		return err
	}
	log.Trace("moderation: profile %s recorded label=%d category=%s p=%.4f", p.Name, label, category, result.Confidence)
	return nil
}

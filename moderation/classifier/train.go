package classifier

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/yaoapp/kun/log"

	"github.com/guardianbridge/guardianbridge/moderation/profile"
	"github.com/guardianbridge/guardianbridge/moderation/store"
)

// ErrNotEnoughSamples training aborted because the store holds fewer
// samples than the profile minimum
var ErrNotEnoughSamples = errors.New("not enough samples")

// trainSeed fixes the sample shuffle so repeated runs over the same
// store produce the same model
const trainSeed = 42

// Train fit a fresh classifier for the profile from its sample store
// and persist the artifacts. The pass is bounded by the profile batch
// budget: when max_seconds elapses, the model trained so far is kept.
func Train(p *profile.Profile) error {
	training := p.Settings.Training

	samples, err := store.Open(p.DBPath())
	if err != nil {
		return err
	}

	if training.MaxDBItems > 0 {
		if removed, err := samples.TrimTo(training.MaxDBItems); err != nil {
			return err
		} else if removed > 0 {
			log.Info("classifier: profile %s trimmed %d old samples", p.Name, removed)
		}
	}

	count, err := samples.Count()
	if err != nil {
		return err
	}
	if count < training.MinSamples {
		return fmt.Errorf("%w: profile %s has %d of %d", ErrNotEnoughSamples, p.Name, count, training.MinSamples)
	}

	limit := count
	if training.MaxSamples > 0 && limit > training.MaxSamples {
		limit = training.MaxSamples
	}
	ids, err := samples.RecentIDs(limit)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(trainSeed))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	batchSize := training.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	deadline := time.Now().Add(time.Duration(training.MaxSeconds) * time.Second)

	ngramMin, ngramMax := 1, 1
	if training.UseWordNgram {
		ngramMin, ngramMax = training.WordNgramRange[0], training.WordNgramRange[1]
	}

	vectorizer := NewVectorizer(training.MaxFeatures, ngramMin, ngramMax)
	var model *Model
	trained := 0
	started := time.Now()

	for offset := 0; offset < len(ids); offset += batchSize {
		if model != nil && training.MaxSeconds > 0 && time.Now().After(deadline) {
			log.Warn("classifier: profile %s training stopped after %s, %d of %d samples",
				p.Name, time.Since(started), trained, len(ids))
			break
		}

		end := offset + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := samples.LoadByIDs(ids[offset:end])
		if err != nil {
			return err
		}

		docs := make([]string, len(batch))
		labels := make([]int, len(batch))
		for i, sample := range batch {
			docs[i] = Tokenize(sample.Text, training.UseCharNgram)
			labels[i] = sample.Label
		}

		// the first batch defines the vocabulary; later batches are
		// projected onto it
		if model == nil {
			vectorizer.Fit(docs)
			model = NewModel(vectorizer.Size())
		}
		vectors := vectorizer.Transform(docs)
		model.PartialFit(vectors, labels, BalancedWeights(labels))
		trained += len(batch)
	}

	if model == nil {
		return fmt.Errorf("profile %s: no samples loaded", p.Name)
	}

	if err := p.EnsureRoot(); err != nil {
		return err
	}
	if err := SaveVectorizer(p.VectorizerPath(), vectorizer); err != nil {
		return err
	}
	if err := SaveModel(p.ModelPath(), model); err != nil {
		return err
	}

	log.Info("classifier: profile %s trained on %d samples in %s (%d features)",
		p.Name, trained, time.Since(started), vectorizer.Size())
	return nil
}

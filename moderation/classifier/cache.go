package classifier

import (
	"os"
	"sync"
	"time"

	"github.com/guardianbridge/guardianbridge/guard"
	"github.com/guardianbridge/guardianbridge/moderation/profile"
)

// Loaded a classifier ready to score text
type Loaded struct {
	Vectorizer *Vectorizer
	Model      *Model
	Training   profile.Training
}

// Score the probability that the text is a violation
func (loaded *Loaded) Score(text string) float64 {
	doc := Tokenize(text, loaded.Training.UseCharNgram)
	return loaded.Model.PredictProba(loaded.Vectorizer.transformOne(doc))
}

type cacheEntry struct {
	loaded     *Loaded
	modelMtime time.Time
	vecMtime   time.Time
}

// modelCache caches loaded classifiers per profile, invalidated by the
// artifact mtimes. Oldest entries are evicted first when full.
type modelCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*cacheEntry
	order   []string
}

var cache = &modelCache{max: 100, entries: map[string]*cacheEntry{}}

func init() {
	guard.Register(cache)
}

// Load the classifier of a profile, from cache when the artifacts have
// not changed on disk. Returns nil when no trained model exists.
func Load(p *profile.Profile) (*Loaded, error) {
	modelStat, err := os.Stat(p.ModelPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	vecStat, err := os.Stat(p.VectorizerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cache.mu.Lock()
	entry, has := cache.entries[p.Name]
	if has && entry.modelMtime.Equal(modelStat.ModTime()) && entry.vecMtime.Equal(vecStat.ModTime()) {
		loaded := entry.loaded
		cache.mu.Unlock()
		return loaded, nil
	}
	cache.mu.Unlock()

	vectorizer, err := LoadVectorizer(p.VectorizerPath())
	if err != nil {
		return nil, err
	}
	model, err := LoadModel(p.ModelPath())
	if err != nil {
		return nil, err
	}

	loaded := &Loaded{Vectorizer: vectorizer, Model: model, Training: p.Settings.Training}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if _, has := cache.entries[p.Name]; !has {
		if len(cache.order) >= cache.max {
			oldest := cache.order[0]
			cache.order = cache.order[1:]
			delete(cache.entries, oldest)
		}
		cache.order = append(cache.order, p.Name)
	}
	cache.entries[p.Name] = &cacheEntry{
		loaded:     loaded,
		modelMtime: modelStat.ModTime(),
		vecMtime:   vecStat.ModTime(),
	}
	return loaded, nil
}

// ResetCache drop every cached classifier
func ResetCache() {
	cache.Clear()
}

// Name implements guard.Cache
func (cache *modelCache) Name() string { return "classifier.models" }

// SizeHint implements guard.Cache
func (cache *modelCache) SizeHint() int64 {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	size := int64(0)
	for _, entry := range cache.entries {
		size += int64(len(entry.loaded.Model.Weights)) * 8
		size += int64(len(entry.loaded.Vectorizer.IDF)) * 8
		for term := range entry.loaded.Vectorizer.Vocabulary {
			size += int64(len(term)) + 16
		}
	}
	return size
}

// Clear implements guard.Cache
func (cache *modelCache) Clear() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries = map[string]*cacheEntry{}
	cache.order = nil
}

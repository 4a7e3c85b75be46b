package classifier

import (
	"math"
	"sort"
	"strings"
)

// Feature one non-zero component of a sparse vector
type Feature struct {
	Index int
	Value float64
}

// Vector a sparse feature vector, ordered by index
type Vector []Feature

// Vectorizer a TF-IDF vectorizer over whitespace-separated tokens.
// Fit builds the vocabulary from one batch of documents; Transform maps
// documents onto it. Fields are exported for artifact encoding.
type Vectorizer struct {
	MaxFeatures int
	MinDF       int
	MaxDFRatio  float64
	NgramMin    int
	NgramMax    int
	Vocabulary  map[string]int
	IDF         []float64
}

// NewVectorizer a vectorizer with the given vocabulary bounds and the
// token n-gram range (1,1 means unigrams only)
func NewVectorizer(maxFeatures int, ngramMin int, ngramMax int) *Vectorizer {
	if ngramMin < 1 {
		ngramMin = 1
	}
	if ngramMax < ngramMin {
		ngramMax = ngramMin
	}
	return &Vectorizer{
		MaxFeatures: maxFeatures,
		MinDF:       2,
		MaxDFRatio:  0.8,
		NgramMin:    ngramMin,
		NgramMax:    ngramMax,
	}
}

// Fit build the vocabulary and IDF weights from the documents
func (vectorizer *Vectorizer) Fit(docs []string) {
	df := map[string]int{}    // documents containing the term
	total := map[string]int{} // occurrences across the corpus

	for _, doc := range docs {
		counts := vectorizer.termCounts(doc)
		for term, count := range counts {
			df[term]++
			total[term] += count
		}
	}

	maxDF := int(math.Floor(vectorizer.MaxDFRatio * float64(len(docs))))
	if maxDF < 1 {
		maxDF = 1
	}

	terms := []string{}
	for term, count := range df {
		if count < vectorizer.MinDF || count > maxDF {
			continue
		}
		terms = append(terms, term)
	}

	// keep the most frequent terms, corpus-count descending, term
	// ascending for determinism
	sort.Slice(terms, func(i, j int) bool {
		if total[terms[i]] != total[terms[j]] {
			return total[terms[i]] > total[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if vectorizer.MaxFeatures > 0 && len(terms) > vectorizer.MaxFeatures {
		terms = terms[:vectorizer.MaxFeatures]
	}
	sort.Strings(terms)

	vectorizer.Vocabulary = make(map[string]int, len(terms))
	vectorizer.IDF = make([]float64, len(terms))
	n := float64(len(docs))
	for i, term := range terms {
		vectorizer.Vocabulary[term] = i
		// smoothed idf, never zero
		vectorizer.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
}

// Transform map documents onto the fitted vocabulary. Terms outside the
// vocabulary are dropped; each vector is L2-normalized.
func (vectorizer *Vectorizer) Transform(docs []string) []Vector {
	vectors := make([]Vector, len(docs))
	for i, doc := range docs {
		vectors[i] = vectorizer.transformOne(doc)
	}
	return vectors
}

// Size the vocabulary size
func (vectorizer *Vectorizer) Size() int {
	return len(vectorizer.Vocabulary)
}

func (vectorizer *Vectorizer) transformOne(doc string) Vector {
	counts := map[int]int{}
	for term, count := range vectorizer.termCounts(doc) {
		if index, has := vectorizer.Vocabulary[term]; has {
			counts[index] += count
		}
	}

	vector := make(Vector, 0, len(counts))
	norm := 0.0
	for index, count := range counts {
		value := float64(count) * vectorizer.IDF[index]
		vector = append(vector, Feature{Index: index, Value: value})
		norm += value * value
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i].Value /= norm
		}
	}

	sort.Slice(vector, func(i, j int) bool { return vector[i].Index < vector[j].Index })
	return vector
}

func (vectorizer *Vectorizer) termCounts(doc string) map[string]int {
	tokens := strings.Fields(doc)
	counts := map[string]int{}
	for n := vectorizer.NgramMin; n <= vectorizer.NgramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			counts[strings.Join(tokens[i:i+n], " ")]++
		}
	}
	return counts
}

package classifier

import "math"

// Model an online logistic regression trained with SGD on the log
// loss. Fields are exported for artifact encoding.
type Model struct {
	Weights []float64
	Bias    float64
	Alpha   float64 // L2 regularization strength
	Eta0    float64 // initial learning rate
	Steps   int64   // samples seen, drives the learning rate decay
}

// NewModel a model over nFeatures inputs
func NewModel(nFeatures int) *Model {
	return &Model{
		Weights: make([]float64, nFeatures),
		Alpha:   1e-4,
		Eta0:    1.0,
	}
}

// PartialFit run one SGD pass over the batch. classWeights maps each
// label to its sample weight; pass nil for uniform weights.
func (model *Model) PartialFit(vectors []Vector, labels []int, classWeights map[int]float64) {
	for i, vector := range vectors {
		model.Steps++
		eta := model.Eta0 / (1 + model.Eta0*model.Alpha*float64(model.Steps))

		weight := 1.0
		if classWeights != nil {
			if w, has := classWeights[labels[i]]; has {
				weight = w
			}
		}

		p := sigmoid(model.decision(vector))
		gradient := (p - float64(labels[i])) * weight

		// regularization applied lazily, touched features only
		for _, feature := range vector {
			w := model.Weights[feature.Index]
			model.Weights[feature.Index] = w - eta*(gradient*feature.Value+model.Alpha*w)
		}
		model.Bias -= eta * gradient
	}
}

// PredictProba the probability of the positive class
func (model *Model) PredictProba(vector Vector) float64 {
	return sigmoid(model.decision(vector))
}

func (model *Model) decision(vector Vector) float64 {
	sum := model.Bias
	for _, feature := range vector {
		if feature.Index < len(model.Weights) {
			sum += model.Weights[feature.Index] * feature.Value
		}
	}
	return sum
}

// BalancedWeights the class weights that equalize the contribution of
// both classes in the batch: n / (2 * count(class))
func BalancedWeights(labels []int) map[int]float64 {
	counts := map[int]int{}
	for _, label := range labels {
		counts[label]++
	}

	weights := map[int]float64{}
	n := float64(len(labels))
	for label, count := range counts {
		weights[label] = n / (2 * float64(count))
	}
	return weights
}

func sigmoid(z float64) float64 {
	if z < -30 {
		return 0
	}
	if z > 30 {
		return 1
	}
	return 1 / (1 + math.Exp(-z))
}

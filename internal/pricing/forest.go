package pricing

import (
	"math"
	"math/rand"
	"sort"

	"github.com/intellifone/appraisal/internal/models"
)

// TrainerConfig controls the regression ensemble. A fixed seed keeps the
// fit reproducible for identical input.
type TrainerConfig struct {
	Trees   int
	Seed    int64
	MinRows int
}

func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Trees:   100,
		Seed:    42,
		MinRows: 15,
	}
}

// Forest is an ensemble of CART regression trees fit on bootstrap samples,
// splitting on mean squared error. One Forest is owned by a single
// estimation call and discarded afterwards.
type Forest struct {
	trees []*treeNode
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
}

func (n *treeNode) isLeaf() bool { return n.left == nil }

// Train fits a forest on the feature table. Rows without a price are
// dropped first; price is the only mandatory field for training. Fewer
// usable rows than MinRows is an InsufficientDataError.
func Train(table FeatureTable, cfg TrainerConfig) (*Forest, error) {
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}

	var features []FeatureVector
	var prices []float64
	for i, p := range table.Prices {
		if math.IsNaN(p) {
			continue
		}
		features = append(features, table.Rows[i])
		prices = append(prices, p)
	}

	if len(features) < cfg.MinRows {
		return nil, &models.InsufficientDataError{Rows: len(features), Min: cfg.MinRows}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	mtry := len(table.Columns) / 3
	if mtry < 1 {
		mtry = 1
	}

	f := &Forest{trees: make([]*treeNode, 0, cfg.Trees)}
	for t := 0; t < cfg.Trees; t++ {
		sample := make([]int, len(features))
		for i := range sample {
			sample[i] = rng.Intn(len(features))
		}
		f.trees = append(f.trees, growTree(features, prices, sample, mtry, rng))
	}

	return f, nil
}

// Predict returns the mean prediction across all trees.
func (f *Forest) Predict(x FeatureVector) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

func (n *treeNode) predict(x FeatureVector) float64 {
	for !n.isLeaf() {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func growTree(features []FeatureVector, prices []float64, idx []int, mtry int, rng *rand.Rand) *treeNode {
	var sum float64
	for _, i := range idx {
		sum += prices[i]
	}
	mean := sum / float64(len(idx))

	if len(idx) < 2 {
		return &treeNode{value: mean}
	}

	feature, threshold, ok := bestSplit(features, prices, idx, mtry, rng)
	if !ok {
		return &treeNode{value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      growTree(features, prices, left, mtry, rng),
		right:     growTree(features, prices, right, mtry, rng),
	}
}

// bestSplit scans a random feature subset for the threshold minimizing the
// summed squared error of the two children. Prefix sums over the sorted
// column make each candidate split O(1).
func bestSplit(features []FeatureVector, prices []float64, idx []int, mtry int, rng *rand.Rand) (int, float64, bool) {
	nFeatures := len(features[0])
	candidates := rng.Perm(nFeatures)
	if mtry < len(candidates) {
		candidates = candidates[:mtry]
	}

	bestSSE := math.Inf(1)
	bestFeature := -1
	var bestThreshold float64

	order := make([]int, len(idx))
	for _, f := range candidates {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool {
			return features[order[a]][f] < features[order[b]][f]
		})

		var leftSum, leftSq float64
		totalSum, totalSq := 0.0, 0.0
		for _, i := range order {
			totalSum += prices[i]
			totalSq += prices[i] * prices[i]
		}

		for pos := 0; pos < len(order)-1; pos++ {
			p := prices[order[pos]]
			leftSum += p
			leftSq += p * p

			v, next := features[order[pos]][f], features[order[pos+1]][f]
			if v == next {
				continue
			}

			nl := float64(pos + 1)
			nr := float64(len(order) - pos - 1)
			sse := (leftSq - leftSum*leftSum/nl) +
				((totalSq - leftSq) - (totalSum-leftSum)*(totalSum-leftSum)/nr)

			if sse < bestSSE {
				bestSSE = sse
				bestFeature = f
				bestThreshold = (v + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/creasty/defaults"

	"github.com/wonny/stockcast/backend/internal/forecast"
)

// TreeConfig holds the boosted tree hyperparameters
type TreeConfig struct {
	Rounds       int     `yaml:"rounds" default:"100" validate:"min=1,max=5000"`
	MaxDepth     int     `yaml:"max_depth" default:"3" validate:"min=1,max=12"`
	LearningRate float64 `yaml:"learning_rate" default:"0.1" validate:"gt=0,lte=1"`
	MinLeaf      int     `yaml:"min_samples_leaf" default:"1" validate:"min=1"`
	ColSample    float64 `yaml:"colsample" default:"1.0" validate:"gt=0,lte=1"`
	Lambda       float64 `yaml:"lambda" default:"1.0" validate:"gte=0"` // L2 on leaf values
	Seed         int64   `yaml:"seed" default:"42"`
}

// DefaultTreeConfig returns the tag defaults
func DefaultTreeConfig() TreeConfig {
	var cfg TreeConfig
	_ = defaults.Set(&cfg)
	return cfg
}

// node is a split (left != nil) or a leaf
type node struct {
	feature     int
	threshold   float64
	left, right *node
	value       float64
}

func (n *node) predict(x []float64) float64 {
	for n.left != nil {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// Tree is a gradient-boosted ensemble of regression trees on squared loss.
// Each window value is one feature; output is a single step.
type Tree struct {
	cfg    TreeConfig
	window int
	rng    *rand.Rand

	base   float64
	trees  []*node
	fitted bool

	valX, valY         [][]float64
	trainLoss, valLoss []float64
}

var (
	_ forecast.Regressor   = (*Tree)(nil)
	_ forecast.LossTracker = (*Tree)(nil)
)

// NewTree creates an untrained ensemble for windows of the given length
func NewTree(window int, cfg TreeConfig) *Tree {
	if cfg.Rounds < 1 {
		cfg = DefaultTreeConfig()
	}
	return &Tree{
		cfg:    cfg,
		window: window,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// TrackValidation records a held-out set scored after every round
func (t *Tree) TrackValidation(features, labels [][]float64) {
	t.valX, t.valY = features, labels
}

// Losses returns per-round MSE on the training and validation sets
func (t *Tree) Losses() (train, validation []float64) {
	return append([]float64(nil), t.trainLoss...), append([]float64(nil), t.valLoss...)
}

// Fit boosts Rounds trees on labels of width 1
func (t *Tree) Fit(features, labels [][]float64) error {
	if err := checkShape(features, labels, t.window, 1); err != nil {
		return fmt.Errorf("tree fit (single-output only): %w", err)
	}

	n := len(features)
	y := make([]float64, n)
	for i, l := range labels {
		y[i] = l[0]
	}

	t.base = mean(y)
	t.trees = t.trees[:0]
	t.trainLoss = t.trainLoss[:0]
	t.valLoss = t.valLoss[:0]

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = t.base
	}
	valPred := make([]float64, len(t.valX))
	for i := range valPred {
		valPred[i] = t.base
	}

	resid := make([]float64, n)
	idx := make([]int, n)
	for round := 0; round < t.cfg.Rounds; round++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
			idx[i] = i
		}

		root := t.build(features, resid, idx, t.sampleColumns(), 0)
		t.trees = append(t.trees, root)

		var loss float64
		for i, x := range features {
			pred[i] += t.cfg.LearningRate * root.predict(x)
			d := y[i] - pred[i]
			loss += d * d
		}
		loss /= float64(n)
		if !finite(loss) {
			return fmt.Errorf("tree fit: round %d: %w", round, ErrDiverged)
		}
		t.trainLoss = append(t.trainLoss, loss)

		if len(t.valX) > 0 {
			var vloss float64
			var count int
			for i, x := range t.valX {
				if len(x) != t.window || len(t.valY[i]) == 0 {
					continue
				}
				valPred[i] += t.cfg.LearningRate * root.predict(x)
				d := t.valY[i][0] - valPred[i]
				vloss += d * d
				count++
			}
			if count > 0 {
				t.valLoss = append(t.valLoss, vloss/float64(count))
			}
		}
	}

	t.fitted = true
	return nil
}

// Predict returns one single-value row per feature row
func (t *Tree) Predict(features [][]float64) ([][]float64, error) {
	if !t.fitted {
		return nil, ErrNotFitted
	}
	if err := checkRows(features, t.window); err != nil {
		return nil, fmt.Errorf("tree predict: %w", err)
	}

	out := make([][]float64, len(features))
	for i, x := range features {
		v := t.base
		for _, root := range t.trees {
			v += t.cfg.LearningRate * root.predict(x)
		}
		out[i] = []float64{v}
	}
	return out, nil
}

// sampleColumns picks the feature subset for one round
func (t *Tree) sampleColumns() []int {
	k := int(math.Round(t.cfg.ColSample * float64(t.window)))
	k = min(max(k, 1), t.window)
	if k == t.window {
		cols := make([]int, t.window)
		for i := range cols {
			cols[i] = i
		}
		return cols
	}
	cols := t.rng.Perm(t.window)[:k]
	sort.Ints(cols)
	return cols
}

// build grows one tree on residuals r over the sample subset idx
func (t *Tree) build(x [][]float64, r []float64, idx []int, cols []int, depth int) *node {
	if len(idx) == 0 {
		return &node{}
	}

	var sum float64
	for _, i := range idx {
		sum += r[i]
	}
	leaf := &node{value: sum / (float64(len(idx)) + t.cfg.Lambda)}

	minLeaf := max(t.cfg.MinLeaf, 1)
	if depth >= t.cfg.MaxDepth || len(idx) < 2*minLeaf {
		return leaf
	}

	parentScore := sum * sum / (float64(len(idx)) + t.cfg.Lambda)
	bestGain := 1e-12
	bestFeature := -1
	var bestThreshold float64

	sorted := make([]int, len(idx))
	for _, f := range cols {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return x[sorted[a]][f] < x[sorted[b]][f] })

		var left float64
		for k := 1; k < len(sorted); k++ {
			left += r[sorted[k-1]]
			lo, hi := x[sorted[k-1]][f], x[sorted[k]][f]
			if k < minLeaf || len(sorted)-k < minLeaf || lo == hi {
				continue
			}
			right := sum - left
			gain := left*left/(float64(k)+t.cfg.Lambda) +
				right*right/(float64(len(sorted)-k)+t.cfg.Lambda) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (lo + hi) / 2
			}
		}
	}

	if bestFeature < 0 {
		return leaf
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if x[i][bestFeature] <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	return &node{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      t.build(x, r, leftIdx, cols, depth+1),
		right:     t.build(x, r, rightIdx, cols, depth+1),
	}
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/creasty/defaults"

	"github.com/wonny/stockcast/backend/internal/forecast"
)

// SequenceConfig holds the recurrent network hyperparameters
type SequenceConfig struct {
	Hidden       int     `yaml:"hidden" default:"16" validate:"min=1,max=256"`
	Epochs       int     `yaml:"epochs" default:"30" validate:"min=1,max=1000"`
	BatchSize    int     `yaml:"batch_size" default:"32" validate:"min=1"`
	LearningRate float64 `yaml:"learning_rate" default:"0.005" validate:"gt=0,lt=1"`
	ClipNorm     float64 `yaml:"clip_norm" default:"1.0" validate:"gte=0"` // 0 = no clipping
	Seed         int64   `yaml:"seed" default:"42"`
}

// DefaultSequenceConfig returns the tag defaults
func DefaultSequenceConfig() SequenceConfig {
	var cfg SequenceConfig
	_ = defaults.Set(&cfg)
	return cfg
}

// Adam 기본값
const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

type param struct {
	w, g, m, v []float64
}

func newParam(n int) *param {
	return &param{
		w: make([]float64, n),
		g: make([]float64, n),
		m: make([]float64, n),
		v: make([]float64, n),
	}
}

func (p *param) uniform(rng *rand.Rand, limit float64) {
	for i := range p.w {
		p.w[i] = (rng.Float64()*2 - 1) * limit
	}
}

func (p *param) adam(lr float64, t int) {
	c1 := 1 - math.Pow(adamBeta1, float64(t))
	c2 := 1 - math.Pow(adamBeta2, float64(t))
	for i, g := range p.g {
		p.m[i] = adamBeta1*p.m[i] + (1-adamBeta1)*g
		p.v[i] = adamBeta2*p.v[i] + (1-adamBeta2)*g*g
		p.w[i] -= lr * (p.m[i] / c1) / (math.Sqrt(p.v[i]/c2) + adamEps)
		p.g[i] = 0
	}
}

// Sequence is a single-layer recurrent network (tanh cell) with a dense
// horizon-wide output head, trained with backpropagation through time.
//
// Input: one scaled close per time step. Output: one value per forecast day.
type Sequence struct {
	cfg     SequenceConfig
	window  int
	outputs int
	rng     *rand.Rand

	wx, wh, bh *param // hidden = tanh(wx·x + wh·h + bh)
	wy, by     *param // y = wy·h_last + by
	fitted     bool

	valX, valY         [][]float64
	trainLoss, valLoss []float64
}

var (
	_ forecast.Regressor   = (*Sequence)(nil)
	_ forecast.LossTracker = (*Sequence)(nil)
)

// NewSequence creates an untrained network for windows of the given length
func NewSequence(window, outputs int, cfg SequenceConfig) *Sequence {
	if cfg.Hidden < 1 {
		cfg = DefaultSequenceConfig()
	}
	outputs = max(outputs, 1)
	h := cfg.Hidden

	s := &Sequence{
		cfg:     cfg,
		window:  window,
		outputs: outputs,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		wx:      newParam(h),
		wh:      newParam(h * h),
		bh:      newParam(h),
		wy:      newParam(outputs * h),
		by:      newParam(outputs),
	}

	// Glorot uniform; recurrent weights kept small so early BPTT stays stable
	s.wx.uniform(s.rng, math.Sqrt(6/float64(1+h)))
	s.wh.uniform(s.rng, 0.5/math.Sqrt(float64(h)))
	s.wy.uniform(s.rng, math.Sqrt(6/float64(h+outputs)))
	return s
}

// TrackValidation records a held-out set scored after every epoch
func (s *Sequence) TrackValidation(features, labels [][]float64) {
	s.valX, s.valY = features, labels
}

// Losses returns per-epoch MSE on the training and validation sets
func (s *Sequence) Losses() (train, validation []float64) {
	return append([]float64(nil), s.trainLoss...), append([]float64(nil), s.valLoss...)
}

// Fit trains on features (n × window) and labels (n × outputs)
func (s *Sequence) Fit(features, labels [][]float64) error {
	if err := checkShape(features, labels, s.window, s.outputs); err != nil {
		return fmt.Errorf("sequence fit: %w", err)
	}

	n := len(features)
	batch := min(max(s.cfg.BatchSize, 1), n)
	step := 0

	s.trainLoss = s.trainLoss[:0]
	s.valLoss = s.valLoss[:0]

	for epoch := 0; epoch < s.cfg.Epochs; epoch++ {
		order := s.rng.Perm(n)
		var epochLoss float64

		for start := 0; start < n; start += batch {
			end := min(start+batch, n)
			scale := 1 / float64(s.outputs*(end-start))

			for _, idx := range order[start:end] {
				hs, y := s.forward(features[idx])
				epochLoss += s.backward(features[idx], hs, y, labels[idx], scale)
			}

			step++
			s.clip()
			for _, p := range s.params() {
				p.adam(s.cfg.LearningRate, step)
			}
		}

		epochLoss /= float64(n)
		if !finite(epochLoss) {
			return fmt.Errorf("sequence fit: epoch %d: %w", epoch, ErrDiverged)
		}
		s.trainLoss = append(s.trainLoss, epochLoss)

		if len(s.valX) > 0 {
			s.valLoss = append(s.valLoss, s.mse(s.valX, s.valY))
		}
	}

	s.fitted = true
	return nil
}

// Predict returns one row of outputs per feature row
func (s *Sequence) Predict(features [][]float64) ([][]float64, error) {
	if !s.fitted {
		return nil, ErrNotFitted
	}
	if err := checkRows(features, s.window); err != nil {
		return nil, fmt.Errorf("sequence predict: %w", err)
	}

	out := make([][]float64, len(features))
	for i, x := range features {
		_, out[i] = s.forward(x)
	}
	return out, nil
}

func (s *Sequence) params() []*param {
	return []*param{s.wx, s.wh, s.bh, s.wy, s.by}
}

// forward returns hidden states h_0 … h_T (h_0 = 0) and the output
func (s *Sequence) forward(x []float64) ([][]float64, []float64) {
	h := s.cfg.Hidden
	hs := make([][]float64, len(x)+1)
	hs[0] = make([]float64, h)

	for t, xt := range x {
		prev := hs[t]
		cur := make([]float64, h)
		for i := 0; i < h; i++ {
			z := s.wx.w[i]*xt + s.bh.w[i]
			row := s.wh.w[i*h : (i+1)*h]
			for j, pj := range prev {
				z += row[j] * pj
			}
			cur[i] = math.Tanh(z)
		}
		hs[t+1] = cur
	}

	last := hs[len(x)]
	y := make([]float64, s.outputs)
	for o := range y {
		z := s.by.w[o]
		row := s.wy.w[o*h : (o+1)*h]
		for j, hj := range last {
			z += row[j] * hj
		}
		y[o] = z
	}
	return hs, y
}

// backward accumulates gradients of scale·Σ(y-target)² and returns the sample MSE
func (s *Sequence) backward(x []float64, hs [][]float64, y, target []float64, scale float64) float64 {
	h := s.cfg.Hidden
	last := hs[len(x)]

	dh := make([]float64, h)
	var loss float64
	for o := range y {
		diff := y[o] - target[o]
		loss += diff * diff
		d := 2 * diff * scale

		s.by.g[o] += d
		row := s.wy.w[o*h : (o+1)*h]
		grad := s.wy.g[o*h : (o+1)*h]
		for j := 0; j < h; j++ {
			grad[j] += d * last[j]
			dh[j] += d * row[j]
		}
	}

	dz := make([]float64, h)
	next := make([]float64, h)
	for t := len(x); t >= 1; t-- {
		cur, prev, xt := hs[t], hs[t-1], x[t-1]
		for i := range dz {
			dz[i] = dh[i] * (1 - cur[i]*cur[i])
		}
		clear(next)
		for i := 0; i < h; i++ {
			s.wx.g[i] += dz[i] * xt
			s.bh.g[i] += dz[i]
			row := s.wh.w[i*h : (i+1)*h]
			grad := s.wh.g[i*h : (i+1)*h]
			for j := 0; j < h; j++ {
				grad[j] += dz[i] * prev[j]
				next[j] += dz[i] * row[j]
			}
		}
		dh, next = next, dh
	}

	return loss / float64(len(y))
}

// clip rescales accumulated gradients to a global L2 norm of ClipNorm
func (s *Sequence) clip() {
	if s.cfg.ClipNorm <= 0 {
		return
	}
	var sq float64
	for _, p := range s.params() {
		for _, g := range p.g {
			sq += g * g
		}
	}
	norm := math.Sqrt(sq)
	if norm <= s.cfg.ClipNorm {
		return
	}
	k := s.cfg.ClipNorm / norm
	for _, p := range s.params() {
		for i := range p.g {
			p.g[i] *= k
		}
	}
}

func (s *Sequence) mse(features, labels [][]float64) float64 {
	if len(features) == 0 {
		return 0
	}
	var sum float64
	var count int
	for i, x := range features {
		_, y := s.forward(x)
		for o := range y {
			if o >= len(labels[i]) {
				break
			}
			d := y[o] - labels[i][o]
			sum += d * d
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

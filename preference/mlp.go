package preference

import (
	"math"
	"math/rand/v2"

	"github.com/lixenwraith/synth-evolve/parameter"
)

// param is one parameter group with its Adam moments
type param struct {
	w, m, v []float64
	decay   bool
}

func newParam(n int, decay bool) param {
	return param{
		w:     make([]float64, n),
		m:     make([]float64, n),
		v:     make([]float64, n),
		decay: decay,
	}
}

// adam applies one bias-corrected Adam step to element i
// Weight decay is added to the step for weight groups only
func (p *param) adam(i int, grad, lr, bc1, bc2 float64) {
	p.m[i] = parameter.MLPBeta1*p.m[i] + (1-parameter.MLPBeta1)*grad
	p.v[i] = parameter.MLPBeta2*p.v[i] + (1-parameter.MLPBeta2)*grad*grad
	mHat := p.m[i] / bc1
	vHat := p.v[i] / bc2
	step := mHat / (math.Sqrt(vHat) + parameter.MLPEpsilon)
	if p.decay {
		step += parameter.MLPWeightDecay * p.w[i]
	}
	p.w[i] -= lr * step
}

func (p *param) reset() {
	clear(p.w)
	clear(p.m)
	clear(p.v)
}

// MLP is a single-hidden-layer preference network: ReLU hidden, sigmoid output
// Not safe for concurrent use; Predict writes activation scratch used by Train
type MLP struct {
	inputs int
	hidden int

	ih param // inputs*hidden, row-major by input: ih.w[i*hidden+j]
	bh param // hidden
	ho param // hidden
	bo param // 1

	step int

	zHidden []float64
	aHidden []float64
	dHidden []float64
	output  float64
}

// NewMLP creates a network with Xavier-scaled input weights and zero output weights
func NewMLP(inputs, hidden int, rng *rand.Rand) *MLP {
	n := &MLP{
		inputs:  inputs,
		hidden:  hidden,
		ih:      newParam(inputs*hidden, true),
		bh:      newParam(hidden, false),
		ho:      newParam(hidden, true),
		bo:      newParam(1, false),
		zHidden: make([]float64, hidden),
		aHidden: make([]float64, hidden),
		dHidden: make([]float64, hidden),
		output:  0.5,
	}
	n.Reset(rng)
	return n
}

// Reset reinitializes weights and clears optimizer state
// Zero output weights make every untrained prediction exactly 0.5
func (n *MLP) Reset(rng *rand.Rand) {
	n.ih.reset()
	n.bh.reset()
	n.ho.reset()
	n.bo.reset()
	n.step = 0

	scale := math.Sqrt(2.0 / float64(n.inputs+n.hidden))
	for i := range n.ih.w {
		n.ih.w[i] = (rng.Float64()*2 - 1) * scale
	}
}

// Inputs returns the expected input length
func (n *MLP) Inputs() int {
	return n.inputs
}

// Step returns the number of training updates applied
func (n *MLP) Step() int {
	return n.step
}

// Predict runs the forward pass; missing inputs read as 0, extra inputs are ignored
func (n *MLP) Predict(input []float64) float64 {
	limit := min(len(input), n.inputs)

	for j := 0; j < n.hidden; j++ {
		sum := n.bh.w[j]
		for i := 0; i < limit; i++ {
			sum += input[i] * n.ih.w[i*n.hidden+j]
		}
		n.zHidden[j] = sum
		n.aHidden[j] = relu(sum)
	}

	sum := n.bo.w[0]
	for j := 0; j < n.hidden; j++ {
		sum += n.aHidden[j] * n.ho.w[j]
	}
	n.output = sigmoid(sum)
	return n.output
}

// Train performs one weighted binary cross-entropy update toward target
func (n *MLP) Train(input []float64, target, lr, sampleWeight float64) {
	n.Predict(input)
	n.step++

	dOut := (n.output - target) * sampleWeight
	dOut = max(-parameter.MLPGradClip, min(parameter.MLPGradClip, dOut))

	bc1 := 1 - math.Pow(parameter.MLPBeta1, float64(n.step))
	bc2 := 1 - math.Pow(parameter.MLPBeta2, float64(n.step))

	// Hidden deltas use output weights from before this update
	for j := 0; j < n.hidden; j++ {
		if n.zHidden[j] > 0 {
			n.dHidden[j] = dOut * n.ho.w[j]
		} else {
			n.dHidden[j] = 0
		}
	}

	for j := 0; j < n.hidden; j++ {
		n.ho.adam(j, dOut*n.aHidden[j], lr, bc1, bc2)
	}
	n.bo.adam(0, dOut, lr, bc1, bc2)

	limit := min(len(input), n.inputs)
	for j := 0; j < n.hidden; j++ {
		for i := 0; i < n.inputs; i++ {
			x := 0.0
			if i < limit {
				x = input[i]
			}
			n.ih.adam(i*n.hidden+j, n.dHidden[j]*x, lr, bc1, bc2)
		}
		n.bh.adam(j, n.dHidden[j], lr, bc1, bc2)
	}
}

// WeightCount returns the serialized element count for this shape:
// parameters, first moments, second moments, then the step counter
func (n *MLP) WeightCount() int {
	return WeightCount(n.inputs, n.hidden)
}

// WeightCount returns the serialized element count for a network shape
func WeightCount(inputs, hidden int) int {
	base := inputs*hidden + hidden + hidden + 1
	return 3*base + 1
}

// Weights serializes parameters and optimizer state in blob order
func (n *MLP) Weights() []float32 {
	out := make([]float32, 0, n.WeightCount())
	groups := n.groups()
	for _, g := range groups {
		out = appendFloats(out, g.w)
	}
	for _, g := range groups {
		out = appendFloats(out, g.m)
	}
	for _, g := range groups {
		out = appendFloats(out, g.v)
	}
	return append(out, float32(n.step))
}

// SetWeights restores a blob produced by Weights; false on count mismatch leaves the network untouched
func (n *MLP) SetWeights(blob []float32) bool {
	if len(blob) != n.WeightCount() {
		return false
	}

	idx := 0
	groups := n.groups()
	read := func(dst []float64) {
		for i := range dst {
			dst[i] = float64(blob[idx])
			idx++
		}
	}
	for _, g := range groups {
		read(g.w)
	}
	for _, g := range groups {
		read(g.m)
	}
	for _, g := range groups {
		read(g.v)
	}
	n.step = int(blob[idx])
	return true
}

func (n *MLP) groups() []*param {
	return []*param{&n.ih, &n.bh, &n.ho, &n.bo}
}

func appendFloats(dst []float32, src []float64) []float32 {
	for _, v := range src {
		dst = append(dst, float32(v))
	}
	return dst
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

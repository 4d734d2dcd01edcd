package audio

import (
	"math"

	"github.com/lixenwraith/synth-evolve/parameter"
)

// --- Envelope ---

// envelope is a one-pole exponential ADSR
// Attack aims past full scale and hands over to decay once the level crosses 1
type envelope struct {
	level  float64
	target float64
	coeff  float64

	attack  float64
	decay   float64
	sustain float64
	release float64
}

// attackTarget is the overshoot goal during attack
const attackTarget = 2.0

func (e *envelope) next() float64 {
	e.level = e.coeff*(e.level-e.target) + e.target
	if e.target >= attackTarget && e.level >= 1.0 {
		e.coeff = e.decay
		e.target = e.sustain
	}
	return e.level
}

func (e *envelope) trigger() {
	// Non-zero start keeps the voice active from the first sample
	e.level += 2 * parameter.AudioSilence
	e.target = attackTarget
	e.coeff = e.attack
}

func (e *envelope) off() {
	e.target = 0
	e.coeff = e.release
}

func (e *envelope) reset() {
	e.level = 0
	e.target = 0
	e.coeff = 0
}

func (e *envelope) active() bool {
	return e.level > parameter.AudioSilence
}

func (e *envelope) inAttack() bool {
	return e.target >= attackTarget
}

// --- Filter ---

// svf is a trapezoidal state variable low-pass filter
type svf struct {
	sampleRate float64
	a1, a2, a3 float64
	ic1, ic2   float64
}

func (f *svf) tune(cutoff, q float64) {
	g := math.Tan(math.Pi * cutoff / f.sampleRate)
	k := 1.0 / q
	f.a1 = 1.0 / (1.0 + g*(g+k))
	f.a2 = g * f.a1
	f.a3 = g * f.a2
}

func (f *svf) process(x float64) float64 {
	v3 := x - f.ic2
	v1 := f.a1*f.ic1 + f.a2*v3
	v2 := f.ic2 + f.a2*f.ic1 + f.a3*v3
	f.ic1 = 2*v1 - f.ic1
	f.ic2 = 2*v2 - f.ic2
	return v2
}

func (f *svf) reset() {
	f.a1, f.a2, f.a3 = 0, 0, 0
	f.ic1, f.ic2 = 0, 0
}

// --- Oscillator ---

// sawOsc is a PolyBLEP band-limited sawtooth
type sawOsc struct {
	phase float64
}

func (o *sawOsc) next(inc float64) float64 {
	out := 2*o.phase - 1
	out -= polyBLEP(o.phase, inc)

	o.phase += inc
	if o.phase >= 1.0 {
		o.phase -= math.Floor(o.phase)
	}
	return out
}

func (o *sawOsc) reset() {
	o.phase = 0
}

// polyBLEP smooths the discontinuity of a unit-phase waveform at t=0
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// envCoeff maps a 0-100 time control to a per-step smoothing coefficient
// step is the update interval in seconds
func envCoeff(value, step float64) float64 {
	return math.Exp(-step * math.Exp(5.5-0.075*value))
}

// softLimit keeps a sample in [-1,1] with a gentle knee above 0.8
func softLimit(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v > 0.8 {
		v = 0.8 + 0.2*(1.0-1.0/(1.0+(v-0.8)*5.0))
	} else if v < -0.8 {
		v = -0.8 - 0.2*(1.0-1.0/(1.0+(-v-0.8)*5.0))
	}
	return v
}

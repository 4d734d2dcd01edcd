package audio

import (
	"math"

	"github.com/lixenwraith/synth-evolve/genetic"
	"github.com/lixenwraith/synth-evolve/parameter"
)

// NoteFreq returns the equal-tempered frequency of a MIDI note, A4 = 440 Hz
// Notes outside 0-127 return 0
func NoteFreq(midi int) float64 {
	if midi < 0 || midi > 127 {
		return 0
	}
	return 440.0 * math.Exp2(float64(midi-69)/12.0)
}

// Patch holds synth controls derived from a genome
// Envelope fields are smoothing coefficients, not times
type Patch struct {
	OscMix float64 // second oscillator level (0-1)
	Detune float64 // second oscillator frequency ratio

	NoiseMix float64

	FilterQ         float64
	FilterKeyTrack  float64 // log-scale cutoff offset
	FilterEnvDepth  float64
	FilterLFODepth  float64
	FilterAttack    float64
	FilterDecay     float64
	FilterSustain   float64
	FilterRelease   float64
	EnvAttack       float64
	EnvDecay        float64
	EnvSustain      float64
	EnvRelease      float64
	LFOIncrement    float64 // radians per control step
	Vibrato         float64
	PulseModulation float64
	OutputTrim      float64
}

// PatchFromGenome maps normalized genes onto synth controls for a sample rate
// Missing genes read as 0.5
func PatchFromGenome(g genetic.Genome, sampleRate float64) Patch {
	gene := func(i int) float64 {
		if i < len(g) {
			return g[i]
		}
		return 0.5
	}
	scaled := func(i int, lo, hi float64) float64 {
		return lo + gene(i)*(hi-lo)
	}

	sampleStep := 1.0 / sampleRate
	controlStep := sampleStep * parameter.AudioControlRate

	var p Patch
	p.OscMix = gene(genetic.GeneOscMix)
	p.Detune = math.Exp2(-0.01 * scaled(genetic.GeneOscFine, -50, 50) / 12)

	noise := gene(genetic.GeneNoise)
	p.NoiseMix = noise * noise * 0.06

	reso := gene(genetic.GeneFilterReso)
	p.FilterQ = math.Exp(3 * reso)
	p.FilterKeyTrack = 0.08*scaled(genetic.GeneFilterFreq, 0, 100) - 1.5
	p.FilterEnvDepth = 0.06 * scaled(genetic.GeneFilterEnv, -100, 100)
	lfoDepth := gene(genetic.GeneFilterLFO)
	p.FilterLFODepth = 2.5 * lfoDepth * lfoDepth

	p.FilterAttack = envCoeff(scaled(genetic.GeneFilterAttack, 0, 100), controlStep)
	p.FilterDecay = envCoeff(scaled(genetic.GeneFilterDecay, 0, 100), controlStep)
	fs := gene(genetic.GeneFilterSustain)
	p.FilterSustain = fs * fs
	p.FilterRelease = envCoeff(scaled(genetic.GeneFilterRelease, 0, 100), controlStep)

	p.EnvAttack = envCoeff(scaled(genetic.GeneEnvAttack, 0, 100), sampleStep)
	p.EnvDecay = envCoeff(scaled(genetic.GeneEnvDecay, 15, 100), sampleStep)
	p.EnvSustain = gene(genetic.GeneEnvSustain)
	if release := scaled(genetic.GeneEnvRelease, 0, 100); release < 1 {
		p.EnvRelease = 0.75
	} else {
		p.EnvRelease = envCoeff(release, sampleStep)
	}

	lfoRate := math.Exp(7*gene(genetic.GeneLFORate) - 4)
	p.LFOIncrement = lfoRate * controlStep * 2 * math.Pi

	// Lower half of the range drives pulse modulation only
	vib := gene(genetic.GeneVibrato) - 0.5
	p.PulseModulation = 0.2 * vib * vib
	if vib > 0 {
		p.Vibrato = p.PulseModulation
	}

	p.OutputTrim = parameter.AudioOutputTrim * (3.2 - p.OscMix - 25*p.NoiseMix) / 3.2 * (1.5 - 0.5*reso)
	return p
}

// voice is one polyphonic slot: two saws into a filtered, enveloped path
type voice struct {
	note      int
	freq      float64
	amplitude float64
	cutoff    float64

	osc1, osc2 sawOsc
	filter     svf
	env        envelope
	filterEnv  envelope

	vibratoMod float64
	pulseMod   float64
}

func (v *voice) start(p *Patch, note, velocity int, sampleRate float64) {
	v.note = note
	v.freq = NoteFreq(note)
	v.filter.sampleRate = sampleRate

	vel := float64(velocity)
	v.cutoff = v.freq / math.Pi * math.Exp(parameter.AudioVelocitySensitivity*(vel-64))
	// Quadratic velocity curve, 1.0 at full velocity
	v.amplitude = (0.004*(vel+64)*(vel+64) - 8) / (0.004*191*191 - 8)

	v.env.attack, v.env.decay = p.EnvAttack, p.EnvDecay
	v.env.sustain, v.env.release = p.EnvSustain, p.EnvRelease
	v.env.trigger()

	v.filterEnv.attack, v.filterEnv.decay = p.FilterAttack, p.FilterDecay
	v.filterEnv.sustain, v.filterEnv.release = p.FilterSustain, p.FilterRelease
	v.filterEnv.trigger()

	v.vibratoMod, v.pulseMod = 1, 1
}

// control runs once per control step with the shared LFO state
func (v *voice) control(p *Patch, filterMod float64) {
	fenv := v.filterEnv.next()
	cutoff := v.cutoff * math.Exp(filterMod+p.FilterEnvDepth*fenv)
	cutoff = min(max(cutoff, parameter.AudioFilterMinCutoff), parameter.AudioFilterMaxCutoff)
	// Keep below Nyquist for the tan prewarp
	cutoff = min(cutoff, 0.49*v.filter.sampleRate)
	v.filter.tune(cutoff, p.FilterQ)
}

func (v *voice) render(p *Patch, noise float64) float64 {
	sr := v.filter.sampleRate
	s1 := v.osc1.next(v.freq * v.vibratoMod / sr)
	s2 := v.osc2.next(v.freq * p.Detune * v.pulseMod / sr)
	out := (s1 + p.OscMix*s2) / (1 + p.OscMix)
	out = v.filter.process(out + noise)
	return out * v.env.next() * v.amplitude
}

func (v *voice) release() {
	v.env.off()
	v.filterEnv.off()
}

func (v *voice) reset() {
	v.note = 0
	v.osc1.reset()
	v.osc2.reset()
	v.filter.reset()
	v.env.reset()
	v.filterEnv.reset()
}
